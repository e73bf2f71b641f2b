package classifier_test

import (
	"errors"
	"testing"

	"github.com/hashicorp/go-version"
	"github.com/rasha-hantash/splunk-downloader/steps/classifier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ufBase = "https://download.splunk.com/products/universalforwarder/releases/"

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		url         string
		version     string
		os          string
		arch        string
		packageType string
	}{
		{
			name:        "linux s390x tarball",
			url:         ufBase + "7.2.9.1/linux/splunkforwarder-7.2.9.1-605df3f0dfdd-Linux-s390x.tgz",
			version:     "7.2.9.1",
			os:          "linux",
			arch:        "s390x",
			packageType: "tgz",
		},
		{
			name:        "linux ppc64le tarball",
			url:         ufBase + "7.2.9.1/linux/splunkforwarder-7.2.9.1-605df3f0dfdd-Linux-ppc64le.tgz",
			version:     "7.2.9.1",
			os:          "linux",
			arch:        "ppc64le",
			packageType: "tgz",
		},
		{
			name:        "linux arm tarball",
			url:         ufBase + "7.2.9.1/linux/splunkforwarder-7.2.9.1-605df3f0dfdd-Linux-arm.tgz",
			version:     "7.2.9.1",
			os:          "linux",
			arch:        "arm",
			packageType: "tgz",
		},
		{
			name:        "freebsd 11 txz",
			url:         ufBase + "7.2.9.1/freebsd/splunkforwarder-7.2.9.1-605df3f0dfdd-freebsd-11.1-amd64.txz",
			version:     "7.2.9.1",
			os:          "freebsd",
			arch:        "amd64",
			packageType: "txz",
		},
		{
			name:        "freebsd 10 txz",
			url:         ufBase + "7.2.9.1/freebsd/splunkforwarder-7.2.9.1-605df3f0dfdd-freebsd-10.4-amd64.txz",
			version:     "7.2.9.1",
			os:          "freebsd",
			arch:        "amd64",
			packageType: "txz",
		},
		{
			name:        "aix powerpc",
			url:         ufBase + "7.2.9.1/aix/splunkforwarder-7.2.9.1-605df3f0dfdd-AIX-powerpc.tgz",
			version:     "7.2.9.1",
			os:          "aix",
			arch:        "powerpc",
			packageType: "tgz",
		},
		{
			name:        "windows x86 strips release marker",
			url:         ufBase + "7.2.8/windows/splunkforwarder-7.2.8-d613a50d43ac-x86-release.msi",
			version:     "7.2.8",
			os:          "windows",
			arch:        "x86",
			packageType: "msi",
		},
		{
			name:        "windows x64 strips release marker",
			url:         ufBase + "7.2.8/windows/splunkforwarder-7.2.8-d613a50d43ac-x64-release.msi",
			version:     "7.2.8",
			os:          "windows",
			arch:        "x64",
			packageType: "msi",
		},
		{
			name:        "solaris 11 sparc p5p",
			url:         ufBase + "7.2.8/solaris/splunkforwarder-7.2.8-d613a50d43ac-solaris-11-sparc.p5p",
			version:     "7.2.8",
			os:          "solaris",
			arch:        "sparc",
			packageType: "p5p",
		},
		{
			name:        "solaris 11 intel p5p",
			url:         ufBase + "7.2.8/solaris/splunkforwarder-7.2.8-d613a50d43ac-solaris-11-intel.p5p",
			version:     "7.2.8",
			os:          "solaris",
			arch:        "intel",
			packageType: "p5p",
		},
		{
			// pkg.Z is not rewritten, so the token before the last dot is "pkg"
			name:        "solaris 10 pkg.Z lands on a noisy token",
			url:         ufBase + "7.2.8/solaris/splunkforwarder-7.2.8-d613a50d43ac-solaris-10-sparc.pkg.Z",
			version:     "7.2.8",
			os:          "solaris",
			arch:        "pkg",
			packageType: "pkg.Z",
		},
		{
			name:        "solaris x86_64 tar.Z rewritten",
			url:         ufBase + "7.2.8/solaris/splunkforwarder-7.2.8-d613a50d43ac-SunOS-x86_64.tar.Z",
			version:     "7.2.8",
			os:          "solaris",
			arch:        "x86_64",
			packageType: "tar.Z",
		},
		{
			name:        "solaris sparc tar.Z rewritten",
			url:         ufBase + "7.2.8/solaris/splunkforwarder-7.2.8-d613a50d43ac-SunOS-sparc.tar.Z",
			version:     "7.2.8",
			os:          "solaris",
			arch:        "sparc",
			packageType: "tar.Z",
		},
		{
			name:        "osx dmg",
			url:         ufBase + "7.2.8/osx/splunkforwarder-7.2.8-d613a50d43ac-macosx-10.11-intel.dmg",
			version:     "7.2.8",
			os:          "osx",
			arch:        "intel",
			packageType: "dmg",
		},
		{
			name:        "osx darwin tarball",
			url:         ufBase + "7.2.8/osx/splunkforwarder-7.2.8-d613a50d43ac-darwin-64.tgz",
			version:     "7.2.8",
			os:          "osx",
			arch:        "64",
			packageType: "tgz",
		},
		{
			name:        "linux s390x rpm",
			url:         ufBase + "7.2.8/linux/splunkforwarder-7.2.8-d613a50d43ac-linux-s390x.rpm",
			version:     "7.2.8",
			os:          "linux",
			arch:        "s390x",
			packageType: "rpm",
		},
		{
			name:        "linux 2.6 x86_64 rpm",
			url:         ufBase + "7.2.8/linux/splunkforwarder-7.2.8-d613a50d43ac-linux-2.6-x86_64.rpm",
			version:     "7.2.8",
			os:          "linux",
			arch:        "x86_64",
			packageType: "rpm",
		},
		{
			name:        "enterprise deb",
			url:         "https://download.splunk.com/products/splunk/releases/9.0.2/linux/splunk-9.0.2-17e00c557dc1-linux-2.6-amd64.deb",
			version:     "9.0.2",
			os:          "linux",
			arch:        "amd64",
			packageType: "deb",
		},
		{
			name:        "enterprise windows zip",
			url:         "https://download.splunk.com/products/splunk/releases/9.0.2/windows/splunk-9.0.2-17e00c557dc1-windows-64.zip",
			version:     "9.0.2",
			os:          "windows",
			arch:        "64",
			packageType: "zip",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := classifier.Classify(tt.url)
			require.NoError(t, err)

			assert.Equal(t, tt.url, rec.URL)
			assert.Equal(t, tt.version, rec.VersionString())
			assert.Equal(t, tt.os, rec.OS)
			assert.Equal(t, tt.arch, rec.Arch)
			assert.Equal(t, tt.packageType, rec.PackageType)
		})
	}
}

func TestClassify_Errors(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want error
	}{
		{
			name: "unrecognized package type",
			url:  ufBase + "7.2.8/linux/foo.xyz",
			want: classifier.ErrUnrecognizedPackageType,
		},
		{
			name: "suffix without a dot is not a package",
			url:  ufBase + "7.2.8/linux/foo-xdeb",
			want: classifier.ErrUnrecognizedPackageType,
		},
		{
			name: "no releases segment",
			url:  "https://download.splunk.com/products/splunk/9.0.2/linux/splunk-9.0.2-linux-2.6-amd64.deb",
			want: classifier.ErrMalformedURL,
		},
		{
			name: "releases segment without os directory",
			url:  "https://download.splunk.com/products/splunk/releases/9.0.2-amd64.deb",
			want: classifier.ErrMalformedURL,
		},
		{
			name: "unparseable version",
			url:  ufBase + "latest/linux/splunkforwarder-latest-Linux-x86_64.tgz",
			want: classifier.ErrMalformedURL,
		},
		{
			name: "empty string",
			url:  "",
			want: classifier.ErrMalformedURL,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := classifier.Classify(tt.url)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, rec.URL, "no partial record on failure")
			assert.Nil(t, rec.Version)

			var cerr *classifier.ClassificationError
			require.True(t, errors.As(err, &cerr))
			assert.Equal(t, tt.url, cerr.URL)
		})
	}
}

func TestArchitecture(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{ufBase + "7.2.8/windows/splunkforwarder-7.2.8-d613a50d43ac-x86-release.msi", "x86"},
		{ufBase + "7.2.8/solaris/splunkforwarder-7.2.8-d613a50d43ac-SunOS-x86_64.tar.Z", "x86_64"},
		// the tar.Z rewrite only applies to solaris links
		{ufBase + "7.2.8/linux/splunkforwarder-7.2.8-d613a50d43ac-Linux-x86_64.tar.Z", "tar"},
		{"no-dots-here", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, classifier.Architecture(tt.url), tt.url)
	}
}

func TestVersionOrdering(t *testing.T) {
	v10 := version.Must(version.NewVersion("7.2.10"))
	v9 := version.Must(version.NewVersion("7.2.9"))
	v8 := version.Must(version.NewVersion("7.2.8"))
	v91 := version.Must(version.NewVersion("7.2.9.1"))

	assert.True(t, v10.GreaterThan(v9))
	assert.True(t, v9.GreaterThan(v8))
	assert.True(t, v91.GreaterThan(v9))
	assert.True(t, v10.GreaterThan(v91))
}

func TestPackageTypes(t *testing.T) {
	got := classifier.PackageTypes()
	assert.Equal(t, []string{"deb", "dmg", "msi", "p5p", "pkg.Z", "rpm", "tgz", "txz", "tar.Z", "zip"}, got)

	got[0] = "changed"
	assert.Equal(t, "deb", classifier.PackageTypes()[0])
}
