package classifier

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/hashicorp/go-version"
	"github.com/rasha-hantash/splunk-downloader/steps/types"
)

var (
	// ErrMalformedURL means the link has no releases/<version>/<os>/ segment or an
	// unusable version or architecture.
	ErrMalformedURL = errors.New("malformed url")
	// ErrUnrecognizedPackageType means the link does not end in a known package suffix.
	ErrUnrecognizedPackageType = errors.New("unrecognized package type")
)

// ClassificationError reports which link failed and why.
type ClassificationError struct {
	URL string
	Err error
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("classify %s: %v", e.URL, e.Err)
}

func (e *ClassificationError) Unwrap() error {
	return e.Err
}

var packageTypes = []string{
	"deb",
	"dmg",
	"msi",
	"p5p",
	"pkg.Z",
	"rpm",
	"tgz",
	"txz",
	"tar.Z",
	"zip",
}

var (
	releaseRe = regexp.MustCompile(`releases/([^/]+)/([^/]+)/`)
	packageRe = regexp.MustCompile(`\.(` + packagePattern() + `)$`)
)

func packagePattern() string {
	quoted := make([]string, len(packageTypes))
	for i, p := range packageTypes {
		quoted[i] = regexp.QuoteMeta(p)
	}
	return strings.Join(quoted, "|")
}

// PackageTypes returns the recognized package suffixes.
func PackageTypes() []string {
	out := make([]string, len(packageTypes))
	copy(out, packageTypes)
	return out
}

// Classify parses a download link into a LinkRecord. On failure it returns a
// *ClassificationError wrapping ErrMalformedURL or ErrUnrecognizedPackageType.
func Classify(rawURL string) (types.LinkRecord, error) {
	m := releaseRe.FindStringSubmatch(rawURL)
	if m == nil {
		return types.LinkRecord{}, classifyErr(rawURL, fmt.Errorf("%w: no releases/<version>/<os>/ segment", ErrMalformedURL))
	}
	rawVersion, osName := m[1], m[2]

	pm := packageRe.FindStringSubmatch(rawURL)
	if pm == nil {
		return types.LinkRecord{}, classifyErr(rawURL, ErrUnrecognizedPackageType)
	}

	arch := Architecture(rawURL)
	if arch == "" {
		return types.LinkRecord{}, classifyErr(rawURL, fmt.Errorf("%w: empty architecture", ErrMalformedURL))
	}

	v, err := version.NewVersion(rawVersion)
	if err != nil {
		return types.LinkRecord{}, classifyErr(rawURL, fmt.Errorf("%w: version %q: %v", ErrMalformedURL, rawVersion, err))
	}

	return types.LinkRecord{
		URL:         rawURL,
		OS:          osName,
		Arch:        arch,
		PackageType: pm[1],
		Version:     v,
	}, nil
}

// Architecture pulls the architecture token out of a download link's filename.
// It is keyed to the vendor's naming and returns whatever token sits before the
// final extension, so callers get noisy values for odd filenames.
func Architecture(rawURL string) string {
	s := rawURL
	if strings.Contains(s, "windows") {
		// windows installers end in -<arch>-release.msi
		s = strings.ReplaceAll(s, "-release", "")
	}
	if strings.Contains(s, "solaris") {
		s = strings.ReplaceAll(s, ".tar.Z", ".tar")
	}

	parts := strings.Split(s, ".")
	if len(parts) < 2 {
		return ""
	}
	name := parts[len(parts)-2]
	return name[strings.LastIndex(name, "-")+1:]
}

func classifyErr(rawURL string, err error) error {
	return &ClassificationError{URL: rawURL, Err: err}
}
