package types

import (
	"time"

	"github.com/hashicorp/go-version"
)

// Metadata is written next to every cached page.
type Metadata struct {
	Title     string    `json:"title"`
	SourceURL string    `json:"source_url"`
	CacheFile string    `json:"cache_file"`
	Bytes     int       `json:"bytes"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Page is one vendor page that carries download links.
type Page struct {
	Name string
	URL  string
}

// SeenKey identifies an os/arch/package combination for latest-only filtering.
type SeenKey struct {
	OS          string
	Arch        string
	PackageType string
}

// LinkRecord is a classified download link.
type LinkRecord struct {
	URL         string
	OS          string
	Arch        string
	PackageType string
	Version     *version.Version
}

// Key projects the record onto its SeenKey.
func (r LinkRecord) Key() SeenKey {
	return SeenKey{OS: r.OS, Arch: r.Arch, PackageType: r.PackageType}
}

// VersionString returns the version exactly as it appeared in the URL.
func (r LinkRecord) VersionString() string {
	if r.Version == nil {
		return ""
	}
	return r.Version.Original()
}

// Filters are the user supplied selection criteria. Empty fields match everything.
type Filters struct {
	OS            string
	VersionPrefix string
	PackageType   string
	Arch          string
	LatestOnly    bool
}

// Run carries state between the steps of a single invocation.
type Run struct {
	Links   []string
	Results []LinkRecord
	Empty   bool
}
