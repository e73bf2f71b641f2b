package selector

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/rasha-hantash/splunk-downloader/steps/classifier"
	"github.com/rasha-hantash/splunk-downloader/steps/types"
)

// Select classifies raw links, applies the filters, drops exact duplicates and
// returns the survivors sorted by version, newest first. Links that cannot be
// classified are logged and skipped.
func Select(logger *slog.Logger, rawLinks []string, filters types.Filters) []types.LinkRecord {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	results := make([]types.LinkRecord, 0, len(rawLinks))
	seen := make(map[recordKey]struct{}, len(rawLinks))

	for _, link := range rawLinks {
		logger.Debug("checking link", slog.String("url", link))

		rec, err := classifier.Classify(link)
		if err != nil {
			level := slog.LevelWarn
			if errors.Is(err, classifier.ErrUnrecognizedPackageType) {
				level = slog.LevelDebug
			}
			logger.Log(context.Background(), level, "skipping link", slog.String("url", link), slog.Any("error", err))
			continue
		}

		if reason := mismatch(rec, filters); reason != "" {
			logger.Debug("skipping link",
				slog.String("url", link),
				slog.String("reason", reason))
			continue
		}

		k := keyOf(rec)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		results = append(results, rec)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Version.GreaterThan(results[j].Version)
	})

	if filters.LatestOnly {
		results = Latest(results)
	}
	return results
}

// Latest keeps the first record seen for each os/arch/package combination.
// Input must already be sorted newest first.
func Latest(records []types.LinkRecord) []types.LinkRecord {
	out := make([]types.LinkRecord, 0, len(records))
	seen := make(map[types.SeenKey]struct{}, len(records))
	for _, rec := range records {
		k := rec.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, rec)
	}
	return out
}

// mismatch returns which filter rejected the record, or "" when all pass.
func mismatch(rec types.LinkRecord, f types.Filters) string {
	switch {
	case f.OS != "" && rec.OS != f.OS:
		return "os does not match " + f.OS
	case f.VersionPrefix != "" && !strings.HasPrefix(rec.VersionString(), f.VersionPrefix):
		return "version does not match " + f.VersionPrefix
	case f.PackageType != "" && rec.PackageType != f.PackageType:
		return "package type does not match " + f.PackageType
	case f.Arch != "" && !strings.EqualFold(rec.Arch, f.Arch):
		return "arch does not match " + f.Arch
	}
	return ""
}

type recordKey struct {
	url     string
	key     types.SeenKey
	version string
}

func keyOf(rec types.LinkRecord) recordKey {
	return recordKey{url: rec.URL, key: rec.Key(), version: rec.VersionString()}
}
