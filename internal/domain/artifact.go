package domain

import (
	"regexp"
	"sort"
	"strings"
	"time"
)

const (
	// TimestampLayout is fixed-width and zero-padded so that timestamps
	// order correctly as plain strings.
	TimestampLayout = "2006-01-02_15-04-05"
	ArtifactExt     = ".sql.gz"
)

var artifactPattern = regexp.MustCompile(`^(.+)_(\d{4}-\d{2}-\d{2}_\d{2}-\d{2}-\d{2})\.sql\.gz$`)

// Artifact is a single compressed dump in the backup directory. Artifacts are
// never edited: they are created by a backup run and removed by retention.
type Artifact struct {
	Filename   string
	Prefix     string
	Timestamp  string
	SizeBytes  int64
	Compressed bool
}

// MakeFilename returns <prefix>_<YYYY-MM-DD_HH-mm-ss>.sql.gz.
func MakeFilename(prefix string, now time.Time) string {
	return prefix + "_" + now.Format(TimestampLayout) + ArtifactExt
}

// ParseTimestamp extracts the embedded timestamp. It reports false when the
// name does not follow the artifact naming pattern.
func ParseTimestamp(filename string) (string, bool) {
	m := artifactPattern.FindStringSubmatch(filename)
	if m == nil {
		return "", false
	}
	return m[2], true
}

// ParsePrefix extracts the naming prefix of an artifact filename.
func ParsePrefix(filename string) (string, bool) {
	m := artifactPattern.FindStringSubmatch(filename)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// HasPrefix reports whether filename belongs to the given naming prefix.
func HasPrefix(filename, prefix string) bool {
	return strings.HasPrefix(filename, prefix+"_")
}

// ParseTime converts an embedded timestamp back to a time in loc.
func ParseTime(timestamp string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(TimestampLayout, timestamp, loc)
}

// SortNewestFirst orders artifacts by embedded timestamp, newest first.
// String comparison is only valid because TimestampLayout is fixed-width.
func SortNewestFirst(artifacts []Artifact) {
	sort.SliceStable(artifacts, func(i, j int) bool {
		if artifacts[i].Timestamp != artifacts[j].Timestamp {
			return artifacts[i].Timestamp > artifacts[j].Timestamp
		}
		return artifacts[i].Filename > artifacts[j].Filename
	})
}
