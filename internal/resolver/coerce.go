package resolver

import (
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
)

var devSuffix = regexp.MustCompile(`^(.*?)[._-]?dev[._-]?(\d+)$`)

// coerceLabel rewrites common non-semver development suffixes into semver
// prerelease form, e.g. "1.2.3.dev4" becomes "1.2.3-dev.4". Labels without
// such a suffix pass through unchanged.
func coerceLabel(label string) string {
	m := devSuffix.FindStringSubmatch(label)
	if m == nil {
		return label
	}
	base := strings.TrimRight(m[1], "._-")
	return base + "-dev." + m[2]
}

// parseLabel parses a version label leniently: "1.2" and "v1.2.3" are
// accepted alongside strict semver.
func parseLabel(label string) (*semver.Version, error) {
	return semver.NewVersion(label)
}
