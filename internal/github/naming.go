package gh

import (
	"errors"
	"fmt"
	"hash/fnv"
	"regexp"
	"strings"
)

var disallowedRepoChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ErrInvalidRepositoryName is returned when a name cannot be turned into a valid repository name.
var ErrInvalidRepositoryName = errors.New("github: invalid repository name")

const (
	maxRepositoryNameLength = 100
	nameHashLength          = 8
)

// NormalizeRepositoryName rewrites name the way GitHub does on creation: every run of
// characters outside [A-Za-z0-9._-] becomes a single hyphen. Names longer than GitHub
// accepts are shortened and suffixed with a stable hash of the full name.
func NormalizeRepositoryName(name string) (string, error) {
	name = strings.TrimSpace(name)
	name = disallowedRepoChars.ReplaceAllString(name, "-")

	if name == "" || strings.Trim(name, "-") == "" || name == "." || name == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidRepositoryName, name)
	}

	if len(name) <= maxRepositoryNameLength {
		return name, nil
	}
	return shortenName(name, maxRepositoryNameLength), nil
}

func shortenName(name string, limit int) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	suffix := fmt.Sprintf("-%0*x", nameHashLength, h.Sum32())

	base := name[:limit-len(suffix)]
	base = strings.TrimRight(base, "-.")
	if base == "" {
		return suffix[1:]
	}
	return base + suffix
}
