package config

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// ErrBadDuration is returned by ParseDuration for a string that does not
// match the duration grammar.
var ErrBadDuration = errors.New("invalid duration string")

// unitSeconds are the recognized unit suffixes, longest first so "min"
// is tried before "m" would be (which this grammar does not even define,
// avoiding the ambiguity entirely).
var unitSeconds = []struct {
	suffix  string
	seconds int64
}{
	{"min", 60},
	{"mo", 30 * 24 * 60 * 60},
	{"s", 1},
	{"h", 60 * 60},
	{"d", 24 * 60 * 60},
	{"w", 7 * 24 * 60 * 60},
	{"y", 365 * 24 * 60 * 60},
}

var pairPattern = regexp.MustCompile(`^(\d+)(min|mo|s|h|d|w|y)$`)

// ParseDuration parses the configuration duration grammar: whitespace
// separated "<digits><unit>" pairs, summed. Units are s, min, h, d, w, mo
// (30 days), y (365 days); e.g. "2d 12h" == 216000 seconds.
func ParseDuration(value string) (time.Duration, error) {
	fields := strings.Fields(value)
	if len(fields) == 0 {
		return 0, errors.Wrapf(ErrBadDuration, "%q is empty", value)
	}

	var total int64
	for _, f := range fields {
		m := pairPattern.FindStringSubmatch(strings.ToLower(f))
		if m == nil {
			return 0, errors.Wrapf(ErrBadDuration, "%q", f)
		}
		n, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return 0, errors.Wrapf(ErrBadDuration, "%q", f)
		}
		unit := m[2]
		found := false
		for _, u := range unitSeconds {
			if u.suffix == unit {
				total += n * u.seconds
				found = true
				break
			}
		}
		if !found {
			return 0, errors.Wrapf(ErrBadDuration, "unknown unit in %q", f)
		}
	}
	return time.Duration(total) * time.Second, nil
}
