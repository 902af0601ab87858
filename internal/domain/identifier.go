package domain

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ErrBadIdentifier is returned when a string does not match any of the
// four canonical identifier shapes.
var ErrBadIdentifier = errors.New("not a valid identifier")

// AnidbID identifies an anidb anime: "A<int>".
type AnidbID int

func (id AnidbID) String() string { return "A" + strconv.Itoa(int(id)) }

// TmdbID identifies a tmdb show: "T<int>".
type TmdbID int

func (id TmdbID) String() string { return "T" + strconv.Itoa(int(id)) }

// TmdbSeasonID identifies one season of a tmdb show: "T<int>S<int>".
type TmdbSeasonID struct {
	Show   TmdbID
	Season int
}

func (id TmdbSeasonID) String() string {
	return id.Show.String() + "S" + strconv.Itoa(id.Season)
}

// AnimeMappingID is the composite cross-catalog identifier:
// "A<int>-T<int>S<int>".
type AnimeMappingID struct {
	Anidb AnidbID
	Tmdb  TmdbSeasonID
}

func (id AnimeMappingID) String() string {
	return id.Anidb.String() + "-" + id.Tmdb.String()
}

// Identifier is the sum type returned by ParseIdentifier: exactly one of
// its Anidb/Tmdb/TmdbSeason/Mapping fields is non-nil.
type Identifier struct {
	Anidb      *AnidbID
	Tmdb       *TmdbID
	TmdbSeason *TmdbSeasonID
	Mapping    *AnimeMappingID
}

// String renders the identifier back to its canonical form. print(parse(s))
// == s holds for every string accepted by ParseIdentifier.
func (id Identifier) String() string {
	switch {
	case id.Mapping != nil:
		return id.Mapping.String()
	case id.TmdbSeason != nil:
		return id.TmdbSeason.String()
	case id.Tmdb != nil:
		return id.Tmdb.String()
	case id.Anidb != nil:
		return id.Anidb.String()
	default:
		return ""
	}
}

// ParseIdentifier parses one of the four canonical identifier shapes, most
// specific first: A<int>-T<int>S<int>, T<int>S<int>, A<int>, T<int>. Value
// parsing is strict decimal, non-empty; anything else is rejected.
func ParseIdentifier(s string) (Identifier, error) {
	if a, t, ok := strings.Cut(s, "-"); ok {
		aid, err := parseAnidb(a)
		if err != nil {
			return Identifier{}, errors.Wrapf(ErrBadIdentifier, "%q", s)
		}
		ts, err := parseTmdbSeason(t)
		if err != nil {
			return Identifier{}, errors.Wrapf(ErrBadIdentifier, "%q", s)
		}
		m := AnimeMappingID{Anidb: aid, Tmdb: ts}
		return Identifier{Mapping: &m}, nil
	}

	if ts, err := parseTmdbSeason(s); err == nil {
		return Identifier{TmdbSeason: &ts}, nil
	}

	if aid, err := parseAnidb(s); err == nil {
		return Identifier{Anidb: &aid}, nil
	}

	if tid, err := parseTmdb(s); err == nil {
		return Identifier{Tmdb: &tid}, nil
	}

	return Identifier{}, errors.Wrapf(ErrBadIdentifier, "%q", s)
}

func parseAnidb(s string) (AnidbID, error) {
	rest, ok := strings.CutPrefix(s, "A")
	if !ok {
		return 0, ErrBadIdentifier
	}
	n, err := parseDecimal(rest)
	if err != nil {
		return 0, err
	}
	return AnidbID(n), nil
}

func parseTmdb(s string) (TmdbID, error) {
	rest, ok := strings.CutPrefix(s, "T")
	if !ok {
		return 0, ErrBadIdentifier
	}
	n, err := parseDecimal(rest)
	if err != nil {
		return 0, err
	}
	return TmdbID(n), nil
}

func parseTmdbSeason(s string) (TmdbSeasonID, error) {
	rest, ok := strings.CutPrefix(s, "T")
	if !ok {
		return TmdbSeasonID{}, ErrBadIdentifier
	}
	show, season, ok := strings.Cut(rest, "S")
	if !ok {
		return TmdbSeasonID{}, ErrBadIdentifier
	}
	showN, err := parseDecimal(show)
	if err != nil {
		return TmdbSeasonID{}, err
	}
	seasonN, err := parseDecimal(season)
	if err != nil {
		return TmdbSeasonID{}, err
	}
	return TmdbSeasonID{Show: TmdbID(showN), Season: seasonN}, nil
}

// parseDecimal requires a non-empty, all-digit string; no sign, no
// whitespace, no leading "+".
func parseDecimal(s string) (int, error) {
	if s == "" {
		return 0, ErrBadIdentifier
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, ErrBadIdentifier
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.Wrap(ErrBadIdentifier, err.Error())
	}
	return n, nil
}
