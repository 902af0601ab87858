package animelist

import (
	"testing"

	"github.com/ObviusOwl/amc2cached/internal/domain"
)

type fakeMappingRepo struct {
	stored  []domain.AnimeMapping
	replace bool
}

func (f *fakeMappingRepo) ResolveTmdb(domain.AnimeMapping) ([]domain.AnimeMapping, error) { return nil, nil }
func (f *fakeMappingRepo) ResolveAnidb(domain.AnimeMapping) ([]domain.AnimeMapping, error) {
	return nil, nil
}
func (f *fakeMappingRepo) Load(domain.AnimeMapping) (*domain.AnimeMapping, error) { return nil, nil }
func (f *fakeMappingRepo) Store(values []domain.AnimeMapping, replace bool) error {
	f.stored = append(f.stored, values...)
	f.replace = replace
	return nil
}
func (f *fakeMappingRepo) Remove(domain.AnimeMapping) error { return nil }
func (f *fakeMappingRepo) Dump() ([]domain.AnimeMapping, error) { return nil, nil }
func (f *fakeMappingRepo) Purge() error { return nil }

func TestParseIdsSkipsIncompleteEntries(t *testing.T) {
	cases := []struct {
		name string
		a    rawAnime
		ok   bool
	}{
		{"both present", rawAnime{Anidbid: "42", Tmdbid: "1234"}, true},
		{"missing tmdb", rawAnime{Anidbid: "42"}, false},
		{"missing anidb", rawAnime{Tmdbid: "1234"}, false},
		{"non-numeric", rawAnime{Anidbid: "x", Tmdbid: "1234"}, false},
		{"zero", rawAnime{Anidbid: "0", Tmdbid: "1234"}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, _, ok := parseIds(c.a)
			if ok != c.ok {
				t.Fatalf("parseIds(%+v) ok = %v, want %v", c.a, ok, c.ok)
			}
		})
	}
}

func TestParseIdsBuildsCanonicalMappingIds(t *testing.T) {
	anidb, tmdb, ok := parseIds(rawAnime{Anidbid: "69", Tmdbid: "1234"})
	if !ok {
		t.Fatal("expected ok")
	}
	m := domain.AnimeMapping{
		Anidb: domain.AnidbID(anidb).String(),
		Tmdb:  domain.TmdbSeasonID{Show: domain.TmdbID(tmdb), Season: 1}.String(),
	}
	if m.Anidb != "A69" || m.Tmdb != "T1234S1" {
		t.Fatalf("mapping = %+v", m)
	}
}
