package mapping

import (
	"testing"
	"time"

	"github.com/ObviusOwl/amc2cached/internal/domain"
)

type fakeTitleRepo struct {
	byAid  map[string][]domain.TitleEntry
	search map[string][]domain.TitleEntry
	calls  []string
}

func (f *fakeTitleRepo) Find(q domain.Title) ([]domain.TitleEntry, error) {
	f.calls = append(f.calls, q.Value)
	if q.Aid != "" {
		return f.byAid[q.Aid], nil
	}
	return f.search[q.Value], nil
}
func (f *fakeTitleRepo) Store(domain.TitleEntry) error { return nil }
func (f *fakeTitleRepo) Purge() error                  { return nil }
func (f *fakeTitleRepo) Remove(domain.Title) error     { return nil }

type fakeMappingRepo struct {
	byAnidb map[string][]domain.AnimeMapping
}

func (f *fakeMappingRepo) ResolveTmdb(q domain.AnimeMapping) ([]domain.AnimeMapping, error) {
	return f.byAnidb[q.Anidb], nil
}
func (f *fakeMappingRepo) ResolveAnidb(domain.AnimeMapping) ([]domain.AnimeMapping, error) {
	return nil, nil
}
func (f *fakeMappingRepo) Load(domain.AnimeMapping) (*domain.AnimeMapping, error) { return nil, nil }
func (f *fakeMappingRepo) Store([]domain.AnimeMapping, bool) error                { return nil }
func (f *fakeMappingRepo) Remove(domain.AnimeMapping) error                       { return nil }
func (f *fakeMappingRepo) Dump() ([]domain.AnimeMapping, error)                   { return nil, nil }
func (f *fakeMappingRepo) Purge() error                                          { return nil }

func entry(aid, typ, lang, value string) domain.TitleEntry {
	return domain.TitleEntry{Title: domain.Title{Aid: aid, Type: typ, Lang: lang, Value: value}, Age: time.Now()}
}

func TestMatchTitleShortCircuitsOnPerfectMatch(t *testing.T) {
	anidb := &fakeTitleRepo{
		byAid: map[string][]domain.TitleEntry{
			"42": {
				entry("42", domain.TitleTypeMain, "x-jat", "Koe no Katachi"),
				entry("42", domain.TitleTypeOfficial, "en", "A Silent Voice"),
			},
		},
	}
	anidb.search = map[string][]domain.TitleEntry{"irrelevant": anidb.byAid["42"]}

	tmdb := &fakeTitleRepo{
		search: map[string][]domain.TitleEntry{
			"A Silent Voice": {entry("T1234S1", "", "", "A Silent Voice")},
		},
	}
	mappings := &fakeMappingRepo{byAnidb: map[string][]domain.AnimeMapping{}}

	matcher := NewTitleMatcher(anidb, tmdb, mappings)
	results, err := matcher.MatchTitle(domain.Title{Value: "irrelevant"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || !results[0].IsFromMatch || results[0].Anidb.Aid != "42" || results[0].Tmdb.Aid != "T1234S1" {
		t.Fatalf("results = %+v", results)
	}

	for _, c := range tmdb.calls {
		if c == "Koe no Katachi" {
			t.Fatal("tmdb search for the non-winning candidate should never be issued")
		}
	}
}

func TestMatchTitleStoredMappingBypassesTmdb(t *testing.T) {
	anidb := &fakeTitleRepo{
		byAid: map[string][]domain.TitleEntry{
			"42": {entry("42", domain.TitleTypeMain, "en", "Some Show")},
		},
	}
	anidb.search = map[string][]domain.TitleEntry{"irrelevant": anidb.byAid["42"]}

	tmdb := &fakeTitleRepo{}
	mappings := &fakeMappingRepo{byAnidb: map[string][]domain.AnimeMapping{
		"42": {{Anidb: "42", Tmdb: "T1234S1"}},
	}}

	matcher := NewTitleMatcher(anidb, tmdb, mappings)
	results, err := matcher.MatchTitle(domain.Title{Value: "irrelevant"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || !results[0].IsFromStorage || results[0].Tmdb.Aid != "T1234S1" {
		t.Fatalf("results = %+v", results)
	}
	if len(tmdb.calls) != 0 {
		t.Fatalf("tmdb should never be consulted when the mapping repo resolves every id, got calls %v", tmdb.calls)
	}
}
