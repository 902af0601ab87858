package mapping

import (
	"strings"

	"github.com/ObviusOwl/amc2cached/internal/domain"
	"github.com/ObviusOwl/amc2cached/internal/titlerepo"
)

// TitleMatcher resolves a free-text title query into candidate
// (anidb, tmdb-season) pairs: anidb is the primary source, matched against
// tmdb only for ids the mapping repository does not already confirm.
type TitleMatcher struct {
	anidbRepo   titlerepo.Repo
	tmdbRepo    titlerepo.Repo
	mappingRepo Repo
}

// NewTitleMatcher builds a TitleMatcher over the given title sources and
// mapping repository.
func NewTitleMatcher(anidbRepo, tmdbRepo titlerepo.Repo, mappingRepo Repo) *TitleMatcher {
	return &TitleMatcher{anidbRepo: anidbRepo, tmdbRepo: tmdbRepo, mappingRepo: mappingRepo}
}

// MatchTitle searches anidb by title.Value, groups the results by anidb id,
// resolves as many groups as possible from the mapping repository, and
// falls back to a tmdb title search only for groups left unresolved.
func (m *TitleMatcher) MatchTitle(title domain.Title) ([]TitleMappingResult, error) {
	lang := title.Lang

	anidbTitles, err := m.anidbRepo.Find(title)
	if err != nil {
		return nil, err
	}
	byAid := indexTitles(anidbTitles)

	var result []TitleMappingResult
	for _, entries := range byAid {
		mainTitle, ok := mainTitleOf(entries)
		if !ok {
			continue
		}
		stored, err := m.findStoredMatch(mainTitle)
		if err != nil {
			return nil, err
		}
		result = append(result, stored...)
	}

	for _, item := range result {
		delete(byAid, item.Anidb.Aid)
	}

	if len(byAid) == 0 {
		return result, nil
	}

	for aid := range byAid {
		anidbTitles, err := m.anidbRepo.Find(domain.Title{Aid: aid})
		if err != nil {
			return nil, err
		}
		matched, err := m.findTmdbMatch(anidbTitles, lang)
		if err != nil {
			return nil, err
		}
		result = append(result, matched...)
	}

	return result, nil
}

func (m *TitleMatcher) findStoredMatch(entry domain.TitleEntry) ([]TitleMappingResult, error) {
	mappings, err := m.mappingRepo.ResolveTmdb(domain.AnimeMapping{Anidb: entry.Aid})
	if err != nil {
		return nil, err
	}
	var out []TitleMappingResult
	for _, mp := range mappings {
		out = append(out, TitleMappingResult{
			Anidb:         entry.Title,
			Tmdb:          domain.Title{Aid: mp.Tmdb},
			IsFromStorage: true,
		})
	}
	return out, nil
}

func (m *TitleMatcher) findTmdbMatch(anidbTitles []domain.TitleEntry, lang string) ([]TitleMappingResult, error) {
	var result []TitleMappingResult

	for _, candidate := range mappingTitleCandidates(anidbTitles) {
		tmdbTitles, err := m.tmdbRepo.Find(domain.Title{Lang: lang, Value: candidate.Value})
		if err != nil {
			return nil, err
		}

		if perfect, ok := findPerfectMatch(anidbTitles, tmdbTitles); ok {
			return []TitleMappingResult{perfect}, nil
		}
		for _, tmdbTitle := range tmdbTitles {
			result = append(result, TitleMappingResult{Anidb: candidate.Title, Tmdb: tmdbTitle.Title})
		}
	}

	return result, nil
}

func findPerfectMatch(anidbTitles, tmdbTitles []domain.TitleEntry) (TitleMappingResult, bool) {
	for _, a := range anidbTitles {
		t1 := strings.ToLower(strings.TrimSpace(a.Value))
		if t1 == "" {
			continue
		}
		for _, tm := range tmdbTitles {
			t2 := strings.ToLower(strings.TrimSpace(tm.Value))
			if t1 == t2 {
				return TitleMappingResult{Anidb: a.Title, Tmdb: tm.Title, IsFromMatch: true}, true
			}
		}
	}
	return TitleMappingResult{}, false
}

func indexTitles(titles []domain.TitleEntry) map[string][]domain.TitleEntry {
	out := map[string][]domain.TitleEntry{}
	for _, t := range titles {
		out[t.Aid] = append(out[t.Aid], t)
	}
	return out
}

// mainTitleOf prefers the type=main title, then official/en, then
// official/ja, then the first entry.
func mainTitleOf(titles []domain.TitleEntry) (domain.TitleEntry, bool) {
	for _, t := range titles {
		if t.Type == domain.TitleTypeMain {
			return t, true
		}
	}
	for _, t := range titles {
		if t.Type == domain.TitleTypeOfficial && t.Lang == "en" {
			return t, true
		}
	}
	for _, t := range titles {
		if t.Type == domain.TitleTypeOfficial && t.Lang == "ja" {
			return t, true
		}
	}
	if len(titles) > 0 {
		return titles[0], true
	}
	return domain.TitleEntry{}, false
}

// mappingTitleCandidates orders titles into the fixed attempt priority:
// official/en, then main (any language), then official/ja.
func mappingTitleCandidates(titles []domain.TitleEntry) []domain.TitleEntry {
	var out []domain.TitleEntry
	for _, t := range titles {
		if t.Type == domain.TitleTypeOfficial && t.Lang == "en" {
			out = append(out, t)
		}
	}
	for _, t := range titles {
		if t.Type == domain.TitleTypeMain {
			out = append(out, t)
		}
	}
	for _, t := range titles {
		if t.Type == domain.TitleTypeOfficial && t.Lang == "ja" {
			out = append(out, t)
		}
	}
	return out
}
