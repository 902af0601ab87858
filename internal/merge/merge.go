// Package merge fuses an anidb anime record with a specific tmdb season
// into one normalized record carrying identifiers from both catalogs.
package merge

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/ObviusOwl/amc2cached/internal/domain"
)

// ErrNotAnidbID is returned when anidbAnime.ID is not an "A<int>" shape.
var ErrNotAnidbID = errors.New("anime id is not an anidb identifier")

// ErrNotTmdbID is returned when tmdbAnime.ID is not a "T<int>" shape.
var ErrNotTmdbID = errors.New("anime id is not a tmdb identifier")

// Combine fuses anidbAnime with tmdbSeason of tmdbAnime into one Anime
// carrying the composite AnimeMappingId as its own id. Episode order
// between the two catalogs is never reconciled: some anidb anime span
// multiple tmdb seasons and the two orderings need not agree.
func Combine(anidbAnime, tmdbAnime domain.Anime, tmdbSeason int) (domain.Anime, error) {
	anidbID, err := parseAnidbID(anidbAnime.ID)
	if err != nil {
		return domain.Anime{}, err
	}
	tmdbID, err := parseTmdbShowID(tmdbAnime.ID)
	if err != nil {
		return domain.Anime{}, err
	}

	mapping := domain.AnimeMappingID{
		Anidb: anidbID,
		Tmdb:  domain.TmdbSeasonID{Show: tmdbID, Season: tmdbSeason},
	}

	anime := deepCopyAnime(anidbAnime)
	anime.ID = mapping.String()

	anime.UniqueIDs = mergeUniqueIDs(anime.UniqueIDs, tmdbAnime.UniqueIDs)
	anime.Images = append(append([]domain.Image{}, anime.Images...), tmdbAnime.Images...)
	anime.Ratings = append(append([]domain.Rating{}, anime.Ratings...), tmdbAnime.Ratings...)

	// anidb carries no genre taxonomy of its own; tmdb's is authoritative.
	anime.Genres = append([]string{}, tmdbAnime.Genres...)

	seasonMap := [][2]int{{0, 0}, {1, tmdbSeason}}
	newSeasons := make([]domain.Season, 0, len(seasonMap))
	for _, pair := range seasonMap {
		anidbSeason, ok1 := findSeason(anime.Seasons, pair[0])
		tmdbS, ok2 := findSeason(tmdbAnime.Seasons, pair[1])
		if !ok1 || !ok2 {
			continue
		}
		anidbSeason.Images = append(append([]domain.Image{}, anidbSeason.Images...), tmdbS.Images...)
		anidbSeason.Ratings = append(append([]domain.Rating{}, anidbSeason.Ratings...), tmdbS.Ratings...)
		newSeasons = append(newSeasons, anidbSeason)
	}
	sort.Slice(newSeasons, func(i, j int) bool { return newSeasons[i].Number < newSeasons[j].Number })
	anime.Seasons = newSeasons

	return anime, nil
}

func parseAnidbID(id string) (domain.AnidbID, error) {
	parsed, err := domain.ParseIdentifier(id)
	if err != nil || parsed.Anidb == nil {
		return 0, errors.Wrapf(ErrNotAnidbID, "%q", id)
	}
	return *parsed.Anidb, nil
}

func parseTmdbShowID(id string) (domain.TmdbID, error) {
	parsed, err := domain.ParseIdentifier(id)
	if err != nil || parsed.Tmdb == nil {
		return 0, errors.Wrapf(ErrNotTmdbID, "%q", id)
	}
	return *parsed.Tmdb, nil
}

func findSeason(seasons []domain.Season, number int) (domain.Season, bool) {
	for _, s := range seasons {
		if s.Number == number {
			return s, true
		}
	}
	return domain.Season{}, false
}

func mergeUniqueIDs(a, b map[string]string) map[string]string {
	out := make(map[string]string, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}

func deepCopyAnime(a domain.Anime) domain.Anime {
	cp := a
	cp.Titles = append([]domain.Title{}, a.Titles...)
	cp.Genres = append([]string{}, a.Genres...)
	cp.Tags = append([]string{}, a.Tags...)
	cp.Images = append([]domain.Image{}, a.Images...)
	cp.Ratings = append([]domain.Rating{}, a.Ratings...)
	cp.Cast = append([]domain.CastRole{}, a.Cast...)
	cp.Directors = append([]string{}, a.Directors...)
	cp.Credits = append([]domain.Credit{}, a.Credits...)
	cp.Seasons = append([]domain.Season{}, a.Seasons...)
	cp.UniqueIDs = make(map[string]string, len(a.UniqueIDs))
	for k, v := range a.UniqueIDs {
		cp.UniqueIDs[k] = v
	}
	if a.Airdate != nil {
		t := *a.Airdate
		cp.Airdate = &t
	}
	return cp
}
