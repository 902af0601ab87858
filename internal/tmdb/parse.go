// Package tmdb implements the tmdb show fetcher/parser and title search
// client: the catalog indexed by a numeric show id with per-season and
// per-episode JSON sub-endpoints.
package tmdb

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/ObviusOwl/amc2cached/internal/domain"
	"github.com/ObviusOwl/amc2cached/internal/objectstore"
)

func str(obj map[string]any, key, def string) string {
	v, ok := obj[key]
	if !ok || v == nil {
		return def
	}
	switch t := v.(type) {
	case string:
		return t
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}

func intVal(obj map[string]any, key string, def int) int {
	v, ok := obj[key]
	if !ok || v == nil {
		return def
	}
	switch t := v.(type) {
	case float64:
		return int(t)
	case string:
		n, err := strconv.Atoi(t)
		if err != nil {
			return def
		}
		return n
	default:
		return def
	}
}

func dateVal(obj map[string]any, key string) *time.Time {
	s, _ := obj[key].(string)
	if s == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil
	}
	return &t
}

func list(obj map[string]any, key string) []map[string]any {
	raw, _ := obj[key].([]any)
	out := make([]map[string]any, 0, len(raw))
	for _, r := range raw {
		if m, ok := r.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func parseImage(obj map[string]any, imgType string) domain.Image {
	name := strings.Trim(str(obj, "file_path", ""), "/")
	return domain.Image{Source: domain.SourceTmdb, Type: imgType, Name: name}
}

func parseImages(images map[string]any) []domain.Image {
	var out []domain.Image
	for _, o := range list(images, "posters") {
		out = append(out, parseImage(o, domain.ImageTypePoster))
	}
	for _, o := range list(images, "backdrops") {
		out = append(out, parseImage(o, domain.ImageTypeBackdrop))
	}
	for _, o := range list(images, "stills") {
		out = append(out, parseImage(o, domain.ImageTypeThumb))
	}
	return out
}

func parseVote(obj map[string]any) (domain.Rating, bool) {
	avg, ok1 := obj["vote_average"].(float64)
	count, ok2 := obj["vote_count"].(float64)
	if !ok1 || !ok2 {
		return domain.Rating{}, false
	}
	return domain.Rating{Source: domain.SourceTmdb, Average: avg, Votes: int(count)}, true
}

func parseCast(raw []map[string]any) []domain.CastRole {
	var roles []domain.CastRole
	for _, obj := range raw {
		var character string
		if roleList := list(obj, "roles"); len(roleList) > 0 {
			character = str(roleList[0], "character", "")
		}
		actor := str(obj, "name", "")
		image := strings.Trim(str(obj, "profile_path", ""), "/")
		if character == "" || actor == "" {
			continue
		}
		role := domain.CastRole{Character: character, Actor: actor}
		if image != "" {
			role.ActorImage = &domain.Image{Source: domain.SourceTmdb, Type: domain.ImageTypeProfile, Name: image}
		}
		roles = append(roles, role)
	}
	return roles
}

func parseCredits(raw []map[string]any) []domain.Credit {
	var out []domain.Credit
	for _, obj := range raw {
		name := str(obj, "name", "")
		dep := str(obj, "department", "")
		cat := strings.ToLower(str(obj, "known_for_department", ""))
		if name == "" || dep == "" {
			continue
		}
		for _, j := range list(obj, "jobs") {
			job := str(j, "job", "")
			if job == "" {
				continue
			}
			out = append(out, domain.Credit{Name: name, Job: job, Department: dep, Category: cat})
		}
	}
	return out
}

func parseEpisode(ep map[string]any, lang string) domain.Episode {
	images, _ := ep["images"].(map[string]any)
	var ratings []domain.Rating
	if r, ok := parseVote(ep); ok {
		ratings = []domain.Rating{r}
	}
	return domain.Episode{
		Number:        intVal(ep, "episode_number", 0),
		LengthMinutes: intVal(ep, "runtime", 0),
		Airdate:       dateVal(ep, "air_date"),
		Titles:        []domain.Title{{Lang: lang, Type: domain.TitleTypeMain, Value: str(ep, "name", "")}},
		Summary:       str(ep, "overview", ""),
		Images:        parseImages(images),
		Ratings:       ratings,
	}
}

func parseSeason(season map[string]any, parentID string, lang string) domain.Season {
	seasonNum := intVal(season, "season_number", 0)
	seasonID := parentID + "S" + strconv.Itoa(seasonNum)

	title := domain.Title{Lang: lang, Type: domain.TitleTypeMain, Value: str(season, "name", ""), Aid: seasonID}

	var episodes []domain.Episode
	for _, e := range list(season, "episodes") {
		episodes = append(episodes, parseEpisode(e, lang))
	}

	images, _ := season["images"].(map[string]any)

	var cast []domain.CastRole
	var credits []domain.Credit
	if creditsObj, ok := season["credits"].(map[string]any); ok {
		cast = parseCast(list(creditsObj, "cast"))
		credits = parseCredits(list(creditsObj, "crew"))
	}

	showNum := strings.TrimPrefix(parentID, "T")

	return domain.Season{
		ID:          seasonID,
		Number:      seasonNum,
		UniqueIDs:   map[string]string{"tmdb": showNum, "tmdb_season": strconv.Itoa(seasonNum)},
		Titles:      []domain.Title{title},
		Description: str(season, "overview", ""),
		Airdate:     dateVal(season, "air_date"),
		Episodes:    episodes,
		Images:      parseImages(images),
		Cast:        cast,
		Credits:     credits,
	}
}

// ParseAnimeJSON parses the composed tmdb show document (see ShowStore)
// into an Anime. Season 1's cast/credits/airdate are copied up to the show
// level as a heuristic when the show itself omits them, and the show's own
// backdrops are attached to every season since tmdb only keeps backdrops at
// show level.
func ParseAnimeJSON(data []byte, lang string) (domain.Anime, error) {
	var root map[string]any
	if err := json.Unmarshal(data, &root); err != nil {
		return domain.Anime{}, errors.Wrapf(objectstore.ErrCorrupt, "decode composed tmdb show document: %v", err)
	}

	showID := intVal(root, "id", 0)
	showIDStr := "T" + strconv.Itoa(showID)

	title := domain.Title{Lang: lang, Type: domain.TitleTypeMain, Value: str(root, "name", "")}

	images, _ := root["images"].(map[string]any)
	showImages := parseImages(images)

	var genres []string
	for _, g := range list(root, "genres") {
		if name := str(g, "name", ""); name != "" {
			genres = append(genres, name)
		}
	}

	var backdrops []domain.Image
	for _, img := range showImages {
		if img.Type == domain.ImageTypeBackdrop {
			backdrops = append(backdrops, img)
		}
	}

	var cast []domain.CastRole
	var credits []domain.Credit
	var airdate *time.Time

	var seasons []domain.Season
	for _, seasonObj := range list(root, "seasons") {
		seasonNumRaw, ok := seasonObj["season_number"]
		if !ok || seasonNumRaw == nil {
			continue
		}
		season := parseSeason(seasonObj, showIDStr, lang)
		season.Genres = genres
		season.Images = append(season.Images, backdrops...)

		if season.Number == 1 {
			cast = append([]domain.CastRole{}, season.Cast...)
			credits = append([]domain.Credit{}, season.Credits...)
			airdate = season.Airdate
		}
		seasons = append(seasons, season)
	}

	return domain.Anime{
		ID:          showIDStr,
		UniqueIDs:   map[string]string{"tmdb": strconv.Itoa(showID)},
		Titles:      []domain.Title{title},
		Description: str(root, "overview", ""),
		Genres:      genres,
		Airdate:     airdate,
		Seasons:     seasons,
		Images:      showImages,
		Cast:        cast,
		Credits:     credits,
	}, nil
}
