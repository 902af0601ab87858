package anidb

import (
	"encoding/xml"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/ObviusOwl/amc2cached/internal/domain"
	"github.com/ObviusOwl/amc2cached/internal/objectstore"
)

const xmlNamespace = "http://www.w3.org/XML/1998/namespace"

type rawTitle struct {
	Lang  string `xml:"http://www.w3.org/XML/1998/namespace lang,attr"`
	Type  string `xml:"type,attr"`
	Value string `xml:",chardata"`
}

type rawRating struct {
	Votes string `xml:"votes,attr"`
	Count string `xml:"count,attr"`
	Value string `xml:",chardata"`
}

type rawEpno struct {
	Type  string `xml:"type,attr"`
	Value string `xml:",chardata"`
}

type rawEpisode struct {
	Epno    rawEpno    `xml:"epno"`
	Length  string     `xml:"length"`
	Airdate string     `xml:"airdate"`
	Summary string     `xml:"summary"`
	Titles  []rawTitle `xml:"title"`
	Rating  *rawRating `xml:"rating"`
}

type rawSeiyuu struct {
	Picture string `xml:"picture,attr"`
	Value   string `xml:",chardata"`
}

type rawCharacter struct {
	Name    string     `xml:"name"`
	Picture string     `xml:"picture"`
	Seiyuu  *rawSeiyuu `xml:"seiyuu"`
}

type rawCreator struct {
	Type  string `xml:"type,attr"`
	Value string `xml:",chardata"`
}

type rawTag struct {
	ID       string `xml:"id,attr"`
	ParentID string `xml:"parentid,attr"`
	Name     string `xml:"name"`
}

type rawAnime struct {
	XMLName     xml.Name       `xml:"anime"`
	ID          string         `xml:"id,attr"`
	Description string         `xml:"description"`
	Pictures    []string       `xml:"picture"`
	StartDate   string         `xml:"startdate"`
	Titles      struct {
		Title []rawTitle `xml:"title"`
	} `xml:"titles"`
	Episodes struct {
		Episode []rawEpisode `xml:"episode"`
	} `xml:"episodes"`
	Characters struct {
		Character []rawCharacter `xml:"character"`
	} `xml:"characters"`
	Creators struct {
		Name []rawCreator `xml:"name"`
	} `xml:"creators"`
	Ratings struct {
		Permanent *rawRating `xml:"permanent"`
	} `xml:"ratings"`
	Tags struct {
		Tag []rawTag `xml:"tag"`
	} `xml:"tags"`
}

// creatorCategory/creatorDepartment map an anidb creator job to a tmdb-ish
// department/category pair so credits read consistently across catalogs.
var creatorDepartment = map[string]string{
	"Direction":                   "Directing",
	"Chief Animation Direction":   "Directing",
	"Character Design":           "Art",
	"Animation Character Design": "Art",
	"Animation Work":             "Art",
	"Original Work":              "Writing",
	"Series Composition":         "Writing",
	"Music":                      "Sound",
}

var creatorCategory = map[string]string{
	"Direction":                   "directing",
	"Chief Animation Direction":   "directing",
	"Character Design":           "visual effects",
	"Animation Character Design": "visual effects",
	"Animation Work":             "visual effects",
	"Original Work":              "writing",
	"Series Composition":         "writing",
	"Music":                      "sound",
}

// ErrInvalidAnimeXML marks a malformed anime document. It wraps
// objectstore.ErrCorrupt so callers serving this document over HTTP can
// recognize the failure as a parse error rather than a missing object.
var ErrInvalidAnimeXML = errors.Wrap(objectstore.ErrCorrupt, "invalid anidb anime xml")

// ParseAnimeXML parses one anidb anime document into a normalized Anime
// carrying two synthetic seasons: season 0 (specials) and season 1
// (regular episodes). Season 1 inherits the anime-level metadata; season 0
// carries only its ids, a "Specials" title and its episodes.
func ParseAnimeXML(data []byte) (domain.Anime, error) {
	var raw rawAnime
	if err := xml.Unmarshal(data, &raw); err != nil {
		return domain.Anime{}, errors.Wrapf(ErrInvalidAnimeXML, "%v", err)
	}
	return buildAnime(raw)
}

func buildAnime(raw rawAnime) (domain.Anime, error) {
	aid := raw.ID
	titles := make([]domain.Title, 0, len(raw.Titles.Title))
	for _, t := range raw.Titles.Title {
		titles = append(titles, convertTitle(t, aid))
	}

	images := make([]domain.Image, 0, len(raw.Pictures))
	for _, p := range raw.Pictures {
		images = append(images, domain.Image{
			Source: domain.SourceAnidb,
			Type:   domain.ImageTypePoster,
			Name:   strings.Trim(strings.TrimSpace(p), "/"),
		})
	}

	var chars []domain.CastRole
	for _, c := range raw.Characters.Character {
		if role, ok := parseCharacter(c); ok {
			chars = append(chars, role)
		}
	}

	var airdate *time.Time
	if strings.TrimSpace(raw.StartDate) != "" {
		if t, err := time.Parse("2006-01-02", strings.TrimSpace(raw.StartDate)); err == nil {
			airdate = &t
		}
	}

	var directors []string
	var credits []domain.Credit
	for _, c := range raw.Creators.Name {
		name := strings.TrimSpace(c.Value)
		job := strings.TrimSpace(c.Type)
		if name == "" || job == "" {
			continue
		}
		credits = append(credits, domain.Credit{
			Name:       name,
			Job:        job,
			Department: creatorDepartment[job],
			Category:   creatorCategory[job],
		})
		if job == "Direction" {
			directors = append(directors, name)
		}
	}

	var ratings []domain.Rating
	if r, ok := parseRating(raw.Ratings.Permanent, "count"); ok {
		ratings = append(ratings, r)
	}

	tags := parseAnimeTags(raw.Tags.Tag)

	anime := domain.Anime{
		ID:          "A" + aid,
		Titles:      titles,
		Description: strings.TrimSpace(raw.Description),
		Tags:        tags,
		Airdate:     airdate,
		Images:      images,
		UniqueIDs:   map[string]string{"anidb": aid},
		Cast:        chars,
		Directors:   directors,
		Ratings:     ratings,
		Credits:     credits,
	}

	specials := buildSpecialsSeason(anime, raw.Episodes.Episode)
	regular := buildRegularSeason(anime, raw.Episodes.Episode)
	anime.Seasons = []domain.Season{specials, regular}

	return anime, nil
}

func convertTitle(t rawTitle, aid string) domain.Title {
	typ := t.Type
	if typ == "syn" {
		typ = domain.TitleTypeSynonym
	}
	return domain.Title{Value: t.Value, Aid: aid, Lang: t.Lang, Type: typ}
}

func parseCharacter(c rawCharacter) (domain.CastRole, bool) {
	if c.Seiyuu == nil {
		return domain.CastRole{}, false
	}
	role := domain.CastRole{
		Character: strings.TrimSpace(c.Name),
		Actor:     strings.TrimSpace(c.Seiyuu.Value),
	}
	if img := strings.Trim(strings.TrimSpace(c.Picture), "/"); img != "" {
		role.CharacterImage = &domain.Image{Source: domain.SourceAnidb, Type: domain.ImageTypeProfile, Name: img}
	}
	if img := strings.Trim(strings.TrimSpace(c.Seiyuu.Picture), "/"); img != "" {
		role.ActorImage = &domain.Image{Source: domain.SourceAnidb, Type: domain.ImageTypeProfile, Name: img}
	}
	return role, true
}

func parseRating(r *rawRating, votesAttr string) (domain.Rating, bool) {
	if r == nil {
		return domain.Rating{}, false
	}
	avg, err := strconv.ParseFloat(strings.TrimSpace(r.Value), 64)
	if err != nil {
		return domain.Rating{}, false
	}
	votesStr := r.Votes
	if votesAttr == "count" {
		votesStr = r.Count
	}
	votes, _ := strconv.Atoi(strings.TrimSpace(votesStr))
	return domain.Rating{Source: domain.SourceAnidb, Average: avg, Votes: votes}, true
}

// parseEpno returns the raw episode type (1=regular .. 6=other) and the
// parsed episode number: the text as-is for regular episodes, with the
// leading special-character prefix stripped for every other type.
func parseEpno(e rawEpno) (int, int, error) {
	typ, err := strconv.Atoi(strings.TrimSpace(e.Type))
	if err != nil {
		return 0, 0, errors.Wrapf(ErrInvalidAnimeXML, "epno type %q", e.Type)
	}
	text := strings.TrimSpace(e.Value)
	if typ == 1 {
		n, err := strconv.Atoi(text)
		if err != nil {
			return 0, 0, errors.Wrapf(ErrInvalidAnimeXML, "epno %q", e.Value)
		}
		return typ, n, nil
	}
	if len(text) < 2 {
		return 0, 0, errors.Wrapf(ErrInvalidAnimeXML, "epno %q", e.Value)
	}
	n, err := strconv.Atoi(text[1:])
	if err != nil {
		return 0, 0, errors.Wrapf(ErrInvalidAnimeXML, "epno %q", e.Value)
	}
	return typ, n, nil
}

func parseEpisode(e rawEpisode, wantSpecial bool) (domain.Episode, bool) {
	typ, num, err := parseEpno(e.Epno)
	if err != nil {
		return domain.Episode{}, false
	}
	if (!wantSpecial && typ != 1) || (wantSpecial && typ != 2) {
		return domain.Episode{}, false
	}

	length, _ := strconv.Atoi(strings.TrimSpace(e.Length))

	var airdate *time.Time
	if d := strings.TrimSpace(e.Airdate); d != "" {
		if t, err := time.Parse("2006-01-02", d); err == nil {
			airdate = &t
		}
	}

	titles := make([]domain.Title, 0, len(e.Titles))
	for _, t := range e.Titles {
		titles = append(titles, convertTitle(t, ""))
	}

	var ratings []domain.Rating
	if r, ok := parseRating(e.Rating, "votes"); ok {
		ratings = append(ratings, r)
	}

	return domain.Episode{
		Number:        num,
		LengthMinutes: length,
		Airdate:       airdate,
		Titles:        titles,
		Summary:       strings.TrimSpace(e.Summary),
		Ratings:       ratings,
	}, true
}

func buildSpecialsSeason(anime domain.Anime, raw []rawEpisode) domain.Season {
	var eps []domain.Episode
	for _, e := range raw {
		if ep, ok := parseEpisode(e, true); ok {
			eps = append(eps, ep)
		}
	}
	return domain.Season{
		ID:        anime.ID,
		Number:    0,
		UniqueIDs: copyStringMap(anime.UniqueIDs),
		Titles:    []domain.Title{{Value: "Specials", Type: domain.TitleTypeMain, Lang: "en"}},
		Episodes:  eps,
	}
}

func buildRegularSeason(anime domain.Anime, raw []rawEpisode) domain.Season {
	var eps []domain.Episode
	for _, e := range raw {
		if ep, ok := parseEpisode(e, false); ok {
			eps = append(eps, ep)
		}
	}
	return domain.Season{
		ID:          anime.ID,
		Number:      1,
		UniqueIDs:   copyStringMap(anime.UniqueIDs),
		Titles:      append([]domain.Title{}, anime.Titles...),
		Description: anime.Description,
		Genres:      append([]string{}, anime.Genres...),
		Tags:        append([]string{}, anime.Tags...),
		Airdate:     anime.Airdate,
		Episodes:    eps,
		Images:      append([]domain.Image{}, anime.Images...),
		Ratings:     append([]domain.Rating{}, anime.Ratings...),
		Cast:        append([]domain.CastRole{}, anime.Cast...),
		Directors:   append([]string{}, anime.Directors...),
		Credits:     append([]domain.Credit{}, anime.Credits...),
	}
}

func copyStringMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

type tagNode struct {
	id, name, parentID string
}

// parseAnimeTags builds the parent-linked tag tree, keeping only leaf
// tags (ids that never appear as another tag's parentid) whose ancestor
// path does not pass through a tag named "maintenance tags".
func parseAnimeTags(raw []rawTag) []string {
	all := make(map[string]tagNode, len(raw))
	order := make([]string, 0, len(raw))
	parentIDs := make(map[string]bool, len(raw))

	for _, t := range raw {
		name := strings.TrimSpace(t.Name)
		if name == "" {
			continue
		}
		node := tagNode{id: t.ID, name: name, parentID: strings.TrimSpace(t.ParentID)}
		all[t.ID] = node
		order = append(order, t.ID)
		if node.parentID != "" {
			parentIDs[node.parentID] = true
		}
	}

	var names []string
	for _, id := range order {
		if parentIDs[id] {
			continue // not a leaf
		}
		node := all[id]
		if pathHasMaintenance(all, node) {
			continue
		}
		names = append(names, node.name)
	}
	return names
}

func pathHasMaintenance(all map[string]tagNode, node tagNode) bool {
	seen := map[string]bool{}
	cur := node
	for {
		if strings.ToLower(cur.name) == "maintenance tags" {
			return true
		}
		if seen[cur.id] || cur.parentID == "" {
			return false
		}
		seen[cur.id] = true
		parent, ok := all[cur.parentID]
		if !ok {
			return false
		}
		cur = parent
	}
}
