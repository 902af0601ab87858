// Package domain holds the value types shared across the catalogs,
// repositories and the API layer. Every type here is a plain value:
// mutation is by replacement, never in place.
package domain

import "time"

// Title is one known name for an anime/season, scoped to a catalog entry.
type Title struct {
	Value string `json:"value"`
	Aid   string `json:"aid"`
	Lang  string `json:"lang"`
	Type  string `json:"type"`
}

// Title.Type values. Empty string means "unspecified" wherever Title is
// used as a query filter.
const (
	TitleTypeMain     = "main"
	TitleTypeOfficial = "official"
	TitleTypeSynonym  = "synonym"
	TitleTypeShort    = "short"
	TitleTypeExtra    = "extra"
)

// TitleEntry is a Title row as stored in a title repository, carrying the
// age at which it was last refreshed from upstream.
type TitleEntry struct {
	Title
	Age time.Time `json:"age"`
}

// Image.Type values.
const (
	ImageTypePoster   = "poster"
	ImageTypeBackdrop = "backdrop"
	ImageTypeBanner   = "banner"
	ImageTypeThumb    = "thumb"
	ImageTypeProfile  = "profile"
	ImageTypeUnknown  = "unknown"
)

// Image source catalogs.
const (
	SourceAnidb = "anidb"
	SourceTmdb  = "tmdb"
)

// Image names an object in the persisted image store.
type Image struct {
	Source string `json:"source"`
	Name   string `json:"name"`
	Type   string `json:"type"`
}

// Rating is a single source's aggregate score for an anime, season or
// episode.
type Rating struct {
	Source  string  `json:"source"`
	Average float64 `json:"average"`
	Votes   int     `json:"votes"`
}

// CastRole is one acting credit. CharacterImage/ActorImage are catalog-tagged
// Images, not bare file names, so a client can resolve either through the
// right catalog's image route ("/anidb/images/{name}" vs "/tmdb/images/{name}").
type CastRole struct {
	Character      string `json:"character"`
	Actor          string `json:"actor"`
	CharacterImage *Image `json:"characterImage,omitempty"`
	ActorImage     *Image `json:"actorImage,omitempty"`
}

// Credit is one non-acting production credit.
type Credit struct {
	Name       string `json:"name"`
	Job        string `json:"job"`
	Department string `json:"department"`
	Category   string `json:"category"`
}

// Episode is one entry of a Season's episode list.
type Episode struct {
	Number        int        `json:"number"`
	LengthMinutes int        `json:"lengthMinutes,omitempty"`
	Airdate       *time.Time `json:"airdate,omitempty"`
	Titles        []Title    `json:"titles,omitempty"`
	Summary       string     `json:"summary,omitempty"`
	Images        []Image    `json:"images,omitempty"`
	Ratings       []Rating   `json:"ratings,omitempty"`
}

// Season is a single season's worth of metadata, from either catalog.
// Anime shares this exact shape with Seasons in place of Episodes.
type Season struct {
	ID          string            `json:"id"`
	Number      int               `json:"number"`
	UniqueIDs   map[string]string `json:"uniqueids"`
	Titles      []Title           `json:"titles,omitempty"`
	Description string            `json:"description,omitempty"`
	Genres      []string          `json:"genres,omitempty"`
	Tags        []string          `json:"tags,omitempty"`
	Airdate     *time.Time        `json:"airdate,omitempty"`
	Episodes    []Episode         `json:"episodes,omitempty"`
	Images      []Image           `json:"images,omitempty"`
	Ratings     []Rating          `json:"ratings,omitempty"`
	Cast        []CastRole        `json:"cast,omitempty"`
	Directors   []string          `json:"directors,omitempty"`
	Credits     []Credit          `json:"credits,omitempty"`
}

// Anime is a full show record, carrying every season known for it.
// UniqueIDs always carries at least the source catalog's own identifier
// (e.g. "anidb" -> "12345").
type Anime struct {
	ID          string            `json:"id"`
	Number      int               `json:"number"`
	UniqueIDs   map[string]string `json:"uniqueids"`
	Titles      []Title           `json:"titles,omitempty"`
	Description string            `json:"description,omitempty"`
	Genres      []string          `json:"genres,omitempty"`
	Tags        []string          `json:"tags,omitempty"`
	Airdate     *time.Time        `json:"airdate,omitempty"`
	Seasons     []Season          `json:"seasons,omitempty"`
	Images      []Image           `json:"images,omitempty"`
	Ratings     []Rating          `json:"ratings,omitempty"`
	Cast        []CastRole        `json:"cast,omitempty"`
	Directors   []string          `json:"directors,omitempty"`
	Credits     []Credit          `json:"credits,omitempty"`
}

// AnimeMapping is a confirmed cross-catalog pair, as stored in a mapping
// repository. Anidb/Tmdb are the canonical identifier strings, not bare
// integers, so a mapping can be printed/parsed directly.
type AnimeMapping struct {
	Anidb string `json:"anidb" yaml:"anidb"`
	Tmdb  string `json:"tmdb" yaml:"tmdb"`
}
