// Package animelist adapts the community anime-lists/anime-list.xml
// crosswalk (anidb<->tvdb<->tmdb) into a one-shot seed for the mapping
// repository: every <anime> element that carries both an anidbid and a
// tmdbid attribute becomes a confirmed (anidb, tmdb) pair, inserted
// without overwriting anything a human or the title matcher already
// confirmed.
package animelist

import (
	"context"
	"encoding/xml"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/ObviusOwl/amc2cached/internal/domain"
	"github.com/ObviusOwl/amc2cached/internal/mapping"
)

// SourceURL is the community-maintained crosswalk this importer consumes.
const SourceURL = "https://raw.githubusercontent.com/Anime-Lists/anime-lists/master/anime-list.xml"

type rawList struct {
	XMLName xml.Name   `xml:"anime-list"`
	Anime   []rawAnime `xml:"anime"`
}

type rawAnime struct {
	Anidbid string `xml:"anidbid,attr"`
	Tmdbid  string `xml:"tmdbid,attr"`
}

// Importer fetches SourceURL at most once per call, paced by a
// golang.org/x/time/rate limiter rather than this system's own
// ratelimit.Throttler: like tmdb.TitleRepo, this is a one-shot ancillary
// client outside the object-store abstraction the Throttler governs.
type Importer struct {
	client  *http.Client
	limiter *rate.Limiter
	log     zerolog.Logger
}

// NewImporter builds an Importer.
func NewImporter(log zerolog.Logger) *Importer {
	return &Importer{
		client:  http.DefaultClient,
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
		log:     log.With().Str("module", "animelist").Logger(),
	}
}

func (im *Importer) fetch(ctx context.Context) ([]byte, error) {
	if err := im.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, SourceURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := im.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "fetch anime-list.xml")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("anime-list.xml: unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// Report summarizes one import run.
type Report struct {
	Parsed  int `yaml:"parsed"`
	Mapped  int `yaml:"mapped"`
	Skipped int `yaml:"skipped"`
}

// ImportKnownMappings fetches and parses anime-list.xml and stores every
// (anidbid, tmdbid) pair it carries into repo with replace=false, so a
// pair the mapping repository already confirms is never overwritten.
// Entries missing either id, or carrying a non-numeric id, are skipped.
func ImportKnownMappings(ctx context.Context, im *Importer, repo mapping.Repo) (Report, error) {
	body, err := im.fetch(ctx)
	if err != nil {
		return Report{}, err
	}

	var list rawList
	if err := xml.Unmarshal(body, &list); err != nil {
		return Report{}, errors.Wrap(err, "parse anime-list.xml")
	}

	var report Report
	var pairs []domain.AnimeMapping
	for _, a := range list.Anime {
		report.Parsed++
		aid, tid, ok := parseIds(a)
		if !ok {
			report.Skipped++
			continue
		}
		pairs = append(pairs, domain.AnimeMapping{
			Anidb: domain.AnidbID(aid).String(),
			Tmdb:  domain.TmdbSeasonID{Show: domain.TmdbID(tid), Season: 1}.String(),
		})
		report.Mapped++
	}

	if len(pairs) == 0 {
		return report, nil
	}
	if err := repo.Store(pairs, false); err != nil {
		return report, errors.Wrap(err, "store imported mappings")
	}
	return report, nil
}

func parseIds(a rawAnime) (anidb, tmdb int, ok bool) {
	if a.Anidbid == "" || a.Tmdbid == "" {
		return 0, 0, false
	}
	anidb, err := strconv.Atoi(a.Anidbid)
	if err != nil || anidb <= 0 {
		return 0, 0, false
	}
	tmdb, err = strconv.Atoi(a.Tmdbid)
	if err != nil || tmdb <= 0 {
		return 0, 0, false
	}
	return anidb, tmdb, true
}
