package tmdb

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/ObviusOwl/amc2cached/internal/domain"
	"github.com/ObviusOwl/amc2cached/internal/httpx"
	"github.com/ObviusOwl/amc2cached/internal/titlerepo"
)

var genericSeasonName = regexp.MustCompile(`(?i)^season\s+([0-9]+)`)

// TitleRepo searches the tmdb API by free-text title and synthesizes one
// TitleEntry per season of every matching show. Unlike titlerepo.SqliteRepo
// it never stores anything; it is a read-only, live upstream consulted only
// when the persisted mapping repository has nothing for a given anidb id.
// Pacing uses golang.org/x/time/rate rather than this system's own
// ratelimit.Throttler: this client sits outside the object-store
// abstraction the Throttler is built for, and its one-in-flight-request
// shape maps directly onto a rate.Limiter.
type TitleRepo struct {
	apiURL  string
	client  *http.Client
	limiter *rate.Limiter
	log     zerolog.Logger
}

var _ titlerepo.Repo = (*TitleRepo)(nil)

// NewTitleRepo builds a TitleRepo against apiURL (which must already carry
// any required api_key query parameter).
func NewTitleRepo(apiURL string, log zerolog.Logger) *TitleRepo {
	return &TitleRepo{
		apiURL:  apiURL,
		client:  http.DefaultClient,
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
		log:     log.With().Str("module", "tmdb.titles").Logger(),
	}
}

func (r *TitleRepo) get(rawURL string) ([]byte, bool) {
	if err := r.limiter.Wait(context.Background()); err != nil {
		return nil, false
	}
	resp, err := r.client.Get(rawURL)
	if err != nil {
		r.log.Warn().Err(err).Str("url", rawURL).Msg("tmdb request failed")
		return nil, false
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, false
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false
	}
	return body, true
}

func (r *TitleRepo) search(value string) []int {
	u, err := httpx.Parse(r.apiURL)
	if err != nil {
		return nil
	}
	u = u.JoinPath("search/tv").WithQuery(map[string]string{"query": value})
	body, ok := r.get(u.String())
	if !ok {
		return nil
	}
	var parsed struct {
		Results []struct {
			ID int `json:"id"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil
	}
	ids := make([]int, 0, len(parsed.Results))
	for _, res := range parsed.Results {
		ids = append(ids, res.ID)
	}
	return ids
}

type tmdbShowStub struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Seasons []struct {
		Name         string `json:"name"`
		SeasonNumber int    `json:"season_number"`
	} `json:"seasons"`
}

func (r *TitleRepo) getShow(tid int) (*tmdbShowStub, bool) {
	u, err := httpx.Parse(r.apiURL)
	if err != nil {
		return nil, false
	}
	u = u.JoinPath("tv", strconv.Itoa(tid))
	body, ok := r.get(u.String())
	if !ok {
		return nil, false
	}
	var show tmdbShowStub
	if err := json.Unmarshal(body, &show); err != nil {
		return nil, false
	}
	return &show, true
}

func isGenericName(name string, num int) bool {
	m := genericSeasonName.FindStringSubmatch(strings.TrimSpace(name))
	if m == nil {
		return false
	}
	if num < 0 {
		return true
	}
	parsed, err := strconv.Atoi(m[1])
	return err == nil && parsed == num
}

func isSpecialsName(name string) bool {
	return strings.ToLower(strings.TrimSpace(name)) == "specials"
}

func handleShow(show *tmdbShowStub) []domain.TitleEntry {
	var entries []domain.TitleEntry
	now := time.Now()
	for _, s := range show.Seasons {
		if isSpecialsName(s.Name) {
			continue
		}
		var value string
		switch {
		case isGenericName(s.Name, 1):
			value = show.Name
		case isGenericName(s.Name, -1):
			value = show.Name + " " + s.Name
		default:
			value = s.Name
		}
		aid := "T" + strconv.Itoa(show.ID) + "S" + strconv.Itoa(s.SeasonNumber)
		entries = append(entries, domain.TitleEntry{
			Title: domain.Title{Value: value, Aid: aid},
			Age:   now,
		})
	}
	return entries
}

// Find searches tmdb for title.Value (every other field is ignored) and
// returns one TitleEntry per non-specials season of every matching show.
func (r *TitleRepo) Find(title domain.Title) ([]domain.TitleEntry, error) {
	if title.Value == "" {
		return nil, errors.New("tmdb title search requires a value")
	}
	var entries []domain.TitleEntry
	for _, tid := range r.search(title.Value) {
		show, ok := r.getShow(tid)
		if !ok {
			continue
		}
		entries = append(entries, handleShow(show)...)
	}
	return entries, nil
}

func (r *TitleRepo) Store(domain.TitleEntry) error {
	return errors.New("tmdb title search is read-only")
}

func (r *TitleRepo) Purge() error {
	return errors.New("tmdb title search is read-only")
}

func (r *TitleRepo) Remove(domain.Title) error {
	return errors.New("tmdb title search is read-only")
}
