package config

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Settings holds every environment-resolved setting this service needs,
// parsed once at start-up. Field names mirror the AMC2_* environment
// variables with the prefix stripped.
type Settings struct {
	AnidbTitlesURL       string
	AnidbTitlesCacheURL  string
	AnidbTitlesCacheTime time.Duration

	AnidbAPIURL       string
	AnidbAPICacheURL  string
	AnidbAPICacheTime time.Duration

	AnidbImageURL       string
	AnidbImageCacheURL  string
	AnidbImageCacheTime time.Duration

	TmdbAPIKey       string
	TmdbAPICacheURL  string
	TmdbAPICacheTime time.Duration

	TmdbImageCacheURL  string
	TmdbImageCacheTime time.Duration

	AnimeMappingURL string

	S3AccessKey string
	S3SecretKey string

	DataDir string
	Addr    string

	// DiscordWebhookURL is ambient, not part of the original config
	// surface: an empty value disables notification delivery outright.
	DiscordWebhookURL string
}

// durationKeys lists every setting that is parsed with the duration
// grammar instead of being taken verbatim.
var durationKeys = []string{
	"anidb_titles_cache_time",
	"anidb_api_cache_time",
	"anidb_image_cache_time",
	"tmdb_api_cache_time",
	"tmdb_image_cache_time",
}

// NewViper builds the viper instance both cmd/amc2cached and cmd/amc2ctl
// load Settings from: environment variables prefixed AMC2_ (e.g.
// AMC2_ANIDB_TITLES_URL sets anidb_titles_url), plus an optional config
// file when cfgFile is non-empty.
func NewViper(cfgFile string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("AMC2")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config file %q", cfgFile)
		}
	}
	return v, nil
}

// Load resolves Settings from viper, which by this point has already had
// its environment prefix and config file wired up by the CLI layer (see
// cmd/amc2cached). Required string settings with no sane default return an
// error; everything duration-valued is parsed with ParseDuration.
func Load(v *viper.Viper) (Settings, error) {
	durations := make(map[string]time.Duration, len(durationKeys))
	for _, key := range durationKeys {
		raw := v.GetString(key)
		if raw == "" {
			continue
		}
		d, err := ParseDuration(raw)
		if err != nil {
			return Settings{}, errors.Wrapf(err, "setting %s", key)
		}
		durations[key] = d
	}

	s := Settings{
		AnidbTitlesURL:       v.GetString("anidb_titles_url"),
		AnidbTitlesCacheURL:  v.GetString("anidb_titles_cache_url"),
		AnidbTitlesCacheTime: durations["anidb_titles_cache_time"],

		AnidbAPIURL:       v.GetString("anidb_api_url"),
		AnidbAPICacheURL:  v.GetString("anidb_api_cache_url"),
		AnidbAPICacheTime: durations["anidb_api_cache_time"],

		AnidbImageURL:       v.GetString("anidb_image_url"),
		AnidbImageCacheURL:  v.GetString("anidb_image_cache_url"),
		AnidbImageCacheTime: durations["anidb_image_cache_time"],

		TmdbAPIKey:       v.GetString("tmdb_api_key"),
		TmdbAPICacheURL:  v.GetString("tmdb_api_cache_url"),
		TmdbAPICacheTime: durations["tmdb_api_cache_time"],

		TmdbImageCacheURL:  v.GetString("tmdb_image_cache_url"),
		TmdbImageCacheTime: durations["tmdb_image_cache_time"],

		AnimeMappingURL: v.GetString("anime_mapping_url"),

		S3AccessKey: v.GetString("s3_access_key"),
		S3SecretKey: v.GetString("s3_secret_key"),

		DataDir: v.GetString("data_dir"),
		Addr:    v.GetString("addr"),

		DiscordWebhookURL: v.GetString("discord_webhook_url"),
	}

	if s.AnidbTitlesURL == "" {
		return Settings{}, errors.New("ANIDB_TITLES_URL is required")
	}
	if s.AnidbAPIURL == "" {
		return Settings{}, errors.New("ANIDB_API_URL is required")
	}
	if s.TmdbAPIKey == "" {
		return Settings{}, errors.New("TMDB_API_KEY is required")
	}

	return s, nil
}
