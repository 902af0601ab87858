package notification

import (
	"context"

	"github.com/rs/zerolog"
)

// Service is the alerting surface internal/objectstore and internal/anidb
// are wired to through callbacks at internal/app construction time, kept
// dependency-leaf-ward: the store/anidb packages never import this one.
type Service interface {
	// OnBackoff fires the moment an upstream's error throttler goes
	// cold->hot: store names the affected store ("anidb.anime",
	// "tmdb.shows", ...).
	OnBackoff(store string, cause error)
	// OnBan fires when the anidb anime API reports this client as banned.
	OnBan()
}

// service is a composite Service that fans out to every configured
// channel; today that is Discord only, but additional channels plug in
// the same way without changing the Service interface.
type service struct {
	log     zerolog.Logger
	discord *DiscordService
}

// NewService creates a Service. An empty webhookURL disables Discord
// delivery without disabling the Service itself.
func NewService(log zerolog.Logger, webhookURL string) Service {
	var discord *DiscordService
	if webhookURL != "" {
		discord = NewDiscordService(log, webhookURL)
	}
	return &service{log: log.With().Str("module", "notification").Logger(), discord: discord}
}

func (s *service) OnBackoff(store string, cause error) {
	if s.discord == nil {
		return
	}
	if err := s.discord.SendBackoff(context.Background(), store, cause); err != nil {
		s.log.Warn().Err(err).Str("store", store).Msg("failed to deliver backoff notification")
	}
}

func (s *service) OnBan() {
	if s.discord == nil {
		return
	}
	if err := s.discord.SendBan(context.Background()); err != nil {
		s.log.Warn().Err(err).Msg("failed to deliver ban notification")
	}
}
