package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// DiscordService posts alert embeds to a Discord webhook.
type DiscordService struct {
	log        zerolog.Logger
	webhookURL string
	httpClient *http.Client
}

// NewDiscordService creates a new Discord notification service.
func NewDiscordService(log zerolog.Logger, webhookURL string) *DiscordService {
	return &DiscordService{
		log:        log.With().Str("module", "notification").Str("type", "discord").Logger(),
		webhookURL: webhookURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SendBackoff alerts that store's error throttler just went cold->hot:
// the archival-fallback path is now the only thing serving this catalog.
func (s *DiscordService) SendBackoff(ctx context.Context, store string, cause error) error {
	if s.webhookURL == "" {
		return nil
	}
	embed := discordEmbed{
		Title:       fmt.Sprintf("%s upstream is now backing off", store),
		Description: fmt.Sprintf("Error throttler tripped, falling back to archival storage:\n```%s```", cause.Error()),
		Color:       0xff9900,
		Timestamp:   time.Now().Format(time.RFC3339),
	}
	return s.sendWebhook(ctx, discordWebhook{Embeds: []discordEmbed{embed}})
}

// SendBan alerts that the anidb anime API reported the client as banned.
func (s *DiscordService) SendBan(ctx context.Context) error {
	if s.webhookURL == "" {
		return nil
	}
	embed := discordEmbed{
		Title:       "AniDB API ban",
		Description: "The anidb anime API reports this client as banned. Serving from archival storage only until the ban lifts.",
		Color:       0xff0000,
		Timestamp:   time.Now().Format(time.RFC3339),
	}
	return s.sendWebhook(ctx, discordWebhook{Embeds: []discordEmbed{embed}})
}

func (s *DiscordService) sendWebhook(ctx context.Context, payload discordWebhook) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "failed to marshal webhook payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return errors.Wrap(err, "failed to create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to send webhook request")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook request failed with status %d", resp.StatusCode)
	}

	s.log.Debug().Msg("discord notification sent")
	return nil
}

type discordWebhook struct {
	Embeds []discordEmbed `json:"embeds"`
}

type discordEmbed struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Color       int    `json:"color"`
	Timestamp   string `json:"timestamp,omitempty"`
}
