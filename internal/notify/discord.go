package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jacklau/webshot/internal/outcome"
)

const (
	colorAttention = 15158332 // red
	colorChanged   = 15105570 // orange
	colorClean     = 3066993  // green
)

// DiscordNotifier sends run summaries to a Discord webhook.
type DiscordNotifier struct {
	webhookURL string
	client     *http.Client
}

// NewDiscordNotifier creates a DiscordNotifier with the given webhook URL.
func NewDiscordNotifier(webhookURL string) *DiscordNotifier {
	return &DiscordNotifier{
		webhookURL: webhookURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// discordEmbed represents a Discord embed object.
type discordEmbed struct {
	Title  string         `json:"title"`
	URL    string         `json:"url"`
	Color  int            `json:"color"`
	Fields []discordField `json:"fields"`
	Footer *discordFooter `json:"footer,omitempty"`
}

// discordField represents a field in a Discord embed.
type discordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// discordFooter represents the footer of a Discord embed.
type discordFooter struct {
	Text string `json:"text"`
}

// discordPayload is the top-level Discord webhook payload.
type discordPayload struct {
	Embeds []discordEmbed `json:"embeds"`
}

// BuildDiscordPayload creates the Discord embed message payload for a run summary.
func BuildDiscordPayload(s Summary) discordPayload {
	fields := []discordField{
		{
			Name:   "Screenshots",
			Value:  FormatCounts(s.Counts),
			Inline: true,
		},
		{
			Name:   "Commits",
			Value:  FormatCommits(s.CommitSHA, s.CompareCommitSHA),
			Inline: true,
		},
	}

	if s.Branch != "" {
		fields = append(fields, discordField{
			Name:   "Branch",
			Value:  s.Branch,
			Inline: true,
		})
	}

	embed := discordEmbed{
		Title:  Headline(s),
		URL:    s.Link(),
		Color:  embedColor(s),
		Fields: fields,
		Footer: &discordFooter{
			Text: fmt.Sprintf("webshot - %s - %s", s.EventKind, FormatDuration(s.Duration)),
		},
	}

	return discordPayload{
		Embeds: []discordEmbed{embed},
	}
}

func embedColor(s Summary) int {
	switch {
	case s.Counts[outcome.StatusFailed] > 0 || s.Counts[outcome.StatusError] > 0:
		return colorAttention
	case s.NeedsAttention():
		return colorChanged
	default:
		return colorClean
	}
}

// Notify sends a Discord notification for the given summary.
func (d *DiscordNotifier) Notify(ctx context.Context, summary Summary) error {
	payload := BuildDiscordPayload(summary)

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling discord payload: %w", err)
	}

	return d.post(ctx, body)
}

func (d *DiscordNotifier) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("discord webhook returned %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}
