package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/jacklau/webshot/internal/outcome"
)

func TestBuildDiscordPayload_Structure(t *testing.T) {
	payload := BuildDiscordPayload(testSummary())

	if len(payload.Embeds) != 1 {
		t.Fatalf("expected 1 embed, got %d", len(payload.Embeds))
	}
	embed := payload.Embeds[0]

	if embed.Title != "Visual changes in owner/repo #42" {
		t.Errorf("unexpected title: %q", embed.Title)
	}
	if embed.URL != "https://github.com/owner/repo/pull/42" {
		t.Errorf("unexpected URL: %q", embed.URL)
	}
	if embed.Color != colorAttention {
		t.Errorf("expected attention color, got %d", embed.Color)
	}
	if len(embed.Fields) != 3 {
		t.Fatalf("expected 3 fields, got %d", len(embed.Fields))
	}
	if embed.Fields[0].Name != "Screenshots" || embed.Fields[0].Value != "1 failed, 2 new" {
		t.Errorf("unexpected screenshots field: %+v", embed.Fields[0])
	}
	if embed.Fields[2].Value != "feature" {
		t.Errorf("unexpected branch field: %+v", embed.Fields[2])
	}
	if embed.Footer == nil || embed.Footer.Text != "webshot - push - 3s" {
		t.Errorf("unexpected footer: %+v", embed.Footer)
	}
}

func TestBuildDiscordPayload_Colors(t *testing.T) {
	tests := []struct {
		name   string
		counts map[outcome.Status]int
		want   int
	}{
		{name: "error", counts: map[outcome.Status]int{outcome.StatusError: 1}, want: colorAttention},
		{name: "diff", counts: map[outcome.Status]int{outcome.StatusDiff: 1, outcome.StatusNew: 3}, want: colorChanged},
		{name: "clean", counts: map[outcome.Status]int{outcome.StatusNew: 3}, want: colorClean},
		{name: "empty", counts: nil, want: colorClean},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testSummary()
			s.Counts = tt.counts
			s.Branch = ""
			p := BuildDiscordPayload(s)
			if p.Embeds[0].Color != tt.want {
				t.Errorf("color = %d, want %d", p.Embeds[0].Color, tt.want)
			}
			if len(p.Embeds[0].Fields) != 2 {
				t.Errorf("expected branch field omitted, got %d fields", len(p.Embeds[0].Fields))
			}
		})
	}
}

func TestDiscordNotifier_Notify_Success(t *testing.T) {
	var got discordPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("expected Content-Type application/json, got %q", r.Header.Get("Content-Type"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	notifier := NewDiscordNotifier(server.URL)
	if err := notifier.Notify(context.Background(), testSummary()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Embeds) != 1 || got.Embeds[0].Title == "" {
		t.Errorf("unexpected payload: %+v", got)
	}
}

func TestDiscordNotifier_Notify_NoRetryOnError(t *testing.T) {
	var callCount atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		callCount.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	notifier := NewDiscordNotifier(server.URL)
	if err := notifier.Notify(context.Background(), testSummary()); err == nil {
		t.Fatal("expected error on 429")
	}
	if got := callCount.Load(); got != 1 {
		t.Errorf("expected 1 call, got %d", got)
	}
}
