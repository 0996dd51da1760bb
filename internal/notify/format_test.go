package notify

import (
	"testing"
	"time"

	"github.com/jacklau/webshot/internal/outcome"
)

func TestFormatCounts(t *testing.T) {
	tests := []struct {
		name   string
		counts map[outcome.Status]int
		want   string
	}{
		{name: "empty", counts: nil, want: "No screenshots"},
		{name: "zeroes only", counts: map[outcome.Status]int{outcome.StatusNew: 0}, want: "No screenshots"},
		{
			name:   "report order",
			counts: map[outcome.Status]int{outcome.StatusNew: 5, outcome.StatusFailed: 1, outcome.StatusDiff: 2},
			want:   "1 failed, 2 diff, 5 new",
		},
		{
			name:   "unchanged last",
			counts: map[outcome.Status]int{outcome.StatusUnchanged: 3, outcome.StatusError: 1},
			want:   "1 error, 3 unchanged",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatCounts(tt.counts); got != tt.want {
				t.Errorf("FormatCounts() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatCommits(t *testing.T) {
	if got := FormatCommits("7f6e1ce5751a", "22325935ad00"); got != "`7f6e1ce` vs `2232593`" {
		t.Errorf("FormatCommits() = %q", got)
	}
	if got := FormatCommits("abc", ""); got != "`abc`" {
		t.Errorf("FormatCommits() = %q", got)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0s"},
		{-time.Second, "0s"},
		{1500 * time.Microsecond, "2ms"},
		{2400 * time.Millisecond, "2s"},
		{90 * time.Second, "1m30s"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.in); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestHeadlineAndLink(t *testing.T) {
	pr := Summary{
		Repository: "acme/site",
		PRNumber:   12,
		CommitSHA:  "abc",
		Counts:     map[outcome.Status]int{outcome.StatusDiff: 1},
	}
	if got := Headline(pr); got != "Visual changes in acme/site #12" {
		t.Errorf("Headline() = %q", got)
	}
	if got := pr.Link(); got != "https://github.com/acme/site/pull/12" {
		t.Errorf("Link() = %q", got)
	}

	pr.CommentURL = "https://github.com/acme/site/pull/12#issuecomment-1"
	if got := pr.Link(); got != pr.CommentURL {
		t.Errorf("Link() = %q, want comment URL", got)
	}

	push := Summary{
		Repository: "acme/site",
		Branch:     "main",
		CommitSHA:  "abcdef1234",
		Counts:     map[outcome.Status]int{outcome.StatusNew: 2, outcome.StatusUnchanged: 4},
	}
	if got := Headline(push); got != "Screenshots archived for acme/site main" {
		t.Errorf("Headline() = %q", got)
	}
	if got := push.Link(); got != "https://github.com/acme/site/commit/abcdef1234" {
		t.Errorf("Link() = %q", got)
	}
	if push.Total() != 6 {
		t.Errorf("Total() = %d, want 6", push.Total())
	}
	if push.NeedsAttention() {
		t.Error("new and unchanged screenshots should not need attention")
	}

	if got := (Summary{CommitSHA: "abcdef1234"}).Target(); got != "abcdef1" {
		t.Errorf("Target() = %q", got)
	}
}
