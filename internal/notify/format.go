package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/jacklau/webshot/internal/outcome"
)

// FormatCounts formats per-status counts in report order.
// Example: "1 failed, 2 diff, 5 new"
func FormatCounts(counts map[outcome.Status]int) string {
	var parts []string
	for _, s := range outcome.Statuses {
		if n := counts[s]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, s))
		}
	}
	if len(parts) == 0 {
		return "No screenshots"
	}
	return strings.Join(parts, ", ")
}

// FormatCommits formats the current and comparison commits.
// Example: "`7f6e1ce` vs `2232593`"
func FormatCommits(current, compare string) string {
	if compare == "" {
		return fmt.Sprintf("`%s`", ShortSHA(current))
	}
	return fmt.Sprintf("`%s` vs `%s`", ShortSHA(current), ShortSHA(compare))
}

// ShortSHA abbreviates a commit hash to seven characters.
func ShortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}

// FormatDuration rounds a run duration for display.
func FormatDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "0s"
	case d < time.Second:
		return d.Round(time.Millisecond).String()
	default:
		return d.Round(time.Second).String()
	}
}

// Headline returns a one-line title for the summary.
func Headline(s Summary) string {
	if s.NeedsAttention() {
		return fmt.Sprintf("Visual changes in %s %s", s.Repository, s.Target())
	}
	return fmt.Sprintf("Screenshots archived for %s %s", s.Repository, s.Target())
}
