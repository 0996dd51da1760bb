package notify

import (
	"fmt"
	"time"

	"github.com/jacklau/webshot/internal/outcome"
)

// Summary describes a finished upload run.
type Summary struct {
	Repository       string
	Branch           string
	CommitSHA        string
	CompareCommitSHA string
	EventKind        string
	PRNumber         int
	Counts           map[outcome.Status]int
	CommentURL       string
	Duration         time.Duration
}

// Total returns the number of uploaded screenshots.
func (s Summary) Total() int {
	n := 0
	for _, c := range s.Counts {
		n += c
	}
	return n
}

// NeedsAttention reports whether any screenshot failed, errored or changed.
func (s Summary) NeedsAttention() bool {
	return s.Counts[outcome.StatusFailed] > 0 ||
		s.Counts[outcome.StatusError] > 0 ||
		s.Counts[outcome.StatusDiff] > 0
}

// Link returns the report comment when known, else the pull request or
// commit on github.com.
func (s Summary) Link() string {
	switch {
	case s.CommentURL != "":
		return s.CommentURL
	case s.PRNumber > 0:
		return fmt.Sprintf("https://github.com/%s/pull/%d", s.Repository, s.PRNumber)
	default:
		return fmt.Sprintf("https://github.com/%s/commit/%s", s.Repository, s.CommitSHA)
	}
}

// Target names the pull request or branch the run belongs to.
func (s Summary) Target() string {
	if s.PRNumber > 0 {
		return fmt.Sprintf("#%d", s.PRNumber)
	}
	if s.Branch != "" {
		return s.Branch
	}
	return ShortSHA(s.CommitSHA)
}
