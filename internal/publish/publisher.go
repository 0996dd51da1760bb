// Package publish delivers rendered reports to a pull request.
package publish

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jacklau/webshot/internal/report"
)

// Action describes what a publish did.
type Action string

const (
	ActionCreated   Action = "created"
	ActionUpdated   Action = "updated"
	ActionUnchanged Action = "unchanged"
	ActionForwarded Action = "forwarded"
)

// Identity addresses the pull request a report belongs to.
type Identity struct {
	Owner       string
	Repo        string
	IssueNumber int
}

// Repository returns "owner/repo".
func (id Identity) Repository() string {
	return id.Owner + "/" + id.Repo
}

func (id Identity) validate() error {
	if id.Owner == "" || id.Repo == "" {
		return fmt.Errorf("repository owner and name are required")
	}
	if id.IssueNumber <= 0 {
		return fmt.Errorf("invalid pull request number %d", id.IssueNumber)
	}
	return nil
}

// Result reports the effect of a publish.
type Result struct {
	Action    Action
	CommentID int64
	URL       string
}

// Publisher delivers a report document to a pull request.
type Publisher interface {
	Publish(ctx context.Context, id Identity, doc report.Document) (Result, error)
}

// Comment is an existing issue comment.
type Comment struct {
	ID   int64
	Body string
	URL  string
}

// CommentStore reads and writes issue comments.
type CommentStore interface {
	// List returns every comment on the issue, oldest first.
	List(ctx context.Context, owner, repo string, number int) ([]Comment, error)
	Create(ctx context.Context, owner, repo string, number int, body string) (Comment, error)
	Update(ctx context.Context, owner, repo string, commentID int64, body string) (Comment, error)
}

// CommentPublisher keeps a single report comment per pull request, found by
// its marker.
type CommentPublisher struct {
	store  CommentStore
	logger *slog.Logger
}

// NewCommentPublisher creates a CommentPublisher over store.
func NewCommentPublisher(store CommentStore, logger *slog.Logger) *CommentPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &CommentPublisher{store: store, logger: logger}
}

// Publish creates the report comment or updates the earliest comment that
// carries a report marker.
func (p *CommentPublisher) Publish(ctx context.Context, id Identity, doc report.Document) (Result, error) {
	if err := id.validate(); err != nil {
		return Result{}, err
	}
	log := p.logger.With("repo", id.Repository(), "pr", id.IssueNumber)

	comments, err := p.store.List(ctx, id.Owner, id.Repo, id.IssueNumber)
	if err != nil {
		return Result{}, fmt.Errorf("listing comments: %w", err)
	}

	body := string(doc)
	for _, c := range comments {
		if !report.ContainsMarker(c.Body) {
			continue
		}
		if c.Body == body {
			log.Debug("report comment unchanged", "comment_id", c.ID)
			return Result{Action: ActionUnchanged, CommentID: c.ID, URL: c.URL}, nil
		}
		updated, err := p.store.Update(ctx, id.Owner, id.Repo, c.ID, body)
		if err != nil {
			return Result{}, fmt.Errorf("updating comment %d: %w", c.ID, err)
		}
		log.Info("updated report comment", "comment_id", updated.ID)
		return Result{Action: ActionUpdated, CommentID: updated.ID, URL: updated.URL}, nil
	}

	created, err := p.store.Create(ctx, id.Owner, id.Repo, id.IssueNumber, body)
	if err != nil {
		return Result{}, fmt.Errorf("creating comment: %w", err)
	}
	log.Info("created report comment", "comment_id", created.ID)
	return Result{Action: ActionCreated, CommentID: created.ID, URL: created.URL}, nil
}

// ParseAction converts a stored action name back to an Action.
func ParseAction(s string) (Action, bool) {
	switch a := Action(strings.ToLower(s)); a {
	case ActionCreated, ActionUpdated, ActionUnchanged, ActionForwarded:
		return a, true
	}
	return "", false
}
