package github

import (
	"context"
	"log/slog"

	gogithub "github.com/google/go-github/v60/github"

	"github.com/jacklau/webshot/internal/publish"
)

const commentsPerPage = 100

// CommentStore reads and writes pull request comments through the Issues
// API.
type CommentStore struct {
	client *gogithub.Client
	logger *slog.Logger
}

// NewCommentStore creates a CommentStore over client.
func NewCommentStore(client *gogithub.Client, logger *slog.Logger) *CommentStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &CommentStore{client: client, logger: logger}
}

// List returns every comment on the issue, oldest first, following
// pagination to the last page.
func (s *CommentStore) List(ctx context.Context, owner, repo string, number int) ([]publish.Comment, error) {
	opts := &gogithub.IssueListCommentsOptions{
		Sort:        gogithub.String("created"),
		Direction:   gogithub.String("asc"),
		ListOptions: gogithub.ListOptions{PerPage: commentsPerPage},
	}

	var out []publish.Comment
	for {
		comments, resp, err := s.client.Issues.ListComments(ctx, owner, repo, number, opts)
		if err != nil {
			return nil, describeError("listing comments", err)
		}
		warnIfLow(s.logger, resp)

		for _, c := range comments {
			out = append(out, toComment(c))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	s.logger.Debug("listed comments", "repo", owner+"/"+repo, "pr", number, "count", len(out))
	return out, nil
}

// Create posts a new comment on the issue.
func (s *CommentStore) Create(ctx context.Context, owner, repo string, number int, body string) (publish.Comment, error) {
	c, resp, err := s.client.Issues.CreateComment(ctx, owner, repo, number, &gogithub.IssueComment{
		Body: gogithub.String(body),
	})
	if err != nil {
		return publish.Comment{}, describeError("creating comment", err)
	}
	warnIfLow(s.logger, resp)
	return toComment(c), nil
}

// Update replaces the body of an existing comment.
func (s *CommentStore) Update(ctx context.Context, owner, repo string, commentID int64, body string) (publish.Comment, error) {
	c, resp, err := s.client.Issues.EditComment(ctx, owner, repo, commentID, &gogithub.IssueComment{
		Body: gogithub.String(body),
	})
	if err != nil {
		return publish.Comment{}, describeError("editing comment", err)
	}
	warnIfLow(s.logger, resp)
	return toComment(c), nil
}

func toComment(c *gogithub.IssueComment) publish.Comment {
	return publish.Comment{
		ID:   c.GetID(),
		Body: c.GetBody(),
		URL:  c.GetHTMLURL(),
	}
}
