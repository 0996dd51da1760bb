package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/jacklau/webshot/internal/report"
	"github.com/jacklau/webshot/internal/upload"
)

// ArchivePublisher hands the report to the archive service, which posts the
// comment on the project's behalf.
type ArchivePublisher struct {
	baseURL   string
	projectID string
	creds     upload.Credentials
	client    *http.Client
	logger    *slog.Logger
}

// NewArchivePublisher creates an ArchivePublisher. A nil client uses
// http.DefaultClient.
func NewArchivePublisher(baseURL, projectID string, creds upload.Credentials, client *http.Client, logger *slog.Logger) *ArchivePublisher {
	if baseURL == "" {
		baseURL = upload.DefaultAPIURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ArchivePublisher{
		baseURL:   strings.TrimRight(baseURL, "/"),
		projectID: projectID,
		creds:     creds,
		client:    client,
		logger:    logger,
	}
}

type archivePayload struct {
	Repo        string `json:"repo"`
	IssueNumber int    `json:"issueNumber"`
	Comment     string `json:"comment"`
}

// Publish posts the document to the report endpoint.
func (p *ArchivePublisher) Publish(ctx context.Context, id Identity, doc report.Document) (Result, error) {
	if err := id.validate(); err != nil {
		return Result{}, err
	}

	payload, err := json.Marshal(archivePayload{
		Repo:        id.Repository(),
		IssueNumber: id.IssueNumber,
		Comment:     string(doc),
	})
	if err != nil {
		return Result{}, fmt.Errorf("marshaling report payload: %w", err)
	}

	endpoint := p.baseURL + "/api/github/actions/comment/" + url.PathEscape(p.projectID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return Result{}, fmt.Errorf("creating report request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	p.creds.Apply(req)

	resp, err := p.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("sending report: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return Result{}, fmt.Errorf("report service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	p.logger.Info("forwarded report to archive service", "repo", id.Repository(), "pr", id.IssueNumber)
	return Result{Action: ActionForwarded}, nil
}
