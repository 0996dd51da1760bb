// Package upload sends screenshots to the archive service and decodes its
// verdicts.
package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/jacklau/webshot/internal/outcome"
	"github.com/jacklau/webshot/internal/screenshot"
)

// DefaultAPIURL is the public archive API.
const DefaultAPIURL = "https://api.webshotarchive.com"

// Credentials authenticate against the archive API.
type Credentials struct {
	ClientID     string
	ClientSecret string
}

// Apply sets the credential headers on req.
func (c Credentials) Apply(req *http.Request) {
	req.Header.Set("x-client-id", c.ClientID)
	req.Header.Set("x-client-secret", c.ClientSecret)
}

// Request carries the per-file metadata sent with an upload.
type Request struct {
	File             screenshot.File
	ProjectID        string
	CommitSHA        string
	CompareCommitSHA string
	BranchName       string
	CompareBranch    string
	MergedBranch     string
	Tags             []string
	EventName        string
	EventKind        string
	PRNumber         int
	AuthorName       string
	AuthorEmail      string
	VisualIndex      bool
}

// Client uploads screenshots.
type Client struct {
	baseURL string
	creds   Credentials
	client  *http.Client
}

// NewClient creates a Client for the API at baseURL.
func NewClient(baseURL string, creds Credentials, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		creds:   creds,
		client:  &http.Client{Timeout: timeout},
	}
}

// Upload posts one file and returns the service's verdict. A returned error
// means no usable verdict was received; a verdict may itself carry a
// service-reported error.
func (c *Client) Upload(ctx context.Context, r Request) (outcome.UploadVerdict, error) {
	content, err := os.ReadFile(r.File.AbsPath)
	if err != nil {
		return outcome.UploadVerdict{}, fmt.Errorf("reading %s: %w", r.File.RelativePath, err)
	}

	mtype := mimetype.Detect(content)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return outcome.UploadVerdict{}, fmt.Errorf("%s is not an image (detected %s)", r.File.RelativePath, mtype.String())
	}

	body, contentType, err := encodeForm(r, content, mtype.String())
	if err != nil {
		return outcome.UploadVerdict{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/image/upload", body)
	if err != nil {
		return outcome.UploadVerdict{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	c.creds.Apply(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return outcome.UploadVerdict{}, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return outcome.UploadVerdict{}, fmt.Errorf("reading response: %w", err)
	}
	return decodeVerdict(resp.StatusCode, raw)
}

func encodeForm(r Request, content []byte, mimeType string) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, r.File.Name))
	h.Set("Content-Type", mimeType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("creating file part: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return nil, "", fmt.Errorf("writing file part: %w", err)
	}

	fields := [][2]string{
		{"commitSha", r.CommitSHA},
		{"compareCommitSha", r.CompareCommitSHA},
		{"path", r.File.RelativePath},
		{"branchName", r.BranchName},
		{"projectId", r.ProjectID},
		{"eventName", r.EventName},
		{"type", r.EventKind},
		{"authorName", r.AuthorName},
		{"authorEmail", r.AuthorEmail},
	}
	if r.CompareBranch != "" {
		fields = append(fields, [2]string{"compareBranch", r.CompareBranch})
	}
	if r.MergedBranch != "" {
		fields = append(fields, [2]string{"mergedBranch", r.MergedBranch})
	}
	if len(r.Tags) > 0 {
		fields = append(fields, [2]string{"tags", strings.Join(r.Tags, ",")})
	}
	if r.PRNumber > 0 {
		fields = append(fields, [2]string{"prNumber", strconv.Itoa(r.PRNumber)})
	}
	if r.VisualIndex {
		fields = append(fields, [2]string{"visualIndex", "true"})
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", fmt.Errorf("writing field %s: %w", f[0], err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("closing form: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

// response is the upload endpoint's JSON body.
type response struct {
	Data *struct {
		ID                    string     `json:"id"`
		UniqueID              string     `json:"uniqueId"`
		DiffCount             *int       `json:"diffCount"`
		MinDiffPixelsToIgnore int        `json:"minDiffPixelsToIgnore"`
		DiffImage             handle     `json:"diffImage"`
		CreatedAt             *time.Time `json:"createdAt"`
	} `json:"data"`
	Metadata *struct {
		CompareImage          handle     `json:"compareImage"`
		CompareCommitSHA      string     `json:"compareCommitSha"`
		CompareImageTimestamp *time.Time `json:"compareImageTimestamp"`
	} `json:"metadata"`
	Message    string `json:"message"`
	Error      string `json:"error"`
	StatusCode int    `json:"statusCode"`
}

func decodeVerdict(httpStatus int, raw []byte) (outcome.UploadVerdict, error) {
	var r response
	if err := json.Unmarshal(raw, &r); err != nil {
		return outcome.UploadVerdict{}, fmt.Errorf("upload returned %d with undecodable body: %w", httpStatus, err)
	}

	reported := r.Error != "" || r.StatusCode >= 400
	if httpStatus >= 300 && !reported {
		return outcome.UploadVerdict{}, fmt.Errorf("upload returned %d: %s", httpStatus, r.Message)
	}
	if r.Data == nil && !reported {
		return outcome.UploadVerdict{}, fmt.Errorf("upload returned %d without data", httpStatus)
	}

	v := outcome.UploadVerdict{
		Error:      r.Error,
		StatusCode: r.StatusCode,
		Message:    r.Message,
	}
	if v.StatusCode == 0 && httpStatus >= 400 {
		v.StatusCode = httpStatus
	}
	if d := r.Data; d != nil {
		v.ID = d.ID
		if v.ID == "" {
			v.ID = d.UniqueID
		}
		v.DiffCount = d.DiffCount
		v.MinDiffPixelsToIgnore = d.MinDiffPixelsToIgnore
		v.DiffImage = string(d.DiffImage)
		if d.CreatedAt != nil {
			v.CreatedAt = *d.CreatedAt
		}
	}
	if m := r.Metadata; m != nil {
		v.CompareImage = string(m.CompareImage)
		v.CompareCommitSHA = m.CompareCommitSHA
		v.CompareImageTimestamp = m.CompareImageTimestamp
	}
	return v, nil
}

// handle decodes an image reference the service may send as a string, a
// boolean flag, or an object carrying an id.
type handle string

func (h *handle) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case string:
		*h = handle(t)
	case bool:
		if t {
			*h = "true"
		} else {
			*h = ""
		}
	case map[string]any:
		for _, key := range []string{"url", "id", "uniqueId"} {
			if s, ok := t[key].(string); ok && s != "" {
				*h = handle(s)
				return nil
			}
		}
		*h = "true"
	default:
		*h = ""
	}
	return nil
}
