// Package outcome classifies per-file upload verdicts into report outcomes.
package outcome

import "time"

// Status is the classified result of one uploaded screenshot.
type Status string

const (
	StatusNew       Status = "new"
	StatusDiff      Status = "diff"
	StatusUnchanged Status = "unchanged"
	StatusFailed    Status = "failed"
	StatusError     Status = "error"
)

// Statuses lists every status in report order.
var Statuses = []Status{StatusFailed, StatusError, StatusDiff, StatusNew, StatusUnchanged}

// Reported reports whether outcomes with this status belong in the rendered
// report. Unchanged outcomes fall below the service's pixel tolerance.
func (s Status) Reported() bool {
	return s != StatusUnchanged
}

// UploadVerdict is the archive service's answer for one uploaded file.
type UploadVerdict struct {
	ID                    string
	DiffCount             *int
	MinDiffPixelsToIgnore int
	DiffImage             string
	CompareImage          string
	CompareCommitSHA      string
	CompareImageTimestamp *time.Time
	CreatedAt             time.Time
	Error                 string
	StatusCode            int
	Message               string
}

// Failed reports whether the service flagged the upload as an error.
func (v UploadVerdict) Failed() bool {
	return v.Error != "" || v.StatusCode >= 400
}

// Diff returns the pixel difference count, treating a missing count as zero.
func (v UploadVerdict) Diff() int {
	if v.DiffCount == nil {
		return 0
	}
	return *v.DiffCount
}

// HasComparison reports whether the service returned any comparison data.
func (v UploadVerdict) HasComparison() bool {
	return v.CompareImage != "" || v.CompareCommitSHA != "" || v.Diff() > 0
}

// Outcome is the classified, immutable result for one screenshot.
type Outcome struct {
	ImageID               string
	Name                  string
	Path                  string
	Status                Status
	Tags                  []string
	Error                 string
	DiffCount             int
	MinDiffPixelsToIgnore int
	DiffImage             string
	CompareImage          string
	CompareCommitSHA      string
	CompareImageTimestamp *time.Time
	CreatedAt             time.Time
}

// Reference returns the timestamp the dashboard link is anchored to: the
// comparison capture time when known, else the upload's creation time.
func (o Outcome) Reference() time.Time {
	if o.CompareImageTimestamp != nil && !o.CompareImageTimestamp.IsZero() {
		return *o.CompareImageTimestamp
	}
	return o.CreatedAt
}
