package outcome

import (
	"fmt"
	"regexp"

	"github.com/jacklau/webshot/internal/event"
	"github.com/jacklau/webshot/internal/screenshot"
	"github.com/jacklau/webshot/internal/tags"
)

// DefaultFailedPattern matches the artifacts test runners write for failed
// assertions, e.g. "login (failed).png".
const DefaultFailedPattern = `\(failed\)\.png$`

// Input is everything a rule may look at.
type Input struct {
	File          screenshot.File
	Verdict       UploadVerdict
	Event         event.Context
	FailedPattern *regexp.Regexp
}

// Rule maps a matching input to a status. Apply fills the status-specific
// fields of the outcome.
type Rule struct {
	Name   string
	Status Status
	Match  func(in Input) bool
	Apply  func(in Input, o *Outcome)
}

// rules is the ordered decision policy. The first matching rule wins; the
// last rule matches everything so classification is total.
var rules = []Rule{
	{
		Name:   "failed-artifact",
		Status: StatusFailed,
		Match: func(in Input) bool {
			return in.FailedPattern != nil && in.FailedPattern.MatchString(in.File.RelativePath)
		},
		Apply: func(in Input, o *Outcome) {
			o.Tags = tags.Merge(o.Tags, []string{"failed"})
		},
	},
	{
		Name:   "error-with-comparison",
		Status: StatusError,
		Match: func(in Input) bool {
			return in.Verdict.Failed() && in.Verdict.HasComparison()
		},
		Apply: func(in Input, o *Outcome) {
			o.Error = errorText(in.Verdict)
			withComparison(in, o)
		},
	},
	{
		Name:   "error",
		Status: StatusError,
		Match: func(in Input) bool {
			return in.Verdict.Failed()
		},
		Apply: func(in Input, o *Outcome) {
			o.Error = errorText(in.Verdict)
		},
	},
	{
		Name:   "no-baseline",
		Status: StatusNew,
		Match: func(in Input) bool {
			return !in.Event.HasBaseline()
		},
	},
	{
		Name:   "first-seen",
		Status: StatusNew,
		Match: func(in Input) bool {
			return in.Verdict.Diff() == 0 && in.Verdict.CompareImage == ""
		},
		Apply: withComparison,
	},
	{
		Name:   "diff",
		Status: StatusDiff,
		Match: func(in Input) bool {
			v := in.Verdict
			return v.Diff() > v.MinDiffPixelsToIgnore || v.CompareImage == ""
		},
		Apply: withComparison,
	},
	{
		Name:   "below-tolerance",
		Status: StatusUnchanged,
		Match:  func(Input) bool { return true },
		Apply:  withComparison,
	},
}

// Classify folds one upload verdict into an Outcome and returns the name of
// the rule that decided it. extraTags are the caller and file name tags.
func Classify(in Input, extraTags []string) (Outcome, string) {
	o := Outcome{
		ImageID:               in.Verdict.ID,
		Name:                  in.File.Name,
		Path:                  in.File.RelativePath,
		Tags:                  tags.Merge(extraTags),
		MinDiffPixelsToIgnore: in.Verdict.MinDiffPixelsToIgnore,
		DiffImage:             in.Verdict.DiffImage,
		CreatedAt:             in.Verdict.CreatedAt,
	}
	if in.Event.IsPullRequest {
		o.Tags = tags.Merge(o.Tags, []string{"pr"})
	}

	for _, r := range rules {
		if !r.Match(in) {
			continue
		}
		o.Status = r.Status
		if r.Apply != nil {
			r.Apply(in, &o)
		}
		return o, r.Name
	}
	// Unreachable: the last rule always matches.
	panic("outcome: no rule matched")
}

func withComparison(in Input, o *Outcome) {
	v := in.Verdict
	o.DiffCount = v.Diff()
	o.CompareImage = v.CompareImage
	o.CompareCommitSHA = v.CompareCommitSHA
	o.CompareImageTimestamp = v.CompareImageTimestamp
}

func errorText(v UploadVerdict) string {
	if v.Error != "" {
		return v.Error
	}
	if v.Message != "" {
		return v.Message
	}
	return fmt.Sprintf("upload failed with status %d", v.StatusCode)
}
