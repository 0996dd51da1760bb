// Package event derives the comparison context for a run from the host
// platform's event metadata and the local commit graph.
package event

import "fmt"

// Kind is the classified event kind sent to the archive.
type Kind string

const (
	KindPush  Kind = "push"
	KindMerge Kind = "merge"
)

// UnknownBranch is recorded as the merged branch when the second parent of a
// merge commit cannot be named.
const UnknownBranch = "unknown"

// Context is the comparison context for one run. Empty strings and a zero
// PRNumber stand for absent values. A Context is never modified after
// Classify returns it.
type Context struct {
	Kind          Kind
	EventName     string
	HeadCommitSHA string
	BaseCommitSHA string
	MergedBranch  string
	BranchName    string
	IsPullRequest bool
	PRNumber      int
}

// HasBaseline reports whether a base commit is available to compare against.
func (c Context) HasBaseline() bool {
	return c.BaseCommitSHA != ""
}

// Platform is the read-only event metadata supplied by the CI host.
type Platform struct {
	EventName  string
	SHA        string
	Ref        string
	Repository string

	// CommitOverride comes from the COMMIT_SHA environment variable.
	CommitOverride string

	// Push payload.
	Before string
	After  string

	// Pull request payload.
	PRNumber  int
	PRHeadSHA string
	PRHeadRef string
	PRBaseSHA string
}

// IsPullRequest reports whether the triggering event is a pull request.
func (p Platform) IsPullRequest() bool {
	return p.EventName == "pull_request" || p.EventName == "pull_request_target"
}

// Owner returns the repository owner from "owner/name".
func (p Platform) Owner() string {
	owner, _ := splitRepository(p.Repository)
	return owner
}

// Repo returns the repository name from "owner/name".
func (p Platform) Repo() string {
	_, repo := splitRepository(p.Repository)
	return repo
}

// Overrides are explicitly supplied inputs that take precedence over values
// derived from the platform.
type Overrides struct {
	HeadCommitSHA string
	BaseCommitSHA string
	BranchName    string
	MergedBranch  string
	Kind          Kind
}

// ParseKind validates an event kind name. The empty string is accepted and
// means "detect".
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case "", KindPush, KindMerge:
		return k, nil
	}
	return "", fmt.Errorf("unknown event type %q (want %q or %q)", s, KindPush, KindMerge)
}

// ClassificationError reports that the commit graph could not be inspected
// at all. It is fatal to the run.
type ClassificationError struct {
	SHA string
	Err error
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("classifying event for commit %q: %v", e.SHA, e.Err)
}

func (e *ClassificationError) Unwrap() error {
	return e.Err
}
