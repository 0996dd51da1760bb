package event

import (
	"errors"
	"log/slog"
	"strings"
)

// zeroSHA is what GitHub sends as "before" on the first push of a ref.
const zeroSHA = "0000000000000000000000000000000000000000"

// VCS is the commit-graph capability the classifier needs.
type VCS interface {
	// Parents returns the parent SHAs of the given commit, in order.
	Parents(sha string) ([]string, error)
	// BranchName returns a branch name from which sha is reachable.
	BranchName(sha string) (string, error)
}

// Classifier builds the run's Context from platform metadata.
type Classifier struct {
	vcs      VCS
	platform Platform
	logger   *slog.Logger
}

// NewClassifier creates a Classifier. vcs may be nil when no repository is
// available; push events then fail to classify.
func NewClassifier(vcs VCS, platform Platform, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{vcs: vcs, platform: platform, logger: logger}
}

// Classify resolves the event kind, merged branch and commit pair.
func (c *Classifier) Classify(o Overrides) (Context, error) {
	p := c.platform
	ctx := Context{
		Kind:          KindPush,
		EventName:     p.EventName,
		HeadCommitSHA: c.headSHA(o),
		BaseCommitSHA: c.baseSHA(o),
		BranchName:    c.branchName(o),
	}

	switch {
	case p.IsPullRequest():
		// Pull requests are never treated as merges.
		ctx.IsPullRequest = true
		ctx.PRNumber = p.PRNumber
		c.logger.Info("classified pull request event", "pr", p.PRNumber, "head", ctx.HeadCommitSHA)
	case p.EventName == "push":
		kind, merged, err := c.classifyPush(c.graphSHA(ctx.HeadCommitSHA))
		if err != nil {
			return Context{}, err
		}
		ctx.Kind = kind
		ctx.MergedBranch = merged
	default:
		c.logger.Info("treating event as a regular push", "event", p.EventName)
	}

	if o.MergedBranch != "" {
		ctx.MergedBranch = o.MergedBranch
	}
	if o.Kind != "" {
		ctx.Kind = o.Kind
	}
	return ctx, nil
}

func (c *Classifier) classifyPush(sha string) (Kind, string, error) {
	if c.vcs == nil {
		return "", "", &ClassificationError{SHA: sha, Err: errors.New("no repository available")}
	}
	parents, err := c.vcs.Parents(sha)
	if err != nil {
		return "", "", &ClassificationError{SHA: sha, Err: err}
	}
	if len(parents) < 2 {
		c.logger.Info("classified regular push", "commit", sha)
		return KindPush, "", nil
	}

	merged, err := c.vcs.BranchName(parents[1])
	if err != nil || merged == "" {
		c.logger.Warn("could not determine merged branch name", "parent", parents[1], "error", err)
		merged = UnknownBranch
	}
	c.logger.Info("classified merge commit", "commit", sha, "merged_branch", merged)
	return KindMerge, merged, nil
}

// graphSHA picks the commit whose parents decide push vs merge: the
// COMMIT_SHA override, else the head commit.
func (c *Classifier) graphSHA(head string) string {
	if c.platform.CommitOverride != "" {
		return c.platform.CommitOverride
	}
	if head != "" {
		return head
	}
	return c.platform.SHA
}

func (c *Classifier) headSHA(o Overrides) string {
	p := c.platform
	switch {
	case o.HeadCommitSHA != "":
		return o.HeadCommitSHA
	case p.IsPullRequest() && p.PRHeadSHA != "":
		return p.PRHeadSHA
	case p.After != "" && p.After != zeroSHA:
		return p.After
	default:
		return p.SHA
	}
}

// baseSHA returns the commit to compare against. For pull requests this is
// the base ref's tip when the event fired, which may differ from the true
// merge base.
func (c *Classifier) baseSHA(o Overrides) string {
	p := c.platform
	if o.BaseCommitSHA != "" {
		return o.BaseCommitSHA
	}
	if p.IsPullRequest() {
		return p.PRBaseSHA
	}
	if p.Before == zeroSHA {
		return ""
	}
	return p.Before
}

func (c *Classifier) branchName(o Overrides) string {
	p := c.platform
	if o.BranchName != "" {
		return o.BranchName
	}
	if p.IsPullRequest() && p.PRHeadRef != "" {
		return p.PRHeadRef
	}
	return strings.TrimPrefix(p.Ref, "refs/heads/")
}
