// Package pipeline runs one upload: walk, upload, classify, render, publish.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/jacklau/webshot/internal/event"
	"github.com/jacklau/webshot/internal/notify"
	"github.com/jacklau/webshot/internal/outcome"
	"github.com/jacklau/webshot/internal/publish"
	"github.com/jacklau/webshot/internal/report"
	"github.com/jacklau/webshot/internal/screenshot"
	"github.com/jacklau/webshot/internal/store"
	"github.com/jacklau/webshot/internal/tags"
	"github.com/jacklau/webshot/internal/upload"
	"github.com/jacklau/webshot/internal/vcs"
)

// NoScreenshotsMessage is published when no outcome is worth reporting.
const NoScreenshotsMessage = "No new screenshots found"

// Uploader sends one screenshot to the archive.
type Uploader interface {
	Upload(ctx context.Context, r upload.Request) (outcome.UploadVerdict, error)
}

// AuthorLookup resolves commit authors.
type AuthorLookup interface {
	Author(rev string) (vcs.Author, error)
}

// PipelineDeps holds the dependencies for the Pipeline. Only Uploader is
// required.
type PipelineDeps struct {
	Uploader  Uploader
	Publisher publish.Publisher
	Notifier  notify.Notifier
	Store     store.Store
	Authors   AuthorLookup
	Logger    *slog.Logger

	// Progress, when set, is called after each file is processed.
	Progress func(done, total int)
}

// Options configure a single run.
type Options struct {
	Root          string
	Extensions    []string
	ProjectID     string
	Repository    string
	Tags          []string
	FailedPattern *regexp.Regexp
	Comment       bool
	VisualIndex   bool
	CompareBranch string
	Report        report.Options
}

// Result summarises a run.
type Result struct {
	RunID    string
	Event    event.Context
	Files    int
	Skipped  int
	Outcomes []outcome.Outcome
	Counts   map[outcome.Status]int
	Document report.Document
	Publish  *publish.Result
}

// Pipeline orchestrates one upload run.
type Pipeline struct {
	deps PipelineDeps
}

// New creates a new Pipeline with the given dependencies.
func New(deps PipelineDeps) *Pipeline {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Pipeline{deps: deps}
}

// Run uploads every screenshot under opts.Root for the given event and
// reports the outcomes. Only walking and cancellation errors are returned;
// per-file, publish, notify and history failures are logged.
func (p *Pipeline) Run(ctx context.Context, ev event.Context, opts Options) (*Result, error) {
	start := time.Now()
	logger := p.deps.Logger.With(
		"repo", opts.Repository,
		"commit", ev.HeadCommitSHA,
		"kind", string(ev.Kind),
	)

	files, err := screenshot.Walk(opts.Root, opts.Extensions)
	if err != nil {
		return nil, err
	}
	logger.Info("found screenshots", "count", len(files), "root", opts.Root)

	res := &Result{
		Event:  ev,
		Files:  len(files),
		Counts: make(map[outcome.Status]int),
	}
	res.RunID = p.startRun(ev, opts, start, logger)

	author := p.author(ev.HeadCommitSHA, logger)

	for i, f := range files {
		if err := ctx.Err(); err != nil {
			p.finishRun(res, "", logger)
			return nil, fmt.Errorf("run cancelled: %w", err)
		}

		o, ok := p.processFile(ctx, f, ev, opts, author, logger)
		if ok {
			res.Outcomes = append(res.Outcomes, o)
			res.Counts[o.Status]++
		} else {
			res.Skipped++
		}
		if p.deps.Progress != nil {
			p.deps.Progress(i+1, len(files))
		}
	}

	message := ""
	if !anyReported(res.Outcomes) {
		message = NoScreenshotsMessage
	}
	res.Document = report.Render(res.Outcomes, message, ev.HeadCommitSHA, opts.Report)

	publishAction := ""
	if opts.Comment && ev.IsPullRequest && p.deps.Publisher != nil {
		if message != "" {
			logger.Warn(NoScreenshotsMessage)
		}
		pr, err := p.publish(ctx, ev, opts, res.Document)
		if err != nil {
			logger.Error("failed to publish report", "error", err)
		} else {
			res.Publish = &pr
			publishAction = string(pr.Action)
		}
	} else {
		logger.Debug("not publishing report", "comment", opts.Comment, "pull_request", ev.IsPullRequest)
	}

	p.finishRun(res, publishAction, logger)
	p.notify(ctx, res, opts, time.Since(start), logger)

	logger.Info("run complete",
		"uploaded", len(res.Outcomes),
		"skipped", res.Skipped,
		"counts", notify.FormatCounts(res.Counts),
		"duration", time.Since(start),
	)
	return res, nil
}

func (p *Pipeline) processFile(ctx context.Context, f screenshot.File, ev event.Context, opts Options, author vcs.Author, logger *slog.Logger) (outcome.Outcome, bool) {
	log := logger.With("file", f.RelativePath)
	fileTags := uploadTags(f, ev, opts)

	verdict, err := p.deps.Uploader.Upload(ctx, upload.Request{
		File:             f,
		ProjectID:        opts.ProjectID,
		CommitSHA:        ev.HeadCommitSHA,
		CompareCommitSHA: ev.BaseCommitSHA,
		BranchName:       ev.BranchName,
		CompareBranch:    opts.CompareBranch,
		MergedBranch:     ev.MergedBranch,
		Tags:             fileTags,
		EventName:        ev.EventName,
		EventKind:        string(ev.Kind),
		PRNumber:         ev.PRNumber,
		AuthorName:       author.Name,
		AuthorEmail:      author.Email,
		VisualIndex:      opts.VisualIndex,
	})
	if err != nil {
		log.Warn("failed to upload screenshot, skipping", "error", err)
		return outcome.Outcome{}, false
	}
	if verdict.Failed() {
		log.Warn("archive reported an error", "error", verdict.Error, "status_code", verdict.StatusCode)
	}

	o, rule := outcome.Classify(outcome.Input{
		File:          f,
		Verdict:       verdict,
		Event:         ev,
		FailedPattern: opts.FailedPattern,
	}, fileTags)
	log.Debug("classified screenshot", "status", string(o.Status), "rule", rule, "image_id", o.ImageID)
	return o, true
}

// uploadTags are the caller's tags, the file name tags, and the "failed" and
// "pr" markers, in that order.
func uploadTags(f screenshot.File, ev event.Context, opts Options) []string {
	var extra []string
	if opts.FailedPattern != nil && opts.FailedPattern.MatchString(f.RelativePath) {
		extra = append(extra, "failed")
	}
	if ev.IsPullRequest {
		extra = append(extra, "pr")
	}
	return tags.Merge(opts.Tags, tags.Extract(f.Name), extra)
}

func anyReported(outcomes []outcome.Outcome) bool {
	for _, o := range outcomes {
		if o.Status.Reported() {
			return true
		}
	}
	return false
}

func (p *Pipeline) publish(ctx context.Context, ev event.Context, opts Options, doc report.Document) (publish.Result, error) {
	owner, repo, ok := strings.Cut(opts.Repository, "/")
	if !ok {
		return publish.Result{}, fmt.Errorf("invalid repository %q", opts.Repository)
	}
	return p.deps.Publisher.Publish(ctx, publish.Identity{
		Owner:       owner,
		Repo:        repo,
		IssueNumber: ev.PRNumber,
	}, doc)
}

func (p *Pipeline) author(sha string, logger *slog.Logger) vcs.Author {
	if p.deps.Authors == nil || sha == "" {
		return vcs.Author{}
	}
	a, err := p.deps.Authors.Author(sha)
	if err != nil {
		logger.Warn("could not resolve commit author", "error", err)
		return vcs.Author{}
	}
	logger.Debug("resolved commit author", "author", a.Name, "short_hash", a.ShortHash)
	return a
}

func (p *Pipeline) startRun(ev event.Context, opts Options, start time.Time, logger *slog.Logger) string {
	if p.deps.Store == nil {
		return ""
	}
	run := &store.Run{
		Repository:       opts.Repository,
		Branch:           ev.BranchName,
		CommitSHA:        ev.HeadCommitSHA,
		CompareCommitSHA: ev.BaseCommitSHA,
		EventName:        ev.EventName,
		EventKind:        string(ev.Kind),
		MergedBranch:     ev.MergedBranch,
		PRNumber:         ev.PRNumber,
		StartedAt:        start,
	}
	if err := p.deps.Store.CreateRun(run); err != nil {
		logger.Error("failed to record run", "error", err)
		return ""
	}
	return run.ID
}

func (p *Pipeline) finishRun(res *Result, publishAction string, logger *slog.Logger) {
	if p.deps.Store == nil || res.RunID == "" {
		return
	}
	if err := p.deps.Store.RecordOutcomes(res.RunID, res.Outcomes); err != nil {
		logger.Error("failed to record outcomes", "run_id", res.RunID, "error", err)
	}
	if err := p.deps.Store.FinishRun(res.RunID, publishAction); err != nil {
		logger.Error("failed to finish run", "run_id", res.RunID, "error", err)
	}
}

func (p *Pipeline) notify(ctx context.Context, res *Result, opts Options, elapsed time.Duration, logger *slog.Logger) {
	if p.deps.Notifier == nil {
		return
	}
	summary := notify.Summary{
		Repository:       opts.Repository,
		Branch:           res.Event.BranchName,
		CommitSHA:        res.Event.HeadCommitSHA,
		CompareCommitSHA: res.Event.BaseCommitSHA,
		EventKind:        string(res.Event.Kind),
		PRNumber:         res.Event.PRNumber,
		Counts:           res.Counts,
		Duration:         elapsed,
	}
	if res.Publish != nil {
		summary.CommentURL = res.Publish.URL
	}
	if err := p.deps.Notifier.Notify(ctx, summary); err != nil {
		logger.Warn("notification failed", "error", err)
	}
}
