package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jacklau/webshot/internal/config"
	"github.com/jacklau/webshot/internal/event"
	"github.com/jacklau/webshot/internal/notify"
	"github.com/jacklau/webshot/internal/pipeline"
	"github.com/jacklau/webshot/internal/report"
	"github.com/jacklau/webshot/internal/tags"
	"github.com/jacklau/webshot/internal/vcs"
)

var (
	uploadFolder     string
	uploadRepository string
	uploadTags       string
	uploadType       string
	uploadComment    bool
	uploadNotify     string
	uploadProgress   bool
	uploadDryRun     bool
)

var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Upload screenshots and report visual changes",
	Long: `Upload walks the screenshots folder, uploads every image to Webshot
Archive with the commit context of the current event, and publishes a
report comment on the pull request.

Settings come from the config file, then GitHub Actions inputs
(INPUT_SCREENSHOTSFOLDER, INPUT_CLIENTID, ...), then flags.`,
	Args: cobra.NoArgs,
	RunE: runUpload,
}

func init() {
	uploadCmd.Flags().StringVar(&uploadFolder, "screenshots", "", "screenshots folder (overrides the screenshotsFolder input)")
	uploadCmd.Flags().StringVar(&uploadRepository, "repo", "", "repository as owner/repo (default $GITHUB_REPOSITORY)")
	uploadCmd.Flags().StringVar(&uploadTags, "tags", "", "comma-separated tags added to every screenshot")
	uploadCmd.Flags().StringVar(&uploadType, "type", "", "event type override: push or merge")
	uploadCmd.Flags().BoolVar(&uploadComment, "comment", false, "publish the report on the pull request")
	uploadCmd.Flags().StringVar(&uploadNotify, "notify", "", "notification target: slack, discord, or both")
	uploadCmd.Flags().BoolVar(&uploadProgress, "progress", false, "show an upload progress bar on stderr")
	uploadCmd.Flags().BoolVar(&uploadDryRun, "dry-run", false, "upload and render but skip publishing and notifications")
	rootCmd.AddCommand(uploadCmd)
}

// applyUploadFlags overlays explicitly set flags onto cfg.
func applyUploadFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("screenshots") {
		cfg.Upload.ScreenshotsFolder = uploadFolder
	}
	if flags.Changed("tags") {
		cfg.Upload.Tags = uploadTags
	}
	if flags.Changed("type") {
		cfg.Event.Type = uploadType
	}
	if flags.Changed("comment") {
		comment := uploadComment
		cfg.Report.Comment = &comment
	}
}

func runUpload(cmd *cobra.Command, args []string) error {
	logger := setupLogger()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.ApplyInputs(os.LookupEnv); err != nil {
		return fmt.Errorf("applying inputs: %w", err)
	}
	applyUploadFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	platform, err := event.LoadPlatform(os.LookupEnv)
	if err != nil {
		return fmt.Errorf("loading event metadata: %w", err)
	}
	repository := platform.Repository
	if uploadRepository != "" {
		if _, _, err := parseRepoArg(uploadRepository); err != nil {
			return err
		}
		repository = uploadRepository
	}

	comment := cfg.Report.ShouldComment(platform.IsPullRequest())
	if err := cfg.RequireInputs(comment && !uploadDryRun); err != nil {
		return err
	}
	failed, _ := cfg.Upload.FailedPattern()
	kind, _ := event.ParseKind(cfg.Event.Type)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := vcs.Open(".")
	if err != nil {
		logger.Warn("no git repository available, merge detection and author lookup disabled", "error", err)
		repo = nil
	}

	ev, err := classifyEvent(repo, platform, cfg.Event, kind, logger)
	if err != nil {
		return err
	}

	c, err := initComponents(cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing components: %w", err)
	}
	defer c.Close()

	n, err := createNotifier(cfg, uploadNotify)
	if err != nil {
		return fmt.Errorf("creating notifier: %w", err)
	}

	deps := pipeline.PipelineDeps{
		Uploader: c.Uploader,
		Logger:   logger,
	}
	if uploadDryRun {
		logger.Info("dry-run mode enabled, publishing and notifications disabled")
	} else {
		deps.Publisher = c.Publisher
		deps.Notifier = n
	}
	if c.Store != nil {
		deps.Store = c.Store
	}
	if repo != nil {
		deps.Authors = repo
	}

	var bar *progressBar
	if uploadProgress {
		deps.Progress = func(done, total int) {
			if bar == nil {
				bar = newProgressBar(total, "Uploading", os.Stderr)
			}
			bar.Add(1)
		}
	}

	res, err := pipeline.New(deps).Run(ctx, ev, pipeline.Options{
		Root:          cfg.Upload.ScreenshotsFolder,
		Extensions:    cfg.Upload.Extensions,
		ProjectID:     cfg.Archive.ProjectID,
		Repository:    repository,
		Tags:          tags.ParseList(cfg.Upload.Tags),
		FailedPattern: failed,
		Comment:       comment,
		VisualIndex:   cfg.Upload.VisualIndex,
		CompareBranch: cfg.Event.CompareBranch,
		Report: report.Options{
			ImageHost:    cfg.Archive.ImageHost,
			DashboardURL: cfg.Archive.DashboardURL,
			ProjectID:    cfg.Archive.ProjectID,
		},
	})
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Uploaded %d of %d screenshots (%s)\n",
		len(res.Outcomes), res.Files, notify.FormatCounts(res.Counts))
	if res.Skipped > 0 {
		fmt.Fprintf(out, "Skipped %d screenshots after upload errors\n", res.Skipped)
	}
	if res.Publish != nil {
		fmt.Fprintf(out, "Report %s: %s\n", res.Publish.Action, orDash(res.Publish.URL))
	}
	if uploadDryRun {
		fmt.Fprintln(out)
		fmt.Fprint(out, string(res.Document))
	}
	return nil
}

// classifyEvent builds the run's comparison context. repo may be nil.
func classifyEvent(repo *vcs.Repo, platform event.Platform, ec config.EventConfig, kind event.Kind, logger *slog.Logger) (event.Context, error) {
	var graph event.VCS
	if repo != nil {
		graph = repo
	}
	ev, err := event.NewClassifier(graph, platform, logger).Classify(event.Overrides{
		HeadCommitSHA: ec.CommitSHA,
		BaseCommitSHA: ec.CompareCommitSHA,
		BranchName:    ec.BranchName,
		MergedBranch:  ec.MergedBranch,
		Kind:          kind,
	})
	if err != nil {
		return event.Context{}, fmt.Errorf("classifying event: %w", err)
	}
	return ev, nil
}
