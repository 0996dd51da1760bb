package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jacklau/webshot/internal/config"
	"github.com/jacklau/webshot/internal/github"
	"github.com/jacklau/webshot/internal/notify"
	"github.com/jacklau/webshot/internal/publish"
	"github.com/jacklau/webshot/internal/store"
	"github.com/jacklau/webshot/internal/upload"

	gogithub "github.com/google/go-github/v60/github"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "webshot",
	Short: "Archive screenshots and report visual changes on pull requests",
	Long: `Webshot uploads test screenshots to Webshot Archive, compares them with
the screenshots of the base commit, and posts a visual-diff report on the
pull request. It reads GitHub Actions inputs and event metadata, so it can
run as an action step or from any CI shell.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", fmt.Sprintf("config file (default %s)", defaultConfigPath()))
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".webshot/config.yaml"
	}
	return home + "/.webshot/config.yaml"
}

func setupLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}

// loadConfig reads the config file. A missing default file is not an error:
// action runs are configured through inputs alone.
func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		return config.Load(cfgFile)
	}
	cfg, err := config.Load(defaultConfigPath())
	if errors.Is(err, fs.ErrNotExist) {
		return config.Default(), nil
	}
	return cfg, err
}

// components holds initialized components for use by subcommands.
type components struct {
	Config    *config.Config
	Store     *store.DB
	Uploader  *upload.Client
	Publisher publish.Publisher
	Logger    *slog.Logger
}

// Close releases the history database, if open.
func (c *components) Close() error {
	if c.Store == nil {
		return nil
	}
	return c.Store.Close()
}

// initComponents creates all components from config.
func initComponents(cfg *config.Config, logger *slog.Logger) (*components, error) {
	c := &components{
		Config: cfg,
		Logger: logger,
	}

	timeout, err := cfg.Archive.RequestTimeout()
	if err != nil {
		return nil, fmt.Errorf("parsing request_timeout: %w", err)
	}
	creds := upload.Credentials{ClientID: cfg.Archive.ClientID, ClientSecret: cfg.Archive.ClientSecret}
	c.Uploader = upload.NewClient(cfg.Archive.APIURL, creds, timeout)

	pub, err := createPublisher(cfg, logger)
	if err != nil {
		return nil, err
	}
	c.Publisher = pub

	if cfg.Store.Path != "" {
		db, err := openStore(cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("opening store: %w", err)
		}
		c.Store = db
	}

	return c, nil
}

func openStore(path string) (*store.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}
	return store.Open(path)
}

// createPublisher builds the configured report publisher. It returns nil
// when the GitHub publisher has no credentials; RequireInputs has already
// rejected that combination for runs that must comment.
func createPublisher(cfg *config.Config, logger *slog.Logger) (publish.Publisher, error) {
	switch cfg.Report.Publisher {
	case config.PublisherArchive:
		timeout, err := cfg.Archive.RequestTimeout()
		if err != nil {
			return nil, fmt.Errorf("parsing request_timeout: %w", err)
		}
		creds := upload.Credentials{ClientID: cfg.Archive.ClientID, ClientSecret: cfg.Archive.ClientSecret}
		return publish.NewArchivePublisher(cfg.Archive.APIURL, cfg.Archive.ProjectID, creds, &http.Client{Timeout: timeout}, logger), nil
	case config.PublisherGitHub, "":
		client, err := createGitHubClient(cfg)
		if err != nil {
			return nil, err
		}
		if client == nil {
			return nil, nil
		}
		return publish.NewCommentPublisher(github.NewCommentStore(client, logger), logger), nil
	default:
		return nil, fmt.Errorf("unsupported publisher: %q", cfg.Report.Publisher)
	}
}

// createGitHubClient authenticates with an app installation or a token.
func createGitHubClient(cfg *config.Config) (*gogithub.Client, error) {
	gh := cfg.GitHub
	if gh.Auth == "app" {
		appID, err := strconv.ParseInt(gh.AppID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing app_id: %w", err)
		}
		installID, err := strconv.ParseInt(gh.InstallationID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing installation_id: %w", err)
		}
		client, err := github.NewAppClient(appID, installID, []byte(gh.PrivateKey), gh.PrivateKeyPath, gh.APIURL)
		if err != nil {
			return nil, fmt.Errorf("creating GitHub client: %w", err)
		}
		return client, nil
	}

	if gh.Token == "" {
		return nil, nil
	}
	client, err := github.NewTokenClient(gh.Token, gh.APIURL)
	if err != nil {
		return nil, fmt.Errorf("creating GitHub client: %w", err)
	}
	return client, nil
}

// createNotifier builds a Notifier from config and flag override.
func createNotifier(cfg *config.Config, notifyFlag string) (notify.Notifier, error) {
	notifyType := notifyFlag
	if notifyType == "" {
		hasSlack := cfg.Notify.SlackWebhook != ""
		hasDiscord := cfg.Notify.DiscordWebhook != ""
		switch {
		case hasSlack && hasDiscord:
			notifyType = "both"
		case hasSlack:
			notifyType = "slack"
		case hasDiscord:
			notifyType = "discord"
		default:
			return nil, nil // no notification configured
		}
	}

	return notify.NewNotifier(notifyType, cfg.Notify.SlackWebhook, cfg.Notify.DiscordWebhook)
}
