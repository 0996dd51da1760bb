package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jacklau/webshot/internal/event"
	"github.com/jacklau/webshot/internal/outcome"
	"github.com/jacklau/webshot/internal/screenshot"
)

// Publisher names.
const (
	PublisherGitHub  = "github"
	PublisherArchive = "archive"
)

// Config is the top-level configuration.
type Config struct {
	Archive ArchiveConfig `yaml:"archive"`
	Upload  UploadConfig  `yaml:"upload"`
	Event   EventConfig   `yaml:"event"`
	Report  ReportConfig  `yaml:"report"`
	GitHub  GitHubConfig  `yaml:"github"`
	Notify  NotifyConfig  `yaml:"notify"`
	Store   StoreConfig   `yaml:"store"`
}

// ArchiveConfig holds the archive service endpoints and credentials.
type ArchiveConfig struct {
	APIURL            string `yaml:"api_url"`
	ImageHost         string `yaml:"image_host"`
	DashboardURL      string `yaml:"dashboard_url"`
	ClientID          string `yaml:"client_id"`
	ClientSecret      string `yaml:"client_secret"`
	ProjectID         string `yaml:"project_id"`
	RequestTimeoutRaw string `yaml:"request_timeout"`
}

// UploadConfig selects and annotates the screenshots to upload.
type UploadConfig struct {
	ScreenshotsFolder string   `yaml:"screenshots_folder"`
	Extensions        []string `yaml:"extensions"`
	FailedTestRegex   string   `yaml:"failed_test_regex"`
	Tags              string   `yaml:"tags"`
	VisualIndex       bool     `yaml:"visual_index"`
}

// EventConfig overrides values otherwise derived from the platform.
type EventConfig struct {
	CommitSHA        string `yaml:"commit_sha"`
	CompareCommitSHA string `yaml:"compare_commit_sha"`
	BranchName       string `yaml:"branch_name"`
	CompareBranch    string `yaml:"compare_branch"`
	MergedBranch     string `yaml:"merged_branch"`
	Type             string `yaml:"type"`
}

// ReportConfig controls pull request reporting.
type ReportConfig struct {
	Comment   *bool  `yaml:"comment"`
	Publisher string `yaml:"publisher"`
}

// GitHubConfig holds GitHub authentication settings.
type GitHubConfig struct {
	Auth           string `yaml:"auth"`
	Token          string `yaml:"token"`
	APIURL         string `yaml:"api_url"`
	AppID          string `yaml:"app_id"`
	InstallationID string `yaml:"installation_id"`
	PrivateKeyPath string `yaml:"private_key_path"`
	PrivateKey     string `yaml:"private_key"`
}

// NotifyConfig holds notification webhook URLs.
type NotifyConfig struct {
	SlackWebhook   string `yaml:"slack_webhook"`
	DiscordWebhook string `yaml:"discord_webhook"`
}

// StoreConfig holds run history settings. An empty path disables history.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// RequestTimeout returns the parsed request timeout duration.
func (a ArchiveConfig) RequestTimeout() (time.Duration, error) {
	if a.RequestTimeoutRaw == "" {
		return 10 * time.Second, nil
	}
	return time.ParseDuration(a.RequestTimeoutRaw)
}

// FailedPattern compiles the failed-test pattern.
func (u UploadConfig) FailedPattern() (*regexp.Regexp, error) {
	return regexp.Compile(u.FailedTestRegex)
}

// ShouldComment reports whether a report should be published. Unless set
// explicitly, commenting is on for pull requests only.
func (r ReportConfig) ShouldComment(isPullRequest bool) bool {
	if r.Comment != nil {
		return *r.Comment
	}
	return isPullRequest
}

// envVarPattern matches ${VAR} patterns.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR} placeholders with environment variable values.
// Returns an error if any referenced variable is not set.
func expandEnvVars(data []byte) ([]byte, error) {
	var missing []string

	result := envVarPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		varName := envVarPattern.FindSubmatch(match)[1]
		val, ok := os.LookupEnv(string(varName))
		if !ok {
			missing = append(missing, string(varName))
			return match
		}
		return []byte(val)
	})

	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return result, nil
}

// expandTilde replaces a leading "~" with the user's home directory.
func expandTilde(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// Load reads and parses a config file from the given path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Default returns a configuration with every default applied, for runs
// driven purely by inputs and flags.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

// Parse parses config from raw YAML bytes, expanding env vars and validating.
func Parse(data []byte) (*Config, error) {
	expanded, err := expandEnvVars(data)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(expanded, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Archive.APIURL == "" {
		cfg.Archive.APIURL = "https://api.webshotarchive.com"
	}
	if cfg.Archive.ImageHost == "" {
		cfg.Archive.ImageHost = "https://cdn.webshotarchive.dev"
	}
	if cfg.Archive.DashboardURL == "" {
		cfg.Archive.DashboardURL = "https://www.webshotarchive.com"
	}
	if cfg.Archive.RequestTimeoutRaw == "" {
		cfg.Archive.RequestTimeoutRaw = "10s"
	}
	if len(cfg.Upload.Extensions) == 0 {
		cfg.Upload.Extensions = append([]string(nil), screenshot.DefaultExtensions...)
	}
	if cfg.Upload.FailedTestRegex == "" {
		cfg.Upload.FailedTestRegex = outcome.DefaultFailedPattern
	}
	if cfg.Report.Publisher == "" {
		cfg.Report.Publisher = PublisherGitHub
	}
	if cfg.GitHub.Auth == "" {
		cfg.GitHub.Auth = "token"
	}
	cfg.Store.Path = expandTilde(cfg.Store.Path)
}

// Validate checks field formats. Required inputs are checked separately by
// RequireInputs once every source has been applied.
func (c *Config) Validate() error {
	if _, err := c.Archive.RequestTimeout(); err != nil {
		return fmt.Errorf("invalid request_timeout %q: %w", c.Archive.RequestTimeoutRaw, err)
	}
	if _, err := c.Upload.FailedPattern(); err != nil {
		return fmt.Errorf("invalid failed_test_regex %q: %w", c.Upload.FailedTestRegex, err)
	}
	if err := screenshot.ValidateExtensions(c.Upload.Extensions); err != nil {
		return fmt.Errorf("invalid extensions: %w", err)
	}
	if _, err := event.ParseKind(c.Event.Type); err != nil {
		return err
	}

	switch c.Report.Publisher {
	case PublisherGitHub, PublisherArchive:
	default:
		return fmt.Errorf("unsupported publisher: %q", c.Report.Publisher)
	}

	switch c.GitHub.Auth {
	case "token", "app":
	default:
		return fmt.Errorf("unsupported github auth: %q", c.GitHub.Auth)
	}

	return nil
}

// RequireInputs checks that every input needed to upload is present. When
// the GitHub publisher will comment, GitHub credentials are required too.
func (c *Config) RequireInputs(willComment bool) error {
	var missing []string
	if c.Upload.ScreenshotsFolder == "" {
		missing = append(missing, "screenshotsFolder")
	}
	if c.Archive.ClientID == "" {
		missing = append(missing, "clientId")
	}
	if c.Archive.ClientSecret == "" {
		missing = append(missing, "clientSecret")
	}
	if c.Archive.ProjectID == "" {
		missing = append(missing, "projectId")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required inputs: %s", strings.Join(missing, ", "))
	}

	if willComment && c.Report.Publisher == PublisherGitHub {
		switch c.GitHub.Auth {
		case "app":
			if c.GitHub.AppID == "" || c.GitHub.InstallationID == "" {
				return fmt.Errorf("github app_id and installation_id are required to comment")
			}
		default:
			if c.GitHub.Token == "" {
				return fmt.Errorf("GITHUB_TOKEN required to comment")
			}
		}
	}
	return nil
}
