package config

import (
	"strings"
)

// LookupFunc reads an environment variable.
type LookupFunc func(key string) (string, bool)

// InputEnv returns the environment variable GitHub Actions uses to pass the
// named action input.
func InputEnv(name string) string {
	return "INPUT_" + strings.ToUpper(strings.ReplaceAll(name, " ", "_"))
}

// ApplyInputs overlays GitHub Actions inputs and well-known environment
// variables onto cfg. Empty inputs are treated as unset. The result is
// re-validated.
func (c *Config) ApplyInputs(lookup LookupFunc) error {
	input := func(name string) (string, bool) {
		v, ok := lookup(InputEnv(name))
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}
	set := func(name string, dst *string) {
		if v, ok := input(name); ok {
			*dst = v
		}
	}

	set("screenshotsFolder", &c.Upload.ScreenshotsFolder)
	set("clientId", &c.Archive.ClientID)
	set("clientSecret", &c.Archive.ClientSecret)
	set("projectId", &c.Archive.ProjectID)
	set("commitSha", &c.Event.CommitSHA)
	set("compareCommitSha", &c.Event.CompareCommitSHA)
	set("compareBranch", &c.Event.CompareBranch)
	set("branchName", &c.Event.BranchName)
	set("mergedBranch", &c.Event.MergedBranch)
	set("type", &c.Event.Type)
	set("tags", &c.Upload.Tags)
	set("failedTestRegex", &c.Upload.FailedTestRegex)
	set("publisher", &c.Report.Publisher)

	if v, ok := input("comment"); ok {
		comment := strings.EqualFold(v, "true")
		c.Report.Comment = &comment
	}
	if v, ok := input("visualIndex"); ok {
		c.Upload.VisualIndex = strings.EqualFold(v, "true")
	}
	if v, ok := input("extensions"); ok {
		var exts []string
		for _, e := range strings.Split(v, ",") {
			if e = strings.TrimSpace(e); e != "" {
				exts = append(exts, e)
			}
		}
		if len(exts) > 0 {
			c.Upload.Extensions = exts
		}
	}

	if c.GitHub.Token == "" {
		if v, ok := lookup("GITHUB_TOKEN"); ok {
			c.GitHub.Token = v
		}
	}
	if c.GitHub.APIURL == "" {
		if v, ok := lookup("GITHUB_API_URL"); ok {
			c.GitHub.APIURL = v
		}
	}

	return c.Validate()
}
