package cmd

import (
	"fmt"
	"strings"
)

// parseRepoArg splits an "owner/repo" string and returns owner and repo.
func parseRepoArg(repoArg string) (owner, repo string, err error) {
	parts := strings.SplitN(repoArg, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repo format: expected owner/repo, got %q", repoArg)
	}
	return parts[0], parts[1], nil
}

// prRef renders a pull request number for tables, "-" when absent.
func prRef(n int) string {
	if n <= 0 {
		return "-"
	}
	return fmt.Sprintf("#%d", n)
}

// orDash returns s, or "-" when s is empty.
func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
