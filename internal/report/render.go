// Package report renders classified outcomes as a markdown comment.
package report

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jacklau/webshot/internal/outcome"
)

const (
	// Marker identifies report comments so later runs update them in place.
	// It must never change between releases.
	Marker = "<!-- webshot-archive-report -->"

	// LegacyMarker was written by earlier releases.
	LegacyMarker = "<!-- Timechain Uploaded Images Comment -->"

	// MaxSize is GitHub's limit for a comment body.
	MaxSize = 65536

	// shaLength is how many characters of a commit SHA are shown.
	shaLength = 10

	// compareSentinel is stored when the service only signals that a
	// comparison image exists without naming it.
	compareSentinel = "true"

	truncationNote = "\n\n_Report truncated: too many screenshots to list._\n"
)

// Document is a rendered report. It always starts with Marker.
type Document string

// Options locate the hosted images and dashboard.
type Options struct {
	ImageHost    string
	DashboardURL string
	ProjectID    string
}

// DefaultOptions returns the public archive hosts.
func DefaultOptions(projectID string) Options {
	return Options{
		ImageHost:    "https://cdn.webshotarchive.dev",
		DashboardURL: "https://www.webshotarchive.com",
		ProjectID:    projectID,
	}
}

// Render builds the report for outcomes in the given order. Outcomes that
// are not reported (below the diff tolerance) are dropped here. Render is
// deterministic: equal inputs produce byte-identical documents.
func Render(outcomes []outcome.Outcome, message, commitSHA string, opts Options) Document {
	var b strings.Builder
	b.WriteString(Marker)
	b.WriteString("\n\n")

	if message != "" {
		b.WriteString(escapeMarker(message))
		b.WriteString("\n\n")
	}

	var rows []outcome.Outcome
	for _, o := range outcomes {
		if o.Status.Reported() {
			rows = append(rows, o)
		}
	}
	if len(rows) == 0 {
		return Document(b.String())
	}

	b.WriteString("## Uploaded Images\n\n")
	b.WriteString(summaryLine(rows))
	b.WriteString("\n\n| Image | Result |\n| ----- | ------ |\n")
	for _, o := range rows {
		b.WriteString(row(o, commitSHA, opts))
		b.WriteString("\n")
	}

	return truncate(b.String(), MaxSize)
}

// ContainsMarker reports whether body carries the current or legacy marker.
func ContainsMarker(body string) bool {
	return strings.Contains(body, Marker) || strings.Contains(body, LegacyMarker)
}

func summaryLine(rows []outcome.Outcome) string {
	counts := make(map[outcome.Status]int)
	for _, o := range rows {
		counts[o.Status]++
	}
	var parts []string
	for _, s := range outcome.Statuses {
		if n := counts[s]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, s))
		}
	}
	return "**" + strings.Join(parts, " · ") + "**"
}

func row(o outcome.Outcome, commitSHA string, opts Options) string {
	current := image(o.Name, imageURL(opts.ImageHost, o.ImageID, ""))
	left := fmt.Sprintf("%s<br>`%s`", current, cell(o.Path))

	var right []string
	switch o.Status {
	case outcome.StatusFailed:
		right = append(right, "**failed**")
	case outcome.StatusNew:
		right = append(right, "**new**")
	case outcome.StatusDiff:
		right = append(right,
			image(o.Name+" diff", diffURL(opts.ImageHost, o)),
			fmt.Sprintf("**diff** %dpx", o.DiffCount))
	case outcome.StatusError:
		if ref := compareURL(opts.ImageHost, o); ref != "" {
			right = append(right, image(o.Name+" baseline", ref))
		}
		right = append(right, fmt.Sprintf("**error** %s", cell(o.Error)))
	}

	if len(o.Tags) > 0 {
		codes := make([]string, len(o.Tags))
		for i, t := range o.Tags {
			codes[i] = "`" + cell(t) + "`"
		}
		right = append(right, strings.Join(codes, " "))
	}

	if commits := commitLine(commitSHA, o.CompareCommitSHA); commits != "" {
		right = append(right, commits)
	}
	if link := dashboardURL(opts, o, commitSHA); link != "" {
		right = append(right, fmt.Sprintf("[View in Webshot Archive](%s)", link))
	}

	return fmt.Sprintf("| %s | %s |", left, strings.Join(right, "<br>"))
}

func commitLine(current, compare string) string {
	switch {
	case current != "" && compare != "":
		return fmt.Sprintf("`%s` vs `%s`", short(current), short(compare))
	case current != "":
		return fmt.Sprintf("`%s`", short(current))
	default:
		return ""
	}
}

func dashboardURL(opts Options, o outcome.Outcome, commitSHA string) string {
	if opts.DashboardURL == "" || opts.ProjectID == "" || commitSHA == "" {
		return ""
	}

	segments := strings.Split(o.Path, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}

	commits := []string{}
	if o.CompareCommitSHA != "" {
		commits = append(commits, short(o.CompareCommitSHA))
	}
	commits = append(commits, short(commitSHA))

	q := url.Values{}
	q.Set("showDuplicates", "true")
	q.Set("addToCompare", "true")
	q.Set("filterCommit", strings.Join(commits, ","))
	if ts := o.Reference(); !ts.IsZero() {
		q.Set("startDate", ts.UTC().Format(time.RFC3339))
	}

	return fmt.Sprintf("%s/project/dashboard/%s/blob/%s?%s",
		strings.TrimRight(opts.DashboardURL, "/"),
		url.PathEscape(opts.ProjectID),
		strings.Join(segments, "/"),
		q.Encode())
}

func imageURL(host, id, suffix string) string {
	return fmt.Sprintf("%s/api/image/id/%s%s.png", strings.TrimRight(host, "/"), url.PathEscape(id), suffix)
}

func diffURL(host string, o outcome.Outcome) string {
	if isURL(o.DiffImage) {
		return safeURL(o.DiffImage)
	}
	return imageURL(host, o.ImageID, ".diff")
}

func compareURL(host string, o outcome.Outcome) string {
	switch {
	case o.CompareImage == "":
		return ""
	case isURL(o.CompareImage):
		return safeURL(o.CompareImage)
	case o.CompareImage == compareSentinel:
		return diffURL(host, o)
	default:
		return imageURL(host, o.CompareImage, "")
	}
}

func image(alt, src string) string {
	return fmt.Sprintf("![%s](%s)", cell(alt), src)
}

// urlEscaper percent-encodes the characters that would end a markdown link
// target or table cell, or open an HTML comment.
var urlEscaper = strings.NewReplacer(
	" ", "%20",
	"(", "%28",
	")", "%29",
	"<", "%3C",
	">", "%3E",
	"|", "%7C",
	"\r", "",
	"\n", "",
)

// safeURL makes a service-supplied URL safe to embed as a link target.
func safeURL(s string) string {
	return urlEscaper.Replace(s)
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "http://")
}

func short(sha string) string {
	if len(sha) > shaLength {
		return sha[:shaLength]
	}
	return sha
}

// cell makes text safe inside a single markdown table cell.
func cell(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "|", `\|`)
	return escapeMarker(s)
}

// escapeMarker neutralises HTML comment openers so text can never forge
// the report marker.
func escapeMarker(s string) string {
	return strings.ReplaceAll(s, "<!--", "&lt;!--")
}

func truncate(s string, max int) Document {
	if len(s) <= max {
		return Document(s)
	}
	cut := s[:max-len(truncationNote)]
	if i := strings.LastIndex(cut, "\n"); i > 0 {
		cut = cut[:i]
	}
	return Document(cut + truncationNote)
}
