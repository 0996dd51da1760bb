package report

import (
	"strings"
	"testing"
	"time"

	"github.com/jacklau/webshot/internal/outcome"
)

const (
	headSHA    = "7f6e1ce5750902207e95e22eea01326964ac548a"
	compareSHA = "22325935ad59e1853891831fdbd6982d32808703"
)

func sampleOutcomes() []outcome.Outcome {
	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	compared := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return []outcome.Outcome{
		{ImageID: "img-failed", Name: "login (failed).png", Path: "auth/login (failed).png", Status: outcome.StatusFailed, Tags: []string{"failed"}, CreatedAt: created},
		{ImageID: "img-new", Name: "home.png", Path: "home.png", Status: outcome.StatusNew, Tags: []string{"home", "mobile"}, CreatedAt: created},
		{ImageID: "img-diff", Name: "api.png", Path: "dist/api tags--tutorial--/api.png", Status: outcome.StatusDiff, DiffCount: 55, CompareImage: "cmp-1", CompareCommitSHA: compareSHA, CompareImageTimestamp: &compared, CreatedAt: created},
		{ImageID: "img-error", Name: "foo.png", Path: "foo.png", Status: outcome.StatusError, Error: "Image sizes | do not match", DiffCount: 55, CompareImage: "cmp-2", CompareCommitSHA: compareSHA, CreatedAt: created},
		{ImageID: "img-same", Name: "same.png", Path: "same.png", Status: outcome.StatusUnchanged, DiffCount: 1, MinDiffPixelsToIgnore: 5, CompareImage: "cmp-3"},
	}
}

func TestRenderDeterministic(t *testing.T) {
	opts := DefaultOptions("proj")
	a := Render(sampleOutcomes(), "hello", headSHA, opts)
	b := Render(sampleOutcomes(), "hello", headSHA, opts)
	if a != b {
		t.Fatal("Render() is not deterministic")
	}
}

func TestRenderRows(t *testing.T) {
	doc := string(Render(sampleOutcomes(), "", headSHA, DefaultOptions("proj")))

	if !strings.HasPrefix(doc, Marker) {
		t.Error("document must start with the marker")
	}
	if n := strings.Count(doc, Marker); n != 1 {
		t.Errorf("marker appears %d times, want 1", n)
	}

	rows := tableRows(doc)
	if len(rows) != 4 {
		t.Fatalf("expected 4 rows (unchanged filtered), got %d:\n%s", len(rows), doc)
	}
	for i, want := range []string{"**failed**", "**new**", "**diff** 55px", "**error**"} {
		if !strings.Contains(rows[i], want) {
			t.Errorf("row %d missing %q: %s", i, want, rows[i])
		}
	}
	if strings.Contains(doc, "same.png") {
		t.Error("unchanged outcome must not be rendered")
	}

	if !strings.Contains(rows[1], "`home` `mobile`") {
		t.Errorf("tags not rendered as inline code: %s", rows[1])
	}
	if !strings.Contains(rows[2], "https://cdn.webshotarchive.dev/api/image/id/img-diff.diff.png") {
		t.Errorf("diff image missing: %s", rows[2])
	}
	if !strings.Contains(rows[2], "`7f6e1ce575` vs `22325935ad`") {
		t.Errorf("truncated SHAs missing: %s", rows[2])
	}
	if !strings.Contains(rows[3], "https://cdn.webshotarchive.dev/api/image/id/cmp-2.png") {
		t.Errorf("error row should show the baseline image: %s", rows[3])
	}
	if !strings.Contains(rows[3], `Image sizes \| do not match`) {
		t.Errorf("error text not escaped verbatim: %s", rows[3])
	}
	if !strings.Contains(doc, "**1 failed · 1 error · 1 diff · 1 new**") {
		t.Errorf("summary line missing:\n%s", doc)
	}
}

func TestRenderDashboardLink(t *testing.T) {
	doc := string(Render(sampleOutcomes(), "", headSHA, DefaultOptions("proj")))
	rows := tableRows(doc)

	wantDiff := "https://www.webshotarchive.com/project/dashboard/proj/blob/dist/api%20tags--tutorial--/api.png?" +
		"addToCompare=true&filterCommit=22325935ad%2C7f6e1ce575&showDuplicates=true&startDate=2025-01-01T00%3A00%3A00Z"
	if !strings.Contains(rows[2], wantDiff) {
		t.Errorf("diff link = %s\nwant %s", rows[2], wantDiff)
	}

	wantNew := "filterCommit=7f6e1ce575&showDuplicates=true&startDate=2025-01-02T03%3A04%3A05Z"
	if !strings.Contains(rows[1], wantNew) {
		t.Errorf("new image link should use creation time: %s", rows[1])
	}

	noLinks := string(Render(sampleOutcomes(), "", "", DefaultOptions("proj")))
	if strings.Contains(noLinks, "View in Webshot Archive") {
		t.Error("no dashboard link expected without a commit SHA")
	}
}

func TestRenderEmpty(t *testing.T) {
	doc := string(Render(nil, "No new screenshots found", headSHA, DefaultOptions("proj")))
	if doc != Marker+"\n\nNo new screenshots found\n\n" {
		t.Errorf("unexpected empty document: %q", doc)
	}

	onlySuppressed := []outcome.Outcome{{Status: outcome.StatusUnchanged, Path: "x.png"}}
	doc = string(Render(onlySuppressed, "", headSHA, DefaultOptions("proj")))
	if doc != Marker+"\n\n" {
		t.Errorf("unexpected document: %q", doc)
	}
}

func TestRenderEscapesMarkerInMessage(t *testing.T) {
	doc := string(Render(nil, "spoof "+Marker+" and "+LegacyMarker, headSHA, DefaultOptions("p")))
	if n := strings.Count(doc, Marker); n != 1 {
		t.Errorf("marker appears %d times, want 1", n)
	}
	if strings.Contains(doc, LegacyMarker) {
		t.Error("legacy marker must be escaped")
	}
}

func TestRenderCompareSentinelAndURLs(t *testing.T) {
	outcomes := []outcome.Outcome{
		{ImageID: "a", Name: "a.png", Path: "a.png", Status: outcome.StatusError, Error: "x", CompareImage: "true"},
		{ImageID: "b", Name: "b.png", Path: "b.png", Status: outcome.StatusDiff, DiffCount: 9, DiffImage: "https://img.example/b.diff.png"},
	}
	doc := string(Render(outcomes, "", headSHA, Options{ImageHost: "https://cdn.example/"}))
	if !strings.Contains(doc, "https://cdn.example/api/image/id/a.diff.png") {
		t.Errorf("sentinel compare image should fall back to the diff image:\n%s", doc)
	}
	if !strings.Contains(doc, "(https://img.example/b.diff.png)") {
		t.Errorf("absolute diff image URL should be used as is:\n%s", doc)
	}
}

func TestRenderEscapesServiceURLs(t *testing.T) {
	outcomes := []outcome.Outcome{
		{ImageID: "d", Name: "d.png", Path: "d.png", Status: outcome.StatusDiff, DiffCount: 3,
			DiffImage: "https://cdn.example/x.png) " + Marker},
		{ImageID: "e", Name: "e.png", Path: "e.png", Status: outcome.StatusError, Error: "size mismatch",
			CompareImage: "https://cdn.example/base (1).png|" + LegacyMarker},
		{ImageID: "s", Name: "s.png", Path: "s.png", Status: outcome.StatusUnchanged, CompareImage: "cmp"},
	}
	doc := string(Render(outcomes, "", headSHA, DefaultOptions("p")))

	if n := strings.Count(doc, Marker); n != 1 {
		t.Errorf("marker appears %d times, want 1:\n%s", n, doc)
	}
	if strings.Contains(doc, LegacyMarker) {
		t.Errorf("legacy marker leaked through a service URL:\n%s", doc)
	}
	if !strings.Contains(doc, "(https://cdn.example/x.png%29%20%3C!--") {
		t.Errorf("diff URL should be percent-encoded:\n%s", doc)
	}
	if !strings.Contains(doc, "(https://cdn.example/base%20%281%29.png%7C%3C!--") {
		t.Errorf("compare URL should be percent-encoded:\n%s", doc)
	}
}

func TestTruncate(t *testing.T) {
	var outcomes []outcome.Outcome
	for i := 0; i < 2000; i++ {
		outcomes = append(outcomes, outcome.Outcome{
			ImageID: strings.Repeat("x", 20), Name: "n.png", Path: strings.Repeat("p", 30) + ".png",
			Status: outcome.StatusNew,
		})
	}
	doc := string(Render(outcomes, "", headSHA, DefaultOptions("proj")))
	if len(doc) > MaxSize {
		t.Errorf("document is %d bytes, limit %d", len(doc), MaxSize)
	}
	if !strings.HasSuffix(doc, truncationNote) {
		t.Error("expected truncation note")
	}
	if !strings.HasPrefix(doc, Marker) {
		t.Error("truncated document lost its marker")
	}
}

func TestContainsMarker(t *testing.T) {
	if !ContainsMarker("x " + LegacyMarker) {
		t.Error("legacy marker not detected")
	}
	if !ContainsMarker(Marker) {
		t.Error("marker not detected")
	}
	if ContainsMarker("plain comment") {
		t.Error("unexpected marker match")
	}
}

func tableRows(doc string) []string {
	var rows []string
	for _, line := range strings.Split(doc, "\n") {
		if strings.HasPrefix(line, "| ") && !strings.HasPrefix(line, "| Image") && !strings.HasPrefix(line, "| -----") {
			rows = append(rows, line)
		}
	}
	return rows
}
