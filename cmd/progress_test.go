package cmd

import (
	"bytes"
	"strings"
	"testing"
)

func TestProgressBar(t *testing.T) {
	var buf bytes.Buffer
	bar := newProgressBar(10, "Uploading", &buf)

	bar.Add(5)
	output := buf.String()

	if !strings.Contains(output, "Uploading") {
		t.Errorf("progress bar output should contain description, got %q", output)
	}
	if !strings.Contains(output, "5/10") {
		t.Errorf("progress bar output should contain count, got %q", output)
	}
	if !strings.Contains(output, " 50%") {
		t.Errorf("progress bar output should contain percentage, got %q", output)
	}
}

func TestProgressBarFinish(t *testing.T) {
	var buf bytes.Buffer
	bar := newProgressBar(5, "Done", &buf)

	bar.Add(3)
	bar.Finish()
	output := buf.String()

	if !strings.Contains(output, "5/5 100%") {
		t.Errorf("finished progress bar should show total/total, got %q", output)
	}
	if !strings.HasSuffix(output, "\n") {
		t.Errorf("finished progress bar should end with newline, got %q", output)
	}
}

func TestProgressBarZeroTotal(t *testing.T) {
	var buf bytes.Buffer
	bar := newProgressBar(0, "Empty", &buf)

	bar.Add(1)
	bar.Finish()

	if buf.String() != "\n" {
		t.Errorf("empty bar should only end the line, got %q", buf.String())
	}
}

func TestProgressBarOverflow(t *testing.T) {
	var buf bytes.Buffer
	bar := newProgressBar(5, "Overflow", &buf)

	bar.Add(10)
	output := buf.String()

	if !strings.Contains(output, "5/5") {
		t.Errorf("overflowed progress bar should cap at total, got %q", output)
	}
}

func TestProgressBarRender(t *testing.T) {
	var buf bytes.Buffer
	bar := newProgressBar(4, "Render", &buf)

	bar.Add(2)
	output := buf.String()

	// 50% of 30 width = 15 '=' characters
	equalCount := strings.Count(output, "=")
	if equalCount != 15 {
		t.Errorf("at 50%% should have 15 '=' chars, got %d in %q", equalCount, output)
	}
}
