package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jacklau/webshot/internal/outcome"
)

func testSummary() Summary {
	return Summary{
		Repository:       "owner/repo",
		Branch:           "feature",
		CommitSHA:        "7f6e1ce5751a",
		CompareCommitSHA: "22325935ad00",
		EventKind:        "push",
		PRNumber:         42,
		Counts: map[outcome.Status]int{
			outcome.StatusFailed: 1,
			outcome.StatusNew:    2,
		},
		Duration: 3 * time.Second,
	}
}

func TestBuildSlackPayload_Structure(t *testing.T) {
	payload := BuildSlackPayload(testSummary())

	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("failed to marshal payload: %v", err)
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("failed to unmarshal payload: %v", err)
	}

	blocks, ok := parsed["blocks"].([]interface{})
	if !ok {
		t.Fatal("expected blocks array")
	}
	if len(blocks) != 4 {
		t.Fatalf("expected 4 blocks, got %d", len(blocks))
	}

	header := blocks[0].(map[string]interface{})
	if header["type"] != "header" {
		t.Errorf("expected header block, got %q", header["type"])
	}
	headerText := header["text"].(map[string]interface{})
	if headerText["text"] != "Visual changes in owner/repo #42" {
		t.Errorf("unexpected header text: %v", headerText["text"])
	}

	counts := blocks[1].(map[string]interface{})["text"].(map[string]interface{})["text"].(string)
	if !strings.Contains(counts, "1 failed, 2 new") {
		t.Errorf("counts block = %q", counts)
	}

	commits := blocks[2].(map[string]interface{})["text"].(map[string]interface{})["text"].(string)
	if !strings.Contains(commits, "`7f6e1ce` vs `2232593`") {
		t.Errorf("commits block = %q", commits)
	}

	link := blocks[3].(map[string]interface{})["text"].(map[string]interface{})["text"].(string)
	if link != ":link: <https://github.com/owner/repo/pull/42|#42>" {
		t.Errorf("link block = %q", link)
	}
}

func TestSlackNotifier_Notify_Success(t *testing.T) {
	var gotBody []byte
	var gotContentType, gotMethod string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		gotMethod = r.Method
		var err error
		gotBody, err = io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("reading request body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier := NewSlackNotifier(server.URL)
	if err := notifier.Notify(context.Background(), testSummary()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotMethod != http.MethodPost {
		t.Errorf("expected POST method, got %q", gotMethod)
	}
	if gotContentType != "application/json" {
		t.Errorf("expected Content-Type 'application/json', got %q", gotContentType)
	}

	var payload slackPayload
	if err := json.Unmarshal(gotBody, &payload); err != nil {
		t.Fatalf("request body is not valid slack payload JSON: %v", err)
	}
	if len(payload.Blocks) != 4 {
		t.Errorf("expected 4 blocks, got %d", len(payload.Blocks))
	}
}

func TestSlackNotifier_Notify_RetriesOnce(t *testing.T) {
	var callCount atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		callCount.Add(1)
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("bad gateway"))
	}))
	defer server.Close()

	notifier := NewSlackNotifier(server.URL)
	err := notifier.Notify(context.Background(), testSummary())
	if err == nil {
		t.Fatal("expected error on non-200 response")
	}
	if !strings.Contains(err.Error(), "502") {
		t.Errorf("expected status in error, got %v", err)
	}
	if got := callCount.Load(); got != 2 {
		t.Errorf("expected 2 calls, got %d", got)
	}
}

func TestSlackNotifier_Notify_RecoversOnRetry(t *testing.T) {
	var callCount atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if callCount.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier := NewSlackNotifier(server.URL)
	if err := notifier.Notify(context.Background(), testSummary()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSlackNotifier_Notify_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier := NewSlackNotifier(server.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := notifier.Notify(ctx, testSummary()); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

func TestSlackNotifier_ClientTimeout(t *testing.T) {
	notifier := NewSlackNotifier("http://example.com")
	if notifier.client.Timeout != 10*time.Second {
		t.Errorf("expected client timeout of 10s, got %v", notifier.client.Timeout)
	}
}

func TestSlackNotifier_Notify_TimesOut(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping timeout test in short mode")
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier := &SlackNotifier{
		webhookURL: server.URL,
		client: &http.Client{
			Timeout: 50 * time.Millisecond,
		},
	}

	err := notifier.Notify(context.Background(), testSummary())
	if err == nil {
		t.Fatal("expected timeout error, got nil")
	}

	errStr := err.Error()
	if !strings.Contains(errStr, "Client.Timeout") && !strings.Contains(errStr, "deadline exceeded") {
		t.Errorf("expected timeout-related error, got: %v", err)
	}
}
