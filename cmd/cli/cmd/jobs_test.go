package cmd

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tmplq/pkg/api"
)

func TestJobsCommand(t *testing.T) {
	resetViper()

	now := time.Now()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/jobs" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		json.NewEncoder(w).Encode([]api.JobSummary{
			{ID: 1, TemplateID: "badge", Status: "SUCCEEDED", EnqueuedAt: now},
			{ID: 2, TemplateID: "greeting", Status: "QUEUED", EnqueuedAt: now},
		})
	}))
	defer server.Close()

	output, err := execute(t, server.URL, "jobs")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"JOB ID", "badge", "SUCCEEDED", "greeting", "QUEUED"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %s", want, output)
		}
	}

	resetViper()
	output, err = execute(t, server.URL, "jobs", "--status", "QUEUED")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(output, "badge") || !strings.Contains(output, "greeting") {
		t.Errorf("expected only queued jobs, got: %s", output)
	}

	resetViper()
	output, err = execute(t, server.URL, "jobs", "--status", "FAILED")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(output, "No jobs found") {
		t.Errorf("expected empty message, got: %s", output)
	}
}

func TestHistoryCommand(t *testing.T) {
	resetViper()

	now := time.Now()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/history" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		json.NewEncoder(w).Encode([]api.HistoryEntry{
			{
				JobSummary: api.JobSummary{ID: 9, TemplateID: "gone", Status: "FAILED", EnqueuedAt: now, DoneAt: &now},
				Error:      &api.JobError{Kind: "render_error", Message: "template missing"},
			},
			{
				JobSummary: api.JobSummary{ID: 8, TemplateID: "badge", Status: "SUCCEEDED", EnqueuedAt: now, DoneAt: &now},
				DurationMs: 750,
				Preview:    "[VIP] N/A",
			},
		})
	}))
	defer server.Close()

	output, err := execute(t, server.URL, "history")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"render_error: template missing", "[VIP] N/A", "750ms"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %s", want, output)
		}
	}
	if strings.Index(output, "gone") > strings.Index(output, "badge") {
		t.Errorf("expected server order to be kept, got: %s", output)
	}
}

func TestHistoryCommand_Empty(t *testing.T) {
	resetViper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("[]"))
	}))
	defer server.Close()

	output, err := execute(t, server.URL, "history")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(output, "No finished jobs yet") {
		t.Errorf("expected empty message, got: %s", output)
	}
}
