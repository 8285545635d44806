package ocr

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cuemby/dd214pipeline/pkg/types"
)

// jobLifecycleServer simulates a Textract-shaped async OCR service: the
// first poll reports pending, the second reports succeeded, and results
// are split across two pages joined by a continuation token.
func jobLifecycleServer(t *testing.T) *httptest.Server {
	t.Helper()
	polls := 0
	mux := http.NewServeMux()

	mux.HandleFunc("/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s on /jobs", r.Method)
		}
		var req startRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding start request: %v", err)
		}
		if req.Key == "" {
			t.Error("start request carried no key")
		}
		json.NewEncoder(w).Encode(startResponse{JobID: "job-abc"})
	})

	mux.HandleFunc("/jobs/job-abc", func(w http.ResponseWriter, r *http.Request) {
		polls++
		if polls == 1 {
			json.NewEncoder(w).Encode(statusResponse{Status: "PENDING"})
			return
		}
		json.NewEncoder(w).Encode(statusResponse{Status: "SUCCEEDED"})
	})

	mux.HandleFunc("/jobs/job-abc/results", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("next_token") == "" {
			json.NewEncoder(w).Encode(fetchResponse{
				Blocks:    []Block{{Type: BlockLine, Text: "first page"}},
				NextToken: "page-2",
			})
			return
		}
		json.NewEncoder(w).Encode(fetchResponse{
			Blocks: []Block{{Type: BlockLine, Text: "second page"}},
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPTransportStartReturnsJobID(t *testing.T) {
	srv := jobLifecycleServer(t)
	transport := NewHTTPTransport(srv.URL, "")

	handle, err := transport.Start(context.Background(), types.SourceRef{Bucket: "uploads", Key: "owner-1/123_doc-1.pdf"})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if handle != "job-abc" {
		t.Errorf("handle = %q, want job-abc", handle)
	}
}

func TestHTTPTransportPollReportsPendingThenSucceeded(t *testing.T) {
	srv := jobLifecycleServer(t)
	transport := NewHTTPTransport(srv.URL, "")

	status, _, err := transport.Poll(context.Background(), "job-abc")
	if err != nil {
		t.Fatalf("first Poll() error = %v", err)
	}
	if status != StatusPending {
		t.Errorf("first status = %v, want StatusPending", status)
	}

	status, _, err = transport.Poll(context.Background(), "job-abc")
	if err != nil {
		t.Fatalf("second Poll() error = %v", err)
	}
	if status != StatusSucceeded {
		t.Errorf("second status = %v, want StatusSucceeded", status)
	}
}

func TestHTTPTransportPollReportsFailureReason(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/jobs/job-bad", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(statusResponse{Status: "FAILED", Reason: "unsupported document format"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	transport := NewHTTPTransport(srv.URL, "")
	status, reason, err := transport.Poll(context.Background(), "job-bad")
	if err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	if status != StatusFailed {
		t.Errorf("status = %v, want StatusFailed", status)
	}
	if reason != "unsupported document format" {
		t.Errorf("reason = %q, want the failure message", reason)
	}
}

func TestHTTPTransportFetchPagePaginatesUntilTokenAbsent(t *testing.T) {
	srv := jobLifecycleServer(t)
	transport := NewHTTPTransport(srv.URL, "")

	var all []Block
	token := ""
	for {
		blocks, next, err := transport.FetchPage(context.Background(), "job-abc", token)
		if err != nil {
			t.Fatalf("FetchPage() error = %v", err)
		}
		all = append(all, blocks...)
		if next == "" {
			break
		}
		token = next
	}

	if len(all) != 2 {
		t.Fatalf("got %d blocks, want 2", len(all))
	}
	if all[0].Text != "first page" || all[1].Text != "second page" {
		t.Errorf("blocks = %+v, want first page then second page in order", all)
	}
}

func TestHTTPTransportSendsBearerToken(t *testing.T) {
	var gotAuth string
	mux := http.NewServeMux()
	mux.HandleFunc("/jobs", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(startResponse{JobID: "job-1"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	transport := NewHTTPTransport(srv.URL, "secret-key")
	if _, err := transport.Start(context.Background(), types.SourceRef{Bucket: "uploads", Key: "owner-1/123_doc-1.pdf"}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if gotAuth != "Bearer secret-key" {
		t.Errorf("Authorization header = %q, want Bearer secret-key", gotAuth)
	}
}

func TestHTTPTransportNonSuccessStatusIsError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/jobs/missing", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	transport := NewHTTPTransport(srv.URL, "")
	_, _, err := transport.Poll(context.Background(), "missing")
	if err == nil {
		t.Fatal("expected an error for a 404 response")
	}
	if !strings.Contains(err.Error(), "404") {
		t.Errorf("error = %v, want it to mention the status code", err)
	}
}
