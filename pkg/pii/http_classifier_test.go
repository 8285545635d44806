package pii

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPClassifierReturnsFindings(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/classify", func(w http.ResponseWriter, r *http.Request) {
		var req classifyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if req.Text != "John Smith lives at 123 Main St" {
			t.Errorf("text = %q, want the sent text", req.Text)
		}
		json.NewEncoder(w).Encode(classifyResponse{
			Findings: []ClassifierFinding{{Kind: "NAME", Start: 0, End: 10, Confidence: 0.92}},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	classifier := NewHTTPClassifier(srv.URL, "")
	findings, err := classifier.Detect(context.Background(), "John Smith lives at 123 Main St")
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if len(findings) != 1 || findings[0].Kind != "NAME" {
		t.Errorf("findings = %+v, want one NAME finding", findings)
	}
}

func TestHTTPClassifierNonSuccessStatusIsError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/classify", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	classifier := NewHTTPClassifier(srv.URL, "")
	_, err := classifier.Detect(context.Background(), "text")
	if err == nil {
		t.Fatal("expected an error for a 503 response")
	}
}

func TestHTTPClassifierSendsBearerToken(t *testing.T) {
	var gotAuth string
	mux := http.NewServeMux()
	mux.HandleFunc("/classify", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(classifyResponse{})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	classifier := NewHTTPClassifier(srv.URL, "top-secret")
	if _, err := classifier.Detect(context.Background(), "text"); err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if gotAuth != "Bearer top-secret" {
		t.Errorf("Authorization header = %q, want Bearer top-secret", gotAuth)
	}
}
