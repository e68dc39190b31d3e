package renderclient_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"unwrapped/internal/api"
	"unwrapped/internal/renderclient"
	"unwrapped/internal/services"
)

func TestSubmitPostsRequestWithToken(t *testing.T) {
	var gotAuth string
	var gotBody api.RenderRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/render" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(api.RenderAck{JobID: "job-1", Username: gotBody.Username, State: api.StatePending})
	}))
	defer srv.Close()

	client := renderclient.New(srv.URL+"/", renderclient.WithToken("secret"))
	ack, err := client.Submit(context.Background(), api.RenderRequest{
		InputProps: json.RawMessage(`{"login":"ada"}`),
		Username:   "ada",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if ack.JobID != "job-1" || ack.State != api.StatePending {
		t.Fatalf("unexpected ack %#v", ack)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("expected bearer token, got %q", gotAuth)
	}
	if gotBody.Username != "ada" || string(gotBody.InputProps) != `{"login":"ada"}` {
		t.Fatalf("unexpected body %#v", gotBody)
	}
}

func TestSubmitFailureIsSubmissionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(api.ErrorResponse{Error: "username is required"})
	}))
	defer srv.Close()

	client := renderclient.New(srv.URL)
	_, err := client.Submit(context.Background(), api.RenderRequest{InputProps: json.RawMessage(`{}`), Username: "ada"})
	if !errors.Is(err, services.ErrSubmission) {
		t.Fatalf("expected ErrSubmission, got %v", err)
	}
}

func TestSubmitTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := renderclient.New(url)
	ack, err := renderclient.SubmitBestEffort(context.Background(), client, api.RenderRequest{
		InputProps: json.RawMessage(`{}`),
		Username:   "ada",
	}, nil)
	if ack != nil {
		t.Fatalf("expected no ack, got %#v", ack)
	}
	if !errors.Is(err, services.ErrSubmission) {
		t.Fatalf("expected ErrSubmission, got %v", err)
	}
}

func TestProgressStates(t *testing.T) {
	replies := map[string]any{
		"pending":   api.Pending(),
		"rendering": api.Rendering(0.4),
		"done":      api.Done("https://cdn.example.com/ada.mp4"),
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req api.ProgressRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		reply, ok := replies[req.Username]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(api.ErrorResponse{Error: "render job not found"})
			return
		}
		_ = json.NewEncoder(w).Encode(reply)
	}))
	defer srv.Close()
	client := renderclient.New(srv.URL)

	tests := []struct {
		username string
		state    api.JobState
		progress float64
		url      string
	}{
		{username: "pending", state: api.StatePending},
		{username: "rendering", state: api.StateRendering, progress: 0.4},
		{username: "done", state: api.StateDone, url: "https://cdn.example.com/ada.mp4"},
	}
	for _, tt := range tests {
		t.Run(tt.username, func(t *testing.T) {
			status, err := client.Progress(context.Background(), api.ProgressRequest{Username: tt.username})
			if err != nil {
				t.Fatalf("Progress: %v", err)
			}
			if status.State != tt.state || status.Fraction() != tt.progress || status.URL != tt.url {
				t.Fatalf("unexpected status %#v", status)
			}
		})
	}

	_, err := client.Progress(context.Background(), api.ProgressRequest{Username: "nobody"})
	if !errors.Is(err, services.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestProgressRequiresReference(t *testing.T) {
	client := renderclient.New("http://127.0.0.1:1")
	if _, err := client.Progress(context.Background(), api.ProgressRequest{}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
