package session_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"unwrapped/internal/api"
	"unwrapped/internal/composition"
	"unwrapped/internal/profile"
	"unwrapped/internal/services"
	"unwrapped/internal/session"
	"unwrapped/internal/testsupport"
)

type fakeClient struct {
	mu        sync.Mutex
	submitErr error
	ack       *api.RenderAck
	statuses  []api.JobStatus
	notFound  bool
	submits   []api.RenderRequest
	progress  []api.ProgressRequest
}

func (f *fakeClient) Submit(_ context.Context, req api.RenderRequest) (*api.RenderAck, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits = append(f.submits, req)
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return f.ack, nil
}

func (f *fakeClient) Progress(_ context.Context, req api.ProgressRequest) (*api.JobStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.progress = append(f.progress, req)
	if f.notFound {
		return nil, services.ErrJobNotFound
	}
	idx := len(f.progress) - 1
	if idx >= len(f.statuses) {
		idx = len(f.statuses) - 1
	}
	status := f.statuses[idx]
	return &status, nil
}

func newContext(username string) *session.Context {
	stats := testsupport.SampleStats(username)
	stats.Normalize()
	return session.NewContext(username, &stats)
}

func TestRunSucceedsAfterFailedSubmission(t *testing.T) {
	client := &fakeClient{
		submitErr: services.Wrap(services.ErrSubmission, "renderclient", "submit", "request failed", errors.New("connection refused")),
		statuses:  []api.JobStatus{api.Rendering(0.4), api.Done("x")},
	}
	view, err := session.Run(context.Background(), newContext("Ada"), session.Deps{Client: client}, session.Options{
		PollInterval: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if view.Kind != session.ViewSucceeded || view.URL != "x" {
		t.Fatalf("unexpected view %#v", view)
	}
	if !errors.Is(view.SubmitErr, services.ErrSubmission) {
		t.Fatalf("expected submission error recorded, got %v", view.SubmitErr)
	}
	if len(client.progress) != 2 {
		t.Fatalf("expected 2 progress queries, got %d", len(client.progress))
	}
	if client.progress[0].Username != "Ada" {
		t.Fatalf("expected polling by username, got %#v", client.progress[0])
	}
}

func TestRunSubmitsDerivedParameters(t *testing.T) {
	client := &fakeClient{
		ack:      &api.RenderAck{JobID: "job-7", Username: "ada", State: api.StatePending},
		statuses: []api.JobStatus{api.Done("https://cdn.example.com/ada.mp4")},
	}
	sc := newContext("ada")
	rocket := composition.RocketOrange
	view, err := session.Run(context.Background(), sc, session.Deps{Client: client}, session.Options{
		Ordering:     session.OrderAfterSubmit,
		PollInterval: time.Millisecond,
		Rocket:       &rocket,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if view.Kind != session.ViewSucceeded || view.Ack == nil || view.Ack.JobID != "job-7" {
		t.Fatalf("unexpected view %#v", view)
	}
	if len(client.submits) != 1 {
		t.Fatalf("expected one submission, got %d", len(client.submits))
	}
	var submitted composition.Parameters
	if err := json.Unmarshal(client.submits[0].InputProps, &submitted); err != nil {
		t.Fatalf("decode props: %v", err)
	}
	if submitted.Rocket == nil || *submitted.Rocket != rocket {
		t.Fatalf("expected rocket override, got %v", submitted.Rocket)
	}
	if client.progress[0].JobID != "job-7" {
		t.Fatalf("expected polling by job id after submit, got %#v", client.progress[0])
	}
}

func TestRunNotFoundWithoutStats(t *testing.T) {
	client := &fakeClient{}
	view, err := session.Run(context.Background(), session.NewContext("ghost", nil), session.Deps{Client: client}, session.Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if view.Kind != session.ViewNotFound || !errors.Is(view.Err(), services.ErrNoData) {
		t.Fatalf("unexpected view %#v", view)
	}
	if len(client.submits) != 0 {
		t.Fatal("expected no submission without stats")
	}
}

func TestRunFailedWhenJobUnknown(t *testing.T) {
	client := &fakeClient{submitErr: services.ErrSubmission, notFound: true}
	view, err := session.Run(context.Background(), newContext("ada"), session.Deps{Client: client}, session.Options{
		PollInterval: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if view.Kind != session.ViewFailed || !errors.Is(view.Err(), services.ErrJobNotFound) {
		t.Fatalf("unexpected view %#v", view)
	}
}

func TestRunFailedJob(t *testing.T) {
	client := &fakeClient{
		ack:      &api.RenderAck{JobID: "job-1"},
		statuses: []api.JobStatus{api.Failed("renderer exited 1")},
	}
	view, err := session.Run(context.Background(), newContext("ada"), session.Deps{Client: client}, session.Options{
		PollInterval: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if view.Kind != session.ViewFailed || view.Error != "renderer exited 1" || !errors.Is(view.Err(), services.ErrJobFailed) {
		t.Fatalf("unexpected view %#v", view)
	}
}

func TestRunPendingOnCancel(t *testing.T) {
	client := &fakeClient{
		ack:      &api.RenderAck{JobID: "job-1"},
		statuses: []api.JobStatus{api.Rendering(0.2)},
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	view, err := session.Run(ctx, newContext("ada"), session.Deps{Client: client}, session.Options{
		PollInterval: 5 * time.Millisecond,
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if view.Kind != session.ViewPending {
		t.Fatalf("expected pending view, got %s", view.Kind)
	}
}

func TestRunSubmitsOnce(t *testing.T) {
	client := &fakeClient{ack: &api.RenderAck{JobID: "job-1"}, statuses: []api.JobStatus{api.Done("x")}}
	sc := newContext("ada")
	opts := session.Options{PollInterval: time.Millisecond}
	if _, err := session.Run(context.Background(), sc, session.Deps{Client: client}, opts); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if _, err := session.Run(context.Background(), sc, session.Deps{Client: client}, opts); !errors.Is(err, session.ErrAlreadySubmitted) {
		t.Fatalf("expected ErrAlreadySubmitted, got %v", err)
	}
}

func TestLoadReadsProfileOnce(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteProfile(t, cfg, testsupport.SampleStats("Ada"))

	sc, err := session.Load(context.Background(), profile.NewDirSource(cfg.Profiles.Dir), "Ada")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	stats := sc.Stats()
	if stats == nil || stats.LowercasedUsername != "ada" {
		t.Fatalf("unexpected stats %#v", stats)
	}
	first := sc.Parameters()
	if first == nil || sc.Parameters() != first {
		t.Fatal("expected memoized parameters within the session")
	}

	sc.Close()
	if sc.Stats() != nil {
		t.Fatal("expected stats discarded after Close")
	}
	if _, err := session.Run(context.Background(), sc, session.Deps{Client: &fakeClient{}}, session.Options{}); !errors.Is(err, session.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestLoadMissingProfile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	sc, err := session.Load(context.Background(), profile.NewDirSource(cfg.Profiles.Dir), "nobody")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if sc.Stats() != nil || sc.Parameters() != nil {
		t.Fatal("expected no data for missing profile")
	}
}
