package testsupport

import (
	"context"
	"encoding/json"
	"testing"

	"unwrapped/internal/config"
	"unwrapped/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewJob enqueues a pending job with trivial parameters.
func NewJob(t testing.TB, store *queue.Store, username, fingerprint string) *queue.Job {
	t.Helper()

	params, _ := json.Marshal(map[string]string{"login": username})
	job, err := store.Enqueue(context.Background(), queue.NewJob{
		Username:    username,
		Fingerprint: fingerprint,
		ParamsJSON:  string(params),
	})
	if err != nil {
		t.Fatalf("store.Enqueue: %v", err)
	}
	return job
}
