package workflow

import (
	"context"

	"unwrapped/internal/logging"
	"unwrapped/internal/queue"
)

// StatusSummary represents lightweight workflow diagnostics.
type StatusSummary struct {
	Running    bool
	LastError  string
	CurrentJob *queue.Job
	LastJob    *queue.Job
	JobStats   map[queue.Status]int
}

// Status returns the latest workflow information.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	summary := StatusSummary{Running: m.running}
	if m.lastErr != nil {
		summary.LastError = m.lastErr.Error()
	}
	summary.CurrentJob = copyJob(m.currentJob)
	summary.LastJob = copyJob(m.lastJob)
	m.mu.RUnlock()

	stats, err := m.store.Stats(ctx)
	if err != nil {
		m.logger.Warn("failed to read job stats", logging.Error(err))
	}
	summary.JobStats = stats
	return summary
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setCurrentJob(job *queue.Job) {
	m.mu.Lock()
	m.currentJob = copyJob(job)
	m.mu.Unlock()
}

func (m *Manager) recordFinished(ctx context.Context, id string) {
	job, err := m.store.GetByID(ctx, id)
	if err != nil || job == nil {
		return
	}
	m.mu.Lock()
	m.lastJob = job
	m.mu.Unlock()
}

func copyJob(job *queue.Job) *queue.Job {
	if job == nil {
		return nil
	}
	clone := *job
	return &clone
}
