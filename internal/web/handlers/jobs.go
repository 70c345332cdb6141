package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/kozaktomas/photo-moments/internal/constants"
)

// JobStatus represents the status of an async job.
type JobStatus string

// JobStatus constants define the lifecycle states of an async job.
const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// isJobTerminal returns true if the job status is a terminal state
func isJobTerminal(status JobStatus) bool {
	return status == JobStatusCompleted || status == JobStatusFailed || status == JobStatusCancelled
}

// JobEvent represents an event from a job.
type JobEvent struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// ProgressData is the payload of a "progress" event.
type ProgressData struct {
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
	Phase     string `json:"phase"`
}

// AnalysisSummary is the result of a finished analysis job.
type AnalysisSummary struct {
	Reused       bool          `json:"reused"`
	Clusters     int           `json:"clusters"`
	Photos       int           `json:"photos"`
	Screenshots  int           `json:"screenshots"`
	Unscored     int           `json:"unscored"`
	Important    int           `json:"important_moments"`
	PersistError string        `json:"persist_error,omitempty"`
	Duration     time.Duration `json:"duration"`
}

// EventBroadcaster provides listener management and event broadcasting for async jobs.
// Embed this in job structs to get AddListener, RemoveListener, and SendEvent methods.
type EventBroadcaster struct {
	cancel    context.CancelFunc
	listeners []chan JobEvent
	mu        sync.RWMutex
}

// AddListener adds an event listener.
func (b *EventBroadcaster) AddListener() chan JobEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan JobEvent, constants.EventChannelBuffer)
	b.listeners = append(b.listeners, ch)
	return ch
}

// RemoveListener removes an event listener.
func (b *EventBroadcaster) RemoveListener(ch chan JobEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, listener := range b.listeners {
		if listener == ch {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			close(ch)
			return
		}
	}
}

// SendEvent sends an event to all listeners.
func (b *EventBroadcaster) SendEvent(event JobEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, listener := range b.listeners {
		select {
		case listener <- event:
		default:
			// Listener buffer full, skip.
		}
	}
}

// SSEJob is the interface required by streamSSEEvents to stream job events via SSE.
type SSEJob interface {
	AddListener() chan JobEvent
	RemoveListener(ch chan JobEvent)
	GetStatus() JobStatus
}

// AnalysisJob is one background analysis run.
type AnalysisJob struct {
	EventBroadcaster

	id          string
	force       bool
	status      JobStatus
	progress    ProgressData
	err         string
	startedAt   time.Time
	completedAt *time.Time
	result      *AnalysisSummary
}

// JobView is the JSON form of an AnalysisJob.
type JobView struct {
	ID          string           `json:"id"`
	Force       bool             `json:"force"`
	Status      JobStatus        `json:"status"`
	Progress    ProgressData     `json:"progress"`
	Error       string           `json:"error,omitempty"`
	StartedAt   time.Time        `json:"started_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
	Result      *AnalysisSummary `json:"result,omitempty"`
}

// ID returns the job identifier.
func (j *AnalysisJob) ID() string {
	return j.id
}

// GetStatus returns the current job status (implements SSEJob).
func (j *AnalysisJob) GetStatus() JobStatus {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.status
}

// View returns a consistent copy of the job state.
func (j *AnalysisJob) View() JobView {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return JobView{
		ID:          j.id,
		Force:       j.force,
		Status:      j.status,
		Progress:    j.progress,
		Error:       j.err,
		StartedAt:   j.startedAt,
		CompletedAt: j.completedAt,
		Result:      j.result,
	}
}

// Cancel cancels the job via context and sends a cancelled event.
func (j *AnalysisJob) Cancel() {
	j.mu.Lock()
	if isJobTerminal(j.status) {
		j.mu.Unlock()
		return
	}
	j.status = JobStatusCancelled
	j.finishLocked()
	cancel := j.cancel
	j.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	j.SendEvent(JobEvent{Type: "cancelled", Message: "Job cancelled by user"})
}

// start moves the job to running. It returns false when the job was
// cancelled before it started.
func (j *AnalysisJob) start(cancel context.CancelFunc) bool {
	j.mu.Lock()
	j.cancel = cancel
	cancelled := j.status == JobStatusCancelled
	if !cancelled {
		j.status = JobStatusRunning
	}
	j.mu.Unlock()
	if cancelled {
		cancel()
		return false
	}
	j.SendEvent(JobEvent{Type: "started", Message: "Analysis started"})
	return true
}

func (j *AnalysisJob) setProgress(completed, total int, phase string) {
	data := ProgressData{Completed: completed, Total: total, Phase: phase}
	j.mu.Lock()
	j.progress = data
	j.mu.Unlock()
	j.SendEvent(JobEvent{Type: "progress", Data: data})
}

func (j *AnalysisJob) complete(summary *AnalysisSummary) {
	j.mu.Lock()
	if j.status == JobStatusCancelled {
		j.mu.Unlock()
		return
	}
	j.status = JobStatusCompleted
	j.result = summary
	j.finishLocked()
	j.mu.Unlock()
	j.SendEvent(JobEvent{Type: "completed", Message: "Analysis completed", Data: summary})
}

func (j *AnalysisJob) fail(message string) {
	j.mu.Lock()
	if j.status == JobStatusCancelled {
		j.mu.Unlock()
		return
	}
	j.status = JobStatusFailed
	j.err = message
	j.finishLocked()
	j.mu.Unlock()
	j.SendEvent(JobEvent{Type: "job_error", Message: message})
}

func (j *AnalysisJob) finishLocked() {
	now := time.Now()
	j.completedAt = &now
}

// JobManager manages async jobs.
type JobManager struct {
	jobs map[string]*AnalysisJob
	mu   sync.RWMutex
}

// NewJobManager creates a new job manager.
func NewJobManager() *JobManager {
	return &JobManager{
		jobs: make(map[string]*AnalysisJob),
	}
}

// CreateJob registers a pending job unless another job is still active, in
// which case the active job is returned with false.
func (m *JobManager) CreateJob(id string, force bool) (*AnalysisJob, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, job := range m.jobs {
		if !isJobTerminal(job.GetStatus()) {
			return job, false
		}
	}
	job := &AnalysisJob{
		id:        id,
		force:     force,
		status:    JobStatusPending,
		startedAt: time.Now(),
	}
	m.jobs[id] = job
	return job, true
}

// GetJob retrieves a job by ID.
func (m *JobManager) GetJob(id string) *AnalysisJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.jobs[id]
}

// ActiveJob returns the pending or running job, nil when idle.
func (m *JobManager) ActiveJob() *AnalysisJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, job := range m.jobs {
		if !isJobTerminal(job.GetStatus()) {
			return job
		}
	}
	return nil
}

// DeleteJob removes a job.
func (m *JobManager) DeleteJob(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.jobs, id)
}

// CancelAll cancels every active job. Used on shutdown.
func (m *JobManager) CancelAll() {
	m.mu.RLock()
	jobs := make([]*AnalysisJob, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, job)
	}
	m.mu.RUnlock()
	for _, job := range jobs {
		job.Cancel()
	}
}
