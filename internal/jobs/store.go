// Package jobs tracks comparison jobs through the parse, match, and report
// stages and runs the pipeline in the background.
package jobs

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ciridae/scopematch/internal/models"
)

// Status is a job lifecycle stage.
type Status string

// Job statuses, in pipeline order. Error is terminal.
const (
	StatusPending   Status = "pending"
	StatusParsing   Status = "parsing"
	StatusMatching  Status = "matching"
	StatusReporting Status = "reporting"
	StatusComplete  Status = "complete"
	StatusError     Status = "error"
)

// Job is a snapshot of one comparison job. Step and TotalSteps describe the
// current stage only; they reset when the stage changes.
type Job struct {
	ID         string          `json:"id"`
	Status     Status          `json:"status"`
	Step       int             `json:"step"`
	TotalSteps int             `json:"total_steps"`
	Error      string          `json:"error,omitempty"`
	Summary    *models.Summary `json:"summary,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`

	// Result and ReportPath are set once the job completes. They are not part
	// of the status payload; the items and report endpoints expose them.
	Result     *models.ComparisonResult `json:"-"`
	ReportPath string                   `json:"-"`

	sourcePath string
	targetPath string
}

// Store is an in-memory job registry safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

// NewStore creates an empty job store.
func NewStore() *Store {
	return &Store{jobs: make(map[string]*Job)}
}

// Create registers a new pending job for the given document pair and returns
// its snapshot.
func (s *Store) Create(sourcePath, targetPath string) Job {
	job := &Job{
		ID:         uuid.NewString(),
		Status:     StatusPending,
		TotalSteps: 1,
		CreatedAt:  time.Now(),
		sourcePath: sourcePath,
		targetPath: targetPath,
	}
	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()
	return *job
}

// Get returns a snapshot of the job, or false if no such job exists.
func (s *Store) Get(id string) (Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// Count returns the number of jobs in the store.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

// setStage moves the job to a new stage and resets its step counters.
func (s *Store) setStage(id string, status Status) {
	s.mu.Lock()
	if job, ok := s.jobs[id]; ok {
		job.Status = status
		job.Step = 0
		job.TotalSteps = 1
	}
	s.mu.Unlock()
}

// setProgress updates the step counters within the current stage.
func (s *Store) setProgress(id string, step, total int) {
	s.mu.Lock()
	if job, ok := s.jobs[id]; ok {
		job.Step = step
		job.TotalSteps = total
	}
	s.mu.Unlock()
}

// complete records the finished result and summary.
func (s *Store) complete(id string, result *models.ComparisonResult, reportPath string) {
	s.mu.Lock()
	if job, ok := s.jobs[id]; ok {
		summary := result.Summarize()
		job.Status = StatusComplete
		job.Step = job.TotalSteps
		job.Result = result
		job.Summary = &summary
		job.ReportPath = reportPath
	}
	s.mu.Unlock()
}

// fail marks the job as errored.
func (s *Store) fail(id string, err error) {
	s.mu.Lock()
	if job, ok := s.jobs[id]; ok {
		job.Status = StatusError
		job.Error = err.Error()
	}
	s.mu.Unlock()
}
