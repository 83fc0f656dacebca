package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// JobTimeout bounds a single job run.
const JobTimeout = 5 * time.Minute

// Names of the jobs the storefront registers.
const (
	JobCacheSweep   = "cache-sweep"
	JobSessionSweep = "session-sweep"
)

// Job is a periodic maintenance task. Run returns how many items it removed.
type Job struct {
	Name string

	// Interval between runs. Jobs with a non-positive interval are never
	// scheduled but can still be triggered with RunNow.
	Interval time.Duration

	Run func(ctx context.Context) (int64, error)
}

// CleanupScheduler runs maintenance jobs on their own tickers.
type CleanupScheduler struct {
	jobs      map[string]Job
	stopCh    chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
	isRunning bool
	mu        sync.Mutex
}

// NewCleanupScheduler creates a scheduler for the given jobs.
func NewCleanupScheduler(jobs ...Job) *CleanupScheduler {
	s := &CleanupScheduler{
		jobs:   make(map[string]Job, len(jobs)),
		stopCh: make(chan struct{}),
	}
	for _, job := range jobs {
		s.jobs[job.Name] = job
	}
	return s
}

// Start begins running every scheduled job.
func (s *CleanupScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return
	}
	s.isRunning = true

	for _, job := range s.jobs {
		if job.Interval <= 0 {
			log.Printf("[CleanupScheduler] %s disabled", job.Name)
			continue
		}
		log.Printf("[CleanupScheduler] %s started - Interval: %v", job.Name, job.Interval)

		s.wg.Add(1)
		go s.run(job)
	}
}

// run is the loop for one job.
func (s *CleanupScheduler) run(job Job) {
	defer s.wg.Done()

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runJob(job)
		case <-s.stopCh:
			return
		}
	}
}

// runJob performs one run and logs the outcome.
func (s *CleanupScheduler) runJob(job Job) (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), JobTimeout)
	defer cancel()

	removed, err := job.Run(ctx)
	if err != nil {
		log.Printf("[CleanupScheduler] %s error: %v", job.Name, err)
		return removed, err
	}

	if removed > 0 {
		log.Printf("[CleanupScheduler] %s removed %d items", job.Name, removed)
	}
	return removed, nil
}

// Stop stops every job loop and waits for them to exit.
func (s *CleanupScheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		s.wg.Wait()

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		log.Printf("[CleanupScheduler] Stopped")
	})
}

// RunNow triggers an immediate run of the named job.
func (s *CleanupScheduler) RunNow(name string) (int64, error) {
	job, ok := s.jobs[name]
	if !ok {
		return 0, fmt.Errorf("unknown job %q", name)
	}
	return s.runJob(job)
}
