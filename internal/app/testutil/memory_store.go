package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	apperrors "voxledger/internal/app/errors"
	"voxledger/internal/app/model"
)

// MemoryStore is an in-memory repository.Store for tests. It honors the
// same contracts as the SQL stores: guarded quota reset, additive totals,
// all-or-nothing completion.
type MemoryStore struct {
	mu sync.Mutex

	Users       map[string]*model.User
	Jobs        map[string]*model.AudioJob
	Transcripts map[string]*model.Transcript // keyed by job id
	Usage       []model.UsageEntry

	nextUsageID int64

	// Error injection. When set, the matching operation fails with the
	// given error.
	CompleteJobErr error
	UpdateJobErr   error
	CreateJobErr   error

	// Call counters for assertions.
	ResetApplied int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		Users:       make(map[string]*model.User),
		Jobs:        make(map[string]*model.AudioJob),
		Transcripts: make(map[string]*model.Transcript),
		Usage:       make([]model.UsageEntry, 0),
	}
}

func (s *MemoryStore) Close() error { return nil }

// --- users ---

func (s *MemoryStore) CreateUser(_ context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *user
	s.Users[user.ID] = &cp
	return nil
}

func (s *MemoryStore) GetUser(_ context.Context, id string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.Users[id]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *MemoryStore) ApplyQuotaReset(_ context.Context, userID string, periodStart time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.Users[userID]
	if !ok {
		return false, apperrors.ErrUserNotFound
	}
	if !u.QuotaResetDate.Before(periodStart) {
		return false, nil
	}
	u.MinutesProcessed = decimal.Zero
	u.QuotaResetDate = periodStart
	u.UpdatedAt = time.Now().UTC()
	s.ResetApplied++
	return true, nil
}

func (s *MemoryStore) IncrementUserTotals(_ context.Context, userID string, minutes, cost decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.incrementLocked(userID, minutes, cost)
}

func (s *MemoryStore) incrementLocked(userID string, minutes, cost decimal.Decimal) error {
	u, ok := s.Users[userID]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	u.MinutesProcessed = u.MinutesProcessed.Add(minutes)
	u.TotalCost = u.TotalCost.Add(cost)
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.Users, id)
	for jobID, j := range s.Jobs {
		if j.UserID == id {
			delete(s.Jobs, jobID)
			delete(s.Transcripts, jobID)
		}
	}
	kept := s.Usage[:0]
	for _, e := range s.Usage {
		if e.UserID != id {
			kept = append(kept, e)
		}
	}
	s.Usage = kept
	return nil
}

// --- jobs ---

func (s *MemoryStore) CreateJob(_ context.Context, j *model.AudioJob) error {
	if s.CreateJobErr != nil {
		return s.CreateJobErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *j
	s.Jobs[j.ID] = &cp
	return nil
}

func (s *MemoryStore) GetJob(_ context.Context, id string) (*model.AudioJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.Jobs[id]
	if !ok {
		return nil, apperrors.ErrJobNotFound
	}
	cp := *j
	return &cp, nil
}

func (s *MemoryStore) UpdateJob(_ context.Context, j *model.AudioJob) error {
	if s.UpdateJobErr != nil {
		return s.UpdateJobErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.Jobs[j.ID]; !ok {
		return apperrors.ErrJobNotFound
	}
	cp := *j
	s.Jobs[j.ID] = &cp
	return nil
}

func (s *MemoryStore) ListJobsByUser(_ context.Context, userID string, limit int) ([]model.AudioJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	jobs := make([]model.AudioJob, 0)
	for _, j := range s.Jobs {
		if j.UserID == userID {
			jobs = append(jobs, *j)
		}
	}
	sort.Slice(jobs, func(i, k int) bool { return jobs[i].CreatedAt.After(jobs[k].CreatedAt) })
	if limit > 0 && len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs, nil
}

func (s *MemoryStore) DeleteJob(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.Jobs, id)
	delete(s.Transcripts, id)
	kept := s.Usage[:0]
	for _, e := range s.Usage {
		if e.JobID != id {
			kept = append(kept, e)
		}
	}
	s.Usage = kept
	return nil
}

// --- transcripts ---

func (s *MemoryStore) GetTranscriptByJob(_ context.Context, jobID string) (*model.Transcript, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.Transcripts[jobID]
	if !ok {
		return nil, apperrors.ErrTranscriptNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *MemoryStore) UpdateArtifactKeys(_ context.Context, transcriptID string, keys map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.Transcripts {
		if t.ID == transcriptID {
			t.ArtifactKeys = keys
			t.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return apperrors.ErrTranscriptNotFound
}

// --- usage ---

func (s *MemoryStore) ListUsageByUser(_ context.Context, userID string) ([]model.UsageEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := make([]model.UsageEntry, 0)
	for _, e := range s.Usage {
		if e.UserID == userID {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

func (s *MemoryStore) GetUsageByJob(_ context.Context, jobID string) (*model.UsageEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.Usage {
		if e.JobID == jobID {
			cp := e
			return &cp, nil
		}
	}
	return nil, apperrors.Wrapf(apperrors.ErrJobNotFound, "usage for job %s", jobID)
}

// --- completion ---

func (s *MemoryStore) CompleteJob(_ context.Context, j *model.AudioJob, t *model.Transcript, e *model.UsageEntry) error {
	if s.CompleteJobErr != nil {
		return &apperrors.PersistenceError{Op: "commit completion", Cause: s.CompleteJobErr}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.Jobs[j.ID]; !ok {
		return &apperrors.PersistenceError{Op: "mark job completed", Cause: apperrors.ErrJobNotFound}
	}
	if err := s.incrementLocked(j.UserID, e.MinutesProcessed, e.Cost); err != nil {
		return &apperrors.PersistenceError{Op: "commit quota", Cause: err}
	}

	jobCp := *j
	s.Jobs[j.ID] = &jobCp
	trCp := *t
	s.Transcripts[j.ID] = &trCp

	s.nextUsageID++
	entry := *e
	entry.ID = s.nextUsageID
	s.Usage = append(s.Usage, entry)
	return nil
}
