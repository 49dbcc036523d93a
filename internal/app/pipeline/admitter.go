package pipeline

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	apperrors "voxledger/internal/app/errors"
	"voxledger/internal/app/audio"
	"voxledger/internal/app/job"
	"voxledger/internal/app/metrics"
	"voxledger/internal/app/model"
	"voxledger/internal/app/quota"
	"voxledger/internal/app/repository"
	"voxledger/internal/app/storage"
)

var decimal60 = decimal.NewFromInt(60)

// Enqueuer hands an admitted job to the worker side.
type Enqueuer interface {
	Enqueue(ctx context.Context, jobID string) error
}

// SubmitRequest is one upload from the API layer.
type SubmitRequest struct {
	UserID      string
	Filename    string
	ContentType string
	Size        int64
	Language    string
	ModelTier   model.ModelTier
	Content     io.Reader
}

// Admitter validates uploads, checks quota and creates pending jobs. The
// quota check and the job row creation run under the per-user lock so
// concurrent uploads never admit against stale counters; the blob upload
// happens before the lock is taken so slow storage never blocks other
// users' admissions.
type Admitter struct {
	store    repository.Store
	blobs    storage.BlobStore
	prober   audio.Prober
	ledger   *quota.Ledger
	locker   quota.Locker
	enqueuer Enqueuer
	now      func() time.Time
	logger   *slog.Logger
}

// NewAdmitter wires the admission side of the pipeline.
func NewAdmitter(store repository.Store, blobs storage.BlobStore, prober audio.Prober, ledger *quota.Ledger, locker quota.Locker, enqueuer Enqueuer) *Admitter {
	return &Admitter{
		store:    store,
		blobs:    blobs,
		prober:   prober,
		ledger:   ledger,
		locker:   locker,
		enqueuer: enqueuer,
		now:      time.Now,
		logger:   slog.Default().With("component", "admitter"),
	}
}

// Submit validates the upload, probes its duration, stores the audio,
// admits it against the user's quota and enqueues the pending job.
// Validation and quota rejections happen before any job row exists.
func (a *Admitter) Submit(ctx context.Context, req SubmitRequest) (*model.AudioJob, error) {
	j, err := job.New(req.UserID, req.Filename, req.ContentType, req.Language, req.ModelTier, req.Size)
	if err != nil {
		return nil, err
	}

	// Spool the upload to a temp file so it can be probed before the
	// bytes are committed to blob storage.
	tmpPath, cleanup, err := a.spool(req)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	seconds, err := a.prober.Duration(ctx, tmpPath)
	if err != nil {
		return nil, apperrors.NewValidationError("file", "audio duration could not be determined")
	}
	requestedMinutes := seconds.Div(decimal60)
	if err := job.SetDuration(j, seconds); err != nil {
		return nil, err
	}

	// Upload outside the per-user lock: blob stores can be remote and
	// slow, and admission only needs the lock around check-then-create.
	key := storage.AudioKey(req.UserID, req.Filename)
	if err := a.upload(ctx, tmpPath, key, req); err != nil {
		return nil, err
	}
	j.StorageKey = key

	unlock, err := a.locker.Lock(ctx, req.UserID)
	if err != nil {
		a.discard(ctx, key)
		return nil, err
	}

	if err := a.ledger.Admit(ctx, req.UserID, requestedMinutes, a.now().UTC()); err != nil {
		unlock()
		a.discard(ctx, key)
		if _, ok := err.(*apperrors.QuotaExceededError); ok {
			metrics.QuotaRejections.Inc()
		}
		return nil, err
	}

	if err := a.store.CreateJob(ctx, j); err != nil {
		unlock()
		a.discard(ctx, key)
		return nil, err
	}
	unlock()

	metrics.JobsSubmitted.WithLabelValues(string(j.ModelTier)).Inc()
	a.logger.Info("job admitted",
		"job_id", j.ID,
		"user_id", j.UserID,
		"minutes", requestedMinutes.Round(4).String(),
		"tier", j.ModelTier)

	if err := a.enqueuer.Enqueue(ctx, j.ID); err != nil {
		// The job row exists in pending; a sweep can pick it up later.
		a.logger.Error("enqueue failed, job left pending", "job_id", j.ID, "error", err)
		return j, apperrors.Wrap(err, "enqueue job")
	}
	return j, nil
}

// discard removes an uploaded blob after a rejected admission, best
// effort.
func (a *Admitter) discard(ctx context.Context, key string) {
	if err := a.blobs.Delete(ctx, key); err != nil {
		a.logger.Warn("removing rejected upload failed", "key", key, "error", err)
	}
}

// spool writes the upload to a temp file, enforcing the declared size.
func (a *Admitter) spool(req SubmitRequest) (string, func(), error) {
	tmp, err := os.CreateTemp("", "upload-*"+filepath.Ext(req.Filename))
	if err != nil {
		return "", func() {}, apperrors.Wrap(err, "spool upload")
	}
	cleanup := func() { os.Remove(tmp.Name()) }

	n, err := io.Copy(tmp, io.LimitReader(req.Content, job.MaxFileSize+1))
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		cleanup()
		return "", func() {}, apperrors.Wrap(err, "spool upload")
	}
	if n > job.MaxFileSize {
		cleanup()
		return "", func() {}, apperrors.NewValidationError("file_size", "exceeds the 100 MiB maximum")
	}
	return tmp.Name(), cleanup, nil
}

// upload copies the spooled file into blob storage under key.
func (a *Admitter) upload(ctx context.Context, tmpPath, key string, req SubmitRequest) error {
	f, err := os.Open(tmpPath)
	if err != nil {
		return apperrors.Wrap(err, "reopen spooled upload")
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return apperrors.Wrap(err, "stat spooled upload")
	}
	return a.blobs.Put(ctx, key, f, info.Size(), req.ContentType)
}
