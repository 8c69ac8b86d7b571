package jobstore

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/myksyouki/lesson-manager-sub001/internal/apperr"
	"github.com/myksyouki/lesson-manager-sub001/internal/domain"
	"github.com/myksyouki/lesson-manager-sub001/internal/logger"
	"github.com/myksyouki/lesson-manager-sub001/internal/storage"
)

// Store persists Job records and survives the id conventions of the
// migration window: records may be keyed by prefixed or bare job ids,
// and older records may only be reachable through their owner.
type Store struct {
	db *gorm.DB
}

// NewStore creates a Store bound to db.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *Store: store instance bound to db.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Create inserts a new job record with normalized identifiers.
func (s *Store) Create(ctx context.Context, job *domain.Job) error {
	job.JobID = domain.NormalizeJobID(job.JobID)
	if job.ID == "" {
		job.ID = job.JobID
	}
	if job.Status == "" {
		job.Status = domain.JobStatusPending
	}
	if job.Category == "" {
		job.Category = "unknown"
	}
	if err := s.db.WithContext(ctx).Create(job).Error; err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "failed to create job %s", job.JobID)
	}
	return nil
}

// idForms returns both forms a stored identifier may take.
func idForms(jobID string) []string {
	normalized := domain.NormalizeJobID(jobID)
	bare := domain.BareJobID(jobID)
	if normalized == bare {
		return []string{normalized}
	}
	return []string{normalized, bare}
}

// Find locates a job record by its logical id, trying each lookup
// strategy in order. pathHint, when non-empty, is the audio object
// path and lets the last strategy recover the owner scope.
// Strategies:
//  1. job_id field match across the table,
//  2. primary key match,
//  3. per-owner scan over all known owners,
//  4. owner extracted from the audio path hint.
//
// Every miss on all strategies maps to NotFound.
func (s *Store) Find(ctx context.Context, jobID, pathHint string) (*domain.Job, error) {
	if jobID == "" {
		return nil, apperr.New(apperr.KindInvalidArgument, "job id is required")
	}
	forms := idForms(jobID)

	// Strategy 1: job_id field query.
	var job domain.Job
	err := s.db.WithContext(ctx).First(&job, "job_id IN ?", forms).Error
	if err == nil {
		logger.CtxDebug(ctx, "job %s found via job_id field", jobID)
		return &job, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Wrap(apperr.KindInternal, err, "job_id lookup failed for %s", jobID)
	}

	// Strategy 2: primary key.
	err = s.db.WithContext(ctx).First(&job, "id IN ?", forms).Error
	if err == nil {
		logger.CtxDebug(ctx, "job %s found via primary key", jobID)
		return &job, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Wrap(apperr.KindInternal, err, "primary key lookup failed for %s", jobID)
	}

	// Strategy 3: scan each known owner's jobs.
	found, err := s.findByOwnerScan(ctx, forms)
	if err != nil {
		return nil, err
	}
	if found != nil {
		logger.CtxDebug(ctx, "job %s found via owner scan (owner=%s)", jobID, found.OwnerID)
		return found, nil
	}

	// Strategy 4: recover the owner from the audio path hint.
	if owner := storage.OwnerFromAudioKey(pathHint); owner != "" {
		err = s.db.WithContext(ctx).
			First(&job, "owner_id = ? AND (id IN ? OR job_id IN ?)", owner, forms, forms).Error
		if err == nil {
			logger.CtxDebug(ctx, "job %s found via path hint owner %s", jobID, owner)
			return &job, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Wrap(apperr.KindInternal, err, "path hint lookup failed for %s", jobID)
		}
	}

	return nil, apperr.New(apperr.KindNotFound, "job %s not found by any lookup strategy", jobID)
}

// findByOwnerScan walks the distinct owners and looks for the job
// scoped to each. Returns (nil, nil) when no owner holds the job.
func (s *Store) findByOwnerScan(ctx context.Context, forms []string) (*domain.Job, error) {
	var owners []string
	err := s.db.WithContext(ctx).
		Model(&domain.Job{}).
		Where("owner_id <> ''").
		Distinct("owner_id").
		Pluck("owner_id", &owners).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "owner scan failed")
	}

	for _, owner := range owners {
		var job domain.Job
		err := s.db.WithContext(ctx).
			First(&job, "owner_id = ? AND (id IN ? OR job_id IN ?)", owner, forms, forms).Error
		if err == nil {
			return &job, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Wrap(apperr.KindInternal, err, "owner-scoped lookup failed for owner %s", owner)
		}
	}
	return nil, nil
}

// UpdateStatus writes a status checkpoint to the job record inside a
// transaction, re-reading the row first so concurrent writers cannot
// resurrect a deleted record. progress < 0 leaves the stored progress
// untouched (used by error writes). extra carries checkpoint payloads
// such as the transcription or summary columns. When the transaction
// itself cannot be started or committed, the write falls back once to
// a direct update so a flaky database does not lose the checkpoint.
func (s *Store) UpdateStatus(ctx context.Context, jobID string, status domain.JobStatus, progress int, message string, extra map[string]interface{}) error {
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
		"job_id":     domain.NormalizeJobID(jobID),
	}
	if progress >= 0 {
		updates["progress"] = progress
	}
	if message != "" {
		updates["processing_message"] = message
	}
	for k, v := range extra {
		updates[k] = v
	}
	forms := idForms(jobID)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var job domain.Job
		if err := tx.First(&job, "id IN ? OR job_id IN ?", forms, forms).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.New(apperr.KindNotFound, "job %s vanished before status update", jobID)
			}
			return err
		}
		return tx.Model(&domain.Job{}).Where("id = ?", job.ID).Updates(updates).Error
	})
	if err == nil {
		return nil
	}
	if apperr.IsKind(err, apperr.KindNotFound) {
		return err
	}

	// Transaction infrastructure failure. Degrade to a direct update
	// so the checkpoint is not lost, and log the degradation.
	logger.CtxWarn(ctx, "transactional update failed for job %s, falling back to direct update: %v", jobID, err)
	result := s.db.WithContext(ctx).
		Model(&domain.Job{}).
		Where("id IN ? OR job_id IN ?", forms, forms).
		Updates(updates)
	if result.Error != nil {
		return apperr.Wrap(apperr.KindInternal, result.Error, "status update failed for job %s", jobID)
	}
	if result.RowsAffected == 0 {
		return apperr.New(apperr.KindNotFound, "job %s not found for status update", jobID)
	}
	return nil
}
