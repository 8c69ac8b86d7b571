package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/myksyouki/lesson-manager-sub001/internal/apperr"
	"github.com/myksyouki/lesson-manager-sub001/internal/domain"
	"github.com/myksyouki/lesson-manager-sub001/internal/pipeline"
)

// JobRunner runs the processing pipeline for one job.
type JobRunner interface {
	Process(ctx context.Context, req pipeline.ProcessRequest) (*pipeline.ProcessResult, error)
}

// JobReader reads and creates job records.
type JobReader interface {
	Find(ctx context.Context, jobID, pathHint string) (*domain.Job, error)
	Create(ctx context.Context, job *domain.Job) error
}

// JobsHandler exposes the processing trigger and job reads.
type JobsHandler struct {
	runner JobRunner
	store  JobReader
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(runner JobRunner, store JobReader) *JobsHandler {
	return &JobsHandler{runner: runner, store: store}
}

// ProcessJob handles POST /api/v1/jobs/process. It creates the job
// record when the client has not created one yet, then runs the
// pipeline to completion and returns the results.
func (h *JobsHandler) ProcessJob(c *gin.Context) {
	var req pipeline.ProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	ctx := c.Request.Context()

	if err := h.ensureJobRecord(ctx, req); err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	result, err := h.runner.Process(ctx, req)
	if err != nil {
		c.JSON(statusForError(err), gin.H{
			"error":     err.Error(),
			"errorKind": string(apperr.KindOf(err)),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"jobId":  domain.NormalizeJobID(req.JobID),
		"result": result,
	})
}

// GetJob handles GET /api/v1/jobs/:id. Clients poll this while the
// pipeline runs.
func (h *JobsHandler) GetJob(c *gin.Context) {
	jobID := c.Param("id")
	pathHint := c.Query("audioPath")

	job, err := h.store.Find(c.Request.Context(), jobID, pathHint)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, job)
}

// ensureJobRecord creates the record for a job triggered before its
// record was written. An existing record is left untouched.
func (h *JobsHandler) ensureJobRecord(ctx context.Context, req pipeline.ProcessRequest) error {
	if req.JobID == "" {
		// Validation inside the processor produces the client-facing error.
		return nil
	}
	_, err := h.store.Find(ctx, req.JobID, req.SourceURL)
	if err == nil {
		return nil
	}
	if !apperr.IsKind(err, apperr.KindNotFound) {
		return err
	}

	job := &domain.Job{
		JobID:              domain.NormalizeJobID(req.JobID),
		OwnerID:            req.OwnerID,
		SourceURL:          req.SourceURL,
		Category:           req.Category,
		CustomInstructions: req.CustomInstructions,
		Status:             domain.JobStatusPending,
	}
	return h.store.Create(ctx, job)
}

// statusForError maps the error taxonomy onto HTTP status codes.
func statusForError(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindInvalidArgument:
		return http.StatusBadRequest
	case apperr.KindUnauthenticated:
		return http.StatusUnauthorized
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindResourceExhausted:
		return http.StatusTooManyRequests
	case apperr.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
