package services

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	jobrepo "github.com/arcpp/proteome-backend/internal/data/repos/jobs"
	types "github.com/arcpp/proteome-backend/internal/domain/jobs"
	pkgerrors "github.com/arcpp/proteome-backend/internal/pkg/errors"
	"github.com/arcpp/proteome-backend/internal/platform/ctxutil"
	"github.com/arcpp/proteome-backend/internal/platform/dbctx"
	"github.com/arcpp/proteome-backend/internal/platform/logger"
)

type JobService interface {
	Enqueue(dbc dbctx.Context, jobType, entityType, entityID string, payload map[string]any) (*types.JobRun, error)
	// EnqueueIfIdle returns the already queued or running job instead of
	// creating a duplicate. created reports whether a new row was written.
	EnqueueIfIdle(dbc dbctx.Context, jobType, entityType, entityID string, payload map[string]any) (job *types.JobRun, created bool, err error)
	GetByID(dbc dbctx.Context, jobID uuid.UUID) (*types.JobRun, error)
	GetLatestForEntity(dbc dbctx.Context, entityType, entityID, jobType string) (*types.JobRun, error)
}

type jobService struct {
	log  *logger.Logger
	repo jobrepo.JobRunRepo
}

func NewJobService(baseLog *logger.Logger, repo jobrepo.JobRunRepo) JobService {
	return &jobService{
		log:  baseLog.With("service", "JobService"),
		repo: repo,
	}
}

func (s *jobService) Enqueue(dbc dbctx.Context, jobType, entityType, entityID string, payload map[string]any) (*types.JobRun, error) {
	jobType = strings.TrimSpace(jobType)
	if jobType == "" {
		return nil, fmt.Errorf("missing job_type: %w", pkgerrors.ErrInvalidArgument)
	}
	if payload == nil {
		payload = map[string]any{}
	}
	if td := ctxutil.GetTraceData(dbc.Ctx); td != nil {
		if td.TraceID != "" {
			if _, ok := payload["trace_id"]; !ok {
				payload["trace_id"] = td.TraceID
			}
		}
		if td.RequestID != "" {
			if _, ok := payload["request_id"]; !ok {
				payload["request_id"] = td.RequestID
			}
		}
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	now := time.Now().UTC()
	job := &types.JobRun{
		ID:         uuid.New(),
		JobType:    jobType,
		EntityType: entityType,
		EntityID:   entityID,
		Status:     types.StatusQueued,
		Stage:      "queued",
		Payload:    datatypes.JSON(b),
		Result:     datatypes.JSON([]byte(`{}`)),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := s.repo.Create(dbc, []*types.JobRun{job}); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	s.log.Info("job enqueued", "job_id", job.ID, "job_type", job.JobType, "entity_id", entityID)
	return job, nil
}

func (s *jobService) EnqueueIfIdle(dbc dbctx.Context, jobType, entityType, entityID string, payload map[string]any) (*types.JobRun, bool, error) {
	busy, err := s.repo.ExistsRunnable(dbc, jobType, entityType, entityID)
	if err != nil {
		return nil, false, err
	}
	if busy {
		existing, err := s.repo.GetLatestByEntity(dbc, entityType, entityID, jobType)
		if err != nil {
			return nil, false, err
		}
		if existing != nil {
			return existing, false, nil
		}
	}
	job, err := s.Enqueue(dbc, jobType, entityType, entityID, payload)
	if err != nil {
		return nil, false, err
	}
	return job, true, nil
}

func (s *jobService) GetByID(dbc dbctx.Context, jobID uuid.UUID) (*types.JobRun, error) {
	if jobID == uuid.Nil {
		return nil, fmt.Errorf("missing job id: %w", pkgerrors.ErrInvalidArgument)
	}
	job, err := s.repo.GetByID(dbc, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, fmt.Errorf("job %s: %w", jobID, pkgerrors.ErrNotFound)
	}
	return job, nil
}

func (s *jobService) GetLatestForEntity(dbc dbctx.Context, entityType, entityID, jobType string) (*types.JobRun, error) {
	job, err := s.repo.GetLatestByEntity(dbc, entityType, entityID, jobType)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, fmt.Errorf("no %s job for %s: %w", jobType, entityID, pkgerrors.ErrNotFound)
	}
	return job, nil
}
