package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/acadplan/timetable-api/internal/dto"
	"github.com/acadplan/timetable-api/internal/fet"
	"github.com/acadplan/timetable-api/internal/models"
	"github.com/acadplan/timetable-api/internal/solver"
	appErrors "github.com/acadplan/timetable-api/pkg/errors"
	"github.com/acadplan/timetable-api/pkg/jobs"
)

const (
	jobTypeGenerate = "generate"
	jobTypeProcess  = "process"
)

type jobStore interface {
	Create(ctx context.Context, job *models.GenerationJob) error
	FindByID(ctx context.Context, id string) (*models.GenerationJob, error)
	SetStage(ctx context.Context, id string, status models.JobStatus, stage models.JobStage) error
	MarkCompleted(ctx context.Context, id, scheduleID string) error
	MarkFailed(ctx context.Context, id string, stage models.JobStage, code, message string) error
	MarkCancelled(ctx context.Context, id string, stage models.JobStage) error
}

type userReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type scheduleWriter interface {
	Create(ctx context.Context, schedule *models.StoredSchedule) error
	ExistsByDescription(ctx context.Context, description, excludeID string) (bool, error)
	Delete(ctx context.Context, id string) error
}

type documentBuilder interface {
	BuildDocument(ctx context.Context) (*fet.Document, error)
}

type solverRunner interface {
	Prepare(jobID string) (*solver.Workspace, error)
	WriteInput(ws *solver.Workspace, data []byte) error
	StageInput(ws *solver.Workspace) error
	Run(ctx context.Context, ws *solver.Workspace) error
	StageOutput(ws *solver.Workspace) error
	ReadOutput(ws *solver.Workspace) ([]byte, error)
	Cleanup(ws *solver.Workspace)
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

type generationMetrics interface {
	ObserveSolverRun(duration time.Duration, success bool)
	JobFinished(status models.JobStatus)
}

type generationPayload struct {
	UserID      string
	Description string
	Content     string
}

// GenerationService owns the asynchronous solve pipeline. Accepting a
// request only validates the caller and records an ACCEPTED job; all stage
// work happens on queue workers and every transition is persisted so the
// status query always reflects reality.
type GenerationService struct {
	jobsRepo  jobStore
	users     userReader
	schedules scheduleWriter
	builder   documentBuilder
	runner    solverRunner
	queue     jobEnqueuer
	metrics   generationMetrics
	validate  *validator.Validate
	logger    *zap.Logger

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// NewGenerationService wires the pipeline service. metrics may be nil.
func NewGenerationService(
	jobsRepo jobStore,
	users userReader,
	schedules scheduleWriter,
	builder documentBuilder,
	runner solverRunner,
	metrics generationMetrics,
	validate *validator.Validate,
	logger *zap.Logger,
) *GenerationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GenerationService{
		jobsRepo:  jobsRepo,
		users:     users,
		schedules: schedules,
		builder:   builder,
		runner:    runner,
		metrics:   metrics,
		validate:  validate,
		logger:    logger,
		cancels:   make(map[string]context.CancelFunc),
	}
}

// AttachQueue binds the worker queue the service enqueues onto. Separate from
// construction because the queue's handler is this service's Handle method.
func (s *GenerationService) AttachQueue(queue jobEnqueuer) {
	s.queue = queue
}

// Generate accepts a full build-and-solve run. It returns as soon as the job
// row exists; the receipt is pollable immediately.
func (s *GenerationService) Generate(ctx context.Context, req dto.GenerateRequest) (*dto.JobResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	if _, err := s.users.FindByID(ctx, req.UserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load user")
	}

	description := req.Description
	if description == "" {
		description = fmt.Sprintf("Generated schedule %s", time.Now().UTC().Format(time.RFC3339))
	}
	taken, err := s.schedules.ExistsByDescription(ctx, description, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "check schedule description")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("a schedule named %q already exists", description))
	}

	return s.accept(ctx, jobTypeGenerate, models.StageBuild, generationPayload{
		UserID:      req.UserID,
		Description: description,
	})
}

// ProcessDocument accepts a run over a caller-supplied interchange document,
// skipping the build stage entirely.
func (s *GenerationService) ProcessDocument(ctx context.Context, req dto.ProcessRequest) (*dto.JobResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	if _, err := s.users.FindByID(ctx, req.UserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load user")
	}

	return s.accept(ctx, jobTypeProcess, models.StageWriteInput, generationPayload{
		UserID:      req.UserID,
		Description: fmt.Sprintf("Processed schedule %s", time.Now().UTC().Format(time.RFC3339)),
		Content:     req.Content,
	})
}

func (s *GenerationService) accept(ctx context.Context, jobType string, first models.JobStage, payload generationPayload) (*dto.JobResponse, error) {
	job := &models.GenerationJob{
		Status:    models.JobStatusAccepted,
		Stage:     first,
		CreatedBy: payload.UserID,
	}
	if err := s.jobsRepo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "record generation job")
	}

	if s.queue == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "generation queue not attached")
	}
	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: jobType, Payload: payload}); err != nil {
		s.failJob(context.Background(), job.ID, first, appErrors.Clone(appErrors.ErrPipelineFailed, "could not enqueue generation job"))
		return nil, appErrors.Wrap(err, appErrors.ErrPipelineFailed.Code, appErrors.ErrPipelineFailed.Status, "enqueue generation job")
	}

	return jobResponse(job), nil
}

// Status returns the persisted state of a job.
func (s *GenerationService) Status(ctx context.Context, id string) (*dto.JobResponse, error) {
	job, err := s.jobsRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "generation job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load generation job")
	}
	return jobResponse(job), nil
}

// Cancel aborts a running job best-effort. In-flight stage work is
// interrupted through its context; already terminal jobs are a conflict.
func (s *GenerationService) Cancel(ctx context.Context, id string) (*dto.JobResponse, error) {
	job, err := s.jobsRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "generation job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load generation job")
	}
	if job.Terminal() {
		return nil, appErrors.Clone(appErrors.ErrConflict, "generation job already finished")
	}

	s.mu.Lock()
	cancel, running := s.cancels[id]
	s.mu.Unlock()
	if running {
		cancel()
	}

	if err := s.jobsRepo.MarkCancelled(ctx, id, job.Stage); err != nil {
		if errors.Is(err, models.ErrJobFinished) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "generation job already finished")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "mark job cancelled")
	}
	job.Status = models.JobStatusCancelled
	if s.metrics != nil {
		s.metrics.JobFinished(models.JobStatusCancelled)
	}
	return jobResponse(job), nil
}

// Handle is the queue worker entrypoint. The pipeline records its own
// terminal state; returned errors are for the queue's logging only.
func (s *GenerationService) Handle(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(generationPayload)
	if !ok {
		err := appErrors.Clone(appErrors.ErrPipelineFailed, "malformed job payload")
		s.failJob(ctx, job.ID, models.StageBuild, err)
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancels[job.ID] = cancel
	s.mu.Unlock()
	defer func() {
		cancel()
		s.mu.Lock()
		delete(s.cancels, job.ID)
		s.mu.Unlock()
	}()

	stage, err := s.run(runCtx, job.ID, job.Type, payload)
	if err != nil {
		if errors.Is(err, models.ErrJobFinished) {
			// The job reached a terminal state before this worker could
			// advance it, typically a cancellation while still queued.
			s.logger.Sugar().Infow("generation job already finished, skipping", "job_id", job.ID, "stage", stage)
			return nil
		}
		if runCtx.Err() != nil {
			s.recordInterruption(job.ID, stage)
			return nil
		}
		s.failJob(context.Background(), job.ID, stage, err)
		return err
	}
	return nil
}

// recordInterruption settles a job whose run context was cancelled. A user
// cancellation already wrote CANCELLED; anything else (process shutdown) must
// still land in the job row or the status query would report RUNNING forever.
func (s *GenerationService) recordInterruption(jobID string, stage models.JobStage) {
	ctx := context.Background()
	job, err := s.jobsRepo.FindByID(ctx, jobID)
	if err != nil {
		s.logger.Sugar().Errorw("could not load interrupted job", "job_id", jobID, "error", err)
		return
	}
	if job.Terminal() {
		s.logger.Sugar().Infow("generation job cancelled", "job_id", jobID, "stage", stage)
		return
	}
	s.failJob(ctx, jobID, stage, appErrors.Clone(appErrors.ErrPipelineFailed, "interrupted before completion"))
}

// run executes the stage sequence and returns the stage an error occurred in.
func (s *GenerationService) run(ctx context.Context, jobID, jobType string, payload generationPayload) (models.JobStage, error) {
	var input []byte

	if jobType == jobTypeProcess {
		input = []byte(payload.Content)
	} else {
		if err := s.advance(ctx, jobID, models.StageBuild); err != nil {
			return models.StageBuild, err
		}
		doc, err := s.builder.BuildDocument(ctx)
		if err != nil {
			return models.StageBuild, err
		}
		input, err = doc.Marshal()
		if err != nil {
			return models.StageBuild, err
		}
	}

	if err := s.advance(ctx, jobID, models.StageWriteInput); err != nil {
		return models.StageWriteInput, err
	}
	ws, err := s.runner.Prepare(jobID)
	if err != nil {
		return models.StageWriteInput, err
	}
	defer s.runner.Cleanup(ws)
	if err := s.runner.WriteInput(ws, input); err != nil {
		return models.StageWriteInput, err
	}

	if err := s.advance(ctx, jobID, models.StageStageInput); err != nil {
		return models.StageStageInput, err
	}
	if err := s.runner.StageInput(ws); err != nil {
		return models.StageStageInput, err
	}

	if err := s.advance(ctx, jobID, models.StageRunSolver); err != nil {
		return models.StageRunSolver, err
	}
	solveStarted := time.Now()
	err = s.runner.Run(ctx, ws)
	if s.metrics != nil {
		s.metrics.ObserveSolverRun(time.Since(solveStarted), err == nil)
	}
	if err != nil {
		return models.StageRunSolver, err
	}

	if err := s.advance(ctx, jobID, models.StageStageOutput); err != nil {
		return models.StageStageOutput, err
	}
	if err := s.runner.StageOutput(ws); err != nil {
		return models.StageStageOutput, err
	}

	if err := s.advance(ctx, jobID, models.StageReadOutput); err != nil {
		return models.StageReadOutput, err
	}
	raw, err := s.runner.ReadOutput(ws)
	if err != nil {
		return models.StageReadOutput, err
	}

	if err := s.advance(ctx, jobID, models.StageNormalize); err != nil {
		return models.StageNormalize, err
	}
	schedule, err := fet.ParseResult(raw)
	if err != nil {
		return models.StageNormalize, err
	}

	if err := s.advance(ctx, jobID, models.StagePersist); err != nil {
		return models.StagePersist, err
	}
	body, err := json.Marshal(schedule)
	if err != nil {
		return models.StagePersist, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "encode normalized schedule")
	}
	stored := &models.StoredSchedule{
		Description: payload.Description,
		Payload:     types.JSONText(body),
		UserID:      payload.UserID,
	}
	if err := s.schedules.Create(ctx, stored); err != nil {
		return models.StagePersist, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "persist schedule")
	}
	if err := s.jobsRepo.MarkCompleted(ctx, jobID, stored.ID); err != nil {
		if errors.Is(err, models.ErrJobFinished) {
			// Cancelled while persisting; the schedule must not outlive it.
			if derr := s.schedules.Delete(ctx, stored.ID); derr != nil {
				s.logger.Sugar().Errorw("could not remove schedule of cancelled job", "job_id", jobID, "schedule_id", stored.ID, "error", derr)
			}
			return models.StagePersist, err
		}
		return models.StagePersist, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "mark job completed")
	}

	if s.metrics != nil {
		s.metrics.JobFinished(models.JobStatusCompleted)
	}
	s.logger.Sugar().Infow("generation job completed", "job_id", jobID, "schedule_id", stored.ID,
		"activities", len(schedule.ActivityIDs()))
	return models.StageDone, nil
}

func (s *GenerationService) advance(ctx context.Context, jobID string, stage models.JobStage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.jobsRepo.SetStage(ctx, jobID, models.JobStatusRunning, stage); err != nil {
		if errors.Is(err, models.ErrJobFinished) {
			return err
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "record stage transition")
	}
	s.logger.Sugar().Debugw("generation stage", "job_id", jobID, "stage", stage)
	return nil
}

// failJob records a terminal failure with the taxonomy code of the cause.
// Errors without a pipeline code collapse to PIPELINE_FAILED.
func (s *GenerationService) failJob(ctx context.Context, jobID string, stage models.JobStage, cause error) {
	code := appErrors.CodeOf(cause)
	if code == appErrors.ErrInternal.Code {
		code = appErrors.ErrPipelineFailed.Code
	}
	message := appErrors.FromError(cause).Message

	if err := s.jobsRepo.MarkFailed(ctx, jobID, stage, code, message); err != nil {
		if errors.Is(err, models.ErrJobFinished) {
			s.logger.Sugar().Infow("job already terminal, failure not recorded", "job_id", jobID, "stage", stage)
			return
		}
		s.logger.Sugar().Errorw("could not record job failure", "job_id", jobID, "error", err)
	}
	if s.metrics != nil {
		s.metrics.JobFinished(models.JobStatusFailed)
	}
	s.logger.Sugar().Errorw("generation job failed", "job_id", jobID, "stage", stage, "code", code, "error", cause)
}

func jobResponse(job *models.GenerationJob) *dto.JobResponse {
	return &dto.JobResponse{
		ID:           job.ID,
		Status:       job.Status,
		Stage:        job.Stage,
		ErrorCode:    job.ErrorCode,
		ErrorMessage: job.ErrorMessage,
		ScheduleID:   job.ScheduleID,
	}
}
