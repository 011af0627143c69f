package service

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/engine"
	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
	"github.com/noah-isme/timetable-api/pkg/export"
	"github.com/noah-isme/timetable-api/pkg/jobs"
)

// JobTypeOptimize tags queued optimizer runs.
const JobTypeOptimize = "timetable.optimize"

const (
	defaultRoomCount    = 10
	defaultRoomCapacity = 60
)

type timetableRepository interface {
	CreateVersioned(ctx context.Context, exec sqlx.ExtContext, timetable *models.Timetable) error
	List(ctx context.Context, term string) ([]models.Timetable, error)
	FindByID(ctx context.Context, id string) (*models.Timetable, error)
	Delete(ctx context.Context, id string) error
	UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.TimetableStatus) error
	UnpublishTerm(ctx context.Context, exec sqlx.ExtContext, term string) error
}

type timetablePlacementRepository interface {
	UpsertBatch(ctx context.Context, exec sqlx.ExtContext, rows []models.TimetablePlacement) error
	ListByTimetable(ctx context.Context, timetableID string) ([]models.TimetablePlacement, error)
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type jobQueue interface {
	Enqueue(job jobs.Job) error
	Len() int
}

// StrategyFactory builds a scheduling strategy by name.
type StrategyFactory func(name string, opts engine.Options) (engine.Strategy, error)

// TimetableServiceConfig governs generation behaviour.
type TimetableServiceConfig struct {
	DefaultStrategy  string
	FallbackToGreedy bool
	ForbidBackToBack bool
	ProposalTTL      time.Duration
	CacheTTL         time.Duration
	Catalog          *engine.Catalog
}

// TimetableService runs scheduling strategies, keeps proposals in memory and persists
// accepted proposals as versioned timetables.
type TimetableService struct {
	timetables timetableRepository
	placements timetablePlacementRepository
	tx         txProvider
	cache      *CacheService
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	config     TimetableServiceConfig
	strategies StrategyFactory
	proposals  *ttlStore[timetableProposal]
	jobs       *ttlStore[dto.OptimizationJob]
	queue      jobQueue
	csv        *export.CSVExporter
	pdf        *export.PDFExporter
	now        func() time.Time
}

// timetableProposal is one solved snapshot. Request keeps the strategy the caller
// asked for; Strategy is the one that produced Result. Batches holds the size of
// every override batch added by a replan, oldest first.
type timetableProposal struct {
	ID           string
	Term         string
	Strategy     string
	Request      dto.GenerateTimetableRequest
	Result       engine.Result
	FallbackUsed bool
	Batches      []int
	CreatedAt    time.Time
}

// cachedRun is the cache payload keyed by the input digest.
type cachedRun struct {
	Strategy     string        `json:"strategy"`
	Result       engine.Result `json:"result"`
	FallbackUsed bool          `json:"fallback_used"`
}

// NewTimetableService wires timetable dependencies.
func NewTimetableService(
	timetables timetableRepository,
	placements timetablePlacementRepository,
	tx txProvider,
	cache *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg TimetableServiceConfig,
) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ProposalTTL <= 0 {
		cfg.ProposalTTL = 30 * time.Minute
	}
	if cfg.DefaultStrategy == "" {
		cfg.DefaultStrategy = engine.StrategyGreedy
	}
	if cfg.Catalog == nil {
		cfg.Catalog = engine.DefaultCatalog()
	}
	pdf := export.NewPDFExporter()
	pdf.GroupBy = "Day"
	return &TimetableService{
		timetables: timetables,
		placements: placements,
		tx:         tx,
		cache:      cache,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
		config:     cfg,
		strategies: engine.NewStrategy,
		proposals:  newTTLStore[timetableProposal](cfg.ProposalTTL),
		jobs:       newTTLStore[dto.OptimizationJob](cfg.ProposalTTL),
		csv:        export.NewCSVExporter(),
		pdf:        pdf,
		now:        time.Now,
	}
}

// AttachQueue wires the background queue used by SubmitOptimization.
func (s *TimetableService) AttachQueue(queue jobQueue) {
	s.queue = queue
}

// Generate runs one scheduling pass and stores the outcome as a proposal.
func (s *TimetableService) Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error) {
	return s.generate(ctx, req, nil)
}

func (s *TimetableService) generate(ctx context.Context, req dto.GenerateTimetableRequest, batches []int) (*dto.GenerateTimetableResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable generation payload")
	}
	req = s.normalizeRequest(req)

	digest, err := inputDigest(req, s.config.ForbidBackToBack)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to digest timetable input")
	}
	cacheKey := "proposal:" + digest

	var run cachedRun
	hit, cacheErr := s.cache.Get(ctx, cacheKey, &run)
	if cacheErr != nil {
		hit = false
	}
	if !hit {
		run, err = s.run(ctx, req)
		if err != nil {
			return nil, err
		}
		if run.Result.Status.Usable() {
			_ = s.cache.Set(ctx, cacheKey, run, s.config.CacheTTL)
		}
	}

	proposal := timetableProposal{
		ID:           uuid.NewString(),
		Term:         req.Term,
		Strategy:     run.Strategy,
		Request:      req,
		Result:       run.Result,
		FallbackUsed: run.FallbackUsed,
		Batches:      batches,
		CreatedAt:    s.now().UTC(),
	}
	s.proposals.Save(proposal.ID, proposal, proposal.CreatedAt)

	s.logger.Info("timetable proposal generated",
		zap.String("proposal_id", proposal.ID),
		zap.String("term", proposal.Term),
		zap.String("strategy", proposal.Strategy),
		zap.String("status", string(run.Result.Status)),
		zap.Int("placements", len(run.Result.Schedule)),
		zap.Bool("cached", hit),
		zap.Int("override_batches", len(batches)),
	)
	resp := s.toResponse(proposal)
	resp.Cached = hit
	return resp, nil
}

// Replan appends overrides to a proposal's history and solves again from scratch with
// the strategy originally requested, so a greedy fallback is not carried forward.
func (s *TimetableService) Replan(ctx context.Context, proposalID string, req dto.ReplanRequest) (*dto.GenerateTimetableResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid override payload")
	}
	proposal, ok := s.proposals.Get(proposalID, s.now())
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "proposal not found or expired")
	}
	next := proposal.Request
	next.Overrides = append(append([]models.Override(nil), proposal.Request.Overrides...), req.Overrides...)
	if req.Strategy != "" {
		next.Strategy = req.Strategy
	}
	batches := append(append([]int(nil), proposal.Batches...), len(req.Overrides))
	return s.generate(ctx, next, batches)
}

// UndoOverrides drops the most recent override batch of a proposal and solves again.
// The result is a new proposal; the original stays available until it expires.
func (s *TimetableService) UndoOverrides(ctx context.Context, proposalID string) (*dto.GenerateTimetableResponse, error) {
	proposal, ok := s.proposals.Get(proposalID, s.now())
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "proposal not found or expired")
	}
	if len(proposal.Batches) == 0 {
		return nil, appErrors.Clone(appErrors.ErrConflict, "proposal has no override batch to undo")
	}
	last := proposal.Batches[len(proposal.Batches)-1]
	kept := len(proposal.Request.Overrides) - last
	if kept < 0 {
		kept = 0
	}
	prev := proposal.Request
	prev.Overrides = append([]models.Override(nil), proposal.Request.Overrides[:kept]...)
	batches := append([]int(nil), proposal.Batches[:len(proposal.Batches)-1]...)

	s.logger.Info("undoing override batch",
		zap.String("proposal_id", proposalID),
		zap.Int("dropped", last),
		zap.Int("remaining_batches", len(batches)),
	)
	return s.generate(ctx, prev, batches)
}

// PurgeProposalCache drops every cached run. Cache keys digest the request but not the
// slot catalog, so the gateway purges on startup.
func (s *TimetableService) PurgeProposalCache(ctx context.Context) error {
	if err := s.cache.Invalidate(ctx, "proposal:*"); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to purge proposal cache")
	}
	return nil
}

// GetProposal returns a stored proposal.
func (s *TimetableService) GetProposal(proposalID string) (*dto.GenerateTimetableResponse, error) {
	proposal, ok := s.proposals.Get(proposalID, s.now())
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "proposal not found or expired")
	}
	return s.toResponse(proposal), nil
}

// Save persists a usable proposal as a draft timetable version, optionally publishing it.
func (s *TimetableService) Save(ctx context.Context, req dto.SaveTimetableRequest) (string, error) {
	if err := s.validator.Struct(req); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid save timetable payload")
	}
	proposal, ok := s.proposals.Get(req.ProposalID, s.now())
	if !ok {
		return "", appErrors.Clone(appErrors.ErrNotFound, "proposal not found or expired")
	}
	if !proposal.Result.Status.Usable() {
		return "", appErrors.Clone(appErrors.ErrUnprocessable, fmt.Sprintf("proposal has no usable schedule (status %s)", proposal.Result.Status))
	}
	if s.tx == nil {
		return "", appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}

	metaBytes, marshalErr := json.Marshal(map[string]any{
		"report":        proposal.Result.Report,
		"missing":       proposal.Result.Missing,
		"diagnostics":   len(proposal.Result.Diagnostics),
		"overrides":     proposal.Request.Overrides,
		"fallback_used": proposal.FallbackUsed,
		"generated":     proposal.CreatedAt,
	})
	if marshalErr != nil {
		return "", appErrors.Wrap(marshalErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode timetable metadata")
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	record := &models.Timetable{
		Term:       proposal.Term,
		Status:     models.TimetableStatusDraft,
		Strategy:   proposal.Strategy,
		Verdict:    string(proposal.Result.Status),
		Message:    proposal.Result.Message,
		ProposalID: proposal.ID,
		Meta:       types.JSONText(metaBytes),
	}
	if req.CreatedBy != "" {
		createdBy := req.CreatedBy
		record.CreatedBy = &createdBy
	}
	if err = s.timetables.CreateVersioned(ctx, tx, record); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create timetable")
		return "", err
	}

	rows := make([]models.TimetablePlacement, 0, len(proposal.Result.Schedule))
	for _, p := range proposal.Result.Schedule {
		rows = append(rows, models.NewTimetablePlacement(record.ID, p))
	}
	if err = s.placements.UpsertBatch(ctx, tx, rows); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist timetable placements")
		return "", err
	}

	if req.Publish {
		if err = s.publishWithin(ctx, tx, record.Term, record.ID); err != nil {
			return "", err
		}
	}

	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit timetable transaction")
		return "", err
	}
	s.proposals.Delete(req.ProposalID)
	s.logger.Info("timetable saved",
		zap.String("timetable_id", record.ID),
		zap.String("term", record.Term),
		zap.Int("version", record.Version),
		zap.Bool("published", req.Publish),
	)
	return record.ID, nil
}

// List returns saved timetables, optionally for a single term.
func (s *TimetableService) List(ctx context.Context, query dto.TimetableQuery) ([]models.Timetable, error) {
	start := time.Now()
	list, err := s.timetables.List(ctx, strings.TrimSpace(query.Term))
	s.metrics.ObserveDBQuery("timetables_list", time.Since(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timetables")
	}
	return list, nil
}

// GetPlacements returns the sorted placements of a saved timetable.
func (s *TimetableService) GetPlacements(ctx context.Context, timetableID string) ([]models.Placement, error) {
	if _, err := s.find(ctx, timetableID); err != nil {
		return nil, err
	}
	start := time.Now()
	rows, err := s.placements.ListByTimetable(ctx, timetableID)
	s.metrics.ObserveDBQuery("timetable_placements_list", time.Since(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timetable placements")
	}
	out := make([]models.Placement, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.Placement())
	}
	engine.SortSchedule(out)
	return out, nil
}

// Delete removes a draft timetable version.
func (s *TimetableService) Delete(ctx context.Context, timetableID string) error {
	record, err := s.find(ctx, timetableID)
	if err != nil {
		return err
	}
	if record.Status != models.TimetableStatusDraft {
		return appErrors.Clone(appErrors.ErrConflict, "only draft timetables can be deleted")
	}
	if err := s.timetables.Delete(ctx, timetableID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete timetable")
	}
	return nil
}

// Publish marks a timetable as the published version of its term.
func (s *TimetableService) Publish(ctx context.Context, timetableID string) error {
	record, err := s.find(ctx, timetableID)
	if err != nil {
		return err
	}
	if record.Status == models.TimetableStatusPublished {
		return nil
	}
	if s.tx == nil {
		return appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	if err = s.publishWithin(ctx, tx, record.Term, record.ID); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err = tx.Commit(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit publish transaction")
	}
	return nil
}

// Export renders a saved timetable as CSV or PDF.
func (s *TimetableService) Export(ctx context.Context, timetableID string, format dto.ExportFormat) (*dto.ExportFile, error) {
	format = dto.ExportFormat(strings.ToLower(string(format)))
	if format == "" {
		format = dto.ExportCSV
	}
	if format != dto.ExportCSV && format != dto.ExportPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	record, err := s.find(ctx, timetableID)
	if err != nil {
		return nil, err
	}
	placements, err := s.GetPlacements(ctx, timetableID)
	if err != nil {
		return nil, err
	}

	dataset := PlacementDataset(placements)
	dataset.Title = fmt.Sprintf("Timetable %s v%d (%s)", record.Term, record.Version, strings.ToLower(string(record.Status)))
	base := fmt.Sprintf("timetable-%s-v%d", sanitizeFilename(record.Term), record.Version)

	switch format {
	case dto.ExportPDF:
		body, err := s.pdf.Render(dataset, "")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &dto.ExportFile{Filename: base + ".pdf", ContentType: "application/pdf", Body: body}, nil
	default:
		body, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &dto.ExportFile{Filename: base + ".csv", ContentType: "text/csv", Body: body}, nil
	}
}

// Catalog describes the slot catalog with computed overlap groups and the groups each
// slot clashes with.
func (s *TimetableService) Catalog() []dto.CatalogSlot {
	slots := s.config.Catalog.Slots()
	out := make([]dto.CatalogSlot, 0, len(slots))
	for _, slot := range slots {
		out = append(out, dto.CatalogSlot{
			ID:        slot.ID,
			Days:      slot.Days,
			Start:     slot.Start,
			End:       slot.End,
			Label:     slot.Label(),
			Group:     slot.Group,
			Conflicts: slot.Conflicts(),
			Kinds:     slot.Kinds,
		})
	}
	return out
}

// SubmitOptimization queues a background run, defaulting the strategy to the optimizer.
func (s *TimetableService) SubmitOptimization(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.OptimizationJob, error) {
	if s.queue == nil {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "background optimisation is disabled")
	}
	if req.Strategy == "" {
		req.Strategy = engine.StrategyOptimizer
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable generation payload")
	}
	now := s.now().UTC()
	job := dto.OptimizationJob{ID: uuid.NewString(), State: dto.JobQueued, CreatedAt: now}
	s.jobs.Save(job.ID, job, now)

	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: JobTypeOptimize, Payload: req}); err != nil {
		s.jobs.Delete(job.ID)
		if errors.Is(err, jobs.ErrQueueFull) {
			return nil, appErrors.Clone(appErrors.ErrQueueFull, "optimisation queue is full, retry later")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue optimisation")
	}
	s.metrics.SetQueueDepth(s.queue.Len())
	return &job, nil
}

// HandleJob executes a queued optimisation. Errors are returned to the queue for retry.
func (s *TimetableService) HandleJob(ctx context.Context, job jobs.Job) error {
	req, ok := job.Payload.(dto.GenerateTimetableRequest)
	if !ok {
		s.FailJob(job, fmt.Errorf("unexpected payload %T", job.Payload))
		return nil
	}
	if s.queue != nil {
		s.metrics.SetQueueDepth(s.queue.Len())
	}
	s.jobs.Update(job.ID, func(j *dto.OptimizationJob) { j.State = dto.JobRunning })

	resp, err := s.Generate(ctx, req)
	if err != nil {
		s.jobs.Update(job.ID, func(j *dto.OptimizationJob) { j.Error = err.Error() })
		return err
	}
	finished := s.now().UTC()
	s.jobs.Update(job.ID, func(j *dto.OptimizationJob) {
		j.State = dto.JobSucceeded
		j.Error = ""
		j.Result = resp
		j.FinishedAt = &finished
	})
	return nil
}

// FailJob records a job that exhausted its retries.
func (s *TimetableService) FailJob(job jobs.Job, err error) {
	finished := s.now().UTC()
	s.jobs.Update(job.ID, func(j *dto.OptimizationJob) {
		j.State = dto.JobFailed
		j.Error = err.Error()
		j.FinishedAt = &finished
	})
	s.logger.Warn("timetable optimisation failed", zap.String("job_id", job.ID), zap.Error(err))
}

// Job returns the state of a queued optimisation.
func (s *TimetableService) Job(jobID string) (*dto.OptimizationJob, error) {
	job, ok := s.jobs.Get(jobID, s.now())
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "job not found or expired")
	}
	return &job, nil
}

// PlacementDataset converts placements into an export dataset.
func PlacementDataset(placements []models.Placement) export.Dataset {
	headers := []string{"Day", "Time", "Course", "Component", "Room", "Faculty", "Group", "Pattern"}
	rows := make([]map[string]string, 0, len(placements))
	for _, p := range placements {
		rows = append(rows, map[string]string{
			"Day":       p.Day,
			"Time":      p.Time,
			"Course":    p.CourseID,
			"Component": string(p.Kind),
			"Room":      p.RoomID,
			"Faculty":   p.Faculty,
			"Group":     p.Group,
			"Pattern":   strings.Join(p.Pattern, "/"),
		})
	}
	return export.Dataset{Headers: headers, Rows: rows}
}

// DefaultRooms returns the generic classrooms used when a request carries none.
func DefaultRooms() []models.Room {
	rooms := make([]models.Room, 0, defaultRoomCount)
	for i := 1; i <= defaultRoomCount; i++ {
		rooms = append(rooms, models.Room{ID: fmt.Sprintf("Room_%d", i), Capacity: defaultRoomCapacity, Kind: models.RoomClassroom})
	}
	return rooms
}

func (s *TimetableService) normalizeRequest(req dto.GenerateTimetableRequest) dto.GenerateTimetableRequest {
	req.Term = strings.TrimSpace(req.Term)
	req.Strategy = strings.ToLower(strings.TrimSpace(req.Strategy))
	if req.Strategy == "" {
		req.Strategy = s.config.DefaultStrategy
	}
	if len(req.Rooms) == 0 {
		req.Rooms = DefaultRooms()
	} else {
		rooms := make([]models.Room, len(req.Rooms))
		for i, r := range req.Rooms {
			r.Kind = models.NormalizeRoomKind(r.ID, string(r.Kind))
			rooms[i] = r
		}
		req.Rooms = rooms
	}
	return req
}

// run executes the requested strategy and falls back to greedy when the optimizer
// finds no result.
func (s *TimetableService) run(ctx context.Context, req dto.GenerateTimetableRequest) (cachedRun, error) {
	input := engine.Input{
		Courses:   req.Courses,
		Rooms:     req.Rooms,
		Faculty:   req.Faculty,
		Groups:    req.Groups,
		Overrides: req.Overrides,
		Catalog:   s.config.Catalog,
	}

	result, err := s.solve(ctx, req.Strategy, input)
	if err != nil {
		return cachedRun{}, err
	}
	out := cachedRun{Strategy: req.Strategy, Result: *result}

	if req.Strategy == engine.StrategyOptimizer && result.Status == engine.StatusNoResult && s.config.FallbackToGreedy {
		s.logger.Warn("optimizer found no result, falling back to greedy", zap.String("term", req.Term))
		s.metrics.RecordFallback()
		fallback, err := s.solve(ctx, engine.StrategyGreedy, input)
		if err != nil {
			return cachedRun{}, err
		}
		out = cachedRun{Strategy: engine.StrategyGreedy, Result: *fallback, FallbackUsed: true}
	}

	if out.Result.Status.Usable() {
		if violations := engine.Verify(s.config.Catalog, out.Result.Schedule); len(violations) > 0 {
			s.logger.Error("schedule failed invariant check",
				zap.String("strategy", out.Strategy),
				zap.Int("violations", len(violations)),
				zap.String("first", violations[0].Message),
			)
			return cachedRun{}, appErrors.Wrap(violations[0], appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "generated schedule violates scheduling invariants")
		}
	}
	return out, nil
}

func (s *TimetableService) solve(ctx context.Context, name string, input engine.Input) (*engine.Result, error) {
	strategy, err := s.strategies(name, engine.Options{Logger: s.logger, ForbidBackToBack: s.config.ForbidBackToBack})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unknown scheduling strategy")
	}
	start := s.now()
	result, err := strategy.Solve(ctx, input)
	if err != nil {
		if ctx.Err() != nil {
			return nil, appErrors.FromError(ctx.Err())
		}
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid scheduling input")
	}
	s.metrics.ObserveTimetableRun(strategy.Name(), string(result.Status), len(result.Schedule), result.Report.Defaulted, s.now().Sub(start))
	return result, nil
}

func (s *TimetableService) publishWithin(ctx context.Context, tx sqlx.ExtContext, term, timetableID string) error {
	if err := s.timetables.UnpublishTerm(ctx, tx, term); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unpublish previous timetable")
	}
	if err := s.timetables.UpdateStatus(ctx, tx, timetableID, models.TimetableStatusPublished); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to publish timetable")
	}
	return nil
}

func (s *TimetableService) find(ctx context.Context, timetableID string) (*models.Timetable, error) {
	if timetableID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "timetable id is required")
	}
	record, err := s.timetables.FindByID(ctx, timetableID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	return record, nil
}

func (s *TimetableService) toResponse(p timetableProposal) *dto.GenerateTimetableResponse {
	placements := p.Result.Schedule
	if placements == nil {
		placements = []models.Placement{}
	}
	return &dto.GenerateTimetableResponse{
		ProposalID:   p.ID,
		Term:         p.Term,
		Strategy:     p.Strategy,
		Status:       p.Result.Status,
		Message:      p.Result.Message,
		Placements:   placements,
		Missing:      p.Result.Missing,
		Diagnostics:  p.Result.Diagnostics,
		Report:       p.Result.Report,
		FallbackUsed: p.FallbackUsed,
		Requested:    p.Request.Strategy,
		Batches:      len(p.Batches),
		ExpiresAt:    p.CreatedAt.Add(s.config.ProposalTTL),
	}
}

// inputDigest fingerprints everything that influences a run.
func inputDigest(req dto.GenerateTimetableRequest, forbidBackToBack bool) (string, error) {
	payload, err := json.Marshal(struct {
		Strategy         string                   `json:"strategy"`
		Courses          []models.CourseComponent `json:"courses"`
		Rooms            []models.Room            `json:"rooms"`
		Faculty          []models.Faculty         `json:"faculty"`
		Groups           []string                 `json:"groups"`
		Overrides        []models.Override        `json:"overrides"`
		ForbidBackToBack bool                     `json:"forbid_back_to_back"`
	}{req.Strategy, req.Courses, req.Rooms, req.Faculty, req.Groups, req.Overrides, forbidBackToBack})
	if err != nil {
		return "", err
	}
	sum := blake2b.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

func sanitizeFilename(raw string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, raw)
}

// ttlStore keeps values in memory until they are older than ttl.
type ttlStore[T any] struct {
	ttl   time.Duration
	mu    sync.RWMutex
	items map[string]ttlEntry[T]
}

type ttlEntry[T any] struct {
	value   T
	savedAt time.Time
}

func newTTLStore[T any](ttl time.Duration) *ttlStore[T] {
	return &ttlStore[T]{ttl: ttl, items: make(map[string]ttlEntry[T])}
}

func (s *ttlStore[T]) Save(id string, value T, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, entry := range s.items {
		if now.Sub(entry.savedAt) > s.ttl {
			delete(s.items, key)
		}
	}
	s.items[id] = ttlEntry[T]{value: value, savedAt: now}
}

func (s *ttlStore[T]) Get(id string, now time.Time) (T, bool) {
	s.mu.RLock()
	entry, ok := s.items[id]
	s.mu.RUnlock()
	var zero T
	if !ok {
		return zero, false
	}
	if now.Sub(entry.savedAt) > s.ttl {
		s.Delete(id)
		return zero, false
	}
	return entry.value, true
}

func (s *ttlStore[T]) Update(id string, fn func(*T)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.items[id]
	if !ok {
		return
	}
	fn(&entry.value)
	s.items[id] = entry
}

func (s *ttlStore[T]) Delete(id string) {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
}
