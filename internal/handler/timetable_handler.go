package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
	"github.com/noah-isme/timetable-api/pkg/response"
)

const maxCourseComponents = 2000

type timetableService interface {
	Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error)
	Replan(ctx context.Context, proposalID string, req dto.ReplanRequest) (*dto.GenerateTimetableResponse, error)
	UndoOverrides(ctx context.Context, proposalID string) (*dto.GenerateTimetableResponse, error)
	GetProposal(proposalID string) (*dto.GenerateTimetableResponse, error)
	Save(ctx context.Context, req dto.SaveTimetableRequest) (string, error)
	List(ctx context.Context, query dto.TimetableQuery) ([]models.Timetable, error)
	GetPlacements(ctx context.Context, id string) ([]models.Placement, error)
	Delete(ctx context.Context, id string) error
	Publish(ctx context.Context, id string) error
	Export(ctx context.Context, id string, format dto.ExportFormat) (*dto.ExportFile, error)
	Catalog() []dto.CatalogSlot
	SubmitOptimization(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.OptimizationJob, error)
	Job(id string) (*dto.OptimizationJob, error)
}

// TimetableHandler exposes timetable generation and management endpoints.
type TimetableHandler struct {
	service timetableService
	prefix  string
}

// NewTimetableHandler constructs the handler. prefix is the API prefix used to build
// job polling locations.
func NewTimetableHandler(svc timetableService, prefix string) *TimetableHandler {
	return &TimetableHandler{service: svc, prefix: prefix}
}

// Generate godoc
// @Summary Generate a timetable proposal
// @Description Runs the greedy or optimizer strategy and stores the outcome as a proposal. Infeasible runs still return 200 with status fail or no_result.
// @Tags Timetables
// @Accept json
// @Produce json
// @Param payload body dto.GenerateTimetableRequest true "Scheduling snapshot"
// @Success 200 {object} response.Envelope
// @Router /timetables/generate [post]
func (h *TimetableHandler) Generate(c *gin.Context) {
	req, ok := bindGenerate(c)
	if !ok {
		return
	}
	result, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil, proposalMeta(result))
}

// Proposal godoc
// @Summary Get a stored proposal
// @Tags Timetables
// @Produce json
// @Param id path string true "Proposal ID"
// @Success 200 {object} response.Envelope
// @Router /timetables/proposals/{id} [get]
func (h *TimetableHandler) Proposal(c *gin.Context) {
	result, err := h.service.GetProposal(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil, proposalMeta(result))
}

// Replan godoc
// @Summary Apply overrides to a proposal and solve again
// @Tags Timetables
// @Accept json
// @Produce json
// @Param id path string true "Proposal ID"
// @Param payload body dto.ReplanRequest true "Overrides"
// @Success 200 {object} response.Envelope
// @Router /timetables/proposals/{id}/overrides [post]
func (h *TimetableHandler) Replan(c *gin.Context) {
	var req dto.ReplanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid override payload"))
		return
	}
	result, err := h.service.Replan(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil, proposalMeta(result))
}

// Undo godoc
// @Summary Drop the latest override batch of a proposal and solve again
// @Tags Timetables
// @Produce json
// @Param id path string true "Proposal ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /timetables/proposals/{id}/overrides/last [delete]
func (h *TimetableHandler) Undo(c *gin.Context) {
	result, err := h.service.UndoOverrides(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil, proposalMeta(result))
}

// Save godoc
// @Summary Save a proposal as a timetable version
// @Tags Timetables
// @Accept json
// @Produce json
// @Param payload body dto.SaveTimetableRequest true "Save payload"
// @Success 201 {object} response.Envelope
// @Router /timetables/save [post]
func (h *TimetableHandler) Save(c *gin.Context) {
	var req dto.SaveTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid save payload"))
		return
	}
	req.CreatedBy = actorID(c)
	id, err := h.service.Save(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"timetable_id": id})
}

// Optimize godoc
// @Summary Queue a background optimizer run
// @Tags Timetables
// @Accept json
// @Produce json
// @Param payload body dto.GenerateTimetableRequest true "Scheduling snapshot"
// @Success 202 {object} response.Envelope
// @Router /timetables/optimize [post]
func (h *TimetableHandler) Optimize(c *gin.Context) {
	req, ok := bindGenerate(c)
	if !ok {
		return
	}
	job, err := h.service.SubmitOptimization(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, h.prefix+"/timetables/jobs/"+job.ID, job)
}

// Job godoc
// @Summary Poll a background optimizer run
// @Tags Timetables
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Router /timetables/jobs/{id} [get]
func (h *TimetableHandler) Job(c *gin.Context) {
	job, err := h.service.Job(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}

// List godoc
// @Summary List saved timetables
// @Tags Timetables
// @Produce json
// @Param term query string false "Term"
// @Success 200 {object} response.Envelope
// @Router /timetables [get]
func (h *TimetableHandler) List(c *gin.Context) {
	var query dto.TimetableQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	result, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, &models.Pagination{Page: 1, PageSize: len(result), TotalCount: len(result)})
}

// Placements godoc
// @Summary Get placements of a saved timetable
// @Tags Timetables
// @Produce json
// @Param id path string true "Timetable ID"
// @Success 200 {object} response.Envelope
// @Router /timetables/{id}/placements [get]
func (h *TimetableHandler) Placements(c *gin.Context) {
	placements, err := h.service.GetPlacements(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, placements, nil)
}

// Export godoc
// @Summary Download a saved timetable
// @Tags Timetables
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Timetable ID"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /timetables/{id}/export [get]
func (h *TimetableHandler) Export(c *gin.Context) {
	file, err := h.service.Export(c.Request.Context(), c.Param("id"), dto.ExportFormat(c.DefaultQuery("format", string(dto.ExportCSV))))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, file.Filename, file.ContentType, file.Body)
}

// Delete godoc
// @Summary Delete a draft timetable
// @Tags Timetables
// @Param id path string true "Timetable ID"
// @Success 204
// @Router /timetables/{id} [delete]
func (h *TimetableHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Publish godoc
// @Summary Publish a timetable for its term
// @Tags Timetables
// @Param id path string true "Timetable ID"
// @Success 204
// @Router /timetables/{id}/publish [post]
func (h *TimetableHandler) Publish(c *gin.Context) {
	if err := h.service.Publish(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Catalog godoc
// @Summary List catalog slots with overlap groups
// @Tags Timetables
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /timetables/catalog [get]
func (h *TimetableHandler) Catalog(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.Catalog(), nil, map[string]interface{}{
		"can_override": canOverride(c),
	})
}

func bindGenerate(c *gin.Context) (dto.GenerateTimetableRequest, bool) {
	var req dto.GenerateTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generate payload"))
		return req, false
	}
	if len(req.Courses) > maxCourseComponents {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "courses exceeds supported limit"))
		return req, false
	}
	return req, true
}

func proposalMeta(result *dto.GenerateTimetableResponse) map[string]interface{} {
	return map[string]interface{}{
		"usable":        result.Status.Usable(),
		"fallback_used": result.FallbackUsed,
		"cached":        result.Cached,
	}
}
