package dto

import (
	"time"

	"github.com/noah-isme/timetable-api/internal/engine"
	"github.com/noah-isme/timetable-api/internal/models"
)

// GenerateTimetableRequest carries one scheduling snapshot.
type GenerateTimetableRequest struct {
	Term      string                   `json:"term" validate:"required,max=64"`
	Strategy  string                   `json:"strategy" validate:"omitempty,oneof=greedy optimizer"`
	Courses   []models.CourseComponent `json:"courses" validate:"required,min=1,dive"`
	Rooms     []models.Room            `json:"rooms" validate:"omitempty,dive"`
	Faculty   []models.Faculty         `json:"faculty" validate:"omitempty,dive"`
	Groups    []string                 `json:"groups"`
	Overrides []models.Override        `json:"overrides" validate:"omitempty,dive"`
}

// GenerateTimetableResponse returns a stored proposal.
type GenerateTimetableResponse struct {
	ProposalID   string                `json:"proposal_id"`
	Term         string                `json:"term"`
	Strategy     string                `json:"strategy"`
	Status       engine.Status         `json:"status"`
	Message      string                `json:"message"`
	Placements   []models.Placement    `json:"placements"`
	Missing      []models.ComponentKey `json:"missing,omitempty"`
	Diagnostics  []engine.Diagnostic   `json:"diagnostics,omitempty"`
	Report       engine.Report         `json:"report"`
	FallbackUsed bool                  `json:"fallback_used"`
	Requested    string                `json:"requested_strategy"`
	Batches      int                   `json:"override_batches"`
	Cached       bool                  `json:"cached"`
	ExpiresAt    time.Time             `json:"expires_at"`
}

// ReplanRequest appends overrides to a proposal and solves again.
type ReplanRequest struct {
	Overrides []models.Override `json:"overrides" validate:"required,min=1,dive"`
	Strategy  string            `json:"strategy" validate:"omitempty,oneof=greedy optimizer"`
}

// SaveTimetableRequest persists a proposal as a draft timetable.
type SaveTimetableRequest struct {
	ProposalID string `json:"proposal_id" validate:"required"`
	Publish    bool   `json:"publish"`
	CreatedBy  string `json:"-"`
}

// TimetableQuery filters saved timetables.
type TimetableQuery struct {
	Term string `form:"term" json:"term"`
}

// JobState is the lifecycle of a queued optimisation.
type JobState string

const (
	JobQueued    JobState = "queued"
	JobRunning   JobState = "running"
	JobSucceeded JobState = "succeeded"
	JobFailed    JobState = "failed"
)

// OptimizationJob reports a queued optimizer run.
type OptimizationJob struct {
	ID         string                     `json:"id"`
	State      JobState                   `json:"state"`
	Error      string                     `json:"error,omitempty"`
	Result     *GenerateTimetableResponse `json:"result,omitempty"`
	CreatedAt  time.Time                  `json:"created_at"`
	FinishedAt *time.Time                 `json:"finished_at,omitempty"`
}

// ExportFormat names a download format.
type ExportFormat string

const (
	ExportCSV ExportFormat = "csv"
	ExportPDF ExportFormat = "pdf"
)

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// CatalogSlot describes one catalog slot with its overlap group.
type CatalogSlot struct {
	ID        string                 `json:"id"`
	Days      []string               `json:"days"`
	Start     string                 `json:"start"`
	End       string                 `json:"end"`
	Label     string                 `json:"label"`
	Group     string                 `json:"overlap_group"`
	Conflicts []string               `json:"conflicts_with,omitempty"`
	Kinds     []models.ComponentKind `json:"kinds"`
}
