package store

import (
	"time"
)

// Status is the lifecycle state shared by tasks and steps.
//
// Transitions are one-directional: pending -> running -> completed or error.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// Terminal reports whether the status is a terminal state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// Task is one end-to-end analysis run for a submitted URL.
//
// Mutated only by the pipeline runner; read concurrently by status pollers.
type Task struct {
	ID        string `gorm:"primaryKey;size:50"`
	URL       string `gorm:"size:255;not null"`
	Status    Status `gorm:"size:20;not null;index"`
	Progress  int    `gorm:"not null;default:0"`
	Message   string `gorm:"type:text"`
	Error     string `gorm:"type:text"`
	ErrorKind string `gorm:"size:30"`
	ResultID  string `gorm:"size:50"`
	Delivered bool   `gorm:"not null;default:false"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Steps []TaskStep `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE"`
}

// TaskStep is one named phase within a task's pipeline. The full step list is
// created in bulk when the task is created and updated in place afterwards.
type TaskStep struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	TaskID    string `gorm:"size:50;not null;index:idx_task_step,unique"`
	StepIndex int    `gorm:"not null;index:idx_task_step,unique"`
	Name      string `gorm:"size:100;not null"`
	Status    Status `gorm:"size:20;not null"`
	Message   string `gorm:"type:text"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Result is the persisted output document of a successfully completed task.
// Immutable after creation except for the Exported flag.
type Result struct {
	ID             string `gorm:"primaryKey;size:50"`
	TaskID         string `gorm:"size:50;not null;uniqueIndex"`
	URL            string `gorm:"size:255;not null"`
	Title          string `gorm:"size:255"`
	Description    string `gorm:"type:text"`
	PlanText       string `gorm:"type:text"`
	DesignJSON     string `gorm:"type:text"`
	ComponentsJSON string `gorm:"type:text"`
	PagesJSON      string `gorm:"type:text"`
	StructureJSON  string `gorm:"type:text"`
	Exported       bool   `gorm:"not null;default:false"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ExportRecord tracks one export of a result to a file format.
type ExportRecord struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	ResultID  string `gorm:"size:50;not null;index"`
	Format    string `gorm:"size:20;not null"`
	FilePath  string `gorm:"size:255"`
	CreatedAt time.Time
}

// APIUsage records one call to an external AI backend.
type APIUsage struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	APIType   string `gorm:"size:20;not null"`
	Endpoint  string `gorm:"size:50;not null"`
	TokensIn  int    `gorm:"not null;default:0"`
	TokensOut int    `gorm:"not null;default:0"`
	TaskID    string `gorm:"size:50;index"`
	CreatedAt time.Time
}

// Setting is a persisted key/value configuration entry, such as the AI
// backend selected for a feature.
type Setting struct {
	Key       string `gorm:"primaryKey;size:100"`
	Value     string `gorm:"type:text"`
	UpdatedAt time.Time
}
