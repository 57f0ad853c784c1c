// Package store provides relational persistence for tasks, steps, results,
// exports, settings and API usage, backed by gorm over SQLite.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrResultExists indicates a second result save for the same task.
	ErrResultExists = errors.New("result already exists for task")

	// ErrInvalidTransition indicates a status change that violates the
	// one-directional task lifecycle.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Store wraps the database handle and provides typed accessors.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// Open opens the SQLite database at path and runs migrations.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if path == "" {
		return nil, errors.New("database path is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows one writer; a single pooled connection avoids lock
	// errors between the pipeline writer and status pollers.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access database pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&Task{}, &TaskStep{}, &Result{}, &ExportRecord{}, &APIUsage{}, &Setting{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	logger.Info("database ready", zap.String("path", path))

	return &Store{db: db, logger: logger}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// CreateTask creates a task in pending state together with its full step
// list. Steps are fixed at creation time.
func (s *Store) CreateTask(ctx context.Context, url string, stepNames []string) (*Task, error) {
	if len(stepNames) == 0 {
		return nil, errors.New("at least one step is required")
	}

	task := &Task{
		ID:       uuid.NewString(),
		URL:      url,
		Status:   StatusPending,
		Progress: 0,
		Message:  "analysis queued",
	}
	for i, name := range stepNames {
		task.Steps = append(task.Steps, TaskStep{
			StepIndex: i,
			Name:      name,
			Status:    StatusPending,
		})
	}

	if err := s.db.WithContext(ctx).Create(task).Error; err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return task, nil
}

// GetTask loads a task with its steps ordered by declared index.
func (s *Store) GetTask(ctx context.Context, id string) (*Task, error) {
	var task Task
	err := s.db.WithContext(ctx).
		Preload("Steps", func(db *gorm.DB) *gorm.DB { return db.Order("step_index ASC") }).
		Take(&task, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load task: %w", err)
	}
	return &task, nil
}

// ListTasks returns all tasks, newest first, without step detail.
func (s *Store) ListTasks(ctx context.Context) ([]Task, error) {
	var tasks []Task
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// DeleteTask removes a task together with its steps, its result and the
// result's export history.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&Task{}, "id = ?", id)
		if res.Error != nil {
			return fmt.Errorf("failed to delete task: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		if err := tx.Delete(&TaskStep{}, "task_id = ?", id).Error; err != nil {
			return err
		}
		return deleteTaskArtifacts(tx, id)
	})
}

// deleteTaskArtifacts removes the task's result and export history, if any.
func deleteTaskArtifacts(tx *gorm.DB, taskID string) error {
	var result Result
	err := tx.Take(&result, "task_id = ?", taskID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := tx.Delete(&ExportRecord{}, "result_id = ?", result.ID).Error; err != nil {
		return err
	}
	return tx.Delete(&Result{}, "id = ?", result.ID).Error
}

// MarkRunning transitions a pending task to running.
func (s *Store) MarkRunning(ctx context.Context, id string, message string) error {
	return s.transition(ctx, id, StatusPending, StatusRunning, func(task *Task) {
		task.Message = message
	})
}

// FailTask transitions a running or pending task to error, recording the
// collaborator error message verbatim plus its tagged kind. Steps that have
// not run stay pending.
func (s *Store) FailTask(ctx context.Context, id string, kind string, errMsg string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var task Task
		if err := tx.Take(&task, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if task.Status.Terminal() {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, task.Status, StatusError)
		}
		task.Status = StatusError
		task.Error = errMsg
		task.ErrorKind = kind
		task.Message = "analysis failed"
		return tx.Save(&task).Error
	})
}

// CompleteTask transitions a running task to completed with progress 100 and
// the reference to its persisted result.
func (s *Store) CompleteTask(ctx context.Context, id string, resultID string) error {
	return s.transition(ctx, id, StatusRunning, StatusCompleted, func(task *Task) {
		task.Progress = 100
		task.Message = "analysis complete"
		task.ResultID = resultID
	})
}

// MarkDelivered flags that the task's result page has been served to a
// client. Pollers use this to avoid duplicate redirects.
func (s *Store) MarkDelivered(ctx context.Context, taskID string) error {
	res := s.db.WithContext(ctx).Model(&Task{}).Where("id = ?", taskID).Update("delivered", true)
	if res.Error != nil {
		return fmt.Errorf("failed to mark delivered: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateStep updates one step's status and message, and recomputes the owning
// task's progress in the same transaction. Task progress counts completed
// steps fully and running steps at half weight, and never decreases.
func (s *Store) UpdateStep(ctx context.Context, taskID string, index int, status Status, message string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var task Task
		if err := tx.Take(&task, "id = ?", taskID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		var step TaskStep
		if err := tx.Take(&step, "task_id = ? AND step_index = ?", taskID, index).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		step.Status = status
		if message != "" {
			step.Message = message
		}
		if err := tx.Save(&step).Error; err != nil {
			return err
		}

		var steps []TaskStep
		if err := tx.Where("task_id = ?", taskID).Find(&steps).Error; err != nil {
			return err
		}

		completed, running := 0, 0
		for _, st := range steps {
			switch st.Status {
			case StatusCompleted:
				completed++
			case StatusRunning:
				running++
			}
		}
		progress := int((float64(completed) + 0.5*float64(running)) / float64(len(steps)) * 100)
		if progress > task.Progress {
			task.Progress = progress
		}

		switch status {
		case StatusRunning:
			if message != "" {
				task.Message = fmt.Sprintf("%s - %s", step.Name, message)
			} else {
				task.Message = fmt.Sprintf("%s in progress", step.Name)
			}
		case StatusCompleted:
			task.Message = fmt.Sprintf("%s done", step.Name)
		}

		return tx.Save(&task).Error
	})
}

// StatusSummary aggregates task counts by status.
type StatusSummary struct {
	Total     int64 `json:"total"`
	Pending   int64 `json:"pending"`
	Running   int64 `json:"running"`
	Completed int64 `json:"completed"`
	Error     int64 `json:"error"`
	Recent    int64 `json:"recent"`
}

// Summary returns task counts by status, plus tasks created in the last day.
func (s *Store) Summary(ctx context.Context) (*StatusSummary, error) {
	var summary StatusSummary
	db := s.db.WithContext(ctx).Model(&Task{})

	if err := db.Count(&summary.Total).Error; err != nil {
		return nil, fmt.Errorf("failed to count tasks: %w", err)
	}
	counts := []struct {
		status Status
		dest   *int64
	}{
		{StatusPending, &summary.Pending},
		{StatusRunning, &summary.Running},
		{StatusCompleted, &summary.Completed},
		{StatusError, &summary.Error},
	}
	for _, c := range counts {
		if err := s.db.WithContext(ctx).Model(&Task{}).Where("status = ?", c.status).Count(c.dest).Error; err != nil {
			return nil, fmt.Errorf("failed to count tasks: %w", err)
		}
	}
	cutoff := time.Now().Add(-24 * time.Hour)
	if err := s.db.WithContext(ctx).Model(&Task{}).Where("created_at > ?", cutoff).Count(&summary.Recent).Error; err != nil {
		return nil, fmt.Errorf("failed to count recent tasks: %w", err)
	}
	return &summary, nil
}

// CleanupTasks deletes terminal tasks not updated within the retention
// window, together with their results and export history, and returns the
// number of tasks removed. Running tasks are never touched.
func (s *Store) CleanupTasks(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	var deleted int64

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var expired []Task
		if err := tx.Where("status IN ? AND updated_at < ?", []Status{StatusCompleted, StatusError}, cutoff).
			Find(&expired).Error; err != nil {
			return err
		}
		for _, task := range expired {
			if err := tx.Delete(&TaskStep{}, "task_id = ?", task.ID).Error; err != nil {
				return err
			}
			if err := deleteTaskArtifacts(tx, task.ID); err != nil {
				return err
			}
			if err := tx.Delete(&Task{}, "id = ?", task.ID).Error; err != nil {
				return err
			}
			deleted++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to clean up tasks: %w", err)
	}
	return deleted, nil
}

// transition applies a guarded one-directional status change.
func (s *Store) transition(ctx context.Context, id string, from, to Status, mutate func(*Task)) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var task Task
		if err := tx.Take(&task, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if task.Status != from {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, task.Status, to)
		}
		task.Status = to
		if mutate != nil {
			mutate(&task)
		}
		return tx.Save(&task).Error
	})
}
