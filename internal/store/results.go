package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SaveResult persists the finished analysis document for a task and returns
// the generated result id. A second save for the same task is a logic error
// and fails with ErrResultExists rather than silently overwriting.
func (s *Store) SaveResult(ctx context.Context, result *Result) (string, error) {
	if result.TaskID == "" {
		return "", errors.New("result task id is required")
	}
	if result.ID == "" {
		result.ID = uuid.NewString()
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing Result
		err := tx.Take(&existing, "task_id = ?", result.TaskID).Error
		if err == nil {
			return fmt.Errorf("%w: task %s", ErrResultExists, result.TaskID)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return tx.Create(result).Error
	})
	if err != nil {
		return "", err
	}
	return result.ID, nil
}

// GetResult loads a result by its id.
func (s *Store) GetResult(ctx context.Context, id string) (*Result, error) {
	var result Result
	if err := s.db.WithContext(ctx).Take(&result, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load result: %w", err)
	}
	return &result, nil
}

// GetResultByTask loads the result belonging to a task.
func (s *Store) GetResultByTask(ctx context.Context, taskID string) (*Result, error) {
	var result Result
	if err := s.db.WithContext(ctx).Take(&result, "task_id = ?", taskID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load result: %w", err)
	}
	return &result, nil
}

// MarkExported sets the exported flag on a result. The only mutation a
// result permits after creation.
func (s *Store) MarkExported(ctx context.Context, resultID string) error {
	res := s.db.WithContext(ctx).Model(&Result{}).Where("id = ?", resultID).Update("exported", true)
	if res.Error != nil {
		return fmt.Errorf("failed to mark exported: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordExport appends an export history entry.
func (s *Store) RecordExport(ctx context.Context, record *ExportRecord) error {
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("failed to record export: %w", err)
	}
	return nil
}

// ListExports returns the export history for a result, newest first.
func (s *Store) ListExports(ctx context.Context, resultID string) ([]ExportRecord, error) {
	var records []ExportRecord
	if err := s.db.WithContext(ctx).Where("result_id = ?", resultID).Order("created_at DESC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list exports: %w", err)
	}
	return records, nil
}

// RecordUsage appends an API usage entry for an external AI backend call.
func (s *Store) RecordUsage(ctx context.Context, usage *APIUsage) error {
	if err := s.db.WithContext(ctx).Create(usage).Error; err != nil {
		return fmt.Errorf("failed to record api usage: %w", err)
	}
	return nil
}
