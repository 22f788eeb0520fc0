// internal/service/progress_tracker.go
package service

import (
	"fmt"

	"github.com/anmicius0/artifactory-sync/internal/config"
	"github.com/anmicius0/artifactory-sync/internal/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Operation names recorded in the run's OperationLog.
const (
	OperationLdap         = "ldap"
	OperationRepositories = "repositories"
	OperationRotation     = "rotate-password"
)

// OperationTracker records the progress of one operation in an OperationLog.
type OperationTracker struct {
	log *config.OperationLog
	id  string
}

// NewOperationTracker registers a new operation under a fresh ID.
func NewOperationTracker(log *config.OperationLog, name string, totalItems int) *OperationTracker {
	id := uuid.New().String()
	log.Start(id, name, totalItems)
	return &OperationTracker{log: log, id: id}
}

// ID returns the tracked operation's ID.
func (ot *OperationTracker) ID() string { return ot.id }

// SetProcessing marks the operation as processing.
func (ot *OperationTracker) SetProcessing() {
	_ = ot.log.Update(ot.id, func(op *config.Operation) {
		op.Status = config.OperationStatusProcessing
		op.Message = "Processing"
	})
}

// RecordSkipped counts definition files that were left out of the batch.
func (ot *OperationTracker) RecordSkipped(skipped []SkippedDefinition) {
	if len(skipped) == 0 {
		return
	}
	_ = ot.log.Update(ot.id, func(op *config.Operation) {
		op.SkippedItems += len(skipped)
		for _, s := range skipped {
			op.Failures = append(op.Failures, config.FailedItem{Name: s.File, Reason: s.Reason.Error()})
		}
	})
}

// RecordResult counts one apply result. It fits RepositoryBatchManager.OnResult.
func (ot *OperationTracker) RecordResult(result ApplyResult) {
	_ = ot.log.Update(ot.id, func(op *config.Operation) {
		if result.Success {
			op.SuccessfulItems++
			return
		}
		op.FailedItems++
		reason := "write was not accepted"
		if result.Error != nil {
			reason = result.Error.Error()
		}
		op.Failures = append(op.Failures, config.FailedItem{Name: result.Key, Reason: reason})
	})
}

// Finalize marks a batch operation as completed or failed from its counts.
func (ot *OperationTracker) Finalize() {
	var successful, failed, total int
	_ = ot.log.Update(ot.id, func(op *config.Operation) {
		successful, failed, total = op.SuccessfulItems, op.FailedItems, op.TotalItems

		if failed == 0 {
			op.Status = config.OperationStatusCompleted
			op.Message = fmt.Sprintf("Successfully applied all %d repositories", successful)
		} else if successful == 0 {
			op.Status = config.OperationStatusFailed
			op.Message = fmt.Sprintf("All %d repositories failed", failed)
		} else {
			op.Status = config.OperationStatusCompleted
			op.Message = fmt.Sprintf("Applied %d of %d repositories with %d errors", successful, total, failed)
		}
	})

	utils.Logger.Info("Operation finalized",
		zap.String("operation_id", ot.id),
		zap.Int("successful", successful),
		zap.Int("failed", failed),
		zap.Int("total", total))
}

// Complete marks a single-step operation as completed.
func (ot *OperationTracker) Complete(message string) {
	_ = ot.log.Update(ot.id, func(op *config.Operation) {
		op.Status = config.OperationStatusCompleted
		op.SuccessfulItems = op.TotalItems
		op.Message = message
	})
}

// MarkFailed marks the operation as failed with err as the reason.
func (ot *OperationTracker) MarkFailed(name string, err error) {
	_ = ot.log.Update(ot.id, func(op *config.Operation) {
		op.Status = config.OperationStatusFailed
		op.FailedItems = op.TotalItems - op.SuccessfulItems
		op.Failures = append(op.Failures, config.FailedItem{Name: name, Reason: err.Error()})
		op.Message = err.Error()
	})

	utils.Logger.Info("Operation marked as failed",
		zap.String("operation_id", ot.id),
		zap.Error(err))
}
