// Path: internal/config/operation.go
package config

import (
	"fmt"
	"sync"
	"time"
)

// OperationStatus represents the current state of a sync operation
type OperationStatus string

const (
	OperationStatusPending    OperationStatus = "pending"
	OperationStatusProcessing OperationStatus = "processing"
	OperationStatusCompleted  OperationStatus = "completed"
	OperationStatusFailed     OperationStatus = "failed"
)

// Operation records one unit of work of a CLI run: an LDAP settings sync,
// a repository batch or a password rotation.
type Operation struct {
	// ID is the unique identifier for this operation
	ID string
	// Name is "ldap", "repositories" or "rotate-password"
	Name string
	// Status is the current state of the operation
	Status OperationStatus
	// StartedAt is the time when the operation was registered
	StartedAt time.Time
	// UpdatedAt is the time when the operation was last updated
	UpdatedAt time.Time
	// TotalItems is the number of items the operation works on
	TotalItems int
	// SuccessfulItems counts items that completed without error
	SuccessfulItems int
	// FailedItems counts items that encountered an error
	FailedItems int
	// SkippedItems counts inputs that were rejected before any API call
	SkippedItems int
	// Failures contains details of items that failed or were skipped
	Failures []FailedItem
	// Message is a human-readable status message
	Message string
}

// FailedItem names an item that failed along with the error reason.
type FailedItem struct {
	// Name identifies the item, e.g. a repository key or a file path
	Name string
	// Reason is the error message describing why the item failed
	Reason string
}

// OperationLog keeps the operations of one CLI run in start order.
type OperationLog struct {
	mu    sync.RWMutex
	ops   map[string]*Operation
	order []string
}

// NewOperationLog creates an empty operation log
func NewOperationLog() *OperationLog {
	return &OperationLog{
		ops: make(map[string]*Operation),
	}
}

// Start registers a new pending operation
func (ol *OperationLog) Start(id, name string, totalItems int) *Operation {
	ol.mu.Lock()
	defer ol.mu.Unlock()

	op := &Operation{
		ID:         id,
		Name:       name,
		Status:     OperationStatusPending,
		StartedAt:  time.Now(),
		UpdatedAt:  time.Now(),
		TotalItems: totalItems,
		Failures:   make([]FailedItem, 0),
		Message:    "Operation queued",
	}
	if _, exists := ol.ops[id]; !exists {
		ol.order = append(ol.order, id)
	}
	ol.ops[id] = op
	return op
}

// Get retrieves a copy of an operation by ID
func (ol *OperationLog) Get(id string) (Operation, bool) {
	ol.mu.RLock()
	defer ol.mu.RUnlock()
	op, exists := ol.ops[id]
	if !exists {
		return Operation{}, false
	}
	return *op, true
}

// Update applies updateFn to an operation
func (ol *OperationLog) Update(id string, updateFn func(*Operation)) error {
	ol.mu.Lock()
	defer ol.mu.Unlock()

	op, exists := ol.ops[id]
	if !exists {
		return fmt.Errorf("operation %s not found", id)
	}
	updateFn(op)
	op.UpdatedAt = time.Now()
	return nil
}

// All returns copies of all operations in start order
func (ol *OperationLog) All() []Operation {
	ol.mu.RLock()
	defer ol.mu.RUnlock()

	out := make([]Operation, 0, len(ol.order))
	for _, id := range ol.order {
		out = append(out, *ol.ops[id])
	}
	return out
}

// Failed reports whether any operation failed or recorded a failed or skipped item
func (ol *OperationLog) Failed() bool {
	for _, op := range ol.All() {
		if op.Status != OperationStatusCompleted || op.FailedItems > 0 || op.SkippedItems > 0 {
			return true
		}
	}
	return false
}
