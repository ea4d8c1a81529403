package services

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ValidationError marks missing or malformed input; it carries no partial
// effect on the store.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func validationErr(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// NotFoundError reports an unknown item, order, supplier or recipe.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func notFoundErr(entity string, id uuid.UUID) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id.String()}
}

// Shortfall is one ingredient an order deduction could not cover.
type Shortfall struct {
	ItemID     uuid.UUID `json:"item_id"`
	Ingredient string    `json:"ingredient"`
	Required   float64   `json:"required"`
	Available  float64   `json:"available"`
	Unit       string    `json:"unit"`
}

// InsufficientStockError lists every short ingredient of a failed deduction.
type InsufficientStockError struct {
	Shortfalls []Shortfall
}

func (e *InsufficientStockError) Error() string {
	names := make([]string, 0, len(e.Shortfalls))
	for _, s := range e.Shortfalls {
		names = append(names, fmt.Sprintf("%s (need %.3f %s, have %.3f)", s.Ingredient, s.Required, s.Unit, s.Available))
	}
	return "insufficient stock: " + strings.Join(names, "; ")
}

// ConcurrencyConflictError reports a lost update detected by the per-item
// version check; callers retry or surface it.
type ConcurrencyConflictError struct {
	Entity string
	ID     uuid.UUID
}

func (e *ConcurrencyConflictError) Error() string {
	return fmt.Sprintf("concurrent modification of %s %s", e.Entity, e.ID)
}

// ApprovalRequiredError signals that a recorded movement exceeds the variance
// threshold and waits for explicit sign-off before it affects stock.
type ApprovalRequiredError struct {
	MovementID      uuid.UUID
	VariancePercent float64
}

func (e *ApprovalRequiredError) Error() string {
	return fmt.Sprintf("movement %s requires approval (variance %.1f%%)", e.MovementID, e.VariancePercent)
}

// InvalidStateTransitionError reports an operation not legal in the entity's
// current state, e.g. receiving against a cancelled purchase order.
type InvalidStateTransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("%s cannot transition from %s to %s", e.Entity, e.From, e.To)
}
