package shared

import (
	"fmt"
	"strings"

	"github.com/quartzerp/mrp/pkg/domain/entities"
)

// ValidationError reports bad run parameters. Raised before a run is
// created, never during execution.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewValidationError creates a ValidationError for a parameter
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// CycleError reports a cycle in the BOM graph, naming the BOMs involved.
// During whole-company LLC computation it is fatal to the run; during a
// single product's explosion it downgrades to a warning.
type CycleError struct {
	Boms []entities.BomID
	Path []entities.ProductID
}

func (e *CycleError) Error() string {
	parts := make([]string, len(e.Boms))
	for i, id := range e.Boms {
		parts[i] = string(id)
	}
	msg := fmt.Sprintf("bom cycle detected involving [%s]", strings.Join(parts, ", "))
	if len(e.Path) > 0 {
		steps := make([]string, len(e.Path))
		for i, id := range e.Path {
			steps[i] = string(id)
		}
		msg += fmt.Sprintf(" via %s", strings.Join(steps, " -> "))
	}
	return msg
}

// NewCycleError creates a CycleError naming the offending BOMs
func NewCycleError(boms []entities.BomID, path []entities.ProductID) *CycleError {
	return &CycleError{Boms: boms, Path: path}
}

// MissingBomError reports a make product with demand but no default active
// BOM. Counted as a warning; the run continues.
type MissingBomError struct {
	ProductID entities.ProductID
}

func (e *MissingBomError) Error() string {
	return fmt.Sprintf("product %s has no default active bom", e.ProductID)
}

// ChunkError reports a chunk that failed or timed out after exhausting its
// retry budget.
type ChunkError struct {
	Tier     int
	Chunk    int
	Attempts int
	Err      error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("chunk %d in tier %d failed after %d attempts: %v", e.Chunk, e.Tier, e.Attempts, e.Err)
}

func (e *ChunkError) Unwrap() error {
	return e.Err
}
