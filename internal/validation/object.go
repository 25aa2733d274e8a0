// Package validation composes the user-caused-skip checks the action layer
// (spec.md 4.3, 7 taxonomy #1) runs before mutating a TableObject, adapted
// from the teacher's internal/validation issue-validator chain: each rule is
// a small function, Chain stops at the first failure, and the caller decides
// whether a failure means "skip with a warning" or "report in failed[]".
package validation

import (
	"fmt"

	"github.com/tablecore/engine/internal/types"
)

// ObjectValidator validates a candidate object (which may be nil, meaning
// "not found") and returns an error describing the first violated rule.
type ObjectValidator func(id string, obj *types.TableObject) error

// Chain composes validators in order; the first error short-circuits.
func Chain(validators ...ObjectValidator) ObjectValidator {
	return func(id string, obj *types.TableObject) error {
		for _, v := range validators {
			if err := v(id, obj); err != nil {
				return err
			}
		}
		return nil
	}
}

// Exists fails if the object was not found in the store.
func Exists() ObjectValidator {
	return func(id string, obj *types.TableObject) error {
		if obj == nil {
			return fmt.Errorf("object %s not found", id)
		}
		return nil
	}
}

// NotLocked fails if the object is locked (spec.md 3.2 invariant 4: locked
// objects cannot acquire a non-null _selectedBy, and most mutations are
// blocked too).
func NotLocked() ObjectValidator {
	return func(id string, obj *types.TableObject) error {
		if obj == nil {
			return nil
		}
		if obj.Locked {
			return fmt.Errorf("object %s is locked", id)
		}
		return nil
	}
}

// AvailableTo fails if the object is already claimed by a different actor.
// A self-claim is not an error — callers treat that as an idempotent
// success, so this validator only rejects the other-actor case.
func AvailableTo(actor string) ObjectValidator {
	return func(id string, obj *types.TableObject) error {
		if obj == nil {
			return nil
		}
		if obj.SelectedBy != "" && obj.SelectedBy != actor {
			return fmt.Errorf("object %s is selected by %s", id, obj.SelectedBy)
		}
		return nil
	}
}

// HasKind fails unless the object's kind is one of allowed.
func HasKind(allowed ...types.Kind) ObjectValidator {
	return func(id string, obj *types.TableObject) error {
		if obj == nil {
			return nil
		}
		for _, k := range allowed {
			if obj.Kind == k {
				return nil
			}
		}
		return fmt.Errorf("object %s has kind %s, expected one of: %v", id, obj.Kind, allowed)
	}
}

// ForSelect returns the validator chain selectObjects runs per id.
func ForSelect(actor string) ObjectValidator {
	return Chain(
		Exists(),
		NotLocked(),
		AvailableTo(actor),
	)
}
