// Package association applies validated entity names to a target record's
// foreign keys using a two-phase protocol: every slot is validated first, and
// nothing is written unless all of them passed. Each write is preceded by an
// existence re-check made through the caller's session, so the check and the
// write commit together.
package association

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/listenupapp/catalog-resolver/internal/domain"
	"github.com/listenupapp/catalog-resolver/internal/resolver"
)

var (
	// ErrInvalidSlots is returned when the slot list itself is malformed.
	ErrInvalidSlots = errors.New("invalid entity slots")
	// ErrUnvalidated is returned by Apply for a result that failed validation.
	ErrUnvalidated = errors.New("association result has validation errors")
)

// Session is the unit of work the caller will commit after Associate returns.
// Validate accepts anything with the same method, such as the store itself.
type Session interface {
	EntityExists(ctx context.Context, t domain.EntityType, id int64) (bool, error)
}

// Target is the record whose foreign keys are written.
type Target interface {
	ForeignKey(t domain.EntityType) *int64
	SetForeignKey(t domain.EntityType, id *int64)
}

// Validator resolves a single name. *resolver.Validator satisfies it.
type Validator interface {
	Validate(ctx context.Context, t domain.EntityType, raw string, opts resolver.Options) (resolver.Result, error)
	Mode() resolver.Mode
}

// Slot is one requested association. EntityID, when set, names the canonical
// entity directly and bypasses name matching.
type Slot struct {
	EntityID *int64
	Type     domain.EntityType
	Name     string
}

// Options applies to every slot in a call.
type Options struct {
	Threshold float64
	Force     bool
}

// SlotOutcome is the final state of one slot.
type SlotOutcome struct {
	Type   domain.EntityType
	Input  string
	Result resolver.Result
	// Changed is true only when the foreign key was set to a new entity.
	Changed bool
	// Cleared is true when a vanished entity's id was removed from the target.
	Cleared bool
}

// Result aggregates the outcome of one Associate call.
type Result struct {
	Slots    []SlotOutcome
	Warnings []string
}

// HasErrors reports whether any slot blocked the call.
func (r *Result) HasErrors() bool {
	for _, s := range r.Slots {
		if s.Result.HasError() {
			return true
		}
	}
	return false
}

// HasSkipped reports whether any slot recorded a near miss.
func (r *Result) HasSkipped() bool {
	for _, s := range r.Slots {
		if s.Result.WasSkipped() {
			return true
		}
	}
	return false
}

// Changed reports whether the foreign key for t was set to a new value.
func (r *Result) Changed(t domain.EntityType) bool {
	s, ok := r.Slot(t)
	return ok && s.Changed
}

// Modified reports whether the target differs from its state before the call.
func (r *Result) Modified() bool {
	for _, s := range r.Slots {
		if s.Changed || s.Cleared {
			return true
		}
	}
	return false
}

// Slot returns the outcome for t.
func (r *Result) Slot(t domain.EntityType) (SlotOutcome, bool) {
	for _, s := range r.Slots {
		if s.Type == t {
			return s, true
		}
	}
	return SlotOutcome{}, false
}

// Errors returns the validation error of every blocked slot.
func (r *Result) Errors() []*domain.EntityValidationError {
	var errs []*domain.EntityValidationError
	for _, s := range r.Slots {
		if err := s.Result.Err(); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// Associator runs the validate-then-mutate protocol.
type Associator struct {
	validator Validator
	logger    *slog.Logger
}

// New creates an Associator.
func New(validator Validator, logger *slog.Logger) *Associator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Associator{
		validator: validator,
		logger:    logger,
	}
}

// Associate validates every slot and, only if none errored, writes the
// resulting foreign keys onto target. A non-nil error means infrastructure
// failure; the caller must not commit the session in that case.
func (a *Associator) Associate(ctx context.Context, sess Session, target Target, slots []Slot, opts Options) (*Result, error) {
	res, err := a.Validate(ctx, sess, slots, opts)
	if err != nil {
		return nil, err
	}
	if res.HasErrors() {
		return res, nil
	}
	if err := a.Apply(ctx, sess, target, res); err != nil {
		return nil, err
	}
	return res, nil
}

// Validate runs the validation phase alone. Explicit ids are checked through
// checker, which need not be the session Apply later runs in; callers holding
// a write lock can validate before taking it.
func (a *Associator) Validate(ctx context.Context, checker Session, slots []Slot, opts Options) (*Result, error) {
	if err := checkSlots(slots); err != nil {
		return nil, err
	}

	res := &Result{Slots: make([]SlotOutcome, 0, len(slots))}
	for _, slot := range slots {
		r, err := a.validateSlot(ctx, checker, slot, opts)
		if err != nil {
			return nil, err
		}
		if w := r.Warning(); w != "" {
			res.Warnings = append(res.Warnings, w)
		}
		res.Slots = append(res.Slots, SlotOutcome{
			Type:   slot.Type,
			Input:  slotInput(slot),
			Result: r,
		})
	}
	return res, nil
}

// Apply runs the mutation phase for a result returned by Validate. Every
// successful slot is re-checked through sess before its key is written, so
// the check and the write commit together. A result with errors is refused.
func (a *Associator) Apply(ctx context.Context, sess Session, target Target, res *Result) error {
	if res.HasErrors() {
		return ErrUnvalidated
	}

	for i := range res.Slots {
		out := &res.Slots[i]
		id, ok := out.Result.EntityID()
		if !ok {
			continue
		}

		exists, err := sess.EntityExists(ctx, out.Type, id)
		if err != nil {
			return fmt.Errorf("re-verify %s %d: %w", out.Type, id, err)
		}

		current := target.ForeignKey(out.Type)
		if !exists {
			warning := fmt.Sprintf("%s %d was deleted before it could be associated", out.Type, id)
			a.logger.Warn("entity vanished before association",
				"entity_type", out.Type,
				"entity_id", id,
				"input", out.Input,
			)
			out.Result = resolver.NeutralWithWarning(warning)
			res.Warnings = append(res.Warnings, warning)
			if current != nil && *current == id {
				target.SetForeignKey(out.Type, nil)
				out.Cleared = true
			}
			continue
		}

		if !domain.SameID(current, &id) {
			target.SetForeignKey(out.Type, domain.IDPtr(id))
			out.Changed = true
		}
	}
	return nil
}

func (a *Associator) validateSlot(ctx context.Context, checker Session, slot Slot, opts Options) (resolver.Result, error) {
	if slot.EntityID == nil {
		return a.validator.Validate(ctx, slot.Type, slot.Name, resolver.Options{
			Threshold: opts.Threshold,
			Force:     opts.Force,
		})
	}

	id := *slot.EntityID
	exists, err := checker.EntityExists(ctx, slot.Type, id)
	if err != nil {
		return resolver.Result{}, fmt.Errorf("check %s %d: %w", slot.Type, id, err)
	}
	if exists {
		return resolver.Success(id), nil
	}
	if a.validator.Mode() == resolver.ModeEnforce && !opts.Force {
		return resolver.Failed(domain.NewUnknownEntityError(slot.Type, slotInput(slot))), nil
	}
	return resolver.NeutralWithWarning(fmt.Sprintf("%s %d does not exist; association skipped", slot.Type, id)), nil
}

func checkSlots(slots []Slot) error {
	seen := make(map[domain.EntityType]bool, len(slots))
	for _, s := range slots {
		if !s.Type.IsValid() {
			return fmt.Errorf("%w: unknown entity type %q", ErrInvalidSlots, s.Type)
		}
		if seen[s.Type] {
			return fmt.Errorf("%w: %s given more than once", ErrInvalidSlots, s.Type)
		}
		seen[s.Type] = true
	}
	return nil
}

func slotInput(s Slot) string {
	if s.EntityID != nil {
		return fmt.Sprintf("#%d", *s.EntityID)
	}
	return s.Name
}
