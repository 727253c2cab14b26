// Package resolver decides, per entity name, whether it resolves to a
// canonical entity, is a near miss, or is unknown, and what the caller should
// do about it under the configured validation mode.
package resolver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/listenupapp/catalog-resolver/internal/domain"
	"github.com/listenupapp/catalog-resolver/internal/normalize"
)

// Mode selects whether unresolved names block the caller.
type Mode string

const (
	// ModeEnforce blocks on ambiguous or unknown names.
	ModeEnforce Mode = "enforce"
	// ModeLog never blocks; near misses and unknowns become warnings.
	ModeLog Mode = "log"
)

// ParseMode converts a configuration value into a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeEnforce, ModeLog:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("invalid validation mode %q (must be enforce or log)", s)
	}
}

// EntityMatcher is the lookup surface the validator needs.
type EntityMatcher interface {
	Exact(ctx context.Context, t domain.EntityType, raw string) (domain.EntityRef, bool, error)
	Fuzzy(ctx context.Context, t domain.EntityType, raw string, threshold float64, limit int) ([]domain.EntityMatch, error)
}

// Options tunes a single validation.
type Options struct {
	// Threshold overrides the per-type fuzzy threshold when > 0.
	Threshold float64
	// Force downgrades blocking outcomes to warnings for this call only.
	Force bool
}

// Validator is a pure decision function over matcher results. It never writes.
type Validator struct {
	matcher EntityMatcher
	logger  *slog.Logger
	mode    Mode
}

// NewValidator creates a Validator. An empty mode means ModeEnforce.
func NewValidator(matcher EntityMatcher, mode Mode, logger *slog.Logger) *Validator {
	if mode == "" {
		mode = ModeEnforce
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{
		matcher: matcher,
		mode:    mode,
		logger:  logger,
	}
}

// Mode returns the configured validation mode.
func (v *Validator) Mode() Mode {
	return v.mode
}

// Validate resolves raw for entity type t. The returned error is reserved for
// infrastructure failures; validation outcomes are carried by the Result.
func (v *Validator) Validate(ctx context.Context, t domain.EntityType, raw string, opts Options) (Result, error) {
	if normalize.IsBlank(raw) {
		return Neutral(), nil
	}

	ref, ok, err := v.matcher.Exact(ctx, t, raw)
	if err != nil {
		return Result{}, fmt.Errorf("exact lookup for %s %q: %w", t, raw, err)
	}
	if ok {
		return Success(ref.ID), nil
	}

	matches, err := v.matcher.Fuzzy(ctx, t, raw, opts.Threshold, 0)
	if err != nil {
		return Result{}, fmt.Errorf("fuzzy lookup for %s %q: %w", t, raw, err)
	}

	blocking := v.mode == ModeEnforce && !opts.Force

	if len(matches) == 0 {
		if blocking {
			return Failed(domain.NewUnknownEntityError(t, raw)), nil
		}
		warning := fmt.Sprintf("%s %q not associated: no matching %s exists", t, raw, t)
		v.logger.Warn("unknown entity not associated",
			"entity_type", t,
			"input", raw,
			"mode", v.mode,
			"force", opts.Force,
		)
		return NeutralWithWarning(warning), nil
	}

	if blocking {
		return Failed(domain.NewSimilarEntityError(t, raw, matches)), nil
	}

	top := matches[0]
	warning := fmt.Sprintf("%s %q not associated: similar to %q (id %d, confidence %.2f)",
		t, raw, top.Name, top.EntityID, top.Confidence)
	v.logger.Warn("similar entity skipped",
		"entity_type", t,
		"input", raw,
		"entity_id", top.EntityID,
		"match", top.Name,
		"confidence", top.Confidence,
		"mode", v.mode,
		"force", opts.Force,
	)
	return Skipped(top, warning), nil
}
