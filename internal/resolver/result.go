package resolver

import "github.com/listenupapp/catalog-resolver/internal/domain"

// Kind tags which variant a Result holds.
type Kind int

const (
	// KindNeutral makes no claim: blank input, or a downgraded miss.
	KindNeutral Kind = iota
	// KindSuccess resolved to a canonical entity id.
	KindSuccess
	// KindSkipped found a near miss that was recorded but not associated.
	KindSkipped
	// KindError blocked the caller.
	KindError
)

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindSkipped:
		return "skipped"
	case KindError:
		return "error"
	default:
		return "neutral"
	}
}

// Result is the outcome of validating one entity name. Exactly one variant is
// populated; build values with the constructors below.
type Result struct {
	skipped  *domain.EntityMatch
	err      *domain.EntityValidationError
	warning  string
	entityID int64
	kind     Kind
}

// Neutral returns a result that makes no claim.
func Neutral() Result {
	return Result{kind: KindNeutral}
}

// NeutralWithWarning returns a neutral result carrying an operator warning.
func NeutralWithWarning(warning string) Result {
	return Result{kind: KindNeutral, warning: warning}
}

// Success returns a result resolved to id.
func Success(id int64) Result {
	return Result{kind: KindSuccess, entityID: id}
}

// Skipped returns a result recording a near miss that was not associated.
func Skipped(match domain.EntityMatch, warning string) Result {
	return Result{kind: KindSkipped, skipped: &match, warning: warning}
}

// Failed returns a blocking result.
func Failed(err *domain.EntityValidationError) Result {
	return Result{kind: KindError, err: err}
}

// Kind returns the variant tag.
func (r Result) Kind() Kind { return r.kind }

// EntityID returns the resolved id and whether the result is a success.
func (r Result) EntityID() (int64, bool) {
	return r.entityID, r.kind == KindSuccess
}

// Skipped returns the recorded near miss, or nil.
func (r Result) Skipped() *domain.EntityMatch { return r.skipped }

// Err returns the validation error, or nil.
func (r Result) Err() *domain.EntityValidationError { return r.err }

// Warning returns the operator warning, if any.
func (r Result) Warning() string { return r.warning }

// Success reports whether an entity id was resolved.
func (r Result) Success() bool { return r.kind == KindSuccess }

// WasSkipped reports whether a near miss was recorded instead of associated.
func (r Result) WasSkipped() bool { return r.kind == KindSkipped }

// HasError reports whether the result blocks the caller.
func (r Result) HasError() bool { return r.kind == KindError }

// View is the serializable form of a Result with its derived flags.
type View struct {
	Status     string                        `json:"status" doc:"neutral, success, skipped or error"`
	EntityID   *int64                        `json:"entity_id,omitempty"`
	Skipped    *domain.EntityMatch           `json:"skipped,omitempty"`
	Error      *domain.EntityValidationError `json:"error,omitempty"`
	Warning    string                        `json:"warning,omitempty"`
	Success    bool                          `json:"success"`
	WasSkipped bool                          `json:"was_skipped"`
}

// View returns the serializable form of r.
func (r Result) View() View {
	v := View{
		Status:     r.kind.String(),
		Skipped:    r.skipped,
		Error:      r.err,
		Warning:    r.warning,
		Success:    r.Success(),
		WasSkipped: r.WasSkipped(),
	}
	if id, ok := r.EntityID(); ok {
		v.EntityID = &id
	}
	return v
}
