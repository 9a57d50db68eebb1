// internal/service/errors.go
package service

import "errors"

// Error kinds surfaced to transports. Service functions wrap these with
// fmt.Errorf("...: %w", ...) so callers can dispatch with errors.Is.
var (
	// ErrNotFound: referenced task/hunter/report absent
	ErrNotFound = errors.New("not found")
	// ErrState: operation not allowed in the task's current status
	ErrState = errors.New("invalid state for operation")
	// ErrOwner: actor is not the task's claiming hunter
	ErrOwner = errors.New("not the task owner")
	// ErrSelfClaim: a hunter cannot claim their own published task
	ErrSelfClaim = errors.New("cannot claim own task")
	// ErrSelfEval: a hunter cannot evaluate their own report
	ErrSelfEval = errors.New("cannot evaluate own report")
	// ErrSkill: required skill absent from the hunter's skill map
	ErrSkill = errors.New("missing required skill")
	// ErrIdentity: missing namespace or hunter identity
	ErrIdentity = errors.New("missing identity")
	// ErrConflict: write lost a race; the caller should retry
	ErrConflict = errors.New("conflicting write")
	// ErrExternal: the external document store or LLM failed
	ErrExternal = errors.New("external service failure")
	// ErrInternal: unanticipated invariant violation
	ErrInternal = errors.New("internal error")
)
