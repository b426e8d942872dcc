package moderation

import "errors"

// Expected rejection conditions. These are valid pipeline outcomes, distinct
// from unexpected failures such as an unreachable record store.
var (
	// ErrNotStaff is returned when the invoker lacks the staff role and is
	// not the guild owner.
	ErrNotStaff = errors.New("caller does not hold the staff role")
	// ErrMuteRoleNotFound is returned when the configured muted role does
	// not resolve in the guild.
	ErrMuteRoleNotFound = errors.New("configured muted role not found")
	// ErrMuteRoleTooHigh is returned when the muted role is ranked at or
	// above the bot's highest role.
	ErrMuteRoleTooHigh = errors.New("muted role is ranked at or above the bot's highest role")
	// ErrTargetTooHigh is returned when the target's highest role is ranked
	// at or above the bot's highest role.
	ErrTargetTooHigh = errors.New("target's highest role is ranked at or above the bot's highest role")
	// ErrNotMuted is returned when unmuting a user who does not hold the
	// muted role.
	ErrNotMuted = errors.New("user is not muted")
)

// Status classifies the result of a moderation pipeline.
type Status int

const (
	// StatusDone means the action was performed.
	StatusDone Status = iota
	// StatusRejected means a precondition failed and nothing was mutated.
	StatusRejected
	// StatusFailed means the pipeline aborted after an unexpected failure.
	StatusFailed
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusDone:
		return "done"
	case StatusRejected:
		return "rejected"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the result reported back to the invoker of a moderation action.
// Rejections carry the specific violated precondition; failures carry the
// underlying error; annotations record partial results such as a recorded
// warning whose automatic mute could not be applied.
type Outcome struct {
	Status      Status
	Message     string
	Annotations []string
	Err         error
}

// Done builds a successful outcome.
func Done(message string) Outcome {
	return Outcome{Status: StatusDone, Message: message}
}

// Rejected builds an outcome for a failed precondition.
func Rejected(err error) Outcome {
	return Outcome{Status: StatusRejected, Message: err.Error(), Err: err}
}

// Failed builds an outcome for an unexpected failure.
func Failed(message string, err error) Outcome {
	return Outcome{Status: StatusFailed, Message: message, Err: err}
}

// Annotate appends a partial-result note to the outcome.
func (o Outcome) Annotate(note string) Outcome {
	o.Annotations = append(o.Annotations, note)
	return o
}
