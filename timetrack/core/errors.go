package core

import "errors"

// GuardError is a state-machine precondition failure. Guard errors are always
// surfaced to the caller with the name of the violated precondition and are
// never retried automatically.
type GuardError struct {
	Code    string
	Message string
}

func (e *GuardError) Error() string {
	return e.Message
}

var (
	ErrAlreadyCheckedIn = &GuardError{Code: "AlreadyCheckedIn", Message: "worker already has an open entry, check out first"}
	ErrNotCheckedIn     = &GuardError{Code: "NotCheckedIn", Message: "worker has no open entry"}
	ErrAlreadyOnBreak   = &GuardError{Code: "AlreadyOnBreak", Message: "entry already has an open break"}
	ErrNoOpenBreak      = &GuardError{Code: "NoOpenBreak", Message: "entry has no open break"}
	ErrInvalidRange     = &GuardError{Code: "InvalidRange", Message: "check-out must be strictly after check-in"}
	ErrMissingReason    = &GuardError{Code: "MissingReason", Message: "manual entries require a non-empty reason"}
	ErrNotManual        = &GuardError{Code: "NotManual", Message: "entry is not a manual entry"}
	ErrAlreadyApproved  = &GuardError{Code: "AlreadyApproved", Message: "manual entry is already approved"}
	ErrInactiveProject  = &GuardError{Code: "InactiveProject", Message: "check-in requires an active project"}
	ErrAlreadyRejected  = &GuardError{Code: "AlreadyRejected", Message: "manual entry is already rejected"}
	ErrEntryNotFound    = &GuardError{Code: "EntryNotFound", Message: "no entry with that id"}
)

// IsGuard reports whether err is a precondition failure rather than a store
// or infrastructure error.
func IsGuard(err error) bool {
	var ge *GuardError
	return errors.As(err, &ge)
}
