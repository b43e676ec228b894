package service

import "errors"

// Expected failure conditions surfaced to handlers. Transient store and
// network errors propagate as plain wrapped errors instead.
var (
	// ErrSizeMismatch marks an upload whose actual size exceeds the declared
	// size by more than the security threshold. The object is deleted and the
	// reservation released before this is returned.
	ErrSizeMismatch = errors.New("uploaded size exceeds declared size")
	// ErrObjectMissing marks a completion call for an object that never
	// arrived in the blob store.
	ErrObjectMissing = errors.New("uploaded object not found in storage")
	// ErrBoardNotFound covers missing boards and boards owned by another account.
	ErrBoardNotFound = errors.New("board not found")
	// ErrCardNotFound covers missing cards and cards owned by another account.
	ErrCardNotFound = errors.New("card not found")
	// ErrUnknownCustomer marks a billing event whose customer has no account.
	// Terminal for the event: the provider must not retry it.
	ErrUnknownCustomer = errors.New("billing customer has no account")
)

// QuotaExceededError carries the entitlement snapshot for a denied mutation so
// the handler can return the structured 403 body.
type QuotaExceededError struct {
	Result *CheckResult
}

func (e *QuotaExceededError) Error() string {
	if e.Result != nil && e.Result.Reason != "" {
		return e.Result.Reason
	}
	return "quota exceeded"
}
