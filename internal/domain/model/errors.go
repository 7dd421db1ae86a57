package model

import "errors"

// ErrStaleResult marks an asynchronous result that lost a generation check
// and was discarded. It is never surfaced to users; callers log it at debug
// level at most.
var ErrStaleResult = errors.New("stale result discarded")

// ErrNotSignedIn is returned by operations that require a present identity.
var ErrNotSignedIn = errors.New("not signed in")

// AuthError wraps sign-in/sign-out initiation and exchange failures. The
// session state is guaranteed unchanged when one is returned.
type AuthError struct {
	Op  string
	Err error
}

func (e *AuthError) Error() string { return "auth " + e.Op + ": " + e.Err.Error() }
func (e *AuthError) Unwrap() error { return e.Err }

// FetchError wraps refresh query failures. The prior snapshot is left intact.
type FetchError struct {
	Err error
}

func (e *FetchError) Error() string { return "fetch bookmarks: " + e.Err.Error() }
func (e *FetchError) Unwrap() error { return e.Err }

// MutationError wraps create/delete command failures.
type MutationError struct {
	Op  string // "create" or "delete"
	Err error
}

func (e *MutationError) Error() string { return e.Op + " bookmark: " + e.Err.Error() }
func (e *MutationError) Unwrap() error { return e.Err }
