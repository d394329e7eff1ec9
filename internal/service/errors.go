package service

import "errors"

var (
	// ErrNotFound covers unmatched barcodes and SKUs as well as unknown ids.
	ErrNotFound = errors.New("not found")
	// ErrSessionClosed guards scans against a session that already has a final state.
	ErrSessionClosed = errors.New("count session is closed")
	// ErrSessionAlreadyFinalized is returned by a second finalize; it must reach the caller.
	ErrSessionAlreadyFinalized = errors.New("count session already finalized")
	ErrInvalidDecision         = errors.New("decision must be Accepted or Canceled")
	// ErrConcurrentReconciliation means another session created the same ledger pair first.
	ErrConcurrentReconciliation = errors.New("inventory entry changed concurrently")

	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserInactive       = errors.New("user account is inactive")
	ErrSessionRevoked     = errors.New("session expired (logged in on another device)")
)
