// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across record/session/service layers.
var (
	// ErrNotFound indicates the requested account does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateUsername indicates a username uniqueness violation.
	ErrDuplicateUsername = errors.New("username already exists")

	// ErrDuplicateEmail indicates an email uniqueness violation.
	ErrDuplicateEmail = errors.New("email already exists")

	// ErrNotAGuest indicates promotion was attempted on a non-guest session.
	ErrNotAGuest = errors.New("current session is not a guest")

	// ErrBackendUnavailable indicates the remote authority could not be
	// reached and fallback was disabled or exhausted.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrLoginFailed collapses unknown user, wrong credential and inactive
	// account into a single outcome. Callers must not learn which one it was.
	ErrLoginFailed = errors.New("login failed")

	// ErrRateLimited indicates a temporary login lock due to rate limiting.
	// It is an authoritative refusal, never a reachability problem.
	ErrRateLimited = errors.New("rate limited")

	// ErrNotAuthorized indicates the acting session lacks the tier required
	// for the operation (e.g. demoting another account).
	ErrNotAuthorized = errors.New("not authorized")

	// ErrBootstrapProtected indicates an attempt to delete or demote the
	// bootstrap super-administrator.
	ErrBootstrapProtected = errors.New("bootstrap account is protected")
)
