package core

import "errors"

// Sentinel errors returned by Service operations. Callers classify with
// errors.Is; the HTTP layer maps them onto status codes.
var (
	// ErrBadRequest means a required field (room, user, content) was missing.
	// Nothing was mutated.
	ErrBadRequest = errors.New("missing required field")

	// ErrAlreadyExists is returned by explicit room creation when the room
	// is already present. Nothing was mutated.
	ErrAlreadyExists = errors.New("room already exists")

	// ErrRoomNotFound is returned by operations that require a pre-existing
	// room and do not auto-create one.
	ErrRoomNotFound = errors.New("room not found")

	// ErrPolicyViolation means the content filter rejected the content. A
	// moderation notice was appended to the room; the content itself was not.
	ErrPolicyViolation = errors.New("content blocked by policy")
)
