package domain

import "errors"

var (
	ErrRoomNotFound       = errors.New("room not found")
	ErrNotAuthorized      = errors.New("not authorized")
	ErrUnknownTarget      = errors.New("unknown target")
	ErrCrossGroupTransfer = errors.New("target is in a different group")
	ErrSessionNotFound    = errors.New("session not found")
	ErrHostNotFound       = errors.New("host not found or not a host")
)
