package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrNotAMember          = errors.New("not a group member")
	ErrInsufficientRole    = errors.New("insufficient role")
	ErrSelfActionForbidden = errors.New("self action forbidden")
	ErrConflict            = errors.New("conflict")
	ErrMilestoneAchieved   = errors.New("milestone already achieved")
	ErrInvalidInput        = errors.New("invalid input")
)
