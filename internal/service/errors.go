package service

import "errors"

var (
	ErrEmptyDraft       = errors.New("draft has no selected slots")
	ErrSlotUnavailable  = errors.New("slot is not available")
	ErrSlotOutsideHours = errors.New("slot is outside studio hours")
	ErrInvalidReference = errors.New("invalid client or project reference")
	ErrInvalidClient    = errors.New("invalid client")
	ErrInvalidProject   = errors.New("invalid project")
	ErrRateLimited      = errors.New("rate limit exceeded")
	ErrSuggestionFailed = errors.New("could not generate a suggestion")
)
