package domain

import "errors"

// Ошибки входных данных движка. Возвращаются вызывающему без повторов.
var (
	ErrInvalidRange    = errors.New("INVALID_RANGE")
	ErrUnknownLocation = errors.New("UNKNOWN_LOCATION")
	ErrMissingRoster   = errors.New("MISSING_ROSTER")
	ErrValidation      = errors.New("VALIDATION_ERROR")
)

// Ошибки хранилища.
var (
	ErrTeamExists      = errors.New("TEAM_EXISTS")
	ErrTeamNotFound    = errors.New("TEAM_NOT_FOUND")
	ErrMemberNotFound  = errors.New("MEMBER_NOT_FOUND")
	ErrHolidayNotFound = errors.New("HOLIDAY_NOT_FOUND")
	ErrPTONotFound     = errors.New("PTO_NOT_FOUND")
)
