package domain

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxRangeDays наибольшая длина диапазона запроса в днях (три года).
const MaxRangeDays = 3 * 366

type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

// Валидация UUID.
func (v *Validator) ValidateUUID(id string, fieldName string) (uuid.UUID, error) {
	if strings.TrimSpace(id) == "" {
		return uuid.Nil, fmt.Errorf("%s cannot be empty", fieldName)
	}

	parsedUUID, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s must be a valid UUID: %w", fieldName, err)
	}

	if parsedUUID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%s cannot be nil UUID", fieldName)
	}

	return parsedUUID, nil
}

// ParseDate разбирает дату формата yyyy-MM-dd.
func (v *Validator) ParseDate(value string, fieldName string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return time.Time{}, fmt.Errorf("%s cannot be empty", fieldName)
	}
	t, err := time.Parse(DateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be in yyyy-MM-dd format: %w", fieldName, err)
	}
	return t, nil
}

// ParseRequestRange разбирает диапазон запроса. end_date должна быть строго позже start_date.
func (v *Validator) ParseRequestRange(start, end string) (DateRange, error) {
	startDate, err := v.ParseDate(start, "start_date")
	if err != nil {
		return DateRange{}, fmt.Errorf("%w: %v", ErrInvalidRange, err)
	}
	endDate, err := v.ParseDate(end, "end_date")
	if err != nil {
		return DateRange{}, fmt.Errorf("%w: %v", ErrInvalidRange, err)
	}
	if !endDate.After(startDate) {
		return DateRange{}, fmt.Errorf("%w: end_date must be after start_date", ErrInvalidRange)
	}
	rng := NewDateRange(startDate, endDate)
	if err := v.ValidateRange(rng); err != nil {
		return DateRange{}, err
	}
	return rng, nil
}

// ValidateRange проверяет уже разобранный диапазон.
func (v *Validator) ValidateRange(r DateRange) error {
	if r.Start.IsZero() || r.End.IsZero() {
		return fmt.Errorf("%w: range bounds are required", ErrInvalidRange)
	}
	if r.End.Before(r.Start) {
		return fmt.Errorf("%w: end %s is before start %s", ErrInvalidRange,
			r.End.Format(DateLayout), r.Start.Format(DateLayout))
	}
	if r.End.After(r.Start.AddDate(0, 0, MaxRangeDays-1)) {
		return fmt.Errorf("%w: range is longer than %d days", ErrInvalidRange, MaxRangeDays)
	}
	return nil
}

// Валидация Team.
func (v *Validator) ValidateTeam(team *Team) error {
	if strings.TrimSpace(team.TeamName) == "" {
		return errors.New("team_name cannot be empty")
	}
	if len(team.TeamName) > 255 {
		return errors.New("team_name too long (max 255 characters)")
	}
	if len(team.Members) == 0 {
		return errors.New("team must have at least one member")
	}

	seen := make(map[uuid.UUID]bool)
	for _, member := range team.Members {
		if err := v.ValidateMember(&member); err != nil {
			return err
		}
		if seen[member.UserID] {
			return fmt.Errorf("duplicate user_id in team: %s", member.UserID)
		}
		seen[member.UserID] = true
	}

	return nil
}

// Валидация Member.
func (v *Validator) ValidateMember(member *Member) error {
	if member.UserID == uuid.Nil {
		return errors.New("user_id cannot be nil UUID")
	}
	if strings.TrimSpace(member.Name) == "" {
		return errors.New("name cannot be empty")
	}
	if len(member.Name) > 255 {
		return errors.New("name too long (max 255 characters)")
	}
	if _, err := mail.ParseAddress(member.Email); err != nil {
		return fmt.Errorf("invalid email %q", member.Email)
	}
	return v.ValidateMemberLocation(member.Location)
}

// ValidateMemberLocation участник работает в US или India. Global только для праздников.
func (v *Validator) ValidateMemberLocation(loc Location) error {
	if !loc.MemberValid() {
		return fmt.Errorf("%w: %q", ErrUnknownLocation, loc)
	}
	return nil
}

// Валидация Holiday.
func (v *Validator) ValidateHoliday(h *Holiday) error {
	if strings.TrimSpace(h.Name) == "" {
		return errors.New("holiday name cannot be empty")
	}
	if h.Date.IsZero() {
		return errors.New("holiday date is required")
	}
	if !h.Location.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownLocation, h.Location)
	}
	switch h.Hours {
	case 2, 4, 6, 8:
	default:
		return fmt.Errorf("invalid holiday hours: %d, must be 2, 4, 6 or 8", h.Hours)
	}
	return nil
}

// Валидация PTORecord.
func (v *Validator) ValidatePTO(p *PTORecord) error {
	if p.UserID == uuid.Nil {
		return errors.New("user_id cannot be nil UUID")
	}
	if p.TeamID == uuid.Nil {
		return errors.New("team_id cannot be nil UUID")
	}
	if p.StartDate.IsZero() || p.EndDate.IsZero() {
		return errors.New("start_date and end_date are required")
	}
	if p.EndDate.Before(p.StartDate) {
		return fmt.Errorf("%w: end_date is before start_date", ErrInvalidRange)
	}
	if p.DurationHours <= 0 {
		return errors.New("duration_hours must be positive")
	}
	if err := v.ValidatePTOType(p.Type); err != nil {
		return err
	}
	return v.ValidatePTOStatus(p.Status)
}

func (v *Validator) ValidatePTOType(t PTOType) error {
	switch t {
	case PTOVacation, PTOSick, PTOPersonal, PTOOther:
		return nil
	}
	return fmt.Errorf("invalid PTO type: %s", t)
}

func (v *Validator) ValidatePTOStatus(s PTOStatus) error {
	switch s {
	case PTOPending, PTOApproved, PTORejected:
		return nil
	}
	return fmt.Errorf("invalid PTO status: %s, must be pending, approved or rejected", s)
}
