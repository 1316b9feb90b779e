package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// AvailabilityInput carries rule fields for create/update. Times are whole
// minutes of day.
type AvailabilityInput struct {
	Weekday int
	Start   MinuteOfDay
	End     MinuteOfDay
	Active  bool
}

func (in AvailabilityInput) validate() error {
	if in.Weekday < 0 || in.Weekday > 6 {
		return fmt.Errorf("%w: weekday must be 0 (Monday) through 6 (Sunday)", ErrValidation)
	}
	if !in.Start.Valid() || in.End < 0 || in.End > MinutesPerDay {
		return fmt.Errorf("%w: times must be between 00:00 and 24:00", ErrValidation)
	}
	if in.Start >= in.End {
		return fmt.Errorf("%w: start time must be before end time", ErrValidation)
	}
	return nil
}

// ListAvailability returns availability rules. Professionals always see
// their own set; other actors must name a professional.
func (s *Service) ListAvailability(ctx context.Context, actor Actor, professionalID *uuid.UUID) ([]AvailabilityRule, error) {
	target := professionalID
	if actor.Role == RoleProfessional {
		id := actor.ID
		target = &id
	}
	if target == nil {
		return nil, fmt.Errorf("%w: professional_id is required", ErrValidation)
	}

	rules, err := s.repo.ListRulesByProfessional(ctx, *target)
	if err != nil {
		return nil, fmt.Errorf("list availability rules: %w", err)
	}
	return rules, nil
}

// CreateAvailabilityRule adds a weekly open-hours interval for the acting
// professional. Overlap with the professional's other rules is allowed
// (split shifts are legitimate).
func (s *Service) CreateAvailabilityRule(ctx context.Context, actor Actor, in AvailabilityInput) (*AvailabilityRule, error) {
	if actor.Role != RoleProfessional {
		return nil, fmt.Errorf("%w: only professionals manage availability", ErrForbidden)
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	rule := &AvailabilityRule{
		ID:             uuid.New(),
		ProfessionalID: actor.ID,
		Weekday:        in.Weekday,
		Start:          in.Start,
		End:            in.End,
		Active:         in.Active,
		BlockedDates:   []string{},
	}
	if err := s.repo.CreateRule(ctx, rule); err != nil {
		return nil, fmt.Errorf("create availability rule: %w", err)
	}
	return rule, nil
}

// UpdateAvailabilityRule edits an owned rule's hours and active flag.
// Rules are soft-disabled via Active, never deleted.
func (s *Service) UpdateAvailabilityRule(ctx context.Context, actor Actor, id uuid.UUID, in AvailabilityInput) (*AvailabilityRule, error) {
	rule, err := s.ownedRule(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	rule.Weekday = in.Weekday
	rule.Start = in.Start
	rule.End = in.End
	rule.Active = in.Active

	if err := s.repo.UpdateRule(ctx, rule); err != nil {
		return nil, fmt.Errorf("update availability rule: %w", err)
	}
	return rule, nil
}

// BlockDate adds an exception date to an owned rule. Returns false when
// the date was already blocked.
func (s *Service) BlockDate(ctx context.Context, actor Actor, ruleID uuid.UUID, date time.Time) (bool, error) {
	rule, err := s.ownedRule(ctx, actor, ruleID)
	if err != nil {
		return false, err
	}

	if !rule.BlockDate(date) {
		return false, nil
	}
	if err := s.repo.UpdateRule(ctx, rule); err != nil {
		return false, fmt.Errorf("update availability rule: %w", err)
	}

	s.logRuleEvent(ctx, EventDateBlocked, rule, date)
	return true, nil
}

// UnblockDate removes an exception date from an owned rule. Returns false
// when the date was not blocked.
func (s *Service) UnblockDate(ctx context.Context, actor Actor, ruleID uuid.UUID, date time.Time) (bool, error) {
	rule, err := s.ownedRule(ctx, actor, ruleID)
	if err != nil {
		return false, err
	}

	if !rule.UnblockDate(date) {
		return false, nil
	}
	if err := s.repo.UpdateRule(ctx, rule); err != nil {
		return false, fmt.Errorf("update availability rule: %w", err)
	}

	s.logRuleEvent(ctx, EventDateUnblocked, rule, date)
	return true, nil
}

func (s *Service) ownedRule(ctx context.Context, actor Actor, id uuid.UUID) (*AvailabilityRule, error) {
	if actor.Role != RoleProfessional {
		return nil, fmt.Errorf("%w: only professionals manage availability", ErrForbidden)
	}
	rule, err := s.repo.GetRuleByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrRuleNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load availability rule: %w", err)
	}
	if rule.ProfessionalID != actor.ID {
		return nil, fmt.Errorf("%w: not your availability rule", ErrForbidden)
	}
	return rule, nil
}

func (s *Service) logRuleEvent(ctx context.Context, eventType string, rule *AvailabilityRule, date time.Time) {
	ev := EventLog{
		EventType: eventType,
		Payload:   []byte(fmt.Sprintf(`{"rule_id":%q,"professional_id":%q,"date":%q}`, rule.ID, rule.ProfessionalID, DateKey(date))),
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		log.Error().Err(err).Str("event_type", eventType).Msg("failed to insert event log")
	}
}
