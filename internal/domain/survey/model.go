package survey

import (
	"context"
	"time"

	"courtmatch/internal/domain/fault"
)

// Rating bounds and the pending-survey window.
const (
	MinSkillRating     = 1
	MaxSkillRating     = 9
	MinCharacterRating = 1
	MaxCharacterRating = 5

	// PendingWindow is how long after a match a survey may still be
	// submitted.
	PendingWindow = 48 * time.Hour
)

var (
	ErrAlreadySubmitted = fault.New(fault.KindStateConflict, "survey_already_submitted", "survey already submitted for this match")
	ErrExpired          = fault.New(fault.KindStateConflict, "survey_expired", "survey window has expired")
	ErrInvalidRating    = fault.New(fault.KindValidation, "invalid_rating", "survey rating out of range")
	ErrMatchNotFound    = fault.New(fault.KindNotFound, "match_not_found", "match not found")
)

// MatchSurvey is a post-match evaluation of one opponent. Immutable once
// created; at most one exists per (MatchID, EvaluatorID).
type MatchSurvey struct {
	ID              string    `json:"id"`
	MatchID         string    `json:"match_id"`
	EvaluatorID     string    `json:"evaluator_id"`
	EvaluatedUserID string    `json:"evaluated_user_id"`
	SkillRating     int       `json:"skill_rating"`
	WasPunctual     bool      `json:"was_punctual"`
	CharacterRating int       `json:"character_rating"`
	SubmittedAt     time.Time `json:"submitted_at"`
}

// Validate checks the rating bounds. Punctuality is boolean and has no
// invalid state.
func (s MatchSurvey) Validate() error {
	if s.SkillRating < MinSkillRating || s.SkillRating > MaxSkillRating {
		return ErrInvalidRating
	}
	if s.CharacterRating < MinCharacterRating || s.CharacterRating > MaxCharacterRating {
		return ErrInvalidRating
	}
	return nil
}

// PendingSurvey is a survey a player still owes for a completed match. It
// disappears once submitted or once ExpiresAt passes.
type PendingSurvey struct {
	ID               string    `json:"id"`
	MatchID          string    `json:"match_id"`
	OpponentID       string    `json:"opponent_id"`
	OpponentNickname string    `json:"opponent_nickname"`
	MatchDate        time.Time `json:"match_date"`
	ExpiresAt        time.Time `json:"expires_at"`
}

// Ledger records surveys, enforces uniqueness and expiry, and triggers
// reputation recomputation on successful submission.
type Ledger interface {
	// Submit records a survey. The uniqueness check and insert happen in a
	// single critical section, so concurrent duplicates cannot both succeed.
	Submit(ctx context.Context, s MatchSurvey) error

	// CreatePendingSurveys creates one pending entry per participant other
	// than excludingUserID, each expiring PendingWindow after now.
	CreatePendingSurveys(ctx context.Context, matchID string, participants []Participant, excludingUserID string) ([]PendingSurvey, error)

	// Pending returns the evaluator's outstanding surveys, excluding any
	// whose ExpiresAt precedes asOf.
	Pending(ctx context.Context, evaluatorID string, asOf time.Time) ([]PendingSurvey, error)

	// SurveysFor returns the full survey history received by a user.
	SurveysFor(ctx context.Context, evaluatedUserID string) ([]MatchSurvey, error)
}

// Participant names one player of a completed match for pending-survey
// creation.
type Participant struct {
	UserID   string `json:"user_id"`
	Nickname string `json:"nickname"`
}
