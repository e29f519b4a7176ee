package player

import (
	"math"

	"courtmatch/internal/domain/fault"
	"courtmatch/internal/domain/geo"
)

// Skill level bounds. Levels 8 and 9 cannot be self-assigned; they require
// external verification.
const (
	MinLevel             = 1
	MaxLevel             = 9
	MaxSelfAssignedLevel = 7

	// NewPlayerThreshold is the evaluation count below which a player is
	// still considered new and shown their self-reported level.
	NewPlayerThreshold = 5
)

var (
	ErrInvalidLevel = fault.New(fault.KindValidation, "invalid_level", "skill level must be between 1 and 9")

	// ErrVerificationRequired is returned when an unverified player tries to
	// self-assign level 8 or 9.
	ErrVerificationRequired = fault.New(fault.KindValidation, "verification_required", "levels 8-9 require verified status")

	ErrPlayerNotFound = fault.New(fault.KindNotFound, "player_not_found", "player not found")
)

// VerificationStatus marks whether a player's high-level claim has been
// confirmed externally.
type VerificationStatus string

const (
	VerificationNone     VerificationStatus = "none"
	VerificationPending  VerificationStatus = "pending"
	VerificationVerified VerificationStatus = "verified"
)

// ReputationScore is the survey-derived reputation for a player. It is always
// recomputed from the full survey history, never patched incrementally.
type ReputationScore struct {
	// AverageSkillAccuracy is the mean of raw peer skill ratings. The name is
	// historical: it is not a deviation-from-self-report measure.
	AverageSkillAccuracy   float64 `json:"average_skill_accuracy"`
	PunctualityPercentage  float64 `json:"punctuality_percentage"`
	AverageCharacterRating float64 `json:"average_character_rating"`
	EvaluationCount        int     `json:"evaluation_count"`
}

// NeutralReputation is the default for players with no surveys yet: no skill
// signal, but full punctuality and a middling character rating. The asymmetry
// means "no negative signal yet" rather than a statistical estimate.
func NeutralReputation() ReputationScore {
	return ReputationScore{
		AverageSkillAccuracy:   0,
		PunctualityPercentage:  100,
		AverageCharacterRating: 3,
		EvaluationCount:        0,
	}
}

// IsNewPlayer reports whether the player has too few evaluations for the
// calculated level to be trusted.
func (r ReputationScore) IsNewPlayer() bool {
	return r.EvaluationCount < NewPlayerThreshold
}

// User is a registered player. Users are created at registration and only
// ever deactivated externally, never deleted.
type User struct {
	ID                 string             `json:"id"`
	Nickname           string             `json:"nickname"`
	SelfReportedLevel  int                `json:"self_reported_level"`
	CalculatedLevel    float64            `json:"calculated_level"`
	TotalGames         int                `json:"total_games"`
	Wins               int                `json:"wins"`
	Location           *geo.Coordinate    `json:"location,omitempty"`
	VerificationStatus VerificationStatus `json:"verification_status"`
	Reputation         ReputationScore    `json:"reputation"`
}

// DisplayLevel is the level shown to other players: the self-reported level
// while the player is new, the rounded calculated level afterwards. Rounding
// is half-away-from-zero.
func (u User) DisplayLevel() int {
	if u.Reputation.IsNewPlayer() {
		return u.SelfReportedLevel
	}
	return int(math.Round(u.CalculatedLevel))
}

// ValidateSelfAssignment checks whether the user may set the given skill
// level on themselves. Levels outside [1,9] are invalid everywhere; 8 and 9
// are only accepted for verified users.
func (u User) ValidateSelfAssignment(level int) error {
	if level < MinLevel || level > MaxLevel {
		return ErrInvalidLevel
	}
	if level > MaxSelfAssignedLevel && u.VerificationStatus != VerificationVerified {
		return ErrVerificationRequired
	}
	return nil
}
