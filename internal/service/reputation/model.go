package reputation

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"courtmatch/internal/adapter/notify"
	"courtmatch/internal/adapter/storage"
	"courtmatch/internal/domain/player"
	"courtmatch/internal/domain/survey"
)

// Weighting of the calculated level: a player's own claim counts for 30%,
// the peer consensus for 70%.
const (
	selfWeight = 0.3
	peerWeight = 0.7
)

const (
	playerKeyPrefix     = "player:"
	reputationKeyPrefix = "reputation:"
)

// Model computes and persists survey-derived reputation. Scores are always
// rebuilt from the full survey history, never nudged incrementally.
type Model struct {
	store    storage.Store
	notifier notify.Notifier
	log      zerolog.Logger
}

// NewModel creates a reputation model.
func NewModel(store storage.Store, notifier notify.Notifier, log zerolog.Logger) *Model {
	return &Model{
		store:    store,
		notifier: notifier,
		log:      log.With().Str("component", "reputation").Logger(),
	}
}

// CalculatedLevel blends the self-reported level with the peer average.
func CalculatedLevel(selfReported int, peerAverage float64) float64 {
	return selfWeight*float64(selfReported) + peerWeight*peerAverage
}

// Aggregate rebuilds a reputation score from a user's received surveys. An
// empty history yields the neutral default.
func Aggregate(surveys []survey.MatchSurvey) player.ReputationScore {
	if len(surveys) == 0 {
		return player.NeutralReputation()
	}

	var skillSum, charSum float64
	punctual := 0
	for _, s := range surveys {
		skillSum += float64(s.SkillRating)
		charSum += float64(s.CharacterRating)
		if s.WasPunctual {
			punctual++
		}
	}

	n := float64(len(surveys))
	return player.ReputationScore{
		AverageSkillAccuracy:   skillSum / n,
		PunctualityPercentage:  100 * float64(punctual) / n,
		AverageCharacterRating: charSum / n,
		EvaluationCount:        len(surveys),
	}
}

// ApplySurveys recomputes a user's reputation from their full survey history,
// updates the stored user, and caches the refreshed score.
func (m *Model) ApplySurveys(ctx context.Context, userID string, surveys []survey.MatchSurvey) (player.ReputationScore, error) {
	score := Aggregate(surveys)

	u, err := m.GetPlayer(ctx, userID)
	if err != nil {
		return player.ReputationScore{}, err
	}

	u.Reputation = score
	u.CalculatedLevel = CalculatedLevel(u.SelfReportedLevel, score.AverageSkillAccuracy)

	if err := m.SavePlayer(ctx, *u); err != nil {
		return player.ReputationScore{}, err
	}
	if err := m.putJSON(ctx, reputationKeyPrefix+userID, score); err != nil {
		return player.ReputationScore{}, err
	}

	if err := m.notifier.Publish(ctx, notify.SubjectReputation, map[string]interface{}{
		"user_id":          userID,
		"evaluation_count": score.EvaluationCount,
		"display_level":    u.DisplayLevel(),
	}); err != nil {
		m.log.Warn().Err(err).Str("user_id", userID).Msg("failed to publish reputation event")
	}

	m.log.Debug().
		Str("user_id", userID).
		Int("evaluations", score.EvaluationCount).
		Float64("calculated_level", u.CalculatedLevel).
		Msg("reputation recomputed")

	return score, nil
}

// Register creates a new player with a neutral reputation. The claimed level
// goes through the same self-assignment gate as later changes.
func (m *Model) Register(ctx context.Context, u player.User) (*player.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if err := u.ValidateSelfAssignment(u.SelfReportedLevel); err != nil {
		return nil, err
	}

	u.Reputation = player.NeutralReputation()
	u.CalculatedLevel = float64(u.SelfReportedLevel)
	u.TotalGames = 0
	u.Wins = 0

	if err := m.SavePlayer(ctx, u); err != nil {
		return nil, err
	}
	return &u, nil
}

// SelfAssignLevel sets a user's self-reported level, enforcing the 1-7 limit
// for unverified players.
func (m *Model) SelfAssignLevel(ctx context.Context, userID string, level int) (*player.User, error) {
	u, err := m.GetPlayer(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := u.ValidateSelfAssignment(level); err != nil {
		return nil, err
	}

	u.SelfReportedLevel = level
	u.CalculatedLevel = CalculatedLevel(level, u.Reputation.AverageSkillAccuracy)
	if err := m.SavePlayer(ctx, *u); err != nil {
		return nil, err
	}
	return u, nil
}

// RecordMatchResult bumps a user's game and win counters after a completed
// match.
func (m *Model) RecordMatchResult(ctx context.Context, userID string, won bool) error {
	u, err := m.GetPlayer(ctx, userID)
	if err != nil {
		return err
	}

	u.TotalGames++
	if won {
		u.Wins++
	}
	return m.SavePlayer(ctx, *u)
}

// GetPlayer loads a user by id.
func (m *Model) GetPlayer(ctx context.Context, userID string) (*player.User, error) {
	data, ok, err := m.store.Get(ctx, playerKeyPrefix+userID)
	if err != nil {
		return nil, eris.Wrapf(err, "loading player %s", userID)
	}
	if !ok {
		return nil, player.ErrPlayerNotFound
	}

	var u player.User
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, eris.Wrapf(err, "decoding player %s", userID)
	}
	return &u, nil
}

// SavePlayer persists a user.
func (m *Model) SavePlayer(ctx context.Context, u player.User) error {
	return m.putJSON(ctx, playerKeyPrefix+u.ID, u)
}

func (m *Model) putJSON(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return eris.Wrapf(err, "encoding %s", key)
	}
	if err := m.store.Put(ctx, key, data); err != nil {
		return eris.Wrapf(err, "storing %s", key)
	}
	return nil
}
