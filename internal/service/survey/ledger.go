package survey

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"courtmatch/internal/adapter/notify"
	"courtmatch/internal/adapter/storage"
	"courtmatch/internal/domain/clock"
	"courtmatch/internal/domain/player"
	"courtmatch/internal/domain/survey"
)

const (
	surveyKeyPrefix  = "survey:"
	pendingKeyPrefix = "pending:"
)

// ReputationSink receives the refreshed survey history for a user after each
// successful submission. Implemented by the reputation model.
type ReputationSink interface {
	ApplySurveys(ctx context.Context, userID string, surveys []survey.MatchSurvey) (player.ReputationScore, error)
}

// Ledger implements survey.Ledger. One mutex covers every check-then-insert,
// making duplicate submissions for the same (match, evaluator) impossible
// under concurrency.
type Ledger struct {
	store      storage.Store
	reputation ReputationSink
	notifier   notify.Notifier
	clock      clock.Clock
	log        zerolog.Logger

	mu       sync.Mutex
	surveys  map[string]survey.MatchSurvey     // (matchID:evaluatorID) -> survey
	received map[string][]string               // evaluatedUserID -> survey keys
	pending  map[string][]survey.PendingSurvey // evaluatorID -> outstanding surveys
	applyMu  map[string]*sync.Mutex            // evaluatedUserID -> recompute serialization
}

// NewLedger creates a survey ledger.
func NewLedger(store storage.Store, reputation ReputationSink, notifier notify.Notifier, clk clock.Clock, log zerolog.Logger) *Ledger {
	return &Ledger{
		store:      store,
		reputation: reputation,
		notifier:   notifier,
		clock:      clk,
		log:        log.With().Str("component", "surveys").Logger(),
		surveys:    make(map[string]survey.MatchSurvey),
		received:   make(map[string][]string),
		pending:    make(map[string][]survey.PendingSurvey),
		applyMu:    make(map[string]*sync.Mutex),
	}
}

// Restore rebuilds the in-memory ledger from persisted surveys and pending
// entries.
func (l *Ledger) Restore(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	stored, err := l.store.Scan(ctx, surveyKeyPrefix)
	if err != nil {
		return eris.Wrap(err, "scanning persisted surveys")
	}
	for key, data := range stored {
		var s survey.MatchSurvey
		if err := json.Unmarshal(data, &s); err != nil {
			l.log.Warn().Err(err).Str("key", key).Msg("skipping undecodable survey")
			continue
		}
		k := surveyKey(s.MatchID, s.EvaluatorID)
		l.surveys[k] = s
		l.received[s.EvaluatedUserID] = append(l.received[s.EvaluatedUserID], k)
	}

	pend, err := l.store.Scan(ctx, pendingKeyPrefix)
	if err != nil {
		return eris.Wrap(err, "scanning pending surveys")
	}
	for key, data := range pend {
		var list []survey.PendingSurvey
		if err := json.Unmarshal(data, &list); err != nil {
			l.log.Warn().Err(err).Str("key", key).Msg("skipping undecodable pending list")
			continue
		}
		l.pending[key[len(pendingKeyPrefix):]] = list
	}

	l.log.Info().Int("surveys", len(l.surveys)).Msg("survey ledger restored")
	return nil
}

// Submit records a survey, enforcing rating bounds, the 48-hour window, and
// (matchID, evaluatorID) uniqueness, then triggers reputation recomputation
// for the evaluated user.
func (l *Ledger) Submit(ctx context.Context, s survey.MatchSurvey) error {
	if err := s.Validate(); err != nil {
		return err
	}

	now := l.clock.Now()
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	s.SubmittedAt = now

	l.mu.Lock()
	key := surveyKey(s.MatchID, s.EvaluatorID)
	if _, exists := l.surveys[key]; exists {
		l.mu.Unlock()
		return survey.ErrAlreadySubmitted
	}

	if p, ok := l.pendingFor(s.EvaluatorID, s.MatchID, s.EvaluatedUserID); ok && p.ExpiresAt.Before(now) {
		l.mu.Unlock()
		return survey.ErrExpired
	}

	l.surveys[key] = s
	l.received[s.EvaluatedUserID] = append(l.received[s.EvaluatedUserID], key)
	l.dropPending(s.EvaluatorID, s.MatchID, s.EvaluatedUserID)
	pendingLeft := l.pending[s.EvaluatorID]
	l.mu.Unlock()

	if err := l.persistSurvey(ctx, key, s); err != nil {
		return err
	}
	if err := l.persistPending(ctx, s.EvaluatorID, pendingLeft); err != nil {
		return err
	}

	if err := l.recompute(ctx, s.EvaluatedUserID); err != nil {
		return err
	}

	l.log.Info().
		Str("match", s.MatchID).
		Str("evaluator", s.EvaluatorID).
		Str("evaluated", s.EvaluatedUserID).
		Msg("survey recorded")
	return nil
}

// CreatePendingSurveys creates the evaluator's outstanding surveys for a
// completed match: one per participant other than excludingUserID, each
// expiring 48 hours out. Calling it again for the same match is a no-op per
// opponent: entries already outstanding or already surveyed are not recreated.
func (l *Ledger) CreatePendingSurveys(ctx context.Context, matchID string, participants []survey.Participant, excludingUserID string) ([]survey.PendingSurvey, error) {
	now := l.clock.Now()

	l.mu.Lock()
	submitted, hasSubmitted := l.surveys[surveyKey(matchID, excludingUserID)]

	var created []survey.PendingSurvey
	for _, p := range participants {
		if p.UserID == excludingUserID {
			continue
		}
		if _, exists := l.pendingFor(excludingUserID, matchID, p.UserID); exists {
			continue
		}
		if hasSubmitted && submitted.EvaluatedUserID == p.UserID {
			continue
		}
		created = append(created, survey.PendingSurvey{
			ID:               uuid.NewString(),
			MatchID:          matchID,
			OpponentID:       p.UserID,
			OpponentNickname: p.Nickname,
			MatchDate:        now,
			ExpiresAt:        now.Add(survey.PendingWindow),
		})
	}

	l.pending[excludingUserID] = append(l.pending[excludingUserID], created...)
	all := l.pending[excludingUserID]
	l.mu.Unlock()

	if err := l.persistPending(ctx, excludingUserID, all); err != nil {
		return nil, err
	}

	if err := l.notifier.Publish(ctx, notify.SubjectSurveyCreated, map[string]interface{}{
		"match_id":  matchID,
		"user_id":   excludingUserID,
		"opponents": len(created),
	}); err != nil {
		l.log.Warn().Err(err).Str("match", matchID).Msg("failed to publish survey event")
	}

	return created, nil
}

// Pending returns the evaluator's outstanding surveys, dropping any whose
// window has already closed as of asOf.
func (l *Ledger) Pending(ctx context.Context, evaluatorID string, asOf time.Time) ([]survey.PendingSurvey, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []survey.PendingSurvey
	for _, p := range l.pending[evaluatorID] {
		if p.ExpiresAt.Before(asOf) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// SurveysFor returns the full survey history received by a user.
func (l *Ledger) SurveysFor(ctx context.Context, evaluatedUserID string) ([]survey.MatchSurvey, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.surveysForLocked(evaluatedUserID), nil
}

func (l *Ledger) surveysForLocked(evaluatedUserID string) []survey.MatchSurvey {
	keys := l.received[evaluatedUserID]
	out := make([]survey.MatchSurvey, 0, len(keys))
	for _, k := range keys {
		if s, ok := l.surveys[k]; ok {
			out = append(out, s)
		}
	}
	return out
}

// recompute rebuilds the evaluated user's reputation from a fresh history
// snapshot. The per-user lock spans snapshot and apply, so two concurrent
// submissions against the same user cannot persist a score that misses the
// later survey. Surveys for unregistered participants stay recorded; their
// score is rebuilt on the next submission once they exist.
func (l *Ledger) recompute(ctx context.Context, userID string) error {
	mu := l.applyLock(userID)
	mu.Lock()
	defer mu.Unlock()

	l.mu.Lock()
	history := l.surveysForLocked(userID)
	l.mu.Unlock()

	if _, err := l.reputation.ApplySurveys(ctx, userID, history); err != nil {
		if errors.Is(err, player.ErrPlayerNotFound) {
			l.log.Warn().Str("user_id", userID).Msg("survey recorded for unregistered user, reputation not recomputed")
			return nil
		}
		return eris.Wrapf(err, "recomputing reputation for %s", userID)
	}
	return nil
}

func (l *Ledger) applyLock(userID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	mu, ok := l.applyMu[userID]
	if !ok {
		mu = &sync.Mutex{}
		l.applyMu[userID] = mu
	}
	return mu
}

func (l *Ledger) pendingFor(evaluatorID, matchID, opponentID string) (survey.PendingSurvey, bool) {
	for _, p := range l.pending[evaluatorID] {
		if p.MatchID == matchID && p.OpponentID == opponentID {
			return p, true
		}
	}
	return survey.PendingSurvey{}, false
}

func (l *Ledger) dropPending(evaluatorID, matchID, opponentID string) {
	list := l.pending[evaluatorID]
	for i, p := range list {
		if p.MatchID == matchID && p.OpponentID == opponentID {
			l.pending[evaluatorID] = append(list[:i], list[i+1:]...)
			return
		}
	}
}

func (l *Ledger) persistSurvey(ctx context.Context, key string, s survey.MatchSurvey) error {
	data, err := json.Marshal(s)
	if err != nil {
		return eris.Wrapf(err, "encoding survey %s", s.ID)
	}
	if err := l.store.Put(ctx, surveyKeyPrefix+key, data); err != nil {
		return eris.Wrapf(err, "storing survey %s", s.ID)
	}
	return nil
}

func (l *Ledger) persistPending(ctx context.Context, evaluatorID string, list []survey.PendingSurvey) error {
	key := pendingKeyPrefix + evaluatorID
	if len(list) == 0 {
		if err := l.store.Delete(ctx, key); err != nil {
			return eris.Wrapf(err, "deleting pending list for %s", evaluatorID)
		}
		return nil
	}

	data, err := json.Marshal(list)
	if err != nil {
		return eris.Wrapf(err, "encoding pending list for %s", evaluatorID)
	}
	if err := l.store.Put(ctx, key, data); err != nil {
		return eris.Wrapf(err, "storing pending list for %s", evaluatorID)
	}
	return nil
}

func surveyKey(matchID, evaluatorID string) string {
	return matchID + ":" + evaluatorID
}
