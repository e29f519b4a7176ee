package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"courtmatch/internal/adapter/notify"
	"courtmatch/internal/adapter/pool"
	"courtmatch/internal/adapter/storage"
	"courtmatch/internal/config"
	"courtmatch/internal/domain/clock"
	"courtmatch/internal/domain/match"
	"courtmatch/internal/domain/room"
	geoService "courtmatch/internal/service/geo"
	matchService "courtmatch/internal/service/match"
	"courtmatch/internal/service/reputation"
	roomService "courtmatch/internal/service/room"
	scheduleService "courtmatch/internal/service/schedule"
	surveyService "courtmatch/internal/service/survey"
)

func newTestServer(t *testing.T) (*Server, *clock.Fake) {
	t.Helper()

	clk := clock.NewFake(time.Date(2025, time.June, 10, 12, 0, 0, 0, time.UTC))
	log := zerolog.Nop()
	store := storage.NewMemoryStore()
	notifier := notify.Noop{}

	slots := scheduleService.NewEngine(clk)
	rep := reputation.NewModel(store, notifier, log)
	candidates := pool.NewStoreProvider(store, log)
	ranker := matchService.NewRanker(candidates, nil, geoService.NewFilter(), slots,
		matchService.RankerConfig{DefaultRadiusMiles: 50}, log)
	rooms := roomService.NewLifecycle(store, notifier, clk, log)
	ledger := surveyService.NewLedger(store, rep, notifier, clk, log)

	cfg := config.ServerConfig{
		Host:        "127.0.0.1",
		Port:        0,
		CorsOrigins: []string{"*"},
	}
	return NewServer(cfg, clk, ranker, rooms, ledger, rep, slots, candidates, match.StrategyLocation), clk
}

func doJSON(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doJSON(t, s, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestPlayerEndpoints(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/v1/players", map[string]interface{}{
		"id": "ann", "nickname": "ann", "self_reported_level": 5,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/api/v1/players/ann/level", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var level struct {
		DisplayLevel int  `json:"display_level"`
		IsNewPlayer  bool `json:"is_new_player"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &level))
	require.Equal(t, 5, level.DisplayLevel)
	require.True(t, level.IsNewPlayer)

	// Unverified players cannot claim level 8.
	rec = doJSON(t, s, http.MethodPut, "/api/v1/players/ann/level", map[string]int{"level": 8})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, s, http.MethodPut, "/api/v1/players/ann/level", map[string]int{"level": 6})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/api/v1/players/nobody", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRoomEndpoints(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/v1/rooms", map[string]string{
		"owner_id": "ann", "mode": "mixed",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/api/v1/rooms", map[string]string{
		"owner_id": "ann", "mode": "singles",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created room.Room
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.True(t, room.ValidCode(created.Code))

	rec = doJSON(t, s, http.MethodPost, "/api/v1/rooms/"+created.Code+"/join", map[string]string{
		"player_id": "bob",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// A third joiner conflicts with singles capacity.
	rec = doJSON(t, s, http.MethodPost, "/api/v1/rooms/"+created.Code+"/join", map[string]string{
		"player_id": "cal",
	})
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/api/v1/rooms/"+created.ID+"/start", map[string]string{
		"caller_id": "bob",
	})
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/api/v1/rooms/"+created.ID+"/start", map[string]string{
		"caller_id": "ann",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/api/v1/rooms/AAAAAA", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSurveyEndpoints(t *testing.T) {
	s, clk := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/v1/players", map[string]interface{}{
		"id": "bob", "nickname": "bob", "self_reported_level": 5,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/api/v1/matches/m1/complete", map[string]interface{}{
		"participants": []map[string]string{
			{"user_id": "ann", "nickname": "ann"},
			{"user_id": "bob", "nickname": "bob"},
		},
		"winner_ids": []string{"bob"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/api/v1/surveys/pending?user=ann", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var pending struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pending))
	require.Equal(t, 1, pending.Count)

	submit := map[string]interface{}{
		"match_id": "m1", "evaluator_id": "ann", "evaluated_user_id": "bob",
		"skill_rating": 7, "was_punctual": true, "character_rating": 4,
	}
	rec = doJSON(t, s, http.MethodPost, "/api/v1/surveys", submit)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/api/v1/surveys", submit)
	require.Equal(t, http.StatusConflict, rec.Code)

	clk.Advance(time.Hour)
	rec = doJSON(t, s, http.MethodGet, "/api/v1/surveys/pending?user=ann", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pending))
	require.Equal(t, 0, pending.Count)
}

func TestSearchEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/v1/matches/search", map[string]interface{}{
		"skill_level": 5,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/api/v1/players", map[string]interface{}{
		"id": "bob", "nickname": "bob", "self_reported_level": 6,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	day := "2025-06-11"
	slots := []map[string]string{{
		"date":       day + "T00:00:00Z",
		"start_time": day + "T09:00:00Z",
		"end_time":   day + "T11:00:00Z",
	}}
	rec = doJSON(t, s, http.MethodPut, "/api/v1/players/bob/availability", map[string]interface{}{
		"location":   map[string]float64{"latitude": 40.0, "longitude": -74.0},
		"time_slots": slots,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/api/v1/matches/search", map[string]interface{}{
		"requester_id": "ann",
		"skill_level":  5,
		"location":     map[string]float64{"latitude": 40.0, "longitude": -74.0},
		"time_slot":    slots[0],
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var result struct {
		Count      int `json:"count"`
		Candidates []struct {
			MatchScore float64 `json:"match_score"`
		} `json:"candidates"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Equal(t, 1, result.Count)
	require.InDelta(t, 10.0, result.Candidates[0].MatchScore, 0.01)
}
