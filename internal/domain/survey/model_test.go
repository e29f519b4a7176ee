package survey

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMatchSurveyValidate(t *testing.T) {
	valid := MatchSurvey{SkillRating: 5, CharacterRating: 3}
	require.NoError(t, valid.Validate())

	edges := []MatchSurvey{
		{SkillRating: 1, CharacterRating: 1},
		{SkillRating: 9, CharacterRating: 5},
	}
	for _, s := range edges {
		require.NoError(t, s.Validate())
	}

	invalid := []MatchSurvey{
		{SkillRating: 0, CharacterRating: 3},
		{SkillRating: 10, CharacterRating: 3},
		{SkillRating: 5, CharacterRating: 0},
		{SkillRating: 5, CharacterRating: 6},
	}
	for _, s := range invalid {
		require.ErrorIs(t, s.Validate(), ErrInvalidRating)
	}
}

func TestMatchSurveyRoundTrip(t *testing.T) {
	in := MatchSurvey{
		ID:              "s1",
		MatchID:         "m1",
		EvaluatorID:     "ann",
		EvaluatedUserID: "bob",
		SkillRating:     7,
		WasPunctual:     true,
		CharacterRating: 4,
		SubmittedAt:     time.Date(2025, time.June, 10, 20, 0, 0, 0, time.UTC),
	}

	data, err := json.Marshal(in)
	require.NoError(t, err)

	var out MatchSurvey
	require.NoError(t, json.Unmarshal(data, &out))
	require.Equal(t, in, out)
}
