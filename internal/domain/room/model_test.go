package room

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRequiredPlayers(t *testing.T) {
	require.Equal(t, 2, ModeSingles.RequiredPlayers())
	require.Equal(t, 4, ModeDoubles.RequiredPlayers())
}

func TestValidCode(t *testing.T) {
	require.True(t, ValidCode("ABCDEF"))
	require.True(t, ValidCode("Z23456"))

	require.False(t, ValidCode(""))
	require.False(t, ValidCode("ABCDE"))
	require.False(t, ValidCode("ABCDEFG"))
	require.False(t, ValidCode("abcdef"))
	// 0, O, 1, I and L are not in the alphabet.
	require.False(t, ValidCode("ABC0EF"))
	require.False(t, ValidCode("ABCOEF"))
	require.False(t, ValidCode("ABC1EF"))
	require.False(t, ValidCode("ABCIEF"))
	require.False(t, ValidCode("ABCLEF"))
}

func TestStatusDerivation(t *testing.T) {
	now := time.Date(2025, time.June, 10, 12, 0, 0, 0, time.UTC)

	r := Room{Mode: ModeSingles, Participants: []string{"a"}, LastActivityAt: now}
	require.Equal(t, StatusOpen, r.Status(now))

	r.Participants = append(r.Participants, "b")
	require.Equal(t, StatusReady, r.Status(now))

	r.Started = true
	require.Equal(t, StatusStarted, r.Status(now))

	require.Equal(t, StatusClosed, r.Status(now.Add(IdleTimeout+time.Second)))

	r.Closed = true
	require.Equal(t, StatusClosed, r.Status(now))
}

func TestRoomRoundTrip(t *testing.T) {
	now := time.Date(2025, time.June, 10, 12, 0, 0, 0, time.UTC)
	in := Room{
		ID:             "r1",
		Code:           "ABCDEF",
		OwnerID:        "ann",
		Mode:           ModeDoubles,
		Participants:   []string{"ann", "bob"},
		Started:        true,
		CreatedAt:      now,
		LastActivityAt: now.Add(5 * time.Minute),
	}

	data, err := json.Marshal(in)
	require.NoError(t, err)

	var out Room
	require.NoError(t, json.Unmarshal(data, &out))
	require.Equal(t, in, out)
}
