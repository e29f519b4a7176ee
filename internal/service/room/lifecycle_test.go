package room

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"courtmatch/internal/adapter/notify"
	"courtmatch/internal/adapter/storage"
	"courtmatch/internal/domain/clock"
	"courtmatch/internal/domain/fault"
	"courtmatch/internal/domain/room"
)

var start = time.Date(2025, time.June, 10, 12, 0, 0, 0, time.UTC)

func newTestLifecycle(t *testing.T) (*Lifecycle, *clock.Fake, *notify.Recorder, storage.Store) {
	t.Helper()
	clk := clock.NewFake(start)
	rec := notify.NewRecorder()
	store := storage.NewMemoryStore()
	return NewLifecycle(store, rec, clk, zerolog.Nop()), clk, rec, store
}

func TestCreateGeneratesValidUniqueCodes(t *testing.T) {
	l, _, _, _ := newTestLifecycle(t)
	ctx := context.Background()

	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		r, err := l.Create(ctx, "owner", room.ModeSingles)
		require.NoError(t, err)
		require.True(t, room.ValidCode(r.Code))
		for _, c := range r.Code {
			require.True(t, strings.ContainsRune(room.CodeAlphabet, c), "code %q uses %q", r.Code, c)
		}
		_, dup := seen[r.Code]
		require.False(t, dup, "duplicate code %q", r.Code)
		seen[r.Code] = struct{}{}
	}
}

func TestCreateOwnerIsFirstParticipant(t *testing.T) {
	l, _, rec, _ := newTestLifecycle(t)

	r, err := l.Create(context.Background(), "owner", room.ModeDoubles)
	require.NoError(t, err)
	require.Equal(t, []string{"owner"}, r.Participants)
	require.False(t, r.IsReady())
	require.Equal(t, room.StatusOpen, r.Status(start))
	require.Len(t, rec.BySubject(notify.SubjectRoomCreated), 1)
}

func TestGetByCode(t *testing.T) {
	l, _, _, _ := newTestLifecycle(t)
	ctx := context.Background()

	created, err := l.Create(ctx, "owner", room.ModeSingles)
	require.NoError(t, err)

	got, err := l.Get(ctx, created.Code)
	require.NoError(t, err)
	require.Equal(t, created.ID, got.ID)

	_, err = l.Get(ctx, "short")
	require.ErrorIs(t, err, room.ErrMalformedCode)

	_, err = l.Get(ctx, "ABC10D")
	require.ErrorIs(t, err, room.ErrMalformedCode)

	_, err = l.Get(ctx, "AAAAAA")
	require.ErrorIs(t, err, room.ErrNotFound)
}

func TestJoinReadiness(t *testing.T) {
	l, _, _, _ := newTestLifecycle(t)
	ctx := context.Background()

	r, err := l.Create(ctx, "owner", room.ModeDoubles)
	require.NoError(t, err)

	for i, p := range []string{"p2", "p3"} {
		got, err := l.Join(ctx, r.Code, p)
		require.NoError(t, err)
		require.Len(t, got.Participants, i+2)
		require.False(t, got.IsReady())
	}

	got, err := l.Join(ctx, r.Code, "p4")
	require.NoError(t, err)
	require.True(t, got.IsReady())
	require.Equal(t, room.StatusReady, got.Status(start))
}

func TestJoinFull(t *testing.T) {
	l, _, _, _ := newTestLifecycle(t)
	ctx := context.Background()

	r, err := l.Create(ctx, "owner", room.ModeSingles)
	require.NoError(t, err)

	_, err = l.Join(ctx, r.Code, "p2")
	require.NoError(t, err)

	_, err = l.Join(ctx, r.Code, "p3")
	require.ErrorIs(t, err, room.ErrFull)
	require.True(t, fault.IsKind(err, fault.KindStateConflict))
}

func TestJoinTwice(t *testing.T) {
	l, _, _, _ := newTestLifecycle(t)
	ctx := context.Background()

	r, err := l.Create(ctx, "owner", room.ModeDoubles)
	require.NoError(t, err)

	_, err = l.Join(ctx, r.Code, "p2")
	require.NoError(t, err)

	_, err = l.Join(ctx, r.Code, "p2")
	require.ErrorIs(t, err, room.ErrAlreadyJoined)

	_, err = l.Join(ctx, r.Code, "owner")
	require.ErrorIs(t, err, room.ErrAlreadyJoined)
}

func TestConcurrentJoinsRespectCapacity(t *testing.T) {
	l, _, _, _ := newTestLifecycle(t)
	ctx := context.Background()

	r, err := l.Create(ctx, "owner", room.ModeDoubles)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = l.Join(ctx, r.Code, string(rune('a'+i)))
		}(i)
	}
	wg.Wait()

	joined := 0
	for _, err := range errs {
		if err == nil {
			joined++
		} else {
			require.ErrorIs(t, err, room.ErrFull)
		}
	}
	require.Equal(t, 3, joined)

	got, err := l.Get(ctx, r.Code)
	require.NoError(t, err)
	require.Len(t, got.Participants, 4)
}

func TestKickOwnerOnly(t *testing.T) {
	l, _, rec, _ := newTestLifecycle(t)
	ctx := context.Background()

	r, err := l.Create(ctx, "owner", room.ModeDoubles)
	require.NoError(t, err)
	_, err = l.Join(ctx, r.Code, "p2")
	require.NoError(t, err)

	_, err = l.Kick(ctx, r.ID, "p2", "owner")
	require.ErrorIs(t, err, room.ErrNotOwner)

	got, err := l.Kick(ctx, r.ID, "owner", "p2")
	require.NoError(t, err)
	require.Equal(t, []string{"owner"}, got.Participants)
	require.Len(t, rec.BySubject(notify.SubjectRoomKicked), 1)
}

func TestStartRequiresOwnerAndReady(t *testing.T) {
	l, _, rec, _ := newTestLifecycle(t)
	ctx := context.Background()

	r, err := l.Create(ctx, "owner", room.ModeSingles)
	require.NoError(t, err)

	_, err = l.Start(ctx, r.ID, "owner")
	require.ErrorIs(t, err, room.ErrNotReady)

	_, err = l.Join(ctx, r.Code, "p2")
	require.NoError(t, err)

	_, err = l.Start(ctx, r.ID, "p2")
	require.ErrorIs(t, err, room.ErrNotOwner)

	got, err := l.Start(ctx, r.ID, "owner")
	require.NoError(t, err)
	require.True(t, got.Started)
	require.Equal(t, room.StatusStarted, got.Status(start))
	require.Len(t, rec.BySubject(notify.SubjectRoomStarted), 1)
}

func TestInviteRequiresReady(t *testing.T) {
	l, _, rec, _ := newTestLifecycle(t)
	ctx := context.Background()

	r, err := l.Create(ctx, "owner", room.ModeSingles)
	require.NoError(t, err)

	require.ErrorIs(t, l.Invite(ctx, r.ID, "owner", "guest"), room.ErrNotReady)

	_, err = l.Join(ctx, r.Code, "p2")
	require.NoError(t, err)

	require.NoError(t, l.Invite(ctx, r.ID, "owner", "guest"))
	require.Len(t, rec.BySubject(notify.SubjectRoomInvited), 1)
}

func TestLeave(t *testing.T) {
	l, _, _, _ := newTestLifecycle(t)
	ctx := context.Background()

	r, err := l.Create(ctx, "owner", room.ModeDoubles)
	require.NoError(t, err)
	_, err = l.Join(ctx, r.Code, "p2")
	require.NoError(t, err)

	require.NoError(t, l.Leave(ctx, r.ID, "p2"))
	got, err := l.Get(ctx, r.Code)
	require.NoError(t, err)
	require.Equal(t, []string{"owner"}, got.Participants)
}

func TestOwnerLeaveClosesRoom(t *testing.T) {
	l, _, rec, store := newTestLifecycle(t)
	ctx := context.Background()

	r, err := l.Create(ctx, "owner", room.ModeSingles)
	require.NoError(t, err)

	require.NoError(t, l.Leave(ctx, r.ID, "owner"))

	_, err = l.Get(ctx, r.Code)
	require.ErrorIs(t, err, room.ErrNotFound)
	require.Len(t, rec.BySubject(notify.SubjectRoomClosed), 1)

	_, ok, err := store.Get(ctx, roomKeyPrefix+r.ID)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCloseOwnerOnly(t *testing.T) {
	l, _, _, _ := newTestLifecycle(t)
	ctx := context.Background()

	r, err := l.Create(ctx, "owner", room.ModeSingles)
	require.NoError(t, err)

	require.ErrorIs(t, l.Close(ctx, r.ID, "someone"), room.ErrNotOwner)
	require.NoError(t, l.Close(ctx, r.ID, "owner"))
	require.ErrorIs(t, l.Close(ctx, r.ID, "owner"), room.ErrNotFound)
}

func TestExpiryBoundary(t *testing.T) {
	r := room.Room{LastActivityAt: start}

	require.False(t, r.IsExpired(start.Add(29*time.Minute)))
	require.False(t, r.IsExpired(start.Add(30*time.Minute)))
	require.True(t, r.IsExpired(start.Add(30*time.Minute+time.Second)))
}

func TestJoinExpiredRoom(t *testing.T) {
	l, clk, _, _ := newTestLifecycle(t)
	ctx := context.Background()

	r, err := l.Create(ctx, "owner", room.ModeDoubles)
	require.NoError(t, err)

	clk.Advance(room.IdleTimeout + time.Second)

	_, err = l.Join(ctx, r.Code, "late")
	require.ErrorIs(t, err, room.ErrExpired)
}

func TestActivityResetsIdleWindow(t *testing.T) {
	l, clk, _, _ := newTestLifecycle(t)
	ctx := context.Background()

	r, err := l.Create(ctx, "owner", room.ModeDoubles)
	require.NoError(t, err)

	clk.Advance(25 * time.Minute)
	_, err = l.Join(ctx, r.Code, "p2")
	require.NoError(t, err)

	// 25 more minutes is within the window again after the join.
	clk.Advance(25 * time.Minute)
	_, err = l.Join(ctx, r.Code, "p3")
	require.NoError(t, err)
}

func TestSweepExpired(t *testing.T) {
	l, clk, rec, _ := newTestLifecycle(t)
	ctx := context.Background()

	idle, err := l.Create(ctx, "owner-a", room.ModeSingles)
	require.NoError(t, err)

	clk.Advance(20 * time.Minute)
	active, err := l.Create(ctx, "owner-b", room.ModeSingles)
	require.NoError(t, err)

	clk.Advance(15 * time.Minute)

	closed, err := l.SweepExpired(ctx)
	require.NoError(t, err)
	require.Len(t, closed, 1)
	require.Equal(t, idle.ID, closed[0].ID)

	_, err = l.Get(ctx, idle.Code)
	require.ErrorIs(t, err, room.ErrNotFound)
	_, err = l.Get(ctx, active.Code)
	require.NoError(t, err)

	events := rec.BySubject(notify.SubjectRoomExpired)
	require.Len(t, events, 1)
}

func TestSweepIgnoresStartedButActiveRooms(t *testing.T) {
	l, clk, _, _ := newTestLifecycle(t)
	ctx := context.Background()

	r, err := l.Create(ctx, "owner", room.ModeSingles)
	require.NoError(t, err)
	_, err = l.Join(ctx, r.Code, "p2")
	require.NoError(t, err)
	_, err = l.Start(ctx, r.ID, "owner")
	require.NoError(t, err)

	clk.Advance(10 * time.Minute)
	closed, err := l.SweepExpired(ctx)
	require.NoError(t, err)
	require.Empty(t, closed)

	// Started rooms still expire once idle long enough.
	clk.Advance(room.IdleTimeout)
	closed, err = l.SweepExpired(ctx)
	require.NoError(t, err)
	require.Len(t, closed, 1)
}

func TestRestore(t *testing.T) {
	l, clk, _, store := newTestLifecycle(t)
	ctx := context.Background()

	r, err := l.Create(ctx, "owner", room.ModeDoubles)
	require.NoError(t, err)
	_, err = l.Join(ctx, r.Code, "p2")
	require.NoError(t, err)

	rebuilt := NewLifecycle(store, notify.Noop{}, clk, zerolog.Nop())
	require.NoError(t, rebuilt.Restore(ctx))

	got, err := rebuilt.Get(ctx, r.Code)
	require.NoError(t, err)
	require.Equal(t, r.ID, got.ID)
	require.Len(t, got.Participants, 2)
}

type failingPutStore struct {
	storage.Store
	err error
}

func (s failingPutStore) Put(ctx context.Context, key string, value []byte) error {
	return s.err
}

func TestCreateUnwindsOnPersistFailure(t *testing.T) {
	clk := clock.NewFake(start)
	broken := failingPutStore{Store: storage.NewMemoryStore(), err: errors.New("write refused")}
	l := NewLifecycle(broken, notify.Noop{}, clk, zerolog.Nop())
	ctx := context.Background()

	r, err := l.Create(ctx, "owner", room.ModeSingles)
	require.Error(t, err)
	require.Nil(t, r)

	l.mu.RLock()
	defer l.mu.RUnlock()
	require.Empty(t, l.rooms)
	require.Empty(t, l.codes)
}
