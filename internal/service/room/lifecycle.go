package room

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"courtmatch/internal/adapter/notify"
	"courtmatch/internal/adapter/storage"
	"courtmatch/internal/domain/clock"
	"courtmatch/internal/domain/fault"
	"courtmatch/internal/domain/room"
)

const roomKeyPrefix = "room:"

// maxCodeAttempts bounds join-code generation retries. The 32^6 code space
// makes collisions rare; hitting the bound means the registry is effectively
// saturated.
const maxCodeAttempts = 50

// ErrCodeSpaceExhausted is returned when no unique join code could be drawn.
var ErrCodeSpaceExhausted = fault.New(fault.KindUnavailable, "code_space_exhausted", "could not generate a unique room code")

// Lifecycle implements room.Lifecycle. The registry lock guards the maps;
// every check-then-mutate sequence on a single room runs under that room's
// own mutex, so concurrent joins cannot both slip past capacity and the
// expiry sweep cannot race an in-flight mutation.
type Lifecycle struct {
	store    storage.Store
	notifier notify.Notifier
	clock    clock.Clock
	log      zerolog.Logger

	mu    sync.RWMutex
	rooms map[string]*entry // by room id
	codes map[string]string // live code -> room id
}

type entry struct {
	mu   sync.Mutex
	room room.Room
}

// NewLifecycle creates a room lifecycle manager.
func NewLifecycle(store storage.Store, notifier notify.Notifier, clk clock.Clock, log zerolog.Logger) *Lifecycle {
	return &Lifecycle{
		store:    store,
		notifier: notifier,
		clock:    clk,
		log:      log.With().Str("component", "rooms").Logger(),
		rooms:    make(map[string]*entry),
		codes:    make(map[string]string),
	}
}

// Restore rebuilds the live registry from persisted rooms. Rooms that
// expired while the process was down are dropped on the next sweep.
func (l *Lifecycle) Restore(ctx context.Context) error {
	stored, err := l.store.Scan(ctx, roomKeyPrefix)
	if err != nil {
		return eris.Wrap(err, "scanning persisted rooms")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, data := range stored {
		var r room.Room
		if err := json.Unmarshal(data, &r); err != nil {
			l.log.Warn().Err(err).Str("key", key).Msg("skipping undecodable room")
			continue
		}
		l.rooms[r.ID] = &entry{room: r}
		l.codes[r.Code] = r.ID
	}

	l.log.Info().Int("rooms", len(l.rooms)).Msg("room registry restored")
	return nil
}

// Create opens a room for ownerID. The owner is its first participant. Code
// generation retries until the code is unique among live rooms.
func (l *Lifecycle) Create(ctx context.Context, ownerID string, mode room.Mode) (*room.Room, error) {
	now := l.clock.Now()
	r := room.Room{
		ID:             uuid.NewString(),
		OwnerID:        ownerID,
		Mode:           mode,
		Participants:   []string{ownerID},
		CreatedAt:      now,
		LastActivityAt: now,
	}

	l.mu.Lock()
	code, err := l.reserveCode(r.ID)
	if err != nil {
		l.mu.Unlock()
		return nil, err
	}
	r.Code = code
	l.rooms[r.ID] = &entry{room: r}
	l.mu.Unlock()

	if err := l.persist(ctx, r); err != nil {
		// An unpersisted room must not stay joinable.
		l.mu.Lock()
		delete(l.rooms, r.ID)
		delete(l.codes, r.Code)
		l.mu.Unlock()
		return nil, err
	}

	l.publish(ctx, notify.SubjectRoomCreated, r)
	l.log.Info().Str("room", r.ID).Str("code", r.Code).Str("mode", string(mode)).Msg("room created")
	return &r, nil
}

// reserveCode draws an unused join code and indexes it. Caller holds the
// registry write lock.
func (l *Lifecycle) reserveCode(roomID string) (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		code := randomCode()
		if _, taken := l.codes[code]; taken {
			continue
		}
		l.codes[code] = roomID
		return code, nil
	}
	return "", ErrCodeSpaceExhausted
}

func randomCode() string {
	b := make([]byte, room.CodeLength)
	for i := range b {
		b[i] = room.CodeAlphabet[rand.Intn(len(room.CodeAlphabet))]
	}
	return string(b)
}

// Get returns the live room for a join code.
func (l *Lifecycle) Get(ctx context.Context, code string) (*room.Room, error) {
	if !room.ValidCode(code) {
		return nil, room.ErrMalformedCode
	}

	e, err := l.byCode(code)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	r := e.room
	return &r, nil
}

// Join adds a player to the room with the given code.
func (l *Lifecycle) Join(ctx context.Context, code, playerID string) (*room.Room, error) {
	if !room.ValidCode(code) {
		return nil, room.ErrMalformedCode
	}

	e, err := l.byCode(code)
	if err != nil {
		return nil, err
	}

	r, err := l.mutate(ctx, e, func(r *room.Room) error {
		if r.HasParticipant(playerID) {
			return room.ErrAlreadyJoined
		}
		if len(r.Participants) >= r.Mode.RequiredPlayers() {
			return room.ErrFull
		}
		r.Participants = append(r.Participants, playerID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.publish(ctx, notify.SubjectRoomJoined, map[string]interface{}{"room": r, "player_id": playerID})
	return r, nil
}

// Kick removes a participant from the room. Only the owner may kick; the
// removal itself is unconditional when the participant is present.
func (l *Lifecycle) Kick(ctx context.Context, roomID, callerID, participantID string) (*room.Room, error) {
	e, err := l.byID(roomID)
	if err != nil {
		return nil, err
	}

	r, err := l.mutate(ctx, e, func(r *room.Room) error {
		if r.OwnerID != callerID {
			return room.ErrNotOwner
		}
		for i, p := range r.Participants {
			if p == participantID {
				r.Participants = append(r.Participants[:i], r.Participants[i+1:]...)
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.publish(ctx, notify.SubjectRoomKicked, map[string]interface{}{"room": r, "player_id": participantID})
	return r, nil
}

// Invite records an invitation from a room participant. The room must be
// ready before invitations (and the start) are allowed.
func (l *Lifecycle) Invite(ctx context.Context, roomID, callerID, inviteeID string) error {
	e, err := l.byID(roomID)
	if err != nil {
		return err
	}

	r, err := l.mutate(ctx, e, func(r *room.Room) error {
		if !r.IsReady() {
			return room.ErrNotReady
		}
		return nil
	})
	if err != nil {
		return err
	}

	l.publish(ctx, notify.SubjectRoomInvited, map[string]interface{}{"room": r, "invitee_id": inviteeID, "inviter_id": callerID})
	return nil
}

// Start begins the match. Only the owner of a ready room may start it.
func (l *Lifecycle) Start(ctx context.Context, roomID, callerID string) (*room.Room, error) {
	e, err := l.byID(roomID)
	if err != nil {
		return nil, err
	}

	r, err := l.mutate(ctx, e, func(r *room.Room) error {
		if r.OwnerID != callerID {
			return room.ErrNotOwner
		}
		if !r.IsReady() {
			return room.ErrNotReady
		}
		r.Started = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.publish(ctx, notify.SubjectRoomStarted, r)
	return r, nil
}

// Leave removes a player from the room. The owner leaving closes the room.
func (l *Lifecycle) Leave(ctx context.Context, roomID, playerID string) error {
	e, err := l.byID(roomID)
	if err != nil {
		return err
	}

	if e.ownerIs(playerID) {
		return l.closeRoom(ctx, e, notify.SubjectRoomClosed)
	}

	_, err = l.mutate(ctx, e, func(r *room.Room) error {
		for i, p := range r.Participants {
			if p == playerID {
				r.Participants = append(r.Participants[:i], r.Participants[i+1:]...)
				return nil
			}
		}
		return nil
	})
	return err
}

// Close terminates a room explicitly. Only the owner may close.
func (l *Lifecycle) Close(ctx context.Context, roomID, callerID string) error {
	e, err := l.byID(roomID)
	if err != nil {
		return err
	}
	if !e.ownerIs(callerID) {
		return room.ErrNotOwner
	}
	return l.closeRoom(ctx, e, notify.SubjectRoomClosed)
}

// SweepExpired closes every room idle past the timeout. Each room's own
// mutex serializes the sweep against in-flight joins and kicks.
func (l *Lifecycle) SweepExpired(ctx context.Context) ([]room.Room, error) {
	l.mu.RLock()
	entries := make([]*entry, 0, len(l.rooms))
	for _, e := range l.rooms {
		entries = append(entries, e)
	}
	l.mu.RUnlock()

	now := l.clock.Now()
	var closed []room.Room
	for _, e := range entries {
		e.mu.Lock()
		expired := !e.room.Closed && e.room.IsExpired(now)
		if expired {
			e.room.Closed = true
		}
		r := e.room
		e.mu.Unlock()

		if !expired {
			continue
		}

		l.remove(ctx, r)
		l.publish(ctx, notify.SubjectRoomExpired, r)
		closed = append(closed, r)
	}

	if len(closed) > 0 {
		l.log.Info().Int("closed", len(closed)).Msg("expired rooms swept")
	}
	return closed, nil
}

// byCode resolves a live room entry by join code.
func (l *Lifecycle) byCode(code string) (*entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	id, ok := l.codes[code]
	if !ok {
		return nil, room.ErrNotFound
	}
	e, ok := l.rooms[id]
	if !ok {
		return nil, room.ErrNotFound
	}
	return e, nil
}

func (l *Lifecycle) byID(roomID string) (*entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	e, ok := l.rooms[roomID]
	if !ok {
		return nil, room.ErrNotFound
	}
	return e, nil
}

// mutate runs fn under the room's mutex, rejecting closed or expired rooms,
// then refreshes activity and persists. The returned room is a snapshot.
func (l *Lifecycle) mutate(ctx context.Context, e *entry, fn func(*room.Room) error) (*room.Room, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.room.Closed {
		return nil, room.ErrNotFound
	}
	if e.room.IsExpired(l.clock.Now()) {
		return nil, room.ErrExpired
	}

	if err := fn(&e.room); err != nil {
		return nil, err
	}

	e.room.LastActivityAt = l.clock.Now()
	if err := l.persist(ctx, e.room); err != nil {
		return nil, err
	}

	r := e.room
	return &r, nil
}

func (l *Lifecycle) closeRoom(ctx context.Context, e *entry, subject string) error {
	e.mu.Lock()
	if e.room.Closed {
		e.mu.Unlock()
		return room.ErrNotFound
	}
	e.room.Closed = true
	r := e.room
	e.mu.Unlock()

	l.remove(ctx, r)
	l.publish(ctx, subject, r)
	l.log.Info().Str("room", r.ID).Msg("room closed")
	return nil
}

// remove drops a closed room from the registry and the store.
func (l *Lifecycle) remove(ctx context.Context, r room.Room) {
	l.mu.Lock()
	delete(l.rooms, r.ID)
	delete(l.codes, r.Code)
	l.mu.Unlock()

	if err := l.store.Delete(ctx, roomKeyPrefix+r.ID); err != nil {
		l.log.Warn().Err(err).Str("room", r.ID).Msg("failed to delete persisted room")
	}
}

func (l *Lifecycle) persist(ctx context.Context, r room.Room) error {
	data, err := json.Marshal(r)
	if err != nil {
		return eris.Wrapf(err, "encoding room %s", r.ID)
	}
	if err := l.store.Put(ctx, roomKeyPrefix+r.ID, data); err != nil {
		return eris.Wrapf(err, "storing room %s", r.ID)
	}
	return nil
}

func (l *Lifecycle) publish(ctx context.Context, subject string, payload interface{}) {
	if err := l.notifier.Publish(ctx, subject, payload); err != nil {
		l.log.Warn().Err(err).Str("subject", subject).Msg("failed to publish room event")
	}
}

func (e *entry) ownerIs(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.room.OwnerID == id
}
