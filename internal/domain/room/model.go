package room

import (
	"context"
	"time"

	"courtmatch/internal/domain/fault"
)

// CodeAlphabet is the symbol set for join codes. Visually confusable
// characters (0, O, 1, I, L) are excluded.
const (
	CodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
	CodeLength   = 6

	// IdleTimeout is how long a room may sit without activity before the
	// expiry sweep closes it.
	IdleTimeout = 30 * time.Minute
)

var (
	ErrNotFound      = fault.New(fault.KindNotFound, "room_not_found", "room not found")
	ErrFull          = fault.New(fault.KindStateConflict, "room_full", "room is full")
	ErrExpired       = fault.New(fault.KindStateConflict, "room_expired", "room has expired")
	ErrClosed        = fault.New(fault.KindStateConflict, "room_closed", "room is closed")
	ErrNotOwner      = fault.New(fault.KindStateConflict, "not_owner", "only the room owner may do this")
	ErrAlreadyJoined = fault.New(fault.KindStateConflict, "already_joined", "player is already in the room")
	ErrNotReady      = fault.New(fault.KindStateConflict, "room_not_ready", "room does not have enough players")
	ErrMalformedCode = fault.New(fault.KindValidation, "malformed_code", "room code must be 6 characters from the code alphabet")
)

// Mode is the match format a room is assembling players for.
type Mode string

const (
	ModeSingles Mode = "singles"
	ModeDoubles Mode = "doubles"
)

// RequiredPlayers returns the participant count a room needs before it can
// start: 2 for singles, 4 for doubles.
func (m Mode) RequiredPlayers() int {
	if m == ModeDoubles {
		return 4
	}
	return 2
}

// Status is the lifecycle stage of a room. Open and Ready are derived from
// the participant count; Started and Closed are explicit transitions.
type Status string

const (
	StatusOpen    Status = "open"
	StatusReady   Status = "ready"
	StatusStarted Status = "started"
	StatusClosed  Status = "closed"
)

// Room is an ad-hoc lobby joined via a short code. It expires after
// IdleTimeout without activity.
type Room struct {
	ID             string    `json:"id"`
	Code           string    `json:"code"`
	OwnerID        string    `json:"owner_id"`
	Mode           Mode      `json:"mode"`
	Participants   []string  `json:"participants"`
	Started        bool      `json:"started"`
	Closed         bool      `json:"closed"`
	CreatedAt      time.Time `json:"created_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
}

// IsReady is recomputed from the participant count, never cached.
func (r Room) IsReady() bool {
	return len(r.Participants) == r.Mode.RequiredPlayers()
}

// IsExpired reports whether the room has been idle longer than IdleTimeout
// as of now.
func (r Room) IsExpired(now time.Time) bool {
	return now.Sub(r.LastActivityAt) > IdleTimeout
}

// Status derives the room's current lifecycle stage.
func (r Room) Status(now time.Time) Status {
	switch {
	case r.Closed || r.IsExpired(now):
		return StatusClosed
	case r.Started:
		return StatusStarted
	case r.IsReady():
		return StatusReady
	default:
		return StatusOpen
	}
}

// HasParticipant reports whether the given player is in the room.
func (r Room) HasParticipant(id string) bool {
	for _, p := range r.Participants {
		if p == id {
			return true
		}
	}
	return false
}

// ValidCode reports whether code is a well-formed join code.
func ValidCode(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for _, c := range code {
		found := false
		for _, a := range CodeAlphabet {
			if c == a {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Lifecycle manages rooms from creation through expiry. All mutating
// operations refresh the room's LastActivityAt and are serialized per room.
type Lifecycle interface {
	// Create opens a room owned by ownerID with a fresh unique join code.
	Create(ctx context.Context, ownerID string, mode Mode) (*Room, error)

	// Get returns a room by its join code.
	Get(ctx context.Context, code string) (*Room, error)

	// Join adds a player to the room identified by code.
	Join(ctx context.Context, code, playerID string) (*Room, error)

	// Kick removes a participant; only the owner may kick.
	Kick(ctx context.Context, roomID, callerID, participantID string) (*Room, error)

	// Invite records an invitation; the room must be open for it and the
	// invitee must fit.
	Invite(ctx context.Context, roomID, callerID, inviteeID string) error

	// Start begins the match; requires a ready room and the owner as caller.
	Start(ctx context.Context, roomID, callerID string) (*Room, error)

	// Leave removes a player; if the owner leaves the room closes.
	Leave(ctx context.Context, roomID, playerID string) error

	// Close terminates the room explicitly; only the owner may close.
	Close(ctx context.Context, roomID, callerID string) error

	// SweepExpired closes every room idle past IdleTimeout and returns the
	// rooms it closed.
	SweepExpired(ctx context.Context) ([]Room, error)
}
