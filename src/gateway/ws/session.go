package ws

import (
	"context"
	"fmt"

	"github.com/toro-labs/toro-assistant/src/questions"
)

type sessionState int

const (
	stateConnected sessionState = iota
	stateRegistered
	stateDisconnected
)

// Session tracks one websocket connection through its lifecycle:
// connected (handle assigned, no identity) → registered (bound to a user) →
// disconnected. A register event always creates or overwrites the user's
// registry entry, so registering from any live state is valid; that also
// covers a client that registers without a separate connect round-trip.
//
// A Session is driven by its connection's read loop only and is not safe for
// concurrent use.
type Session struct {
	registry     questions.Registry
	connectionID string
	state        sessionState
	userID       string
	// Every user ever registered on this connection. Disconnect must clear
	// each entry that still points at this handle, not just the latest one.
	users map[string]struct{}
}

func NewSession(registry questions.Registry, connectionID string) *Session {
	return &Session{
		registry:     registry,
		connectionID: connectionID,
		state:        stateConnected,
		users:        map[string]struct{}{},
	}
}

func (s *Session) ConnectionID() string { return s.connectionID }

// UserID returns the registered user, or "" before registration.
func (s *Session) UserID() string { return s.userID }

func (s *Session) Registered() bool { return s.state == stateRegistered }

// Register binds this connection to userID, overwriting any entry from a
// previous connection of the same user (last-registered wins).
func (s *Session) Register(ctx context.Context, userID string) error {
	if s.state == stateDisconnected {
		return fmt.Errorf("register on closed connection %s", s.connectionID)
	}
	if userID == "" {
		return fmt.Errorf("register without user_id on connection %s", s.connectionID)
	}
	if err := s.registry.Register(ctx, userID, s.connectionID); err != nil {
		return err
	}
	s.userID = userID
	s.users[userID] = struct{}{}
	s.state = stateRegistered
	return nil
}

// Disconnect tears the session down, removing every registry entry this
// connection created. Each removal is conditional on the entry still
// pointing at this connection, so a newer registration survives.
func (s *Session) Disconnect(ctx context.Context) error {
	if s.state == stateDisconnected {
		return nil
	}
	s.state = stateDisconnected
	var firstErr error
	for userID := range s.users {
		if err := s.registry.Deregister(ctx, userID, s.connectionID); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
