// Package game implements the coordination core: session state, the
// interactive prompt engine, the countdown timer and the phase state
// machine that drives one game of Two Rooms and a Boom.
package game

import (
	"context"
	"log/slog"
	"sync"

	"github.com/knyzorg/discord-game-manager/pkg/bus"
	"github.com/knyzorg/discord-game-manager/pkg/platform"
	"github.com/knyzorg/discord-game-manager/pkg/telemetry"
)

// Well-known channel names. Rooms are created secret; admin and lobby
// are the public entry points.
const (
	ChannelAdmin = "admin"
	ChannelLobby = "lobby"
	RoomOne      = "room-one"
	RoomTwo      = "room-two"
)

var roomNames = []string{RoomOne, RoomTwo}

// Session owns all mutable per-game state: the roster, private-channel
// and role maps, and the per-room leaders. Every mutation goes through
// the session mutex, so bus handlers running on platform goroutines and
// phase bodies can touch it safely.
type Session struct {
	Bus     *bus.EventBus
	Adapter platform.Adapter

	logger *slog.Logger

	mu      sync.Mutex
	players map[string]platform.Participant
	order   []string
	private map[string]string
	roles   map[string]Role
	leaders map[string]platform.Participant
}

func NewSession(adapter platform.Adapter, b *bus.EventBus, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{
		Bus:     b,
		Adapter: adapter,
		logger:  logger,
	}
	s.Reset()
	return s
}

// Reset clears all game state for a fresh playthrough.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	telemetry.Metrics.ActivePlayers.Sub(float64(len(s.players)))
	s.players = make(map[string]platform.Participant)
	s.order = nil
	s.private = make(map[string]string)
	s.roles = make(map[string]Role)
	s.leaders = make(map[string]platform.Participant)
}

// AddPlayer admits p to the roster. Reports whether p was newly added.
func (s *Session) AddPlayer(p platform.Participant) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.players[p.ID]; ok {
		return false
	}
	s.players[p.ID] = p
	s.order = append(s.order, p.ID)
	telemetry.Metrics.ActivePlayers.Inc()
	s.logger.Info("player joined", slog.String("player", p.Name))
	return true
}

// RemovePlayer drops the player with the given ID from the roster.
func (s *Session) RemovePlayer(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[id]
	if !ok {
		return false
	}
	delete(s.players, id)
	for i, pid := range s.order {
		if pid == id {
			s.order = append(s.order[:i:i], s.order[i+1:]...)
			break
		}
	}
	telemetry.Metrics.ActivePlayers.Dec()
	s.logger.Info("player left", slog.String("player", p.Name))
	return true
}

func (s *Session) HasPlayer(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.players[id]
	return ok
}

// Players returns the roster in join order.
func (s *Session) Players() []platform.Participant {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]platform.Participant, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.players[id])
	}
	return out
}

func (s *Session) PlayerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.players)
}

func (s *Session) SetPrivateChannel(playerID, channel string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.private[playerID] = channel
}

func (s *Session) PrivateChannel(playerID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.private[playerID]
	return ch, ok
}

func (s *Session) SetRole(playerID string, r Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roles[playerID] = r
}

func (s *Session) Role(playerID string) (Role, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.roles[playerID]
	return r, ok
}

// NominateLeader records p as the room's leader. Only the first
// nomination per room takes effect; later ones report false.
func (s *Session) NominateLeader(room string, p platform.Participant) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.leaders[room]; ok {
		return false
	}
	s.leaders[room] = p
	s.logger.Info("leader nominated",
		slog.String("room", room),
		slog.String("leader", p.Name),
	)
	return true
}

func (s *Session) Leader(room string) (platform.Participant, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.leaders[room]
	return p, ok
}

// Broadcast sends text to every player's private channel.
func (s *Session) Broadcast(ctx context.Context, text string) error {
	for _, p := range s.Players() {
		ch, ok := s.PrivateChannel(p.ID)
		if !ok {
			continue
		}
		if _, err := s.Adapter.SendMessage(ctx, ch, text); err != nil {
			return err
		}
	}
	return nil
}

// RoomOccupants lists the committed players currently in the named room.
func (s *Session) RoomOccupants(ctx context.Context, room string) ([]platform.Participant, error) {
	occupants, err := s.Adapter.ListParticipants(ctx, room)
	if err != nil {
		return nil, err
	}
	var out []platform.Participant
	for _, p := range occupants {
		if s.HasPlayer(p.ID) {
			out = append(out, p)
		}
	}
	return out, nil
}
