package game

import (
	"context"
	"testing"

	"github.com/knyzorg/discord-game-manager/pkg/platform"
)

func TestRosterJoinOrder(t *testing.T) {
	s, _ := newTestSession(t)

	players := testPlayers(3)
	for _, p := range players {
		if !s.AddPlayer(p) {
			t.Fatalf("adding %s failed", p.Name)
		}
	}
	if s.AddPlayer(players[0]) {
		t.Error("duplicate add should report false")
	}

	got := s.Players()
	if len(got) != 3 {
		t.Fatalf("got %d players, want 3", len(got))
	}
	for i, p := range got {
		if p.ID != players[i].ID {
			t.Errorf("position %d: got %s, want %s", i, p.Name, players[i].Name)
		}
	}

	if !s.RemovePlayer(players[1].ID) {
		t.Fatal("removing a present player failed")
	}
	if s.RemovePlayer(players[1].ID) {
		t.Error("second removal should report false")
	}
	got = s.Players()
	if len(got) != 2 || got[0].ID != players[0].ID || got[1].ID != players[2].ID {
		t.Errorf("roster after removal: %v", got)
	}
}

func TestNominateLeaderFirstWins(t *testing.T) {
	s, _ := newTestSession(t)
	players := testPlayers(2)

	if !s.NominateLeader(RoomOne, players[0]) {
		t.Fatal("first nomination should take")
	}
	if s.NominateLeader(RoomOne, players[1]) {
		t.Error("second nomination should be rejected")
	}
	leader, ok := s.Leader(RoomOne)
	if !ok || leader.ID != players[0].ID {
		t.Errorf("leader is %v, want %s", leader, players[0].Name)
	}

	if _, ok := s.Leader(RoomTwo); ok {
		t.Error("other room should have no leader")
	}
}

func TestResetClearsState(t *testing.T) {
	s, _ := newTestSession(t)
	p := testPlayers(1)[0]

	s.AddPlayer(p)
	s.SetPrivateChannel(p.ID, "chan")
	s.SetRole(p.ID, RoleBomber)
	s.NominateLeader(RoomOne, p)

	s.Reset()

	if s.PlayerCount() != 0 {
		t.Error("roster should be empty after reset")
	}
	if _, ok := s.PrivateChannel(p.ID); ok {
		t.Error("private channel mapping survived reset")
	}
	if _, ok := s.Role(p.ID); ok {
		t.Error("role survived reset")
	}
	if _, ok := s.Leader(RoomOne); ok {
		t.Error("leader survived reset")
	}
}

func TestBroadcastReachesEveryPrivateChannel(t *testing.T) {
	s, fake := newTestSession(t)
	ctx := context.Background()

	players := testPlayers(2)
	for _, p := range players {
		s.AddPlayer(p)
		name := p.Name + "-private"
		if err := fake.CreateChannel(ctx, name, platform.ChannelText, platform.VisibilitySecret); err != nil {
			t.Fatal(err)
		}
		s.SetPrivateChannel(p.ID, name)
	}

	if err := s.Broadcast(ctx, "hello rooms"); err != nil {
		t.Fatal(err)
	}
	for _, p := range players {
		if !fake.messageIn(p.Name+"-private", "hello rooms") {
			t.Errorf("%s did not receive the broadcast", p.Name)
		}
	}
}

func TestRoomOccupantsFiltersUncommitted(t *testing.T) {
	s, fake := newTestSession(t)
	ctx := context.Background()

	if err := fake.CreateChannel(ctx, RoomOne, platform.ChannelVoice, platform.VisibilitySecret); err != nil {
		t.Fatal(err)
	}

	players := testPlayers(2)
	s.AddPlayer(players[0])
	fake.joinVoice(players[0], RoomOne)
	// Second occupant never joined the roster.
	fake.joinVoice(players[1], RoomOne)

	got, err := s.RoomOccupants(ctx, RoomOne)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != players[0].ID {
		t.Errorf("occupants %v, want only %s", got, players[0].Name)
	}
}
