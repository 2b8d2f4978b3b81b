package manager

import (
	"context"
	"sync"
	"testing"

	"github.com/bwmarrin/discordgo"

	"github.com/knyzorg/discord-game-manager/pkg/game"
)

func newTestManager(t *testing.T) (*Manager, context.CancelFunc) {
	t.Helper()
	dg, err := discordgo.New("Bot test-token")
	if err != nil {
		t.Fatal(err)
	}
	m := New(dg, "boom-", game.DefaultConfig(), nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	m.Start(ctx)
	return m, cancel
}

func TestEnsureSessionCreatesOncePerGuild(t *testing.T) {
	m, cancel := newTestManager(t)
	defer cancel()
	defer m.Stop()

	m.ensureSession("guild-1")
	m.ensureSession("guild-1")
	m.ensureSession("guild-2")

	snap := m.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("got %d sessions, want 2", len(snap))
	}
	guilds := make(map[string]bool)
	for _, st := range snap {
		guilds[st.GuildID] = true
	}
	if !guilds["guild-1"] || !guilds["guild-2"] {
		t.Errorf("snapshot covers %v, want both guilds", guilds)
	}
}

func TestStopTearsDownSessions(t *testing.T) {
	m, cancel := newTestManager(t)
	defer cancel()

	m.ensureSession("guild-1")
	m.Stop()

	if snap := m.Snapshot(); len(snap) != 0 {
		t.Errorf("got %d sessions after Stop, want none", len(snap))
	}
}

func TestEnsureSessionAfterShutdownIsNoOp(t *testing.T) {
	m, cancel := newTestManager(t)
	defer m.Stop()

	cancel()
	m.ensureSession("guild-1")

	if snap := m.Snapshot(); len(snap) != 0 {
		t.Errorf("got %d sessions after shutdown, want none", len(snap))
	}
}

func TestStopIsSafeConcurrently(t *testing.T) {
	m, cancel := newTestManager(t)
	defer cancel()

	m.ensureSession("guild-1")

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Stop()
		}()
	}
	wg.Wait()

	if snap := m.Snapshot(); len(snap) != 0 {
		t.Errorf("got %d sessions after Stop, want none", len(snap))
	}
}
