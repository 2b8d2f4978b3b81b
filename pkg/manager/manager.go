// Package manager owns the mapping from Discord guilds to running game
// sessions. A guild gets its session the first time someone mentions the
// bot there; sessions then live until the process stops.
package manager

import (
	"context"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/knyzorg/discord-game-manager/pkg/bus"
	"github.com/knyzorg/discord-game-manager/pkg/game"
	"github.com/knyzorg/discord-game-manager/pkg/platform/discord"
)

type Manager struct {
	dg      *discordgo.Session
	prefix  string
	gameCfg game.Config
	logger  *slog.Logger
	rec     game.Recorder

	mu       sync.Mutex
	ctx      context.Context
	sessions map[string]*activeSession
	remove   func()
}

type activeSession struct {
	controller *game.Controller
	adapter    *discord.Adapter
	session    *game.Session
	cancel     context.CancelFunc
}

// SessionStatus is the externally visible state of one guild's game.
type SessionStatus struct {
	GuildID string `json:"guild_id"`
	Phase   string `json:"phase"`
	Players int    `json:"players"`
}

func New(dg *discordgo.Session, prefix string, gameCfg game.Config, logger *slog.Logger, rec game.Recorder) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		dg:       dg,
		prefix:   prefix,
		gameCfg:  gameCfg,
		logger:   logger,
		rec:      rec,
		sessions: make(map[string]*activeSession),
	}
}

// Start begins watching for bot mentions. ctx bounds the lifetime of
// every session the manager creates.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ctx = ctx
	m.remove = m.dg.AddHandler(m.handleMention)
}

// Stop tears down all sessions and detaches the mention handler.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.remove != nil {
		m.remove()
		m.remove = nil
	}
	for guildID, as := range m.sessions {
		as.cancel()
		as.adapter.Close()
		delete(m.sessions, guildID)
	}
}

func (m *Manager) handleMention(s *discordgo.Session, mc *discordgo.MessageCreate) {
	if mc.GuildID == "" || mc.Author.ID == s.State.User.ID {
		return
	}

	mentioned := false
	for _, u := range mc.Mentions {
		if u.ID == s.State.User.ID {
			mentioned = true
			break
		}
	}
	if !mentioned {
		return
	}

	m.ensureSession(mc.GuildID)
}

// ensureSession creates the guild's session on first use. There is no
// implicit teardown; a guild keeps its session until Stop.
func (m *Manager) ensureSession(guildID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[guildID]; ok {
		return
	}
	if m.ctx == nil || m.ctx.Err() != nil {
		return
	}

	m.logger.Info("creating game session", slog.String("guild", guildID))

	logger := m.logger.With(slog.String("guild", guildID))
	b := bus.New(logger)
	adapter := discord.New(m.dg, guildID, m.prefix, b, logger)
	session := game.NewSession(adapter, b, logger)
	controller := game.NewController(guildID, session, m.gameCfg, logger, m.rec)

	ctx, cancel := context.WithCancel(m.ctx)
	m.sessions[guildID] = &activeSession{
		controller: controller,
		adapter:    adapter,
		session:    session,
		cancel:     cancel,
	}

	go func() {
		if err := controller.Run(ctx); err != nil && ctx.Err() == nil {
			m.logger.Error("game session stopped",
				slog.String("guild", guildID),
				slog.String("err", err.Error()),
			)
		}
	}()
}

// Snapshot lists all active sessions for the status endpoint.
func (m *Manager) Snapshot() []SessionStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]SessionStatus, 0, len(m.sessions))
	for guildID, as := range m.sessions {
		out = append(out, SessionStatus{
			GuildID: guildID,
			Phase:   string(as.controller.Phase()),
			Players: as.session.PlayerCount(),
		})
	}
	return out
}
