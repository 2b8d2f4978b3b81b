package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/knyzorg/discord-game-manager/pkg/async"
	"github.com/knyzorg/discord-game-manager/pkg/bus"
	"github.com/knyzorg/discord-game-manager/pkg/platform"
	"github.com/knyzorg/discord-game-manager/pkg/telemetry"
)

// Phase names the stages of one playthrough.
type Phase string

const (
	PhaseStarting   Phase = "Starting"
	PhaseNominating Phase = "Nominating"
	PhaseSharing    Phase = "Sharing"
	PhaseSwitching  Phase = "Switching"
	PhaseEnding     Phase = "Ending"
	PhaseAborting   Phase = "Aborting"
)

// AbortError carries the human-readable reason a game was torn down. It
// travels only along the abort race; phase code never returns it
// directly for normal failures.
type AbortError struct {
	Reason string
}

func (e *AbortError) Error() string {
	return "game aborted: " + e.Reason
}

// Config are the tunables of one controller.
type Config struct {
	MinPlayers      int
	SharingRounds   int
	SharingDuration time.Duration
	CountdownStep   time.Duration
	ShareTimeout    time.Duration
	SwitchTimeout   time.Duration
	AbortCooldown   time.Duration
}

func DefaultConfig() Config {
	return Config{
		MinPlayers:      6,
		SharingRounds:   5,
		SharingDuration: 5 * time.Minute,
		CountdownStep:   5 * time.Second,
		ShareTimeout:    20 * time.Second,
		SwitchTimeout:   time.Minute,
		AbortCooldown:   15 * time.Second,
	}
}

// Recorder receives lifecycle events for the history log. A nil Recorder
// disables recording.
type Recorder interface {
	Record(ctx context.Context, sessionID, event, phase, detail string)
}

// Controller drives the phase state machine for one session. Every phase
// body races against the abort token; abort wins jump to the notice,
// cooldown and restart path.
type Controller struct {
	ID      string
	session *Session
	cfg     Config
	logger  *slog.Logger
	rec     Recorder
	rng     *rand.Rand

	mu          sync.Mutex
	phase       Phase
	abort       *async.Token[struct{}]
	sessionSubs []*bus.Subscription
}

func NewController(id string, session *Session, cfg Config, logger *slog.Logger, rec Recorder) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		ID:      id,
		session: session,
		cfg:     cfg,
		logger:  logger.With(slog.String("session", id)),
		rec:     rec,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		phase:   PhaseStarting,
		abort:   async.NewToken[struct{}](),
	}
}

// Phase returns the current phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

func (c *Controller) setPhase(p Phase) {
	c.mu.Lock()
	c.phase = p
	c.mu.Unlock()
	telemetry.Metrics.PhaseTransitions.WithLabelValues(string(p)).Inc()
	c.logger.Info("phase entered", slog.String("phase", string(p)))
	c.record(context.Background(), "phase", string(p), "")
}

// Abort raises the process-wide abort signal. The first caller wins; the
// reason reaches every player via the abort notice.
func (c *Controller) Abort(reason, trigger string) {
	c.mu.Lock()
	tok := c.abort
	c.mu.Unlock()
	if tok.Reject(&AbortError{Reason: reason}) {
		telemetry.Metrics.AbortsTotal.WithLabelValues(trigger).Inc()
	}
}

func (c *Controller) abortToken() *async.Token[struct{}] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.abort
}

// Run plays games forever: a finished game loops back to Starting, an
// aborted or failed one restarts after the cooldown. Only context
// cancellation returns.
func (c *Controller) Run(ctx context.Context) error {
	telemetry.Metrics.ActiveSessions.Inc()
	defer telemetry.Metrics.ActiveSessions.Dec()

	for {
		err := c.playOnce(ctx)
		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		var abortErr *AbortError
		if !errors.As(err, &abortErr) {
			// Phase failures that are not aborts are invariant
			// violations; they take the same recovery path.
			abortErr = &AbortError{Reason: err.Error()}
			telemetry.Metrics.AbortsTotal.WithLabelValues("invariant").Inc()
		}

		c.setPhase(PhaseAborting)
		c.record(ctx, "abort", string(PhaseAborting), abortErr.Reason)
		c.logger.Warn("game aborted", slog.String("reason", abortErr.Reason))

		notice := fmt.Sprintf("**Game Aborted**. Reason: %s\nResetting game in %s...",
			abortErr.Reason, c.cfg.AbortCooldown)
		if _, err := c.session.Adapter.SendMessage(ctx, ChannelAdmin, notice); err != nil {
			c.logger.Warn("abort notice failed", "err", err)
		}

		select {
		case <-time.After(c.cfg.AbortCooldown):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Controller) playOnce(ctx context.Context) error {
	if err := c.setup(ctx); err != nil {
		return err
	}
	defer c.teardown()

	if err := c.runPhase(ctx, PhaseStarting, c.startingPhase); err != nil {
		return err
	}
	if err := c.runPhase(ctx, PhaseNominating, c.nominatingPhase); err != nil {
		return err
	}
	for round := 1; round <= c.cfg.SharingRounds; round++ {
		if err := c.runPhase(ctx, PhaseSharing, c.sharingPhase); err != nil {
			return err
		}
		if err := c.runPhase(ctx, PhaseSwitching, c.switchingPhase); err != nil {
			return err
		}
	}
	return c.runPhase(ctx, PhaseEnding, c.endingPhase)
}

// runPhase races the phase body against the abort token. If abort
// settles first the body's goroutine is abandoned mid-flight: its side
// effects so far stand, its context is cancelled, and nothing is rolled
// back.
func (c *Controller) runPhase(ctx context.Context, name Phase, body func(context.Context) error) error {
	c.setPhase(name)

	phaseCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	phaseCtx, span := telemetry.StartSpan(phaseCtx, "game.phase",
		attribute.String("phase", string(name)),
		attribute.String("session", c.ID),
	)
	defer span.End()

	done := make(chan error, 1)
	go func() { done <- body(phaseCtx) }()

	select {
	case err := <-done:
		return err
	case <-c.abortToken().Done():
		_, err := c.abortToken().Result()
		if err == nil {
			err = &AbortError{Reason: "unknown"}
		}
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// setup resets state, re-arms the abort token, cleans the platform
// surface and registers the session-scoped subscriptions: the abort
// command and the join/leave tracking.
func (c *Controller) setup(ctx context.Context) error {
	c.teardown()
	c.session.Reset()

	c.mu.Lock()
	c.abort = async.NewToken[struct{}]()
	c.phase = PhaseStarting
	c.mu.Unlock()

	s := c.session
	if err := s.Adapter.Init(ctx); err != nil {
		return fmt.Errorf("game: preparing platform: %w", err)
	}
	if err := s.Adapter.CreateChannel(ctx, ChannelAdmin, platform.ChannelText, platform.VisibilityPublic); err != nil {
		return fmt.Errorf("game: creating admin channel: %w", err)
	}
	if err := s.Adapter.CreateChannel(ctx, ChannelLobby, platform.ChannelVoice, platform.VisibilityPublic); err != nil {
		return fmt.Errorf("game: creating lobby channel: %w", err)
	}

	abortSub, err := s.Bus.Subscribe(bus.Message(ChannelAdmin), func(payload any) {
		msg, ok := payload.(platform.MessageEvent)
		if !ok || !equalsFold(msg.Content, "abort") {
			return
		}
		c.Abort(msg.Author.Name+" has manually aborted the game.", "command")
	})
	if err != nil {
		return err
	}

	connectSub, err := s.Bus.Subscribe(bus.Topic{Kind: bus.KindConnect, Sub: bus.Wildcard}, func(payload any) {
		ev, ok := payload.(platform.VoiceEvent)
		if !ok {
			return
		}
		if c.Phase() == PhaseStarting {
			s.AddPlayer(ev.Participant)
		}
	})
	if err != nil {
		return err
	}

	disconnectSub, err := s.Bus.Subscribe(bus.Topic{Kind: bus.KindDisconnect, Sub: bus.Wildcard}, func(payload any) {
		ev, ok := payload.(platform.VoiceEvent)
		if !ok {
			return
		}
		if c.Phase() == PhaseStarting {
			s.RemovePlayer(ev.Participant.ID)
			return
		}
		if s.HasPlayer(ev.Participant.ID) {
			c.Abort(ev.Participant.Name+" abandoned the game.", "disconnect")
		}
	})
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.sessionSubs = []*bus.Subscription{abortSub, connectSub, disconnectSub}
	c.mu.Unlock()

	c.record(ctx, "session_start", string(PhaseStarting), "")
	return nil
}

func (c *Controller) teardown() {
	c.mu.Lock()
	subs := c.sessionSubs
	c.sessionSubs = nil
	c.mu.Unlock()
	for _, sub := range subs {
		sub.Cancel()
	}
}

func (c *Controller) record(ctx context.Context, event, phase, detail string) {
	if c.rec == nil {
		return
	}
	c.rec.Record(ctx, c.ID, event, phase, detail)
}
