package game

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/knyzorg/discord-game-manager/pkg/async"
	"github.com/knyzorg/discord-game-manager/pkg/bus"
	"github.com/knyzorg/discord-game-manager/pkg/platform"
	"github.com/knyzorg/discord-game-manager/pkg/telemetry"
)

// NoReply is the sentinel answer of a prompt that was cancelled or
// deleted without a value.
const NoReply = ""

// Prompt is one interactive multi-choice exchange: a rendered message
// with one selectable control per option, settled by the first matching
// selection, by Cancel, or by Delete. Whichever settles first owns the
// visible state change; everything after is a no-op.
type Prompt struct {
	session *Session
	ctx     context.Context
	query   string
	answer  *async.Token[string]
	subs    []*bus.Subscription
	ref     platform.MessageRef
}

// Prompt renders query with the given options in channel and starts
// listening for selections. Each option gets a fresh response ID, so
// concurrent prompts sharing labels cannot cross-talk. A platform send
// failure is returned as-is; nothing is retried here.
func (s *Session) Prompt(ctx context.Context, channel, query string, options []string) (*Prompt, error) {
	if len(options) == 0 {
		return nil, fmt.Errorf("game: prompt in %q needs at least one option", channel)
	}

	p := &Prompt{
		session: s,
		ctx:     ctx,
		query:   query,
		answer:  async.NewToken[string](),
	}

	rendered := make([]platform.Option, 0, len(options))
	for _, label := range options {
		opt := platform.Option{Label: label, ResponseID: uuid.NewString()}
		rendered = append(rendered, opt)

		value := label
		sub, err := s.Bus.Subscribe(bus.Select(opt.ResponseID), func(payload any) {
			if _, ok := payload.(platform.SelectionEvent); !ok {
				return
			}
			p.settle(value, "selected", false)
		})
		if err != nil {
			p.detach()
			return nil, err
		}
		p.subs = append(p.subs, sub)
	}

	ref, err := s.Adapter.RenderOptions(ctx, channel, query, rendered)
	if err != nil {
		p.detach()
		return nil, err
	}
	p.ref = ref

	telemetry.Metrics.PromptsOpened.Inc()
	return p, nil
}

// Answer blocks until the prompt settles or ctx is cancelled. It can be
// called any number of times; after settlement it returns immediately.
func (p *Prompt) Answer(ctx context.Context) (string, error) {
	return p.answer.Await(ctx)
}

// Cancel settles the prompt with value without waiting for a selection.
// An empty value reads as NoReply. No-op once settled.
func (p *Prompt) Cancel(value string) {
	p.settle(value, "cancelled", false)
}

// Delete settles the prompt with NoReply and removes the rendered
// message. No-op once settled.
func (p *Prompt) Delete() {
	p.settle(NoReply, "deleted", true)
}

// ExpireAfter schedules a Cancel(value) after d. The returned stop func
// drops the timer; letting it fire on an already-settled prompt is
// harmless.
func (p *Prompt) ExpireAfter(d time.Duration, value string) (stop func() bool) {
	t := time.AfterFunc(d, func() { p.Cancel(value) })
	return t.Stop
}

func (p *Prompt) settle(value, outcome string, remove bool) {
	if !p.answer.Resolve(value) {
		return
	}
	p.detach()
	telemetry.Metrics.PromptsSettled.WithLabelValues(outcome).Inc()

	if remove {
		if err := p.session.Adapter.DeleteMessage(p.ctx, p.ref); err != nil {
			p.session.logger.Warn("prompt: deleting message failed", "err", err)
		}
		return
	}

	shown := value
	if shown == NoReply {
		shown = "No reply"
	}
	text := fmt.Sprintf("%s\n**%s**", p.query, shown)
	if err := p.session.Adapter.EditMessage(p.ctx, p.ref, text); err != nil {
		p.session.logger.Warn("prompt: updating message failed", "err", err)
	}
}

func (p *Prompt) detach() {
	for _, sub := range p.subs {
		sub.Cancel()
	}
}
