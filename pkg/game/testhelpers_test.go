package game

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/knyzorg/discord-game-manager/pkg/bus"
	"github.com/knyzorg/discord-game-manager/pkg/platform"
)

// fakeAdapter is an in-memory platform used by the game tests. Inbound
// events are driven through the same bus fan-out convention the real
// adapter uses.
type fakeAdapter struct {
	bus *bus.EventBus

	mu       sync.Mutex
	channels map[string]fakeChannel
	messages map[string]*fakeMessage
	renders  []*fakeRender
	voice    map[string]string
	people   map[string]platform.Participant
	joined   []string
	nextID   int
}

type fakeChannel struct {
	kind   platform.ChannelKind
	vis    platform.Visibility
	locked bool
}

type fakeMessage struct {
	channel string
	text    string
	deleted bool
}

type fakeRender struct {
	channel string
	query   string
	options []platform.Option
	ref     platform.MessageRef
}

func newFakeAdapter(b *bus.EventBus) *fakeAdapter {
	return &fakeAdapter{
		bus:      b,
		channels: make(map[string]fakeChannel),
		messages: make(map[string]*fakeMessage),
		voice:    make(map[string]string),
		people:   make(map[string]platform.Participant),
	}
}

func (f *fakeAdapter) Init(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.channels = make(map[string]fakeChannel)
	f.voice = make(map[string]string)
	return nil
}

func (f *fakeAdapter) CreateChannel(ctx context.Context, name string, kind platform.ChannelKind, vis platform.Visibility) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.channels[name]; ok {
		return fmt.Errorf("fake: creating %q: %w", name, platform.ErrChannelExists)
	}
	f.channels[name] = fakeChannel{kind: kind, vis: vis}
	return nil
}

func (f *fakeAdapter) RemoveChannel(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.channels[name]; !ok {
		return fmt.Errorf("fake: removing %q: %w", name, platform.ErrUnknownChannel)
	}
	delete(f.channels, name)
	return nil
}

func (f *fakeAdapter) SendMessage(ctx context.Context, channel, text string) (platform.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.channels[channel]; !ok {
		return platform.MessageRef{}, fmt.Errorf("fake: sending to %q: %w", channel, platform.ErrUnknownChannel)
	}
	f.nextID++
	id := fmt.Sprintf("msg-%d", f.nextID)
	f.messages[id] = &fakeMessage{channel: channel, text: text}
	return platform.MessageRef{Channel: channel, MessageID: id}, nil
}

func (f *fakeAdapter) EditMessage(ctx context.Context, ref platform.MessageRef, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg, ok := f.messages[ref.MessageID]
	if !ok || msg.deleted {
		return fmt.Errorf("fake: editing unknown message %s", ref.MessageID)
	}
	msg.text = text
	return nil
}

func (f *fakeAdapter) DeleteMessage(ctx context.Context, ref platform.MessageRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg, ok := f.messages[ref.MessageID]
	if !ok || msg.deleted {
		return fmt.Errorf("fake: deleting unknown message %s", ref.MessageID)
	}
	msg.deleted = true
	return nil
}

func (f *fakeAdapter) RenderOptions(ctx context.Context, channel, query string, options []platform.Option) (platform.MessageRef, error) {
	ref, err := f.SendMessage(ctx, channel, query)
	if err != nil {
		return platform.MessageRef{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	opts := make([]platform.Option, len(options))
	copy(opts, options)
	f.renders = append(f.renders, &fakeRender{
		channel: channel,
		query:   query,
		options: opts,
		ref:     ref,
	})
	return ref, nil
}

func (f *fakeAdapter) MoveParticipant(ctx context.Context, p platform.Participant, channel string) error {
	f.mu.Lock()
	ch, ok := f.channels[channel]
	if !ok || ch.kind != platform.ChannelVoice {
		f.mu.Unlock()
		return fmt.Errorf("fake: moving to %q: %w", channel, platform.ErrUnknownChannel)
	}
	f.voice[p.ID] = channel
	f.track(p)
	f.mu.Unlock()

	// Moves between managed rooms surface as a connect only, matching
	// the real adapter.
	f.bus.Fanout(bus.KindConnect, channel, platform.VoiceEvent{Channel: channel, Participant: p})
	return nil
}

func (f *fakeAdapter) SetChannelVisibility(ctx context.Context, channel string, p platform.Participant, visible bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.channels[channel]; !ok {
		return fmt.Errorf("fake: visibility of %q: %w", channel, platform.ErrUnknownChannel)
	}
	return nil
}

func (f *fakeAdapter) SetChannelLocked(ctx context.Context, channel string, locked bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.channels[channel]
	if !ok {
		return fmt.Errorf("fake: locking %q: %w", channel, platform.ErrUnknownChannel)
	}
	ch.locked = locked
	f.channels[channel] = ch
	return nil
}

func (f *fakeAdapter) ListParticipants(ctx context.Context, channel string) ([]platform.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.channels[channel]; !ok {
		return nil, fmt.Errorf("fake: listing %q: %w", channel, platform.ErrUnknownChannel)
	}
	// Listed in first-seen order so tests are deterministic.
	var out []platform.Participant
	for _, id := range f.joined {
		if f.voice[id] == channel {
			out = append(out, f.people[id])
		}
	}
	return out, nil
}

// track records p under the lock, preserving first-seen order.
func (f *fakeAdapter) track(p platform.Participant) {
	if _, ok := f.people[p.ID]; !ok {
		f.joined = append(f.joined, p.ID)
	}
	f.people[p.ID] = p
}

// Test drivers below simulate inbound platform activity.

func (f *fakeAdapter) joinVoice(p platform.Participant, channel string) {
	f.mu.Lock()
	f.voice[p.ID] = channel
	f.track(p)
	f.mu.Unlock()
	f.bus.Fanout(bus.KindConnect, channel, platform.VoiceEvent{Channel: channel, Participant: p})
}

func (f *fakeAdapter) leaveVoice(p platform.Participant) {
	f.mu.Lock()
	channel := f.voice[p.ID]
	delete(f.voice, p.ID)
	f.mu.Unlock()
	f.bus.Fanout(bus.KindDisconnect, channel, platform.VoiceEvent{Channel: channel, Participant: p})
}

func (f *fakeAdapter) say(author platform.Participant, channel, content string) {
	f.bus.Fanout(bus.KindMessage, channel, platform.MessageEvent{
		Channel: channel,
		Author:  author,
		Content: content,
	})
}

// selectOption simulates author clicking the option with the given label
// on the most recent matching render in channel.
func (f *fakeAdapter) selectOption(author platform.Participant, channel, queryContains, label string) bool {
	f.mu.Lock()
	var target platform.Option
	found := false
	for i := len(f.renders) - 1; i >= 0; i-- {
		r := f.renders[i]
		if r.channel != channel || !strings.Contains(r.query, queryContains) {
			continue
		}
		for _, opt := range r.options {
			if opt.Label == label {
				target = opt
				found = true
				break
			}
		}
		if found {
			break
		}
	}
	f.mu.Unlock()

	if !found {
		return false
	}
	f.bus.Fanout(bus.KindSelect, target.ResponseID, platform.SelectionEvent{
		ResponseID:  target.ResponseID,
		Participant: author,
	})
	return true
}

func (f *fakeAdapter) hasChannel(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.channels[name]
	return ok
}

func (f *fakeAdapter) voiceChannelOf(playerID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.voice[playerID]
}

// messageIn reports whether any live message in channel contains substr.
func (f *fakeAdapter) messageIn(channel, substr string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, msg := range f.messages {
		if msg.channel == channel && !msg.deleted && strings.Contains(msg.text, substr) {
			return true
		}
	}
	return false
}

// renderIn reports whether a render in channel matches queryContains.
func (f *fakeAdapter) renderIn(channel, queryContains string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.renders {
		if r.channel == channel && strings.Contains(r.query, queryContains) {
			return true
		}
	}
	return false
}

func (f *fakeAdapter) messageText(ref platform.MessageRef) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg, ok := f.messages[ref.MessageID]
	if !ok || msg.deleted {
		return "", false
	}
	return msg.text, true
}

func newTestSession(t *testing.T) (*Session, *fakeAdapter) {
	t.Helper()
	b := bus.New(nil)
	fake := newFakeAdapter(b)
	return NewSession(fake, b, nil), fake
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
