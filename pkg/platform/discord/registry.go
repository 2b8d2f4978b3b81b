package discord

import (
	"sync"

	"github.com/knyzorg/discord-game-manager/pkg/platform"
)

type managedChannel struct {
	ID   string
	Kind platform.ChannelKind
}

// channelRegistry maps logical channel names to Discord channel IDs and
// back. The game core only ever sees names.
type channelRegistry struct {
	mu     sync.RWMutex
	byName map[string]managedChannel
	byID   map[string]string
}

func newChannelRegistry() *channelRegistry {
	return &channelRegistry{
		byName: make(map[string]managedChannel),
		byID:   make(map[string]string),
	}
}

func (r *channelRegistry) add(name string, ch managedChannel) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[name]; ok {
		return false
	}
	r.byName[name] = ch
	r.byID[ch.ID] = name
	return true
}

func (r *channelRegistry) remove(name string) (managedChannel, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.byName[name]
	if !ok {
		return managedChannel{}, false
	}
	delete(r.byName, name)
	delete(r.byID, ch.ID)
	return ch, true
}

func (r *channelRegistry) lookup(name string) (managedChannel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ch, ok := r.byName[name]
	return ch, ok
}

func (r *channelRegistry) nameOf(channelID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.byID[channelID]
	return name, ok
}

func (r *channelRegistry) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byName = make(map[string]managedChannel)
	r.byID = make(map[string]string)
}
