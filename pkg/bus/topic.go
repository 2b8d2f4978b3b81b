package bus

import (
	"fmt"
	"strings"
)

// Kind is the closed set of event categories the bus carries. Anything
// else is rejected at subscribe/publish time.
type Kind string

const (
	// KindMessage is a chat message; subtopic is the channel name.
	KindMessage Kind = "message"
	// KindConnect is a participant entering a managed voice channel;
	// subtopic is the channel name.
	KindConnect Kind = "connect"
	// KindDisconnect is a participant leaving a managed voice channel;
	// subtopic is the channel name.
	KindDisconnect Kind = "disconnect"
	// KindSelect is an option selection on a rendered prompt; subtopic is
	// the per-invocation response identifier.
	KindSelect Kind = "select"
)

// Wildcard as a subtopic matches the producer-side fan-out topic
// ("message:*"), not every subtopic: the bus itself never expands it.
const Wildcard = "*"

// Topic identifies an event stream: a kind plus an optional subtopic.
// The zero subtopic means the bare, unqualified kind.
type Topic struct {
	Kind Kind
	Sub  string
}

func (t Topic) String() string {
	if t.Sub == "" {
		return string(t.Kind)
	}
	return string(t.Kind) + ":" + t.Sub
}

// Validate reports whether the topic uses a known kind and a well-formed
// subtopic. Subtopics may not themselves contain a separator.
func (t Topic) Validate() error {
	switch t.Kind {
	case KindMessage, KindConnect, KindDisconnect, KindSelect:
	default:
		return fmt.Errorf("bus: unknown event kind %q", t.Kind)
	}
	if strings.Contains(t.Sub, ":") {
		return fmt.Errorf("bus: malformed subtopic %q", t.Sub)
	}
	return nil
}

// Parse converts a "kind" or "kind:subtopic" string into a Topic.
func Parse(s string) (Topic, error) {
	kind, sub, _ := strings.Cut(s, ":")
	if kind == "" {
		return Topic{}, fmt.Errorf("bus: empty topic %q", s)
	}
	t := Topic{Kind: Kind(kind), Sub: sub}
	if err := t.Validate(); err != nil {
		return Topic{}, err
	}
	return t, nil
}

// Message returns the topic for chat messages in the named channel.
func Message(channel string) Topic { return Topic{Kind: KindMessage, Sub: channel} }

// Connect returns the topic for joins into the named voice channel.
func Connect(channel string) Topic { return Topic{Kind: KindConnect, Sub: channel} }

// Disconnect returns the topic for leaves from the named voice channel.
func Disconnect(channel string) Topic { return Topic{Kind: KindDisconnect, Sub: channel} }

// Select returns the topic for selections carrying the given response ID.
func Select(responseID string) Topic { return Topic{Kind: KindSelect, Sub: responseID} }
