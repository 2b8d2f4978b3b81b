// Package platform defines the contract the game core consumes from a
// chat platform. The core addresses channels by name and participants by
// stable ID; raw platform handles never leak past the adapter.
package platform

import (
	"context"
	"errors"
)

var (
	// ErrChannelExists is returned when creating a channel whose name is
	// already managed by the session.
	ErrChannelExists = errors.New("platform: channel already exists")
	// ErrUnknownChannel is returned for operations on a channel name the
	// session does not manage.
	ErrUnknownChannel = errors.New("platform: unknown channel")
)

// Participant identifies a player by platform member ID plus a display
// name. Comparisons always use ID, never object identity.
type Participant struct {
	ID   string
	Name string
}

type ChannelKind string

const (
	ChannelText  ChannelKind = "text"
	ChannelVoice ChannelKind = "voice"
)

type Visibility string

const (
	VisibilityPublic Visibility = "public"
	VisibilitySecret Visibility = "secret"
)

// MessageRef addresses a sent message for later edit or delete.
type MessageRef struct {
	Channel   string
	MessageID string
}

// Option is one selectable control on a rendered prompt. ResponseID is
// unique per invocation so concurrent prompts sharing labels cannot
// collide.
type Option struct {
	Label      string
	ResponseID string
}

// MessageEvent is published on the bus as kind "message" with the channel
// name as subtopic.
type MessageEvent struct {
	Channel   string
	Author    Participant
	Content   string
	MessageID string
}

// VoiceEvent is published as kind "connect"/"disconnect" with the channel
// name as subtopic.
type VoiceEvent struct {
	Channel     string
	Participant Participant
}

// SelectionEvent is published as kind "select" with the response ID as
// subtopic when a participant picks a rendered option.
type SelectionEvent struct {
	ResponseID  string
	Participant Participant
}

// Adapter is the platform surface the session drives. Implementations
// forward inbound platform events onto the session's EventBus using the
// producer-side fan-out convention (wildcard topic, then exact).
type Adapter interface {
	// Init prepares the platform surface for a fresh session, removing
	// any channels left over from a previous run.
	Init(ctx context.Context) error

	CreateChannel(ctx context.Context, name string, kind ChannelKind, vis Visibility) error
	RemoveChannel(ctx context.Context, name string) error

	SendMessage(ctx context.Context, channel, text string) (MessageRef, error)
	EditMessage(ctx context.Context, ref MessageRef, text string) error
	DeleteMessage(ctx context.Context, ref MessageRef) error

	// RenderOptions presents query with one selectable control per
	// option. Selections surface as SelectionEvents on the bus.
	RenderOptions(ctx context.Context, channel, query string, options []Option) (MessageRef, error)

	// MoveParticipant moves p into the named managed voice channel. The
	// participant must currently occupy some managed voice channel.
	MoveParticipant(ctx context.Context, p Participant, channel string) error

	SetChannelVisibility(ctx context.Context, channel string, p Participant, visible bool) error
	SetChannelLocked(ctx context.Context, channel string, locked bool) error

	ListParticipants(ctx context.Context, channel string) ([]Participant, error)
}
