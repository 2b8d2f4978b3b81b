// Package discord binds the platform contract to a Discord guild via
// discordgo. One Adapter manages one guild; all adapters share the bot's
// gateway session.
package discord

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/knyzorg/discord-game-manager/pkg/bus"
	"github.com/knyzorg/discord-game-manager/pkg/platform"
	"github.com/knyzorg/discord-game-manager/pkg/telemetry"
)

const customIDPrefix = "opt:"

type Adapter struct {
	dg       *discordgo.Session
	guildID  string
	prefix   string
	bus      *bus.EventBus
	channels *channelRegistry
	logger   *slog.Logger
	removers []func()
}

// New builds an adapter for one guild. Channel names are prefixed on the
// Discord side (e.g. "boom-admin") so stale channels from a crashed run
// can be found and removed by Init.
func New(dg *discordgo.Session, guildID, prefix string, b *bus.EventBus, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Adapter{
		dg:       dg,
		guildID:  guildID,
		prefix:   prefix,
		bus:      b,
		channels: newChannelRegistry(),
		logger:   logger,
	}
	a.removers = append(a.removers,
		dg.AddHandler(a.handleMessage),
		dg.AddHandler(a.handleInteraction),
		dg.AddHandler(a.handleVoiceState),
	)
	return a
}

// Close detaches the adapter's gateway handlers.
func (a *Adapter) Close() {
	for _, remove := range a.removers {
		remove()
	}
	a.removers = nil
}

// Init deletes every guild channel carrying the managed prefix and
// clears the registry, giving the next session a clean slate.
func (a *Adapter) Init(ctx context.Context) error {
	existing, err := a.dg.GuildChannels(a.guildID)
	if err != nil {
		telemetry.Metrics.AdapterErrors.WithLabelValues("init").Inc()
		return fmt.Errorf("discord: listing guild channels: %w", err)
	}

	for _, ch := range existing {
		if !strings.HasPrefix(ch.Name, a.prefix) {
			continue
		}
		if _, err := a.dg.ChannelDelete(ch.ID); err != nil {
			telemetry.Metrics.AdapterErrors.WithLabelValues("init").Inc()
			return fmt.Errorf("discord: deleting stale channel %q: %w", ch.Name, err)
		}
		a.logger.Debug("removed stale channel", slog.String("channel", ch.Name))
	}

	a.channels.reset()
	return nil
}

func (a *Adapter) CreateChannel(ctx context.Context, name string, kind platform.ChannelKind, vis platform.Visibility) error {
	if _, ok := a.channels.lookup(name); ok {
		return fmt.Errorf("discord: creating %q: %w", name, platform.ErrChannelExists)
	}

	chType := discordgo.ChannelTypeGuildText
	if kind == platform.ChannelVoice {
		chType = discordgo.ChannelTypeGuildVoice
	}

	data := discordgo.GuildChannelCreateData{
		Name: a.prefix + name,
		Type: chType,
	}
	if vis == platform.VisibilitySecret {
		// The @everyone role shares the guild's ID.
		data.PermissionOverwrites = []*discordgo.PermissionOverwrite{{
			ID:   a.guildID,
			Type: discordgo.PermissionOverwriteTypeRole,
			Deny: discordgo.PermissionViewChannel,
		}}
	}

	ch, err := a.dg.GuildChannelCreateComplex(a.guildID, data)
	if err != nil {
		telemetry.Metrics.AdapterErrors.WithLabelValues("create_channel").Inc()
		return fmt.Errorf("discord: creating channel %q: %w", name, err)
	}

	if !a.channels.add(name, managedChannel{ID: ch.ID, Kind: kind}) {
		// Lost a create race for the same name; drop ours.
		a.dg.ChannelDelete(ch.ID)
		return fmt.Errorf("discord: creating %q: %w", name, platform.ErrChannelExists)
	}

	a.logger.Info("channel created",
		slog.String("channel", name),
		slog.String("kind", string(kind)),
		slog.String("visibility", string(vis)),
	)
	return nil
}

func (a *Adapter) RemoveChannel(ctx context.Context, name string) error {
	ch, ok := a.channels.remove(name)
	if !ok {
		return fmt.Errorf("discord: removing %q: %w", name, platform.ErrUnknownChannel)
	}
	if _, err := a.dg.ChannelDelete(ch.ID); err != nil {
		telemetry.Metrics.AdapterErrors.WithLabelValues("remove_channel").Inc()
		return fmt.Errorf("discord: removing channel %q: %w", name, err)
	}
	return nil
}

func (a *Adapter) SendMessage(ctx context.Context, channel, text string) (platform.MessageRef, error) {
	ch, ok := a.channels.lookup(channel)
	if !ok {
		return platform.MessageRef{}, fmt.Errorf("discord: sending to %q: %w", channel, platform.ErrUnknownChannel)
	}
	msg, err := a.dg.ChannelMessageSend(ch.ID, text)
	if err != nil {
		telemetry.Metrics.AdapterErrors.WithLabelValues("send_message").Inc()
		return platform.MessageRef{}, fmt.Errorf("discord: sending message to %q: %w", channel, err)
	}
	return platform.MessageRef{Channel: channel, MessageID: msg.ID}, nil
}

func (a *Adapter) EditMessage(ctx context.Context, ref platform.MessageRef, text string) error {
	ch, ok := a.channels.lookup(ref.Channel)
	if !ok {
		return fmt.Errorf("discord: editing in %q: %w", ref.Channel, platform.ErrUnknownChannel)
	}
	if _, err := a.dg.ChannelMessageEdit(ch.ID, ref.MessageID, text); err != nil {
		telemetry.Metrics.AdapterErrors.WithLabelValues("edit_message").Inc()
		return fmt.Errorf("discord: editing message in %q: %w", ref.Channel, err)
	}
	return nil
}

func (a *Adapter) DeleteMessage(ctx context.Context, ref platform.MessageRef) error {
	ch, ok := a.channels.lookup(ref.Channel)
	if !ok {
		return fmt.Errorf("discord: deleting in %q: %w", ref.Channel, platform.ErrUnknownChannel)
	}
	if err := a.dg.ChannelMessageDelete(ch.ID, ref.MessageID); err != nil {
		telemetry.Metrics.AdapterErrors.WithLabelValues("delete_message").Inc()
		return fmt.Errorf("discord: deleting message in %q: %w", ref.Channel, err)
	}
	return nil
}

func (a *Adapter) RenderOptions(ctx context.Context, channel, query string, options []platform.Option) (platform.MessageRef, error) {
	ch, ok := a.channels.lookup(channel)
	if !ok {
		return platform.MessageRef{}, fmt.Errorf("discord: rendering in %q: %w", channel, platform.ErrUnknownChannel)
	}

	// Discord caps action rows at five buttons.
	var rows []discordgo.MessageComponent
	for start := 0; start < len(options); start += 5 {
		end := start + 5
		if end > len(options) {
			end = len(options)
		}
		var buttons []discordgo.MessageComponent
		for _, opt := range options[start:end] {
			buttons = append(buttons, discordgo.Button{
				Label:    opt.Label,
				Style:    discordgo.PrimaryButton,
				CustomID: customIDPrefix + opt.ResponseID,
			})
		}
		rows = append(rows, discordgo.ActionsRow{Components: buttons})
	}

	msg, err := a.dg.ChannelMessageSendComplex(ch.ID, &discordgo.MessageSend{
		Content:    query,
		Components: rows,
	})
	if err != nil {
		telemetry.Metrics.AdapterErrors.WithLabelValues("render_options").Inc()
		return platform.MessageRef{}, fmt.Errorf("discord: rendering options in %q: %w", channel, err)
	}
	return platform.MessageRef{Channel: channel, MessageID: msg.ID}, nil
}

func (a *Adapter) MoveParticipant(ctx context.Context, p platform.Participant, channel string) error {
	ch, ok := a.channels.lookup(channel)
	if !ok || ch.Kind != platform.ChannelVoice {
		return fmt.Errorf("discord: moving %s to %q: %w", p.Name, channel, platform.ErrUnknownChannel)
	}
	if err := a.dg.GuildMemberMove(a.guildID, p.ID, &ch.ID); err != nil {
		telemetry.Metrics.AdapterErrors.WithLabelValues("move_participant").Inc()
		return fmt.Errorf("discord: moving %s to %q: %w", p.Name, channel, err)
	}
	return nil
}

func (a *Adapter) SetChannelVisibility(ctx context.Context, channel string, p platform.Participant, visible bool) error {
	ch, ok := a.channels.lookup(channel)
	if !ok {
		return fmt.Errorf("discord: visibility of %q: %w", channel, platform.ErrUnknownChannel)
	}

	var allow, deny int64
	if visible {
		allow = discordgo.PermissionViewChannel
	} else {
		deny = discordgo.PermissionViewChannel
	}
	if err := a.dg.ChannelPermissionSet(ch.ID, p.ID, discordgo.PermissionOverwriteTypeMember, allow, deny); err != nil {
		telemetry.Metrics.AdapterErrors.WithLabelValues("set_visibility").Inc()
		return fmt.Errorf("discord: setting visibility of %q for %s: %w", channel, p.Name, err)
	}
	return nil
}

func (a *Adapter) SetChannelLocked(ctx context.Context, channel string, locked bool) error {
	ch, ok := a.channels.lookup(channel)
	if !ok {
		return fmt.Errorf("discord: locking %q: %w", channel, platform.ErrUnknownChannel)
	}

	var allow, deny int64
	perms := int64(discordgo.PermissionSendMessages | discordgo.PermissionVoiceConnect)
	if locked {
		deny = perms
	} else {
		allow = perms
	}
	if err := a.dg.ChannelPermissionSet(ch.ID, a.guildID, discordgo.PermissionOverwriteTypeRole, allow, deny); err != nil {
		telemetry.Metrics.AdapterErrors.WithLabelValues("set_locked").Inc()
		return fmt.Errorf("discord: locking %q: %w", channel, err)
	}
	return nil
}

func (a *Adapter) ListParticipants(ctx context.Context, channel string) ([]platform.Participant, error) {
	ch, ok := a.channels.lookup(channel)
	if !ok {
		return nil, fmt.Errorf("discord: listing %q: %w", channel, platform.ErrUnknownChannel)
	}

	guild, err := a.dg.State.Guild(a.guildID)
	if err != nil {
		return nil, fmt.Errorf("discord: reading guild state: %w", err)
	}

	var out []platform.Participant
	for _, vs := range guild.VoiceStates {
		if vs.ChannelID != ch.ID {
			continue
		}
		out = append(out, a.participant(vs.UserID, vs.Member))
	}
	return out, nil
}

func (a *Adapter) participant(userID string, member *discordgo.Member) platform.Participant {
	if member == nil {
		member, _ = a.dg.State.Member(a.guildID, userID)
	}
	name := userID
	if member != nil {
		if member.User != nil {
			name = member.User.Username
		}
		if member.Nick != "" {
			name = member.Nick
		}
	}
	return platform.Participant{ID: userID, Name: name}
}

func (a *Adapter) handleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.GuildID != a.guildID || m.Author.ID == s.State.User.ID {
		return
	}
	name, ok := a.channels.nameOf(m.ChannelID)
	if !ok {
		return
	}

	a.logger.Debug("message received",
		slog.String("channel", name),
		slog.String("author", m.Author.Username),
	)

	a.bus.Fanout(bus.KindMessage, name, platform.MessageEvent{
		Channel:   name,
		Author:    a.participant(m.Author.ID, m.Member),
		Content:   m.Content,
		MessageID: m.ID,
	})
}

func (a *Adapter) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.GuildID != a.guildID || i.Type != discordgo.InteractionMessageComponent {
		return
	}
	customID := i.MessageComponentData().CustomID
	if !strings.HasPrefix(customID, customIDPrefix) {
		return
	}
	responseID := strings.TrimPrefix(customID, customIDPrefix)

	// Acknowledge without changing the message; the prompt engine owns
	// the visible state change.
	_ = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	})

	userID := ""
	var member *discordgo.Member
	if i.Member != nil && i.Member.User != nil {
		userID = i.Member.User.ID
		member = i.Member
	} else if i.User != nil {
		userID = i.User.ID
	}

	a.bus.Fanout(bus.KindSelect, responseID, platform.SelectionEvent{
		ResponseID:  responseID,
		Participant: a.participant(userID, member),
	})
}

func (a *Adapter) handleVoiceState(s *discordgo.Session, v *discordgo.VoiceStateUpdate) {
	if v.GuildID != a.guildID {
		return
	}

	var beforeID string
	if v.BeforeUpdate != nil {
		beforeID = v.BeforeUpdate.ChannelID
	}
	if v.ChannelID == beforeID {
		return
	}

	p := a.participant(v.UserID, v.Member)

	newName, newManaged := a.channels.nameOf(v.ChannelID)
	oldName, oldManaged := a.channels.nameOf(beforeID)

	if newManaged {
		a.bus.Fanout(bus.KindConnect, newName, platform.VoiceEvent{Channel: newName, Participant: p})
	}
	// A hop between two managed rooms is not a disconnect.
	if oldManaged && !newManaged {
		a.bus.Fanout(bus.KindDisconnect, oldName, platform.VoiceEvent{Channel: oldName, Participant: p})
	}
}
