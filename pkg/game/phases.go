package game

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/knyzorg/discord-game-manager/pkg/async"
	"github.com/knyzorg/discord-game-manager/pkg/bus"
	"github.com/knyzorg/discord-game-manager/pkg/platform"
)

func equalsFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), b)
}

// privateChannelName derives a player's private channel name. The ID
// suffix keeps channels distinct when display names collide.
func privateChannelName(p platform.Participant) string {
	return fmt.Sprintf("%s-%s-private", p.Name, p.ID)
}

// startingPhase gathers players in the lobby and waits for an admin
// "begin" once the roster meets the minimum.
func (c *Controller) startingPhase(ctx context.Context) error {
	s := c.session

	if _, err := s.Adapter.SendMessage(ctx, ChannelAdmin, "Welcome to Two Rooms and a Boom!"); err != nil {
		return err
	}
	intro := fmt.Sprintf("This game requires a *minimum* of %d players. "+
		"Join the lobby voice channel, then send *begin* in this channel to launch the game. "+
		"No new players can join once the game begins, and a player leaving a game voice channel terminates the game.",
		c.cfg.MinPlayers)
	if _, err := s.Adapter.SendMessage(ctx, ChannelAdmin, intro); err != nil {
		return err
	}

	begin := async.NewToken[struct{}]()
	sub, err := s.Bus.Subscribe(bus.Message(ChannelAdmin), func(payload any) {
		msg, ok := payload.(platform.MessageEvent)
		if !ok || !equalsFold(msg.Content, "begin") {
			return
		}
		if c.Phase() == PhaseStarting && s.PlayerCount() >= c.cfg.MinPlayers {
			begin.Resolve(struct{}{})
			return
		}
		reply := fmt.Sprintf("This game requires a minimum of %d players. There are currently %d players in the lobby.",
			c.cfg.MinPlayers, s.PlayerCount())
		if _, err := s.Adapter.SendMessage(ctx, ChannelAdmin, reply); err != nil {
			c.logger.Warn("begin reply failed", "err", err)
		}
	})
	if err != nil {
		return err
	}
	defer sub.Cancel()

	_, err = begin.Await(ctx)
	return err
}

// nominatingPhase locks the roster in: rooms and private channels are
// created, players distributed and given roles, and each room elects a
// leader through first-come nomination prompts.
func (c *Controller) nominatingPhase(ctx context.Context) error {
	s := c.session

	for _, room := range roomNames {
		if err := s.Adapter.CreateChannel(ctx, room, platform.ChannelVoice, platform.VisibilitySecret); err != nil {
			return err
		}
	}

	announcements := []string{
		"Game begins! Roles have been sent, and the players locked in.",
		fmt.Sprintf("Final player count: %d", s.PlayerCount()),
		"You have been moved into your rooms. More instructions in your private text channel.",
	}
	for _, text := range announcements {
		if _, err := s.Adapter.SendMessage(ctx, ChannelAdmin, text); err != nil {
			return err
		}
	}
	if err := s.Adapter.SetChannelLocked(ctx, ChannelAdmin, true); err != nil {
		return err
	}

	players := s.Players()
	rooms := make([]string, len(players))
	for i := range rooms {
		rooms[i] = roomNames[i%len(roomNames)]
	}
	c.rng.Shuffle(len(rooms), func(i, j int) {
		rooms[i], rooms[j] = rooms[j], rooms[i]
	})

	for i, p := range players {
		if err := s.Adapter.MoveParticipant(ctx, p, rooms[i]); err != nil {
			return err
		}
		private := privateChannelName(p)
		if err := s.Adapter.CreateChannel(ctx, private, platform.ChannelText, platform.VisibilitySecret); err != nil {
			return err
		}
		if err := s.Adapter.SetChannelVisibility(ctx, private, p, true); err != nil {
			return err
		}
		s.SetPrivateChannel(p.ID, private)
	}

	if err := s.Adapter.RemoveChannel(ctx, ChannelLobby); err != nil {
		return err
	}

	if err := c.assignRoles(ctx); err != nil {
		return err
	}

	if err := c.runNominations(ctx); err != nil {
		return err
	}

	for _, room := range roomNames {
		leader, ok := s.Leader(room)
		if !ok {
			return fmt.Errorf("game: no leader nominated for %s", room)
		}
		if err := s.Broadcast(ctx, fmt.Sprintf("%s has been nominated as leader of %s.", leader.Name, room)); err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) assignRoles(ctx context.Context) error {
	s := c.session
	players := s.Players()

	roles, err := drawRoles(DefaultRolePool(), len(players), c.rng)
	if err != nil {
		return err
	}

	for i, p := range players {
		role := roles[i]
		s.SetRole(p.ID, role)

		private, ok := s.PrivateChannel(p.ID)
		if !ok {
			continue
		}
		text := fmt.Sprintf("%s, you are The %s (%s team). "+
			"Your objective is to end the game in the right room relative to the President. "+
			"Find out identities by asking to show cards to one another; you can reveal either your affiliation or your full role.",
			p.Name, role, role.Affiliation())
		if _, err := s.Adapter.SendMessage(ctx, private, text); err != nil {
			return err
		}
	}
	return nil
}

// runNominations opens one "Nominate" prompt per ordered player pair in
// each room. The first nomination elects the room's leader and deletes
// the room's remaining prompts, settling them all.
func (c *Controller) runNominations(ctx context.Context) error {
	s := c.session

	type nomination struct {
		prompt  *Prompt
		nominee platform.Participant
	}

	var all []*Prompt
	var wg sync.WaitGroup

	for _, room := range roomNames {
		occupants, err := s.RoomOccupants(ctx, room)
		if err != nil {
			return err
		}

		var roomPrompts []*Prompt
		var pending []nomination
		for _, p := range occupants {
			private, ok := s.PrivateChannel(p.ID)
			if !ok {
				continue
			}
			notice := "Nomination phase: the first player to be nominated as Leader will be elected Leader of this room."
			if _, err := s.Adapter.SendMessage(ctx, private, notice); err != nil {
				return err
			}
			for _, other := range occupants {
				if other.ID == p.ID {
					continue
				}
				prompt, err := s.Prompt(ctx, private, "Nomination for Leader: "+other.Name, []string{"Nominate"})
				if err != nil {
					return err
				}
				roomPrompts = append(roomPrompts, prompt)
				pending = append(pending, nomination{prompt: prompt, nominee: other})
			}
		}

		room := room
		siblings := roomPrompts
		for _, nom := range pending {
			nom := nom
			wg.Add(1)
			go func() {
				defer wg.Done()
				reply, err := nom.prompt.Answer(ctx)
				if err != nil || reply != "Nominate" {
					return
				}
				if !s.NominateLeader(room, nom.nominee) {
					return
				}
				for _, sib := range siblings {
					if sib != nom.prompt {
						sib.Delete()
					}
				}
			}()
		}

		all = append(all, roomPrompts...)
	}

	for _, prompt := range all {
		if _, err := prompt.Answer(ctx); err != nil {
			return err
		}
	}
	wg.Wait()
	return nil
}

// sharingPhase runs the identity-trading window: a live countdown in
// every private channel, and pairwise trade prompts whose acceptances
// reveal affiliations or full roles.
func (c *Controller) sharingPhase(ctx context.Context) error {
	s := c.session

	instructions := "Sharing phase! Request to share identities with other players in your room.\n" +
		fmt.Sprintf("Requests expire after %s, so only request once the other person has agreed to share.\n", c.cfg.ShareTimeout) +
		fmt.Sprintf("You have %s for this phase.", c.cfg.SharingDuration)
	if err := s.Broadcast(ctx, instructions); err != nil {
		return err
	}

	var timerRefs []platform.MessageRef
	for _, p := range s.Players() {
		private, ok := s.PrivateChannel(p.ID)
		if !ok {
			continue
		}
		ref, err := s.Adapter.SendMessage(ctx, private, "*Timer loading*")
		if err != nil {
			return err
		}
		timerRefs = append(timerRefs, ref)
	}

	expired := async.NewToken[struct{}]()
	cancelCountdown := Countdown(c.cfg.SharingDuration, c.cfg.CountdownStep, func(remaining time.Duration) {
		text := fmt.Sprintf("Time remaining: %d seconds", int(remaining.Seconds()))
		for _, ref := range timerRefs {
			if err := s.Adapter.EditMessage(ctx, ref, text); err != nil {
				c.logger.Debug("timer edit failed", "err", err)
			}
		}
		if remaining == 0 {
			expired.Resolve(struct{}{})
			for _, ref := range timerRefs {
				if err := s.Adapter.DeleteMessage(ctx, ref); err != nil {
					c.logger.Debug("timer delete failed", "err", err)
				}
			}
		}
	})
	defer cancelCountdown()

	var mu sync.Mutex
	var open []*Prompt
	track := func(p *Prompt) {
		mu.Lock()
		open = append(open, p)
		mu.Unlock()
	}

	for _, room := range roomNames {
		occupants, err := s.RoomOccupants(ctx, room)
		if err != nil {
			return err
		}
		for _, p := range occupants {
			for _, other := range occupants {
				if other.ID == p.ID {
					continue
				}
				if err := c.openTrade(ctx, p, other, track); err != nil {
					return err
				}
			}
		}
	}

	if _, err := expired.Await(ctx); err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	for _, prompt := range open {
		prompt.Delete()
	}
	return nil
}

// openTrade offers requester a trade prompt towards other and chains the
// confirmation prompt on the first answer. The confirmation auto-cancels
// to Decline after the share timeout.
func (c *Controller) openTrade(ctx context.Context, requester, other platform.Participant, track func(*Prompt)) error {
	s := c.session

	reqPrivate, ok := s.PrivateChannel(requester.ID)
	if !ok {
		return nil
	}
	otherPrivate, ok := s.PrivateChannel(other.ID)
	if !ok {
		return nil
	}

	trade, err := s.Prompt(ctx, reqPrivate, "Trading with "+other.Name, []string{"Share Affiliation", "Share Identity"})
	if err != nil {
		return err
	}
	track(trade)

	go func() {
		request, err := trade.Answer(ctx)
		if err != nil || request == NoReply {
			return
		}

		conf, err := s.Prompt(ctx, otherPrivate, fmt.Sprintf("%s has requested to %s", requester.Name, request), []string{"Accept", "Decline"})
		if err != nil {
			c.logger.Warn("confirmation prompt failed", "err", err)
			return
		}
		track(conf)
		conf.ExpireAfter(c.cfg.ShareTimeout, "Decline")

		answer, err := conf.Answer(ctx)
		if err != nil {
			return
		}
		switch answer {
		case "Accept":
			c.sendReveal(ctx, reqPrivate, other, request)
			c.sendReveal(ctx, otherPrivate, requester, request)
		default:
			text := fmt.Sprintf("%s has declined to share their card with you.", other.Name)
			if _, err := s.Adapter.SendMessage(ctx, reqPrivate, text); err != nil {
				c.logger.Warn("decline notice failed", "err", err)
			}
		}
	}()
	return nil
}

func (c *Controller) sendReveal(ctx context.Context, channel string, revealed platform.Participant, request string) {
	role, ok := c.session.Role(revealed.ID)
	if !ok {
		return
	}
	shown := "The " + string(role)
	if request == "Share Affiliation" {
		shown = string(role.Affiliation()) + " team"
	}
	text := fmt.Sprintf("%s has revealed themselves to be **%s**", revealed.Name, shown)
	if _, err := c.session.Adapter.SendMessage(ctx, channel, text); err != nil {
		c.logger.Warn("reveal notice failed", "err", err)
	}
}

// switchingPhase has each leader pick a hostage; both hostages then swap
// rooms at the same time. A leader who never answers sends the first
// eligible occupant.
func (c *Controller) switchingPhase(ctx context.Context) error {
	s := c.session

	type pick struct {
		prompt     *Prompt
		candidates []platform.Participant
		labels     []string
		dest       string
	}
	var picks []pick

	for i, room := range roomNames {
		dest := roomNames[(i+1)%len(roomNames)]

		leader, ok := s.Leader(room)
		if !ok {
			return fmt.Errorf("game: no leader for %s", room)
		}
		occupants, err := s.RoomOccupants(ctx, room)
		if err != nil {
			return err
		}

		var candidates []platform.Participant
		for _, p := range occupants {
			if p.ID != leader.ID {
				candidates = append(candidates, p)
			}
		}
		if len(candidates) == 0 {
			continue
		}

		private, ok := s.PrivateChannel(leader.ID)
		if !ok {
			return fmt.Errorf("game: leader %s has no private channel", leader.Name)
		}

		// Numbered labels stay unambiguous when candidates share a name.
		labels := make([]string, len(candidates))
		for i, cand := range candidates {
			labels[i] = fmt.Sprintf("%d. %s", i+1, cand.Name)
		}
		prompt, err := s.Prompt(ctx, private, fmt.Sprintf("Choose a hostage to send to %s", dest), labels)
		if err != nil {
			return err
		}
		prompt.ExpireAfter(c.cfg.SwitchTimeout, NoReply)
		picks = append(picks, pick{prompt: prompt, candidates: candidates, labels: labels, dest: dest})
	}

	var moves []struct {
		hostage platform.Participant
		dest    string
	}
	for _, pk := range picks {
		answer, err := pk.prompt.Answer(ctx)
		if err != nil {
			return err
		}
		hostage := pk.candidates[0]
		for i, label := range pk.labels {
			if label == answer {
				hostage = pk.candidates[i]
				break
			}
		}
		moves = append(moves, struct {
			hostage platform.Participant
			dest    string
		}{hostage, pk.dest})
	}

	for _, m := range moves {
		if err := s.Adapter.MoveParticipant(ctx, m.hostage, m.dest); err != nil {
			return err
		}
		if err := s.Broadcast(ctx, fmt.Sprintf("%s has been sent to %s as a hostage.", m.hostage.Name, m.dest)); err != nil {
			return err
		}
	}
	return nil
}

// endingPhase reveals everyone, decides the winning team and reopens the
// admin channel for the next game.
func (c *Controller) endingPhase(ctx context.Context) error {
	s := c.session

	if err := s.Adapter.SetChannelLocked(ctx, ChannelAdmin, false); err != nil {
		return err
	}

	var presidentRoom, bomberRoom string
	var lines []string
	for _, room := range roomNames {
		occupants, err := s.RoomOccupants(ctx, room)
		if err != nil {
			return err
		}
		for _, p := range occupants {
			role, ok := s.Role(p.ID)
			if !ok {
				continue
			}
			lines = append(lines, fmt.Sprintf("%s: The %s (%s)", p.Name, role, role.Affiliation()))
			switch role {
			case RolePresident:
				presidentRoom = room
			case RoleBomber:
				bomberRoom = room
			}
		}
	}

	outcome := "The Blue team wins! The President was kept away from the Bomber."
	winner := "blue"
	if presidentRoom != "" && presidentRoom == bomberRoom {
		outcome = "The Red team wins! The Bomber ended the game in the President's room."
		winner = "red"
	}

	if _, err := s.Adapter.SendMessage(ctx, ChannelAdmin, "**Game over!** "+outcome); err != nil {
		return err
	}
	if len(lines) > 0 {
		if _, err := s.Adapter.SendMessage(ctx, ChannelAdmin, "Final identities:\n"+strings.Join(lines, "\n")); err != nil {
			return err
		}
	}
	if err := s.Broadcast(ctx, "**Game over!** "+outcome); err != nil {
		return err
	}
	c.record(ctx, "game_end", string(PhaseEnding), winner)

	_, err := s.Adapter.SendMessage(ctx, ChannelAdmin, "A new game will begin shortly.")
	return err
}
