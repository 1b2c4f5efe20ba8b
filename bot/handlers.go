/* handlers.go
 * Contains testable handler methods that accept DiscordSession interface
 * Authors: Zachary Bower
 */

package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/go-andiamo/splitter"

	"arena-bot/api/battle"
	"arena-bot/api/client"
	"arena-bot/api/practice"
	"arena-bot/api/store"
)

// newMessageHandler routes messages to appropriate handlers with a DiscordSession interface
// botUserID is the bot's user ID to prevent self-responses
func (b *Bot) newMessageHandler(session DiscordSession, message *discordgo.MessageCreate, botUserID string) {
	// Prevent bot from responding to its own messages
	if message.Author.ID == botUserID {
		return
	}

	// Route to appropriate handler
	switch {
	case startsWith(message.Content, "$help"):
		b.helpMessageHandler(session, message)

	case startsWith(message.Content, "$link"):
		b.linkHandler(session, message)

	case startsWith(message.Content, "$unlink"):
		b.unlinkHandler(session, message)

	case startsWith(message.Content, "$rating"):
		b.ratingHandler(session, message)

	case startsWith(message.Content, "$leaderboard"):
		b.leaderboardHandler(session, message)

	case startsWith(message.Content, "$queue"):
		b.queueHandler(session, message)

	case startsWith(message.Content, "$cancel"):
		b.cancelHandler(session, message)

	case startsWith(message.Content, "$accept"):
		b.acceptHandler(session, message)

	case startsWith(message.Content, "$status"):
		b.statusHandler(session, message)

	case startsWith(message.Content, "$submit"):
		b.submitHandler(session, message)

	case startsWith(message.Content, "$resign"):
		b.resignHandler(session, message)

	case startsWith(message.Content, "$practice"):
		b.practiceHandler(session, message)
	}
}

// helpMessageHandler handles the $help command with a DiscordSession interface
func (b *Bot) helpMessageHandler(session DiscordSession, message *discordgo.MessageCreate) {
	var res strings.Builder
	res.WriteString("Arena Bot v1.0\n")
	res.WriteString("`$link <refresh token>`: Links your arena account using a refresh token from the web app's settings page\n")
	res.WriteString("`$unlink`: Logs out and forgets your account link\n")
	res.WriteString("`$rating`: Shows your current rating and streaks\n")
	res.WriteString("`$leaderboard`: Shows the top rated players\n")
	res.WriteString("`$queue`: Joins the ranked matchmaking queue. When a match is found you have 20 seconds to `$accept` it\n")
	res.WriteString("`$cancel`: Leaves the queue\n")
	res.WriteString("`$accept`: Accepts a found match\n")
	res.WriteString("`$status`: Shows where you are in the queue or battle, including time remaining\n")
	res.WriteString("`$submit`: Submits your solution. Put the code in a fenced block after the command\n")
	res.WriteString("`$resign`: Forfeits the current battle. You will be asked to run it a second time to confirm\n")
	res.WriteString("`$practice <title>`: Looks up a practice exercise by name, with fuzzy matching on titles. Without a title you get a random one\n")
	session.ChannelMessageSend(message.ChannelID, res.String())
}

// linkHandler handles the $link command. The token is rotated on first use, so the
// stored link always carries the newest refresh token
func (b *Bot) linkHandler(session DiscordSession, message *discordgo.MessageCreate) {
	args := commandArgs(message.Content)
	if len(args) != 1 {
		session.ChannelMessageSend(message.ChannelID, "Usage: `$link <refresh token>`")
		return
	}

	b.mu.Lock()
	if old, ok := b.sessions[message.Author.ID]; ok {
		old.lifecycle.Stop()
		delete(b.sessions, message.Author.ID)
	}
	s, err := b.newSessionLocked(message.Author.ID)
	b.mu.Unlock()
	if err != nil {
		log.Println(err)
		session.ChannelMessageSend(message.ChannelID, "An unexpected error occured")
		return
	}

	if err := s.api.Resume(args[0]); err != nil {
		log.Println(err)
		session.ChannelMessageSend(message.ChannelID, "An unexpected error occured")
		return
	}

	// Verifying the token also rotates it; persist whatever pair we ended up with
	me, err := s.api.Me(context.Background())
	if err != nil {
		b.dropSession(message.Author.ID)
		session.ChannelMessageSend(message.ChannelID, "That token was rejected by the arena. Generate a fresh one and try again")
		return
	}
	_, refresh := s.api.Creds.Tokens()
	err = b.Links.StoreLink(store.AccountLink{
		DiscordID:    message.Author.ID,
		Username:     me.Username,
		RefreshToken: refresh,
	})
	if err != nil {
		log.Println(err)
		session.ChannelMessageSend(message.ChannelID, "Logged in, but the link could not be saved; you may need to `$link` again after the next restart")
		return
	}
	session.ChannelMessageSend(message.ChannelID, fmt.Sprintf("Linked to arena account **%s** (rating %d)", me.Username, me.Rating))
}

// unlinkHandler handles the $unlink command
func (b *Bot) unlinkHandler(session DiscordSession, message *discordgo.MessageCreate) {
	s, err := b.session(message.Author.ID)
	if err != nil {
		session.ChannelMessageSend(message.ChannelID, notLinkedMessage(err))
		return
	}

	// Best effort revocation; the link is removed either way
	if err := s.api.Auth.Logout(context.Background()); err != nil {
		log.Println(err)
	}
	if err := b.Links.DeleteLink(message.Author.ID); err != nil {
		log.Println(err)
	}
	b.dropSession(message.Author.ID)
	session.ChannelMessageSend(message.ChannelID, "Unlinked. Your stored credentials have been removed")
}

// ratingHandler handles the $rating command
func (b *Bot) ratingHandler(session DiscordSession, message *discordgo.MessageCreate) {
	s, err := b.session(message.Author.ID)
	if err != nil {
		session.ChannelMessageSend(message.ChannelID, notLinkedMessage(err))
		return
	}

	me, err := s.api.Me(context.Background())
	if err != nil {
		session.ChannelMessageSend(message.ChannelID, userError(err))
		return
	}

	res := fmt.Sprintf("**%s**: rating %d", me.Username, me.Rating)
	if me.WinStreak > 1 {
		res += fmt.Sprintf(", on a %d win streak", me.WinStreak)
	} else if me.LossStreak > 1 {
		res += fmt.Sprintf(", on a %d loss streak", me.LossStreak)
	}
	session.ChannelMessageSend(message.ChannelID, res)
}

// leaderboardHandler handles the $leaderboard command
func (b *Bot) leaderboardHandler(session DiscordSession, message *discordgo.MessageCreate) {
	s, err := b.session(message.Author.ID)
	if err != nil {
		session.ChannelMessageSend(message.ChannelID, notLinkedMessage(err))
		return
	}

	entries, err := s.api.Auth.Leaderboard(context.Background())
	if err != nil {
		session.ChannelMessageSend(message.ChannelID, userError(err))
		return
	}
	if len(entries) == 0 {
		session.ChannelMessageSend(message.ChannelID, "The leaderboard is empty")
		return
	}

	var res strings.Builder
	res.WriteString("Arena leaderboard:\n")
	for i, e := range entries {
		if i >= 10 {
			break
		}
		rank := e.Rank
		if rank == 0 {
			rank = i + 1
		}
		res.WriteString(fmt.Sprintf("%d. %s - %d\n", rank, e.Username, e.Rating))
	}
	session.ChannelMessageSend(message.ChannelID, res.String())
}

// queueHandler handles the $queue command. The battle result notifier is bound to the
// channel the queue command came from
func (b *Bot) queueHandler(session DiscordSession, message *discordgo.MessageCreate) {
	s, err := b.session(message.Author.ID)
	if err != nil {
		session.ChannelMessageSend(message.ChannelID, notLinkedMessage(err))
		return
	}

	username := message.Author.Username
	s.setChannel(message.ChannelID)
	s.lifecycle.SetNotify(func(r battle.Result) {
		var res string
		switch r.Outcome {
		case "win":
			res = fmt.Sprintf("%s won battle #%d! Rating change: %+d", username, r.BattleID, r.Delta)
		case "loss":
			res = fmt.Sprintf("%s lost battle #%d. Rating change: %+d", username, r.BattleID, r.Delta)
		default:
			res = fmt.Sprintf("Battle #%d ended in a draw", r.BattleID)
		}
		session.ChannelMessageSend(s.channel(), res)
	})

	if err := s.lifecycle.JoinQueue(context.Background()); err != nil {
		if errors.Is(err, battle.ErrNotIdle) {
			session.ChannelMessageSend(message.ChannelID, "You are already queued or in a battle. Use `$status` to see where you are")
			return
		}
		session.ChannelMessageSend(message.ChannelID, userError(err))
		return
	}
	session.ChannelMessageSend(message.ChannelID, "Searching for an opponent... you will have 20 seconds to `$accept` once a match is found")
}

// cancelHandler handles the $cancel command
func (b *Bot) cancelHandler(session DiscordSession, message *discordgo.MessageCreate) {
	s, err := b.session(message.Author.ID)
	if err != nil {
		session.ChannelMessageSend(message.ChannelID, notLinkedMessage(err))
		return
	}

	if err := s.lifecycle.CancelQueue(context.Background()); err != nil {
		if errors.Is(err, battle.ErrNotSearching) {
			session.ChannelMessageSend(message.ChannelID, "You are not in the queue")
			return
		}
		session.ChannelMessageSend(message.ChannelID, userError(err))
		return
	}
	session.ChannelMessageSend(message.ChannelID, "Left the queue")
}

// acceptHandler handles the $accept command
func (b *Bot) acceptHandler(session DiscordSession, message *discordgo.MessageCreate) {
	s, err := b.session(message.Author.ID)
	if err != nil {
		session.ChannelMessageSend(message.ChannelID, notLinkedMessage(err))
		return
	}

	if err := s.lifecycle.Accept(context.Background()); err != nil {
		if errors.Is(err, battle.ErrNoPendingMatch) {
			session.ChannelMessageSend(message.ChannelID, "There is no match waiting for your accept")
			return
		}
		session.ChannelMessageSend(message.ChannelID, userError(err))
		return
	}
	session.ChannelMessageSend(message.ChannelID, "Accepted. Waiting for your opponent...")
}

// statusHandler handles the $status command
func (b *Bot) statusHandler(session DiscordSession, message *discordgo.MessageCreate) {
	s, err := b.session(message.Author.ID)
	if err != nil {
		session.ChannelMessageSend(message.ChannelID, notLinkedMessage(err))
		return
	}

	snap := s.lifecycle.Snapshot()
	var res string
	switch snap.Phase {
	case battle.PhaseIdle:
		res = "You are not queued or in a battle. Use `$queue` to start"
	case battle.PhaseSearching:
		res = fmt.Sprintf("Searching for an opponent (%ds elapsed)", snap.QueueElapsed)
	case battle.PhaseFound:
		if snap.AcceptVisible {
			res = fmt.Sprintf("Match found! %ds left to `$accept`", snap.AcceptRemaining)
		} else {
			res = "Match found! Use `$accept` to take it"
		}
	case battle.PhaseWaitingOpponent:
		if snap.AcceptVisible {
			res = fmt.Sprintf("Waiting for your opponent to accept (%ds left)", snap.AcceptRemaining)
		} else {
			res = "Waiting for your opponent to accept"
		}
	case battle.PhaseActive, battle.PhaseSubmitting:
		var line strings.Builder
		if snap.Exercise != nil {
			line.WriteString(fmt.Sprintf("Battling on **%s**", snap.Exercise.Title))
		} else {
			line.WriteString("Battle in progress")
		}
		if snap.Opponent != nil {
			line.WriteString(fmt.Sprintf(" against %s (%d)", snap.Opponent.Username, snap.Opponent.Rating))
		}
		line.WriteString(fmt.Sprintf(" with %s remaining", formatClock(snap.BattleRemaining)))
		if snap.Phase == battle.PhaseSubmitting {
			line.WriteString(". Your submission is being judged")
		}
		res = line.String()
	}
	session.ChannelMessageSend(message.ChannelID, res)
}

// submitHandler handles the $submit command. The code is taken from a fenced block in
// the same message
func (b *Bot) submitHandler(session DiscordSession, message *discordgo.MessageCreate) {
	s, err := b.session(message.Author.ID)
	if err != nil {
		session.ChannelMessageSend(message.ChannelID, notLinkedMessage(err))
		return
	}

	code := extractCode(message.Content)
	if code == "" {
		session.ChannelMessageSend(message.ChannelID, "Put your solution in a code block after `$submit`")
		return
	}

	session.ChannelMessageSend(message.ChannelID, "Submitting...")
	sub, err := s.lifecycle.SubmitCode(context.Background(), code)
	if err != nil {
		switch {
		case errors.Is(err, battle.ErrNoActiveBattle):
			session.ChannelMessageSend(message.ChannelID, "You are not in an active battle")
		case errors.Is(err, battle.ErrSubmissionInFlight):
			session.ChannelMessageSend(message.ChannelID, "Your previous submission is still being judged")
		case errors.Is(err, battle.ErrSubmissionTimeout):
			session.ChannelMessageSend(message.ChannelID, "The judge is taking too long; try submitting again")
		default:
			session.ChannelMessageSend(message.ChannelID, userError(err))
		}
		return
	}
	session.ChannelMessageSend(message.ChannelID, verdictMessage(sub.Status))
}

// resignHandler handles the $resign command with a two step confirmation
func (b *Bot) resignHandler(session DiscordSession, message *discordgo.MessageCreate) {
	s, err := b.session(message.Author.ID)
	if err != nil {
		session.ChannelMessageSend(message.ChannelID, notLinkedMessage(err))
		return
	}

	if s.lifecycle.Phase() != battle.PhaseActive && s.lifecycle.Phase() != battle.PhaseSubmitting {
		session.ChannelMessageSend(message.ChannelID, "You are not in an active battle")
		return
	}

	if !s.armResign() {
		session.ChannelMessageSend(message.ChannelID, "Resigning counts as a loss and cannot be undone. Run `$resign` again to confirm")
		return
	}

	if err := s.lifecycle.Resign(context.Background()); err != nil {
		if errors.Is(err, battle.ErrNoActiveBattle) {
			session.ChannelMessageSend(message.ChannelID, "You are not in an active battle")
			return
		}
		session.ChannelMessageSend(message.ChannelID, userError(err))
		return
	}
}

// practiceHandler handles the $practice command
func (b *Bot) practiceHandler(session DiscordSession, message *discordgo.MessageCreate) {
	s, err := b.session(message.Author.ID)
	if err != nil {
		session.ChannelMessageSend(message.ChannelID, notLinkedMessage(err))
		return
	}

	args := commandArgs(message.Content)
	if len(args) == 0 {
		exercise, err := s.api.Practice.RandomExercise(context.Background(), "")
		if err != nil {
			session.ChannelMessageSend(message.ChannelID, userError(err))
			return
		}
		session.ChannelMessageSend(message.ChannelID, exerciseCard(exercise))
		return
	}

	exercises, err := s.api.Practice.Exercises(context.Background(), "")
	if err != nil {
		session.ChannelMessageSend(message.ChannelID, userError(err))
		return
	}
	exercise, err := practice.FindExercise(strings.Join(args, " "), exercises)
	if err != nil {
		session.ChannelMessageSend(message.ChannelID, fmt.Sprintf("No exercise matched %q. Try `$practice` for a random one", strings.Join(args, " ")))
		return
	}
	session.ChannelMessageSend(message.ChannelID, exerciseCard(exercise))
}

// commandArgs splits a command message into its arguments, honouring double quoted
// tokens the way the rest of the commands do
func commandArgs(content string) []string {
	spaceSplitter, _ := splitter.NewSplitter(' ', splitter.DoubleQuotes, splitter.LeftRightDoubleDoubleQuotes)
	msg, err := spaceSplitter.Split(content)
	if err != nil || len(msg) <= 1 {
		return nil
	}
	args := make([]string, 0, len(msg)-1)
	for _, a := range msg[1:] {
		a = strings.Trim(a, "\"“”")
		if a != "" {
			args = append(args, a)
		}
	}
	return args
}

// notLinkedMessage renders session lookup failures
func notLinkedMessage(err error) string {
	if errors.Is(err, errNotLinked) {
		return "Your Discord account is not linked to an arena account. Use `$link <refresh token>` first"
	}
	log.Println(err)
	return "An unexpected error occured"
}

// userError renders an API failure the way the backend phrased it when possible
func userError(err error) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	log.Println(err)
	return "An unexpected error occured"
}
