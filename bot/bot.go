/* bot.go
 * Contains logic used for creating the bot and managing per-user arena sessions. Each Discord user
 * gets their own API value and battle lifecycle; the account-link store lets a session resume from
 * a stored refresh token after a restart
 * Authors: Zachary Bower
 */

package bot

import (
	"errors"
	"fmt"
	"sync"

	"go.mongodb.org/mongo-driver/mongo"

	"arena-bot/api/api"
	"arena-bot/api/battle"
	"arena-bot/api/creds"
	"arena-bot/api/store"
)

type Bot struct {
	BotToken string
	BaseURL  string
	Links    store.Interface

	mu       sync.Mutex
	sessions map[string]*userSession
}

// userSession is one Discord user's arena session: their API, their battle lifecycle
// and the channel their battle results should be posted to. Discord dispatches each
// handler on its own goroutine, so the mutable fields are guarded by mu
type userSession struct {
	api       *api.API
	lifecycle *battle.Lifecycle

	mu          sync.Mutex
	channelID   string
	resignArmed bool
}

// setChannel records where this user's battle results should be posted
func (s *userSession) setChannel(channelID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channelID = channelID
}

// channel returns the channel recorded by the most recent $queue
func (s *userSession) channel() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.channelID
}

// armResign drives the two step resign confirmation. The first call arms it and returns
// false; the next call disarms it and returns true
func (s *userSession) armResign() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resignArmed {
		s.resignArmed = false
		return true
	}
	s.resignArmed = true
	return false
}

func NewBot(botToken string, baseURL string, links store.Interface) (*Bot, error) {
	if botToken == "" {
		return nil, fmt.Errorf("botToken is required but none was provided")
	}
	if baseURL == "" {
		return nil, fmt.Errorf("baseURL is required but none was provided")
	}

	return &Bot{
		BotToken: botToken,
		BaseURL:  baseURL,
		Links:    links,
		sessions: make(map[string]*userSession),
	}, nil
}

var errNotLinked = errors.New("account not linked")

// session returns the arena session for a Discord user, creating one from the stored
// account link if this is the first command since startup. errNotLinked means the user
// has never run $link
func (b *Bot) session(discordUserID string) (*userSession, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if s, ok := b.sessions[discordUserID]; ok {
		return s, nil
	}

	link, err := b.Links.GetLink(discordUserID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errNotLinked
		}
		return nil, err
	}

	s, err := b.newSessionLocked(discordUserID)
	if err != nil {
		return nil, err
	}
	if err := s.api.Resume(link.RefreshToken); err != nil {
		return nil, err
	}
	return s, nil
}

// newSessionLocked creates and registers a blank session. Callers must hold mu
func (b *Bot) newSessionLocked(discordUserID string) (*userSession, error) {
	a, err := api.NewAPI(b.BaseURL, creds.NewMemoryStore())
	if err != nil {
		return nil, err
	}
	s := &userSession{
		api:       a,
		lifecycle: a.NewLifecycle(),
	}
	b.sessions[discordUserID] = s
	return s, nil
}

// dropSession tears down and forgets a user's session, used on $unlink
func (b *Bot) dropSession(discordUserID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok := b.sessions[discordUserID]; ok {
		s.lifecycle.Stop()
		delete(b.sessions, discordUserID)
	}
}
