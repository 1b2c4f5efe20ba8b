/* handlers_test.go
 * Contains unit tests for bot command handlers using mock Discord session
 * AI-Generated
 */

package bot

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arena-bot/api/shared"
	"arena-bot/api/store"
)

// arenaStub is a minimal arena backend for handler tests: it refreshes any token
// and serves a fixed user, leaderboard and exercise catalogue
func arenaStub(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"accessToken":  "stub-access",
			"refreshToken": "stub-refresh-rotated",
		})
	})
	mux.HandleFunc("/auth/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer stub-access" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"message": "Unauthorized"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"user": shared.User{ID: 1, Username: "casey", Rating: 1537, WinStreak: 3},
		})
	})
	mux.HandleFunc("/auth/leaderboard", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"leaderboard": []shared.LeaderboardEntry{
				{Rank: 1, Username: "casey", Rating: 1537},
				{Rank: 2, Username: "sam", Rating: 1490},
			},
		})
	})
	mux.HandleFunc("/practice/exercises", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"exercises": []shared.Exercise{
				{ID: "two-sum", Title: "Two Sum", Difficulty: "easy", TimeLimit: 600},
				{ID: "n-queens", Title: "N-Queens", Difficulty: "hard"},
			},
		})
	})
	mux.HandleFunc("/practice/random", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"exercise": shared.Exercise{ID: "fizzbuzz", Title: "FizzBuzz", Difficulty: "easy"},
		})
	})
	mux.HandleFunc("/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// createTestBot creates a Bot wired to the stub backend with one linked user
func createTestBot(t *testing.T) *Bot {
	t.Helper()
	srv := arenaStub(t)
	links := store.NewMemoryLinks()
	require.NoError(t, links.StoreLink(store.AccountLink{
		DiscordID:    "user123",
		Username:     "casey",
		RefreshToken: "stub-refresh",
	}))

	b, err := NewBot("test_token", srv.URL, links)
	require.NoError(t, err)
	return b
}

// createMockMessage creates a mock Discord message for testing
func createMockMessage(content, userID, username, channelID string) *discordgo.MessageCreate {
	return &discordgo.MessageCreate{
		Message: &discordgo.Message{
			Content:   content,
			ChannelID: channelID,
			Author: &discordgo.User{
				ID:       userID,
				Username: username,
			},
		},
	}
}

func TestNewMessageHandler_IgnoresOwnMessages(t *testing.T) {
	b := createTestBot(t)
	mock := NewMockDiscordSession()

	msg := createMockMessage("$help", "bot_id", "arena-bot", "chan1")
	b.newMessageHandler(mock, msg, "bot_id")

	assert.Empty(t, mock.SentMessages)
}

func TestHelpMessageHandler(t *testing.T) {
	b := createTestBot(t)
	mock := NewMockDiscordSession()

	b.newMessageHandler(mock, createMockMessage("$help", "user123", "casey", "chan1"), "bot_id")

	require.Len(t, mock.SentMessages, 1)
	content := mock.GetLastMessage().Content
	for _, cmd := range []string{"$link", "$queue", "$accept", "$status", "$resign", "$practice"} {
		assert.Contains(t, content, cmd)
	}
}

func TestRatingHandler_NotLinked(t *testing.T) {
	b := createTestBot(t)
	mock := NewMockDiscordSession()

	b.ratingHandler(mock, createMockMessage("$rating", "stranger", "someone", "chan1"))

	require.Len(t, mock.SentMessages, 1)
	assert.Contains(t, mock.GetLastMessage().Content, "$link")
}

func TestRatingHandler_LinkedUser(t *testing.T) {
	b := createTestBot(t)
	mock := NewMockDiscordSession()

	b.ratingHandler(mock, createMockMessage("$rating", "user123", "casey", "chan1"))

	require.Len(t, mock.SentMessages, 1)
	content := mock.GetLastMessage().Content
	assert.Contains(t, content, "casey")
	assert.Contains(t, content, "1537")
	assert.Contains(t, content, "win streak")
}

func TestLinkHandler_StoresRotatedToken(t *testing.T) {
	b := createTestBot(t)
	mock := NewMockDiscordSession()

	b.linkHandler(mock, createMockMessage("$link fresh-token", "newuser", "sam", "chan1"))

	require.Len(t, mock.SentMessages, 1)
	assert.Contains(t, mock.GetLastMessage().Content, "casey")

	links := b.Links.(*store.MemoryLinks)
	link, err := links.GetLink("newuser")
	require.NoError(t, err)
	// the token handed to $link is rotated on first use; the stored one is the rotation
	assert.Equal(t, "stub-refresh-rotated", link.RefreshToken)
}

func TestLinkHandler_Usage(t *testing.T) {
	b := createTestBot(t)
	mock := NewMockDiscordSession()

	b.linkHandler(mock, createMockMessage("$link", "user123", "casey", "chan1"))

	require.Len(t, mock.SentMessages, 1)
	assert.Contains(t, mock.GetLastMessage().Content, "Usage")
}

func TestUnlinkHandler_RemovesLink(t *testing.T) {
	b := createTestBot(t)
	mock := NewMockDiscordSession()

	b.unlinkHandler(mock, createMockMessage("$unlink", "user123", "casey", "chan1"))

	require.Len(t, mock.SentMessages, 1)
	assert.Contains(t, mock.GetLastMessage().Content, "Unlinked")

	links := b.Links.(*store.MemoryLinks)
	_, err := links.GetLink("user123")
	assert.Error(t, err)
}

func TestLeaderboardHandler(t *testing.T) {
	b := createTestBot(t)
	mock := NewMockDiscordSession()

	b.leaderboardHandler(mock, createMockMessage("$leaderboard", "user123", "casey", "chan1"))

	require.Len(t, mock.SentMessages, 1)
	content := mock.GetLastMessage().Content
	assert.Contains(t, content, "1. casey")
	assert.Contains(t, content, "2. sam")
}

func TestStatusHandler_Idle(t *testing.T) {
	b := createTestBot(t)
	mock := NewMockDiscordSession()

	b.statusHandler(mock, createMockMessage("$status", "user123", "casey", "chan1"))

	require.Len(t, mock.SentMessages, 1)
	assert.Contains(t, mock.GetLastMessage().Content, "$queue")
}

func TestCancelHandler_NotQueued(t *testing.T) {
	b := createTestBot(t)
	mock := NewMockDiscordSession()

	b.cancelHandler(mock, createMockMessage("$cancel", "user123", "casey", "chan1"))

	require.Len(t, mock.SentMessages, 1)
	assert.Contains(t, mock.GetLastMessage().Content, "not in the queue")
}

func TestAcceptHandler_NoPendingMatch(t *testing.T) {
	b := createTestBot(t)
	mock := NewMockDiscordSession()

	b.acceptHandler(mock, createMockMessage("$accept", "user123", "casey", "chan1"))

	require.Len(t, mock.SentMessages, 1)
	assert.Contains(t, mock.GetLastMessage().Content, "no match")
}

func TestSubmitHandler_RequiresCodeBlock(t *testing.T) {
	b := createTestBot(t)
	mock := NewMockDiscordSession()

	b.submitHandler(mock, createMockMessage("$submit", "user123", "casey", "chan1"))

	require.Len(t, mock.SentMessages, 1)
	assert.Contains(t, mock.GetLastMessage().Content, "code block")
}

func TestResignHandler_OutsideBattle(t *testing.T) {
	b := createTestBot(t)
	mock := NewMockDiscordSession()

	b.resignHandler(mock, createMockMessage("$resign", "user123", "casey", "chan1"))

	require.Len(t, mock.SentMessages, 1)
	assert.Contains(t, mock.GetLastMessage().Content, "not in an active battle")
}

func TestPracticeHandler_FuzzyLookup(t *testing.T) {
	b := createTestBot(t)
	mock := NewMockDiscordSession()

	b.practiceHandler(mock, createMockMessage("$practice two su", "user123", "casey", "chan1"))

	require.Len(t, mock.SentMessages, 1)
	assert.Contains(t, mock.GetLastMessage().Content, "Two Sum")
}

func TestPracticeHandler_RandomWithoutArgs(t *testing.T) {
	b := createTestBot(t)
	mock := NewMockDiscordSession()

	b.practiceHandler(mock, createMockMessage("$practice", "user123", "casey", "chan1"))

	require.Len(t, mock.SentMessages, 1)
	assert.Contains(t, mock.GetLastMessage().Content, "FizzBuzz")
}

func TestQueueHandler_RebindsResultChannel(t *testing.T) {
	b := createTestBot(t)
	mock := NewMockDiscordSession()

	// queueing again from a different channel moves future result posts there
	b.queueHandler(mock, createMockMessage("$queue", "user123", "casey", "chan1"))
	b.queueHandler(mock, createMockMessage("$queue", "user123", "casey", "chan2"))

	s, err := b.session("user123")
	require.NoError(t, err)
	assert.Equal(t, "chan2", s.channel())
}

// TestConcurrentCommandsSameUser dispatches several commands for one user in parallel,
// the way discordgo delivers events; the race detector covers the shared session state
func TestConcurrentCommandsSameUser(t *testing.T) {
	b := createTestBot(t)

	commands := []string{"$status", "$queue", "$resign", "$status", "$queue"}
	var wg sync.WaitGroup
	for _, cmd := range commands {
		wg.Add(1)
		go func(content string) {
			defer wg.Done()
			b.newMessageHandler(NewMockDiscordSession(), createMockMessage(content, "user123", "casey", "chan1"), "bot_id")
		}(cmd)
	}
	wg.Wait()

	b.mu.Lock()
	defer b.mu.Unlock()
	assert.Len(t, b.sessions, 1)
}

func TestSessionReuse(t *testing.T) {
	b := createTestBot(t)
	mock := NewMockDiscordSession()

	// two commands from the same user share one session
	b.ratingHandler(mock, createMockMessage("$rating", "user123", "casey", "chan1"))
	b.statusHandler(mock, createMockMessage("$status", "user123", "casey", "chan1"))

	b.mu.Lock()
	defer b.mu.Unlock()
	assert.Len(t, b.sessions, 1)
	assert.False(t, strings.Contains(mock.SentMessages[1].Content, "error"))
}
