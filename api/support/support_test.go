/* support_test.go
 * Contains tests for the support ticket endpoints
 * Authors: Zachary Bower
 */

package support

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arena-bot/api/client"
	"arena-bot/api/creds"
)

func newTestService(t *testing.T, handler http.HandlerFunc) *Service {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	store := creds.NewMemoryStore()
	require.NoError(t, store.SetTokens("access", "refresh"))
	return NewService(client.New(srv.URL, store))
}

func TestCreateTicket(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/support", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Judge stuck on my submission", body["subject"])
		assert.Equal(t, "bug", body["category"])
		json.NewEncoder(w).Encode(map[string]any{
			"ticket": Ticket{ID: 3, Subject: body["subject"], Status: StatusOpen},
		})
	})

	ticket, err := svc.Create(context.Background(), "Judge stuck on my submission", "bug", "Submission 9 has been running for an hour")
	require.NoError(t, err)
	assert.Equal(t, 3, ticket.ID)
	assert.True(t, ticket.Open())
}

func TestTickets_List(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/support", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"tickets": []Ticket{
				{ID: 2, Subject: "Rating recalculation", Status: StatusResolved},
				{ID: 1, Subject: "Cannot log in", Status: StatusClosed},
			},
		})
	})

	tickets, err := svc.Tickets(context.Background())
	require.NoError(t, err)
	require.Len(t, tickets, 2)
	assert.False(t, tickets[0].Open())
}

func TestTicket_Conversation(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/support/5", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"ticket": Ticket{
				ID:      5,
				Subject: "Wrong verdict",
				Status:  StatusPending,
				Messages: []Message{
					{ID: 1, Body: "My passing solution was marked failed"},
					{ID: 2, Body: "We are looking into it", FromStaff: true},
				},
			},
		})
	})

	ticket, err := svc.Ticket(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, ticket.Messages, 2)
	assert.True(t, ticket.Messages[1].FromStaff)
}

func TestReply(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/support/5/message", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		json.NewEncoder(w).Encode(map[string]any{
			"message": Message{ID: 3, Body: body["message"]},
		})
	})

	msg, err := svc.Reply(context.Background(), 5, "Any update?")
	require.NoError(t, err)
	assert.Equal(t, "Any update?", msg.Body)
}
