/* support.go
 * Contains the support ticket operations: opening tickets, listing the user's tickets and
 * continuing the conversation on an existing ticket
 * Authors: Zachary Bower
 */

package support

import (
	"context"
	"fmt"
	"time"

	"arena-bot/api/client"
)

// Ticket statuses reported by the backend
const (
	StatusOpen     = "open"
	StatusPending  = "pending"
	StatusResolved = "resolved"
	StatusClosed   = "closed"
)

// Message is one entry in a ticket conversation. FromStaff distinguishes admin replies
type Message struct {
	ID        int       `json:"id"`
	Body      string    `json:"body"`
	FromStaff bool      `json:"from_staff,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Ticket is a support request with its conversation thread
type Ticket struct {
	ID        int       `json:"id"`
	Subject   string    `json:"subject"`
	Category  string    `json:"category,omitempty"`
	Status    string    `json:"status"`
	Messages  []Message `json:"messages,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Open reports whether the ticket still accepts messages
func (t Ticket) Open() bool {
	return t.Status != StatusResolved && t.Status != StatusClosed
}

// Service wraps the /support endpoints
type Service struct {
	C *client.Client
}

// NewService creates a support service over the given client
func NewService(c *client.Client) *Service {
	return &Service{C: c}
}

// Tickets lists the authenticated user's tickets, newest first
func (s *Service) Tickets(ctx context.Context) ([]Ticket, error) {
	var res struct {
		Tickets []Ticket `json:"tickets"`
	}
	if err := s.C.Get(ctx, "/support", &res); err != nil {
		return nil, err
	}
	return res.Tickets, nil
}

// Create opens a new ticket with an initial message
func (s *Service) Create(ctx context.Context, subject, category, body string) (Ticket, error) {
	payload := map[string]string{
		"subject":  subject,
		"category": category,
		"message":  body,
	}
	var res struct {
		Ticket Ticket `json:"ticket"`
	}
	if err := s.C.Post(ctx, "/support", payload, &res); err != nil {
		return Ticket{}, err
	}
	return res.Ticket, nil
}

// Ticket fetches one ticket with its full conversation
func (s *Service) Ticket(ctx context.Context, id int) (Ticket, error) {
	var res struct {
		Ticket Ticket `json:"ticket"`
	}
	if err := s.C.Get(ctx, fmt.Sprintf("/support/%d", id), &res); err != nil {
		return Ticket{}, err
	}
	return res.Ticket, nil
}

// Reply appends a message to an existing ticket
func (s *Service) Reply(ctx context.Context, id int, body string) (Message, error) {
	payload := map[string]string{"message": body}
	var res struct {
		Message Message `json:"message"`
	}
	if err := s.C.Post(ctx, fmt.Sprintf("/support/%d/message", id), payload, &res); err != nil {
		return Message{}, err
	}
	return res.Message, nil
}
