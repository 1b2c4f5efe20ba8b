/* admin.go
 * Contains the admin operations: user management, exercise authoring and ticket triage.
 * The backend enforces the admin flag server side; nothing here is trusted client side
 * Authors: Zachary Bower
 */

package admin

import (
	"context"
	"fmt"
	"net/url"

	"arena-bot/api/client"
	"arena-bot/api/shared"
	"arena-bot/api/support"
)

// UserUpdate is a partial user edit; nil fields are left untouched
type UserUpdate struct {
	DisplayName *string `json:"display_name,omitempty"`
	Rating      *int    `json:"rating,omitempty"`
	IsAdmin     *bool   `json:"is_admin,omitempty"`
}

// ExerciseInput is the authoring payload for creating or replacing an exercise
type ExerciseInput struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Content     string   `json:"content"`
	Difficulty  string   `json:"difficulty"`
	Tags        []string `json:"tags,omitempty"`
	TimeLimit   int      `json:"timeLimit,omitempty"`
	StarterCode string   `json:"starterCode,omitempty"`
	TestCases   string   `json:"testCases,omitempty"`
}

// Service wraps the /admin endpoints
type Service struct {
	C *client.Client
}

// NewService creates an admin service over the given client
func NewService(c *client.Client) *Service {
	return &Service{C: c}
}

// Users lists all registered users
func (s *Service) Users(ctx context.Context) ([]shared.User, error) {
	var res struct {
		Users []shared.User `json:"users"`
	}
	if err := s.C.Get(ctx, "/admin/users", &res); err != nil {
		return nil, err
	}
	return res.Users, nil
}

// UpdateUser applies a partial edit to a user
func (s *Service) UpdateUser(ctx context.Context, id int, update UserUpdate) (shared.User, error) {
	var res struct {
		User shared.User `json:"user"`
	}
	if err := s.C.Put(ctx, fmt.Sprintf("/admin/users/%d", id), update, &res); err != nil {
		return shared.User{}, err
	}
	return res.User, nil
}

// DeleteUser removes a user account
func (s *Service) DeleteUser(ctx context.Context, id int) error {
	return s.C.Delete(ctx, fmt.Sprintf("/admin/users/%d", id), nil)
}

// Exercises lists all exercises including unpublished ones
func (s *Service) Exercises(ctx context.Context) ([]shared.Exercise, error) {
	var res struct {
		Exercises []shared.Exercise `json:"exercises"`
	}
	if err := s.C.Get(ctx, "/admin/exercises", &res); err != nil {
		return nil, err
	}
	return res.Exercises, nil
}

// CreateExercise adds a new exercise to the catalogue
func (s *Service) CreateExercise(ctx context.Context, input ExerciseInput) (shared.Exercise, error) {
	var res struct {
		Exercise shared.Exercise `json:"exercise"`
	}
	if err := s.C.Post(ctx, "/admin/exercises", input, &res); err != nil {
		return shared.Exercise{}, err
	}
	return res.Exercise, nil
}

// UpdateExercise replaces an exercise's authoring fields
func (s *Service) UpdateExercise(ctx context.Context, id string, input ExerciseInput) (shared.Exercise, error) {
	var res struct {
		Exercise shared.Exercise `json:"exercise"`
	}
	if err := s.C.Put(ctx, "/admin/exercises/"+url.PathEscape(id), input, &res); err != nil {
		return shared.Exercise{}, err
	}
	return res.Exercise, nil
}

// DeleteExercise removes an exercise from the catalogue
func (s *Service) DeleteExercise(ctx context.Context, id string) error {
	return s.C.Delete(ctx, "/admin/exercises/"+url.PathEscape(id), nil)
}

// Tickets lists every open ticket across all users
func (s *Service) Tickets(ctx context.Context) ([]support.Ticket, error) {
	var res struct {
		Tickets []support.Ticket `json:"tickets"`
	}
	if err := s.C.Get(ctx, "/admin/tickets", &res); err != nil {
		return nil, err
	}
	return res.Tickets, nil
}

// Ticket fetches one ticket with its conversation, regardless of owner
func (s *Service) Ticket(ctx context.Context, id int) (support.Ticket, error) {
	var res struct {
		Ticket support.Ticket `json:"ticket"`
	}
	if err := s.C.Get(ctx, fmt.Sprintf("/admin/tickets/%d", id), &res); err != nil {
		return support.Ticket{}, err
	}
	return res.Ticket, nil
}

// Reply posts a staff response on a ticket
func (s *Service) Reply(ctx context.Context, id int, body string) (support.Message, error) {
	payload := map[string]string{"message": body}
	var res struct {
		Message support.Message `json:"message"`
	}
	if err := s.C.Post(ctx, fmt.Sprintf("/admin/tickets/%d/message", id), payload, &res); err != nil {
		return support.Message{}, err
	}
	return res.Message, nil
}

// SetTicketStatus moves a ticket between open, pending, resolved and closed
func (s *Service) SetTicketStatus(ctx context.Context, id int, status string) (support.Ticket, error) {
	payload := map[string]string{"status": status}
	var res struct {
		Ticket support.Ticket `json:"ticket"`
	}
	if err := s.C.Put(ctx, fmt.Sprintf("/admin/tickets/%d/status", id), payload, &res); err != nil {
		return support.Ticket{}, err
	}
	return res.Ticket, nil
}
