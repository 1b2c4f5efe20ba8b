/* service.go
 * Contains the thin wrappers over the /battle REST endpoints. The lifecycle state machine in
 * lifecycle.go drives these through the Backend interface so tests can script responses
 * Authors: Zachary Bower
 */

package battle

import (
	"context"
	"fmt"

	"arena-bot/api/client"
	"arena-bot/api/shared"
)

// Backend is the set of backend operations the lifecycle needs.
// *Service is the real implementation; tests supply scripted ones.
type Backend interface {
	JoinQueue(ctx context.Context) (QueueStatus, error)
	LeaveQueue(ctx context.Context) error
	QueueStatus(ctx context.Context) (QueueStatus, error)
	Active(ctx context.Context) (ActiveBattle, error)
	Accept(ctx context.Context, battleID int) error
	Submit(ctx context.Context, battleID int, exerciseID string, code string) (int, error)
	Submission(ctx context.Context, submissionID int) (shared.Submission, error)
	Resign(ctx context.Context, battleID int) (ResignResult, error)
	Me(ctx context.Context) (shared.User, error)
}

// Service wraps the /battle endpoints
type Service struct {
	C *client.Client
}

// NewService creates a battle service over the given client
func NewService(c *client.Client) *Service {
	return &Service{C: c}
}

// JoinQueue enters the ranked matchmaking queue
func (s *Service) JoinQueue(ctx context.Context) (QueueStatus, error) {
	var res QueueStatus
	if err := s.C.Post(ctx, "/battle/join-queue", map[string]string{}, &res); err != nil {
		return QueueStatus{}, err
	}
	if res.Status == "" {
		res.Status = "waiting"
	}
	return res, nil
}

// LeaveQueue exits the matchmaking queue
func (s *Service) LeaveQueue(ctx context.Context) error {
	return s.C.Post(ctx, "/battle/leave-queue", map[string]string{}, nil)
}

// QueueStatus fetches the current matchmaking state
func (s *Service) QueueStatus(ctx context.Context) (QueueStatus, error) {
	var res QueueStatus
	if err := s.C.Get(ctx, "/battle/queue-status", &res); err != nil {
		return QueueStatus{}, err
	}
	return res, nil
}

// Active fetches the user's current battle with opponent, exercise and submissions
func (s *Service) Active(ctx context.Context) (ActiveBattle, error) {
	var res ActiveBattle
	if err := s.C.Get(ctx, "/battle/active", &res); err != nil {
		return ActiveBattle{}, err
	}
	return res, nil
}

// Accept confirms readiness for a pending match
func (s *Service) Accept(ctx context.Context, battleID int) error {
	return s.C.Post(ctx, fmt.Sprintf("/battle/%d/accept", battleID), map[string]string{}, nil)
}

// Submit posts code for judging and returns the submission id to poll
func (s *Service) Submit(ctx context.Context, battleID int, exerciseID string, code string) (int, error) {
	var res struct {
		SubmissionID int `json:"submissionId"`
	}
	err := s.C.Post(ctx, "/battle/submit", map[string]interface{}{
		"battleId":   battleID,
		"exerciseId": exerciseID,
		"code":       code,
	}, &res)
	if err != nil {
		return 0, err
	}
	if res.SubmissionID == 0 {
		return 0, fmt.Errorf("submit response missing submissionId")
	}
	return res.SubmissionID, nil
}

// Submission fetches the current state of a battle submission
func (s *Service) Submission(ctx context.Context, submissionID int) (shared.Submission, error) {
	var res struct {
		Submission shared.Submission `json:"submission"`
	}
	if err := s.C.Get(ctx, fmt.Sprintf("/battle/submissions/%d", submissionID), &res); err != nil {
		return shared.Submission{}, err
	}
	return res.Submission, nil
}

// Resign forfeits the battle. Irreversible; callers are expected to double confirm intent
func (s *Service) Resign(ctx context.Context, battleID int) (ResignResult, error) {
	var res ResignResult
	if err := s.C.Post(ctx, fmt.Sprintf("/battle/%d/resign", battleID), map[string]string{}, &res); err != nil {
		return ResignResult{}, err
	}
	return res, nil
}

// Me fetches the authenticated user. The lifecycle uses this to capture the rating when a
// battle activates and to compute the post-battle delta
func (s *Service) Me(ctx context.Context) (shared.User, error) {
	var res struct {
		User shared.User `json:"user"`
	}
	if err := s.C.Get(ctx, "/auth/me", &res); err != nil {
		return shared.User{}, err
	}
	return res.User, nil
}

// Ensure Service implements Backend
var _ Backend = (*Service)(nil)
