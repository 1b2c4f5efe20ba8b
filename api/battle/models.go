/* models.go
 * Contains the structs for the /battle endpoints. The battle itself is owned by the backend; the
 * client only ever holds a read mostly cached copy refreshed by polling
 * Authors: Zachary Bower
 */

package battle

import (
	"time"

	"arena-bot/api/shared"
)

// Battle statuses reported by the backend
const (
	BattlePending   = "pending"
	BattleActive    = "active"
	BattleCompleted = "completed"
	BattleFinished  = "finished"
	BattleAborted   = "aborted"
)

// QueueStatus is the matchmaking queue state for the authenticated user.
// Status is "none", "waiting"/"queued", or "matched"
type QueueStatus struct {
	Status           string `json:"status"`
	BattleID         int    `json:"battleId,omitempty"`
	Rating           int    `json:"rating,omitempty"`
	SearchDifficulty string `json:"searchDifficulty,omitempty"`
}

// Matched reports whether the queue has resolved into a battle
func (q QueueStatus) Matched() bool {
	return q.Status == "matched"
}

// Battle is the backend's record of a ranked match. CreatedAt is the matchmaking
// timestamp the accept countdown derives from; StartedAt is set once both sides accept
type Battle struct {
	ID              int       `json:"id"`
	Status          string    `json:"status"`
	ExerciseID      string    `json:"exerciseId"`
	CreatedAt       time.Time `json:"createdAt,omitempty"`
	StartedAt       time.Time `json:"startedAt,omitempty"`
	WinnerID        int       `json:"winnerId,omitempty"`
	IsPlayer1       bool      `json:"isPlayer1,omitempty"`
	Player1Accepted bool      `json:"player1Accepted,omitempty"`
	Player2Accepted bool      `json:"player2Accepted,omitempty"`
}

// Terminal reports whether the battle has reached a final status
func (b Battle) Terminal() bool {
	switch b.Status {
	case BattleCompleted, BattleFinished, BattleAborted:
		return true
	}
	return false
}

// acceptedByMe reports whether the local player has already accepted the match
func (b Battle) acceptedByMe() bool {
	if b.IsPlayer1 {
		return b.Player1Accepted
	}
	return b.Player2Accepted
}

// ActiveBattle is the GET /battle/active payload: the battle plus the opponent
// snapshot, the exercise and any submissions made so far. Battle is nil when the
// user has no active battle
type ActiveBattle struct {
	Battle      *Battle             `json:"battle"`
	Opponent    *shared.Opponent    `json:"opponent,omitempty"`
	Exercise    *shared.Exercise    `json:"exercise,omitempty"`
	Submissions []shared.Submission `json:"submissions,omitempty"`
}

// ResignResult is the POST /battle/:id/resign payload. The backend reports the rating
// delta directly on this path so the client does not race the rating recalculation
type ResignResult struct {
	RatingDelta *int `json:"ratingDelta,omitempty"`
}

// Result is the post-battle notification handed to the registered notifier,
// emitted exactly once per battle id
type Result struct {
	BattleID int
	Outcome  string // "win", "loss" or "draw"
	Delta    int
}
