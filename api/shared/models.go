/* models.go
 * This file contain the structs that are shared between sub packages and returned to api consumers. The field names
 * and json tags follow the arena backend's response payloads exactly
 * Authors: Zachary Bower
 */

package shared

import "encoding/json"

// User is the authenticated player profile returned by GET /auth/me
type User struct {
	ID           int    `json:"id"`
	Username     string `json:"username"`
	DisplayName  string `json:"display_name,omitempty"`
	Email        string `json:"email,omitempty"`
	Rating       int    `json:"rating"`
	WinStreak    int    `json:"win_streak,omitempty"`
	LossStreak   int    `json:"loss_streak,omitempty"`
	AvatarAnimal string `json:"avatar_animal,omitempty"`
	AvatarColor  string `json:"avatar_color,omitempty"`
	IsAdmin      bool   `json:"is_admin,omitempty"`
}

// Opponent is the read-only snapshot of the other player attached to a battle once matched
type Opponent struct {
	ID           int    `json:"id"`
	Username     string `json:"username"`
	DisplayName  string `json:"display_name,omitempty"`
	Rating       int    `json:"rating"`
	AvatarAnimal string `json:"avatar_animal,omitempty"`
	AvatarColor  string `json:"avatar_color,omitempty"`
}

// Exercise describes a coding problem. TimeLimit is in seconds and doubles as the
// battle duration cap when the exercise is the subject of a ranked match
type Exercise struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Description   string   `json:"description,omitempty"`
	Content       string   `json:"content,omitempty"`
	Difficulty    string   `json:"difficulty"`
	Tags          []string `json:"tags,omitempty"`
	TimeLimit     int      `json:"timeLimit,omitempty"`
	MemoryLimit   string   `json:"memoryLimit,omitempty"`
	StarterCode   string   `json:"starterCode,omitempty"`
	EditableStart int      `json:"editable_start,omitempty"`
	EditableEnd   int      `json:"editable_end,omitempty"`
}

// Submission statuses reported by the backend judge
const (
	SubmissionQueued           = "queued"
	SubmissionRunning          = "running"
	SubmissionPassed           = "passed"
	SubmissionFailed           = "failed"
	SubmissionCompilationError = "compilation_error"
	SubmissionRuntimeError     = "runtime_error"
)

// Submission is a judged (or in-flight) code submission. TestResults is kept raw
// because the backend sometimes double encodes it as a JSON string
type Submission struct {
	ID                 int             `json:"id"`
	UserID             int             `json:"user_id,omitempty"`
	Status             string          `json:"status"`
	CompilationSuccess bool            `json:"compilation_success,omitempty"`
	CompilationError   string          `json:"compilation_error,omitempty"`
	TestResults        json.RawMessage `json:"test_results,omitempty"`
}

// Terminal reports whether a submission status is final. Queued and running
// submissions must never be surfaced to callers as a result
func (s Submission) Terminal() bool {
	switch s.Status {
	case SubmissionPassed, SubmissionFailed, SubmissionCompilationError, SubmissionRuntimeError:
		return true
	}
	return false
}

// LeaderboardEntry is one row of GET /auth/leaderboard
type LeaderboardEntry struct {
	Rank     int    `json:"rank,omitempty"`
	Username string `json:"username"`
	Rating   int    `json:"rating"`
	Wins     int    `json:"wins,omitempty"`
	Losses   int    `json:"losses,omitempty"`
}
