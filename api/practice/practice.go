/* practice.go
 * Contains the practice mode operations: browsing exercises, fuzzy lookup by title, untimed
 * submissions and the bounded wait for a judge verdict
 * Authors: Zachary Bower
 */

package practice

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"arena-bot/api/client"
	"arena-bot/api/shared"
)

const (
	// verdictMaxAttempts bounds the submission poll loop
	verdictMaxAttempts = 30
	verdictInterval    = time.Second
)

var ErrVerdictTimeout = errors.New("verdict timed out, check the submission later")

// Service wraps the /practice endpoints
type Service struct {
	C *client.Client
}

// NewService creates a practice service over the given client
func NewService(c *client.Client) *Service {
	return &Service{C: c}
}

// Exercises lists practice exercises, optionally filtered by difficulty ("easy",
// "medium", "hard"; empty means all)
func (s *Service) Exercises(ctx context.Context, difficulty string) ([]shared.Exercise, error) {
	path := "/practice/exercises"
	if difficulty != "" {
		path += "?difficulty=" + url.QueryEscape(difficulty)
	}
	var res struct {
		Exercises []shared.Exercise `json:"exercises"`
	}
	if err := s.C.Get(ctx, path, &res); err != nil {
		return nil, err
	}
	return res.Exercises, nil
}

// Exercise fetches a single exercise by id
func (s *Service) Exercise(ctx context.Context, id string) (shared.Exercise, error) {
	var res struct {
		Exercise shared.Exercise `json:"exercise"`
	}
	if err := s.C.Get(ctx, "/practice/exercises/"+url.PathEscape(id), &res); err != nil {
		return shared.Exercise{}, err
	}
	return res.Exercise, nil
}

// RandomExercise fetches a random exercise, optionally constrained to a difficulty
func (s *Service) RandomExercise(ctx context.Context, difficulty string) (shared.Exercise, error) {
	path := "/practice/random"
	if difficulty != "" {
		path += "?difficulty=" + url.QueryEscape(difficulty)
	}
	var res struct {
		Exercise shared.Exercise `json:"exercise"`
	}
	if err := s.C.Get(ctx, path, &res); err != nil {
		return shared.Exercise{}, err
	}
	return res.Exercise, nil
}

// Submit posts practice code for judging and returns the submission id
func (s *Service) Submit(ctx context.Context, exerciseID, code string) (int, error) {
	body := map[string]string{
		"exerciseId": exerciseID,
		"code":       code,
	}
	var res struct {
		SubmissionID int `json:"submissionId"`
	}
	if err := s.C.Post(ctx, "/practice/submit", body, &res); err != nil {
		return 0, err
	}
	return res.SubmissionID, nil
}

// Submission fetches the current state of a practice submission
func (s *Service) Submission(ctx context.Context, id int) (shared.Submission, error) {
	var res struct {
		Submission shared.Submission `json:"submission"`
	}
	if err := s.C.Get(ctx, fmt.Sprintf("/practice/submissions/%d", id), &res); err != nil {
		return shared.Submission{}, err
	}
	return res.Submission, nil
}

// Submissions lists the user's practice submission history
func (s *Service) Submissions(ctx context.Context) ([]shared.Submission, error) {
	var res struct {
		Submissions []shared.Submission `json:"submissions"`
	}
	if err := s.C.Get(ctx, "/practice/submissions", &res); err != nil {
		return nil, err
	}
	return res.Submissions, nil
}

// WaitForVerdict polls a submission until the judge reports a terminal status. The
// attempt budget keeps a stuck judge from wedging the caller; transport errors consume
// an attempt and are retried
func (s *Service) WaitForVerdict(ctx context.Context, id int) (shared.Submission, error) {
	for attempt := 0; attempt < verdictMaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return shared.Submission{}, ctx.Err()
			case <-time.After(verdictInterval):
			}
		}
		sub, err := s.Submission(ctx, id)
		if err != nil {
			continue
		}
		if sub.Terminal() {
			return sub, nil
		}
	}
	return shared.Submission{}, ErrVerdictTimeout
}

// FindExercise resolves a user supplied title to an exercise using fuzzy matching,
// so partial names like "two su" still land on "Two Sum".
// Preconditions: receives the search query and the list of candidate exercises
// Postconditions: returns the matched exercise, or an error if nothing matched
func FindExercise(query string, exercises []shared.Exercise) (shared.Exercise, error) {
	// Convert titles to lowercase for better matching
	lookup := make(map[string]shared.Exercise)
	var titlesLower []string
	for _, ex := range exercises {
		lower := strings.ToLower(ex.Title)
		lookup[lower] = ex
		titlesLower = append(titlesLower, lower)
	}

	lowerQuery := strings.ToLower(query)
	fuzzyResults := fuzzy.RankFind(lowerQuery, titlesLower)
	if len(fuzzyResults) == 0 {
		return shared.Exercise{}, fmt.Errorf("no exercise matching %q", query)
	}
	if len(fuzzyResults) == 1 {
		return lookup[fuzzyResults[0].Target], nil
	}

	// If there are multiple matches, check to see if theres an exact match with the input
	temp := ""
	for i := range fuzzyResults {
		if fuzzyResults[i].Target == lowerQuery {
			temp = fuzzyResults[i].Target
		}
	}
	// If no exact match was found, take the best ranked match
	if temp == "" {
		temp = fuzzyResults[0].Target
	}
	return lookup[temp], nil
}
