/* format.go
 * Contains message formatting helpers for the bot's Discord output
 * Authors: Zachary Bower
 */

package bot

import (
	"fmt"
	"strings"

	"arena-bot/api/shared"
)

// Helper function to check if a string starts with a given substring
// Preconditions: Recieves an input string and a substring
// Postconditions: Returns true if the substring is at the start of the string, else returns false
func startsWith(inputString string, substring string) bool {
	//Check if the substring is present in the input string
	if !strings.Contains(inputString, substring) {
		return false
	}
	strLength := len(substring)
	for i := 0; i < strLength; i++ {
		if inputString[i] != substring[i] {
			return false
		}
	}
	return true
}

// formatClock renders seconds as m:ss for battle countdowns
func formatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// extractCode pulls the solution out of a $submit message. A fenced block wins, with
// any language tag on the opening fence dropped; otherwise everything after the
// command word is used as-is
func extractCode(content string) string {
	if first := strings.Index(content, "```"); first != -1 {
		rest := content[first+3:]
		if end := strings.Index(rest, "```"); end != -1 {
			block := rest[:end]
			// Drop a language tag like ```python
			if nl := strings.Index(block, "\n"); nl != -1 {
				firstLine := strings.TrimSpace(block[:nl])
				if firstLine != "" && !strings.ContainsAny(firstLine, " \t(){};") {
					block = block[nl+1:]
				}
			}
			return strings.TrimSpace(block)
		}
	}

	rest := strings.TrimPrefix(content, "$submit")
	return strings.TrimSpace(rest)
}

// verdictMessage renders a terminal submission status for the channel
func verdictMessage(status string) string {
	switch status {
	case shared.SubmissionPassed:
		return "All tests passed! Waiting for the battle to resolve..."
	case shared.SubmissionFailed:
		return "Some tests failed. Keep going!"
	case shared.SubmissionCompilationError:
		return "Your code did not compile"
	case shared.SubmissionRuntimeError:
		return "Your code crashed while running the tests"
	default:
		return fmt.Sprintf("Submission finished with status %s", status)
	}
}

// exerciseCard renders an exercise summary for the channel
func exerciseCard(ex shared.Exercise) string {
	var res strings.Builder
	res.WriteString(fmt.Sprintf("**%s** (%s)\n", ex.Title, ex.Difficulty))
	if ex.Description != "" {
		res.WriteString(ex.Description + "\n")
	}
	if len(ex.Tags) > 0 {
		res.WriteString("Tags: " + strings.Join(ex.Tags, ", ") + "\n")
	}
	if ex.TimeLimit > 0 {
		res.WriteString(fmt.Sprintf("Time limit: %s\n", formatClock(ex.TimeLimit)))
	}
	return res.String()
}
