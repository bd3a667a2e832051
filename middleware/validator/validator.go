// Package validator holds the input limits applied to tickets where they
// enter the service: the HTTP API, MCP tools and the process command.
package validator

import (
	"fmt"
	"strings"

	"github.com/sweetpotato0/ai-triage/errors"
)

// Ticket enforces the limits applied to tickets submitted through the API:
// title 5 to 200 characters, description at least 10.
func Ticket(title, description string) error {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	switch n := len([]rune(title)); {
	case n < 5:
		return fmt.Errorf("%w: title must be at least 5 characters", errors.ErrInvalidInput)
	case n > 200:
		return fmt.Errorf("%w: title must be at most 200 characters", errors.ErrInvalidInput)
	}
	if len([]rune(description)) < 10 {
		return fmt.Errorf("%w: description must be at least 10 characters", errors.ErrInvalidInput)
	}
	return nil
}
