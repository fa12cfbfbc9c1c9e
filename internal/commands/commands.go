// Package commands handles slash command parsing for the arena TUI.
package commands

import (
	"strings"
)

// Command interface for all command types
type Command interface {
	Type() string
}

// Help returns help text
type Help struct{}

func (Help) Type() string { return "help" }

// Battle starts a new round with two topics
type Battle struct {
	TopicA string
	TopicB string
}

func (Battle) Type() string { return "battle" }

// Retry restarts one provider's pitch with a fresh retry budget
type Retry struct {
	Provider string
}

func (Retry) Type() string { return "retry" }

// Judge requests a verdict on the finished round
type Judge struct{}

func (Judge) Type() string { return "judge" }

// Stop aborts all in-flight streams
type Stop struct{}

func (Stop) Type() string { return "stop" }

// ShowHistory shows past rounds
type ShowHistory struct{}

func (ShowHistory) Type() string { return "history" }

// Export writes the current round to a markdown file
type Export struct{}

func (Export) Type() string { return "export" }

// Health runs a gateway health check
type Health struct{}

func (Health) Type() string { return "health" }

// Quit exits the program
type Quit struct{}

func (Quit) Type() string { return "quit" }

// ParseError represents a command parsing error
type ParseError struct {
	Message string
}

func (ParseError) Type() string { return "error" }

// Parse parses user input and returns the appropriate Command.
// Returns nil if the input is not a slash command.
func Parse(input string) Command {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "/") {
		return nil
	}

	parts := strings.Fields(input)
	if len(parts) == 0 {
		return nil
	}

	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "/help":
		return Help{}

	case "/battle":
		// Topics are separated by "vs", e.g. /battle coffee vs tea
		rest := strings.Join(args, " ")
		topicA, topicB, ok := splitTopics(rest)
		if !ok {
			return ParseError{Message: "/battle requires two topics: /battle <topic A> vs <topic B>"}
		}
		return Battle{TopicA: topicA, TopicB: topicB}

	case "/retry":
		if len(args) == 0 {
			return ParseError{Message: "/retry requires a provider: claude, gpt, or gemini"}
		}
		return Retry{Provider: strings.ToLower(args[0])}

	case "/judge":
		return Judge{}

	case "/stop":
		return Stop{}

	case "/history":
		return ShowHistory{}

	case "/export":
		return Export{}

	case "/health":
		return Health{}

	case "/quit", "/q":
		return Quit{}

	default:
		return ParseError{Message: "unknown command: " + cmd}
	}
}

// splitTopics splits "coffee vs tea" around the first standalone "vs",
// case-insensitive. Both sides must be non-empty.
func splitTopics(s string) (string, string, bool) {
	fields := strings.Fields(s)
	for i, f := range fields {
		if strings.EqualFold(f, "vs") || strings.EqualFold(f, "vs.") {
			a := strings.Join(fields[:i], " ")
			b := strings.Join(fields[i+1:], " ")
			if a == "" || b == "" {
				return "", "", false
			}
			return a, b, true
		}
	}
	return "", "", false
}

// HelpText returns the help text for all available commands.
func HelpText() string {
	return `Available commands:
  /help                      - Show this help
  /battle <A> vs <B>         - Start a new pitch battle between two topics
  /retry <provider>          - Re-run one provider with a fresh retry budget
  /judge                     - Score the finished round
  /stop                      - Abort all in-flight streams
  /history                   - Show past rounds
  /export                    - Export the current round to markdown
  /health                    - Check gateway and provider status
  /quit                      - Exit`
}
