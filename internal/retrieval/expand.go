package retrieval

import "strings"

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message of a conversation.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

const (
	// DefaultHistoryTurns is how far back ExpandQuery looks.
	DefaultHistoryTurns = 4
	// DefaultExpansionTurns is how many user turns ExpandQuery prepends.
	DefaultExpansionTurns = 2
)

// ExpandQuery prepends the content of the last take user turns found among
// the last window turns of history to query, separated by spaces. Without
// such turns it returns query unchanged.
func ExpandQuery(history []Turn, query string, window, take int) string {
	if take <= 0 || window <= 0 || len(history) == 0 {
		return query
	}
	if len(history) > window {
		history = history[len(history)-window:]
	}

	var user []string
	for _, t := range history {
		if t.Role != RoleUser {
			continue
		}
		if c := strings.TrimSpace(t.Content); c != "" {
			user = append(user, c)
		}
	}
	if len(user) == 0 {
		return query
	}
	if len(user) > take {
		user = user[len(user)-take:]
	}
	return strings.Join(user, " ") + " " + query
}
