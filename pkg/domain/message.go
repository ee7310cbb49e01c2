package domain

// Message roles understood by completers.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a rendered conversation handed to a text-generation service.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
