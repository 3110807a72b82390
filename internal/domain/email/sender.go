package email

import "context"

// Message is a single outbound email.
type Message struct {
	To      string
	ToName  string
	Subject string
	HTML    string
	Text    string
}

// Result is the per-recipient outcome of a batch send.
type Result struct {
	To        string
	Success   bool
	Error     string
	MessageID string
}

// Sender delivers a batch of emails under the caller's deadline. A
// non-nil error means the batch as a whole was aborted (typically the
// deadline expired); the returned results cover whatever was attempted
// before the abort.
type Sender interface {
	SendBatch(ctx context.Context, messages []Message) ([]Result, error)
}
