// Package domain holds the plain data types shared across the
// orchestration kernel: inbox messages, tasks, and agent configuration.
package domain

import "time"

// Message is one entry in an agent's inbox. Text is either a
// human-readable payload or a serialized protocol envelope.
type Message struct {
	From      string    `json:"from"`
	Text      string    `json:"text"`
	Summary   string    `json:"summary"`
	Timestamp time.Time `json:"timestamp"`
	Color     string    `json:"color,omitempty"`
	Read      bool      `json:"read"`
}

const summaryMaxLen = 80

// NewMessage builds a Message with a derived summary (truncated to 80
// runes of text) when summary is empty, and a UTC timestamp.
func NewMessage(from, text, summary, color string, at time.Time) Message {
	if summary == "" {
		summary = truncate(text, summaryMaxLen)
	}
	return Message{
		From:      from,
		Text:      text,
		Summary:   summary,
		Timestamp: at.UTC(),
		Color:     color,
		Read:      false,
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
