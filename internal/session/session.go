// Package session keeps the in-memory conversation transcript.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"flowdeck/internal/hume"
	"flowdeck/internal/parser"
)

const (
	TypeUser      = "user"
	TypeAssistant = "assistant"
)

type Message struct {
	ID             string                 `json:"id"`
	Type           string                 `json:"type"`
	Content        string                 `json:"content"`
	Timestamp      time.Time              `json:"timestamp"`
	Emotions       []hume.EmotionScore    `json:"emotions,omitempty"`
	ExecutionSteps []parser.ExecutionStep `json:"executionSteps,omitempty"`
}

// Store holds one process-lifetime transcript. It grows unbounded.
type Store struct {
	mu       sync.Mutex
	messages []Message
}

func NewStore() *Store {
	return &Store{}
}

// Append stamps the message with an id and timestamp if missing and
// adds it to the transcript.
func (s *Store) Append(msg Message) Message {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	return msg
}

// List returns a copy of the transcript in append order.
func (s *Store) List() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
}
