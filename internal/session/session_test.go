package session

import (
	"sync"
	"testing"
	"time"
)

func TestAppendStampsMessage(t *testing.T) {
	s := NewStore()

	msg := s.Append(Message{Type: TypeUser, Content: "hello"})
	if msg.ID == "" {
		t.Fatal("expected generated id")
	}
	if msg.Timestamp.IsZero() {
		t.Fatal("expected timestamp")
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 message, got %d", s.Len())
	}
}

func TestAppendKeepsExplicitFields(t *testing.T) {
	s := NewStore()
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	msg := s.Append(Message{ID: "m-1", Type: TypeAssistant, Content: "hi", Timestamp: ts})
	if msg.ID != "m-1" || !msg.Timestamp.Equal(ts) {
		t.Fatalf("explicit fields were overwritten: %+v", msg)
	}
}

func TestListReturnsCopy(t *testing.T) {
	s := NewStore()
	s.Append(Message{Type: TypeUser, Content: "one"})
	s.Append(Message{Type: TypeAssistant, Content: "two"})

	list := s.List()
	if len(list) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(list))
	}
	list[0].Content = "mutated"
	if s.List()[0].Content != "one" {
		t.Fatal("List must return an independent copy")
	}
}

func TestClear(t *testing.T) {
	s := NewStore()
	s.Append(Message{Type: TypeUser, Content: "one"})
	s.Clear()
	if s.Len() != 0 {
		t.Fatalf("expected empty transcript, got %d", s.Len())
	}
}

func TestConcurrentAppend(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Append(Message{Type: TypeUser, Content: "x"})
		}()
	}
	wg.Wait()
	if s.Len() != 20 {
		t.Fatalf("expected 20 messages, got %d", s.Len())
	}
}
