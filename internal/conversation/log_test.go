package conversation

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func newTestLog(t *testing.T, contents ...string) *Log {
	t.Helper()

	fixed := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	l := NewLog()
	l.now = func() time.Time { return fixed }

	for _, c := range contents {
		if _, err := l.Append(RoleAssistant, c); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	return l
}

func TestAppendRejectsUnknownRole(t *testing.T) {
	l := NewLog()

	if _, err := l.Append(Role("tool"), "x"); !errors.Is(err, ErrUnknownRole) {
		t.Fatalf("expected ErrUnknownRole, got %v", err)
	}

	if l.Len() != 0 {
		t.Fatalf("expected empty log, got %d", l.Len())
	}
}

func TestAtSupportsNegativeIndexes(t *testing.T) {
	l := newTestLog(t, "a", "b", "c")

	tests := []struct {
		index  int
		expect string
	}{
		{index: 0, expect: "a"},
		{index: 2, expect: "c"},
		{index: -1, expect: "c"},
		{index: -3, expect: "a"},
	}

	for _, tt := range tests {
		msg, err := l.At(tt.index)
		if err != nil {
			t.Fatalf("At(%d): unexpected error: %v", tt.index, err)
		}
		if msg.Content != tt.expect {
			t.Fatalf("At(%d): expected %q, got %q", tt.index, tt.expect, msg.Content)
		}
	}
}

func TestAtOutOfRange(t *testing.T) {
	l := newTestLog(t, "a", "b")

	for _, index := range []int{2, -3, 10} {
		if _, err := l.At(index); !errors.Is(err, ErrOutOfRange) {
			t.Fatalf("At(%d): expected ErrOutOfRange, got %v", index, err)
		}
	}
}

func TestTail(t *testing.T) {
	l := newTestLog(t, "a", "b", "c")

	if got := l.Tail(0); len(got) != 0 {
		t.Fatalf("expected no messages, got %d", len(got))
	}

	if got := Contents(l.Tail(2)); got != "b\nc" {
		t.Fatalf("unexpected tail: %q", got)
	}

	if got := l.Tail(50); len(got) != 3 {
		t.Fatalf("expected whole log when n exceeds length, got %d", len(got))
	}
}

func TestTailIsIdempotentAndDoesNotAlias(t *testing.T) {
	l := newTestLog(t, "a", "b", "c")

	first := l.Tail(2)
	second := l.Tail(2)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("tail differs between calls: %+v vs %+v", first, second)
	}

	first[0].Content = "mutated"
	if msg, _ := l.At(-2); msg.Content != "b" {
		t.Fatalf("tail result aliases log storage")
	}
}
