package chat

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionStore_AppendAndHistory(t *testing.T) {
	t.Run("unknown session has empty history", func(t *testing.T) {
		store := NewSessionStore(20)
		assert.Empty(t, store.History("nope"))
		assert.Equal(t, 0, store.Len("nope"))
	})

	t.Run("turns come back in append order", func(t *testing.T) {
		store := NewSessionStore(20)
		store.Append("s1", RoleUser, "how much water per cow?")
		store.Append("s1", RoleAssistant, "60-80 liters per day")

		history := store.History("s1")
		require.Len(t, history, 2)
		assert.Equal(t, Turn{Role: RoleUser, Content: "how much water per cow?"}, history[0])
		assert.Equal(t, Turn{Role: RoleAssistant, Content: "60-80 liters per day"}, history[1])
	})

	t.Run("sessions are independent", func(t *testing.T) {
		store := NewSessionStore(20)
		store.Append("a", RoleUser, "question a")
		store.Append("b", RoleUser, "question b")

		require.Len(t, store.History("a"), 1)
		assert.Equal(t, "question a", store.History("a")[0].Content)
		assert.Equal(t, "question b", store.History("b")[0].Content)
	})
}

func TestSessionStore_FIFOEviction(t *testing.T) {
	store := NewSessionStore(20)
	for i := 0; i < 30; i++ {
		store.Append("s", RoleUser, fmt.Sprintf("turn %d", i))
	}

	history := store.History("s")
	require.Len(t, history, 20)
	assert.Equal(t, "turn 10", history[0].Content)
	assert.Equal(t, "turn 29", history[19].Content)
}

func TestSessionStore_HistoryReturnsCopy(t *testing.T) {
	store := NewSessionStore(20)
	store.Append("s", RoleUser, "original")

	history := store.History("s")
	history[0].Content = "mutated"

	assert.Equal(t, "original", store.History("s")[0].Content)
}

func TestSessionStore_ConcurrentAppends(t *testing.T) {
	store := NewSessionStore(20)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			store.Append("shared", RoleUser, fmt.Sprintf("turn %d", n))
		}(i)
	}
	wg.Wait()

	history := store.History("shared")
	assert.Len(t, history, 20)
	for _, turn := range history {
		assert.Equal(t, RoleUser, turn.Role)
		assert.NotEmpty(t, turn.Content)
	}
}

func TestNewSessionStore_DefaultCap(t *testing.T) {
	store := NewSessionStore(0)
	for i := 0; i < 25; i++ {
		store.Append("s", RoleUser, "x")
	}
	assert.Equal(t, 20, store.Len("s"))
}
