package journal

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingSink struct{ calls int }

func (f *failingSink) Append(context.Context, Entry) error {
	f.calls++
	return errors.New("disk full")
}

func TestEntryLine(t *testing.T) {
	at := time.Date(2025, 3, 1, 9, 5, 7, 0, time.UTC)
	assert.Equal(t, "09:05:07 - Timer paused", Entry{At: at, Action: "Timer paused"}.Line())
	assert.Equal(t, "09:05:07 - Vote: alice: K", Entry{At: at, Action: "Vote: alice", Details: "K"}.Line())
}

func TestMemory_KeepsNewestFirst(t *testing.T) {
	m := NewMemory(3)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, m.Append(ctx, Entry{Action: fmt.Sprintf("a%d", i)}))
	}

	recent := m.Recent()
	require.Len(t, recent, 3)
	assert.Equal(t, "a4", recent[0].Action)
	assert.Equal(t, "a2", recent[2].Action)
}

func TestRecorder_SinkErrorsDoNotLoseMemoryEntry(t *testing.T) {
	sink := &failingSink{}
	r := NewRecorder(NewMemory(DefaultKeep), sink)

	err := r.Append(context.Background(), Entry{Action: "Keypress: Delete"})
	assert.Error(t, err)
	assert.Equal(t, 1, sink.calls)
	require.Len(t, r.Recent(), 1)
	assert.Equal(t, "Keypress: Delete", r.Recent()[0].Action)
}
