package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DoyleJ11/selection-protocol/internal/types"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestURL(t *testing.T) {
	cases := []struct {
		base, channel, want string
		wantErr             bool
	}{
		{"http://localhost:8080", "main", "ws://localhost:8080/ws?channel=main", false},
		{"https://example.com/", "", "wss://example.com/ws", false},
		{"ws://host:1/prefix", "a b", "ws://host:1/prefix/ws?channel=a+b", false},
		{"ftp://host", "main", "", true},
	}
	for _, tc := range cases {
		got, err := URL(tc.base, tc.channel)
		if tc.wantErr {
			assert.Error(t, err, tc.base)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}
}

// echoServer answers each command with an event named "<cmd>_ack" whose ref
// is the command id, then a trailing "done" event.
func echoServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "")
		for {
			var env types.Envelope
			if err := wsjson.Read(r.Context(), conn, &env); err != nil {
				return
			}
			ack := types.Envelope{Event: env.Event + "_ack", Ref: env.ID, Data: env.Data}
			if err := wsjson.Write(r.Context(), conn, ack); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestEmitAndDispatchInOrder(t *testing.T) {
	srv := echoServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	endpoint, err := URL(srv.URL, "main")
	require.NoError(t, err)
	c, err := Dial(ctx, endpoint, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer c.Close()

	got := make(chan types.Envelope, 4)
	c.On("first_ack", func(env types.Envelope) { got <- env })
	c.On("second_ack", func(env types.Envelope) { got <- env })
	go c.Run(ctx)

	id1, err := c.Emit("first", types.VoteTypePayload{VoteType: "k"})
	require.NoError(t, err)
	id2, err := c.Emit("second", nil)
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)

	first := <-got
	second := <-got
	assert.Equal(t, "first_ack", first.Event)
	assert.Equal(t, id1, first.Ref)
	assert.True(t, strings.Contains(string(first.Data), `"vote_type":"k"`))
	assert.Equal(t, "second_ack", second.Event)
	assert.Equal(t, id2, second.Ref)
}

func TestEmitAfterClose(t *testing.T) {
	srv := echoServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	endpoint, _ := URL(srv.URL, "")
	c, err := Dial(ctx, endpoint, nil)
	require.NoError(t, err)
	require.NoError(t, c.Close())

	_, err = c.Emit("late", nil)
	assert.ErrorIs(t, err, ErrClosed)
}
