package main

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorgonia/digits"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counter struct{ encoded, flushed int }

func (c *counter) Encode(digits.Recognition) error {
	c.encoded++
	return nil
}

func (c *counter) Flush() error {
	c.flushed++
	return nil
}

func TestOutputs(t *testing.T) {
	a, b := &counter{}, &counter{}
	outs := outputs{a, b}
	require.NoError(t, outs.Encode(digits.Recognition{}))
	require.NoError(t, outs.Flush())
	assert.Equal(t, counter{1, 1}, *a)
	assert.Equal(t, counter{1, 1}, *b)
}

func TestEncoder(t *testing.T) {
	enc := NewEncoder()
	require.NoError(t, enc.Encode(digits.Recognition{}), "no clients")

	srv := httptest.NewServer(enc)
	defer srv.Close()
	c, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer c.Close()

	require.Eventually(t, func() bool {
		enc.Lock()
		defer enc.Unlock()
		return len(enc.clients) == 1
	}, time.Second, time.Millisecond)

	r := digits.Recognition{
		Name:   "digits",
		Number: 3,
		Height: 2,
		Width:  2,
		Result: digits.Result{Digit: 1, Confidence: []float32{0, 1}, Grid: []float32{0, 1, 0, 1}},
	}
	require.NoError(t, enc.Encode(r))

	require.NoError(t, c.SetReadDeadline(time.Now().Add(time.Second)))
	_, b, err := c.ReadMessage()
	require.NoError(t, err)
	var got info
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, info{
		Number:     3,
		Digit:      1,
		Confidence: []float32{0, 1},
		Grid:       []float32{0, 1, 0, 1},
		Height:     2,
		Width:      2,
	}, got)

	c.Close()
	require.Eventually(t, func() bool {
		enc.Lock()
		defer enc.Unlock()
		return len(enc.clients) == 0
	}, time.Second, time.Millisecond)
}
