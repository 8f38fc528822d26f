package gif

import (
	"bytes"
	"image/gif"
	"testing"

	"github.com/gorgonia/digits"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncoder(t *testing.T) {
	enc := NewGifEncoder(600, 800)
	assert.Error(t, enc.Flush(), "no writer")

	var buf bytes.Buffer
	enc.Writer = &buf
	require.NoError(t, enc.Flush())
	assert.Equal(t, 0, buf.Len(), "nothing encoded")

	rs := []digits.Recognition{
		{Name: "digits", Number: 1, Height: 2, Width: 2, Result: digits.Result{Digit: digits.Unknown}},
		{Name: "digits", Number: 2, Height: 2, Width: 2, Result: digits.Result{Digit: 1, Confidence: []float32{0, 1}, Grid: []float32{0, 1, 0, 1}}},
	}
	for _, r := range rs {
		require.NoError(t, enc.Encode(r))
	}
	assert.Equal(t, 2, enc.Frames())
	require.NoError(t, enc.Flush())

	g, err := gif.DecodeAll(&buf)
	require.NoError(t, err)
	assert.Len(t, g.Image, 2)
	assert.Equal(t, []int{50, 100}, g.Delay)
	assert.Equal(t, g.Image[0].Bounds(), g.Image[1].Bounds())
}
