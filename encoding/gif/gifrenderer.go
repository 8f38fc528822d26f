package gif

import (
	"image/gif"
	"io"

	"github.com/gorgonia/digits"
	"github.com/gorgonia/digits/encoding/frame"
	"github.com/pkg/errors"
)

// Encoder is a structure that encodes recognitions according to the digits.OutputEncoder interface.
// Every recognition becomes a frame of an animated gif, written out on Flush.
type Encoder struct {
	*frame.Renderer
	io.Writer

	out *gif.GIF
}

// NewGifEncoder with height and width
func NewGifEncoder(h, w int) *Encoder {
	return &Encoder{
		Renderer: frame.NewRenderer(h, w),
		out:      &gif.GIF{LoopCount: -1},
	}
}

// Frames returns the number of frames encoded so far.
func (enc *Encoder) Frames() int { return len(enc.out.Image) }

// Encode a recognition
func (enc *Encoder) Encode(r digits.Recognition) error {
	delay := 100
	if r.Digit == digits.Unknown {
		delay = 50
	}
	enc.out.Image = append(enc.out.Image, enc.Render(r))
	enc.out.Delay = append(enc.out.Delay, delay)
	return nil
}

// Flush writes the gif into the writer
func (enc *Encoder) Flush() error {
	if enc.Writer == nil {
		return errors.New("gif encoder has no writer")
	}
	if len(enc.out.Image) == 0 {
		return nil
	}
	return errors.WithStack(gif.EncodeAll(enc.Writer, enc.out))
}
