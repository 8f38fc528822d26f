package mjpeg

import (
	"bytes"
	"image/jpeg"
	"log"
	"net/http"

	"github.com/gorgonia/digits"
	"github.com/gorgonia/digits/encoding/frame"
	"github.com/mattn/go-mjpeg"
	"github.com/pkg/errors"
)

// Encoder streams recognitions as motion JPEG over HTTP according to the digits.OutputEncoder interface.
// Each recognition replaces the frame shown to connected clients.
type Encoder struct {
	*frame.Renderer

	stream *mjpeg.Stream
	frames int
}

func (e *Encoder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	e.stream.ServeHTTP(w, r)
}

// NewEncoder with height and width
func NewEncoder(h, w int) *Encoder {
	return &Encoder{
		Renderer: frame.NewRenderer(h, w),
		stream:   mjpeg.NewStream(),
	}
}

// Frames returns the number of frames streamed so far.
func (enc *Encoder) Frames() int { return enc.frames }

// Encode a recognition
func (enc *Encoder) Encode(r digits.Recognition) error {
	var b bytes.Buffer
	if err := jpeg.Encode(&b, enc.Render(r), nil); err != nil {
		log.Println(err)
		return errors.WithStack(err)
	}
	if err := enc.stream.Update(b.Bytes()); err != nil {
		log.Println(err)
		return errors.WithStack(err)
	}
	enc.frames++
	return nil
}

func (enc *Encoder) Flush() error { return nil }
