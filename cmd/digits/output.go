package main

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorgonia/digits"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

// Encoder is a structure that sends recognitions to websocket clients according to the digits.OutputEncoder interface.
// Clients that fall behind miss recognitions.
type Encoder struct {
	sync.Mutex
	clients map[chan []byte]struct{}
}

type info struct {
	Number     int       `json:"number"`
	Digit      int       `json:"digit"`
	Blank      bool      `json:"blank"`
	Confidence []float32 `json:"confidence"`
	Grid       []float32 `json:"grid,omitempty"`
	Height     int       `json:"height"`
	Width      int       `json:"width"`
}

var upgrader = websocket.Upgrader{} // use default options

func (enc *Encoder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Print("upgrade:", err)
		return
	}
	defer c.Close()

	ch := make(chan []byte, 16)
	enc.Lock()
	enc.clients[ch] = struct{}{}
	enc.Unlock()
	defer func() {
		enc.Lock()
		delete(enc.clients, ch)
		enc.Unlock()
	}()

	// clients only listen; reading notices when they go away
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := c.NextReader(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case b := <-ch:
			if err = c.WriteMessage(websocket.TextMessage, b); err != nil {
				log.Println("write:", err)
				return
			}
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}

// NewEncoder creates an Encoder with no clients.
func NewEncoder() *Encoder {
	return &Encoder{clients: make(map[chan []byte]struct{})}
}

// Encode a recognition
func (enc *Encoder) Encode(r digits.Recognition) error {
	b, err := json.Marshal(info{
		Number:     r.Number,
		Digit:      r.Digit,
		Blank:      r.Blank(),
		Confidence: r.Confidence,
		Grid:       r.Grid,
		Height:     r.Height,
		Width:      r.Width,
	})
	if err != nil {
		return errors.WithStack(err)
	}
	enc.Lock()
	defer enc.Unlock()
	for ch := range enc.clients {
		select {
		case ch <- b:
		default:
		}
	}
	return nil
}

// Flush ...
func (enc *Encoder) Flush() error { return nil }

// outputs sends every recognition to several encoders.
type outputs []digits.OutputEncoder

func (outs outputs) Encode(r digits.Recognition) error {
	for _, out := range outs {
		if err := out.Encode(r); err != nil {
			return err
		}
	}
	return nil
}

func (outs outputs) Flush() error {
	var err error
	for _, out := range outs {
		if ferr := out.Flush(); ferr != nil && err == nil {
			err = ferr
		}
	}
	return err
}
