// Package movie provides the in-memory representation of a decoded
// animation and the decoder interface the player consumes.
package movie

import (
	"strings"
	"time"
)

// Suffix is the file extension of playable movie files.
const Suffix = ".bml"

// IsMovie returns true if name has the movie file extension.
func IsMovie(name string) bool {
	return strings.HasSuffix(name, Suffix)
}

// Frame is a single picture with its display time. Data holds
// Width*Height*Channels sample values, one byte each, row by row.
type Frame struct {
	Duration time.Duration
	Data     []byte
}

// Movie is a fully decoded animation.
type Movie struct {
	Title    string
	Width    int
	Height   int
	Channels int
	MaxVal   int
	Frames   []Frame
}

// FrameSize is the number of bytes in one frame's pixel data.
func (m *Movie) FrameSize() int {
	return m.Width * m.Height * m.Channels
}

// Duration is the sum of all frame durations.
func (m *Movie) Duration() time.Duration {
	var d time.Duration
	for _, f := range m.Frames {
		d += f.Duration
	}
	return d
}

// Decoder loads a movie from a file.
type Decoder interface {
	Decode(path string) (*Movie, error)
}
