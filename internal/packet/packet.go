// Package packet builds the frame packets sent to the display device.
//
// A packet is a fixed header in network byte order followed by the raw
// sample values of one frame:
//
//	uint32 magic (0x23542666)
//	uint16 width
//	uint16 height
//	uint16 channels
//	uint16 maxval
//	[width*height*channels]byte data
package packet

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Magic identifies a frame packet.
const Magic uint32 = 0x23542666

// HeaderSize is the size of the encoded header in bytes.
const HeaderSize = 12

// ErrDimensions is returned when a header can not be encoded.
var ErrDimensions = errors.New("invalid frame dimensions")

// Header describes the frames carried by a packet.
type Header struct {
	Width    int
	Height   int
	Channels int
	MaxVal   int
}

// PayloadSize is the number of data bytes following the header.
func (h Header) PayloadSize() int {
	return h.Width * h.Height * h.Channels
}

func (h Header) validate() error {
	for _, v := range []int{h.Width, h.Height, h.Channels, h.MaxVal} {
		if v <= 0 || v > math.MaxUint16 {
			return fmt.Errorf("%w: %dx%d, %d channels, maxval %d",
				ErrDimensions, h.Width, h.Height, h.Channels, h.MaxVal)
		}
	}
	return nil
}

// Packet is a reusable buffer holding an encoded header and the payload of
// one frame. Build one per movie and refill it with SetFrame for every frame.
type Packet struct {
	header Header
	buf    []byte
}

// New allocates a packet for frames described by h and encodes the header.
func New(h Header) (*Packet, error) {
	if err := h.validate(); err != nil {
		return nil, err
	}

	p := &Packet{
		header: h,
		buf:    make([]byte, HeaderSize+h.PayloadSize()),
	}
	binary.BigEndian.PutUint32(p.buf[0:], Magic)
	binary.BigEndian.PutUint16(p.buf[4:], uint16(h.Width))
	binary.BigEndian.PutUint16(p.buf[6:], uint16(h.Height))
	binary.BigEndian.PutUint16(p.buf[8:], uint16(h.Channels))
	binary.BigEndian.PutUint16(p.buf[10:], uint16(h.MaxVal))
	return p, nil
}

// Header returns the header the packet was built with.
func (p *Packet) Header() Header { return p.header }

// Len is the total size of the packet in bytes.
func (p *Packet) Len() int { return len(p.buf) }

// Bytes returns the whole packet. The slice is reused by SetFrame.
func (p *Packet) Bytes() []byte { return p.buf }

// Payload returns the data region following the header.
func (p *Packet) Payload() []byte { return p.buf[HeaderSize:] }

// SetFrame copies one frame's sample values into the payload.
func (p *Packet) SetFrame(data []byte) error {
	if len(data) != p.header.PayloadSize() {
		return fmt.Errorf("frame has %d bytes, packet expects %d", len(data), p.header.PayloadSize())
	}
	copy(p.Payload(), data)
	return nil
}
