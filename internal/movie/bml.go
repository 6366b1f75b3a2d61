package movie

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// ErrFormat is returned for files that are not valid BML.
var ErrFormat = errors.New("invalid bml")

type bmlDocument struct {
	XMLName  xml.Name   `xml:"blm"`
	Width    int        `xml:"width,attr"`
	Height   int        `xml:"height,attr"`
	Bits     int        `xml:"bits,attr"`
	Channels int        `xml:"channels,attr"`
	Title    string     `xml:"header>title"`
	Frames   []bmlFrame `xml:"frame"`
}

type bmlFrame struct {
	Duration int      `xml:"duration,attr"`
	Rows     []string `xml:"row"`
}

// BMLDecoder reads Blinkenlights Markup Language files.
type BMLDecoder struct{}

// Decode implements Decoder.
func (BMLDecoder) Decode(path string) (*Movie, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, err := DecodeBML(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// DecodeBML parses a BML document. Sample values are written as one hex
// digit each for up to 4 bits per sample and two hex digits for 5 to 8 bits.
func DecodeBML(r io.Reader) (*Movie, error) {
	var doc bmlDocument
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}

	if doc.Bits == 0 {
		doc.Bits = 1
	}
	if doc.Channels == 0 {
		doc.Channels = 1
	}
	if doc.Width <= 0 || doc.Height <= 0 {
		return nil, fmt.Errorf("%w: bad size %dx%d", ErrFormat, doc.Width, doc.Height)
	}
	if doc.Bits < 1 || doc.Bits > 8 {
		return nil, fmt.Errorf("%w: bad bit depth %d", ErrFormat, doc.Bits)
	}
	if doc.Channels < 0 {
		return nil, fmt.Errorf("%w: bad channel count %d", ErrFormat, doc.Channels)
	}

	m := &Movie{
		Title:    strings.TrimSpace(doc.Title),
		Width:    doc.Width,
		Height:   doc.Height,
		Channels: doc.Channels,
		MaxVal:   1<<doc.Bits - 1,
		Frames:   make([]Frame, 0, len(doc.Frames)),
	}

	digits := 1
	if doc.Bits > 4 {
		digits = 2
	}
	for i, bf := range doc.Frames {
		frame, err := m.decodeFrame(bf, digits)
		if err != nil {
			return nil, fmt.Errorf("%w: frame %d: %v", ErrFormat, i, err)
		}
		m.Frames = append(m.Frames, frame)
	}

	return m, nil
}

func (m *Movie) decodeFrame(bf bmlFrame, digits int) (Frame, error) {
	if bf.Duration < 0 {
		return Frame{}, fmt.Errorf("negative duration %d", bf.Duration)
	}
	if len(bf.Rows) != m.Height {
		return Frame{}, fmt.Errorf("got %d rows, want %d", len(bf.Rows), m.Height)
	}

	rowValues := m.Width * m.Channels
	data := make([]byte, 0, m.FrameSize())
	for y, row := range bf.Rows {
		row = strings.TrimSpace(row)
		if len(row) != rowValues*digits {
			return Frame{}, fmt.Errorf("row %d: got %d digits, want %d", y, len(row), rowValues*digits)
		}
		for x := 0; x < len(row); x += digits {
			v, err := strconv.ParseUint(row[x:x+digits], 16, 8)
			if err != nil {
				return Frame{}, fmt.Errorf("row %d: %v", y, err)
			}
			if int(v) > m.MaxVal {
				return Frame{}, fmt.Errorf("row %d: value %d exceeds %d", y, v, m.MaxVal)
			}
			data = append(data, byte(v))
		}
	}

	return Frame{
		Duration: time.Duration(bf.Duration) * time.Millisecond,
		Data:     data,
	}, nil
}
