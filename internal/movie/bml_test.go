package movie

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const smallBML = `<?xml version="1.0" encoding="UTF-8"?>
<blm width="3" height="2" bits="4" channels="1">
  <header>
    <title>Blink</title>
    <author>someone</author>
  </header>
  <frame duration="100">
    <row>0f0</row>
    <row>f0f</row>
  </frame>
  <frame duration="250">
    <row>123</row>
    <row>abc</row>
  </frame>
</blm>`

func TestDecodeBML(t *testing.T) {
	m, err := DecodeBML(strings.NewReader(smallBML))
	require.NoError(t, err)

	assert.Equal(t, "Blink", m.Title)
	assert.Equal(t, 3, m.Width)
	assert.Equal(t, 2, m.Height)
	assert.Equal(t, 1, m.Channels)
	assert.Equal(t, 15, m.MaxVal)
	assert.Equal(t, 6, m.FrameSize())
	require.Len(t, m.Frames, 2)

	assert.Equal(t, 100*time.Millisecond, m.Frames[0].Duration)
	assert.Equal(t, []byte{0, 15, 0, 15, 0, 15}, m.Frames[0].Data)
	assert.Equal(t, 250*time.Millisecond, m.Frames[1].Duration)
	assert.Equal(t, []byte{1, 2, 3, 10, 11, 12}, m.Frames[1].Data)
	assert.Equal(t, 350*time.Millisecond, m.Duration())
}

// TestDecodeBMLEightBitColor reads two hex digits per value for deeper
// samples, with several channels per pixel.
func TestDecodeBMLEightBitColor(t *testing.T) {
	doc := `<blm width="2" height="1" bits="8" channels="3">
  <frame duration="40"><row>ff0000 00ff80</row></frame>
</blm>`
	// Whitespace inside a row is not allowed.
	_, err := DecodeBML(strings.NewReader(doc))
	assert.ErrorIs(t, err, ErrFormat)

	doc = `<blm width="2" height="1" bits="8" channels="3">
  <frame duration="40"><row>ff000000ff80</row></frame>
</blm>`
	m, err := DecodeBML(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, 255, m.MaxVal)
	assert.Equal(t, []byte{0xff, 0, 0, 0, 0xff, 0x80}, m.Frames[0].Data)
}

// TestDecodeBMLDefaults treats missing bits and channels as one.
func TestDecodeBMLDefaults(t *testing.T) {
	doc := `<blm width="2" height="1"><frame duration="10"><row>10</row></frame></blm>`
	m, err := DecodeBML(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, 1, m.MaxVal)
	assert.Equal(t, 1, m.Channels)
	assert.Equal(t, []byte{1, 0}, m.Frames[0].Data)
}

func TestDecodeBMLErrors(t *testing.T) {
	testCases := map[string]string{
		"not xml":         `this is not a movie`,
		"wrong root":      `<movie width="1" height="1"></movie>`,
		"no size":         `<blm><frame duration="1"><row>0</row></frame></blm>`,
		"bad bits":        `<blm width="1" height="1" bits="12"><frame duration="1"><row>0</row></frame></blm>`,
		"missing row":     `<blm width="1" height="2"><frame duration="1"><row>0</row></frame></blm>`,
		"short row":       `<blm width="2" height="1"><frame duration="1"><row>0</row></frame></blm>`,
		"bad digit":       `<blm width="1" height="1" bits="4"><frame duration="1"><row>x</row></frame></blm>`,
		"above maxval":    `<blm width="1" height="1" bits="1"><frame duration="1"><row>2</row></frame></blm>`,
		"negative length": `<blm width="1" height="1"><frame duration="-5"><row>1</row></frame></blm>`,
	}

	for name, doc := range testCases {
		_, err := DecodeBML(strings.NewReader(doc))
		assert.ErrorIs(t, err, ErrFormat, name)
	}
}

func TestBMLDecoderReadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blink.bml")
	require.NoError(t, os.WriteFile(path, []byte(smallBML), 0644))

	m, err := BMLDecoder{}.Decode(path)
	require.NoError(t, err)
	assert.Len(t, m.Frames, 2)

	_, err = BMLDecoder{}.Decode(filepath.Join(dir, "missing.bml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestIsMovie(t *testing.T) {
	assert.True(t, IsMovie("movie.bml"))
	assert.True(t, IsMovie("_x.bml"))
	assert.False(t, IsMovie("movie.bml.tmp"))
	assert.False(t, IsMovie("movie.BML"))
	assert.False(t, IsMovie("notes.txt"))
}
