// Package device provides the output channel to the display hardware,
// which appears as a character device file.
package device

import (
	"bufio"
	"errors"
	"io"
	"io/fs"
	"os"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// DefaultPath is where the display shows up when it is plugged in.
const DefaultPath = "/dev/am_usb"

const bufferSize = 64 * 1024

// Device is a writable channel to the display. Writes are buffered until
// Flush.
type Device interface {
	io.Writer
	Flush() error
	// SetBinary switches the channel to untranslated binary transfer.
	SetBinary() error
	Close() error
}

// File is a Device backed by a device file.
type File struct {
	path  string
	f     *os.File
	w     *bufio.Writer
	state *term.State
}

// Open opens the device file for reading and writing.
func Open(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	return &File{
		path: path,
		f:    f,
		w:    bufio.NewWriterSize(f, bufferSize),
	}, nil
}

// Path returns the device file path.
func (d *File) Path() string { return d.path }

// SetBinary puts a terminal device into raw mode so no byte of a packet is
// translated or swallowed by the line discipline. Other device files already
// pass bytes through untouched.
func (d *File) SetBinary() error {
	fd := int(d.f.Fd())
	if !term.IsTerminal(fd) {
		return nil
	}
	state, err := term.MakeRaw(fd)
	if err != nil {
		return err
	}
	if d.state == nil {
		d.state = state
	}
	return nil
}

func (d *File) Write(p []byte) (int, error) {
	return d.w.Write(p)
}

// Flush writes any buffered data to the device.
func (d *File) Flush() error {
	return d.w.Flush()
}

// Close restores the terminal state, if it was changed, and closes the file.
// Buffered data that was not flushed is dropped.
func (d *File) Close() error {
	if d.state != nil {
		_ = term.Restore(int(d.f.Fd()), d.state)
		d.state = nil
	}
	return d.f.Close()
}

// IsTransient reports whether err means the device is just not there right
// now, which happens while it is unplugged or not yet attached.
func IsTransient(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, unix.ENODEV)
}
