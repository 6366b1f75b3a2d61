// Package player streams movies to the display device. The Engine asks the
// playlist for the next file, decodes it, and writes one packet per frame,
// sleeping for each frame's duration. When the device goes away mid-movie the
// rest of that movie is dropped and the Engine waits for the device to come
// back before continuing with the next file.
package player

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"amplayd/internal/device"
	"amplayd/internal/movie"
	"amplayd/internal/packet"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrDevice wraps write and flush failures. It means the device channel is
// no longer usable and has to be reopened.
var ErrDevice = errors.New("device failure")

// Intervals used when Config leaves them zero.
const (
	DefaultRetryInterval = 10 * time.Second
	DefaultIdleInterval  = 10 * time.Second
)

// Source hands out the name of the next file to play.
type Source interface {
	Next() (string, bool)
}

// OpenFunc opens the device at path.
type OpenFunc func(path string) (device.Device, error)

// SleepFunc blocks for d or until ctx is done, whichever comes first.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Config holds the Engine settings.
type Config struct {
	// Dir is the playlist directory; names from the Source are relative to it.
	Dir string
	// DevicePath is the device file to write packets to.
	DevicePath string
	// RetryInterval is the pause between attempts to reopen the device.
	RetryInterval time.Duration
	// IdleInterval is how long to wait before asking an empty playlist again.
	IdleInterval time.Duration
}

// Engine drives playback. It is single threaded: Run owns the source and the
// device until it returns.
type Engine struct {
	cfg     Config
	source  Source
	decoder movie.Decoder
	open    OpenFunc
	sleep   SleepFunc
	wake    <-chan struct{}
	logger  zerolog.Logger

	dev         device.Device
	emptyLogged bool
	broken      map[string]bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithOpener replaces the function used to open the device.
func WithOpener(open OpenFunc) Option {
	return func(e *Engine) { e.open = open }
}

// WithSleep replaces the function used for frame pacing and retry backoff.
func WithSleep(sleep SleepFunc) Option {
	return func(e *Engine) { e.sleep = sleep }
}

// WithWake sets a channel that ends the wait on an empty playlist early.
func WithWake(wake <-chan struct{}) Option {
	return func(e *Engine) { e.wake = wake }
}

// WithLogger sets the engine logger.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates an engine playing files from source on the configured
// device.
func NewEngine(cfg Config, source Source, decoder movie.Decoder, opts ...Option) *Engine {
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = DefaultRetryInterval
	}
	if cfg.IdleInterval <= 0 {
		cfg.IdleInterval = DefaultIdleInterval
	}

	e := &Engine{
		cfg:     cfg,
		source:  source,
		decoder: decoder,
		open:    openFile,
		sleep:   sleep,
		logger:  zerolog.Nop(),
		broken:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run opens the device and plays until ctx is cancelled or the device fails
// permanently. A cancelled context is a normal shutdown and returns nil.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.connect(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	defer e.release()

	for {
		if ctx.Err() != nil {
			e.logger.Info().Msg("stopping")
			return nil
		}

		name, ok := e.source.Next()
		if !ok {
			e.idle(ctx)
			continue
		}
		e.emptyLogged = false

		path := filepath.Join(e.cfg.Dir, name)
		m, err := e.decoder.Decode(path)
		if err != nil {
			e.loadFailed(name, err)
			continue
		}
		delete(e.broken, name)

		err = e.Play(ctx, name, m)
		switch {
		case err == nil:
		case ctx.Err() != nil:
			e.logger.Info().Msg("stopping")
			return nil
		case errors.Is(err, ErrDevice):
			e.logger.Warn().Err(err).Str("file", name).Msg("playback aborted, reopening device")
			e.release()
			if err := e.connect(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		default:
			e.logger.Error().Err(err).Str("file", name).Msg("failed to play movie")
		}
	}
}

// Play writes every frame of m to the device, pacing by frame duration.
// Cancellation is only checked between frames, so a packet is never cut
// short. Write and flush failures are returned wrapped in ErrDevice.
func (e *Engine) Play(ctx context.Context, name string, m *movie.Movie) error {
	pkt, err := packet.New(packet.Header{
		Width:    m.Width,
		Height:   m.Height,
		Channels: m.Channels,
		MaxVal:   m.MaxVal,
	})
	if err != nil {
		return err
	}

	logger := e.logger.With().Str("play_id", uuid.NewString()).Str("file", name).Logger()
	logger.Info().
		Int("frames", len(m.Frames)).
		Dur("duration", m.Duration()).
		Str("size", fmt.Sprintf("%dx%dx%d", m.Width, m.Height, m.Channels)).
		Msg("playing")

	for i, frame := range m.Frames {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := pkt.SetFrame(frame.Data); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		if _, err := e.dev.Write(pkt.Bytes()); err != nil {
			return fmt.Errorf("%w: write frame %d: %w", ErrDevice, i, err)
		}
		if err := e.dev.Flush(); err != nil {
			return fmt.Errorf("%w: flush frame %d: %w", ErrDevice, i, err)
		}
		if err := e.sleep(ctx, frame.Duration); err != nil {
			return err
		}
	}

	logger.Debug().Msg("finished")
	return nil
}

// connect opens the device, retrying for as long as the device is merely
// absent. Only the first failure of an outage is logged.
func (e *Engine) connect(ctx context.Context) error {
	logged := false
	for {
		err := e.tryOpen()
		if err == nil {
			if logged {
				e.logger.Info().Str("device", e.cfg.DevicePath).Msg("device is back")
			} else {
				e.logger.Info().Str("device", e.cfg.DevicePath).Msg("device opened")
			}
			return nil
		}

		var cfgErr *binaryModeError
		if !device.IsTransient(err) && !errors.As(err, &cfgErr) {
			e.logger.Error().Err(err).Str("device", e.cfg.DevicePath).Msg("cannot open device")
			return fmt.Errorf("open device %s: %w", e.cfg.DevicePath, err)
		}

		if !logged {
			e.logger.Error().Err(err).
				Str("device", e.cfg.DevicePath).
				Dur("retry", e.cfg.RetryInterval).
				Msg("device unavailable, waiting for it")
			logged = true
		}
		if err := e.sleep(ctx, e.cfg.RetryInterval); err != nil {
			return err
		}
	}
}

type binaryModeError struct{ err error }

func (b *binaryModeError) Error() string { return "enable binary mode: " + b.err.Error() }
func (b *binaryModeError) Unwrap() error { return b.err }

func (e *Engine) tryOpen() error {
	dev, err := e.open(e.cfg.DevicePath)
	if err != nil {
		return err
	}
	if err := dev.SetBinary(); err != nil {
		dev.Close()
		return &binaryModeError{err: err}
	}
	e.dev = dev
	return nil
}

func (e *Engine) release() {
	if e.dev == nil {
		return
	}
	if err := e.dev.Close(); err != nil {
		e.logger.Debug().Err(err).Msg("device close")
	}
	e.dev = nil
}

// loadFailed reports a file that could not be decoded. Each file is reported
// once; while it keeps failing it is only logged at debug level.
func (e *Engine) loadFailed(name string, err error) {
	if e.broken[name] {
		e.logger.Debug().Err(err).Str("file", name).Msg("skipping movie that failed to load")
		return
	}
	e.broken[name] = true
	e.logger.Error().Err(err).Str("file", name).Msg("failed to load movie")
}

// idle waits for the playlist to get content. The empty playlist is reported
// once until a file shows up again. Files that failed to load are forgotten,
// so they are reported again if they come back.
func (e *Engine) idle(ctx context.Context) {
	if !e.emptyLogged {
		e.logger.Error().Str("dir", e.cfg.Dir).Msg("playlist is empty")
		e.emptyLogged = true
	}
	clear(e.broken)

	t := time.NewTimer(e.cfg.IdleInterval)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-e.wake:
	case <-t.C:
	}
}

func openFile(path string) (device.Device, error) {
	f, err := device.Open(path)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
