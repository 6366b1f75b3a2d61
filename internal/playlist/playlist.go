// Package playlist decides which movie plays next. The playlist is driven by
// the contents of one directory: every movie file found there is sorted into
// one of three queues depending on its name.
//
//   - priority: names starting with '_'. Played first, and only once.
//   - sorted: names starting with a digit. Played in ascending order.
//   - random: everything else. Played in shuffled order.
//
// Once the priority queue is done, sorted and random entries are interleaved
// so that both progress through their queues at about the same rate. When both
// have been played through, a new cycle starts and the random queue is
// reshuffled.
package playlist

import (
	"fmt"
	"io/fs"
	"math/rand/v2"
	"os"
	"sort"

	"amplayd/internal/movie"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
)

// Playlist owns the three queues and the last seen directory listing.
// It is not safe for concurrent use.
type Playlist struct {
	fsys  fs.FS
	files []string

	prio   Queue
	sorted Queue
	random Queue

	rnd    *rand.Rand
	logger zerolog.Logger
}

// Option configures a Playlist.
type Option func(*Playlist)

// WithRand sets the random source used for shuffling.
func WithRand(r *rand.Rand) Option {
	return func(p *Playlist) { p.rnd = r }
}

// WithLogger sets the logger used to report directory changes.
func WithLogger(l zerolog.Logger) Option {
	return func(p *Playlist) { p.logger = l }
}

// Open creates a Playlist for the movie directory at dir.
func Open(dir string, opts ...Option) (*Playlist, error) {
	p, err := New(os.DirFS(dir), opts...)
	if err != nil {
		return nil, fmt.Errorf("open playlist directory %s: %w", dir, err)
	}
	return p, nil
}

// New creates a Playlist reading its listing from the root of fsys and runs
// the first synchronization.
func New(fsys fs.FS, opts ...Option) (*Playlist, error) {
	info, err := fs.Stat(fsys, ".")
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, &fs.PathError{Op: "open", Path: ".", Err: unix.ENOTDIR}
	}

	p := &Playlist{
		fsys:   fsys,
		rnd:    rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}

	if _, err := p.Synchronize(); err != nil {
		return nil, err
	}
	return p, nil
}

// Close releases the queues. The Playlist must not be used afterwards.
func (p *Playlist) Close() error {
	p.files = nil
	p.prio.Clear()
	p.sorted.Clear()
	p.random.Clear()
	p.fsys = nil
	return nil
}

// Files returns the movie files seen by the last synchronization.
func (p *Playlist) Files() []string {
	dst := make([]string, len(p.files))
	copy(dst, p.files)
	return dst
}

func (p *Playlist) queue(k Kind) *Queue {
	switch k {
	case Sorted:
		return &p.sorted
	case Priority:
		return &p.prio
	default:
		return &p.random
	}
}

// Add puts name at the end of its queue.
func (p *Playlist) Add(name string) {
	p.queue(Classify(name)).Push(name)
}

// Remove takes name out of its queue. The queue is chosen by classifying the
// name again, so an entry is only found in the queue it was added to.
func (p *Playlist) Remove(name string) {
	p.queue(Classify(name)).Remove(name)
}

// Synchronize re-reads the directory and applies the difference to the last
// listing. The queues are reordered only if something changed. It returns
// the number of add and remove events applied.
func (p *Playlist) Synchronize() (int, error) {
	cur, err := p.list()
	if err != nil {
		return 0, err
	}

	events := Diff(p.files, cur)
	for _, ev := range events {
		switch ev.Op {
		case Add:
			p.Add(ev.Name)
		case Remove:
			p.Remove(ev.Name)
		}
		p.logger.Debug().Str("file", ev.Name).Stringer("op", ev.Op).
			Stringer("queue", Classify(ev.Name)).Msg("playlist changed")
	}
	p.files = cur

	if len(events) > 0 {
		p.reorder()
		p.logger.Info().Int("events", len(events)).Int("files", len(cur)).Msg("playlist synchronized")
	}
	return len(events), nil
}

// list returns the sorted names of the movie files in the directory.
func (p *Playlist) list() ([]string, error) {
	entries, err := fs.ReadDir(p.fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read playlist directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if movie.IsMovie(entry.Name()) {
			files = append(files, entry.Name())
		}
	}

	sort.Strings(files)
	return files, nil
}

func (p *Playlist) reorder() {
	p.sorted.Sort()
	p.random.Shuffle(p.rnd)
}

// Next synchronizes with the directory and returns the name of the movie to
// play next. It returns false if there is nothing to play.
func (p *Playlist) Next() (string, bool) {
	if _, err := p.Synchronize(); err != nil {
		// Keep serving from the last good listing.
		p.logger.Error().Err(err).Msg("playlist synchronization failed")
	}

	if name, ok := p.prio.Pop(); ok {
		return name, true
	}
	// Priority files are played once, then forgotten.
	if !p.prio.Empty() {
		p.prio.Clear()
	}

	if p.sorted.Empty() && p.random.Empty() {
		return "", false
	}

	if p.sorted.Exhausted() && p.random.Exhausted() {
		p.sorted.Rewind()
		p.random.Rewind()
		p.random.Shuffle(p.rnd)
	}

	if p.preferSorted() {
		return p.sorted.Pop()
	}
	return p.random.Pop()
}

// preferSorted compares how far the sorted and random queues have progressed,
// cross-multiplied so that neither division nor floats are needed.
func (p *Playlist) preferSorted() bool {
	if p.sorted.Exhausted() {
		return false
	}
	if p.random.Exhausted() {
		return true
	}
	sc, sl := p.sorted.Cursor(), p.sorted.Len()
	rc, rl := p.random.Cursor(), p.random.Len()
	return (sc+1)*rl < (rc+1)*sl
}
