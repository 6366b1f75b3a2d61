package playlist

import (
	"math/rand/v2"
	"sort"
)

// Kind identifies which of the three playlist queues a file belongs to.
type Kind int

// Kinds returned by Classify.
const (
	Random Kind = iota
	Sorted
	Priority
)

func (k Kind) String() string {
	switch k {
	case Sorted:
		return "sorted"
	case Priority:
		return "priority"
	default:
		return "random"
	}
}

// PriorityPrefix marks a file that is played once, ahead of everything else.
const PriorityPrefix = '_'

// Classify maps a filename to its queue by looking at the first byte only.
func Classify(name string) Kind {
	if name == "" {
		return Random
	}
	switch c := name[0]; {
	case c >= '0' && c <= '9':
		return Sorted
	case c == PriorityPrefix:
		return Priority
	default:
		return Random
	}
}

// Queue is an ordered list of unique filenames with a cursor pointing at the
// next entry to serve. The cursor is always within [0, Len()]; a cursor equal
// to Len() means every entry has been served since the last rewind.
type Queue struct {
	entries []string
	cursor  int
}

// Len returns the number of entries in the queue.
func (q *Queue) Len() int { return len(q.entries) }

// Cursor returns the index of the next entry to serve.
func (q *Queue) Cursor() int { return q.cursor }

// Empty reports whether the queue has no entries at all.
func (q *Queue) Empty() bool { return len(q.entries) == 0 }

// Exhausted reports whether every entry has been served.
func (q *Queue) Exhausted() bool { return q.cursor >= len(q.entries) }

// Entries returns a copy of the queue contents in serving order.
func (q *Queue) Entries() []string {
	dst := make([]string, len(q.entries))
	copy(dst, q.entries)
	return dst
}

// Push appends name to the end of the queue.
func (q *Queue) Push(name string) {
	q.entries = append(q.entries, name)
}

// Remove deletes the first entry equal to name. If the entry was already
// served the cursor moves back with it, so no unserved entry is skipped.
func (q *Queue) Remove(name string) bool {
	for i, e := range q.entries {
		if e != name {
			continue
		}
		q.entries = append(q.entries[:i], q.entries[i+1:]...)
		if i < q.cursor {
			q.cursor--
		}
		return true
	}
	return false
}

// Pop serves the entry at the cursor and advances it.
func (q *Queue) Pop() (string, bool) {
	if q.Exhausted() {
		return "", false
	}
	name := q.entries[q.cursor]
	q.cursor++
	return name, true
}

// Rewind moves the cursor back to the first entry.
func (q *Queue) Rewind() { q.cursor = 0 }

// Clear drops all entries and resets the cursor.
func (q *Queue) Clear() {
	q.entries = nil
	q.cursor = 0
}

// Sort orders the entries ascending. The cursor is placed right after the
// last entry served before sorting, so names that sort before it wait for
// the next cycle.
func (q *Queue) Sort() {
	var last string
	served := q.cursor > 0
	if served {
		last = q.entries[q.cursor-1]
	}
	sort.Strings(q.entries)
	if !served {
		return
	}
	q.cursor = sort.Search(len(q.entries), func(i int) bool {
		return q.entries[i] > last
	})
}

// Shuffle randomly permutes the unserved entries, from the cursor through the
// end. Entries already served this cycle keep their positions. For each i the
// swap partner j is drawn from [i, Len()-1], both ends inclusive, which makes
// every permutation of the suffix equally likely.
func (q *Queue) Shuffle(rnd *rand.Rand) {
	n := len(q.entries)
	for i := q.cursor; i < n-1; i++ {
		j := i + rnd.IntN(n-i)
		q.entries[i], q.entries[j] = q.entries[j], q.entries[i]
	}
}
