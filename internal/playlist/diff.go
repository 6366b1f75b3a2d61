package playlist

// Op is the kind of change found between two directory snapshots.
type Op int

// Change kinds reported by Diff.
const (
	Add Op = iota
	Remove
)

func (o Op) String() string {
	if o == Remove {
		return "remove"
	}
	return "add"
}

// Event is a single add or remove of a filename.
type Event struct {
	Op   Op
	Name string
}

// Diff compares two ascending sorted listings and returns the events that
// turn prev into cur. It walks both slices once; an exhausted side compares
// greater than any name.
func Diff(prev, cur []string) []Event {
	var events []Event
	p, c := 0, 0
	for p < len(prev) || c < len(cur) {
		var cmp int
		switch {
		case c >= len(cur):
			cmp = 1
		case p >= len(prev):
			cmp = -1
		case cur[c] < prev[p]:
			cmp = -1
		case cur[c] > prev[p]:
			cmp = 1
		}

		switch {
		case cmp < 0:
			events = append(events, Event{Op: Add, Name: cur[c]})
			c++
		case cmp > 0:
			events = append(events, Event{Op: Remove, Name: prev[p]})
			p++
		default:
			p++
			c++
		}
	}
	return events
}
