package playlist

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiff(t *testing.T) {
	type testCase struct {
		name   string
		prev   []string
		cur    []string
		events []Event
	}

	testCases := []testCase{
		{
			name: "both empty",
		},
		{
			name: "first run",
			cur:  []string{"a", "b", "c"},
			events: []Event{
				{Op: Add, Name: "a"},
				{Op: Add, Name: "b"},
				{Op: Add, Name: "c"},
			},
		},
		{
			name: "everything removed",
			prev: []string{"a", "b", "c"},
			events: []Event{
				{Op: Remove, Name: "a"},
				{Op: Remove, Name: "b"},
				{Op: Remove, Name: "c"},
			},
		},
		{
			name: "add and remove",
			prev: []string{"a", "c"},
			cur:  []string{"a", "b"},
			events: []Event{
				{Op: Add, Name: "b"},
				{Op: Remove, Name: "c"},
			},
		},
		{
			name: "identical",
			prev: []string{"a", "b", "c"},
			cur:  []string{"a", "b", "c"},
		},
		{
			name: "interleaved",
			prev: []string{"b", "d", "f"},
			cur:  []string{"a", "b", "e", "f", "g"},
			events: []Event{
				{Op: Add, Name: "a"},
				{Op: Remove, Name: "d"},
				{Op: Add, Name: "e"},
				{Op: Add, Name: "g"},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.events, Diff(tc.prev, tc.cur))
		})
	}
}
