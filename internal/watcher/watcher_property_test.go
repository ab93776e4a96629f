//go:build property

package watcher

import (
	"fmt"
	"sort"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestCoalesceProperties validates the batching rules of the debouncer
func TestCoalesceProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(9876)
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	toEvents := func(ids []int) []ChangeEvent {
		events := make([]ChangeEvent, len(ids))
		for i, id := range ids {
			events[i] = ChangeEvent{
				Path: fmt.Sprintf("src/file%d.jsx", id),
				Size: int64(i),
			}
		}
		return events
	}

	properties.Property("one event per path", prop.ForAll(
		func(ids []int) bool {
			out := Coalesce(toEvents(ids))

			distinct := make(map[int]struct{})
			for _, id := range ids {
				distinct[id] = struct{}{}
			}
			return len(out) == len(distinct)
		},
		gen.SliceOf(gen.IntRange(0, 9)),
	))

	properties.Property("batch is ordered by path", prop.ForAll(
		func(ids []int) bool {
			out := Coalesce(toEvents(ids))
			return sort.SliceIsSorted(out, func(i, j int) bool { return out[i].Path < out[j].Path })
		},
		gen.SliceOf(gen.IntRange(0, 50)),
	))

	properties.Property("last event for a path wins", prop.ForAll(
		func(ids []int) bool {
			events := toEvents(ids)
			last := make(map[string]int64)
			for _, e := range events {
				last[e.Path] = e.Size
			}

			for _, e := range Coalesce(events) {
				if last[e.Path] != e.Size {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 5)),
	))

	properties.TestingRun(t)
}
