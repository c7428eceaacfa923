// Package merge reconciles entity annotations produced by independent
// recognizers into one conflict-free set.
//
// Sources are ranked by position: the first source has the highest priority
// and wins every span conflict against later sources. Within a source,
// overlapping spans are resolved left to right.
package merge

import (
	"sort"
	"strings"

	"ieprep/internal/annotation"
)

// Result is the outcome of a merge.
type Result struct {
	Accepted []annotation.Entity
	Dropped  []annotation.Entity
}

// Merge combines the sources and returns the accepted annotations sorted by
// start offset. Source i receives priority rank i.
func Merge(sources ...[]annotation.Entity) []annotation.Entity {
	return MergeDetailed(sources...).Accepted
}

// MergeDetailed behaves like Merge and also reports the annotations that lost
// a conflict or were malformed.
func MergeDetailed(sources ...[]annotation.Entity) Result {
	candidates := make([]annotation.Entity, 0, countAll(sources))
	var result Result
	for rank, source := range sources {
		for _, e := range source {
			e.Priority = rank
			if e.Start < 0 || e.End <= e.Start {
				result.Dropped = append(result.Dropped, e)
				continue
			}
			candidates = append(candidates, e)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.End != b.End {
			return a.End > b.End
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return strings.Compare(a.Key, b.Key) < 0
	})

	// accepted is kept sorted by Start and non-overlapping.
	var accepted []annotation.Entity
	for _, e := range candidates {
		pos := sort.Search(len(accepted), func(i int) bool { return accepted[i].Start >= e.Start })
		if pos > 0 && accepted[pos-1].End > e.Start {
			result.Dropped = append(result.Dropped, e)
			continue
		}
		if pos < len(accepted) && accepted[pos].Start < e.End {
			result.Dropped = append(result.Dropped, e)
			continue
		}
		accepted = append(accepted, annotation.Entity{})
		copy(accepted[pos+1:], accepted[pos:])
		accepted[pos] = e
	}
	result.Accepted = accepted
	return result
}

func countAll(sources [][]annotation.Entity) int {
	total := 0
	for _, s := range sources {
		total += len(s)
	}
	return total
}
