// internal/vote/scanner.go
package vote

import (
	"fmt"
	"iter"
	"slices"
	"strings"
)

// SelectNthEligible returns the n-th (1-based) eligible item of items.
func SelectNthEligible(items []RawItem, n int) (Candidate, error) {
	return SelectNth(slices.Values(items), n)
}

// SelectNth walks seq once, in order, and stops pulling as soon as the n-th
// eligible item is seen. Pinned, promoted and untitled items never count.
func SelectNth(seq iter.Seq[RawItem], n int) (Candidate, error) {
	if n < 1 {
		return Candidate{}, fmt.Errorf("%w: target index must be >= 1, got %d", ErrInvalidArgument, n)
	}

	rank, index := 0, -1
	for item := range seq {
		index++
		if !item.Eligible() {
			continue
		}
		rank++
		if rank == n {
			return Candidate{
				Title:     strings.TrimSpace(item.Title),
				StableID:  item.StableID,
				Permalink: item.Permalink,
				Rank:      rank,
				Index:     index,
			}, nil
		}
	}

	return Candidate{}, fmt.Errorf("%w: wanted eligible item #%d, only %d eligible among %d scanned", ErrCandidateNotFound, n, rank, index+1)
}
