package service

import (
	"sort"

	"github.com/mathieu-neron/SkipTube/skiptube-go/internal/model"
)

// Grouping partitions segment indices into overlap groups and untouched
// singletons.
type Grouping struct {
	Groups     [][]int
	Singletons []int
}

// GroupOverlapping clusters segments whose ranges overlap, transitively: if
// A overlaps B and B overlaps C, all three share a group even when A and C
// are disjoint. Members are listed in ascending index order and groups are
// ordered by their first member, so any permutation of the same segments
// yields the same partition.
func GroupOverlapping(segs []model.Segment) Grouping {
	parent := make([]int, len(segs))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}

	paired := make([]bool, len(segs))
	for i := 0; i < len(segs); i++ {
		for j := i + 1; j < len(segs); j++ {
			if !segs[i].Overlaps(segs[j]) {
				continue
			}
			paired[i], paired[j] = true, true
			ri, rj := find(i), find(j)
			if ri == rj {
				continue
			}
			if ri < rj {
				parent[rj] = ri
			} else {
				parent[ri] = rj
			}
		}
	}

	var g Grouping
	byRoot := make(map[int][]int)
	for i := range segs {
		if !paired[i] {
			g.Singletons = append(g.Singletons, i)
			continue
		}
		r := find(i)
		byRoot[r] = append(byRoot[r], i)
	}
	for _, members := range byRoot {
		g.Groups = append(g.Groups, members)
	}
	sort.Slice(g.Groups, func(a, b int) bool {
		return g.Groups[a][0] < g.Groups[b][0]
	})
	return g
}
