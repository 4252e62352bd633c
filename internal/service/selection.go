package service

import (
	"math"
	"math/rand/v2"
	"slices"
	"sync"

	"github.com/mathieu-neron/SkipTube/skiptube-go/internal/model"
)

// SelectionWeight maps a vote score onto a sampling weight. The +3 makes -3
// the point where a segment can no longer be picked; the x10 flattens the
// curve so votes stop mattering much past about 13.
func SelectionWeight(score int) float64 {
	v := float64(score+3) * 10
	if v <= 0 {
		return 0
	}
	return math.Sqrt(v)
}

// PositiveWeightSum adds up the positive scores among choices. A group
// representative is displayed with this sum: an upvote on any member counts
// as a vote for the time range existing at all.
func PositiveWeightSum(choices []int, scores []int) int {
	sum := 0
	for _, c := range choices {
		if scores[c] > 0 {
			sum += scores[c]
		}
	}
	return sum
}

// Selector draws score-weighted random choices. The zero value is not
// usable; call NewSelector.
type Selector struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSelector returns a selector drawing from rng, or from the shared
// goroutine-safe source when rng is nil.
func NewSelector(rng *rand.Rand) *Selector {
	return &Selector{rng: rng}
}

func (s *Selector) float64() float64 {
	if s.rng == nil {
		return rand.Float64()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

// Choose picks k distinct entries from choices, which index into scores.
// Each pick is proportional to SelectionWeight of the entry's score and
// removes it from the pool.
func (s *Selector) Choose(choices []int, scores []int, k int) ([]int, error) {
	if k > len(choices) {
		return nil, model.ErrTooManyChoices
	}

	pool := slices.Clone(choices)
	chosen := make([]int, 0, k)
	weights := make([]float64, len(pool))
	for len(chosen) < k {
		weights = weights[:len(pool)]
		total := 0.0
		for i, c := range pool {
			weights[i] = SelectionWeight(scores[c])
			total += weights[i]
		}

		i := s.pick(weights, total)
		chosen = append(chosen, pool[i])
		pool = slices.Delete(pool, i, i+1)
	}
	return chosen, nil
}

// pick walks the cumulative distribution in pool order. Zero-weight entries
// are only reachable when every weight is zero.
func (s *Selector) pick(weights []float64, total float64) int {
	r := s.float64()
	if total <= 0 {
		return int(r * float64(len(weights)))
	}

	target := r * total
	cum := 0.0
	last := -1
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		last = i
		cum += w
		if target < cum {
			return i
		}
	}
	return last
}
