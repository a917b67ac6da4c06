package lattice

// Branching describes the transitions from one slice to the next. Node
// index i of the parent slice has its middle child at space index k[i];
// its down and up children are k[i]-1 and k[i]+1.
type Branching struct {
	k          []int
	probs      [3][]float64
	kMin, kMax int
}

func newBranching(capacity int) *Branching {
	b := &Branching{k: make([]int, 0, capacity)}
	for i := range b.probs {
		b.probs[i] = make([]float64, 0, capacity)
	}
	return b
}

func (b *Branching) add(k int, pDown, pMid, pUp float64) {
	if len(b.k) == 0 || k < b.kMin {
		b.kMin = k
	}
	if len(b.k) == 0 || k > b.kMax {
		b.kMax = k
	}
	b.k = append(b.k, k)
	b.probs[0] = append(b.probs[0], pDown)
	b.probs[1] = append(b.probs[1], pMid)
	b.probs[2] = append(b.probs[2], pUp)
}

// Len is the number of parent nodes.
func (b *Branching) Len() int { return len(b.k) }

// Center returns the space index of the middle child of parent node index.
func (b *Branching) Center(index int) int { return b.k[index] }

// JMin is the lowest space index of the child slice.
func (b *Branching) JMin() int { return b.kMin - 1 }

// JMax is the highest space index of the child slice.
func (b *Branching) JMax() int { return b.kMax + 1 }

// Size is the number of nodes in the child slice.
func (b *Branching) Size() int { return b.JMax() - b.JMin() + 1 }

// Descendant returns the zero-based index, within the child slice, of the
// child reached from parent index along branch 0 (down), 1 (mid) or 2 (up).
func (b *Branching) Descendant(index, branch int) int {
	return b.k[index] - b.JMin() - 1 + branch
}

// Probability returns the transition probability of the given branch.
func (b *Branching) Probability(index, branch int) float64 {
	return b.probs[branch][index]
}
