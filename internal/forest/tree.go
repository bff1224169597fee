package forest

import (
	"cmp"
	"math/rand/v2"
	"slices"
)

const leaf = -1

// minImpurity is the SSE under which a node counts as pure.
const minImpurity = 1e-7

type node struct {
	feature   int
	threshold float64
	left      int32
	right     int32
	value     float64
}

// tree is a fitted regression tree stored as a flat node slice; nodes[0] is
// the root.
type tree struct {
	nodes []node
	// importance holds the total SSE reduction attributed to each feature.
	importance []float64
}

func (t *tree) predict(x []float64) float64 {
	i := int32(0)
	for {
		n := &t.nodes[i]
		if n.left == leaf {
			return n.value
		}
		if x[n.feature] <= n.threshold {
			i = n.left
		} else {
			i = n.right
		}
	}
}

func (t *tree) depth() int {
	var walk func(i int32) int
	walk = func(i int32) int {
		n := t.nodes[i]
		if n.left == leaf {
			return 0
		}
		return 1 + max(walk(n.left), walk(n.right))
	}
	return walk(0)
}

type treeBuilder struct {
	X         [][]float64
	y         []float64
	params    Params
	nFeatures int
	rng       *rand.Rand

	nodes      []node
	importance []float64
	scratch    []int
}

// split is a candidate partition of a node.
type split struct {
	feature   int
	threshold float64
	proxy     float64
	ok        bool
}

func fitTree(X [][]float64, y []float64, params Params, seed uint64) *tree {
	n := len(y)
	nFeatures := len(X[0])
	b := &treeBuilder{
		X:          X,
		y:          y,
		params:     params,
		nFeatures:  nFeatures,
		rng:        rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		importance: make([]float64, nFeatures),
		scratch:    make([]int, n),
	}

	idx := make([]int, n)
	if params.Bootstrap {
		for i := range idx {
			idx[i] = b.rng.IntN(n)
		}
	} else {
		for i := range idx {
			idx[i] = i
		}
	}

	b.build(idx, 0)
	return &tree{nodes: b.nodes, importance: b.importance}
}

// stats returns the sum, and the sum of squared errors around the mean, of
// the labels in idx.
func (b *treeBuilder) stats(idx []int) (sum, sse float64) {
	var sq float64
	for _, i := range idx {
		v := b.y[i]
		sum += v
		sq += v * v
	}
	n := float64(len(idx))
	sse = sq - sum*sum/n
	if sse < 0 {
		sse = 0
	}
	return sum, sse
}

func (b *treeBuilder) build(idx []int, depth int) int32 {
	sum, sse := b.stats(idx)
	n := len(idx)

	self := int32(len(b.nodes))
	b.nodes = append(b.nodes, node{left: leaf, right: leaf, value: sum / float64(n)})

	p := b.params
	if n < p.MinSamplesSplit || n < 2*p.MinSamplesLeaf || sse <= minImpurity {
		return self
	}
	if p.MaxDepth > 0 && depth >= p.MaxDepth {
		return self
	}

	best := b.bestSplit(idx, sum)
	if !best.ok {
		return self
	}

	// Partition idx in place: left side first.
	mid := 0
	for k, i := range idx {
		if b.X[i][best.feature] <= best.threshold {
			idx[mid], idx[k] = idx[k], idx[mid]
			mid++
		}
	}
	left, right := idx[:mid], idx[mid:]

	_, sseL := b.stats(left)
	_, sseR := b.stats(right)
	if gain := sse - sseL - sseR; gain > 0 {
		b.importance[best.feature] += gain
	}

	l := b.build(left, depth+1)
	r := b.build(right, depth+1)
	b.nodes[self].feature = best.feature
	b.nodes[self].threshold = best.threshold
	b.nodes[self].left = l
	b.nodes[self].right = r
	return self
}

// bestSplit maximises sumL²/nL + sumR²/nR, which is equivalent to minimising
// the children's total SSE.
func (b *treeBuilder) bestSplit(idx []int, total float64) split {
	p := b.params
	n := len(idx)
	tries := p.MaxFeatures
	if tries == 0 {
		tries = b.nFeatures
	}

	best := split{}
	sorted := b.scratch[:n]
	for _, f := range b.rng.Perm(b.nFeatures)[:tries] {
		copy(sorted, idx)
		slices.SortFunc(sorted, func(a, c int) int {
			return cmp.Compare(b.X[a][f], b.X[c][f])
		})

		var leftSum float64
		for k := 0; k < n-1; k++ {
			leftSum += b.y[sorted[k]]
			cur, next := b.X[sorted[k]][f], b.X[sorted[k+1]][f]
			if cur == next {
				continue
			}
			nL := k + 1
			nR := n - nL
			if nL < p.MinSamplesLeaf || nR < p.MinSamplesLeaf {
				continue
			}
			rightSum := total - leftSum
			proxy := leftSum*leftSum/float64(nL) + rightSum*rightSum/float64(nR)
			if !best.ok || proxy > best.proxy {
				best = split{
					feature:   f,
					threshold: cur + (next-cur)/2,
					proxy:     proxy,
					ok:        true,
				}
			}
		}
	}
	return best
}
