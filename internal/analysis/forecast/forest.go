package forecast

import (
	"math"
	"math/rand"
	"sort"
)

// forest is a bagged regression forest: each tree trains on a bootstrap
// sample and splits on a random feature subset, predictions are the mean
// across trees.
type forest struct {
	trees    []*treeNode
	nTrees   int
	maxDepth int
	minLeaf  int
	rng      *rand.Rand
}

type treeNode struct {
	leaf      bool
	value     float64
	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode
}

func newForest(nTrees, maxDepth, minLeaf int, seed int64) *forest {
	return &forest{
		nTrees:   nTrees,
		maxDepth: maxDepth,
		minLeaf:  minLeaf,
		rng:      rand.New(rand.NewSource(seed)),
	}
}

func (f *forest) fit(features [][]float64, targets []float64) {
	n := len(targets)
	f.trees = make([]*treeNode, f.nTrees)
	for t := 0; t < f.nTrees; t++ {
		sample := make([]int, n)
		for i := range sample {
			sample[i] = f.rng.Intn(n)
		}
		f.trees[t] = f.grow(features, targets, sample, 0)
	}
}

func (f *forest) predict(row []float64) float64 {
	sum := 0.0
	for _, tree := range f.trees {
		sum += tree.eval(row)
	}
	return sum / float64(len(f.trees))
}

func (n *treeNode) eval(row []float64) float64 {
	for !n.leaf {
		if row[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.value
}

func (f *forest) grow(features [][]float64, targets []float64, indexes []int, depth int) *treeNode {
	mean, variance := meanVariance(targets, indexes)
	if depth >= f.maxDepth || len(indexes) < 2*f.minLeaf || variance == 0 {
		return &treeNode{leaf: true, value: mean}
	}

	feature, threshold, ok := f.bestSplit(features, targets, indexes)
	if !ok {
		return &treeNode{leaf: true, value: mean}
	}

	left := make([]int, 0, len(indexes))
	right := make([]int, 0, len(indexes))
	for _, i := range indexes {
		if features[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) < f.minLeaf || len(right) < f.minLeaf {
		return &treeNode{leaf: true, value: mean}
	}

	return &treeNode{
		feature:   feature,
		threshold: threshold,
		left:      f.grow(features, targets, left, depth+1),
		right:     f.grow(features, targets, right, depth+1),
	}
}

// splitCandidates caps how many thresholds are tried per feature.
const splitCandidates = 16

// bestSplit searches a random subset of features (one third, the usual
// regression heuristic) for the threshold with the lowest weighted
// squared error.
func (f *forest) bestSplit(features [][]float64, targets []float64, indexes []int) (int, float64, bool) {
	nFeatures := len(features[0])
	subset := nFeatures / 3
	if subset < 1 {
		subset = 1
	}

	candidates := f.rng.Perm(nFeatures)[:subset]

	bestScore := math.Inf(1)
	bestFeature, bestThreshold := -1, 0.0

	for _, feature := range candidates {
		values := make([]float64, len(indexes))
		for j, i := range indexes {
			values[j] = features[i][feature]
		}
		sort.Float64s(values)

		stride := len(values) / splitCandidates
		if stride < 1 {
			stride = 1
		}
		for j := stride; j < len(values); j += stride {
			if values[j] == values[j-1] {
				continue
			}
			threshold := (values[j] + values[j-1]) / 2
			score := splitScore(features, targets, indexes, feature, threshold)
			if score < bestScore {
				bestScore = score
				bestFeature = feature
				bestThreshold = threshold
			}
		}
	}

	return bestFeature, bestThreshold, bestFeature >= 0
}

// splitScore is the summed squared error of both sides around their means.
func splitScore(features [][]float64, targets []float64, indexes []int, feature int, threshold float64) float64 {
	var sumL, sumL2, sumR, sumR2 float64
	var nL, nR int
	for _, i := range indexes {
		t := targets[i]
		if features[i][feature] <= threshold {
			sumL += t
			sumL2 += t * t
			nL++
		} else {
			sumR += t
			sumR2 += t * t
			nR++
		}
	}
	if nL == 0 || nR == 0 {
		return math.Inf(1)
	}
	sseL := sumL2 - sumL*sumL/float64(nL)
	sseR := sumR2 - sumR*sumR/float64(nR)
	return sseL + sseR
}

func meanVariance(targets []float64, indexes []int) (float64, float64) {
	if len(indexes) == 0 {
		return 0, 0
	}
	var sum, sum2 float64
	for _, i := range indexes {
		sum += targets[i]
		sum2 += targets[i] * targets[i]
	}
	n := float64(len(indexes))
	mean := sum / n
	return mean, sum2/n - mean*mean
}
