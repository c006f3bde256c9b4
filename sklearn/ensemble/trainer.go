package ensemble

import (
	"math"
	"sort"
)

// treeParams bounds the growth of one regression tree.
type treeParams struct {
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
}

// splitInfo contains information about a candidate split.
type splitInfo struct {
	Feature    int
	Threshold  float64
	Gain       float64
	LeftCount  int
	RightCount int
}

// treeBuilder grows one regression tree on the current pseudo-residuals with
// squared error impurity.
type treeBuilder struct {
	params    treeParams
	X         [][]float64
	residuals []float64
	y         []float64
	loss      binomialDeviance
}

// build grows a tree over all rows.
func (b *treeBuilder) build() Tree {
	indices := make([]int, len(b.X))
	for i := range indices {
		indices[i] = i
	}
	tree := Tree{Nodes: make([]Node, 0, 1<<min(b.params.MaxDepth+1, 12))}
	b.buildNode(&tree, indices, 0)
	return tree
}

// buildNode recursively builds tree nodes and returns the index of the node
// it appended.
func (b *treeBuilder) buildNode(tree *Tree, indices []int, depth int) int {
	nodeIdx := len(tree.Nodes)
	tree.Nodes = append(tree.Nodes, Node{LeftChild: -1, RightChild: -1, NSamples: len(indices)})

	// Check stopping conditions
	if depth >= b.params.MaxDepth ||
		len(indices) < b.params.MinSamplesSplit ||
		len(indices) < 2*b.params.MinSamplesLeaf ||
		b.isPure(indices) {
		tree.Nodes[nodeIdx].LeafValue = b.loss.leafValue(b.residuals, b.y, indices)
		return nodeIdx
	}

	bestSplit := b.findBestSplit(indices)
	if bestSplit.Gain <= 0 {
		tree.Nodes[nodeIdx].LeafValue = b.loss.leafValue(b.residuals, b.y, indices)
		return nodeIdx
	}

	leftIndices, rightIndices := b.splitData(indices, bestSplit)
	leftChild := b.buildNode(tree, leftIndices, depth+1)
	rightChild := b.buildNode(tree, rightIndices, depth+1)

	node := &tree.Nodes[nodeIdx]
	node.SplitFeature = bestSplit.Feature
	node.Threshold = bestSplit.Threshold
	node.Gain = bestSplit.Gain
	node.LeftChild = leftChild
	node.RightChild = rightChild
	return nodeIdx
}

// isPure reports whether every residual in indices is (numerically) equal.
func (b *treeBuilder) isPure(indices []int) bool {
	first := b.residuals[indices[0]]
	for _, idx := range indices[1:] {
		if math.Abs(b.residuals[idx]-first) > 1e-12 {
			return false
		}
	}
	return true
}

// findBestSplit scans features in index order; the first feature reaching
// the highest gain wins.
func (b *treeBuilder) findBestSplit(indices []int) splitInfo {
	bestSplit := splitInfo{Gain: -math.MaxFloat64}
	for j := range b.X[0] {
		split := b.findBestSplitForFeature(indices, j)
		if split.Gain > bestSplit.Gain {
			bestSplit = split
		}
	}
	return bestSplit
}

// findBestSplitForFeature finds the best threshold for a specific feature.
func (b *treeBuilder) findBestSplitForFeature(indices []int, feature int) splitInfo {
	type sample struct {
		value float64
		idx   int
	}
	values := make([]sample, len(indices))
	totalSum := 0.0
	for i, idx := range indices {
		values[i] = sample{value: b.X[idx][feature], idx: idx}
		totalSum += b.residuals[idx]
	}
	sort.SliceStable(values, func(i, j int) bool {
		return values[i].value < values[j].value
	})

	bestSplit := splitInfo{Feature: feature, Gain: -math.MaxFloat64}
	total := float64(len(indices))
	leftSum := 0.0
	for i := 0; i < len(values)-1; i++ {
		leftSum += b.residuals[values[i].idx]
		leftCount := i + 1
		rightCount := len(values) - leftCount

		if values[i].value == values[i+1].value {
			continue
		}
		if leftCount < b.params.MinSamplesLeaf || rightCount < b.params.MinSamplesLeaf {
			continue
		}

		gain := calculateSplitGain(leftSum, float64(leftCount), totalSum-leftSum, float64(rightCount), totalSum, total)
		if gain > bestSplit.Gain {
			threshold := (values[i].value + values[i+1].value) / 2
			// the midpoint can round up to the right value
			if threshold == values[i+1].value {
				threshold = values[i].value
			}
			bestSplit.Gain = gain
			bestSplit.Threshold = threshold
			bestSplit.LeftCount = leftCount
			bestSplit.RightCount = rightCount
		}
	}
	return bestSplit
}

// calculateSplitGain returns the decrease of the residual sum of squares
// achieved by a split.
func calculateSplitGain(leftSum, leftCount, rightSum, rightCount, totalSum, totalCount float64) float64 {
	leftScore := leftSum * leftSum / leftCount
	rightScore := rightSum * rightSum / rightCount
	totalScore := totalSum * totalSum / totalCount
	return leftScore + rightScore - totalScore
}

// splitData splits indices based on a split decision.
func (b *treeBuilder) splitData(indices []int, split splitInfo) ([]int, []int) {
	leftIndices := make([]int, 0, split.LeftCount)
	rightIndices := make([]int, 0, split.RightCount)
	for _, idx := range indices {
		if b.X[idx][split.Feature] <= split.Threshold {
			leftIndices = append(leftIndices, idx)
		} else {
			rightIndices = append(rightIndices, idx)
		}
	}
	return leftIndices, rightIndices
}
