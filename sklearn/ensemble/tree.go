package ensemble

// Node is one node of a regression tree. Leaves have LeftChild and
// RightChild set to -1.
type Node struct {
	LeftChild  int
	RightChild int

	// Split information (for non-leaf nodes)
	SplitFeature int
	Threshold    float64 // samples with value <= Threshold go left
	Gain         float64 // weighted impurity decrease of the split

	// Leaf information (for leaf nodes)
	LeafValue float64
	NSamples  int
}

// IsLeaf reports whether the node is terminal.
func (n *Node) IsLeaf() bool {
	return n.LeftChild == -1 && n.RightChild == -1
}

// Tree is a regression tree fitted to the pseudo-residuals of one boosting
// stage. Nodes[0] is the root.
type Tree struct {
	Nodes []Node
}

// Predict returns the leaf value reached by features.
func (t *Tree) Predict(features []float64) float64 {
	nodeID := 0
	for {
		node := &t.Nodes[nodeID]
		if node.IsLeaf() {
			return node.LeafValue
		}
		if features[node.SplitFeature] <= node.Threshold {
			nodeID = node.LeftChild
		} else {
			nodeID = node.RightChild
		}
	}
}

// NumLeaves returns the number of terminal nodes.
func (t *Tree) NumLeaves() int {
	count := 0
	for i := range t.Nodes {
		if t.Nodes[i].IsLeaf() {
			count++
		}
	}
	return count
}

// Depth returns the length of the longest root-to-leaf path.
func (t *Tree) Depth() int {
	var walk func(id, depth int) int
	walk = func(id, depth int) int {
		n := &t.Nodes[id]
		if n.IsLeaf() {
			return depth
		}
		return max(walk(n.LeftChild, depth+1), walk(n.RightChild, depth+1))
	}
	if len(t.Nodes) == 0 {
		return 0
	}
	return walk(0, 0)
}
