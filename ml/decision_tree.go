package ml

import (
	"errors"
	"fmt"
)

// RegressionTree is a fitted binary tree over an encoded vector. Nodes are
// stored flat; children are indexes into the same slice.
type RegressionTree struct {
	nodes []TreeNode
}

type TreeNode struct {
	FeatureIdx int     `json:"feature_idx"`
	Threshold  float64 `json:"threshold"`
	LeftChild  int     `json:"left_child"`
	RightChild int     `json:"right_child"`
	Value      float64 `json:"value"`
	IsLeaf     bool    `json:"is_leaf"`
}

// NewRegressionTree validates the node table once so Predict cannot loop.
func NewRegressionTree(nodes []TreeNode, width int) (*RegressionTree, error) {
	if len(nodes) == 0 {
		return nil, errors.New("tree has no nodes")
	}
	for i, node := range nodes {
		if node.IsLeaf {
			continue
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= width {
			return nil, fmt.Errorf("node %d: feature index %d out of range", i, node.FeatureIdx)
		}
		// children always follow their parent in the exported layout
		if node.LeftChild <= i || node.LeftChild >= len(nodes) {
			return nil, fmt.Errorf("node %d: invalid left child %d", i, node.LeftChild)
		}
		if node.RightChild <= i || node.RightChild >= len(nodes) {
			return nil, fmt.Errorf("node %d: invalid right child %d", i, node.RightChild)
		}
	}
	return &RegressionTree{nodes: append([]TreeNode(nil), nodes...)}, nil
}

func (dt *RegressionTree) Predict(features []float64) (float64, error) {
	if len(dt.nodes) == 0 {
		return 0, ErrModelNotLoaded
	}
	idx := 0
	for {
		node := dt.nodes[idx]
		if node.IsLeaf {
			return node.Value, nil
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= len(features) {
			return 0, errors.New("feature index out of range")
		}
		if features[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
		if idx < 0 || idx >= len(dt.nodes) {
			return 0, errors.New("invalid tree state")
		}
	}
}

// Forest averages the estimates of its trees.
type Forest struct {
	trees []*RegressionTree
}

func NewForest(trees []*RegressionTree) (*Forest, error) {
	if len(trees) == 0 {
		return nil, errors.New("forest has no trees")
	}
	return &Forest{trees: trees}, nil
}

func (f *Forest) Predict(features []float64) (float64, error) {
	var sum float64
	for i, tree := range f.trees {
		v, err := tree.Predict(features)
		if err != nil {
			return 0, fmt.Errorf("tree %d: %w", i, err)
		}
		sum += v
	}
	return sum / float64(len(f.trees)), nil
}

// Linear is an ordinary least squares fit over the encoded vector.
type Linear struct {
	Intercept    float64
	Coefficients []float64
}

func (l *Linear) Predict(features []float64) (float64, error) {
	if len(features) != len(l.Coefficients) {
		return 0, fmt.Errorf("vector has %d values, model has %d coefficients", len(features), len(l.Coefficients))
	}
	sum := l.Intercept
	for i, c := range l.Coefficients {
		sum += c * features[i]
	}
	return sum, nil
}
