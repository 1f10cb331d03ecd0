package gbdt

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/abalone/pkg/errors"
)

// Node represents a single node in a regression tree.
// Leaves have LeftChild and RightChild set to -1.
type Node struct {
	NodeID     int
	ParentID   int // -1 for root
	LeftChild  int
	RightChild int

	// Split information (for non-leaf nodes)
	SplitFeature int
	Threshold    float64 // samples with value <= Threshold go left
	Gain         float64

	// Leaf information
	LeafValue float64
	Cover     float64 // sum of hessians reaching the node
}

// IsLeaf returns true if the node is a leaf node
func (n *Node) IsLeaf() bool {
	return n.LeftChild == -1 && n.RightChild == -1
}

// Tree is one member of the ensemble.
type Tree struct {
	TreeIndex     int
	NumLeaves     int
	Depth         int
	ShrinkageRate float64 // learning rate applied to this tree
	Nodes         []Node
}

// Predict returns the shrunk output of this tree for one sample.
func (t *Tree) Predict(features []float64) float64 {
	nodeID := 0
	for nodeID >= 0 && nodeID < len(t.Nodes) {
		node := &t.Nodes[nodeID]
		if node.IsLeaf() {
			return node.LeafValue * t.ShrinkageRate
		}
		if features[node.SplitFeature] <= node.Threshold {
			nodeID = node.LeftChild
		} else {
			nodeID = node.RightChild
		}
	}
	return 0.0
}

// Model is a fitted tree ensemble. It is read-only after training and safe
// for concurrent prediction.
type Model struct {
	Objective    string
	NumFeatures  int
	FeatureNames []string
	BaseScore    float64
	Params       Params
	Trees        []Tree
}

// Predict makes one prediction per row of X.
func (m *Model) Predict(X mat.Matrix) (*mat.VecDense, error) {
	rows, cols := X.Dims()
	if cols != m.NumFeatures {
		return nil, errors.NewDimensionError("Model.Predict", m.NumFeatures, cols, 1)
	}
	if rows == 0 {
		return nil, errors.NewValueError("Model.Predict", "empty data")
	}

	out := mat.NewVecDense(rows, nil)
	features := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(features, i, X)
		out.SetVec(i, m.PredictSingle(features))
	}
	return out, nil
}

// PredictSingle makes a prediction for a single sample.
func (m *Model) PredictSingle(features []float64) float64 {
	pred := m.BaseScore
	for i := range m.Trees {
		pred += m.Trees[i].Predict(features)
	}
	return pred
}

// Validate checks structural integrity of a decoded model: node links stay
// in range, split features exist and all stored numbers are finite.
func (m *Model) Validate() error {
	if m.NumFeatures < 1 {
		return errors.NewValueError("Model.Validate", "model has no features")
	}
	if len(m.FeatureNames) != 0 && len(m.FeatureNames) != m.NumFeatures {
		return errors.NewDimensionError("Model.Validate", m.NumFeatures, len(m.FeatureNames), 1)
	}
	if math.IsNaN(m.BaseScore) || math.IsInf(m.BaseScore, 0) {
		return errors.NewNumericalInstabilityError("Model.Validate", []float64{m.BaseScore}, 0)
	}
	for ti := range m.Trees {
		tree := &m.Trees[ti]
		if len(tree.Nodes) == 0 {
			return errors.NewValueError("Model.Validate", "empty tree")
		}
		for ni := range tree.Nodes {
			node := &tree.Nodes[ni]
			if node.IsLeaf() {
				if math.IsNaN(node.LeafValue) || math.IsInf(node.LeafValue, 0) {
					return errors.NewNumericalInstabilityError("Model.Validate", []float64{node.LeafValue}, ti)
				}
				continue
			}
			if node.LeftChild <= ni || node.RightChild <= ni ||
				node.LeftChild >= len(tree.Nodes) || node.RightChild >= len(tree.Nodes) {
				return errors.NewValueError("Model.Validate", "tree node links out of range")
			}
			if node.SplitFeature < 0 || node.SplitFeature >= m.NumFeatures {
				return errors.NewValueError("Model.Validate", "split feature out of range")
			}
		}
	}
	return nil
}

// FeatureImportance returns the total split gain per feature, normalized
// to sum to one.
func (m *Model) FeatureImportance() []float64 {
	importance := make([]float64, m.NumFeatures)
	for _, tree := range m.Trees {
		for _, node := range tree.Nodes {
			if !node.IsLeaf() {
				importance[node.SplitFeature] += node.Gain
			}
		}
	}

	total := 0.0
	for _, v := range importance {
		total += v
	}
	if total > 0 {
		for i := range importance {
			importance[i] /= total
		}
	}
	return importance
}
