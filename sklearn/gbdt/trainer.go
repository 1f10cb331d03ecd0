package gbdt

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/abalone/pkg/errors"
	"github.com/YuminosukeSato/abalone/pkg/log"
)

// minSplitLoss is the smallest loss reduction accepted as a real split.
// Anything below is floating point noise.
const minSplitLoss = 1e-6

// Trainer implements the boosting loop and tree construction.
type Trainer struct {
	params Params

	// Data
	X *mat.Dense
	y []float64

	// Gradient and Hessian
	gradients []float64
	hessians  []float64

	// Cached ensemble output for every training row
	predictions []float64

	trees []Tree

	iteration int

	objective ObjectiveFunction
	initScore float64
}

// SplitInfo contains information about a potential split
type SplitInfo struct {
	Feature    int
	Threshold  float64
	Gain       float64
	LeftCount  int
	RightCount int
	LeftGrad   float64
	RightGrad  float64
	LeftHess   float64
	RightHess  float64
}

// NewTrainer creates a trainer. params must already be validated.
func NewTrainer(params Params) *Trainer {
	return &Trainer{params: params}
}

// Fit runs params.NumEstimators boosting rounds on X and y.
func (t *Trainer) Fit(X *mat.Dense, y []float64) error {
	logger := log.GetLoggerWithName("gbdt.trainer")

	objective, err := CreateObjectiveFunction(t.params.Objective)
	if err != nil {
		return err
	}
	t.objective = objective
	t.X = X
	t.y = y

	rows, _ := X.Dims()
	t.gradients = make([]float64, rows)
	t.hessians = make([]float64, rows)
	t.predictions = make([]float64, rows)
	t.trees = make([]Tree, 0, t.params.NumEstimators)

	t.initScore = t.objective.GetInitScore(y)
	for i := range t.predictions {
		t.predictions[i] = t.initScore
	}

	for iter := 0; iter < t.params.NumEstimators; iter++ {
		t.iteration = iter

		t.calculateGradients()
		tree := t.buildTree()
		t.trees = append(t.trees, tree)
		t.updatePredictions(&tree)

		loss := t.calculateLoss()
		if err := errors.CheckScalar("gbdt.Fit", loss, iter); err != nil {
			return err
		}

		if iter%10 == 0 || iter == t.params.NumEstimators-1 {
			logger.Debug("Training progress",
				log.IterationKey, iter,
				log.LossKey, loss,
				"leaves", tree.NumLeaves,
			)
		}
	}

	return nil
}

// calculateGradients computes gradients and hessians for current predictions
func (t *Trainer) calculateGradients() {
	for i, target := range t.y {
		t.gradients[i] = t.objective.CalculateGradient(t.predictions[i], target)
		t.hessians[i] = t.objective.CalculateHessian(t.predictions[i], target)
	}
}

// updatePredictions adds the new tree's output to the cached predictions
func (t *Trainer) updatePredictions(tree *Tree) {
	for i := range t.predictions {
		t.predictions[i] += tree.Predict(t.X.RawRowView(i))
	}
}

// calculateLoss calculates the mean training loss
func (t *Trainer) calculateLoss() float64 {
	loss := 0.0
	for i, target := range t.y {
		loss += t.objective.CalculateLoss(t.predictions[i], target)
	}
	return loss / float64(len(t.y))
}

// buildTree constructs a single regression tree
func (t *Trainer) buildTree() Tree {
	tree := Tree{
		TreeIndex:     t.iteration,
		ShrinkageRate: t.params.LearningRate,
		Nodes:         []Node{},
	}

	rows, _ := t.X.Dims()
	rootIndices := make([]int, rows)
	for i := range rootIndices {
		rootIndices[i] = i
	}

	t.buildNode(&tree, rootIndices, -1, 0)

	for _, node := range tree.Nodes {
		if node.IsLeaf() {
			tree.NumLeaves++
		}
	}
	return tree
}

// buildNode recursively builds tree nodes depth-first and returns the index
// of the node it created.
func (t *Trainer) buildNode(tree *Tree, indices []int, parentIdx int, depth int) int {
	nodeIdx := len(tree.Nodes)
	if depth > tree.Depth {
		tree.Depth = depth
	}

	sumGrad, sumHess := t.sums(indices)

	if depth >= t.params.MaxDepth || sumHess < 2*t.params.MinChildWeight || len(indices) < 2 {
		return t.appendLeaf(tree, nodeIdx, parentIdx, sumGrad, sumHess)
	}

	bestSplit := t.findBestSplit(indices, sumGrad, sumHess)
	if bestSplit.Gain <= minSplitLoss {
		return t.appendLeaf(tree, nodeIdx, parentIdx, sumGrad, sumHess)
	}

	tree.Nodes = append(tree.Nodes, Node{
		NodeID:       nodeIdx,
		ParentID:     parentIdx,
		SplitFeature: bestSplit.Feature,
		Threshold:    bestSplit.Threshold,
		Gain:         bestSplit.Gain,
		Cover:        sumHess,
	})

	leftIndices, rightIndices := t.splitData(indices, bestSplit)

	leftChild := t.buildNode(tree, leftIndices, nodeIdx, depth+1)
	rightChild := t.buildNode(tree, rightIndices, nodeIdx, depth+1)

	tree.Nodes[nodeIdx].LeftChild = leftChild
	tree.Nodes[nodeIdx].RightChild = rightChild

	return nodeIdx
}

func (t *Trainer) appendLeaf(tree *Tree, nodeIdx, parentIdx int, sumGrad, sumHess float64) int {
	tree.Nodes = append(tree.Nodes, Node{
		NodeID:     nodeIdx,
		ParentID:   parentIdx,
		LeftChild:  -1,
		RightChild: -1,
		LeafValue:  t.calculateLeafValue(sumGrad, sumHess),
		Cover:      sumHess,
	})
	return nodeIdx
}

// findBestSplit scans every feature in index order. Strict comparison keeps
// the first of equally good splits.
func (t *Trainer) findBestSplit(indices []int, totalGrad, totalHess float64) SplitInfo {
	_, cols := t.X.Dims()
	bestSplit := SplitInfo{Feature: -1, Gain: math.Inf(-1)}

	for j := 0; j < cols; j++ {
		split := t.findBestSplitForFeature(indices, j, totalGrad, totalHess)
		if split.Gain > bestSplit.Gain {
			bestSplit = split
		}
	}
	return bestSplit
}

type featureValue struct {
	value float64
	idx   int
}

// findBestSplitForFeature finds the best threshold for one feature
func (t *Trainer) findBestSplitForFeature(indices []int, feature int, totalGrad, totalHess float64) SplitInfo {
	values := make([]featureValue, len(indices))
	for i, idx := range indices {
		values[i] = featureValue{value: t.X.At(idx, feature), idx: idx}
	}
	sort.Slice(values, func(a, b int) bool {
		if values[a].value != values[b].value {
			return values[a].value < values[b].value
		}
		return values[a].idx < values[b].idx
	})

	bestSplit := SplitInfo{
		Feature: feature,
		Gain:    math.Inf(-1),
	}

	leftGrad := 0.0
	leftHess := 0.0
	leftCount := 0

	for i := 0; i < len(values)-1; i++ {
		idx := values[i].idx
		leftGrad += t.gradients[idx]
		leftHess += t.hessians[idx]
		leftCount++

		// Skip if same value
		if values[i].value == values[i+1].value {
			continue
		}

		rightGrad := totalGrad - leftGrad
		rightHess := totalHess - leftHess

		if leftHess < t.params.MinChildWeight || rightHess < t.params.MinChildWeight {
			continue
		}

		gain := t.calculateSplitGain(leftGrad, leftHess, rightGrad, rightHess, totalGrad, totalHess)
		if gain > bestSplit.Gain {
			bestSplit.Gain = gain
			bestSplit.Threshold = (values[i].value + values[i+1].value) / 2
			bestSplit.LeftCount = leftCount
			bestSplit.RightCount = len(indices) - leftCount
			bestSplit.LeftGrad = leftGrad
			bestSplit.RightGrad = rightGrad
			bestSplit.LeftHess = leftHess
			bestSplit.RightHess = rightHess
		}
	}

	return bestSplit
}

// calculateSplitGain is the reduction in regularized loss minus gamma.
func (t *Trainer) calculateSplitGain(leftGrad, leftHess, rightGrad, rightHess, totalGrad, totalHess float64) float64 {
	lambda := t.params.Lambda

	leftScore := (leftGrad * leftGrad) / (leftHess + lambda)
	rightScore := (rightGrad * rightGrad) / (rightHess + lambda)
	totalScore := (totalGrad * totalGrad) / (totalHess + lambda)

	return 0.5*(leftScore+rightScore-totalScore) - t.params.Gamma
}

// splitData splits indices based on a split decision
func (t *Trainer) splitData(indices []int, split SplitInfo) ([]int, []int) {
	leftIndices := make([]int, 0, split.LeftCount)
	rightIndices := make([]int, 0, split.RightCount)

	for _, idx := range indices {
		if t.X.At(idx, split.Feature) <= split.Threshold {
			leftIndices = append(leftIndices, idx)
		} else {
			rightIndices = append(rightIndices, idx)
		}
	}
	return leftIndices, rightIndices
}

func (t *Trainer) sums(indices []int) (sumGrad, sumHess float64) {
	for _, idx := range indices {
		sumGrad += t.gradients[idx]
		sumHess += t.hessians[idx]
	}
	return sumGrad, sumHess
}

// calculateLeafValue is the optimal leaf weight with L2 regularization
func (t *Trainer) calculateLeafValue(sumGrad, sumHess float64) float64 {
	denom := sumHess + t.params.Lambda
	if denom == 0 {
		return 0
	}
	return -sumGrad / denom
}

// GetModel returns the trained model
func (t *Trainer) GetModel() *Model {
	_, cols := t.X.Dims()
	return &Model{
		Objective:   t.objective.Name(),
		NumFeatures: cols,
		BaseScore:   t.initScore,
		Params:      t.params,
		Trees:       t.trees,
	}
}

