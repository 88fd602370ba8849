package ml

import (
	"errors"
	"sort"
)

// DecisionTree is a regression tree stored as a flat arena of nodes. Children
// are addressed by index into Nodes; the root lives at index 0.
type DecisionTree struct {
	Nodes []TreeNode `json:"nodes"`
}

// TreeNode is one arena entry: an internal split or a leaf carrying the mean
// target value of its partition.
type TreeNode struct {
	FeatureIdx int     `json:"feature_idx"`
	Threshold  float64 `json:"threshold"`
	LeftChild  int     `json:"left_child"`
	RightChild int     `json:"right_child"`
	Value      float64 `json:"value"`
	IsLeaf     bool    `json:"is_leaf"`
}

// Train fits the tree with recursive variance-reduction splitting. A node
// becomes a leaf when maxDepth is reached, fewer than minSamplesSplit samples
// remain, or no split yields a strictly positive gain.
func (dt *DecisionTree) Train(features [][]float64, targets []float64, maxDepth, minSamplesSplit int) error {
	if len(features) == 0 || len(targets) == 0 {
		return ErrEmptyTrainingSet
	}
	if len(features) != len(targets) {
		return errors.New("features and targets size mismatch")
	}
	if maxDepth <= 0 {
		maxDepth = 10
	}
	if minSamplesSplit < 2 {
		minSamplesSplit = 2
	}

	dt.Nodes = buildNode(features, targets, 0, maxDepth, minSamplesSplit)
	return nil
}

// Predict walks the tree from the root, going left when the queried feature
// value is <= the node threshold, until it reaches a leaf.
func (dt *DecisionTree) Predict(features []float64) (float64, error) {
	if len(dt.Nodes) == 0 {
		return 0, ErrNotTrained
	}
	idx := 0
	for {
		node := dt.Nodes[idx]
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
		if idx < 0 || idx >= len(dt.Nodes) {
			return 0, errors.New("invalid tree state")
		}
	}
}

func buildNode(features [][]float64, targets []float64, depth, maxDepth, minSamplesSplit int) []TreeNode {
	value := mean(targets)
	if depth >= maxDepth || len(targets) < minSamplesSplit {
		return leafNode(value)
	}

	bestFeature, threshold, ok := findBestSplit(features, targets)
	if !ok {
		return leafNode(value)
	}

	leftFeatures, leftTargets, rightFeatures, rightTargets := splitData(features, targets, bestFeature, threshold)
	if len(leftTargets) == 0 || len(rightTargets) == 0 {
		return leafNode(value)
	}

	leftNodes := buildNode(leftFeatures, leftTargets, depth+1, maxDepth, minSamplesSplit)
	rightNodes := buildNode(rightFeatures, rightTargets, depth+1, maxDepth, minSamplesSplit)

	root := TreeNode{
		FeatureIdx: bestFeature,
		Threshold:  threshold,
		LeftChild:  1,
		RightChild: 1 + len(leftNodes),
		Value:      value,
	}

	nodes := make([]TreeNode, 0, 1+len(leftNodes)+len(rightNodes))
	nodes = append(nodes, root)
	nodes = append(nodes, shiftChildren(leftNodes, 1)...)
	nodes = append(nodes, shiftChildren(rightNodes, 1+len(leftNodes))...)
	return nodes
}

func leafNode(value float64) []TreeNode {
	return []TreeNode{{
		FeatureIdx: -1,
		LeftChild:  -1,
		RightChild: -1,
		Value:      value,
		IsLeaf:     true,
	}}
}

// shiftChildren rebases a subtree's internal child indexes so they stay valid
// once the subtree is appended at the given offset in the parent arena.
func shiftChildren(nodes []TreeNode, offset int) []TreeNode {
	for i := range nodes {
		if nodes[i].IsLeaf {
			continue
		}
		nodes[i].LeftChild += offset
		nodes[i].RightChild += offset
	}
	return nodes
}

// findBestSplit scores every feature and every distinct observed value of that
// feature as a candidate threshold, picking the pair with the strictly
// greatest variance reduction. Ties keep the first candidate found in
// feature-then-value order.
func findBestSplit(features [][]float64, targets []float64) (int, float64, bool) {
	parentVariance := variance(targets)
	total := float64(len(targets))
	featureCount := len(features[0])

	bestFeature := -1
	bestThreshold := 0.0
	bestGain := 0.0

	for featureIdx := 0; featureIdx < featureCount; featureIdx++ {
		for _, threshold := range distinctValues(features, featureIdx) {
			leftTargets, rightTargets := splitTargets(features, targets, featureIdx, threshold)
			if len(leftTargets) == 0 || len(rightTargets) == 0 {
				continue
			}
			weighted := (float64(len(leftTargets))*variance(leftTargets) +
				float64(len(rightTargets))*variance(rightTargets)) / total
			gain := parentVariance - weighted
			if gain > bestGain {
				bestGain = gain
				bestFeature = featureIdx
				bestThreshold = threshold
			}
		}
	}

	if bestFeature == -1 {
		return -1, 0, false
	}
	return bestFeature, bestThreshold, true
}

func distinctValues(features [][]float64, featureIdx int) []float64 {
	seen := make(map[float64]struct{}, len(features))
	for _, row := range features {
		seen[row[featureIdx]] = struct{}{}
	}
	values := make([]float64, 0, len(seen))
	for value := range seen {
		values = append(values, value)
	}
	sort.Float64s(values)
	return values
}

func splitData(features [][]float64, targets []float64, featureIdx int, threshold float64) ([][]float64, []float64, [][]float64, []float64) {
	leftFeatures := make([][]float64, 0)
	leftTargets := make([]float64, 0)
	rightFeatures := make([][]float64, 0)
	rightTargets := make([]float64, 0)
	for i, row := range features {
		if row[featureIdx] <= threshold {
			leftFeatures = append(leftFeatures, row)
			leftTargets = append(leftTargets, targets[i])
		} else {
			rightFeatures = append(rightFeatures, row)
			rightTargets = append(rightTargets, targets[i])
		}
	}
	return leftFeatures, leftTargets, rightFeatures, rightTargets
}

func splitTargets(features [][]float64, targets []float64, featureIdx int, threshold float64) ([]float64, []float64) {
	leftTargets := make([]float64, 0)
	rightTargets := make([]float64, 0)
	for i, row := range features {
		if row[featureIdx] <= threshold {
			leftTargets = append(leftTargets, targets[i])
		} else {
			rightTargets = append(rightTargets, targets[i])
		}
	}
	return leftTargets, rightTargets
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, value := range values {
		sum += value
	}
	return sum / float64(len(values))
}

// variance is the population variance of values.
func variance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := mean(values)
	sum := 0.0
	for _, value := range values {
		diff := value - m
		sum += diff * diff
	}
	return sum / float64(len(values))
}
