package forecast

import (
	"math"
	"math/rand"
	"sort"
)

// Params are the fixed boosting hyperparameters. The seed makes training
// reproducible run to run.
type Params struct {
	Trees        int     `json:"trees"`
	MaxDepth     int     `json:"maxDepth"`
	LearningRate float64 `json:"learningRate"`
	Subsample    float64 `json:"subsample"`
	ColSample    float64 `json:"colSample"`
	MinLeaf      int     `json:"minLeaf"`
	Seed         int64   `json:"seed"`
}

// DefaultParams mirrors the moderate-depth, moderate-count regularized setup
// the price models were calibrated with.
func DefaultParams() Params {
	return Params{
		Trees:        100,
		MaxDepth:     5,
		LearningRate: 0.1,
		Subsample:    0.8,
		ColSample:    0.8,
		MinLeaf:      2,
		Seed:         42,
	}
}

// treeNode is one node of a regression tree. Leaves carry the value; internal
// nodes split on Feature at Threshold (left: <= threshold).
type treeNode struct {
	Leaf      bool      `json:"leaf,omitempty"`
	Value     float64   `json:"v,omitempty"`
	Feature   int       `json:"f,omitempty"`
	Threshold float64   `json:"t,omitempty"`
	Left      *treeNode `json:"l,omitempty"`
	Right     *treeNode `json:"r,omitempty"`
}

func (n *treeNode) predict(x []float64) float64 {
	for !n.Leaf {
		if x[n.Feature] <= n.Threshold {
			n = n.Left
		} else {
			n = n.Right
		}
	}
	return n.Value
}

// GBRT is a gradient-boosted ensemble of regression trees built with squared
// loss. Gain accumulates the split-gain per feature for importance reporting.
type GBRT struct {
	Base         float64     `json:"base"`
	LearningRate float64     `json:"learningRate"`
	Trees        []*treeNode `json:"trees"`
	Gain         []float64   `json:"gain"`
}

// Predict evaluates the ensemble for one feature vector.
func (m *GBRT) Predict(x []float64) float64 {
	out := m.Base
	for _, t := range m.Trees {
		out += m.LearningRate * t.predict(x)
	}
	return out
}

// FeatureImportance returns each feature's share of the total split gain.
// All-zero gain (degenerate training data) yields an all-zero map.
func (m *GBRT) FeatureImportance(names []string) map[string]float64 {
	out := make(map[string]float64, len(names))
	total := 0.0
	for _, g := range m.Gain {
		total += g
	}
	for i, name := range names {
		if i >= len(m.Gain) || total == 0 {
			out[name] = 0
			continue
		}
		out[name] = m.Gain[i] / total
	}
	return out
}

// TrainGBRT fits the ensemble to (X, y). Each boosting round fits one tree to
// the current residuals over a row subsample and a feature subsample.
func TrainGBRT(X [][]float64, y []float64, p Params) *GBRT {
	n := len(y)
	nFeat := 0
	if n > 0 {
		nFeat = len(X[0])
	}
	m := &GBRT{LearningRate: p.LearningRate, Gain: make([]float64, nFeat)}
	if n == 0 {
		return m
	}

	m.Base = mean(y)
	rng := rand.New(rand.NewSource(p.Seed))
	pred := make([]float64, n)
	for i := range pred {
		pred[i] = m.Base
	}
	resid := make([]float64, n)

	for t := 0; t < p.Trees; t++ {
		for i := range resid {
			resid[i] = y[i] - pred[i]
		}
		rows := sampleIndices(rng, n, p.Subsample)
		feats := sampleIndices(rng, nFeat, p.ColSample)
		root := buildTree(X, resid, rows, feats, p.MaxDepth, p.MinLeaf, m.Gain)
		m.Trees = append(m.Trees, root)
		for i := range pred {
			pred[i] += p.LearningRate * root.predict(X[i])
		}
	}
	return m
}

// sampleIndices draws a sorted sample of ceil(frac*n) distinct indices.
func sampleIndices(rng *rand.Rand, n int, frac float64) []int {
	k := int(math.Ceil(frac * float64(n)))
	if k <= 0 || k > n {
		k = n
	}
	perm := rng.Perm(n)[:k]
	sort.Ints(perm)
	return perm
}

// buildTree grows one regression tree greedily on squared-error reduction.
func buildTree(X [][]float64, target []float64, rows []int, feats []int, depth, minLeaf int, gain []float64) *treeNode {
	if depth <= 0 || len(rows) < 2*minLeaf {
		return &treeNode{Leaf: true, Value: meanAt(target, rows)}
	}
	feat, threshold, g, ok := bestSplit(X, target, rows, feats, minLeaf)
	if !ok {
		return &treeNode{Leaf: true, Value: meanAt(target, rows)}
	}
	gain[feat] += g

	var left, right []int
	for _, i := range rows {
		if X[i][feat] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	return &treeNode{
		Feature:   feat,
		Threshold: threshold,
		Left:      buildTree(X, target, left, feats, depth-1, minLeaf, gain),
		Right:     buildTree(X, target, right, feats, depth-1, minLeaf, gain),
	}
}

// bestSplit scans every candidate feature for the threshold maximizing the
// squared-error gain, honoring the minimum leaf size.
func bestSplit(X [][]float64, target []float64, rows []int, feats []int, minLeaf int) (feat int, threshold, gain float64, ok bool) {
	n := len(rows)
	total := 0.0
	for _, i := range rows {
		total += target[i]
	}
	parent := total * total / float64(n)

	order := make([]int, n)
	best := 0.0
	for _, f := range feats {
		copy(order, rows)
		sort.Slice(order, func(a, b int) bool { return X[order[a]][f] < X[order[b]][f] })
		leftSum := 0.0
		for s := 1; s < n; s++ {
			leftSum += target[order[s-1]]
			if s < minLeaf || n-s < minLeaf {
				continue
			}
			lo, hi := X[order[s-1]][f], X[order[s]][f]
			if lo == hi {
				continue
			}
			rightSum := total - leftSum
			g := leftSum*leftSum/float64(s) + rightSum*rightSum/float64(n-s) - parent
			if g > best {
				best = g
				feat = f
				threshold = (lo + hi) / 2
				ok = true
			}
		}
	}
	return feat, threshold, best, ok
}

func mean(xs []float64) float64 {
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func meanAt(xs []float64, idx []int) float64 {
	if len(idx) == 0 {
		return 0
	}
	sum := 0.0
	for _, i := range idx {
		sum += xs[i]
	}
	return sum / float64(len(idx))
}
