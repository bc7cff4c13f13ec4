package predict

import (
	"math"
	"math/rand"
	"sort"

	"property-intel/stats"
)

// BoostParams configures gradient-boosted regression trees on squared loss.
type BoostParams struct {
	Rounds        int
	LearningRate  float64
	MaxDepth      int
	MinLeaf       int
	MaxBins       int
	EarlyStopping int
}

func (p BoostParams) withDefaults() BoostParams {
	if p.Rounds <= 0 {
		p.Rounds = 100
	}
	if p.LearningRate <= 0 {
		p.LearningRate = 0.1
	}
	if p.MaxDepth <= 0 {
		p.MaxDepth = 5
	}
	if p.MinLeaf <= 0 {
		p.MinLeaf = 20
	}
	if p.MaxBins < 2 {
		p.MaxBins = 64
	}
	return p
}

// Node is one entry of a flattened tree. Leaves have Left == -1.
type Node struct {
	Feature   int     `json:"f"`
	Threshold float64 `json:"t"`
	Left      int     `json:"l"`
	Right     int     `json:"r"`
	Value     float64 `json:"v"`
}

// Tree is a regression tree stored as a node array rooted at index 0.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Predict walks the tree. Values <= threshold (and NaN) go left.
func (t *Tree) Predict(x []float64) float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Left < 0 {
			return n.Value
		}
		if x[n.Feature] > n.Threshold {
			i = n.Right
		} else {
			i = n.Left
		}
	}
}

// Ensemble is a fitted boosting model.
type Ensemble struct {
	Base         float64 `json:"base"`
	LearningRate float64 `json:"learning_rate"`
	Trees        []Tree  `json:"trees"`
	Features     int     `json:"features"`
}

// Predict returns base + learning rate × sum of tree outputs.
func (e *Ensemble) Predict(x []float64) float64 {
	sum := 0.0
	for i := range e.Trees {
		sum += e.Trees[i].Predict(x)
	}
	return e.Base + e.LearningRate*sum
}

// PredictAll scores every row.
func (e *Ensemble) PredictAll(X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i, x := range X {
		out[i] = e.Predict(x)
	}
	return out
}

// FitResult carries the ensemble and the best validation score when one was used.
type FitResult struct {
	Ensemble  *Ensemble
	BestRound int
	ValidRMSE float64
}

// Fit trains an ensemble on X, y. When validX is non-empty and EarlyStopping > 0,
// training stops once validation RMSE has not improved for that many rounds and the
// ensemble is truncated to the best round.
func Fit(X [][]float64, y []float64, validX [][]float64, validY []float64, params BoostParams) *FitResult {
	p := params.withDefaults()
	nFeat := 0
	if len(X) > 0 {
		nFeat = len(X[0])
	}

	ens := &Ensemble{
		Base:         stats.Mean(y),
		LearningRate: p.LearningRate,
		Features:     nFeat,
	}
	if len(y) == 0 {
		ens.Base = 0
		return &FitResult{Ensemble: ens, ValidRMSE: math.NaN()}
	}

	b := newBinner(X, p.MaxBins)
	pred := make([]float64, len(y))
	for i := range pred {
		pred[i] = ens.Base
	}
	validPred := make([]float64, len(validY))
	for i := range validPred {
		validPred[i] = ens.Base
	}

	useValid := len(validX) > 0 && p.EarlyStopping > 0
	best := math.Inf(1)
	bestRound := 0
	residual := make([]float64, len(y))
	idx := make([]int, len(y))
	for i := range idx {
		idx[i] = i
	}

	for round := 0; round < p.Rounds; round++ {
		for i := range y {
			residual[i] = y[i] - pred[i]
		}
		tb := &treeBuilder{binner: b, residual: residual, params: p}
		tb.grow(idx, 0)
		tree := Tree{Nodes: tb.nodes}
		ens.Trees = append(ens.Trees, tree)

		for i := range pred {
			pred[i] += p.LearningRate * tree.Predict(X[i])
		}
		if !useValid {
			continue
		}
		for i := range validPred {
			validPred[i] += p.LearningRate * tree.Predict(validX[i])
		}
		score := stats.RMSE(validPred, validY)
		if score < best {
			best = score
			bestRound = round + 1
		} else if round+1-bestRound >= p.EarlyStopping {
			break
		}
	}

	if useValid {
		ens.Trees = ens.Trees[:bestRound]
		return &FitResult{Ensemble: ens, BestRound: bestRound, ValidRMSE: best}
	}
	return &FitResult{Ensemble: ens, BestRound: len(ens.Trees), ValidRMSE: math.NaN()}
}

// binner maps each feature onto at most MaxBins ordered buckets.
type binner struct {
	thresholds [][]float64
	bins       [][]int
}

func newBinner(X [][]float64, maxBins int) *binner {
	nFeat := len(X[0])
	b := &binner{
		thresholds: make([][]float64, nFeat),
		bins:       make([][]int, len(X)),
	}
	for f := 0; f < nFeat; f++ {
		col := make([]float64, 0, len(X))
		for _, x := range X {
			if !math.IsNaN(x[f]) {
				col = append(col, x[f])
			}
		}
		b.thresholds[f] = cutPoints(col, maxBins)
	}
	for i, x := range X {
		row := make([]int, nFeat)
		for f := 0; f < nFeat; f++ {
			row[f] = binOf(b.thresholds[f], x[f])
		}
		b.bins[i] = row
	}
	return b
}

// cutPoints returns ascending split thresholds. With few distinct values these are the
// midpoints between neighbours; otherwise they are evenly spaced distinct values.
func cutPoints(col []float64, maxBins int) []float64 {
	if len(col) == 0 {
		return nil
	}
	sort.Float64s(col)
	uniq := col[:1]
	for _, v := range col[1:] {
		if v != uniq[len(uniq)-1] {
			uniq = append(uniq, v)
		}
	}
	if len(uniq) <= maxBins {
		cuts := make([]float64, 0, len(uniq)-1)
		for i := 1; i < len(uniq); i++ {
			cuts = append(cuts, (uniq[i-1]+uniq[i])/2)
		}
		return cuts
	}
	cuts := make([]float64, 0, maxBins-1)
	for i := 1; i < maxBins; i++ {
		v := uniq[i*len(uniq)/maxBins-1]
		if len(cuts) == 0 || v > cuts[len(cuts)-1] {
			cuts = append(cuts, v)
		}
	}
	return cuts
}

// binOf returns the index of the first threshold >= v, so bin b holds values in
// (t[b-1], t[b]]. NaN falls in bin 0.
func binOf(thresholds []float64, v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	return sort.SearchFloat64s(thresholds, v)
}

type treeBuilder struct {
	binner   *binner
	residual []float64
	params   BoostParams
	nodes    []Node
}

// grow appends the subtree for rows and returns its node index.
func (tb *treeBuilder) grow(rows []int, depth int) int {
	sum := 0.0
	for _, r := range rows {
		sum += tb.residual[r]
	}
	self := len(tb.nodes)
	tb.nodes = append(tb.nodes, Node{Left: -1, Right: -1, Value: sum / float64(len(rows))})

	if depth >= tb.params.MaxDepth || len(rows) < 2*tb.params.MinLeaf {
		return self
	}
	feat, bin, ok := tb.bestSplit(rows, sum)
	if !ok {
		return self
	}

	var left, right []int
	for _, r := range rows {
		if tb.binner.bins[r][feat] <= bin {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}

	l := tb.grow(left, depth+1)
	rgt := tb.grow(right, depth+1)
	tb.nodes[self] = Node{
		Feature:   feat,
		Threshold: tb.binner.thresholds[feat][bin],
		Left:      l,
		Right:     rgt,
	}
	return self
}

func (tb *treeBuilder) bestSplit(rows []int, total float64) (int, int, bool) {
	n := float64(len(rows))
	parent := total * total / n
	minLeaf := tb.params.MinLeaf

	bestGain := 1e-10 * (math.Abs(parent) + 1)
	bestFeat, bestBin := -1, -1

	for f, cuts := range tb.binner.thresholds {
		if len(cuts) == 0 {
			continue
		}
		sums := make([]float64, len(cuts)+1)
		counts := make([]int, len(cuts)+1)
		for _, r := range rows {
			b := tb.binner.bins[r][f]
			sums[b] += tb.residual[r]
			counts[b]++
		}

		leftSum, leftCount := 0.0, 0
		for b := 0; b < len(cuts); b++ {
			leftSum += sums[b]
			leftCount += counts[b]
			rightCount := len(rows) - leftCount
			if leftCount < minLeaf {
				continue
			}
			if rightCount < minLeaf {
				break
			}
			rightSum := total - leftSum
			gain := leftSum*leftSum/float64(leftCount) + rightSum*rightSum/float64(rightCount) - parent
			if gain > bestGain {
				bestGain, bestFeat, bestBin = gain, f, b
			}
		}
	}
	return bestFeat, bestBin, bestFeat >= 0
}

// holdoutSplit shuffles 0..n-1 with a fixed seed and returns train and test indices.
func holdoutSplit(n int, testFrac float64, seed int64) ([]int, []int) {
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	nTest := int(math.Ceil(float64(n)*testFrac - 1e-9))
	if nTest >= n {
		nTest = n - 1
	}
	return perm[nTest:], perm[:nTest]
}

// kFolds partitions a seeded shuffle of 0..n-1 into k folds.
func kFolds(n, k int, seed int64) [][]int {
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	folds := make([][]int, k)
	for i, p := range perm {
		folds[i%k] = append(folds[i%k], p)
	}
	return folds
}

func pick(X [][]float64, y []float64, idx []int) ([][]float64, []float64) {
	px := make([][]float64, len(idx))
	py := make([]float64, len(idx))
	for i, j := range idx {
		px[i] = X[j]
		py[i] = y[j]
	}
	return px, py
}
