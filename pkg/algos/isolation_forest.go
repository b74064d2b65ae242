// Package algos 提供检测层使用的纯算法实现
package algos

import (
	"math"
	"math/rand"
)

// IsolationForest 隔离森林离群检测器。
// 通过随机划分隔离样本点，路径越短的点越可能是离群点。
type IsolationForest struct {
	trees      []*isoNode
	numTrees   int
	sampleSize int
	rng        *rand.Rand
}

// isoNode 隔离树节点
type isoNode struct {
	left      *isoNode
	right     *isoNode
	splitAttr int
	splitVal  float64
	size      int
}

// NewIsolationForest 创建隔离森林。
// numTrees 为树的数量，sampleSize 为每棵树的子采样大小。
func NewIsolationForest(numTrees, sampleSize int, seed int64) *IsolationForest {
	if numTrees <= 0 {
		numTrees = 100
	}
	if sampleSize <= 0 {
		sampleSize = 256
	}
	return &IsolationForest{
		numTrees:   numTrees,
		sampleSize: sampleSize,
		rng:        rand.New(rand.NewSource(seed)),
	}
}

// Fit 在给定样本集上构建隔离森林
func (f *IsolationForest) Fit(data [][]float64) {
	f.trees = make([]*isoNode, 0, f.numTrees)
	if len(data) == 0 {
		return
	}

	sampleSize := f.sampleSize
	if sampleSize > len(data) {
		sampleSize = len(data)
	}
	maxDepth := int(math.Ceil(math.Log2(float64(sampleSize)))) + 1

	for i := 0; i < f.numTrees; i++ {
		sample := make([][]float64, sampleSize)
		for j := range sample {
			sample[j] = data[f.rng.Intn(len(data))]
		}
		f.trees = append(f.trees, f.buildTree(sample, 0, maxDepth))
	}
}

// Score 返回单个样本的异常分数，取值 (0,1)，越接近 1 越异常
func (f *IsolationForest) Score(point []float64) float64 {
	if len(f.trees) == 0 {
		return 0
	}

	sum := 0.0
	for _, tree := range f.trees {
		sum += pathLength(tree, point, 0)
	}
	avgPath := sum / float64(len(f.trees))

	sampleSize := f.sampleSize
	c := avgPathLength(sampleSize)
	if c == 0 {
		return 0
	}
	return math.Pow(2, -avgPath/c)
}

// Scores 返回每个样本的异常分数
func (f *IsolationForest) Scores(data [][]float64) []float64 {
	scores := make([]float64, len(data))
	for i, point := range data {
		scores[i] = f.Score(point)
	}
	return scores
}

func (f *IsolationForest) buildTree(sample [][]float64, depth, maxDepth int) *isoNode {
	if len(sample) <= 1 || depth >= maxDepth {
		return &isoNode{size: len(sample)}
	}

	dims := len(sample[0])
	attr := f.rng.Intn(dims)

	minVal, maxVal := sample[0][attr], sample[0][attr]
	for _, p := range sample {
		if p[attr] < minVal {
			minVal = p[attr]
		}
		if p[attr] > maxVal {
			maxVal = p[attr]
		}
	}
	if minVal == maxVal {
		return &isoNode{size: len(sample)}
	}

	splitVal := minVal + f.rng.Float64()*(maxVal-minVal)

	var left, right [][]float64
	for _, p := range sample {
		if p[attr] < splitVal {
			left = append(left, p)
		} else {
			right = append(right, p)
		}
	}

	return &isoNode{
		left:      f.buildTree(left, depth+1, maxDepth),
		right:     f.buildTree(right, depth+1, maxDepth),
		splitAttr: attr,
		splitVal:  splitVal,
		size:      len(sample),
	}
}

func pathLength(node *isoNode, point []float64, depth int) float64 {
	if node.left == nil && node.right == nil {
		return float64(depth) + avgPathLength(node.size)
	}
	if point[node.splitAttr] < node.splitVal {
		return pathLength(node.left, point, depth+1)
	}
	return pathLength(node.right, point, depth+1)
}

// avgPathLength 二叉搜索失败的平均路径长度 c(n)，用于归一化
func avgPathLength(n int) float64 {
	if n <= 1 {
		return 0
	}
	h := math.Log(float64(n-1)) + 0.5772156649
	return 2*h - 2*float64(n-1)/float64(n)
}
