package algos

import (
	"math"
	"strings"
	"unicode"
)

// TrigramCosine 计算两段文本基于字符三元组词频的余弦相似度。
// 返回值范围 [0,1]，完全相同的文本返回 1。
func TrigramCosine(a, b string) float64 {
	va := trigramVector(a)
	vb := trigramVector(b)
	if len(va) == 0 || len(vb) == 0 {
		return 0
	}

	dot := 0.0
	for gram, ca := range va {
		if cb, ok := vb[gram]; ok {
			dot += float64(ca) * float64(cb)
		}
	}

	na := vectorNorm(va)
	nb := vectorNorm(vb)
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (na * nb)
}

// trigramVector 归一化文本并统计字符三元组词频
func trigramVector(text string) map[string]int {
	normalized := normalizeText(text)
	runes := []rune(normalized)

	vector := make(map[string]int)
	if len(runes) == 0 {
		return vector
	}
	if len(runes) < 3 {
		vector[string(runes)]++
		return vector
	}

	for i := 0; i+3 <= len(runes); i++ {
		vector[string(runes[i:i+3])]++
	}
	return vector
}

// normalizeText 小写化并压缩空白，降低排版差异的影响
func normalizeText(text string) string {
	var sb strings.Builder
	prevSpace := false
	for _, r := range strings.ToLower(strings.TrimSpace(text)) {
		if unicode.IsSpace(r) {
			if !prevSpace {
				sb.WriteRune(' ')
			}
			prevSpace = true
			continue
		}
		prevSpace = false
		sb.WriteRune(r)
	}
	return sb.String()
}

func vectorNorm(v map[string]int) float64 {
	sum := 0.0
	for _, c := range v {
		sum += float64(c) * float64(c)
	}
	return math.Sqrt(sum)
}
