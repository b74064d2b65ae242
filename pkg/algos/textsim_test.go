package algos

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrigramCosineIdentical(t *testing.T) {
	text := "Site visited, issue verified, corrective work completed."
	assert.InDelta(t, 1.0, TrigramCosine(text, text), 1e-9)
}

func TestTrigramCosineCaseAndWhitespaceInsensitive(t *testing.T) {
	a := "Pipeline   replaced AND water supply restored"
	b := "pipeline replaced and water supply restored"
	assert.InDelta(t, 1.0, TrigramCosine(a, b), 1e-9)
}

func TestTrigramCosineDissimilar(t *testing.T) {
	a := "Pothole filled with asphalt on the main road"
	b := "Streetlight fuse replaced near the market square"
	assert.Less(t, TrigramCosine(a, b), 0.5)
}

func TestTrigramCosineNearDuplicate(t *testing.T) {
	a := "Site visited, issue verified with complainant, work completed and photos attached."
	b := "Site visited, issue verified with complainant, work completed and photo attached."
	assert.Greater(t, TrigramCosine(a, b), 0.9)
}

func TestTrigramCosineEmpty(t *testing.T) {
	assert.Zero(t, TrigramCosine("", "anything"))
	assert.Zero(t, TrigramCosine("   ", "anything"))
	assert.Zero(t, TrigramCosine("", ""))
}

func TestTrigramCosineShortText(t *testing.T) {
	// 不足三字符的文本整体作为一个词元
	assert.InDelta(t, 1.0, TrigramCosine("ok", "ok"), 1e-9)
	assert.Zero(t, TrigramCosine("ok", "no"))
}

func TestTrigramVector(t *testing.T) {
	v := trigramVector("abcd")
	assert.Equal(t, map[string]int{"abc": 1, "bcd": 1}, v)

	repeated := trigramVector("aaaa")
	assert.Equal(t, map[string]int{"aaa": 2}, repeated)
}
