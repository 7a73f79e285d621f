package feature

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func plainAnalyzer(t *testing.T) *Analyzer {
	t.Helper()
	a, err := NewAnalyzer(AnalyzerConfig{StopWords: StopWordsNone})
	require.NoError(t, err)
	return a
}

func TestFitTransform(t *testing.T) {
	tf := FitTransform(plainAnalyzer(t), []string{"chat chien", "chat", ""}, 0)

	assert.Equal(t, []string{"chat", "chien"}, tf.Vocabulary())

	idfChat, ok := tf.IDF("chat")
	require.True(t, ok)
	assert.InDelta(t, math.Log(4.0/3.0)+1, idfChat, 1e-12)
	idfChien, _ := tf.IDF("chien")
	assert.InDelta(t, math.Log(2)+1, idfChien, 1e-12)
	_, ok = tf.IDF("oiseau")
	assert.False(t, ok)

	vecs := tf.Vectors()
	require.Len(t, vecs, 3)
	norm := math.Hypot(idfChat, idfChien)
	assert.InDelta(t, idfChat/norm, vecs[0].At(0), 1e-12)
	assert.InDelta(t, idfChien/norm, vecs[0].At(1), 1e-12)
	assert.InDelta(t, 1.0, vecs[0].Norm(), 1e-12)
	assert.Equal(t, []float64{1}, vecs[1].Value)
	assert.Equal(t, 0, vecs[2].Len())
}

func TestFitTransform_MaxFeatures(t *testing.T) {
	tf := FitTransform(plainAnalyzer(t), []string{"chat chien", "chat oiseau", "chat"}, 2)
	// chat=3, chien=1, oiseau=1：同频按字典序保留 chien
	assert.Equal(t, []string{"chat", "chien"}, tf.Vocabulary())
}

func TestTFIDF_Transform(t *testing.T) {
	tf := FitTransform(plainAnalyzer(t), []string{"chat chien", "chat"}, 0)

	v := tf.Transform("chien chien inconnu")
	require.Equal(t, 1, v.Len())
	assert.InDelta(t, 1.0, v.At(1), 1e-12)
	assert.Equal(t, 0, tf.Transform("").Len())
}
