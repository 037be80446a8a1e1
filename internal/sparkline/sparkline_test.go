package sparkline

import (
	"bytes"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathEmptyIsDefault(t *testing.T) {
	assert.Equal(t, DefaultPath, Path(nil, rand.New(rand.NewSource(1))))
	assert.Equal(t, DefaultPath, Path([]float64{}, nil))
}

var lastPair = regexp.MustCompile(`L(\S+) (\S+)$`)

func TestPathShape(t *testing.T) {
	history := []float64{40, 42, 45, 44, 46, 45, 43, 45, 44, 45}
	for seed := int64(0); seed < 20; seed++ {
		p := Path(history, rand.New(rand.NewSource(seed)))
		require.True(t, strings.HasPrefix(p, "M0 "), p)

		m := lastPair.FindStringSubmatch(p)
		require.Len(t, m, 3, p)
		assert.Equal(t, "300", m[1])
		y, err := strconv.ParseFloat(m[2], 64)
		require.NoError(t, err)
		assert.InDelta(t, 2+(45.0-40)/6*20, y, 1e-9)
	}
}

func TestPathNormalisesIntoBand(t *testing.T) {
	p := Path([]float64{10, 20}, rand.New(rand.NewSource(3)))
	assert.True(t, strings.HasPrefix(p, "M0 2 L0 2 "), p)
	assert.True(t, strings.HasSuffix(p, " L300 22 L300 22"), p)
}

func TestPathFlatSeries(t *testing.T) {
	p := Path([]float64{7, 7, 7}, rand.New(rand.NewSource(9)))
	assert.Equal(t, "M0 2 L0 2 L70 12 L80 12 L150 2 L220 12 L230 12 L300 2 L300 2", p)
}

func TestPathSinglePoint(t *testing.T) {
	assert.Equal(t, "M0 2 L0 2 L300 2", Path([]float64{5}, nil))
}

func TestBlocks(t *testing.T) {
	assert.Equal(t, "▁█", Blocks([]float64{1, 2}, 10))
	assert.Equal(t, "▁▁▁", Blocks([]float64{3, 3, 3}, 10))
	assert.Equal(t, "▁█", Blocks([]float64{100, 1, 2}, 2))
	assert.Equal(t, "", Blocks(nil, 10))
	assert.Equal(t, "", Blocks([]float64{1}, 0))
}

func TestWriteSVG(t *testing.T) {
	var buf bytes.Buffer
	err := WriteSVG(&buf, []Row{
		{Name: "Log Collector", Color: "green", History: []float64{1, 2, 3}},
		{Name: "A<B", Color: "nope"},
	}, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "<svg "))
	assert.Contains(t, out, "Log Collector")
	assert.Contains(t, out, "A&lt;B")
	assert.Contains(t, out, DefaultPath)
	assert.Contains(t, out, "#22c55e")
	assert.Contains(t, out, "#6b7280")
}
