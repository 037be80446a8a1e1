package jsonl

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	N int `json:"n"`
}

func TestAppendSkipsAndReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "rows.jsonl")

	f, err := Open[row](path)
	require.NoError(t, err)
	n, err := f.Append([]row{{1}, {2}, {3}}, func(r row) bool { return r.N == 2 })
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.NoError(t, f.Close())
	require.NoError(t, f.Close())

	_, err = f.Append([]row{{4}}, nil)
	assert.Error(t, err)

	f, err = Open[row](path)
	require.NoError(t, err)
	_, err = f.Append([]row{{4}}, nil)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\"n\":1}\n{\"n\":3}\n{\"n\":4}\n", string(data))
}
