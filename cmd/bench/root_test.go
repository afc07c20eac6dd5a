package bench

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/ValentinKolb/jsonq/lib/common"
	"github.com/ValentinKolb/jsonq/lib/db"
	"github.com/ValentinKolb/jsonq/lib/document"
	"github.com/ValentinKolb/jsonq/lib/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBencherRoundTrip(t *testing.T) {
	e, err := engine.New(common.DefaultEngineConfig())
	require.NoError(t, err)
	defer e.Close()

	b := &bencher{engine: e}
	require.NoError(t, b.provision("mem"))
	assert.Error(t, b.provision("mem"), "the bench store exists already")

	doc := document.New()
	doc.PutString("id", "x")
	_, err = b.exec(db.OpSave, document.Object(doc))
	require.NoError(t, err)

	response, err := b.exec(db.OpList, document.Null())
	require.NoError(t, err)
	docs, err := response.GetList("payload")
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestWriteResultsToCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")
	results := []result{{name: "save", result: testing.BenchmarkResult{N: 10, T: 1000}}, {name: "list"}}
	require.NoError(t, writeResultsToCSV(path, results, common.DefaultEngineConfig()))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "save", rows[1][0])
	assert.Equal(t, "100", rows[1][1])
	assert.Equal(t, "false", rows[1][4])
	assert.Equal(t, "true", rows[2][4])
}

func TestShouldSkip(t *testing.T) {
	benchSkip = []string{"save", "list"}
	defer func() { benchSkip = nil }()
	assert.True(t, shouldSkip("save"))
	assert.False(t, shouldSkip("fetch"))
}
