package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperationsMapRoundTrip(t *testing.T) {
	var stat DailyStat
	require.NoError(t, stat.SetOperationsMap(map[string]int64{
		OpMergePDF:    3,
		OpCompressPDF: 1,
	}))

	m, err := stat.OperationsMap()
	require.NoError(t, err)
	assert.Equal(t, int64(3), m[OpMergePDF])
	assert.Equal(t, int64(1), m[OpCompressPDF])
}

func TestOperationsMapDeterministicEncoding(t *testing.T) {
	counts := map[string]int64{OpSplitPDF: 2, OpMergePDF: 5, OpExtractText: 1}

	var a, b DailyStat
	require.NoError(t, a.SetOperationsMap(counts))
	require.NoError(t, b.SetOperationsMap(counts))

	assert.Equal(t, []byte(a.OperationsByType), []byte(b.OperationsByType))
}

func TestOperationsMapEmpty(t *testing.T) {
	var stat DailyStat

	m, err := stat.OperationsMap()
	require.NoError(t, err)
	assert.Empty(t, m)
}

func TestJSONScan(t *testing.T) {
	var j JSON
	require.NoError(t, j.Scan(`{"merge_pdf":1}`))
	assert.Equal(t, `{"merge_pdf":1}`, string(j))

	require.NoError(t, j.Scan(nil))
	assert.Equal(t, "{}", string(j))

	assert.Error(t, j.Scan(42))
}
