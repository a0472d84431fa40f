package panel

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSeriesCSV(t *testing.T) {
	data := "Date,Open,High,Low,Close,Volume\n" +
		"2020-01-01,100,101,99,100.5,1000\n" +
		"2020-01-02,100.5,102,100,101.2,1200\n"

	series, err := parseSeriesCSV(strings.NewReader(data), "AAA", AssetEquity)
	require.NoError(t, err)
	require.Len(t, series.Bars, 2)
	assert.Equal(t, 100.5, series.Bars[0].Close)
	assert.Equal(t, 1200.0, series.Bars[1].Volume)
	assert.NoError(t, series.Validate())
}

func TestParseSeriesCSVMissingColumn(t *testing.T) {
	data := "Date,Open,High,Close\n2020-01-01,1,2,1.5\n"
	_, err := parseSeriesCSV(strings.NewReader(data), "AAA", AssetEquity)
	assert.Error(t, err)
}
