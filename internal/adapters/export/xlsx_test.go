package export

import (
	"bytes"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	err := WriteXLSX(&buf, []string{"Product Name", "Price starting at", "Active"}, [][]any{
		{"Nexus 5X", decimal.RequireFromString("299.5"), true},
		{"USB Cable", decimal.NewFromInt(5), false},
	})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Product Name", "Price starting at", "Active"}, rows[0])
	assert.Equal(t, []string{"Nexus 5X", "299.5", "TRUE"}, rows[1])
	assert.Equal(t, "USB Cable", rows[2][0])
}
