package report

import (
	"bytes"
	"testing"

	"axiapac.com/punchsync/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteTransactions(t *testing.T) {
	txs := []core.Transaction{
		{ID: "2", EmployeeID: "E2", Type: core.CheckOut, Timestamp: "2024-06-10T17:00:00Z", DeviceID: "D1", UploadStatus: core.NotUploaded},
		{ID: "1", EmployeeID: "E1", Type: core.CheckIn, Timestamp: "2024-06-10T08:00:00Z", DeviceID: "D1", SourceLabel: "zk", UploadStatus: core.Uploaded},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteTransactions(&buf, txs))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())
	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"ID", "Employee", "Type", "Timestamp (UTC)", "Device", "Source", "Status"}, rows[0])
	assert.Equal(t, []string{"2", "E2", "check-out", "2024-06-10 17:00:00", "D1", "", "not_uploaded"}, rows[1])
	assert.Equal(t, []string{"1", "E1", "check-in", "2024-06-10 08:00:00", "D1", "zk", "uploaded"}, rows[2])
}

func TestWriteEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTransactions(&buf, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
