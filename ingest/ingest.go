// Package ingest turns punch exports from biometric terminals into queued
// transactions.
package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"axiapac.com/punchsync/core"
	"axiapac.com/punchsync/utils"
	"github.com/op/go-logging"
	"github.com/xuri/excelize/v2"
)

var log = logging.MustGetLogger("ingest")

type Enqueuer interface {
	Enqueue(ctx context.Context, p core.Punch) (*core.Transaction, error)
}

// Columns of an export. The header row decides their order; files without
// a recognised header use this order.
const (
	ColEmployeeID = "employee_id"
	ColTimestamp  = "timestamp"
	ColType       = "type"
	ColDeviceID   = "device_id"
	ColSource     = "source"
)

var defaultColumns = []string{ColEmployeeID, ColTimestamp, ColType, ColDeviceID, ColSource}

var headerAliases = map[string]string{
	"employee_id":     ColEmployeeID,
	"employee":        ColEmployeeID,
	"user_id":         ColEmployeeID,
	"userid":          ColEmployeeID,
	"timestamp":       ColTimestamp,
	"timestamp_(utc)": ColTimestamp,
	"time":            ColTimestamp,
	"punch_time":      ColTimestamp,
	"type":            ColType,
	"punch_type":      ColType,
	"state":           ColType,
	"device_id":       ColDeviceID,
	"device":          ColDeviceID,
	"source":          ColSource,
	"location":        ColSource,
}

type RowError struct {
	Line int    `json:"line"`
	Err  string `json:"error"`
}

type Summary struct {
	Imported int        `json:"imported"`
	Skipped  int        `json:"skipped"`
	Errors   []RowError `json:"errors,omitempty"`
}

// Importer reads exports whose zone-less timestamps are in Location.
type Importer struct {
	Location *time.Location
}

func NewImporter(offset int) *Importer {
	return &Importer{Location: utils.OffsetZone(offset)}
}

// readRows reads a CSV export, or the first sheet of a workbook when the
// source names an .xlsx file.
func readRows(r io.Reader, source string) ([][]string, error) {
	if !strings.HasSuffix(strings.ToLower(source), ".xlsx") {
		rows, err := utils.ParseCSV(r)
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		return rows, nil
	}

	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	return rows, nil
}

// Parse reads the export into punches. Rows that cannot be read are reported
// and left out; the line numbers are 1-based and count the header.
func (im *Importer) Parse(r io.Reader, source string) ([]core.Punch, []RowError, error) {
	rows, err := readRows(r, source)
	if err != nil {
		return nil, nil, err
	}
	if len(rows) == 0 {
		return nil, nil, nil
	}

	columns, hasHeader := headerColumns(rows[0])
	if hasHeader {
		rows = rows[1:]
	}
	offset := 1
	if hasHeader {
		offset = 2
	}

	var punches []core.Punch
	var skipped []RowError
	for i, row := range rows {
		p, err := im.punch(columns, row, source)
		if err != nil {
			skipped = append(skipped, RowError{Line: i + offset, Err: err.Error()})
			continue
		}
		punches = append(punches, p)
	}
	return punches, skipped, nil
}

func (im *Importer) punch(columns map[string]int, row []string, source string) (core.Punch, error) {
	field := func(name string) string {
		i, ok := columns[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	if len(strings.TrimSpace(strings.Join(row, ""))) == 0 {
		return core.Punch{}, fmt.Errorf("empty row")
	}

	p := core.Punch{
		EmployeeID:  field(ColEmployeeID),
		DeviceID:    field(ColDeviceID),
		SourceLabel: field(ColSource),
	}
	if p.EmployeeID == "" {
		return p, fmt.Errorf("missing employee id")
	}
	if p.SourceLabel == "" {
		p.SourceLabel = source
	}

	t, err := core.ParsePunchType(field(ColType))
	if err != nil {
		return p, err
	}
	p.Type = string(t)

	ts, err := utils.ParseTimeIn(field(ColTimestamp), im.Location)
	if err != nil {
		return p, err
	}
	p.Timestamp = ts.UTC().Format(time.RFC3339)
	return p, nil
}

func headerColumns(first []string) (map[string]int, bool) {
	columns := map[string]int{}
	for i, h := range first {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		key = strings.ReplaceAll(key, " ", "_")
		if name, ok := headerAliases[key]; ok {
			if _, seen := columns[name]; !seen {
				columns[name] = i
			}
		}
	}
	_, hasEmployee := columns[ColEmployeeID]
	_, hasTimestamp := columns[ColTimestamp]
	if hasEmployee && hasTimestamp {
		return columns, true
	}

	columns = map[string]int{}
	for i, name := range defaultColumns {
		columns[name] = i
	}
	return columns, false
}

// Import enqueues every readable row of the export.
func (im *Importer) Import(ctx context.Context, q Enqueuer, r io.Reader, source string) (Summary, error) {
	punches, skipped, err := im.Parse(r, source)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{Skipped: len(skipped), Errors: skipped}
	for _, p := range punches {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if _, err := q.Enqueue(ctx, p); err != nil {
			summary.Skipped++
			summary.Errors = append(summary.Errors, RowError{Err: fmt.Sprintf("%s %s: %v", p.EmployeeID, p.Timestamp, err)})
			continue
		}
		summary.Imported++
	}

	log.Infof("imported %d punches from %s, skipped %d", summary.Imported, source, summary.Skipped)
	return summary, nil
}

type ObjectReader interface {
	ReadFile(ctx context.Context, key string, outStream io.Writer) error
}

// ImportObject imports an export stored in a bucket, labelled with its key.
func (im *Importer) ImportObject(ctx context.Context, q Enqueuer, bucket ObjectReader, key string) (Summary, error) {
	var stream bytes.Buffer
	if err := bucket.ReadFile(ctx, key, &stream); err != nil {
		return Summary{}, err
	}
	return im.Import(ctx, q, &stream, key)
}
