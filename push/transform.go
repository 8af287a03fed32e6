package push

import (
	"fmt"
	"time"

	"axiapac.com/punchsync/core"
	v1 "axiapac.com/punchsync/erp/v1"
	"axiapac.com/punchsync/utils"
)

const (
	SchemaEndpoint = "endpoint"
	SchemaCallKw   = "call_kw"
)

// WireFormat is the deployment-specific part of the push contract.
type WireFormat struct {
	Schema          string            `mapstructure:"schema"`
	Path            string            `mapstructure:"path"`
	Model           string            `mapstructure:"model"`
	Method          string            `mapstructure:"method"`
	TimestampLayout string            `mapstructure:"timestamp-layout"`
	ActionCodes     map[string]string `mapstructure:"action-codes"`
}

func DefaultWireFormat() WireFormat {
	return WireFormat{
		Schema:          SchemaEndpoint,
		Path:            "/api/attendance/push",
		TimestampLayout: time.RFC3339,
		ActionCodes: map[string]string{
			string(core.CheckIn):  "check_in",
			string(core.CheckOut): "check_out",
		},
	}
}

// PushSchema resolves the configured schema name.
func (w WireFormat) PushSchema() (v1.PushSchema, error) {
	switch w.Schema {
	case SchemaEndpoint, "":
		if w.Path == "" {
			return nil, fmt.Errorf("push schema %q needs a path", SchemaEndpoint)
		}
		return v1.EndpointSchema{Path: w.Path}, nil
	case SchemaCallKw:
		if w.Model == "" || w.Method == "" {
			return nil, fmt.Errorf("push schema %q needs a model and a method", SchemaCallKw)
		}
		return v1.CallKwSchema{Model: w.Model, Method: w.Method}, nil
	}
	return nil, fmt.Errorf("unknown push schema %q", w.Schema)
}

func (w WireFormat) action(t core.PunchType) string {
	if code, ok := w.ActionCodes[string(t)]; ok && code != "" {
		return code
	}
	return string(t)
}

// Transform maps queued transactions onto the wire records.
func (w WireFormat) Transform(txs []core.Transaction) ([]v1.AttendanceRecord, error) {
	layout := w.TimestampLayout
	if layout == "" {
		layout = time.RFC3339
	}

	records := make([]v1.AttendanceRecord, 0, len(txs))
	for _, tx := range txs {
		ts, err := utils.ParseISOTime(tx.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("transaction %s: %w", tx.ID, err)
		}
		records = append(records, v1.AttendanceRecord{
			Reference:  tx.ID,
			EmployeeID: tx.EmployeeID,
			Timestamp:  ts.UTC().Format(layout),
			Action:     w.action(tx.Type),
			DeviceID:   tx.DeviceID,
			Source:     tx.SourceLabel,
		})
	}
	return records, nil
}
