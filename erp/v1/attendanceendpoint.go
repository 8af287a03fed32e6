package v1

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"axiapac.com/punchsync/core"
)

// AttendanceRecord is one punch in the shape the ERP receives it.
type AttendanceRecord struct {
	Reference  string `json:"reference"`
	EmployeeID string `json:"employee_id"`
	Timestamp  string `json:"timestamp"`
	Action     string `json:"action"`
	DeviceID   string `json:"device_id"`
	Source     string `json:"source,omitempty"`
}

// PushSchema decides where a batch goes and how its params are laid out.
// Deployments disagree on the contract, so it is chosen by configuration.
type PushSchema interface {
	Target(baseURL string) string
	Params(records []AttendanceRecord) any
}

// EndpointSchema posts {"attendances": [...]} to a custom controller route.
type EndpointSchema struct {
	Path string
}

func (s EndpointSchema) Target(baseURL string) string {
	return buildURL(baseURL, s.Path)
}

func (s EndpointSchema) Params(records []AttendanceRecord) any {
	return map[string]any{"attendances": records}
}

// CallKwSchema calls a model method through /web/dataset/call_kw, passing the
// batch as the single positional argument.
type CallKwSchema struct {
	Model  string
	Method string
}

func (s CallKwSchema) Target(baseURL string) string {
	return buildURL(baseURL, fmt.Sprintf("/web/dataset/call_kw/%s/%s", s.Model, s.Method))
}

func (s CallKwSchema) Params(records []AttendanceRecord) any {
	return map[string]any{
		"model":  s.Model,
		"method": s.Method,
		"args":   []any{records},
		"kwargs": map[string]any{},
	}
}

type AttendanceEndpoint struct {
	transport Relayer
}

// Push submits one batch. It returns nil only when the result carries a
// positive acknowledgment for the whole batch; an HTTP 200 alone is a
// core.ErrLogicalPushFailure.
func (e *AttendanceEndpoint) Push(ctx context.Context, baseURL string, schema PushSchema, records []AttendanceRecord, cookie string) error {
	target := schema.Target(baseURL)
	resp, err := e.transport.Relay(ctx, target, NewRequest(schema.Params(records)), cookie)
	if err != nil {
		return err
	}

	rpc, decodeErr := DecodeResponse(resp.Body)
	if decodeErr == nil && rpc.Error != nil {
		return fmt.Errorf("%w: %s", core.ErrLogicalPushFailure, rpc.Error.Describe())
	}
	if !resp.OK() {
		return fmt.Errorf("%w: %s answered status %d", core.ErrLogicalPushFailure, target, resp.Status)
	}
	if decodeErr != nil {
		return fmt.Errorf("%w: %v", core.ErrLogicalPushFailure, decodeErr)
	}
	if !Acknowledged(rpc.Result, len(records)) {
		return fmt.Errorf("%w: result %s does not acknowledge %d records", core.ErrLogicalPushFailure, Snippet(rpc.Result), len(records))
	}
	return nil
}

// Acknowledged interprets a push result. Accepted markers: true, a count
// equal to n, an array of n ids, or an object with a matching
// count/created/accepted field or a true success/status flag.
func Acknowledged(result json.RawMessage, n int) bool {
	var v any
	if len(result) == 0 || json.Unmarshal(result, &v) != nil {
		return false
	}

	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return int(t) == n
	case []any:
		return len(t) == n
	case map[string]any:
		for _, key := range []string{"count", "created", "accepted"} {
			if c, ok := t[key].(float64); ok {
				return int(c) == n
			}
		}
		for _, key := range []string{"success", "status", "ok"} {
			switch flag := t[key].(type) {
			case bool:
				return flag
			case string:
				return strings.EqualFold(flag, "ok") || strings.EqualFold(flag, "success")
			}
		}
	}
	return false
}
