package v1

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Request is a JSON-RPC 2.0 envelope as the ERP's /web routes expect it.
type Request struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
	ID      string `json:"id"`
}

func NewRequest(params any) *Request {
	return &Request{
		JSONRPC: "2.0",
		Method:  "call",
		Params:  params,
		ID:      uuid.NewString(),
	}
}

type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

type RPCErrorData struct {
	Name      string `json:"name,omitempty"`
	Message   string `json:"message,omitempty"`
	Arguments []any  `json:"arguments,omitempty"`
	Debug     string `json:"debug,omitempty"`
}

type RPCError struct {
	Code    int           `json:"code"`
	Message string        `json:"message"`
	Data    *RPCErrorData `json:"data,omitempty"`
}

// Describe returns the most specific human readable message: data.message,
// then the joined data.arguments, then message.
func (e *RPCError) Describe() string {
	if e.Data != nil {
		if e.Data.Message != "" {
			return e.Data.Message
		}
		if len(e.Data.Arguments) > 0 {
			parts := make([]string, 0, len(e.Data.Arguments))
			for _, a := range e.Data.Arguments {
				parts = append(parts, fmt.Sprint(a))
			}
			return strings.Join(parts, ", ")
		}
	}
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("remote error %d", e.Code)
}

func (e *RPCError) Error() string {
	return e.Describe()
}

// DecodeResponse parses a relayed body as a JSON-RPC response.
func DecodeResponse(body []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode JSON-RPC response: %w", err)
	}
	return &resp, nil
}
