package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	v1 "axiapac.com/punchsync/erp/v1"
	"axiapac.com/punchsync/web/common"
	"axiapac.com/punchsync/web/middlewares"
	"github.com/gin-gonic/gin"
)

// Upstream headers that describe the upstream body encoding and would be
// wrong on the re-encoded response.
var strippedHeaders = map[string]bool{
	"Transfer-Encoding": true,
	"Content-Encoding":  true,
	"Content-Length":    true,
	"Connection":        true,
}

type RelayRequest struct {
	TargetURL string          `json:"targetUrl" binding:"required"`
	Payload   json.RawMessage `json:"payload" binding:"required"`
}

type RelayEndpoint struct {
	transport v1.Relayer
}

func NewRelayEndpoint(transport v1.Relayer) *RelayEndpoint {
	return &RelayEndpoint{transport: transport}
}

// DebugHeaders flattens headers for the JSON body: one value as a string,
// several as an array.
func DebugHeaders(h http.Header) map[string]any {
	out := make(map[string]any, len(h))
	for name, values := range h {
		if len(values) == 1 {
			out[name] = values[0]
		} else {
			out[name] = values
		}
	}
	return out
}

// ForwardedCookies drops the local operator token from a Cookie header so
// it never reaches the relay target. Other pairs pass through unchanged.
func ForwardedCookies(header string) string {
	var kept []string
	for _, pair := range strings.Split(header, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, _, _ := strings.Cut(pair, "=")
		if strings.TrimSpace(name) == middlewares.TokenCookie {
			continue
		}
		kept = append(kept, pair)
	}
	return strings.Join(kept, "; ")
}

// Relay forwards a JSON-RPC call to targetUrl with the caller's cookies and
// hands back the upstream JSON with the upstream headers.
func (ep *RelayEndpoint) Relay(c *gin.Context) {
	var req RelayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, common.RelayErrorResponse{Error: "bad_request", Details: common.FormatBindingError(err)})
		return
	}

	res, err := ep.transport.Relay(c.Request.Context(), req.TargetURL, req.Payload, ForwardedCookies(c.GetHeader("Cookie")))
	if err != nil {
		ep.fail(c, err)
		return
	}

	for name, values := range res.Headers {
		if strippedHeaders[http.CanonicalHeaderKey(name)] {
			continue
		}
		for _, v := range values {
			c.Writer.Header().Add(name, v)
		}
	}

	// Fields stay raw so upstream numbers are passed on digit for digit.
	var body map[string]json.RawMessage
	if err := json.Unmarshal(res.Body, &body); err != nil || body == nil {
		// arrays and scalars are wrapped so the headers have somewhere to go
		body = map[string]json.RawMessage{"data": res.Body}
	}
	debug, err := json.Marshal(DebugHeaders(res.Headers))
	if err != nil {
		ep.fail(c, err)
		return
	}
	body["debug_headers"] = debug
	c.JSON(res.Status, body)
}

func (ep *RelayEndpoint) fail(c *gin.Context, err error) {
	var relayErr *v1.RelayError
	if !errors.As(err, &relayErr) {
		c.JSON(http.StatusBadGateway, common.RelayErrorResponse{Error: "proxy_error", Details: err.Error()})
		return
	}

	res := common.RelayErrorResponse{
		Error:   string(relayErr.Kind),
		Details: relayErr.Error(),
		Status:  relayErr.Status,
		Snippet: relayErr.Snippet,
	}
	if len(relayErr.Headers) > 0 {
		res.DebugHeaders = DebugHeaders(relayErr.Headers)
	}

	status := http.StatusBadGateway
	switch relayErr.Kind {
	case v1.InvalidTarget:
		status = http.StatusBadRequest
	case v1.Unreachable:
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, res)
}
