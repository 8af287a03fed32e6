package common

type ErrorResponse struct {
	Message string `json:"message"`
	// Kind is the machine-readable failure class, when there is one.
	Kind string `json:"kind,omitempty"`
}

func NewErrorResponse(message string) *ErrorResponse {
	return &ErrorResponse{
		Message: message,
	}
}

func NewKindErrorResponse(kind, message string) *ErrorResponse {
	return &ErrorResponse{Message: message, Kind: kind}
}

// RelayErrorResponse is the body of a failed relay call.
type RelayErrorResponse struct {
	Error        string         `json:"error"`
	Details      string         `json:"details"`
	Status       int            `json:"status,omitempty"`
	Snippet      string         `json:"snippet,omitempty"`
	DebugHeaders map[string]any `json:"debug_headers,omitempty"`
}
