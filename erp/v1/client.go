package v1

import "context"

// Relayer is what the endpoints need from a transport.
type Relayer interface {
	Relay(ctx context.Context, targetURL string, payload any, cookies string) (*RelayResponse, error)
}

type ErpClient struct {
	Transport  Relayer
	Sessions   *SessionEndpoint
	Attendance *AttendanceEndpoint
}

// NewErpClient wires the endpoints onto one transport.
func NewErpClient(t Relayer) *ErpClient {
	return &ErpClient{
		Transport:  t,
		Sessions:   &SessionEndpoint{transport: t},
		Attendance: &AttendanceEndpoint{transport: t},
	}
}
