package core

import (
	"fmt"
	"strings"
)

type PunchType string

const (
	CheckIn  PunchType = "check-in"
	CheckOut PunchType = "check-out"
)

// ParsePunchType accepts the spellings biometric exports use for the two
// punch directions.
func ParsePunchType(s string) (PunchType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "check-in", "checkin", "check_in", "in", "i", "0":
		return CheckIn, nil
	case "check-out", "checkout", "check_out", "out", "o", "1":
		return CheckOut, nil
	}
	return "", fmt.Errorf("unknown punch type %q", s)
}

type UploadStatus string

const (
	NotUploaded UploadStatus = "not_uploaded"
	Uploaded    UploadStatus = "uploaded"
)

func (s UploadStatus) Valid() bool {
	return s == NotUploaded || s == Uploaded
}

// Transaction is a single attendance punch waiting in (or already pushed
// from) the local queue.
type Transaction struct {
	ID           string       `json:"id"`
	EmployeeID   string       `json:"employeeId"`
	Type         PunchType    `json:"type"`
	Timestamp    string       `json:"timestamp"`
	SourceLabel  string       `json:"sourceLabel"`
	DeviceID     string       `json:"deviceId"`
	UploadStatus UploadStatus `json:"uploadStatus"`
}

// Punch is the input to an enqueue; the queue assigns ID and status.
type Punch struct {
	EmployeeID  string `json:"employeeId" binding:"required"`
	Type        string `json:"type" binding:"required"`
	Timestamp   string `json:"timestamp" binding:"required"`
	SourceLabel string `json:"sourceLabel"`
	DeviceID    string `json:"deviceId"`
}
