package amqp

import (
	"errors"
	"testing"
	"time"
)

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: 0, want: time.Second},
		{attempt: 1, want: 2 * time.Second},
		{attempt: 2, want: 4 * time.Second},
		{attempt: 4, want: 16 * time.Second},
		{attempt: 5, want: 30 * time.Second},
		{attempt: 10, want: 30 * time.Second},
		{attempt: 63, want: 30 * time.Second}, // shift overflow must still cap
	}

	for _, tt := range tests {
		if got := exponentialBackoff(tt.attempt); got != tt.want {
			t.Errorf("exponentialBackoff(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "refused", err: errors.New("dial tcp: connection refused"), want: true},
		{name: "closed", err: errors.New("Exception (504) Reason: \"channel/connection is not open\": connection closed"), want: true},
		{name: "reset", err: errors.New("read: connection reset by peer"), want: true},
		{name: "channel closed", err: errors.New("message channel closed"), want: true},
		{name: "eof", err: errors.New("unexpected EOF"), want: true},
		{name: "broken pipe", err: errors.New("write: broken pipe"), want: true},
		{name: "unrelated", err: errors.New("batch not found"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isConnectionError(tt.err); got != tt.want {
				t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestBatchJobRoundTrip(t *testing.T) {
	job := NewBatchJob("batch-42")

	data, err := job.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	decoded, err := BatchJobFromJSON(data)
	if err != nil {
		t.Fatalf("BatchJobFromJSON() error = %v", err)
	}
	if decoded.BatchID != "batch-42" {
		t.Errorf("BatchID = %s, want batch-42", decoded.BatchID)
	}
	if decoded.Timestamp.IsZero() {
		t.Error("Timestamp is zero")
	}
}

func TestBatchJobFromJSON_Malformed(t *testing.T) {
	if _, err := BatchJobFromJSON([]byte("{not json")); err == nil {
		t.Error("error = nil, want decode failure")
	}
}
