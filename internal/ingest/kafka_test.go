package ingest

import (
	"testing"
	"time"
)

func TestDecodeReading(t *testing.T) {
	msg := `{"timestamp":"2026-08-01T12:00:00Z","ear_value":0.15,"is_drowsy":true,"duration_ms":3500}`
	r, err := decodeReading([]byte(msg))
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if r.EARValue != 0.15 || !r.IsDrowsy || r.DurationMS != 3500 {
		t.Fatalf("reading mismatch: %+v", r)
	}
	want := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	if !r.Timestamp.Equal(want) {
		t.Fatalf("timestamp: got %v, want %v", r.Timestamp, want)
	}
}

func TestDecodeReadingOptionalTimestamp(t *testing.T) {
	r, err := decodeReading([]byte(`{"ear_value":0.3,"is_drowsy":false,"duration_ms":100}`))
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if !r.Timestamp.IsZero() {
		t.Fatalf("missing timestamp must stay zero: %v", r.Timestamp)
	}
}

func TestDecodeReadingRejected(t *testing.T) {
	cases := []string{
		`not json`,
		`{"is_drowsy":true,"duration_ms":100}`,
		`{"ear_value":1.5,"is_drowsy":true,"duration_ms":100}`,
		`{"ear_value":0.1,"is_drowsy":true,"duration_ms":-1}`,
		`{"ear_value":0.1,"is_drowsy":true,"duration_ms":100,"timestamp":"yesterday"}`,
	}
	for _, msg := range cases {
		if _, err := decodeReading([]byte(msg)); err == nil {
			t.Fatalf("message %s: expected rejection", msg)
		}
	}
}
