package domain

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		status  string
		timeout uint32
		want    EventKind
	}{
		{"ack with zero timeout", "ACK", 0, EventACK},
		{"nack with zero timeout", "NACK", 0, EventNACK},
		{"explicit expire", "EXPIRE", 0, EventExpire},
		{"expire wins over nonzero timeout", "EXPIRE", 30, EventExpire},
		{"nonzero timeout, no status", "", 30, EventTimeout},
		{"ack shaped but nonzero timeout falls through to timeout", "ACK", 30, EventTimeout},
		{"timeout-shaped event with zero timeout is crash", "", 0, EventCrash},
		{"unrecognized status with zero timeout is crash", "BOGUS", 0, EventCrash},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.status, tt.timeout)
			if got != tt.want {
				t.Errorf("Classify(%q, %d) = %v, want %v", tt.status, tt.timeout, got, tt.want)
			}
		})
	}
}

func TestEventKind_String(t *testing.T) {
	if EventACK.String() != "ack" {
		t.Errorf("EventACK.String() = %q, want ack", EventACK.String())
	}
	if EventUnknown.String() != "unknown" {
		t.Errorf("EventUnknown.String() = %q, want unknown", EventUnknown.String())
	}
}
