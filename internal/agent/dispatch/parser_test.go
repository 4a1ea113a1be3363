package dispatch

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rdkcentral/webconfig-agent/internal/agent/domain"
)

func TestParseEvent(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want domain.Event
	}{
		{
			name: "ack",
			raw:  "wifi,10,5,ACK,0",
			want: domain.Event{Name: "wifi", TxID: 10, Version: 5, Status: "ACK", Timeout: 0, Kind: domain.EventACK},
		},
		{
			name: "nack",
			raw:  "wifi,10,5,NACK,0",
			want: domain.Event{Name: "wifi", TxID: 10, Version: 5, Status: "NACK", Timeout: 0, Kind: domain.EventNACK},
		},
		{
			name: "timeout request",
			raw:  "wifi,10,5,,30",
			want: domain.Event{Name: "wifi", TxID: 10, Version: 5, Status: "", Timeout: 30, Kind: domain.EventTimeout},
		},
		{
			name: "synthesized expire",
			raw:  "wifi,42,0,EXPIRE,0",
			want: domain.Event{Name: "wifi", TxID: 42, Version: 0, Status: "EXPIRE", Timeout: 0, Kind: domain.EventExpire},
		},
		{
			name: "crash: zero timeout, no status",
			raw:  "wifi,10,5,,0",
			want: domain.Event{Name: "wifi", TxID: 10, Version: 5, Status: "", Timeout: 0, Kind: domain.EventCrash},
		},
		{
			name: "malformed numeric fields become zero",
			raw:  "wifi,not-a-number,also-not,ACK,nope",
			want: domain.Event{Name: "wifi", TxID: 0, Version: 0, Status: "ACK", Timeout: 0, Kind: domain.EventACK},
		},
		{
			name: "missing trailing fields default to empty/zero",
			raw:  "wifi",
			want: domain.Event{Name: "wifi", TxID: 0, Version: 0, Status: "", Timeout: 0, Kind: domain.EventCrash},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseEvent(tt.raw)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestFormatExpiry(t *testing.T) {
	require.Equal(t, "wifi,42,0,EXPIRE,0", FormatExpiry("wifi", 42))
}
