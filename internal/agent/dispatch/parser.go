package dispatch

import (
	"strconv"
	"strings"

	"github.com/rdkcentral/webconfig-agent/internal/agent/domain"
)

// ParseEvent parses the five-field comma-separated event string
// "name,tx_id,version,status,timeout" into an Event. Fields may be
// empty; a malformed numeric field becomes 0 rather than failing the
// parse, matching the source parser's strsep/strtoul behavior.
func ParseEvent(raw string) domain.Event {
	fields := strings.SplitN(raw, ",", 5)
	for len(fields) < 5 {
		fields = append(fields, "")
	}

	name := fields[0]
	txID := parseUint16(fields[1])
	version := parseUint32(fields[2])
	status := fields[3]
	timeout := parseUint32(fields[4])

	return domain.Event{
		Name:    name,
		TxID:    txID,
		Version: version,
		Status:  status,
		Timeout: timeout,
		Kind:    domain.Classify(status, timeout),
	}
}

// FormatExpiry renders the synthesized EXPIRE event string for a given
// name and freshly generated tx_id: "<name>,<tx_id>,0,EXPIRE,0".
func FormatExpiry(name string, txID uint16) string {
	return name + "," + strconv.FormatUint(uint64(txID), 10) + ",0,EXPIRE,0"
}

func parseUint16(s string) uint16 {
	if s == "" {
		return 0
	}
	n, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return 0
	}
	return uint16(n)
}

func parseUint32(s string) uint32 {
	if s == "" {
		return 0
	}
	n, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0
	}
	return uint32(n)
}
