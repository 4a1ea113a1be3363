package avs

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"

	"github.com/rdkcentral/webconfig-agent/internal/agent/domain"
)

// blob format: a count-prefixed sequence of length-prefixed records, each
// record {name, version, status, error_code}. Deliberately simple and
// self-describing rather than reusing a general-purpose serialization
// library: the on-disk shape is entirely internal to this package and
// the spec only requires it round-trip and be deterministic.
func encodeBlob(entries []domain.AppliedEntry) []byte {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(entries)))
	for _, e := range entries {
		writeString(&buf, e.Name)
		_ = binary.Write(&buf, binary.BigEndian, e.Version)
		writeString(&buf, e.Status)
		writeString(&buf, e.ErrorCode)
	}
	return buf.Bytes()
}

func decodeBlob(data []byte) ([]domain.AppliedEntry, error) {
	r := bytes.NewReader(data)
	var count uint32
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, fmt.Errorf("avs: decode count: %w", err)
	}
	entries := make([]domain.AppliedEntry, 0, count)
	for i := uint32(0); i < count; i++ {
		name, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("avs: decode entry %d name: %w", i, err)
		}
		var version uint32
		if err := binary.Read(r, binary.BigEndian, &version); err != nil {
			return nil, fmt.Errorf("avs: decode entry %d version: %w", i, err)
		}
		status, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("avs: decode entry %d status: %w", i, err)
		}
		errorCode, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("avs: decode entry %d error_code: %w", i, err)
		}
		entries = append(entries, domain.AppliedEntry{Name: name, Version: version, Status: status, ErrorCode: errorCode})
	}
	return entries, nil
}

func writeString(buf *bytes.Buffer, s string) {
	_ = binary.Write(buf, binary.BigEndian, uint32(len(s)))
	buf.WriteString(s)
}

func readString(r *bytes.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := r.Read(b); err != nil && n > 0 {
		return "", err
	}
	return string(b), nil
}

// SerializeBlob produces a deterministic packed encoding of the full
// snapshot, in insertion order.
func (s *Store) SerializeBlob() []byte {
	return encodeBlob(s.Snapshot())
}

// SerializeBlobBase64 wraps SerializeBlob's output in standard base64.
func (s *Store) SerializeBlobBase64() string {
	return base64.StdEncoding.EncodeToString(s.SerializeBlob())
}
