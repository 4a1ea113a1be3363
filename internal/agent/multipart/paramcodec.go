package multipart

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/rdkcentral/webconfig-agent/internal/agent/domain"
)

// ParamCodec implements agent.ParamCodec: decoding one subdoc's raw data
// bytes into the typed parameter list the component RPC expects.
type ParamCodec struct{}

// NewParamCodec returns the default ParamCodec.
func NewParamCodec() *ParamCodec { return &ParamCodec{} }

// DecodeParamBlob decodes a count-prefixed sequence of
// {name, type, value} records. An empty blob yields an empty list and no
// error; a malformed blob yields an error along with the records decoded
// before the fault.
func (c *ParamCodec) DecodeParamBlob(data []byte) ([]domain.Param, error) {
	if len(data) == 0 {
		return nil, nil
	}

	r := bytes.NewReader(data)
	var count uint32
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, fmt.Errorf("multipart: decode param count: %w", err)
	}

	params := make([]domain.Param, 0, count)
	for i := uint32(0); i < count; i++ {
		nameLen, err := readUint32(r)
		if err != nil {
			return params, fmt.Errorf("multipart: decode param %d name length: %w", i, err)
		}
		name := make([]byte, nameLen)
		if _, err := r.Read(name); err != nil && nameLen > 0 {
			return params, fmt.Errorf("multipart: decode param %d name: %w", i, err)
		}

		var paramType uint8
		if err := binary.Read(r, binary.BigEndian, &paramType); err != nil {
			return params, fmt.Errorf("multipart: decode param %d type: %w", i, err)
		}

		valLen, err := readUint32(r)
		if err != nil {
			return params, fmt.Errorf("multipart: decode param %d value length: %w", i, err)
		}
		value := make([]byte, valLen)
		if _, err := r.Read(value); err != nil && valLen > 0 {
			return params, fmt.Errorf("multipart: decode param %d value: %w", i, err)
		}

		params = append(params, domain.Param{
			Name:  string(name),
			Value: value,
			Type:  domain.ParamType(paramType),
		})
	}
	return params, nil
}

func readUint32(r *bytes.Reader) (uint32, error) {
	var n uint32
	err := binary.Read(r, binary.BigEndian, &n)
	return n, err
}
