package encoding

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/streamroute/event-analytics-platform/internal/schema"
)

// DecodeRecord reads one encoded record back into a typed record using the
// collection's declared schema. It is the inverse of EncodeRecord and is
// used by the consumer pipeline and by tests.
func DecodeRecord(data []byte, fields []schema.Field) (*schema.Record, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty record")
	}
	if data[0] != recordMarker {
		return nil, fmt.Errorf("unexpected record marker 0x%02x", data[0])
	}

	record := schema.NewRecord(fields)
	pos := 1

	for i, field := range fields {
		if pos >= len(data) {
			return nil, fmt.Errorf("record truncated at field %q", field.Name)
		}
		present := data[pos]
		pos++
		if present == 0 {
			continue
		}

		value, n, err := readValue(data[pos:], field)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", field.Name, err)
		}
		record.Values[i] = value
		pos += n
	}

	if pos != len(data) {
		return nil, fmt.Errorf("record has %d trailing bytes", len(data)-pos)
	}
	return record, nil
}

func readValue(data []byte, field schema.Field) (any, int, error) {
	switch field.Type {
	case schema.TypeString:
		length, n := binary.Uvarint(data)
		if n <= 0 {
			return nil, 0, fmt.Errorf("invalid string length")
		}
		// Compare unsigned before converting: a corrupt length near the
		// uvarint maximum would overflow int and slip past a signed check.
		if length > uint64(len(data)-n) {
			return nil, 0, fmt.Errorf("string truncated")
		}
		end := n + int(length)
		return string(data[n:end]), end, nil

	case schema.TypeLong, schema.TypeTimestamp:
		v, n := binary.Varint(data)
		if n <= 0 {
			return nil, 0, fmt.Errorf("invalid varint")
		}
		return v, n, nil

	case schema.TypeDouble:
		if len(data) < 8 {
			return nil, 0, fmt.Errorf("double truncated")
		}
		return math.Float64frombits(binary.LittleEndian.Uint64(data[:8])), 8, nil

	case schema.TypeBoolean:
		if len(data) == 0 {
			return nil, 0, fmt.Errorf("boolean truncated")
		}
		return data[0] != 0, 1, nil

	default:
		return nil, 0, fmt.Errorf("unknown type %q", field.Type)
	}
}
