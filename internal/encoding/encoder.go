package encoding

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/streamroute/event-analytics-platform/internal/domain"
	"github.com/streamroute/event-analytics-platform/internal/schema"
)

// recordMarker is the single leading byte written before every encoded
// record, reserved for downstream framing and versioning.
const recordMarker byte = 0x0

// Error reports that an event's properties could not be serialized against
// their declared schema. It is non-retriable: the event must be fixed
// upstream, resubmitting it unchanged cannot succeed.
type Error struct {
	Project    string
	Collection string
	Err        error
}

func (e *Error) Error() string {
	return fmt.Sprintf("couldn't serialize event %s.%s: %v", e.Project, e.Collection, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// EncodeRecord serializes one event's properties into buf and returns the
// [start, end) range of the encoded record. The range must be consumed
// before the next EncodeRecord call on the same buffer: once free space
// drops below the low-water mark the cursor wraps and the region is reused.
func EncodeRecord(buf *Buffer, event *domain.Event) (start, end int, err error) {
	if event.Properties == nil {
		return 0, 0, &Error{
			Project:    event.Project,
			Collection: event.Collection,
			Err:        fmt.Errorf("event has no properties record"),
		}
	}

	start = buf.Position()
	if err := writeRecord(buf, event.Properties); err != nil {
		// Discard the partial write so a later encode does not ship it.
		buf.pos = start
		return 0, 0, &Error{Project: event.Project, Collection: event.Collection, Err: err}
	}
	end = buf.Position()

	buf.recycle()
	return start, end, nil
}

func writeRecord(buf *Buffer, record *schema.Record) error {
	if err := buf.writeByte(recordMarker); err != nil {
		return err
	}
	for i, field := range record.Fields {
		if err := writeValue(buf, field, record.Values[i]); err != nil {
			return err
		}
	}
	return nil
}

func writeValue(buf *Buffer, field schema.Field, value any) error {
	if value == nil {
		return buf.writeByte(0)
	}
	if err := buf.writeByte(1); err != nil {
		return err
	}

	var scratch [binary.MaxVarintLen64]byte

	switch field.Type {
	case schema.TypeString:
		s, ok := value.(string)
		if !ok {
			return typeMismatch(field, value)
		}
		n := binary.PutUvarint(scratch[:], uint64(len(s)))
		if err := buf.write(scratch[:n]); err != nil {
			return err
		}
		return buf.write([]byte(s))

	case schema.TypeLong, schema.TypeTimestamp:
		v, ok := value.(int64)
		if !ok {
			return typeMismatch(field, value)
		}
		n := binary.PutVarint(scratch[:], v)
		return buf.write(scratch[:n])

	case schema.TypeDouble:
		v, ok := value.(float64)
		if !ok {
			return typeMismatch(field, value)
		}
		binary.LittleEndian.PutUint64(scratch[:8], math.Float64bits(v))
		return buf.write(scratch[:8])

	case schema.TypeBoolean:
		v, ok := value.(bool)
		if !ok {
			return typeMismatch(field, value)
		}
		if v {
			return buf.writeByte(1)
		}
		return buf.writeByte(0)

	default:
		return fmt.Errorf("field %q has unknown type %q", field.Name, field.Type)
	}
}

func typeMismatch(field schema.Field, value any) error {
	return fmt.Errorf("field %q: value %v (%T) does not conform to declared type %q",
		field.Name, value, value, field.Type)
}
