package protocol

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// ValueType tags a property value on the wire.
type ValueType uint8

const (
	ValueNull   ValueType = 0x00
	ValueBool   ValueType = 0x01
	ValueInt    ValueType = 0x02
	ValueFloat  ValueType = 0x03
	ValueString ValueType = 0x04
)

// ErrInvalidValueType is returned for an unknown value tag.
var ErrInvalidValueType = errors.New("protocol: invalid value type")

// WriteValue appends a typed property value. Integers of every width are
// sent as ints, except unsigned values above math.MaxInt64, which are sent
// as decimal strings like other types.
func (e *Encoder) WriteValue(v any) {
	switch val := v.(type) {
	case nil:
		e.WriteByte(byte(ValueNull))
	case bool:
		e.WriteByte(byte(ValueBool))
		e.WriteBool(val)
	case int:
		e.writeInt(int64(val))
	case int8:
		e.writeInt(int64(val))
	case int16:
		e.writeInt(int64(val))
	case int32:
		e.writeInt(int64(val))
	case int64:
		e.writeInt(val)
	case uint:
		e.writeUint(uint64(val))
	case uint64:
		e.writeUint(val)
	case uint8:
		e.writeInt(int64(val))
	case uint16:
		e.writeInt(int64(val))
	case uint32:
		e.writeInt(int64(val))
	case float32:
		e.WriteByte(byte(ValueFloat))
		e.WriteFloat64(float64(val))
	case float64:
		e.WriteByte(byte(ValueFloat))
		e.WriteFloat64(val)
	case string:
		e.WriteByte(byte(ValueString))
		e.WriteString(val)
	default:
		e.WriteByte(byte(ValueString))
		e.WriteString(fmt.Sprint(val))
	}
}

func (e *Encoder) writeUint(v uint64) {
	if v > math.MaxInt64 {
		e.WriteByte(byte(ValueString))
		e.WriteString(strconv.FormatUint(v, 10))
		return
	}
	e.writeInt(int64(v))
}

func (e *Encoder) writeInt(v int64) {
	e.WriteByte(byte(ValueInt))
	e.WriteSvarint(v)
}

// ReadValue reads a typed property value. Ints decode as int64 and floats
// as float64.
func (d *Decoder) ReadValue() (any, error) {
	tag, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	switch ValueType(tag) {
	case ValueNull:
		return nil, nil
	case ValueBool:
		return d.ReadBool()
	case ValueInt:
		return d.ReadSvarint()
	case ValueFloat:
		return d.ReadFloat64()
	case ValueString:
		return d.ReadString()
	default:
		return nil, fmt.Errorf("%w: 0x%02x", ErrInvalidValueType, tag)
	}
}
