package protocol

import "fmt"

// ControlType identifies a control message.
type ControlType uint8

const (
	ControlPing   ControlType = 0x01
	ControlPong   ControlType = 0x02
	ControlResync ControlType = 0x10 // client asks for a fresh Hello
)

// String returns the string representation of the control type.
func (ct ControlType) String() string {
	switch ct {
	case ControlPing:
		return "Ping"
	case ControlPong:
		return "Pong"
	case ControlResync:
		return "Resync"
	default:
		return "Unknown"
	}
}

// Control is a ping, pong, or resync request.
type Control struct {
	Type  ControlType
	Nonce uint64
}

// EncodeControl encodes a control payload.
func EncodeControl(c *Control) []byte {
	e := NewEncoder()
	e.WriteByte(byte(c.Type))
	e.WriteUvarint(c.Nonce)
	return e.Bytes()
}

// DecodeControl decodes a control payload.
func DecodeControl(data []byte) (*Control, error) {
	d := NewDecoder(data)
	t, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	switch ControlType(t) {
	case ControlPing, ControlPong, ControlResync:
	default:
		return nil, fmt.Errorf("protocol: invalid control type 0x%02x", t)
	}
	nonce, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	if err := d.finish(); err != nil {
		return nil, err
	}
	return &Control{Type: ControlType(t), Nonce: nonce}, nil
}

// Hello carries the committed tree to a newly connected client. HTML
// elements carry data-loom-id attributes so later patches can address them.
type Hello struct {
	Session string
	Seq     uint64 // last committed cycle
	Root    uint64 // container node ID
	HTML    string
}

// EncodeHello encodes a hello payload.
func EncodeHello(h *Hello) []byte {
	e := NewEncoder()
	e.WriteString(h.Session)
	e.WriteUvarint(h.Seq)
	e.WriteUvarint(h.Root)
	e.WriteString(h.HTML)
	return e.Bytes()
}

// DecodeHello decodes a hello payload.
func DecodeHello(data []byte) (*Hello, error) {
	d := NewDecoder(data)
	var h Hello
	var err error
	if h.Session, err = d.ReadString(); err != nil {
		return nil, err
	}
	if h.Seq, err = d.ReadUvarint(); err != nil {
		return nil, err
	}
	if h.Root, err = d.ReadUvarint(); err != nil {
		return nil, err
	}
	if h.HTML, err = d.ReadString(); err != nil {
		return nil, err
	}
	if err := d.finish(); err != nil {
		return nil, err
	}
	return &h, nil
}
