package protocol

import (
	"errors"
	"fmt"
)

// PatchOp is the host operation a patch replays.
type PatchOp uint8

const (
	PatchCreate     PatchOp = 0x01 // Create a detached node
	PatchSetProp    PatchOp = 0x02 // Set a plain property
	PatchRemoveProp PatchOp = 0x03 // Remove a plain property
	PatchListen     PatchOp = 0x04 // Forward an event type to the server
	PatchUnlisten   PatchOp = 0x05 // Stop forwarding an event type
	PatchAppend     PatchOp = 0x06 // Append node under parent
	PatchRemove     PatchOp = 0x07 // Detach node from parent
)

// String returns the string representation of the patch operation.
func (op PatchOp) String() string {
	switch op {
	case PatchCreate:
		return "Create"
	case PatchSetProp:
		return "SetProp"
	case PatchRemoveProp:
		return "RemoveProp"
	case PatchListen:
		return "Listen"
	case PatchUnlisten:
		return "Unlisten"
	case PatchAppend:
		return "Append"
	case PatchRemove:
		return "Remove"
	default:
		return "Unknown"
	}
}

// ErrInvalidPatchOp is returned for an unknown patch operation.
var ErrInvalidPatchOp = errors.New("protocol: invalid patch op")

// Patch is one host operation.
type Patch struct {
	Op     PatchOp
	Node   uint64 // target node; the child for Append/Remove
	Parent uint64 // Append/Remove only
	Key    string // tag for Create, property or event name otherwise
	Value  any    // SetProp only
}

// PatchesFrame holds the patches of one commit.
type PatchesFrame struct {
	Seq     uint64 // commit cycle
	Patches []Patch
}

// NewCreatePatch creates a Create patch.
func NewCreatePatch(node uint64, tag string) Patch {
	return Patch{Op: PatchCreate, Node: node, Key: tag}
}

// NewSetPropPatch creates a SetProp patch.
func NewSetPropPatch(node uint64, key string, value any) Patch {
	return Patch{Op: PatchSetProp, Node: node, Key: key, Value: value}
}

// NewRemovePropPatch creates a RemoveProp patch.
func NewRemovePropPatch(node uint64, key string) Patch {
	return Patch{Op: PatchRemoveProp, Node: node, Key: key}
}

// NewListenPatch creates a Listen patch.
func NewListenPatch(node uint64, event string) Patch {
	return Patch{Op: PatchListen, Node: node, Key: event}
}

// NewUnlistenPatch creates an Unlisten patch.
func NewUnlistenPatch(node uint64, event string) Patch {
	return Patch{Op: PatchUnlisten, Node: node, Key: event}
}

// NewAppendPatch creates an Append patch.
func NewAppendPatch(node, parent uint64) Patch {
	return Patch{Op: PatchAppend, Node: node, Parent: parent}
}

// NewRemovePatch creates a Remove patch.
func NewRemovePatch(node, parent uint64) Patch {
	return Patch{Op: PatchRemove, Node: node, Parent: parent}
}

// EncodePatches encodes a patches frame payload.
func EncodePatches(pf *PatchesFrame) []byte {
	e := NewEncoder()
	EncodePatchesTo(e, pf)
	return e.Bytes()
}

// EncodePatchesTo encodes a patches frame payload using e.
func EncodePatchesTo(e *Encoder, pf *PatchesFrame) {
	e.WriteUvarint(pf.Seq)
	e.WriteUvarint(uint64(len(pf.Patches)))
	for i := range pf.Patches {
		encodePatch(e, &pf.Patches[i])
	}
}

func encodePatch(e *Encoder, p *Patch) {
	e.WriteByte(byte(p.Op))
	e.WriteUvarint(p.Node)

	switch p.Op {
	case PatchCreate, PatchRemoveProp, PatchListen, PatchUnlisten:
		e.WriteString(p.Key)
	case PatchSetProp:
		e.WriteString(p.Key)
		e.WriteValue(p.Value)
	case PatchAppend, PatchRemove:
		e.WriteUvarint(p.Parent)
	}
}

// DecodePatches decodes a patches frame payload.
func DecodePatches(data []byte) (*PatchesFrame, error) {
	d := NewDecoder(data)
	pf, err := DecodePatchesFrom(d)
	if err != nil {
		return nil, err
	}
	if err := d.finish(); err != nil {
		return nil, err
	}
	return pf, nil
}

// DecodePatchesFrom decodes a patches frame payload from d.
func DecodePatchesFrom(d *Decoder) (*PatchesFrame, error) {
	seq, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	count, err := d.ReadCollectionCount()
	if err != nil {
		return nil, err
	}

	pf := &PatchesFrame{Seq: seq, Patches: make([]Patch, count)}
	for i := range pf.Patches {
		if err := decodePatch(d, &pf.Patches[i]); err != nil {
			return nil, fmt.Errorf("patch %d: %w", i, err)
		}
	}
	return pf, nil
}

func decodePatch(d *Decoder, p *Patch) error {
	op, err := d.ReadByte()
	if err != nil {
		return err
	}
	p.Op = PatchOp(op)
	if p.Node, err = d.ReadUvarint(); err != nil {
		return err
	}

	switch p.Op {
	case PatchCreate, PatchRemoveProp, PatchListen, PatchUnlisten:
		p.Key, err = d.ReadString()
	case PatchSetProp:
		if p.Key, err = d.ReadString(); err != nil {
			return err
		}
		p.Value, err = d.ReadValue()
	case PatchAppend, PatchRemove:
		p.Parent, err = d.ReadUvarint()
	default:
		return fmt.Errorf("%w: 0x%02x", ErrInvalidPatchOp, op)
	}
	return err
}
