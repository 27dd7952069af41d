// Package protocol implements the binary wire protocol between a loom server
// and a remote client.
//
// The server streams one patch frame per committed render cycle; the client
// replays the host operations it contains against its own tree. The client
// sends event frames naming the target node and the derived event name.
//
// # Wire Format
//
// Every message is a frame with a 6-byte header:
//
//	┌─────────────┬──────────────┬───────────────────────────────┐
//	│ Frame Type  │ Flags        │ Payload Length                │
//	│ (1 byte)    │ (1 byte)     │ (4 bytes, big-endian)         │
//	└─────────────┴──────────────┴───────────────────────────────┘
//
// # Frame Types
//
//   - FrameHello (0x00): Server → Client initial tree
//   - FrameEvent (0x01): Client → Server events
//   - FramePatches (0x02): Server → Client host operations of one commit
//   - FrameControl (0x03): Ping, pong and resync requests
//   - FrameError (0x05): Error message
//
// # Encoding
//
//   - Varint: protobuf-style unsigned integers (node IDs, counts, sequence numbers)
//   - ZigZag: signed integers as unsigned varints
//   - Length-prefixed: strings prefixed with a varint length
//   - Big-endian: fixed-width integers and IEEE 754 floats
//
// Property values carry a one-byte type tag (null, bool, int, float, string).
//
// # Patches
//
// A patch mirrors one host operation:
//
//	[Op: 1 byte][Node: varint][op-specific fields]
//
// Create carries the tag, SetProp a key and a typed value, RemoveProp,
// Listen and Unlisten a key, Append and Remove the parent node ID.
package protocol
