package render

import (
	"encoding/json"
	"fmt"
	"math"

	"voxelworld/internal/stream"
	"voxelworld/internal/world"
)

// MessageType tags the JSON text messages exchanged with renderers. Geometry
// travels in binary frames instead.
type MessageType string

const (
	MessageWelcome  MessageType = "WELCOME"
	MessageObserver MessageType = "OBSERVER"
	MessageSetBlock MessageType = "SET_BLOCK"
	MessageError    MessageType = "ERROR"
)

// Welcome is the first message on every session.
type Welcome struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session"`
	ChunkSize int         `json:"chunkSize"`
	Height    int         `json:"height"`
	Compress  bool        `json:"compress"`
}

// Inbound is any message a renderer may send. Observer moves use X and Z;
// edits use X, Y, Z and Block.
type Inbound struct {
	Type  MessageType `json:"type"`
	X     float64     `json:"x"`
	Y     float64     `json:"y"`
	Z     float64     `json:"z"`
	Block int         `json:"block"`
}

type ErrorMessage struct {
	Type    MessageType `json:"type"`
	Message string      `json:"message"`
}

// ParseCommand decodes a renderer message into a streamer command.
func ParseCommand(data []byte) (stream.Command, error) {
	var msg Inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		return stream.Command{}, fmt.Errorf("decode message: %w", err)
	}
	switch msg.Type {
	case MessageObserver:
		if !finite(msg.X) || !finite(msg.Z) {
			return stream.Command{}, fmt.Errorf("observer position must be finite")
		}
		return stream.Command{Kind: stream.CommandObserver, PosX: msg.X, PosZ: msg.Z}, nil
	case MessageSetBlock:
		if msg.Block < 0 || msg.Block > math.MaxUint8 {
			return stream.Command{}, fmt.Errorf("block id %d out of range", msg.Block)
		}
		if !finite(msg.X) || !finite(msg.Y) || !finite(msg.Z) {
			return stream.Command{}, fmt.Errorf("block position must be finite")
		}
		return stream.Command{
			Kind:  stream.CommandSetBlock,
			X:     int(math.Floor(msg.X)),
			Y:     int(math.Floor(msg.Y)),
			Z:     int(math.Floor(msg.Z)),
			Block: world.BlockID(msg.Block),
		}, nil
	default:
		return stream.Command{}, fmt.Errorf("unknown message type %q", msg.Type)
	}
}

// finite also rejects magnitudes that would overflow chunk arithmetic.
func finite(v float64) bool {
	return !math.IsNaN(v) && math.Abs(v) < 1<<30
}
