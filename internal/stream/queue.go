package stream

import (
	"sync"

	"voxelworld/internal/world"
)

type CommandKind uint8

const (
	CommandObserver CommandKind = iota + 1
	CommandSetBlock
)

// Command is an inbound request from another goroutine. Observer commands
// use PosX/PosZ; block edits use X/Y/Z and Block.
type Command struct {
	Kind  CommandKind
	PosX  float64
	PosZ  float64
	X     int
	Y     int
	Z     int
	Block world.BlockID
}

// CommandQueue hands commands to the control loop, which applies them at
// the start of each tick. It is safe for concurrent use.
type CommandQueue struct {
	mu      sync.Mutex
	pending []Command
}

func NewCommandQueue() *CommandQueue {
	return &CommandQueue{
		pending: make([]Command, 0),
	}
}

func (q *CommandQueue) Enqueue(cmd Command) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, cmd)
}

// MoveObserver queues an observer position update.
func (q *CommandQueue) MoveObserver(x, z float64) {
	q.Enqueue(Command{Kind: CommandObserver, PosX: x, PosZ: z})
}

// SetBlock queues a voxel edit.
func (q *CommandQueue) SetBlock(x, y, z int, id world.BlockID) {
	q.Enqueue(Command{Kind: CommandSetBlock, X: x, Y: y, Z: z, Block: id})
}

// Drain removes up to max commands in arrival order; max <= 0 drains all.
func (q *CommandQueue) Drain(max int) []Command {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return nil
	}
	if max <= 0 || max >= len(q.pending) {
		batch := append([]Command(nil), q.pending...)
		q.pending = q.pending[:0]
		return batch
	}
	batch := append([]Command(nil), q.pending[:max]...)
	q.pending = q.pending[max:]
	return batch
}

func (q *CommandQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
