package render

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"voxelworld/internal/stream"
	"voxelworld/internal/world"
)

type Options struct {
	ChunkSize int
	Height    int
	Compress  bool
	// SendBuffer is how many frames may queue for one session before the
	// session is dropped.
	SendBuffer   int
	WriteTimeout time.Duration
	// ReadTimeout of zero waits for inbound messages forever.
	ReadTimeout time.Duration
}

const maxInboundBytes = 64 * 1024

type outbound struct {
	text bool
	data []byte
}

type session struct {
	id   string
	out  chan outbound
	done chan struct{}
	once sync.Once
}

func (s *session) close() {
	s.once.Do(func() { close(s.done) })
}

// Hub fans finished geometry out to websocket renderers and feeds their
// observer moves and edits back into the streamer. It implements
// stream.Sink; Sink calls never block on a slow client.
type Hub struct {
	opts     Options
	codec    *Codec
	commands *stream.CommandQueue
	logger   *log.Logger
	upgrader websocket.Upgrader

	mu       sync.Mutex
	closed   bool
	sessions map[string]*session
	// Latest frames, replayed to sessions that join late.
	meshes  map[world.ChunkCoord][]byte
	lods    map[world.ChunkCoord][]byte
	distant []byte
}

func NewHub(opts Options, commands *stream.CommandQueue, logger *log.Logger) (*Hub, error) {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 256
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = log.New(log.Writer(), "render ", log.LstdFlags|log.Lmicroseconds)
	}
	codec, err := NewCodec(opts.Compress)
	if err != nil {
		return nil, err
	}
	return &Hub{
		opts:     opts,
		codec:    codec,
		commands: commands,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		sessions: make(map[string]*session),
		meshes:   make(map[world.ChunkCoord][]byte),
		lods:     make(map[world.ChunkCoord][]byte),
	}, nil
}

// Codec returns the frame codec, which clients in the same process can use
// to decode frames.
func (h *Hub) Codec() *Codec {
	return h.codec
}

func (h *Hub) Sessions() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

func (h *Hub) MeshReady(m stream.ChunkMesh) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	frame := h.codec.EncodeMesh(m)
	h.meshes[m.Coord] = frame
	h.broadcastLocked(frame)
}

func (h *Hub) MeshRemoved(coord world.ChunkCoord) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	delete(h.meshes, coord)
	h.broadcastLocked(h.codec.EncodeRemove(coord))
}

func (h *Hub) LODChanged(coord world.ChunkCoord, lod stream.LOD) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	frame := h.codec.EncodeLOD(coord, lod)
	if lod == stream.LODNone {
		delete(h.lods, coord)
	} else {
		h.lods[coord] = frame
	}
	h.broadcastLocked(frame)
}

func (h *Hub) DistantUpdated(chunks []stream.DistantChunk) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.distant = h.codec.EncodeDistant(chunks)
	h.broadcastLocked(h.distant)
}

func (h *Hub) broadcastLocked(frame []byte) {
	for id, s := range h.sessions {
		select {
		case s.out <- outbound{data: frame}:
		default:
			h.logger.Printf("session %s is not keeping up, dropping it", id)
			delete(h.sessions, id)
			s.close()
		}
	}
}

// Close disconnects every session. Later Sink calls are ignored.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, s := range h.sessions {
		delete(h.sessions, id)
		s.close()
	}
	h.codec.Close()
}

// join registers a session primed with the welcome message and the current
// world frames.
func (h *Hub) join() (*session, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, fmt.Errorf("hub closed")
	}

	id := uuid.NewString()
	welcome, err := json.Marshal(Welcome{
		Type:      MessageWelcome,
		SessionID: id,
		ChunkSize: h.opts.ChunkSize,
		Height:    h.opts.Height,
		Compress:  h.opts.Compress,
	})
	if err != nil {
		return nil, fmt.Errorf("encode welcome: %w", err)
	}

	backlog := 1 + len(h.lods) + len(h.meshes)
	if h.distant != nil {
		backlog++
	}
	s := &session{
		id:   id,
		out:  make(chan outbound, backlog+h.opts.SendBuffer),
		done: make(chan struct{}),
	}
	s.out <- outbound{text: true, data: welcome}
	if h.distant != nil {
		s.out <- outbound{data: h.distant}
	}
	for _, frame := range h.lods {
		s.out <- outbound{data: frame}
	}
	for _, frame := range h.meshes {
		s.out <- outbound{data: frame}
	}
	h.sessions[id] = s
	return s, nil
}

func (h *Hub) leave(s *session) {
	h.mu.Lock()
	if h.sessions[s.id] == s {
		delete(h.sessions, s.id)
	}
	h.mu.Unlock()
	s.close()
}

// Handler upgrades requests to websocket renderer sessions.
func (h *Hub) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		s, err := h.join()
		if err != nil {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, err.Error()), time.Now().Add(time.Second))
			return
		}
		defer h.leave(s)
		h.logger.Printf("session %s opened from %s", s.id, r.RemoteAddr)

		writeDone := make(chan struct{})
		go func() {
			defer close(writeDone)
			h.writeLoop(conn, s)
		}()

		h.readLoop(conn, s)
		s.close()

		select {
		case <-writeDone:
		case <-time.After(500 * time.Millisecond):
		}
		h.logger.Printf("session %s closed", s.id)
	}
}

func (h *Hub) writeLoop(conn *websocket.Conn, s *session) {
	for {
		select {
		case <-s.done:
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))
			// Unblocks the reader.
			_ = conn.Close()
			return
		case msg := <-s.out:
			kind := websocket.BinaryMessage
			if msg.text {
				kind = websocket.TextMessage
			}
			_ = conn.SetWriteDeadline(time.Now().Add(h.opts.WriteTimeout))
			if err := conn.WriteMessage(kind, msg.data); err != nil {
				s.close()
				_ = conn.Close()
				return
			}
		}
	}
}

func (h *Hub) readLoop(conn *websocket.Conn, s *session) {
	conn.SetReadLimit(maxInboundBytes)
	for {
		if h.opts.ReadTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(h.opts.ReadTimeout))
		}
		kind, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		cmd, err := ParseCommand(msg)
		if err == nil && h.commands == nil {
			err = fmt.Errorf("this hub does not accept commands")
		}
		if err != nil {
			h.reply(s, err)
			continue
		}
		h.commands.Enqueue(cmd)
	}
}

// reply queues an error message; it is dropped if the session is backed up.
func (h *Hub) reply(s *session, cause error) {
	data, err := json.Marshal(ErrorMessage{Type: MessageError, Message: cause.Error()})
	if err != nil {
		return
	}
	select {
	case s.out <- outbound{text: true, data: data}:
	default:
	}
}
