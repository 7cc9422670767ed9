package core

import (
	"sync"

	"watchparty/internal/domain"
)

// MaxMessagesPerRoom bounds each room's chat log; oldest entries are evicted
// beyond it.
const MaxMessagesPerRoom = 50

// ChatLog holds a bounded per-room FIFO of messages. Each queue has its own
// lock so enqueue/evict stays atomic without cross-room contention.
type ChatLog struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]*messageQueue
}

type messageQueue struct {
	mu       sync.Mutex
	messages []domain.ChatMessage
}

func NewChatLog() *ChatLog {
	return &ChatLog{rooms: make(map[domain.RoomID]*messageQueue)}
}

func (c *ChatLog) queue(roomID domain.RoomID, create bool) *messageQueue {
	c.mu.RLock()
	q, ok := c.rooms[roomID]
	c.mu.RUnlock()
	if ok || !create {
		return q
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if q, ok = c.rooms[roomID]; ok {
		return q
	}
	q = &messageQueue{}
	c.rooms[roomID] = q
	return q
}

// AddMessage appends and evicts the oldest entries beyond the cap.
func (c *ChatLog) AddMessage(roomID domain.RoomID, msg domain.ChatMessage) {
	q := c.queue(roomID, true)
	q.mu.Lock()
	defer q.mu.Unlock()
	q.messages = append(q.messages, msg)
	if n := len(q.messages) - MaxMessagesPerRoom; n > 0 {
		q.messages = append(q.messages[:0:0], q.messages[n:]...)
	}
}

// GetRoomMessages returns a snapshot in insertion order, oldest first.
func (c *ChatLog) GetRoomMessages(roomID domain.RoomID) []domain.ChatMessage {
	q := c.queue(roomID, false)
	if q == nil {
		return nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]domain.ChatMessage, len(q.messages))
	copy(out, q.messages)
	return out
}

// PurgeRoom drops the room's log; called once the room empties or closes.
func (c *ChatLog) PurgeRoom(roomID domain.RoomID) {
	c.mu.Lock()
	delete(c.rooms, roomID)
	c.mu.Unlock()
}
