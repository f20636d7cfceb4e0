package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeSuccess NoticeLevel = "success"
	NoticeError   NoticeLevel = "error"
)

// Notice is a dismissible message about an operation outcome.
type Notice struct {
	ID        string      `json:"id"`
	Level     NoticeLevel `json:"level"`
	Message   string      `json:"message"`
	CreatedAt time.Time   `json:"created_at"`
}

const maxNotices = 50

type noticeBoard struct {
	mu    sync.Mutex
	items []Notice
}

func (b *noticeBoard) add(level NoticeLevel, msg string) Notice {
	n := Notice{ID: uuid.NewString(), Level: level, Message: msg, CreatedAt: time.Now()}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = append(b.items, n)
	if len(b.items) > maxNotices {
		b.items = b.items[len(b.items)-maxNotices:]
	}
	return n
}

func (b *noticeBoard) list() []Notice {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Notice(nil), b.items...)
}

// dismiss removes one notice, or all of them when id is empty.
func (b *noticeBoard) dismiss(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if id == "" {
		b.items = nil
		return true
	}
	for i, n := range b.items {
		if n.ID == id {
			b.items = append(b.items[:i], b.items[i+1:]...)
			return true
		}
	}
	return false
}
