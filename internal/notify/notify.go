package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type Level string

const (
	LevelError   Level = "error"
	LevelWarning Level = "warning"
)

// Notice is a transient, user-visible message about a failed remote call.
type Notice struct {
	Level   Level     `json:"level"`
	Op      string    `json:"op"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

func Error(op, message string) Notice {
	return Notice{Level: LevelError, Op: op, Message: message}
}

func Warning(op, message string) Notice {
	return Notice{Level: LevelWarning, Op: op, Message: message}
}

type Notifier interface {
	Notify(ctx context.Context, n Notice)
}

// Bus logs every notice and fans it out to all subscribers.
type Bus struct {
	logger *zap.Logger
	mu     sync.RWMutex
	subs   map[chan Notice]struct{}
}

func NewBus(logger *zap.Logger) *Bus {
	return &Bus{
		logger: logger,
		subs:   make(map[chan Notice]struct{}),
	}
}

func (b *Bus) Notify(_ context.Context, n Notice) {
	if n.At.IsZero() {
		n.At = time.Now().UTC()
	}

	fields := []zap.Field{zap.String("op", n.Op), zap.String("message", n.Message)}
	if n.Level == LevelWarning {
		b.logger.Warn("notice", fields...)
	} else {
		b.logger.Error("notice", fields...)
	}

	b.mu.RLock()
	for ch := range b.subs {
		select {
		case ch <- n:
		default:
			// подписчик не успевает, уведомление теряется
		}
	}
	b.mu.RUnlock()
}

// Subscribe returns a buffered channel receiving every subsequent notice.
func (b *Bus) Subscribe() chan Notice {
	ch := make(chan Notice, 32)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Bus) Unsubscribe(ch chan Notice) {
	b.mu.Lock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
	b.mu.Unlock()
}
