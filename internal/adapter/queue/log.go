package queue

import (
	"sync"

	"go.uber.org/zap"
)

// LogQueue delivers events in-process and logs them. Used when no broker is
// configured.
type LogQueue struct {
	mu       sync.RWMutex
	handlers map[string][]func(data []byte) error
	log      *zap.Logger
}

func NewLogQueue(log *zap.Logger) *LogQueue {
	return &LogQueue{
		handlers: make(map[string][]func(data []byte) error),
		log:      log,
	}
}

func (q *LogQueue) Publish(subject string, data []byte) error {
	q.log.Info("Event published", zap.String("subject", subject), zap.ByteString("payload", data))

	q.mu.RLock()
	handlers := append([]func(data []byte) error(nil), q.handlers[subject]...)
	q.mu.RUnlock()

	for _, h := range handlers {
		if err := h(data); err != nil {
			q.log.Error("Error processing message", zap.String("subject", subject), zap.Error(err))
		}
	}
	return nil
}

func (q *LogQueue) Subscribe(subject string, handler func(data []byte) error) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[subject] = append(q.handlers[subject], handler)
	return nil
}

func (q *LogQueue) Close() error {
	return nil
}

func (q *LogQueue) Ping() error {
	return nil
}
