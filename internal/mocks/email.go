package mocks

import (
	"context"
	"sync"
)

type SentEmail struct {
	To      []string
	Subject string
	Body    string
}

// MockEmailProvider records sent e-mails.
type MockEmailProvider struct {
	mu       sync.Mutex
	Sent     []SentEmail
	SendFunc func(ctx context.Context, to []string, subject, body string) error
}

func (m *MockEmailProvider) Send(ctx context.Context, to []string, subject, body string) error {
	if m.SendFunc != nil {
		return m.SendFunc(ctx, to, subject, body)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, SentEmail{To: to, Subject: subject, Body: body})
	return nil
}

func (m *MockEmailProvider) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sent)
}
