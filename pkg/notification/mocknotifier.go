package notification

import "sync"

// SentNotice is one delivery captured by the mock notifier.
type SentNotice struct {
	NoticeType NoticeType
	Data       NotificationData
	Template   NoticeTemplate
}

// MockNotifier records sends instead of delivering them. Used in tests.
type MockNotifier struct {
	mu   sync.Mutex
	sent []SentNotice

	// FailWith, when set, makes every Send return this error.
	FailWith error
}

// NewMockNotifier creates an empty mock notifier.
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

func (m *MockNotifier) Send(noticeType NoticeType, data NotificationData, template NoticeTemplate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWith != nil {
		return m.FailWith
	}

	m.sent = append(m.sent, SentNotice{
		NoticeType: noticeType,
		Data:       data,
		Template:   template,
	})
	return nil
}

// Sent returns a copy of everything recorded so far.
func (m *MockNotifier) Sent() []SentNotice {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]SentNotice, len(m.sent))
	copy(out, m.sent)
	return out
}

// Last returns the most recent send, or false when nothing was sent.
func (m *MockNotifier) Last() (SentNotice, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.sent) == 0 {
		return SentNotice{}, false
	}
	return m.sent[len(m.sent)-1], true
}
