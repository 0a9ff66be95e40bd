package messaging

import (
	"context"
	"fmt"
	"sync"
)

// MockGateway records posted and updated messages for tests.
type MockGateway struct {
	mu sync.Mutex

	PostErr   error
	UpdateErr error
	ModalErr  error

	Posted  []PostedMessage
	Updated []PostedMessage
	Modals  []OpenedModal

	nextTS int
}

type PostedMessage struct {
	ChannelID string
	TS        string
	Msg       Message
}

type OpenedModal struct {
	TriggerID string
	View      ModalView
}

func (m *MockGateway) PostMessage(ctx context.Context, channelID string, msg Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PostErr != nil {
		return "", m.PostErr
	}
	m.nextTS++
	ts := fmt.Sprintf("1700000000.%06d", m.nextTS)
	m.Posted = append(m.Posted, PostedMessage{ChannelID: channelID, TS: ts, Msg: msg})
	return ts, nil
}

func (m *MockGateway) UpdateMessage(ctx context.Context, channelID, messageTS string, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	m.Updated = append(m.Updated, PostedMessage{ChannelID: channelID, TS: messageTS, Msg: msg})
	return nil
}

func (m *MockGateway) OpenModal(ctx context.Context, triggerID string, view ModalView) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ModalErr != nil {
		return m.ModalErr
	}
	m.Modals = append(m.Modals, OpenedModal{TriggerID: triggerID, View: view})
	return nil
}

// LastUpdate returns the most recent update, or false when none happened.
func (m *MockGateway) LastUpdate() (PostedMessage, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Updated) == 0 {
		return PostedMessage{}, false
	}
	return m.Updated[len(m.Updated)-1], true
}
