// Package transporttest provides an in-memory Gateway for tests.
package transporttest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/spec-kit/gatekeeper/internal/transport"
)

// CreatedChannel records one CreateChannel call.
type CreatedChannel struct {
	ID        string
	Location  string
	Name      string
	Topic     string
	Overrides []transport.PermissionOverride
}

// SentMessage records one SendMessage call.
type SentMessage struct {
	ChannelID string
	Message   transport.Message
}

// Grant records one GrantRole call.
type Grant struct {
	UserID string
	RoleID string
}

// Deletion records one DeleteChannel call.
type Deletion struct {
	ChannelID string
	Reason    string
}

// FakeGateway implements transport.Gateway, recording every call. Error
// fields, when set, make the corresponding operation fail.
type FakeGateway struct {
	mu          sync.Mutex
	nextChannel int

	CreateErr error
	SendErr   error
	GrantErr  error
	DeleteErr error

	created   []CreatedChannel
	messages  []SentMessage
	grants    []Grant
	deletions []Deletion
}

// New returns an empty fake gateway.
func New() *FakeGateway {
	return &FakeGateway{}
}

func (f *FakeGateway) CreateChannel(ctx context.Context, location, name, topic string, overrides []transport.PermissionOverride) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CreateErr != nil {
		return "", f.CreateErr
	}
	f.nextChannel++
	id := fmt.Sprintf("chan-%d", f.nextChannel)
	f.created = append(f.created, CreatedChannel{
		ID:        id,
		Location:  location,
		Name:      name,
		Topic:     topic,
		Overrides: append([]transport.PermissionOverride(nil), overrides...),
	})
	return id, nil
}

func (f *FakeGateway) SendMessage(ctx context.Context, channelID string, msg transport.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SendErr != nil {
		return f.SendErr
	}
	f.messages = append(f.messages, SentMessage{ChannelID: channelID, Message: msg})
	return nil
}

func (f *FakeGateway) GrantRole(ctx context.Context, userID, roleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.GrantErr != nil {
		return f.GrantErr
	}
	f.grants = append(f.grants, Grant{UserID: userID, RoleID: roleID})
	return nil
}

func (f *FakeGateway) DeleteChannel(ctx context.Context, channelID, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	f.deletions = append(f.deletions, Deletion{ChannelID: channelID, Reason: reason})
	return nil
}

// Created returns a copy of all recorded channel creations.
func (f *FakeGateway) Created() []CreatedChannel {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]CreatedChannel(nil), f.created...)
}

// Messages returns a copy of all recorded messages.
func (f *FakeGateway) Messages() []SentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]SentMessage(nil), f.messages...)
}

// MessagesTo returns messages sent to the given channel.
func (f *FakeGateway) MessagesTo(channelID string) []SentMessage {
	var out []SentMessage
	for _, m := range f.Messages() {
		if m.ChannelID == channelID {
			out = append(out, m)
		}
	}
	return out
}

// Grants returns a copy of all recorded role grants.
func (f *FakeGateway) Grants() []Grant {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Grant(nil), f.grants...)
}

// Deletions returns a copy of all recorded channel deletions.
func (f *FakeGateway) Deletions() []Deletion {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Deletion(nil), f.deletions...)
}

// ContainsText reports whether needle appears anywhere in recorded
// messages. Used to assert justification text never reaches
// requester-visible output.
func (f *FakeGateway) ContainsText(needle string) bool {
	for _, m := range f.Messages() {
		if strings.Contains(m.Message.Content, needle) ||
			strings.Contains(m.Message.Title, needle) ||
			strings.Contains(m.Message.Body, needle) ||
			strings.Contains(m.Message.Footer, needle) {
			return true
		}
	}
	return false
}
