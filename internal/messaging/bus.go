// Package messaging is the request/response bus between the page engine and
// the background context. Messages cross the bus as JSON clones, so neither
// side can observe the other's values.
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Action discriminates messages.
type Action string

const (
	ActionTranslate       Action = "translate"
	ActionSavePhrase      Action = "savePhrase"
	ActionToggleExtension Action = "toggleExtension"
	ActionSettingsUpdated Action = "settingsUpdated"
	ActionPhraseAdded     Action = "phraseAdded"
)

var (
	ErrUnknownAction = errors.New("unknown action")
	ErrHandlerPanic  = errors.New("handler panicked")
)

// Message is a request or broadcast.
type Message struct {
	ID      string          `json:"id"`
	Action  Action          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewMessage builds a message with a fresh id and an encoded payload. A nil
// payload is allowed.
func NewMessage(action Action, payload any) (Message, error) {
	msg := Message{ID: uuid.NewString(), Action: action}
	if payload == nil {
		return msg, nil
	}
	data, err := sonic.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("encode %s payload: %w", action, err)
	}
	msg.Payload = data
	return msg, nil
}

// Decode unmarshals the payload into v.
func (m Message) Decode(v any) error {
	if len(m.Payload) == 0 {
		return fmt.Errorf("%s: empty payload", m.Action)
	}
	if err := sonic.Unmarshal(m.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", m.Action, err)
	}
	return nil
}

// Response answers exactly one request.
type Response struct {
	ID      string          `json:"id"`
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Decode unmarshals the response data into v.
func (r Response) Decode(v any) error {
	if !r.Success {
		return errors.New(r.Error)
	}
	if len(r.Data) == 0 {
		return nil
	}
	return sonic.Unmarshal(r.Data, v)
}

// Handler serves one action. The returned value becomes the response data.
type Handler func(ctx context.Context, msg Message) (any, error)

// Bus routes requests to handlers and broadcasts to subscribers.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Action]Handler
	subs     map[uint64]func(Message)
	nextSub  uint64
	logger   *zap.Logger
}

// NewBus creates an empty bus.
func NewBus(logger *zap.Logger) *Bus {
	return &Bus{
		handlers: make(map[Action]Handler),
		subs:     make(map[uint64]func(Message)),
		logger:   logger.Named("bus"),
	}
}

// Handle registers h for action, replacing any earlier handler.
func (b *Bus) Handle(action Action, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[action] = h
}

// Request delivers a clone of msg to its handler and returns exactly one
// response, whether the handler succeeds, fails, panics or is missing.
func (b *Bus) Request(ctx context.Context, msg Message) (resp Response) {
	resp = Response{ID: msg.ID}

	b.mu.RLock()
	h, ok := b.handlers[msg.Action]
	b.mu.RUnlock()
	if !ok {
		resp.Error = fmt.Sprintf("%v: %s", ErrUnknownAction, msg.Action)
		return resp
	}

	in, err := clone(msg)
	if err != nil {
		resp.Error = err.Error()
		return resp
	}

	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Handler panicked",
				zap.String("action", string(msg.Action)),
				zap.Any("panic", r))
			resp = Response{ID: msg.ID, Error: ErrHandlerPanic.Error()}
		}
	}()

	data, err := h(ctx, in)
	if err != nil {
		b.logger.Warn("Request failed",
			zap.String("action", string(msg.Action)),
			zap.Error(err))
		resp.Error = err.Error()
		return resp
	}

	resp.Success = true
	if data != nil {
		encoded, err := sonic.Marshal(data)
		if err != nil {
			return Response{ID: msg.ID, Error: fmt.Sprintf("encode response: %v", err)}
		}
		resp.Data = encoded
	}
	return resp
}

// Subscribe registers fn for broadcasts and returns an unsubscribe func.
func (b *Bus) Subscribe(fn func(Message)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextSub++
	id := b.nextSub
	b.subs[id] = fn
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
	}
}

// Broadcast delivers a clone of msg to every subscriber.
func (b *Bus) Broadcast(msg Message) {
	b.mu.RLock()
	subs := make([]func(Message), 0, len(b.subs))
	for _, fn := range b.subs {
		subs = append(subs, fn)
	}
	b.mu.RUnlock()

	for _, fn := range subs {
		in, err := clone(msg)
		if err != nil {
			b.logger.Error("Failed to clone broadcast", zap.Error(err))
			return
		}
		fn(in)
	}
}

func clone(msg Message) (Message, error) {
	data, err := sonic.Marshal(msg)
	if err != nil {
		return Message{}, fmt.Errorf("clone message: %w", err)
	}
	var out Message
	if err := sonic.Unmarshal(data, &out); err != nil {
		return Message{}, fmt.Errorf("clone message: %w", err)
	}
	return out, nil
}
