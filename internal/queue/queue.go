// Package queue carries post-commit attendance events from the API to the
// archive worker.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Message represents work to be processed.
type Message struct {
	Type string `json:"type"`
	Body []byte `json:"body"`
}

// Queue is the abstraction over different backends.
type Queue interface {
	Publish(ctx context.Context, msg Message) error
	Consume(ctx context.Context) (<-chan Message, error)
}

// TypeAttendanceRecorded is published once per committed attendance record.
const TypeAttendanceRecorded = "attendance.recorded"

var (
	// ErrUnexpectedType is returned when decoding a message of another type.
	ErrUnexpectedType = errors.New("unexpected message type")
	// ErrFull is returned by InMemory.Publish when the buffer has no room.
	ErrFull = errors.New("queue full")
)

// RecordedEvent describes a freshly committed attendance record and the
// image that produced it.
type RecordedEvent struct {
	CaptureID  string `json:"capture_id"`
	RollNumber string `json:"roll_number"`
	Date       string `json:"date"`
	Image      []byte `json:"image,omitempty"`
}

// NewRecordedMessage wraps evt for publishing.
func NewRecordedMessage(evt RecordedEvent) (Message, error) {
	body, err := json.Marshal(evt)
	if err != nil {
		return Message{}, fmt.Errorf("encode recorded event: %w", err)
	}
	return Message{Type: TypeAttendanceRecorded, Body: body}, nil
}

// DecodeRecorded unwraps a message produced by NewRecordedMessage.
func DecodeRecorded(msg Message) (RecordedEvent, error) {
	var evt RecordedEvent
	if msg.Type != TypeAttendanceRecorded {
		return evt, fmt.Errorf("%w: %q", ErrUnexpectedType, msg.Type)
	}
	if err := json.Unmarshal(msg.Body, &evt); err != nil {
		return evt, fmt.Errorf("decode recorded event: %w", err)
	}
	if evt.CaptureID == "" {
		return evt, errors.New("decode recorded event: missing capture id")
	}
	return evt, nil
}

// InMemory is a minimal channel-backed queue for dev/testing.
type InMemory struct {
	ch chan Message
}

// NewInMemory creates a bounded in-memory queue.
func NewInMemory(size int) *InMemory {
	return &InMemory{ch: make(chan Message, size)}
}

// Publish enqueues a message without waiting for a consumer.
func (q *InMemory) Publish(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case q.ch <- msg:
		return nil
	default:
		return ErrFull
	}
}

// Consume returns a channel for workers. It is closed when ctx ends.
func (q *InMemory) Consume(ctx context.Context) (<-chan Message, error) {
	out := make(chan Message)
	go func() {
		defer close(out)
		for {
			select {
			case msg := <-q.ch:
				select {
				case out <- msg:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Ping always succeeds.
func (q *InMemory) Ping(context.Context) error { return nil }

func encode(msg Message) (string, error) {
	b, err := json.Marshal(msg)
	return string(b), err
}

func decode(s string) (Message, error) {
	var msg Message
	if err := json.Unmarshal([]byte(s), &msg); err != nil {
		return Message{}, fmt.Errorf("decode message: %w", err)
	}
	return msg, nil
}
