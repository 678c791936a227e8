// Package events implements the in-process domain event bus. Mutating
// operations publish typed events; subscribers (aggregation triggers,
// notification triggers, mail) are registered explicitly at startup so the
// fan-out is visible and testable in isolation.
package events

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"

	"quill/internal/middleware"
)

// Event is a fact about a completed state change.
type Event interface {
	EventType() string
}

// Event type names.
const (
	TypeUserRegistered = "user.registered"
	TypePostCreated    = "post.created"
	TypePostDeleted    = "post.deleted"
	TypeRatingCreated  = "rating.created"
	TypeRatingUpdated  = "rating.updated"
	TypeRatingDeleted  = "rating.deleted"
	TypeFollowCreated  = "follow.created"
	TypeFollowDeleted  = "follow.deleted"
	TypeCommentCreated = "comment.created"
	TypeTagCreated     = "tag.created"
)

// UserRegistered fires after a new account and its profile/metrics rows exist.
type UserRegistered struct {
	UserID uint
	Email  string
}

func (UserRegistered) EventType() string { return TypeUserRegistered }

// PostCreated fires after a post row is persisted.
type PostCreated struct {
	PostID   uint
	AuthorID uint
}

func (PostCreated) EventType() string { return TypePostCreated }

// PostDeleted fires after a post row is removed; the author's aggregates
// still reference it until recomputed.
type PostDeleted struct {
	PostID   uint
	AuthorID uint
}

func (PostDeleted) EventType() string { return TypePostDeleted }

// RatingCreated fires after a new rating row is persisted.
type RatingCreated struct {
	PostID   uint
	AuthorID uint // post author
	RaterID  uint
	Value    int
}

func (RatingCreated) EventType() string { return TypeRatingCreated }

// RatingUpdated fires after an existing rating's value changed in place.
type RatingUpdated struct {
	PostID   uint
	AuthorID uint
	RaterID  uint
	Value    int
}

func (RatingUpdated) EventType() string { return TypeRatingUpdated }

// RatingDeleted fires after a rating row is removed.
type RatingDeleted struct {
	PostID   uint
	AuthorID uint
	RaterID  uint
}

func (RatingDeleted) EventType() string { return TypeRatingDeleted }

// FollowCreated fires after a follow edge is persisted and counts recomputed.
type FollowCreated struct {
	FollowerID uint
	FollowedID uint
}

func (FollowCreated) EventType() string { return TypeFollowCreated }

// FollowDeleted fires after a follow edge is removed and counts recomputed.
type FollowDeleted struct {
	FollowerID uint
	FollowedID uint
}

func (FollowDeleted) EventType() string { return TypeFollowDeleted }

// CommentCreated fires after a comment row is persisted.
type CommentCreated struct {
	CommentID   uint
	PostID      uint
	PostAuthor  uint
	CommenterID uint
}

func (CommentCreated) EventType() string { return TypeCommentCreated }

// TagCreated fires after a profile tag row is persisted.
type TagCreated struct {
	TaggedUserID uint
	TaggerID     uint
	TargetType   string
	TargetID     uint
}

func (TagCreated) EventType() string { return TypeTagCreated }

// Handler reacts to a published event. Handlers run synchronously on the
// publisher's goroutine and should enqueue expensive work instead of doing it.
type Handler func(ctx context.Context, e Event)

// Bus fans events out to subscribers. Safe for concurrent use.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[string][]Handler)}
}

// Subscribe registers a handler for the given event type.
func (b *Bus) Subscribe(eventType string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], h)
}

// Publish delivers the event to every subscriber of its type. A panicking
// handler is recovered and logged; it never propagates to the publisher or
// stops delivery to the remaining subscribers.
func (b *Bus) Publish(ctx context.Context, e Event) {
	b.mu.RLock()
	handlers := b.handlers[e.EventType()]
	b.mu.RUnlock()

	for _, h := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					middleware.Logger.ErrorContext(ctx, "event handler panic",
						slog.String("event", e.EventType()),
						slog.Any("panic", r),
						slog.String("stack", string(debug.Stack())),
					)
				}
			}()
			h(ctx, e)
		}()
	}
}
