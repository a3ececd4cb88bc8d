// Package events defines the domain events produced across the platform, the
// registry that materializes them from their persisted form, and the
// in-process bus that delivers them to handlers.
package events

import (
	"github.com/google/uuid"
)

// Event type names. Every event kind produced anywhere in the platform must
// have a constant here and a registry entry in NewRegistry.
const (
	TypeUserRegistered        = "user.registered"
	TypeGroupCreated          = "group.created"
	TypeGroupMemberAdded      = "group.member_added"
	TypeCourseCreated         = "course.created"
	TypeChapterAdded          = "chapter.added"
	TypeAnnouncementPublished = "announcement.published"
	TypeInvoicePaid           = "invoice.paid"
)

// Event is a domain event that can be persisted to the outbox and published
// to the bus. The wire format of each event is its json struct tags; encoding
// and decoding are explicit per type, never inferred from payload shape.
// Events are always published as pointers, matching what Registry.Materialize
// returns, so handlers see the same concrete type on every delivery path.
type Event interface {
	EventType() string
}

// UserRegistered is emitted when a new user account is created.
type UserRegistered struct {
	UserID   uuid.UUID `json:"user_id"`
	TenantID uuid.UUID `json:"tenant_id"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
}

// EventType implements Event.
func (UserRegistered) EventType() string { return TypeUserRegistered }

// GroupCreated is emitted when a new group is created.
type GroupCreated struct {
	GroupID     uuid.UUID `json:"group_id"`
	TenantID    uuid.UUID `json:"tenant_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
}

// EventType implements Event.
func (GroupCreated) EventType() string { return TypeGroupCreated }

// GroupMemberAdded is emitted when a user joins a group.
type GroupMemberAdded struct {
	GroupID  uuid.UUID `json:"group_id"`
	UserID   uuid.UUID `json:"user_id"`
	TenantID uuid.UUID `json:"tenant_id"`
}

// EventType implements Event.
func (GroupMemberAdded) EventType() string { return TypeGroupMemberAdded }

// CourseCreated is emitted when a new course is created.
type CourseCreated struct {
	CourseID uuid.UUID `json:"course_id"`
	TenantID uuid.UUID `json:"tenant_id"`
	Title    string    `json:"title"`
}

// EventType implements Event.
func (CourseCreated) EventType() string { return TypeCourseCreated }

// ChapterAdded is emitted when a chapter is added to a course.
type ChapterAdded struct {
	CourseID  uuid.UUID `json:"course_id"`
	ChapterID uuid.UUID `json:"chapter_id"`
	TenantID  uuid.UUID `json:"tenant_id"`
	Title     string    `json:"title"`
	Position  int       `json:"position"`
}

// EventType implements Event.
func (ChapterAdded) EventType() string { return TypeChapterAdded }

// AnnouncementPublished is emitted when an announcement goes live.
type AnnouncementPublished struct {
	AnnouncementID uuid.UUID `json:"announcement_id"`
	TenantID       uuid.UUID `json:"tenant_id"`
	Title          string    `json:"title"`
}

// EventType implements Event.
func (AnnouncementPublished) EventType() string { return TypeAnnouncementPublished }

// InvoicePaid is emitted when a billing invoice is settled.
type InvoicePaid struct {
	InvoiceID     uuid.UUID `json:"invoice_id"`
	TenantID      uuid.UUID `json:"tenant_id"`
	AmountInCents int64     `json:"amount_in_cents"`
	Currency      string    `json:"currency"`
}

// EventType implements Event.
func (InvoicePaid) EventType() string { return TypeInvoicePaid }
