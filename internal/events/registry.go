package events

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"

	apperrors "github.com/allisson/classhub/internal/errors"
)

// Registry maps event type names to factories for their concrete types. It is
// an explicit, hand-authored table populated once at startup; nothing is
// discovered by scanning.
type Registry struct {
	factories map[string]func() Event
}

// NewRegistry creates a registry with every known event type registered.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]func() Event)}

	r.register(TypeUserRegistered, func() Event { return &UserRegistered{} })
	r.register(TypeGroupCreated, func() Event { return &GroupCreated{} })
	r.register(TypeGroupMemberAdded, func() Event { return &GroupMemberAdded{} })
	r.register(TypeCourseCreated, func() Event { return &CourseCreated{} })
	r.register(TypeChapterAdded, func() Event { return &ChapterAdded{} })
	r.register(TypeAnnouncementPublished, func() Event { return &AnnouncementPublished{} })
	r.register(TypeInvoicePaid, func() Event { return &InvoicePaid{} })

	return r
}

// register adds a factory for the given event type name.
func (r *Registry) register(eventType string, factory func() Event) {
	r.factories[eventType] = factory
}

// Types returns every registered event type name in sorted order.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.factories))
	for eventType := range r.factories {
		types = append(types, eventType)
	}
	sort.Strings(types)
	return types
}

// Known reports whether the event type name has a registry entry.
func (r *Registry) Known(eventType string) bool {
	_, ok := r.factories[eventType]
	return ok
}

// Materialize reconstructs a typed event from its persisted (type name,
// payload) form. Unknown event types are an error; the caller decides the
// retry policy for them.
func (r *Registry) Materialize(eventType string, payload []byte) (Event, error) {
	factory, ok := r.factories[eventType]
	if !ok {
		return nil, fmt.Errorf("unknown event type %q", eventType)
	}

	event := factory()
	if err := json.Unmarshal(payload, event); err != nil {
		return nil, apperrors.Wrap(err, fmt.Sprintf("failed to decode %s payload", eventType))
	}

	return event, nil
}

// Encode serializes an event into its persisted (type name, payload) form.
// The payload is always a JSON object; non-finite floats anywhere inside the
// event are replaced with null so serialization never fails at dispatch time.
func (r *Registry) Encode(event Event) (string, []byte, error) {
	eventType := event.EventType()
	if _, ok := r.factories[eventType]; !ok {
		return "", nil, fmt.Errorf("unknown event type %q", eventType)
	}

	payload, err := json.Marshal(event)
	if err != nil {
		// json.Marshal fails on NaN and infinities. Normalize them to null and
		// retry once before giving up.
		payload, err = json.Marshal(sanitizeValue(reflect.ValueOf(event)))
		if err != nil {
			return "", nil, apperrors.Wrap(err, fmt.Sprintf("failed to encode %s payload", eventType))
		}
	}

	return eventType, payload, nil
}

// sanitizeValue converts a value into plain maps, slices and primitives with
// non-finite floats replaced by nil. Types with a working custom JSON
// representation keep it.
func sanitizeValue(v reflect.Value) any {
	if !v.IsValid() {
		return nil
	}

	// Keep custom representations (uuid.UUID, time.Time) when they serialize.
	if v.CanInterface() {
		if m, ok := v.Interface().(json.Marshaler); ok {
			if raw, err := m.MarshalJSON(); err == nil {
				return json.RawMessage(raw)
			}
		}
	}

	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return nil
		}
		return sanitizeValue(v.Elem())
	case reflect.Float32, reflect.Float64:
		f := v.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		return f
	case reflect.Struct:
		out := make(map[string]any, v.NumField())
		t := v.Type()
		for i := 0; i < v.NumField(); i++ {
			field := t.Field(i)
			if !field.IsExported() {
				continue
			}
			name := field.Name
			if tag, ok := field.Tag.Lookup("json"); ok {
				tagName, _, _ := strings.Cut(tag, ",")
				if tagName == "-" {
					continue
				}
				if tagName != "" {
					name = tagName
				}
			}
			out[name] = sanitizeValue(v.Field(i))
		}
		return out
	case reflect.Map:
		out := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out[fmt.Sprint(iter.Key().Interface())] = sanitizeValue(iter.Value())
		}
		return out
	case reflect.Slice, reflect.Array:
		out := make([]any, v.Len())
		for i := 0; i < v.Len(); i++ {
			out[i] = sanitizeValue(v.Index(i))
		}
		return out
	default:
		if v.CanInterface() {
			return v.Interface()
		}
		return nil
	}
}
