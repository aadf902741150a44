package bulk

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/phrazzld/taskflow-api/internal/domain"
)

// Field names accepted in task payloads. Anything else is rejected.
const (
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldCompleted   = "completed"
	FieldPriority    = "priority"
	FieldDueDate     = "due_date"
)

var allowedFields = map[string]struct{}{
	FieldTitle:       {},
	FieldDescription: {},
	FieldCompleted:   {},
	FieldPriority:    {},
	FieldDueDate:     {},
}

// TaskPatch is a validated set of field changes. Nil fields are left alone.
type TaskPatch struct {
	Title        *string
	Description  *string
	Completed    *bool
	Priority     *domain.Priority
	DueDate      *time.Time
	ClearDueDate bool
}

// ParsePatch validates a decoded JSON object against the field allow-list.
// Every error wraps ErrItemInvalid.
func ParsePatch(fields map[string]any) (TaskPatch, error) {
	var p TaskPatch
	if len(fields) == 0 {
		return p, fmt.Errorf("%w: no fields to update", ErrItemInvalid)
	}

	for _, name := range sortedKeys(fields) {
		if _, ok := allowedFields[name]; !ok {
			return TaskPatch{}, fmt.Errorf("%w: field %q cannot be set", ErrItemInvalid, name)
		}
		raw := fields[name]
		switch name {
		case FieldTitle:
			s, ok := raw.(string)
			if !ok {
				return TaskPatch{}, typeError(name, "a string")
			}
			s = strings.TrimSpace(s)
			if s == "" {
				return TaskPatch{}, fmt.Errorf("%w: %w", ErrItemInvalid, domain.ErrEmptyTitle)
			}
			if len([]rune(s)) > domain.MaxTitleLength {
				return TaskPatch{}, fmt.Errorf("%w: %w", ErrItemInvalid, domain.ErrTitleTooLong)
			}
			p.Title = &s
		case FieldDescription:
			var s string
			if raw != nil {
				v, ok := raw.(string)
				if !ok {
					return TaskPatch{}, typeError(name, "a string")
				}
				s = v
			}
			p.Description = &s
		case FieldCompleted:
			b, ok := raw.(bool)
			if !ok {
				return TaskPatch{}, typeError(name, "a boolean")
			}
			p.Completed = &b
		case FieldPriority:
			s, ok := raw.(string)
			if !ok {
				return TaskPatch{}, typeError(name, "a string")
			}
			pr, err := domain.ParsePriority(s)
			if err != nil {
				return TaskPatch{}, fmt.Errorf("%w: %w", ErrItemInvalid, err)
			}
			p.Priority = &pr
		case FieldDueDate:
			switch v := raw.(type) {
			case nil:
				p.ClearDueDate = true
			case time.Time:
				d := v.UTC()
				p.DueDate = &d
			case string:
				d, err := time.Parse(time.RFC3339, v)
				if err != nil {
					return TaskPatch{}, typeError(name, "an RFC 3339 timestamp")
				}
				d = d.UTC()
				p.DueDate = &d
			default:
				return TaskPatch{}, typeError(name, "an RFC 3339 timestamp")
			}
		}
	}
	return p, nil
}

// Apply writes the patch onto t.
func (p TaskPatch) Apply(t *domain.Task) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.ClearDueDate {
		t.DueDate = nil
	}
	if p.DueDate != nil {
		d := *p.DueDate
		t.DueDate = &d
	}
}

// Fields lists the names the patch touches, for logging.
func (p TaskPatch) Fields() []string {
	var out []string
	if p.Title != nil {
		out = append(out, FieldTitle)
	}
	if p.Description != nil {
		out = append(out, FieldDescription)
	}
	if p.Completed != nil {
		out = append(out, FieldCompleted)
	}
	if p.Priority != nil {
		out = append(out, FieldPriority)
	}
	if p.DueDate != nil || p.ClearDueDate {
		out = append(out, FieldDueDate)
	}
	return out
}

func typeError(field, want string) error {
	return fmt.Errorf("%w: %s must be %s", ErrItemInvalid, field, want)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
