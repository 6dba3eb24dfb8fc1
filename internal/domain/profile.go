package domain

import "fmt"

// Field names an editable profile field.
type Field int

const (
	FieldName Field = iota
	FieldEmail
	FieldPhone
)

// Fields lists every editable profile field in display order.
func Fields() []Field {
	return []Field{FieldName, FieldEmail, FieldPhone}
}

func (f Field) String() string {
	switch f {
	case FieldName:
		return "name"
	case FieldEmail:
		return "email"
	case FieldPhone:
		return "phone"
	default:
		return fmt.Sprintf("field(%d)", int(f))
	}
}

// ParseField maps a field name to a Field.
func ParseField(s string) (Field, error) {
	for _, f := range Fields() {
		if f.String() == s {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown profile field %q", s)
}

// EditMode is the per-field edit state.
type EditMode int

const (
	ModeViewing EditMode = iota
	ModeEditing
	ModeSaving
)

func (m EditMode) String() string {
	switch m {
	case ModeViewing:
		return "viewing"
	case ModeEditing:
		return "editing"
	case ModeSaving:
		return "saving"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}
