package value

// Type is the discriminant of a Value. Ordinals are fixed: collaborators
// encode them directly and they must never be reordered.
type Type uint8

const (
	TypeAbsent  Type = 0
	TypeText    Type = 1
	TypeInteger Type = 2
	TypeFloat   Type = 3
	TypeBoolean Type = 4
)

// MaxType is the highest valid discriminant.
const MaxType = TypeBoolean

// String returns the lower-case name of the type
func (t Type) String() string {
	switch t {
	case TypeAbsent:
		return "absent"
	case TypeText:
		return "text"
	case TypeInteger:
		return "integer"
	case TypeFloat:
		return "float"
	case TypeBoolean:
		return "boolean"
	default:
		return "unknown"
	}
}

// Valid reports whether t is one of the five defined discriminants.
func (t Type) Valid() bool {
	return t <= MaxType
}
