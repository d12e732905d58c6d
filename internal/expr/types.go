package expr

import (
	"math/rand/v2"
)

// Type is the static result type of an expression or function parameter.
type Type int

const (
	TypeAny Type = iota
	TypeBool
	TypeInt
	TypeFloat
	TypeDecimal
	TypeString
	TypeBytes
	TypeDate
	TypeTime
	TypeTimestamp
	TypeUUID
	TypeList
)

var typeNames = [...]string{
	TypeAny:       "any",
	TypeBool:      "bool",
	TypeInt:       "int",
	TypeFloat:     "float",
	TypeDecimal:   "decimal",
	TypeString:    "string",
	TypeBytes:     "bytes",
	TypeDate:      "date",
	TypeTime:      "time",
	TypeTimestamp: "timestamp",
	TypeUUID:      "uuid",
	TypeList:      "list",
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "unknown"
}

// AssignableTo reports whether a value of type t may be used where want is
// expected. Any is assignable both ways since it is only known at runtime.
func (t Type) AssignableTo(want Type) bool {
	switch {
	case want == TypeAny, t == TypeAny, t == want:
		return true
	case want == TypeFloat:
		return t == TypeInt
	case want == TypeDecimal:
		return t == TypeInt || t == TypeFloat
	default:
		return false
	}
}

// Env is the evaluation environment shared by the functions of one program.
type Env struct {
	Rand *rand.Rand
}

// NewEnv seeds a PCG source; seed 0 draws a random seed.
func NewEnv(seed uint64) *Env {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &Env{Rand: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}
