package selene

import (
	"fmt"
	"strconv"
)

// ValueType enumerates the value kinds the compiler can observe.
type ValueType int

const (
	TypeNil ValueType = iota
	TypeBool
	TypeNumber
	TypeString
	TypeClosure
)

func (t ValueType) String() string {
	switch t {
	case TypeNil:
		return "nil"
	case TypeBool:
		return "boolean"
	case TypeNumber:
		return "number"
	case TypeString:
		return "string"
	case TypeClosure:
		return "function"
	}
	return "invalid"
}

// Value is a runtime value as seen by the compiler: entries in a
// prototype's constant pool and on the state's value stack.
type Value interface {
	Type() ValueType
	String() string
}

type Nil struct{}

func (Nil) Type() ValueType { return TypeNil }
func (Nil) String() string  { return "nil" }

type Bool bool

func (Bool) Type() ValueType  { return TypeBool }
func (b Bool) String() string { return strconv.FormatBool(bool(b)) }

type Number float64

func (Number) Type() ValueType { return TypeNumber }
func (n Number) String() string {
	return strconv.FormatFloat(float64(n), 'g', 14, 64)
}

type String string

func (String) Type() ValueType  { return TypeString }
func (s String) String() string { return string(s) }

// Closure pairs a prototype with its captured environment. The
// compiler only allocates it; capture happens when the VM executes a
// closure instruction.
type Closure struct {
	Proto *Proto
}

func (c *Closure) Type() ValueType { return TypeClosure }
func (c *Closure) String() string  { return fmt.Sprintf("function: %p", c) }
