package ir

import (
	"fmt"
	"strings"
)

// Type is an IR type with a byte size on RV32.
type Type interface {
	Size() int
	String() string
}

// Int32Type is the only scalar type.
type Int32Type struct{}

// UnitType is the type of values that produce nothing.
type UnitType struct{}

// ArrayType is [Elem, Len].
type ArrayType struct {
	Elem Type
	Len  int
}

// PointerType is *Elem.
type PointerType struct {
	Elem Type
}

// FuncType is (Params...): Ret.
type FuncType struct {
	Params []Type
	Ret    Type
}

var (
	Int32 Type = Int32Type{}
	Unit  Type = UnitType{}
)

func (Int32Type) Size() int     { return 4 }
func (UnitType) Size() int      { return 0 }
func (t ArrayType) Size() int   { return t.Elem.Size() * t.Len }
func (PointerType) Size() int   { return 4 }
func (FuncType) Size() int      { return 4 }
func (Int32Type) String() string { return "i32" }
func (UnitType) String() string  { return "unit" }
func (t ArrayType) String() string {
	return fmt.Sprintf("[%s, %d]", t.Elem, t.Len)
}
func (t PointerType) String() string { return "*" + t.Elem.String() }
func (t FuncType) String() string {
	params := make([]string, len(t.Params))
	for i, p := range t.Params {
		params[i] = p.String()
	}
	s := "(" + strings.Join(params, ", ") + ")"
	if _, ok := t.Ret.(UnitType); !ok && t.Ret != nil {
		s += ": " + t.Ret.String()
	}
	return s
}

// PointerTo returns *t.
func PointerTo(t Type) Type {
	return PointerType{Elem: t}
}

// ArrayOf returns [t, n].
func ArrayOf(t Type, n int) Type {
	return ArrayType{Elem: t, Len: n}
}

// Deref returns the pointee of a pointer type.
func Deref(t Type) (Type, bool) {
	p, ok := t.(PointerType)
	if !ok {
		return nil, false
	}
	return p.Elem, true
}

// ElemOfArrayPtr returns T for *[T, N].
func ElemOfArrayPtr(t Type) (Type, bool) {
	base, ok := Deref(t)
	if !ok {
		return nil, false
	}
	arr, ok := base.(ArrayType)
	if !ok {
		return nil, false
	}
	return arr.Elem, true
}
