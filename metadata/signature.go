package metadata

import (
	"fmt"
	"strings"

	"github.com/wippyai/cilweave/cil"
)

// ElementType is the signature element type code.
type ElementType byte

const (
	ElemVoid      ElementType = 0x01
	ElemBoolean   ElementType = 0x02
	ElemChar      ElementType = 0x03
	ElemI1        ElementType = 0x04
	ElemU1        ElementType = 0x05
	ElemI2        ElementType = 0x06
	ElemU2        ElementType = 0x07
	ElemI4        ElementType = 0x08
	ElemU4        ElementType = 0x09
	ElemI8        ElementType = 0x0A
	ElemU8        ElementType = 0x0B
	ElemR4        ElementType = 0x0C
	ElemR8        ElementType = 0x0D
	ElemString    ElementType = 0x0E
	ElemValueType ElementType = 0x11
	ElemClass     ElementType = 0x12
	ElemVar       ElementType = 0x13
	ElemGeneric   ElementType = 0x15
	ElemI         ElementType = 0x18
	ElemU         ElementType = 0x19
	ElemObject    ElementType = 0x1C
	ElemSZArray   ElementType = 0x1D
	ElemMVar      ElementType = 0x1E
)

var primitiveNames = map[ElementType]string{
	ElemVoid:    "Void",
	ElemBoolean: "Boolean",
	ElemChar:    "Char",
	ElemI1:      "SByte",
	ElemU1:      "Byte",
	ElemI2:      "Int16",
	ElemU2:      "UInt16",
	ElemI4:      "Int32",
	ElemU4:      "UInt32",
	ElemI8:      "Int64",
	ElemU8:      "UInt64",
	ElemR4:      "Single",
	ElemR8:      "Double",
	ElemString:  "String",
	ElemI:       "IntPtr",
	ElemU:       "UIntPtr",
	ElemObject:  "Object",
}

// IsPrimitive reports whether the element type names a System primitive
// without a separate type token.
func (e ElementType) IsPrimitive() bool {
	_, ok := primitiveNames[e]
	return ok
}

func (e ElementType) String() string {
	if name, ok := primitiveNames[e]; ok {
		return name
	}
	switch e {
	case ElemValueType:
		return "valuetype"
	case ElemClass:
		return "class"
	case ElemVar:
		return "!T"
	case ElemMVar:
		return "!!T"
	case ElemGeneric:
		return "generic"
	case ElemSZArray:
		return "[]"
	}
	return fmt.Sprintf("ElementType(0x%02x)", byte(e))
}

// TypeSig is one parameter or return type of a method signature. Type holds
// the TypeDef, TypeRef or TypeSpec token for non-primitive element types; for
// ElemSZArray it is the element type and for ElemGeneric the generic type.
type TypeSig struct {
	Type  cil.Token
	Kind  ElementType
	ByRef bool
}

// Sig returns the signature of a primitive element type.
func Sig(kind ElementType) TypeSig {
	return TypeSig{Kind: kind}
}

// ClassSig returns the signature of a reference type.
func ClassSig(tok cil.Token) TypeSig {
	return TypeSig{Kind: ElemClass, Type: tok}
}

// ValueSig returns the signature of a value type.
func ValueSig(tok cil.Token) TypeSig {
	return TypeSig{Kind: ElemValueType, Type: tok}
}

// IsVoid reports whether the type is void.
func (s TypeSig) IsVoid() bool {
	return s.Kind == ElemVoid && !s.ByRef
}

// NeedsBox reports whether values of the type must be boxed to be stored as
// object. Generic parameters and instantiations are boxed through their
// TypeSpec since box is a no-op for reference type instantiations.
func (s TypeSig) NeedsBox() bool {
	if s.ByRef {
		return false
	}
	switch s.Kind {
	case ElemVoid, ElemString, ElemObject, ElemClass, ElemSZArray:
		return false
	}
	return true
}

func (s TypeSig) String() string {
	var b strings.Builder
	b.WriteString(s.Kind.String())
	if !s.Type.IsNil() {
		b.WriteByte(' ')
		b.WriteString(s.Type.String())
	}
	if s.ByRef {
		b.WriteByte('&')
	}
	return b.String()
}

// MethodSignature is a method's calling convention, return and parameter
// types. Params excludes the implicit this.
type MethodSignature struct {
	Return  TypeSig
	Params  []TypeSig
	HasThis bool
}

// NewSignature builds a signature.
func NewSignature(hasThis bool, ret TypeSig, params ...TypeSig) MethodSignature {
	return MethodSignature{HasThis: hasThis, Return: ret, Params: params}
}

// ArgCount returns the number of argument slots including this.
func (s MethodSignature) ArgCount() int {
	if s.HasThis {
		return len(s.Params) + 1
	}
	return len(s.Params)
}

// Clone returns a copy that does not share the parameter slice.
func (s MethodSignature) Clone() MethodSignature {
	s.Params = append([]TypeSig(nil), s.Params...)
	return s
}

func (s MethodSignature) String() string {
	parts := make([]string, len(s.Params))
	for i, p := range s.Params {
		parts[i] = p.String()
	}
	prefix := ""
	if s.HasThis {
		prefix = "instance "
	}
	return fmt.Sprintf("%s%s (%s)", prefix, s.Return, strings.Join(parts, ", "))
}
