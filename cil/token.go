package cil

import "fmt"

// Token is a metadata token: the table id in the high byte, the 1-based row
// id in the low 24 bits.
type Token uint32

// TableID identifies the metadata table a token refers to.
type TableID byte

// Metadata tables referenced from method bodies.
const (
	TableModule        TableID = 0x00
	TableTypeRef       TableID = 0x01
	TableTypeDef       TableID = 0x02
	TableField         TableID = 0x04
	TableMethodDef     TableID = 0x06
	TableParam         TableID = 0x08
	TableMemberRef     TableID = 0x0A
	TableStandAloneSig TableID = 0x11
	TableProperty      TableID = 0x17
	TableTypeSpec      TableID = 0x1B
	TableMethodSpec    TableID = 0x2B
	TableString        TableID = 0x70
)

const ridMask = 0x00FFFFFF

// NewToken builds a token from a table and row id.
func NewToken(table TableID, rid uint32) Token {
	return Token(uint32(table)<<24 | rid&ridMask)
}

// Table returns the table id.
func (t Token) Table() TableID {
	return TableID(t >> 24)
}

// RID returns the row id.
func (t Token) RID() uint32 {
	return uint32(t) & ridMask
}

// IsNil reports whether the token has no row.
func (t Token) IsNil() bool {
	return t.RID() == 0
}

func (t Token) String() string {
	return fmt.Sprintf("(%08x)", uint32(t))
}

func (id TableID) String() string {
	switch id {
	case TableModule:
		return "Module"
	case TableTypeRef:
		return "TypeRef"
	case TableTypeDef:
		return "TypeDef"
	case TableField:
		return "Field"
	case TableMethodDef:
		return "MethodDef"
	case TableParam:
		return "Param"
	case TableMemberRef:
		return "MemberRef"
	case TableStandAloneSig:
		return "StandAloneSig"
	case TableProperty:
		return "Property"
	case TableTypeSpec:
		return "TypeSpec"
	case TableMethodSpec:
		return "MethodSpec"
	case TableString:
		return "String"
	default:
		return fmt.Sprintf("Table(0x%02x)", byte(id))
	}
}
