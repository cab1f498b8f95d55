package image

// Magic identifies an image file.
const Magic = "CILW"

// Version is the record layout version written by this package.
const Version = 1

// Ext is the file extension of module images.
const Ext = ".cwm"

type fileRecord struct {
	Magic       string            `cbor:"1,keyasint"`
	Version     uint8             `cbor:"2,keyasint"`
	Name        string            `cbor:"3,keyasint"`
	References  []string          `cbor:"4,keyasint,omitempty"`
	TypeRefs    []typeRefRecord   `cbor:"5,keyasint,omitempty"`
	MemberRefs  []memberRefRecord `cbor:"6,keyasint,omitempty"`
	Signatures  []sigRecord       `cbor:"7,keyasint,omitempty"`
	MethodSpecs []specRecord      `cbor:"8,keyasint,omitempty"`
	Types       []typeRecord      `cbor:"9,keyasint,omitempty"`
	TypeSpecs   []typeSpecRecord  `cbor:"10,keyasint,omitempty"`
}

type typeRefRecord struct {
	Token     uint32 `cbor:"1,keyasint"`
	Scope     string `cbor:"2,keyasint"`
	Namespace string `cbor:"3,keyasint,omitempty"`
	Name      string `cbor:"4,keyasint"`
	ValueType bool   `cbor:"5,keyasint,omitempty"`
}

type memberRefRecord struct {
	Token     uint32          `cbor:"1,keyasint"`
	Parent    uint32          `cbor:"2,keyasint"`
	Name      string          `cbor:"3,keyasint"`
	Signature signatureRecord `cbor:"4,keyasint"`
}

// sigRecord is a stand-alone signature: either a call site signature or a
// list of local variable types.
type sigRecord struct {
	Token  uint32           `cbor:"1,keyasint"`
	Method *signatureRecord `cbor:"2,keyasint,omitempty"`
	Locals []uint32         `cbor:"3,keyasint,omitempty"`
}

type specRecord struct {
	Token  uint32 `cbor:"1,keyasint"`
	Method uint32 `cbor:"2,keyasint"`
}

type typeSpecRecord struct {
	Token     uint32        `cbor:"1,keyasint"`
	Signature typeSigRecord `cbor:"2,keyasint"`
}

type typeRecord struct {
	Token        uint32              `cbor:"1,keyasint"`
	Namespace    string              `cbor:"2,keyasint,omitempty"`
	Name         string              `cbor:"3,keyasint"`
	Base         string              `cbor:"4,keyasint,omitempty"`
	BaseRef      uint32              `cbor:"5,keyasint,omitempty"`
	ValueType    bool                `cbor:"6,keyasint,omitempty"`
	Methods      []methodRecord      `cbor:"7,keyasint,omitempty"`
	Properties   []propertyRecord    `cbor:"8,keyasint,omitempty"`
	Interceptors []interceptorRecord `cbor:"9,keyasint,omitempty"`
}

type methodRecord struct {
	Token        uint32              `cbor:"1,keyasint"`
	Name         string              `cbor:"2,keyasint"`
	Flags        uint16              `cbor:"3,keyasint"`
	Signature    signatureRecord     `cbor:"4,keyasint"`
	Body         []byte              `cbor:"5,keyasint,omitempty"`
	Interceptors []interceptorRecord `cbor:"6,keyasint,omitempty"`
	Generated    bool                `cbor:"7,keyasint,omitempty"`
}

type propertyRecord struct {
	Token        uint32              `cbor:"1,keyasint"`
	Name         string              `cbor:"2,keyasint"`
	Getter       uint32              `cbor:"3,keyasint,omitempty"`
	Setter       uint32              `cbor:"4,keyasint,omitempty"`
	Interceptors []interceptorRecord `cbor:"5,keyasint,omitempty"`
}

// interceptorRecord names the interceptor type by full name; it is looked
// up in the module and then in its references.
type interceptorRecord struct {
	Type      string `cbor:"1,keyasint"`
	Order     int32  `cbor:"2,keyasint"`
	AppliesTo uint8  `cbor:"3,keyasint"`
}

type signatureRecord struct {
	HasThis bool            `cbor:"1,keyasint,omitempty"`
	Return  typeSigRecord   `cbor:"2,keyasint"`
	Params  []typeSigRecord `cbor:"3,keyasint,omitempty"`
}

type typeSigRecord struct {
	Kind  uint8  `cbor:"1,keyasint"`
	Type  uint32 `cbor:"2,keyasint,omitempty"`
	ByRef bool   `cbor:"3,keyasint,omitempty"`
}
