package image

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/wippyai/cilweave/assembler"
	"github.com/wippyai/cilweave/cil"
	"github.com/wippyai/cilweave/errors"
	"github.com/wippyai/cilweave/metadata"
)

// encMode is canonical so an unchanged module encodes to the same bytes.
var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("image: failed to create CBOR enc mode: %v", err))
	}
	encMode = em
}

// Marshal encodes m. Bodies that have no encoded form yet are assembled.
func Marshal(m *metadata.Module) ([]byte, error) {
	rec := fileRecord{Magic: Magic, Version: Version, Name: m.Name}
	for _, ref := range m.References {
		rec.References = append(rec.References, ref.Name)
	}

	// Types first: assembling a body may add its local signature row.
	for _, t := range m.Types {
		tr, err := typeToRecord(m, t)
		if err != nil {
			return nil, err
		}
		rec.Types = append(rec.Types, tr)
	}

	for _, r := range m.TypeRefs {
		rec.TypeRefs = append(rec.TypeRefs, typeRefRecord{
			Token:     uint32(r.Token),
			Scope:     r.Scope,
			Namespace: r.Namespace,
			Name:      r.Name,
			ValueType: r.ValueType,
		})
	}
	for _, r := range m.MemberRefs {
		rec.MemberRefs = append(rec.MemberRefs, memberRefRecord{
			Token:     uint32(r.Token),
			Parent:    uint32(r.Parent),
			Name:      r.Name,
			Signature: signatureToRecord(r.Signature),
		})
	}
	for _, s := range m.Signatures {
		sr := sigRecord{Token: uint32(s.Token), Locals: tokensToRecord(s.Locals)}
		if s.Method != nil {
			sig := signatureToRecord(*s.Method)
			sr.Method = &sig
		}
		rec.Signatures = append(rec.Signatures, sr)
	}
	for _, s := range m.MethodSpecs {
		rec.MethodSpecs = append(rec.MethodSpecs, specRecord{Token: uint32(s.Token), Method: uint32(s.Method)})
	}
	for _, s := range m.TypeSpecs {
		rec.TypeSpecs = append(rec.TypeSpecs, typeSpecRecord{Token: uint32(s.Token), Signature: typeSigToRecord(s.Signature)})
	}

	data, err := encMode.Marshal(rec)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseIO, errors.KindInvalidData, err, "encode image")
	}
	return data, nil
}

func typeToRecord(m *metadata.Module, t *metadata.TypeDef) (typeRecord, error) {
	tr := typeRecord{
		Token:        uint32(t.Token),
		Namespace:    t.Namespace,
		Name:         t.Name,
		BaseRef:      uint32(t.BaseRef),
		ValueType:    t.ValueType,
		Interceptors: interceptorsToRecord(t.Interceptors),
	}
	if t.BaseType != nil {
		tr.Base = t.BaseType.FullName()
	}

	for _, md := range t.Methods {
		body, err := encodedBody(m, md)
		if err != nil {
			return tr, err
		}
		tr.Methods = append(tr.Methods, methodRecord{
			Token:        uint32(md.Token),
			Name:         md.Name,
			Flags:        uint16(md.Flags),
			Signature:    signatureToRecord(md.Signature),
			Body:         body,
			Interceptors: interceptorsToRecord(md.Interceptors),
			Generated:    md.Generated,
		})
	}

	for _, p := range t.Properties {
		pr := propertyRecord{
			Token:        uint32(p.Token),
			Name:         p.Name,
			Interceptors: interceptorsToRecord(p.Interceptors),
		}
		if p.Getter != nil {
			pr.Getter = uint32(p.Getter.Token)
		}
		if p.Setter != nil {
			pr.Setter = uint32(p.Setter.Token)
		}
		tr.Properties = append(tr.Properties, pr)
	}
	return tr, nil
}

// encodedBody returns the bytes stored for md, assembling the body when it
// was built in memory.
func encodedBody(m *metadata.Module, md *metadata.MethodDef) ([]byte, error) {
	if md.RawBody != nil || md.Body == nil {
		return md.RawBody, nil
	}
	body := md.Body
	if len(body.Variables) > 0 && body.LocalVarToken.IsNil() {
		types := make([]cil.Token, len(body.Variables))
		for i, v := range body.Variables {
			types[i] = v.Type
		}
		body.LocalVarToken = m.AddLocalSignature(types)
	}
	out, err := assembler.Assemble(body, m)
	if err != nil {
		return nil, errors.Weave(md.FullName(), err)
	}
	return out.Bytes, nil
}

func interceptorsToRecord(list []metadata.Interceptor) []interceptorRecord {
	var out []interceptorRecord
	for _, ic := range list {
		out = append(out, interceptorRecord{
			Type:      ic.Name(),
			Order:     ic.Order,
			AppliesTo: uint8(ic.AppliesTo),
		})
	}
	return out
}

func signatureToRecord(s metadata.MethodSignature) signatureRecord {
	out := signatureRecord{HasThis: s.HasThis, Return: typeSigToRecord(s.Return)}
	for _, p := range s.Params {
		out.Params = append(out.Params, typeSigToRecord(p))
	}
	return out
}

func typeSigToRecord(s metadata.TypeSig) typeSigRecord {
	return typeSigRecord{Kind: uint8(s.Kind), Type: uint32(s.Type), ByRef: s.ByRef}
}

func tokensToRecord(toks []cil.Token) []uint32 {
	if len(toks) == 0 {
		return nil
	}
	out := make([]uint32, len(toks))
	for i, t := range toks {
		out[i] = uint32(t)
	}
	return out
}
