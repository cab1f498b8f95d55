package image

import (
	"github.com/fxamacker/cbor/v2"

	"github.com/wippyai/cilweave/cil"
	"github.com/wippyai/cilweave/errors"
	"github.com/wippyai/cilweave/metadata"
)

// ResolveFunc returns the module a reference names.
type ResolveFunc func(name string) (*metadata.Module, error)

// Unmarshal decodes an image and every method body in it. Referenced
// modules are obtained from resolve before interceptor and base types are
// looked up, so both may live in a reference.
func Unmarshal(data []byte, resolve ResolveFunc) (*metadata.Module, error) {
	var rec fileRecord
	if err := cbor.Unmarshal(data, &rec); err != nil {
		return nil, errors.Wrap(errors.PhaseIO, errors.KindInvalidData, err, "decode image")
	}
	if rec.Magic != Magic {
		return nil, errors.New(errors.PhaseIO, errors.KindInvalidData).
			Detail("not an image: magic %q", rec.Magic).Build()
	}
	if rec.Version != Version {
		return nil, errors.New(errors.PhaseIO, errors.KindUnsupported).
			Value(rec.Version).
			Detail("image version %d is not supported", rec.Version).Build()
	}

	m := metadata.NewModule(rec.Name)
	for _, name := range rec.References {
		if resolve == nil {
			return nil, errors.NotFound(errors.PhaseIO, "referenced module", name)
		}
		ref, err := resolve(name)
		if err != nil {
			return nil, err
		}
		m.References = append(m.References, ref)
	}

	addRows(m, &rec)

	types := make([]*metadata.TypeDef, len(rec.Types))
	for i, tr := range rec.Types {
		types[i] = addType(m, tr)
	}

	for i, tr := range rec.Types {
		if err := linkType(m, types[i], tr); err != nil {
			return nil, err
		}
	}

	for _, md := range m.Methods() {
		if err := decodeBody(m, md); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func addRows(m *metadata.Module, rec *fileRecord) {
	for _, r := range rec.TypeRefs {
		m.AddTypeRefRow(&metadata.TypeRef{
			Token:     cil.Token(r.Token),
			Scope:     r.Scope,
			Namespace: r.Namespace,
			Name:      r.Name,
			ValueType: r.ValueType,
		})
	}
	for _, r := range rec.MemberRefs {
		m.AddMemberRefRow(&metadata.MemberRef{
			Token:     cil.Token(r.Token),
			Parent:    cil.Token(r.Parent),
			Name:      r.Name,
			Signature: signatureFromRecord(r.Signature),
		})
	}
	for _, s := range rec.Signatures {
		row := &metadata.StandAloneSig{Token: cil.Token(s.Token), Locals: tokensFromRecord(s.Locals)}
		if s.Method != nil {
			sig := signatureFromRecord(*s.Method)
			row.Method = &sig
		}
		m.AddSignatureRow(row)
	}
	for _, s := range rec.MethodSpecs {
		m.AddMethodSpecRow(&metadata.MethodSpec{Token: cil.Token(s.Token), Method: cil.Token(s.Method)})
	}
	for _, s := range rec.TypeSpecs {
		m.AddTypeSpecRow(&metadata.TypeSpec{Token: cil.Token(s.Token), Signature: typeSigFromRecord(s.Signature)})
	}
}

func addType(m *metadata.Module, tr typeRecord) *metadata.TypeDef {
	t := &metadata.TypeDef{
		Token:     cil.Token(tr.Token),
		Namespace: tr.Namespace,
		Name:      tr.Name,
		BaseRef:   cil.Token(tr.BaseRef),
		ValueType: tr.ValueType,
	}
	for _, mr := range tr.Methods {
		t.Methods = append(t.Methods, &metadata.MethodDef{
			Token:     cil.Token(mr.Token),
			Name:      mr.Name,
			Flags:     metadata.MethodAttributes(mr.Flags),
			Signature: signatureFromRecord(mr.Signature),
			RawBody:   mr.Body,
			Generated: mr.Generated,
		})
	}
	m.AddType(t)

	for _, pr := range tr.Properties {
		t.AddProperty(&metadata.PropertyDef{
			Token:  cil.Token(pr.Token),
			Name:   pr.Name,
			Getter: methodByToken(t, pr.Getter),
			Setter: methodByToken(t, pr.Setter),
		})
	}
	return t
}

func methodByToken(t *metadata.TypeDef, tok uint32) *metadata.MethodDef {
	if tok == 0 {
		return nil
	}
	for _, md := range t.Methods {
		if uint32(md.Token) == tok {
			return md
		}
	}
	return nil
}

// linkType resolves the names a type record refers to: its base type and
// every interceptor type.
func linkType(m *metadata.Module, t *metadata.TypeDef, tr typeRecord) error {
	if tr.Base != "" {
		if t.BaseType = m.FindType(tr.Base); t.BaseType == nil {
			return errors.NotFound(errors.PhaseIO, "base type of "+t.FullName(), tr.Base)
		}
	}

	var err error
	if t.Interceptors, err = interceptorsFromRecord(m, tr.Interceptors); err != nil {
		return err
	}
	for i, mr := range tr.Methods {
		if t.Methods[i].Interceptors, err = interceptorsFromRecord(m, mr.Interceptors); err != nil {
			return err
		}
	}
	for i, pr := range tr.Properties {
		if t.Properties[i].Interceptors, err = interceptorsFromRecord(m, pr.Interceptors); err != nil {
			return err
		}
	}
	return nil
}

func interceptorsFromRecord(m *metadata.Module, recs []interceptorRecord) ([]metadata.Interceptor, error) {
	if len(recs) == 0 {
		return nil, nil
	}
	out := make([]metadata.Interceptor, len(recs))
	for i, r := range recs {
		typ := m.FindType(r.Type)
		if typ == nil {
			return nil, errors.NotFound(errors.PhaseIO, "interceptor type", r.Type)
		}
		out[i] = metadata.Interceptor{
			Type:      typ,
			Order:     r.Order,
			AppliesTo: metadata.AppliesTo(r.AppliesTo),
		}
	}
	return out, nil
}

// decodeBody turns md's stored bytes into an editable body whose locals are
// typed from the module's local signature.
func decodeBody(m *metadata.Module, md *metadata.MethodDef) error {
	if md.RawBody == nil {
		return nil
	}
	body, n, err := cil.DecodeBody(md.RawBody)
	if err != nil {
		if e, ok := err.(*errors.Error); ok && e.Member == "" {
			e.Member = md.FullName()
		}
		return err
	}
	md.RawBody = md.RawBody[:n]
	body.Owner = md.Token

	if !body.LocalVarToken.IsNil() {
		locals, ok := m.LocalTypes(body.LocalVarToken)
		if !ok {
			return errors.New(errors.PhaseDecode, errors.KindNotFound).
				Member(md.FullName()).
				Detail("local signature %s not found", body.LocalVarToken).Build()
		}
		for _, typ := range locals {
			body.AddVariable(typ)
		}
	}
	md.Body = body
	return nil
}

func signatureFromRecord(r signatureRecord) metadata.MethodSignature {
	out := metadata.MethodSignature{HasThis: r.HasThis, Return: typeSigFromRecord(r.Return)}
	for _, p := range r.Params {
		out.Params = append(out.Params, typeSigFromRecord(p))
	}
	return out
}

func typeSigFromRecord(r typeSigRecord) metadata.TypeSig {
	return metadata.TypeSig{Kind: metadata.ElementType(r.Kind), Type: cil.Token(r.Type), ByRef: r.ByRef}
}

func tokensFromRecord(toks []uint32) []cil.Token {
	if len(toks) == 0 {
		return nil
	}
	out := make([]cil.Token, len(toks))
	for i, t := range toks {
		out[i] = cil.Token(t)
	}
	return out
}
