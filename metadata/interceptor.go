package metadata

import "strings"

// AppliesTo selects the member kinds an interceptor targets.
type AppliesTo uint8

const (
	// AppliesUndefined applies the interceptor to the scope it is attached to.
	AppliesUndefined AppliesTo = 0
	AppliesMethod    AppliesTo = 1
	AppliesCtor      AppliesTo = 2
	AppliesGet       AppliesTo = 4
	AppliesSet       AppliesTo = 8
	AppliesProperty  AppliesTo = AppliesGet | AppliesSet
	AppliesAll       AppliesTo = AppliesMethod | AppliesCtor | AppliesGet | AppliesSet
)

// Has reports whether every bit of kind is set.
func (a AppliesTo) Has(kind AppliesTo) bool {
	return a&kind == kind
}

func (a AppliesTo) String() string {
	if a == AppliesUndefined {
		return "Undefined"
	}
	if a == AppliesAll {
		return "All"
	}
	var parts []string
	for _, bit := range []struct {
		v    AppliesTo
		name string
	}{
		{AppliesMethod, "Method"},
		{AppliesCtor, "Ctor"},
		{AppliesGet, "Get"},
		{AppliesSet, "Set"},
	} {
		if a&bit.v != 0 {
			parts = append(parts, bit.name)
		}
	}
	return strings.Join(parts, "|")
}

// Interceptor is an interceptor record attached to a type, method or
// property. Type supplies the Before hook and optionally After and
// Exception.
type Interceptor struct {
	Type      *TypeDef
	Order     int32
	AppliesTo AppliesTo
}

// Name returns the interceptor type's full name.
func (i Interceptor) Name() string {
	if i.Type == nil {
		return "<nil>"
	}
	return i.Type.FullName()
}

// AttributeProvider is implemented by every element interceptors can be
// attached to.
type AttributeProvider interface {
	DeclaredInterceptors() []Interceptor
}

// Hook names looked up on interceptor types.
const (
	HookBefore    = "Before"
	HookAfter     = "After"
	HookException = "Exception"
)
