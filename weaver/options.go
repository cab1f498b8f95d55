package weaver

// DefaultCloneSuffix separates a member's name from the hash in the name of
// its generated clone.
const DefaultCloneSuffix = "$woven$"

// Options controls how wrappers are synthesized.
type Options struct {
	// CloneSuffix replaces DefaultCloneSuffix when set.
	CloneSuffix string

	// RethrowAfterExceptionHook makes every catch clause rethrow once the
	// interceptor's Exception hook returns. By default a caught exception is
	// handled and the After hooks run.
	RethrowAfterExceptionHook bool
}

func (o Options) cloneSuffix() string {
	if o.CloneSuffix == "" {
		return DefaultCloneSuffix
	}
	return o.CloneSuffix
}
