package weaver

import (
	"encoding/hex"

	"github.com/gofrs/uuid"

	"github.com/wippyai/cilweave/metadata"
)

var cloneNamespace = uuid.NewV5(uuid.NamespaceURL, "https://github.com/wippyai/cilweave/clone")

// CloneName returns the name of md's generated clone. The name is stable
// for a given member and signature so rebuilding an image yields the same
// member names.
func CloneName(md *metadata.MethodDef, suffix string) string {
	if suffix == "" {
		suffix = DefaultCloneSuffix
	}
	id := uuid.NewV5(cloneNamespace, md.FullName()+" "+md.Signature.String())
	return md.Name + suffix + hex.EncodeToString(id.Bytes()[:4])
}
