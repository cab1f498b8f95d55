// Package image stores modules on disk.
//
// An image is a canonical CBOR document holding one module: its types with
// their methods, properties and interceptor records, the reference rows
// method bodies use, and every method body in encoded form. Bodies are
// decoded on load and stored as last assembled on save, so members that
// were not woven are written back byte for byte.
//
//	m, err := image.Load("App.cwm", "lib")
//	if err != nil {
//	    return err
//	}
//	// weave m
//	return image.Replace("App.cwm", m)
package image
