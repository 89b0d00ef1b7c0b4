// Package pass embeds the JSON schemas for the documents stored in a pass
// archive.
package pass

import _ "embed"

//go:embed pass.schema.json
var PassSchema []byte

//go:embed manifest.schema.json
var ManifestSchema []byte

//go:embed personalization.schema.json
var PersonalizationSchema []byte
