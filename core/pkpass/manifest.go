package pkpass

import (
	"crypto/sha1" // #nosec G505 -- the wallet manifest format is defined over SHA-1.
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/davidahmann/pkpass/core/jcs"
	schemapass "github.com/davidahmann/pkpass/core/schema/v1/pass"
	"github.com/davidahmann/pkpass/core/schema/validate"
)

const (
	PassFile            = "pass.json"
	ManifestFile        = "manifest.json"
	SignatureFile       = "signature"
	PersonalizationFile = "personalization.json"
)

// Manifest maps archive paths to lowercase hex SHA-1 digests of their bytes.
// manifest.json and signature are never listed.
type Manifest map[string]string

func HashEntry(data []byte) string {
	// #nosec G401 -- required digest for manifest.json.
	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:])
}

func (m Manifest) Add(name string, data []byte) string {
	digest := HashEntry(data)
	m[name] = digest
	return digest
}

func (m Manifest) Paths() []string {
	paths := make([]string, 0, len(m))
	for name := range m {
		paths = append(paths, name)
	}
	sort.Strings(paths)
	return paths
}

func (m Manifest) Marshal() ([]byte, error) {
	return jcs.Marshal(map[string]string(m))
}

func ParseManifest(data []byte) (Manifest, error) {
	if err := validate.ValidateJSON(schemapass.ManifestSchema, data); err != nil {
		return nil, fmt.Errorf("manifest.json: %w", err)
	}
	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parse manifest.json: %w", err)
	}
	return manifest, nil
}
