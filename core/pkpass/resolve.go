package pkpass

import (
	"encoding/json"
	"errors"
	"io/fs"

	"github.com/davidahmann/pkpass/core/pass"
	schemapass "github.com/davidahmann/pkpass/core/schema/v1/pass"
	"github.com/davidahmann/pkpass/core/schema/validate"
)

// ResolvePass picks the pass content for a build. An explicit pass always
// wins over pass.json at the root of fsys.
func ResolvePass(explicit *pass.Pass, fsys fs.FS) (pass.Pass, error) {
	if explicit != nil {
		return *explicit, nil
	}
	if fsys == nil {
		return pass.Pass{}, failure(PassContentNotFound, nil)
	}
	data, err := fs.ReadFile(fsys, PassFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return pass.Pass{}, failure(PassContentNotFound, nil)
		}
		return pass.Pass{}, newError(CantReadEntry, PassFile, err)
	}
	return ParsePassFile(data)
}

// ParsePassFile checks pass.json against the pass schema and decodes it.
func ParsePassFile(data []byte) (pass.Pass, error) {
	var probe any
	if err := json.Unmarshal(data, &probe); err != nil {
		return pass.Pass{}, failureDetail(CantParsePassFile, err)
	}
	if err := validate.ValidateJSON(schemapass.PassSchema, data); err != nil {
		return pass.Pass{}, failureDetail(CantParsePassFile, err)
	}
	parsed, err := pass.Parse(data)
	if err != nil {
		return pass.Pass{}, failureDetail(CantParsePassFile, err)
	}
	return parsed, nil
}
