package pkpass

import (
	"errors"

	coreerrors "github.com/davidahmann/pkpass/core/errors"
	"github.com/davidahmann/pkpass/core/sign"
)

type Kind string

const (
	CantReadTempDir        Kind = "cant_read_temp_dir"
	CantReadEntry          Kind = "cant_read_entry"
	CantParsePassFile      Kind = "cant_parse_pass_file"
	PassContentNotFound    Kind = "pass_content_not_found"
	CantCreateTempDir      Kind = "cant_create_temp_dir"
	CantCopySourceToTemp   Kind = "cant_copy_source_to_temp"
	CantSerializePass      Kind = "cant_serialize_pass"
	CantWritePassFile      Kind = "cant_write_pass_file"
	CantCalculateHashes    Kind = "cant_calculate_hashes"
	CantCreateManifestFile Kind = "cant_create_manifest_file"
	CantSignManifest       Kind = "cant_sign_manifest"
)

// PassCreateError reports why a build stopped. Every build failure is one of
// these and none of them are retryable.
type PassCreateError struct {
	Kind   Kind
	Detail string
	Err    error
}

func (e *PassCreateError) Error() string {
	var text string
	switch e.Kind {
	case CantReadTempDir:
		text = "Can't read source directory"
	case CantReadEntry:
		text = "Can't read " + e.Detail
	case CantParsePassFile:
		text = "pass.json invalid: " + e.Detail
	case PassContentNotFound:
		text = "Please, provide pass.json or an explicit Pass"
	case CantCreateTempDir:
		text = "Can't create staging directory. Check rights"
	case CantCopySourceToTemp:
		text = "Can't copy source files to output"
	case CantSerializePass:
		text = "Can't serialize pass.json"
	case CantWritePassFile:
		text = "Can't write pass.json " + e.Detail
	case CantCalculateHashes:
		text = "Can't calculate hashes for source files"
	case CantCreateManifestFile:
		text = "Can't create manifest file"
	case CantSignManifest:
		text = "signing error: " + e.Detail
	default:
		text = string(e.Kind)
	}
	return "PassCreateError: " + text
}

func (e *PassCreateError) Unwrap() error {
	return e.Err
}

// KindOf returns the build failure kind carried by err, if any.
func KindOf(err error) (Kind, bool) {
	var createErr *PassCreateError
	if errors.As(err, &createErr) {
		return createErr.Kind, true
	}
	return "", false
}

func newError(kind Kind, detail string, cause error) error {
	createErr := &PassCreateError{Kind: kind, Detail: detail, Err: cause}
	category, hint := classify(kind, cause)
	return coreerrors.Wrap(createErr, category, string(kind), hint, false)
}

func failure(kind Kind, cause error) error {
	return newError(kind, "", cause)
}

func failureDetail(kind Kind, cause error) error {
	detail := ""
	if cause != nil {
		detail = cause.Error()
	}
	return newError(kind, detail, cause)
}

func classify(kind Kind, cause error) (coreerrors.Category, string) {
	switch kind {
	case CantParsePassFile:
		return coreerrors.CategoryInvalidInput, "fix pass.json so it matches the pass schema"
	case PassContentNotFound:
		return coreerrors.CategoryInvalidInput, "add pass.json to the source directory or pass an explicit Pass"
	case CantSerializePass:
		return coreerrors.CategoryInvalidInput, "check the pass for values that cannot be encoded as JSON"
	case CantSignManifest:
		if errors.Is(cause, sign.ErrMissingIntermediate) {
			return coreerrors.CategoryDependencyMissing, "provide the intermediate authority certificate"
		}
		return coreerrors.CategoryInternalFailure, "check the signing certificate and private key"
	case CantCreateManifestFile:
		return coreerrors.CategoryInternalFailure, ""
	default:
		return coreerrors.CategoryIOFailure, "check source and output paths and permissions"
	}
}
