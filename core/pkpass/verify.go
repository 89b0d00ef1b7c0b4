package pkpass

import (
	"crypto/x509"
	"fmt"
	"sort"
	"strings"

	"github.com/davidahmann/pkpass/core/pass"
	"github.com/davidahmann/pkpass/core/sign"
	"github.com/davidahmann/pkpass/core/zipx"
)

type VerifyOptions struct {
	// Roots enables certificate chain checks. Without it only the signature
	// over manifest.json is checked.
	Roots            *x509.CertPool
	RequireSignature bool
}

type HashMismatch struct {
	Path     string `json:"path"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
}

type VerifyResult struct {
	SerialNumber       string         `json:"serial_number,omitempty"`
	PassTypeIdentifier string         `json:"pass_type_identifier,omitempty"`
	FilesChecked       int            `json:"files_checked"`
	MissingFiles       []string       `json:"missing_files,omitempty"`
	HashMismatches     []HashMismatch `json:"hash_mismatches,omitempty"`
	UndeclaredFiles    []string       `json:"undeclared_files,omitempty"`
	SignatureStatus    string         `json:"signature_status"`
	SignatureErrors    []string       `json:"signature_errors,omitempty"`
	Signer             string         `json:"signer,omitempty"`
}

func (r VerifyResult) OK() bool {
	return len(r.MissingFiles) == 0 &&
		len(r.HashMismatches) == 0 &&
		len(r.UndeclaredFiles) == 0 &&
		len(r.SignatureErrors) == 0 &&
		r.SignatureStatus != "failed"
}

type InspectResult struct {
	SerialNumber       string   `json:"serial_number"`
	PassTypeIdentifier string   `json:"pass_type_identifier"`
	TeamIdentifier     string   `json:"team_identifier"`
	OrganizationName   string   `json:"organization_name,omitempty"`
	Description        string   `json:"description,omitempty"`
	Style              string   `json:"style"`
	Entries            []string `json:"entries"`
	Manifest           Manifest `json:"manifest,omitempty"`
	Personalized       bool     `json:"personalized"`
}

// Verify re-hashes every manifest entry of a .pkpass archive and checks the
// detached signature over the manifest.json bytes.
func Verify(archiveBytes []byte, opts VerifyOptions) (VerifyResult, error) {
	archive, err := zipx.ReadArchive(archiveBytes)
	if err != nil {
		return VerifyResult{}, err
	}
	if !archive.Has(ManifestFile) {
		return VerifyResult{}, fmt.Errorf("missing %s", ManifestFile)
	}
	manifestBytes, err := archive.ReadFile(ManifestFile)
	if err != nil {
		return VerifyResult{}, fmt.Errorf("read %s: %w", ManifestFile, err)
	}
	manifest, err := ParseManifest(manifestBytes)
	if err != nil {
		return VerifyResult{}, err
	}

	result := VerifyResult{
		FilesChecked:    len(manifest),
		SignatureStatus: "missing",
	}
	for _, name := range manifest.Paths() {
		if !archive.Has(name) {
			result.MissingFiles = append(result.MissingFiles, name)
			continue
		}
		data, err := archive.ReadFile(name)
		if err != nil {
			return VerifyResult{}, fmt.Errorf("read %s: %w", name, err)
		}
		actual := HashEntry(data)
		if !strings.EqualFold(actual, manifest[name]) {
			result.HashMismatches = append(result.HashMismatches, HashMismatch{
				Path:     name,
				Expected: manifest[name],
				Actual:   actual,
			})
		}
	}
	for _, name := range archive.Names() {
		if name == ManifestFile || name == SignatureFile {
			continue
		}
		if _, declared := manifest[name]; !declared {
			result.UndeclaredFiles = append(result.UndeclaredFiles, name)
		}
	}

	if archive.Has(PassFile) {
		if data, err := archive.ReadFile(PassFile); err == nil {
			if parsed, err := pass.Parse(data); err == nil {
				result.SerialNumber = parsed.SerialNumber()
				result.PassTypeIdentifier = parsed.PassTypeIdentifier()
			}
		}
	}

	if !archive.Has(SignatureFile) {
		if opts.RequireSignature {
			result.SignatureErrors = append(result.SignatureErrors, "archive has no signature")
		}
	} else {
		signature, err := archive.ReadFile(SignatureFile)
		if err != nil {
			return VerifyResult{}, fmt.Errorf("read %s: %w", SignatureFile, err)
		}
		signer, err := sign.VerifyDetached(signature, manifestBytes, opts.Roots)
		if err != nil {
			result.SignatureStatus = "failed"
			result.SignatureErrors = append(result.SignatureErrors, err.Error())
		} else {
			result.SignatureStatus = "verified"
			result.Signer = signer.Subject.String()
		}
	}

	sort.Strings(result.MissingFiles)
	sort.Strings(result.UndeclaredFiles)
	sort.Slice(result.HashMismatches, func(leftIndex, rightIndex int) bool {
		return result.HashMismatches[leftIndex].Path < result.HashMismatches[rightIndex].Path
	})
	return result, nil
}

// Inspect decodes pass.json and lists the archive without checking signatures.
func Inspect(archiveBytes []byte) (InspectResult, error) {
	archive, err := zipx.ReadArchive(archiveBytes)
	if err != nil {
		return InspectResult{}, err
	}
	data, err := archive.ReadFile(PassFile)
	if err != nil {
		return InspectResult{}, fmt.Errorf("read %s: %w", PassFile, err)
	}
	parsed, err := ParsePassFile(data)
	if err != nil {
		return InspectResult{}, err
	}
	result := InspectResult{
		SerialNumber:       parsed.SerialNumber(),
		PassTypeIdentifier: parsed.PassTypeIdentifier(),
		TeamIdentifier:     parsed.TeamIdentifier(),
		OrganizationName:   parsed.OrganizationName(),
		Description:        parsed.Description(),
		Entries:            archive.Names(),
		Personalized:       archive.Has(PersonalizationFile),
	}
	if style := parsed.Style(); style != nil {
		result.Style = string(style.Kind())
	}
	if archive.Has(ManifestFile) {
		manifestBytes, err := archive.ReadFile(ManifestFile)
		if err != nil {
			return InspectResult{}, fmt.Errorf("read %s: %w", ManifestFile, err)
		}
		manifest, err := ParseManifest(manifestBytes)
		if err != nil {
			return InspectResult{}, err
		}
		result.Manifest = manifest
	}
	return result, nil
}
