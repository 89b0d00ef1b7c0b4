package validate

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	schemapass "github.com/davidahmann/pkpass/core/schema/v1/pass"
)

const validPass = `{
  "formatVersion": 1,
  "passTypeIdentifier": "pass.it.example",
  "serialNumber": "0001",
  "teamIdentifier": "ABC123",
  "organizationName": "Surface Lines",
  "description": "Surface Lines Pass",
  "barcodes": [{"format": "PKBarcodeFormatCode128", "message": "HELLO", "messageEncoding": "iso-8859-1"}],
  "boardingPass": {
    "transitType": "PKTransitTypeTrain",
    "headerFields": [{"key": "gate", "label": "GATE", "value": "23"}]
  }
}`

func TestValidatePassSchema(t *testing.T) {
	if err := ValidateJSON(schemapass.PassSchema, []byte(validPass)); err != nil {
		t.Fatalf("expected valid pass, got error: %v", err)
	}

	cases := []struct {
		name  string
		input string
	}{
		{name: "missing serial", input: strings.Replace(validPass, `"serialNumber": "0001",`, "", 1)},
		{name: "empty team", input: strings.Replace(validPass, `"ABC123"`, `""`, 1)},
		{name: "wrong version", input: strings.Replace(validPass, `"formatVersion": 1`, `"formatVersion": 3`, 1)},
		{name: "no style", input: `{"formatVersion":1,"passTypeIdentifier":"p","serialNumber":"1","teamIdentifier":"t"}`},
		{name: "two styles", input: `{"formatVersion":1,"passTypeIdentifier":"p","serialNumber":"1","teamIdentifier":"t","coupon":{},"generic":{}}`},
		{name: "bad barcode", input: strings.Replace(validPass, "PKBarcodeFormatCode128", "PKBarcodeFormatEAN", 1)},
		{name: "missing transit", input: strings.Replace(validPass, `"transitType": "PKTransitTypeTrain",`, "", 1)},
		{name: "object value", input: strings.Replace(validPass, `"value": "23"`, `"value": {"x": 1}`, 1)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateJSON(schemapass.PassSchema, []byte(tc.input))
			if err == nil {
				t.Fatalf("expected schema failure")
			}
			if !strings.HasPrefix(err.Error(), "schema validation failed") {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateManifestSchema(t *testing.T) {
	valid := `{"icon.png":"0123456789abcdef0123456789abcdef01234567","pass.json":"89abcdef0123456789abcdef0123456789abcdef"}`
	if err := ValidateJSON(schemapass.ManifestSchema, []byte(valid)); err != nil {
		t.Fatalf("expected valid manifest: %v", err)
	}
	invalid := []string{
		`{"icon.png":"0123456789abcdef0123456789abcdef01234567"}`,
		`{"pass.json":"ABCDEF0123456789abcdef0123456789abcdef01"}`,
		`{"pass.json":"89abcdef0123456789abcdef0123456789abcdef","signature":"89abcdef0123456789abcdef0123456789abcdef"}`,
		`{"pass.json":"abc"}`,
	}
	for _, input := range invalid {
		if err := ValidateJSON(schemapass.ManifestSchema, []byte(input)); err == nil {
			t.Fatalf("expected manifest failure for %s", input)
		}
	}
}

func TestValidatePersonalizationFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "personalization.json")
	content := `{"requiredPersonalizationFields":["PKPassPersonalizationFieldName"],"description":"Join"}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	data, err := ValidateJSONFile(schemapass.PersonalizationSchema, path)
	if err != nil {
		t.Fatalf("expected valid personalization: %v", err)
	}
	if string(data) != content {
		t.Fatalf("unexpected bytes: %s", data)
	}

	_, err = ValidateJSONFile(schemapass.PersonalizationSchema, filepath.Join(dir, "missing.json"))
	var pathErr *fs.PathError
	if !errors.As(err, &pathErr) {
		t.Fatalf("expected path error, got %v", err)
	}

	invalid := filepath.Join(dir, "invalid.json")
	if err := os.WriteFile(invalid, []byte(`{"description":"Join"}`), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if _, err := ValidateJSONFile(schemapass.PersonalizationSchema, invalid); err == nil || errors.As(err, &pathErr) {
		t.Fatalf("expected schema error, got %v", err)
	}
}

func TestValidateRejectsBrokenSchema(t *testing.T) {
	if err := ValidateJSON([]byte(`{"type":`), []byte(`{}`)); err == nil {
		t.Fatalf("expected compile error")
	}
}
