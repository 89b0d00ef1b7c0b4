package doctor

import (
	"crypto/x509"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/davidahmann/pkpass/core/sign"
	"github.com/davidahmann/pkpass/internal/testutil"
)

func TestRunDevWorkspaceWarns(t *testing.T) {
	sourceDir := exampleSource(t)
	result := Run(Options{
		SourceDir:        sourceDir,
		OutputDir:        t.TempDir(),
		ProducerVersion:  "test",
		CredentialConfig: sign.CredentialConfig{Mode: sign.ModeDev},
	})

	if result.Status != statusWarn {
		t.Fatalf("expected warn status, got: %s (%s)", result.Status, result.Summary)
	}
	if result.NonFixable {
		t.Fatalf("expected fixable result")
	}
	if len(result.Checks) != 5 {
		t.Fatalf("unexpected checks count: %d", len(result.Checks))
	}
	for name, status := range map[string]string{
		"source_dir":  statusPass,
		"pass_json":   statusPass,
		"icon":        statusPass,
		"output_dir":  statusPass,
		"credentials": statusWarn,
	} {
		if !checkStatus(result.Checks, name, status) {
			t.Fatalf("expected %s=%s in %#v", name, status, result.Checks)
		}
	}
}

func TestRunMissingSourceFails(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing")
	result := Run(Options{
		SourceDir:        missing,
		OutputDir:        t.TempDir(),
		CredentialConfig: sign.CredentialConfig{Mode: sign.ModeDev},
	})
	if !result.Failed() {
		t.Fatalf("expected failure, got %s", result.Status)
	}
	if !checkStatus(result.Checks, "source_dir", statusFail) {
		t.Fatalf("expected source_dir fail check")
	}
	if !checkStatus(result.Checks, "pass_json", statusWarn) {
		t.Fatalf("expected pass_json warn check")
	}
	if len(result.FixCommands) == 0 {
		t.Fatalf("expected fix commands")
	}
}

func TestRunInvalidPassFails(t *testing.T) {
	sourceDir := t.TempDir()
	testutil.WriteFile(t, filepath.Join(sourceDir, "pass.json"), []byte(`{"formatVersion":1}`))
	testutil.WriteFile(t, filepath.Join(sourceDir, "icon.png"), []byte("icon"))

	result := Run(Options{
		SourceDir:        sourceDir,
		OutputDir:        t.TempDir(),
		CredentialConfig: sign.CredentialConfig{Mode: sign.ModeDev},
	})
	if !checkStatus(result.Checks, "pass_json", statusFail) {
		t.Fatalf("expected pass_json fail check: %#v", result.Checks)
	}
}

func TestRunExplicitPassPath(t *testing.T) {
	sourceDir := t.TempDir()
	passPath := filepath.Join(t.TempDir(), "explicit.json")
	testutil.WriteFile(t, passPath, examplePassJSON(t))

	result := Run(Options{
		SourceDir:        sourceDir,
		OutputDir:        t.TempDir(),
		PassPath:         passPath,
		CredentialConfig: sign.CredentialConfig{Mode: sign.ModeDev},
	})
	if !checkStatus(result.Checks, "pass_json", statusPass) {
		t.Fatalf("expected pass_json pass check: %#v", result.Checks)
	}
	if !checkStatus(result.Checks, "icon", statusWarn) {
		t.Fatalf("expected icon warn check")
	}
}

func TestRunOutputDirChecks(t *testing.T) {
	sourceDir := exampleSource(t)
	missing := filepath.Join(t.TempDir(), "out")
	result := Run(Options{
		SourceDir:        sourceDir,
		OutputDir:        missing,
		CredentialConfig: sign.CredentialConfig{Mode: sign.ModeDev},
	})
	if !checkStatus(result.Checks, "output_dir", statusWarn) {
		t.Fatalf("expected output_dir warn check")
	}
	if len(result.FixCommands) != 1 || result.FixCommands[0] != "mkdir -p '"+missing+"'" {
		t.Fatalf("unexpected fix commands: %#v", result.FixCommands)
	}

	file := filepath.Join(t.TempDir(), "file")
	testutil.WriteFile(t, file, []byte("x"))
	result = Run(Options{
		SourceDir:        sourceDir,
		OutputDir:        file,
		CredentialConfig: sign.CredentialConfig{Mode: sign.ModeDev},
	})
	if !checkStatus(result.Checks, "output_dir", statusFail) {
		t.Fatalf("expected output_dir fail check")
	}
}

func TestRunProdCredentials(t *testing.T) {
	sourceDir := exampleSource(t)
	cfg := writeProdCredentials(t)

	result := Run(Options{
		SourceDir:        sourceDir,
		OutputDir:        t.TempDir(),
		CredentialConfig: cfg,
	})
	for name, status := range map[string]string{
		"credentials":          statusPass,
		"certificate_expiry":   statusWarn,
		"intermediate":         statusPass,
		"pass_type_identifier": statusWarn,
	} {
		if !checkStatus(result.Checks, name, status) {
			t.Fatalf("expected %s=%s in %#v", name, status, result.Checks)
		}
	}
	if result.Status != statusWarn {
		t.Fatalf("expected warn status, got %s", result.Status)
	}
}

func TestRunProdMissingIntermediate(t *testing.T) {
	cfg := writeProdCredentials(t)
	cfg.IntermediatePath = ""

	result := Run(Options{
		SourceDir:        exampleSource(t),
		OutputDir:        t.TempDir(),
		CredentialConfig: cfg,
	})
	if !result.Failed() {
		t.Fatalf("expected failure, got %s", result.Status)
	}
	if !checkStatus(result.Checks, "credentials", statusFail) {
		t.Fatalf("expected credentials fail check")
	}
	if len(result.FixCommands) != 1 {
		t.Fatalf("unexpected fix commands: %#v", result.FixCommands)
	}
}

func TestRunProdWrongIntermediate(t *testing.T) {
	cfg := writeProdCredentials(t)
	other, err := sign.GenerateDevCredentials()
	if err != nil {
		t.Fatalf("generate credentials: %v", err)
	}
	cfg.IntermediatePath = filepath.Join(t.TempDir(), "other.cer")
	testutil.WriteFile(t, cfg.IntermediatePath, other.Intermediates[0].Raw)

	result := Run(Options{
		SourceDir:        exampleSource(t),
		OutputDir:        t.TempDir(),
		CredentialConfig: cfg,
	})
	if !checkStatus(result.Checks, "intermediate", statusFail) {
		t.Fatalf("expected intermediate fail check: %#v", result.Checks)
	}
}

func TestCheckExpiry(t *testing.T) {
	notBefore := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	cert := &x509.Certificate{NotBefore: notBefore, NotAfter: notBefore.AddDate(1, 0, 0)}
	tests := []struct {
		name       string
		now        time.Time
		status     string
		nonFixable bool
	}{
		{name: "expired", now: cert.NotAfter.Add(time.Hour), status: statusFail, nonFixable: true},
		{name: "not_yet_valid", now: cert.NotBefore.Add(-time.Hour), status: statusFail},
		{name: "expiring", now: cert.NotAfter.Add(-time.Hour), status: statusWarn},
		{name: "valid", now: notBefore.AddDate(0, 6, 0), status: statusPass},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			check := checkExpiry(cert, tc.now)
			if check.Status != tc.status || check.NonFixable != tc.nonFixable {
				t.Fatalf("unexpected check: %#v", check)
			}
		})
	}
}

func TestCheckPassTypeIdentifier(t *testing.T) {
	cert := testutil.DevCredentials(t).Certificate
	if check := checkPassTypeIdentifier(cert, "pass.dev.pkpass"); check.Status != statusPass {
		t.Fatalf("expected match, got %#v", check)
	}
	if check := checkPassTypeIdentifier(cert, "pass.other"); check.Status != statusWarn {
		t.Fatalf("expected mismatch warning, got %#v", check)
	}
	if check := checkPassTypeIdentifier(cert, ""); check.Status != statusWarn {
		t.Fatalf("expected unknown warning, got %#v", check)
	}
}

func TestShellQuote(t *testing.T) {
	if shellQuote("") != "''" {
		t.Fatalf("unexpected empty quote")
	}
	if got := shellQuote("it's"); got != `'it'\''s'` {
		t.Fatalf("unexpected quote: %s", got)
	}
}

func exampleSource(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	testutil.WriteFile(t, filepath.Join(dir, "pass.json"), examplePassJSON(t))
	testutil.WriteFile(t, filepath.Join(dir, "icon.png"), []byte("icon"))
	return dir
}

func examplePassJSON(t *testing.T) []byte {
	t.Helper()
	data, err := json.Marshal(testutil.ExamplePass(t))
	if err != nil {
		t.Fatalf("marshal pass: %v", err)
	}
	return data
}

func writeProdCredentials(t *testing.T) sign.CredentialConfig {
	t.Helper()
	dev := testutil.DevCredentials(t)
	bundle, err := sign.EncodePKCS12(dev.PrivateKey, dev.Certificate, nil, "secret")
	if err != nil {
		t.Fatalf("encode bundle: %v", err)
	}
	dir := t.TempDir()
	keyPath := filepath.Join(dir, "pass.p12")
	intermediatePath := filepath.Join(dir, "wwdr.cer")
	testutil.WriteFile(t, keyPath, bundle)
	testutil.WriteFile(t, intermediatePath, dev.Intermediates[0].Raw)
	t.Setenv("PKPASS_DOCTOR_PASSWORD", "secret")
	return sign.CredentialConfig{
		Mode:             sign.ModeProd,
		PrivateKeyPath:   keyPath,
		PasswordEnv:      "PKPASS_DOCTOR_PASSWORD",
		IntermediatePath: intermediatePath,
	}
}

func checkStatus(checks []Check, name string, status string) bool {
	for _, check := range checks {
		if check.Name == name && check.Status == status {
			return true
		}
	}
	return false
}
