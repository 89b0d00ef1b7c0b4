package sign

import (
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCredentialsDev(t *testing.T) {
	creds, warnings, err := LoadCredentials(CredentialConfig{Mode: ModeDev})
	if err != nil {
		t.Fatalf("load credentials: %v", err)
	}
	if len(warnings) != 1 || warnings[0] != DevKeyWarning {
		t.Fatalf("expected dev warning, got %v", warnings)
	}
	if err := creds.Validate(); err != nil {
		t.Fatalf("expected usable dev credentials: %v", err)
	}
}

func TestLoadCredentialsDevWithConfig(t *testing.T) {
	cfg := CredentialConfig{Mode: ModeDev, PrivateKeyEnv: "PKPASS_PRIVATE_KEY"}
	if _, _, err := LoadCredentials(cfg); err == nil {
		t.Fatalf("expected error for dev mode with explicit keys")
	}
}

func TestLoadCredentialsProdMissing(t *testing.T) {
	if _, _, err := LoadCredentials(CredentialConfig{Mode: ModeProd}); err == nil {
		t.Fatalf("expected error for missing prod key")
	}
	cfg := CredentialConfig{Mode: ModeProd, PrivateKeyPath: "key.p12"}
	if _, _, err := LoadCredentials(cfg); !errors.Is(err, ErrMissingIntermediate) {
		t.Fatalf("expected missing intermediate error, got %v", err)
	}
	if _, _, err := LoadCredentials(CredentialConfig{Mode: "hsm"}); err == nil {
		t.Fatalf("expected unsupported mode error")
	}
}

func TestLoadCredentialsProdPath(t *testing.T) {
	dev := mustDevCredentials(t)
	bundle, err := EncodePKCS12(dev.PrivateKey, dev.Certificate, nil, "secret")
	if err != nil {
		t.Fatalf("encode pkcs12: %v", err)
	}
	dir := t.TempDir()
	certPath := filepath.Join(dir, "pass.cer")
	keyPath := filepath.Join(dir, "pass.p12")
	wwdrPath := filepath.Join(dir, "wwdr.cer")
	writeTestFile(t, certPath, dev.Certificate.Raw)
	writeTestFile(t, keyPath, bundle)
	writeTestFile(t, wwdrPath, dev.Intermediates[0].Raw)
	t.Setenv("PKPASS_KEY_PASSWORD", "secret")

	creds, warnings, err := LoadCredentials(CredentialConfig{
		Mode:             ModeProd,
		CertificatePath:  certPath,
		PrivateKeyPath:   keyPath,
		PasswordEnv:      "PKPASS_KEY_PASSWORD",
		IntermediatePath: wwdrPath,
	})
	if err != nil {
		t.Fatalf("load credentials: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("expected no warnings in prod")
	}
	if !creds.Certificate.Equal(dev.Certificate) || !creds.Intermediates[0].Equal(dev.Intermediates[0]) {
		t.Fatalf("loaded credentials mismatch")
	}
}

func TestLoadCredentialsProdEnv(t *testing.T) {
	dev := mustDevCredentials(t)
	bundle, err := EncodePKCS12(dev.PrivateKey, dev.Certificate, dev.Intermediates, "bundle-pass")
	if err != nil {
		t.Fatalf("encode pkcs12: %v", err)
	}
	t.Setenv("PKPASS_P12", base64.StdEncoding.EncodeToString(bundle))
	t.Setenv("PKPASS_WWDR", base64.StdEncoding.EncodeToString(dev.Intermediates[0].Raw))
	t.Setenv("PKPASS_KEY_PASSWORD", "bundle-pass")

	creds, _, err := LoadCredentials(CredentialConfig{
		Mode:            ModeProd,
		PrivateKeyEnv:   "PKPASS_P12",
		PasswordEnv:     "PKPASS_KEY_PASSWORD",
		IntermediateEnv: "PKPASS_WWDR",
	})
	if err != nil {
		t.Fatalf("load credentials: %v", err)
	}
	if !creds.Certificate.Equal(dev.Certificate) {
		t.Fatalf("expected signer certificate from bundle")
	}
}

func TestLoadCredentialsSourceConflicts(t *testing.T) {
	t.Setenv("PKPASS_P12", "Zm9v")
	cfg := CredentialConfig{
		Mode:             ModeProd,
		PrivateKeyPath:   "key.p12",
		PrivateKeyEnv:    "PKPASS_P12",
		IntermediatePath: "wwdr.cer",
	}
	if _, _, err := LoadCredentials(cfg); err == nil {
		t.Fatalf("expected error for path and env together")
	}
	cfg = CredentialConfig{Mode: ModeProd, PrivateKeyEnv: "PKPASS_UNSET_KEY", IntermediatePath: "wwdr.cer"}
	if _, _, err := LoadCredentials(cfg); err == nil {
		t.Fatalf("expected error for unset env")
	}
	cfg = CredentialConfig{Mode: ModeProd, PrivateKeyEnv: "PKPASS_P12", IntermediateEnv: "PKPASS_P12", PasswordEnv: "PKPASS_UNSET_PASSWORD"}
	if _, _, err := LoadCredentials(cfg); err == nil {
		t.Fatalf("expected error for unset password env")
	}
}

func TestParseCredentialsPEM(t *testing.T) {
	dev := mustDevCredentials(t)
	keyDER, err := x509.MarshalPKCS8PrivateKey(dev.PrivateKey)
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER})
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: dev.Certificate.Raw})
	chainPEM := append(
		pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: dev.Intermediates[0].Raw}),
		pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: dev.Root.Raw})...,
	)

	creds, err := ParseCredentials(certPEM, keyPEM, "", chainPEM)
	if err != nil {
		t.Fatalf("parse credentials: %v", err)
	}
	if len(creds.Intermediates) != 2 {
		t.Fatalf("expected two chain certificates, got %d", len(creds.Intermediates))
	}
	if _, err := ParseCredentials(nil, keyPEM, "", chainPEM); err == nil {
		t.Fatalf("expected error without signer certificate")
	}
	if _, err := ParseCredentials(certPEM, keyPEM, "", nil); !errors.Is(err, ErrMissingIntermediate) {
		t.Fatalf("expected missing intermediate, got %v", err)
	}
}

func TestParseCredentialsWrongPassword(t *testing.T) {
	dev := mustDevCredentials(t)
	bundle, err := EncodePKCS12(dev.PrivateKey, dev.Certificate, nil, "secret")
	if err != nil {
		t.Fatalf("encode pkcs12: %v", err)
	}
	if _, err := ParseCredentials(nil, bundle, "wrong", dev.Intermediates[0].Raw); err == nil {
		t.Fatalf("expected pkcs12 password error")
	}
}

func TestParseCertificatesInvalid(t *testing.T) {
	if _, err := ParseCertificates([]byte("garbage")); err == nil {
		t.Fatalf("expected der parse error")
	}
	keyOnly := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: []byte{1, 2, 3}})
	if _, err := ParseCertificates(keyOnly); err == nil {
		t.Fatalf("expected error for pem without certificates")
	}
}

func writeTestFile(t *testing.T, path string, content []byte) {
	t.Helper()
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
