package sign

import (
	"bytes"
	"crypto/x509"
	"errors"
	"sync"
	"testing"
)

var devCredentials = sync.OnceValues(GenerateDevCredentials)

func mustDevCredentials(t *testing.T) DevCredentials {
	t.Helper()
	dev, err := devCredentials()
	if err != nil {
		t.Fatalf("generate dev credentials: %v", err)
	}
	return dev
}

func rootPool(dev DevCredentials) *x509.CertPool {
	pool := x509.NewCertPool()
	pool.AddCert(dev.Root)
	return pool
}

func TestSignVerifyDetached(t *testing.T) {
	dev := mustDevCredentials(t)
	signer, err := NewPKCS7Signer(dev.Credentials)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	message := []byte(`{"icon.png":"aa","pass.json":"bb"}`)
	signature, err := signer.Sign(message)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if len(signature) == 0 {
		t.Fatalf("expected signature bytes")
	}
	if bytes.Contains(signature, message) {
		t.Fatalf("expected detached signature without embedded content")
	}

	cert, err := VerifyDetached(signature, message, rootPool(dev))
	if err != nil {
		t.Fatalf("verify with chain: %v", err)
	}
	if !cert.Equal(dev.Certificate) {
		t.Fatalf("unexpected signer certificate: %s", cert.Subject)
	}
	if _, err := VerifyDetached(signature, message, nil); err != nil {
		t.Fatalf("verify without chain: %v", err)
	}
}

func TestVerifyDetachedRejectsOtherMessage(t *testing.T) {
	dev := mustDevCredentials(t)
	signer, err := NewPKCS7Signer(dev.Credentials)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	signature, err := signer.Sign([]byte("manifest"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := VerifyDetached(signature, []byte("tampered"), nil); err == nil {
		t.Fatalf("expected verification failure for altered message")
	}
	if _, err := VerifyDetached([]byte("not der"), []byte("manifest"), nil); err == nil {
		t.Fatalf("expected parse failure")
	}
}

func TestVerifyDetachedRejectsUnknownRoot(t *testing.T) {
	dev := mustDevCredentials(t)
	other, err := GenerateDevCredentials()
	if err != nil {
		t.Fatalf("generate second chain: %v", err)
	}
	signer, err := NewPKCS7Signer(dev.Credentials)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	signature, err := signer.Sign([]byte("manifest"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := VerifyDetached(signature, []byte("manifest"), rootPool(other)); err == nil {
		t.Fatalf("expected chain failure for unrelated root")
	}
}

func TestSignerRequiresIntermediate(t *testing.T) {
	dev := mustDevCredentials(t)
	creds := dev.Credentials
	creds.Intermediates = nil
	if _, err := NewPKCS7Signer(creds); !errors.Is(err, ErrMissingIntermediate) {
		t.Fatalf("expected missing intermediate error, got %v", err)
	}
	var zero PKCS7Signer
	if _, err := zero.Sign([]byte("x")); !errors.Is(err, ErrMissingIntermediate) {
		t.Fatalf("expected missing intermediate from zero signer, got %v", err)
	}
}

func TestCredentialsValidate(t *testing.T) {
	dev := mustDevCredentials(t)
	other, err := GenerateDevCredentials()
	if err != nil {
		t.Fatalf("generate second chain: %v", err)
	}
	cases := []struct {
		name  string
		creds Credentials
	}{
		{name: "missing_certificate", creds: Credentials{PrivateKey: dev.PrivateKey, Intermediates: dev.Intermediates}},
		{name: "missing_key", creds: Credentials{Certificate: dev.Certificate, Intermediates: dev.Intermediates}},
		{name: "mismatched_key", creds: Credentials{Certificate: dev.Certificate, PrivateKey: other.PrivateKey, Intermediates: dev.Intermediates}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.creds.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
	if err := dev.Validate(); err != nil {
		t.Fatalf("expected dev credentials to validate: %v", err)
	}
}
