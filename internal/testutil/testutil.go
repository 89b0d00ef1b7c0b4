package testutil

import (
	"crypto/x509"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/davidahmann/pkpass/core/pass"
	"github.com/davidahmann/pkpass/core/sign"
)

var devCredentials = sync.OnceValues(sign.GenerateDevCredentials)

func RepoRoot(t *testing.T) string {
	t.Helper()
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatalf("unable to locate testutil source file")
	}
	return filepath.Clean(filepath.Join(filepath.Dir(filename), "..", ".."))
}

func BuildPkpassBinary(t *testing.T, root string) string {
	t.Helper()
	binDir := t.TempDir()
	binName := "pkpass"
	if runtime.GOOS == "windows" {
		binName = "pkpass.exe"
	}
	binPath := filepath.Join(binDir, binName)

	// #nosec G204 -- arguments are fixed and used only in test binaries.
	build := exec.Command("go", "build", "-o", binPath, "./cmd/pkpass")
	build.Dir = root
	if out, err := build.CombinedOutput(); err != nil {
		t.Fatalf("build pkpass binary: %v\n%s", err, string(out))
	}
	return binPath
}

func CommandExitCode(t *testing.T, err error) int {
	t.Helper()
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected command exit error, got: %v", err)
	}
	return exitErr.ExitCode()
}

func WriteFile(t *testing.T, path string, content []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatalf("create parent directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func MustReadFile(t *testing.T, path string) []byte {
	t.Helper()
	content, err := os.ReadFile(path) // #nosec G304 -- test helper for controlled paths.
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return content
}

// DevCredentials returns one generated dev chain shared by the whole test binary.
func DevCredentials(t *testing.T) sign.DevCredentials {
	t.Helper()
	dev, err := devCredentials()
	if err != nil {
		t.Fatalf("generate dev credentials: %v", err)
	}
	return dev
}

func DevSigner(t *testing.T) *sign.PKCS7Signer {
	t.Helper()
	signer, err := sign.NewPKCS7Signer(DevCredentials(t).Credentials)
	if err != nil {
		t.Fatalf("create signer: %v", err)
	}
	return signer
}

func RootPool(t *testing.T) *x509.CertPool {
	t.Helper()
	pool := x509.NewCertPool()
	pool.AddCert(DevCredentials(t).Root)
	return pool
}

// ExamplePass is the train boarding pass used across package tests.
func ExamplePass(t *testing.T) pass.Pass {
	t.Helper()
	built, err := pass.NewBuilder("0001", "pass.it.example", "ABC123").
		OrganizationName("Surface Lines").
		Description("Surface Lines Pass").
		AddHeaderField(pass.NewField("gate", "GATE", "23")).
		AddBarcode(pass.BarcodeFormatCode128, "HELLO").
		FinishBoardingPass(pass.TransitTrain)
	if err != nil {
		t.Fatalf("build example pass: %v", err)
	}
	return built
}
