package doctor

import (
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/davidahmann/pkpass/core/pkpass"
	"github.com/davidahmann/pkpass/core/sign"
)

const (
	statusPass = "pass"
	statusWarn = "warn"
	statusFail = "fail"
)

// expiryWarning is how close to NotAfter a signer certificate starts to warn.
const expiryWarning = 30 * 24 * time.Hour

type Options struct {
	SourceDir        string
	OutputDir        string
	PassPath         string
	ProducerVersion  string
	CredentialConfig sign.CredentialConfig
	Now              time.Time
}

type Result struct {
	CreatedAt       string   `json:"created_at"`
	ProducerVersion string   `json:"producer_version"`
	Status          string   `json:"status"`
	NonFixable      bool     `json:"non_fixable"`
	Summary         string   `json:"summary"`
	FixCommands     []string `json:"fix_commands"`
	Checks          []Check  `json:"checks"`
}

type Check struct {
	Name       string `json:"name"`
	Status     string `json:"status"`
	Message    string `json:"message"`
	FixCommand string `json:"fix_command,omitempty"`
	NonFixable bool   `json:"non_fixable,omitempty"`
}

func Run(opts Options) Result {
	sourceDir := strings.TrimSpace(opts.SourceDir)
	if sourceDir == "" {
		sourceDir = "."
	}
	outputDir := strings.TrimSpace(opts.OutputDir)
	if outputDir == "" {
		outputDir = "."
	}
	producerVersion := strings.TrimSpace(opts.ProducerVersion)
	if producerVersion == "" {
		producerVersion = "0.0.0-dev"
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	checks := []Check{checkSourceDir(sourceDir)}
	passCheck, passTypeID := checkPassContent(sourceDir, strings.TrimSpace(opts.PassPath))
	checks = append(checks,
		passCheck,
		checkIcon(sourceDir),
		checkOutputDir(outputDir),
	)
	checks = append(checks, checkCredentials(opts.CredentialConfig, passTypeID, now)...)

	failed := 0
	warned := 0
	nonFixable := false
	fixCommands := make([]string, 0, len(checks))
	seenFixes := map[string]struct{}{}
	for _, check := range checks {
		switch check.Status {
		case statusFail:
			failed++
		case statusWarn:
			warned++
		}
		if check.NonFixable {
			nonFixable = true
		}
		if check.FixCommand != "" {
			if _, ok := seenFixes[check.FixCommand]; !ok {
				seenFixes[check.FixCommand] = struct{}{}
				fixCommands = append(fixCommands, check.FixCommand)
			}
		}
	}

	status := statusPass
	if failed > 0 {
		status = statusFail
	} else if warned > 0 {
		status = statusWarn
	}

	sort.Strings(fixCommands)
	summary := fmt.Sprintf("doctor: status=%s failed=%d warned=%d non_fixable=%t", status, failed, warned, nonFixable)

	return Result{
		CreatedAt:       now.UTC().Format(time.RFC3339Nano),
		ProducerVersion: producerVersion,
		Status:          status,
		NonFixable:      nonFixable,
		Summary:         summary,
		FixCommands:     fixCommands,
		Checks:          checks,
	}
}

func (r Result) Failed() bool {
	return r.Status == statusFail
}

func checkSourceDir(sourceDir string) Check {
	info, err := os.Stat(sourceDir)
	if err != nil {
		return Check{
			Name:       "source_dir",
			Status:     statusFail,
			Message:    fmt.Sprintf("source directory not accessible: %v", err),
			FixCommand: fmt.Sprintf("pkpass init %s --pass-type-id <id> --team-id <team>", shellQuote(sourceDir)),
		}
	}
	if !info.IsDir() {
		return Check{
			Name:    "source_dir",
			Status:  statusFail,
			Message: "source path is not a directory",
		}
	}
	return Check{
		Name:    "source_dir",
		Status:  statusPass,
		Message: "source directory is readable",
	}
}

func checkPassContent(sourceDir string, passPath string) (Check, string) {
	path := passPath
	if path == "" {
		path = filepath.Join(sourceDir, pkpass.PassFile)
	}
	// #nosec G304 -- pass path is explicit local user input.
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && passPath == "" {
			return Check{
				Name:       "pass_json",
				Status:     statusWarn,
				Message:    "no pass.json in source directory; builds need --pass",
				FixCommand: fmt.Sprintf("pkpass init %s --pass-type-id <id> --team-id <team>", shellQuote(sourceDir)),
			}, ""
		}
		return Check{
			Name:    "pass_json",
			Status:  statusFail,
			Message: fmt.Sprintf("read pass content: %v", err),
		}, ""
	}
	parsed, err := pkpass.ParsePassFile(data)
	if err != nil {
		return Check{
			Name:    "pass_json",
			Status:  statusFail,
			Message: err.Error(),
		}, ""
	}
	return Check{
		Name:    "pass_json",
		Status:  statusPass,
		Message: fmt.Sprintf("pass.json is valid (serial %s)", parsed.SerialNumber()),
	}, parsed.PassTypeIdentifier()
}

func checkIcon(sourceDir string) Check {
	if _, err := os.Stat(filepath.Join(sourceDir, "icon.png")); err != nil {
		return Check{
			Name:    "icon",
			Status:  statusWarn,
			Message: "icon.png is missing; wallets refuse passes without it",
		}
	}
	return Check{
		Name:    "icon",
		Status:  statusPass,
		Message: "icon.png is present",
	}
}

func checkOutputDir(outputDir string) Check {
	info, err := os.Stat(outputDir)
	if err != nil {
		if os.IsNotExist(err) {
			return Check{
				Name:       "output_dir",
				Status:     statusWarn,
				Message:    "output directory does not exist",
				FixCommand: fmt.Sprintf("mkdir -p %s", shellQuote(outputDir)),
			}
		}
		return Check{
			Name:    "output_dir",
			Status:  statusFail,
			Message: fmt.Sprintf("output directory check failed: %v", err),
		}
	}
	if !info.IsDir() {
		return Check{
			Name:    "output_dir",
			Status:  statusFail,
			Message: "output path is not a directory",
		}
	}
	testPath := filepath.Join(outputDir, ".pkpass-doctor-writecheck")
	if err := os.WriteFile(testPath, []byte("ok"), 0o600); err != nil {
		return Check{
			Name:       "output_dir",
			Status:     statusFail,
			Message:    fmt.Sprintf("output directory not writable: %v", err),
			FixCommand: fmt.Sprintf("chmod u+w %s", shellQuote(outputDir)),
		}
	}
	_ = os.Remove(testPath)
	return Check{
		Name:    "output_dir",
		Status:  statusPass,
		Message: "output directory is writable",
	}
}

func checkCredentials(cfg sign.CredentialConfig, passTypeID string, now time.Time) []Check {
	if cfg.Mode == sign.ModeDev {
		return []Check{{
			Name:    "credentials",
			Status:  statusWarn,
			Message: "dev key mode: archives will not install on devices",
		}}
	}
	creds, _, err := sign.LoadCredentials(cfg)
	if err != nil {
		fix := "set --certificate, --private-key and --intermediate for prod mode"
		if errors.Is(err, sign.ErrMissingIntermediate) {
			fix = "download the intermediate authority certificate and pass --intermediate"
		}
		return []Check{{
			Name:       "credentials",
			Status:     statusFail,
			Message:    fmt.Sprintf("invalid signing credentials: %v", err),
			FixCommand: fix,
		}}
	}
	return []Check{
		{
			Name:    "credentials",
			Status:  statusPass,
			Message: fmt.Sprintf("signer %s", creds.Certificate.Subject.CommonName),
		},
		checkExpiry(creds.Certificate, now),
		checkChain(creds),
		checkPassTypeIdentifier(creds.Certificate, passTypeID),
	}
}

func checkExpiry(cert *x509.Certificate, now time.Time) Check {
	switch {
	case now.After(cert.NotAfter):
		return Check{
			Name:       "certificate_expiry",
			Status:     statusFail,
			Message:    fmt.Sprintf("signer certificate expired on %s", cert.NotAfter.UTC().Format(time.DateOnly)),
			NonFixable: true,
		}
	case now.Before(cert.NotBefore):
		return Check{
			Name:    "certificate_expiry",
			Status:  statusFail,
			Message: fmt.Sprintf("signer certificate is not valid before %s", cert.NotBefore.UTC().Format(time.DateOnly)),
		}
	case cert.NotAfter.Sub(now) < expiryWarning:
		return Check{
			Name:    "certificate_expiry",
			Status:  statusWarn,
			Message: fmt.Sprintf("signer certificate expires on %s", cert.NotAfter.UTC().Format(time.DateOnly)),
		}
	default:
		return Check{
			Name:    "certificate_expiry",
			Status:  statusPass,
			Message: fmt.Sprintf("signer certificate valid until %s", cert.NotAfter.UTC().Format(time.DateOnly)),
		}
	}
}

func checkChain(creds sign.Credentials) Check {
	for _, intermediate := range creds.Intermediates {
		if creds.Certificate.CheckSignatureFrom(intermediate) == nil {
			return Check{
				Name:    "intermediate",
				Status:  statusPass,
				Message: fmt.Sprintf("signer issued by %s", intermediate.Subject.CommonName),
			}
		}
	}
	return Check{
		Name:       "intermediate",
		Status:     statusFail,
		Message:    "no configured intermediate issued the signer certificate",
		FixCommand: "pass the intermediate authority certificate that issued the pass type certificate",
	}
}

func checkPassTypeIdentifier(cert *x509.Certificate, passTypeID string) Check {
	if passTypeID == "" {
		return Check{
			Name:    "pass_type_identifier",
			Status:  statusWarn,
			Message: "pass type identifier unknown; skipped certificate match",
		}
	}
	if !strings.Contains(cert.Subject.CommonName, passTypeID) {
		return Check{
			Name:    "pass_type_identifier",
			Status:  statusWarn,
			Message: fmt.Sprintf("certificate %q does not name %s", cert.Subject.CommonName, passTypeID),
		}
	}
	return Check{
		Name:    "pass_type_identifier",
		Status:  statusPass,
		Message: "certificate matches pass type identifier",
	}
}

func shellQuote(value string) string {
	if value == "" {
		return "''"
	}
	return "'" + strings.ReplaceAll(value, "'", `'\''`) + "'"
}
