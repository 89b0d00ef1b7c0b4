package main

import (
	"crypto/x509"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/davidahmann/pkpass/core/pkpass"
	"github.com/davidahmann/pkpass/core/sign"
)

type verifyOutput struct {
	OK   bool   `json:"ok"`
	Path string `json:"path"`
	pkpass.VerifyResult
}

func newVerifyCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify FILE.pkpass",
		Short: "Check manifest digests and the manifest signature of an archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runVerify(cmd, args[0])
		},
	}
	cmd.Flags().StringSlice("root", nil, "trusted root certificate (repeatable)")
	cmd.Flags().Bool("require-signature", false, "fail when the archive has no signature")
	return cmd
}

func (a *app) runVerify(cmd *cobra.Command, path string) error {
	roots, _ := cmd.Flags().GetStringSlice("root")
	if !cmd.Flags().Changed("root") && a.config.Verify.Root != "" {
		roots = []string{a.config.Verify.Root}
	}
	requireSignature, _ := cmd.Flags().GetBool("require-signature")
	if !cmd.Flags().Changed("require-signature") {
		requireSignature = requireSignature || a.config.Verify.RequireSignature
	}

	opts := pkpass.VerifyOptions{RequireSignature: requireSignature}
	if len(roots) > 0 {
		pool, err := loadRootPool(roots)
		if err != nil {
			return a.fail(cmd, err, exitInvalidInput)
		}
		opts.Roots = pool
	}

	archive, err := os.ReadFile(path) // #nosec G304 -- caller supplies local archive path by design.
	if err != nil {
		return a.fail(cmd, invalidInput(fmt.Errorf("read archive: %w", err), "missing_archive", "check the archive path"), exitInvalidInput)
	}
	result, err := pkpass.Verify(archive, opts)
	if err != nil {
		return a.fail(cmd, invalidInput(err, "invalid_archive", "the file is not a readable .pkpass archive"), exitInvalidInput)
	}
	a.logger.Debug("verified archive", "path", path, "files", result.FilesChecked, "signature", result.SignatureStatus)

	output := verifyOutput{OK: result.OK(), Path: path, VerifyResult: result}
	exitCode := exitOK
	if !output.OK {
		exitCode = exitVerifyFailed
	}
	return a.finish(cmd, output, func(w io.Writer) {
		status := "ok"
		if !output.OK {
			status = "FAILED"
		}
		_, _ = fmt.Fprintf(w, "%s: %s (%d files, signature %s)\n", path, status, result.FilesChecked, result.SignatureStatus)
		for _, name := range result.MissingFiles {
			_, _ = fmt.Fprintf(w, "  missing: %s\n", name)
		}
		for _, name := range result.UndeclaredFiles {
			_, _ = fmt.Fprintf(w, "  undeclared: %s\n", name)
		}
		for _, mismatch := range result.HashMismatches {
			_, _ = fmt.Fprintf(w, "  digest mismatch: %s\n", mismatch.Path)
		}
		for _, problem := range result.SignatureErrors {
			_, _ = fmt.Fprintf(w, "  signature: %s\n", problem)
		}
	}, exitCode)
}

func loadRootPool(paths []string) (*x509.CertPool, error) {
	pool := x509.NewCertPool()
	for _, path := range paths {
		data, err := os.ReadFile(path) // #nosec G304 -- caller supplies local certificate path by design.
		if err != nil {
			return nil, invalidInput(fmt.Errorf("read root certificate: %w", err), "missing_root", "check the --root path")
		}
		certs, err := sign.ParseCertificates(data)
		if err != nil {
			return nil, invalidInput(fmt.Errorf("parse root certificate %s: %w", path, err), "invalid_root", "pass a DER or PEM certificate")
		}
		for _, cert := range certs {
			pool.AddCert(cert)
		}
	}
	return pool, nil
}
