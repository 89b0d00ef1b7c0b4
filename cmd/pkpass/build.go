package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"

	coreerrors "github.com/davidahmann/pkpass/core/errors"
	"github.com/davidahmann/pkpass/core/pass"
	"github.com/davidahmann/pkpass/core/pkpass"
	"github.com/davidahmann/pkpass/core/projectconfig"
	schemapass "github.com/davidahmann/pkpass/core/schema/v1/pass"
	"github.com/davidahmann/pkpass/core/schema/validate"
	"github.com/davidahmann/pkpass/core/sign"
)

type buildOutput struct {
	OK           bool     `json:"ok"`
	Source       string   `json:"source"`
	Out          string   `json:"out,omitempty"`
	Exploded     string   `json:"exploded,omitempty"`
	KeyMode      string   `json:"key_mode"`
	SerialNumber string   `json:"serial_number,omitempty"`
	Entries      []string `json:"entries,omitempty"`
	Warnings     []string `json:"warnings,omitempty"`
}

func newBuildCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Package a source directory into a signed .pkpass archive",
		Example: `  pkpass build --source pass-src --out boarding.pkpass \
    --certificate pass.cer --private-key pass.p12 --private-key-password-env PKPASS_KEY_PASSWORD \
    --intermediate wwdr.cer
  pkpass build --source pass-src --out dev.pkpass --key-mode dev`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runBuild(cmd)
		},
	}
	flags := cmd.Flags()
	flags.String("source", ".", "pass source directory")
	flags.String("pass", "", "pass.json to use instead of the one in the source directory")
	flags.String("out", "", "output .pkpass archive path")
	flags.String("exploded", "", "also write the signed pass unzipped to this directory")
	flags.String("personalization", "", "personalization.json to include")
	addCredentialFlags(cmd)
	return cmd
}

func addCredentialFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.String("key-mode", string(sign.ModeProd), "key mode: prod or dev")
	flags.String("certificate", "", "pass type certificate (DER or PEM)")
	flags.String("certificate-env", "", "env var holding the base64 pass type certificate")
	flags.String("private-key", "", "PKCS#12 bundle or PEM private key")
	flags.String("private-key-env", "", "env var holding the base64 private key bundle")
	flags.String("private-key-password-env", "", "env var holding the private key password")
	flags.String("intermediate", "", "intermediate authority certificate (DER or PEM)")
	flags.String("intermediate-env", "", "env var holding the base64 intermediate certificate")
}

func credentialConfig(cmd *cobra.Command, defaults projectconfig.BuildDefaults) sign.CredentialConfig {
	return sign.CredentialConfig{
		Mode:             sign.KeyMode(strings.ToLower(stringFlag(cmd, "key-mode", defaults.KeyMode))),
		CertificatePath:  stringFlag(cmd, "certificate", defaults.Certificate),
		CertificateEnv:   stringFlag(cmd, "certificate-env", defaults.CertificateEnv),
		PrivateKeyPath:   stringFlag(cmd, "private-key", defaults.PrivateKey),
		PrivateKeyEnv:    stringFlag(cmd, "private-key-env", defaults.PrivateKeyEnv),
		PasswordEnv:      stringFlag(cmd, "private-key-password-env", defaults.PrivateKeyPasswordEnv),
		IntermediatePath: stringFlag(cmd, "intermediate", defaults.Intermediate),
		IntermediateEnv:  stringFlag(cmd, "intermediate-env", defaults.IntermediateEnv),
	}
}

func (a *app) runBuild(cmd *cobra.Command) error {
	defaults := a.config.Build
	source := stringFlag(cmd, "source", defaults.Source)
	passPath := stringFlag(cmd, "pass", defaults.Pass)
	outPath := stringFlag(cmd, "out", defaults.Out)
	explodedPath := stringFlag(cmd, "exploded", defaults.Exploded)
	personalizationPath := stringFlag(cmd, "personalization", defaults.Personalization)
	credentials := credentialConfig(cmd, defaults)
	keyMode := credentials.Mode

	if outPath == "" && explodedPath == "" {
		return a.fail(cmd, invalidInput(errors.New("--out or --exploded is required"), "missing_output", "pass --out FILE.pkpass"), exitInvalidInput)
	}
	if info, err := os.Stat(source); err != nil || !info.IsDir() {
		return a.fail(cmd, invalidInput(fmt.Errorf("source directory not found: %s", source), "missing_source", "pass --source DIR"), exitInvalidInput)
	}

	creds, warnings, err := sign.LoadCredentials(credentials)
	if err != nil {
		return a.fail(cmd, classifyCredentialError(err), exitInvalidInput)
	}
	for _, warning := range warnings {
		a.logger.Warn(warning)
	}
	signer, err := sign.NewPKCS7Signer(creds)
	if err != nil {
		return a.fail(cmd, classifyCredentialError(err), exitInvalidInput)
	}

	var explicit *pass.Pass
	if passPath != "" {
		// #nosec G304 -- caller supplies local pass path by design.
		data, err := os.ReadFile(passPath)
		if err != nil {
			return a.fail(cmd, invalidInput(fmt.Errorf("read pass: %w", err), "missing_pass", "check the --pass path"), exitInvalidInput)
		}
		parsed, err := pkpass.ParsePassFile(data)
		if err != nil {
			return a.fail(cmd, err, exitInvalidInput)
		}
		explicit = &parsed
	}

	options := []pkpass.Option{pkpass.WithLogger(a.logger)}
	if personalizationPath != "" {
		personalization, err := readPersonalization(personalizationPath)
		if err != nil {
			return a.fail(cmd, err, exitInvalidInput)
		}
		options = append(options, pkpass.WithPersonalization(personalization))
	}
	passSource := pkpass.OpenDir(source, signer, options...)

	output := buildOutput{
		OK:       true,
		Source:   source,
		Out:      outPath,
		Exploded: explodedPath,
		KeyMode:  string(keyModeOrDefault(keyMode)),
		Warnings: warnings,
	}
	signed, err := passSource.Assemble(explicit)
	if err != nil {
		return a.fail(cmd, err, exitInternalFailure)
	}
	output.Entries = signed.Entries()
	var archive []byte
	if outPath != "" {
		archive, err = signed.Archive()
		if err != nil {
			return a.fail(cmd, err, exitInternalFailure)
		}
		inspected, err := pkpass.Inspect(archive)
		if err != nil {
			return a.fail(cmd, err, exitInternalFailure)
		}
		output.SerialNumber = inspected.SerialNumber
	}
	// The exploded directory goes first so a failure there leaves no archive behind.
	if explodedPath != "" {
		if err := signed.WriteDirectory(explodedPath); err != nil {
			return a.fail(cmd, err, exitInternalFailure)
		}
	}
	if outPath != "" {
		if err := pkpass.WriteArchive(outPath, archive); err != nil {
			return a.fail(cmd, err, exitInternalFailure)
		}
	}
	a.logger.Debug("build complete", "source", source, "out", outPath, "exploded", explodedPath)

	return a.finish(cmd, output, func(w io.Writer) {
		if output.Out != "" {
			_, _ = fmt.Fprintf(w, "built %s (%d entries, serial %s)\n", output.Out, len(output.Entries), output.SerialNumber)
		}
		if output.Exploded != "" {
			_, _ = fmt.Fprintf(w, "wrote %s\n", output.Exploded)
		}
	}, exitOK)
}

func readPersonalization(path string) (pass.Personalization, error) {
	data, err := validate.ValidateJSONFile(schemapass.PersonalizationSchema, path)
	if err != nil {
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			return pass.Personalization{}, invalidInput(fmt.Errorf("read personalization: %w", err), "missing_personalization", "check the --personalization path")
		}
		return pass.Personalization{}, invalidInput(fmt.Errorf("personalization.json: %w", err), "invalid_personalization", "fix personalization.json")
	}
	var personalization pass.Personalization
	if err := json.Unmarshal(data, &personalization); err != nil {
		return pass.Personalization{}, invalidInput(fmt.Errorf("parse personalization: %w", err), "invalid_personalization", "fix personalization.json")
	}
	if err := personalization.Validate(); err != nil {
		return pass.Personalization{}, err
	}
	return personalization, nil
}

func classifyCredentialError(err error) error {
	if errors.Is(err, sign.ErrMissingIntermediate) {
		return coreerrors.Wrap(err, coreerrors.CategoryDependencyMissing, "missing_intermediate", "pass --intermediate with the intermediate authority certificate", false)
	}
	return invalidInput(err, "invalid_credentials", "check the signing certificate and private key")
}

func keyModeOrDefault(mode sign.KeyMode) sign.KeyMode {
	if mode == "" {
		return sign.ModeProd
	}
	return mode
}
