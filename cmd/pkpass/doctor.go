package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/davidahmann/pkpass/core/doctor"
)

type doctorOutput struct {
	OK bool `json:"ok"`
	doctor.Result
}

func newDoctorCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the source directory, output directory and signing credentials",
		Example: `  pkpass doctor --source pass-src --out-dir dist \
    --private-key pass.p12 --private-key-password-env PKPASS_KEY_PASSWORD --intermediate wwdr.cer`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runDoctor(cmd)
		},
	}
	flags := cmd.Flags()
	flags.String("source", ".", "pass source directory")
	flags.String("pass", "", "pass.json to check instead of the one in the source directory")
	flags.String("out-dir", ".", "directory archives are written to")
	addCredentialFlags(cmd)
	return cmd
}

func (a *app) runDoctor(cmd *cobra.Command) error {
	defaults := a.config.Build
	result := doctor.Run(doctor.Options{
		SourceDir:        stringFlag(cmd, "source", defaults.Source),
		OutputDir:        stringFlag(cmd, "out-dir", ""),
		PassPath:         stringFlag(cmd, "pass", defaults.Pass),
		ProducerVersion:  Version,
		CredentialConfig: credentialConfig(cmd, defaults),
	})
	for _, check := range result.Checks {
		a.logger.Debug("doctor check", "name", check.Name, "status", check.Status)
	}

	exitCode := exitOK
	if result.Failed() {
		exitCode = exitInvalidInput
	}
	output := doctorOutput{OK: !result.Failed(), Result: result}
	return a.finish(cmd, output, func(w io.Writer) {
		for _, check := range result.Checks {
			_, _ = fmt.Fprintf(w, "%-4s  %-20s  %s\n", check.Status, check.Name, check.Message)
		}
		for _, fix := range result.FixCommands {
			_, _ = fmt.Fprintf(w, "fix: %s\n", fix)
		}
		_, _ = fmt.Fprintln(w, result.Summary)
	}, exitCode)
}
