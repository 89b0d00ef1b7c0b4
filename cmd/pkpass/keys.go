package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/davidahmann/pkpass/core/fsx"
	"github.com/davidahmann/pkpass/core/sign"
)

const devBundlePassword = "pkpass-dev"

type keysDevOutput struct {
	OK           bool     `json:"ok"`
	Certificate  string   `json:"certificate"`
	PrivateKey   string   `json:"private_key"`
	Intermediate string   `json:"intermediate"`
	Root         string   `json:"root"`
	Warnings     []string `json:"warnings,omitempty"`
}

func newKeysCmd(a *app) *cobra.Command {
	keysCmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage signing material",
	}
	devCmd := &cobra.Command{
		Use:   "dev",
		Short: "Write a throwaway certificate chain for local builds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runKeysDev(cmd)
		},
	}
	devCmd.Flags().String("out", ".pkpass/dev", "output directory")
	devCmd.Flags().String("password-env", "", "env var holding the PKCS#12 password")
	keysCmd.AddCommand(devCmd)
	return keysCmd
}

func (a *app) runKeysDev(cmd *cobra.Command) error {
	outDir, _ := cmd.Flags().GetString("out")
	passwordEnv, _ := cmd.Flags().GetString("password-env")
	password := devBundlePassword
	if passwordEnv != "" {
		value, ok := os.LookupEnv(passwordEnv)
		if !ok || value == "" {
			return a.fail(cmd, invalidInput(fmt.Errorf("password env not set: %s", passwordEnv), "missing_password", "export the password env var"), exitInvalidInput)
		}
		password = value
	}

	dev, err := sign.GenerateDevCredentials()
	if err != nil {
		return a.fail(cmd, err, exitInternalFailure)
	}
	bundle, err := sign.EncodePKCS12(dev.PrivateKey, dev.Certificate, nil, password)
	if err != nil {
		return a.fail(cmd, err, exitInternalFailure)
	}
	if err := os.MkdirAll(outDir, 0o750); err != nil {
		return a.fail(cmd, ioFailure(fmt.Errorf("create key directory: %w", err), "create_key_dir", "check directory permissions"), exitInternalFailure)
	}

	output := keysDevOutput{
		OK:           true,
		Certificate:  filepath.Join(outDir, "pass.cer"),
		PrivateKey:   filepath.Join(outDir, "pass.p12"),
		Intermediate: filepath.Join(outDir, "wwdr.cer"),
		Root:         filepath.Join(outDir, "root.cer"),
		Warnings:     []string{sign.DevKeyWarning},
	}
	files := []struct {
		path string
		data []byte
		mode os.FileMode
	}{
		{path: output.Certificate, data: dev.Certificate.Raw, mode: 0o644},
		{path: output.PrivateKey, data: bundle, mode: 0o600},
		{path: output.Intermediate, data: dev.Intermediates[0].Raw, mode: 0o644},
		{path: output.Root, data: dev.Root.Raw, mode: 0o644},
	}
	for _, file := range files {
		if err := fsx.WriteFileAtomic(file.path, file.data, file.mode); err != nil {
			return a.fail(cmd, ioFailure(err, "write_key", "check directory permissions"), exitInternalFailure)
		}
	}
	a.logger.Warn(sign.DevKeyWarning)

	return a.finish(cmd, output, func(w io.Writer) {
		_, _ = fmt.Fprintf(w, "wrote dev chain to %s\n", outDir)
		if passwordEnv == "" {
			_, _ = fmt.Fprintf(w, "bundle password: %s\n", devBundlePassword)
		}
	}, exitOK)
}
