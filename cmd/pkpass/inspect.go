package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/davidahmann/pkpass/core/pkpass"
)

type inspectOutput struct {
	OK   bool   `json:"ok"`
	Path string `json:"path"`
	pkpass.InspectResult
}

func newInspectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect FILE.pkpass",
		Short: "Show the pass identity and entries of an archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runInspect(cmd, args[0])
		},
	}
}

func (a *app) runInspect(cmd *cobra.Command, path string) error {
	archive, err := os.ReadFile(path) // #nosec G304 -- caller supplies local archive path by design.
	if err != nil {
		return a.fail(cmd, invalidInput(fmt.Errorf("read archive: %w", err), "missing_archive", "check the archive path"), exitInvalidInput)
	}
	result, err := pkpass.Inspect(archive)
	if err != nil {
		return a.fail(cmd, invalidInput(err, "invalid_archive", "the file is not a readable .pkpass archive"), exitInvalidInput)
	}
	output := inspectOutput{OK: true, Path: path, InspectResult: result}
	return a.finish(cmd, output, func(w io.Writer) {
		_, _ = fmt.Fprintf(w, "serial:    %s\n", result.SerialNumber)
		_, _ = fmt.Fprintf(w, "pass type: %s\n", result.PassTypeIdentifier)
		_, _ = fmt.Fprintf(w, "team:      %s\n", result.TeamIdentifier)
		_, _ = fmt.Fprintf(w, "style:     %s\n", result.Style)
		for _, name := range result.Entries {
			digest := result.Manifest[name]
			if digest == "" {
				_, _ = fmt.Fprintf(w, "  %s\n", name)
				continue
			}
			_, _ = fmt.Fprintf(w, "  %s  %s\n", digest, name)
		}
	}, exitOK)
}
