package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/davidahmann/pkpass/core/fsx"
	"github.com/davidahmann/pkpass/core/pass"
	"github.com/davidahmann/pkpass/core/pkpass"
)

type initOutput struct {
	OK           bool   `json:"ok"`
	Path         string `json:"path"`
	SerialNumber string `json:"serial_number"`
	Style        string `json:"style"`
}

func newInitCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init DIR",
		Short: "Create a pass source directory with a template pass.json",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runInit(cmd, args[0])
		},
	}
	flags := cmd.Flags()
	flags.String("pass-type-id", "", "pass type identifier")
	flags.String("team-id", "", "team identifier")
	flags.String("organization", "", "organization name")
	flags.String("style", string(pass.StyleGeneric), "boardingPass, coupon, eventTicket, generic or storeCard")
	flags.String("transit", string(pass.TransitGeneric), "transit type for boarding passes")
	flags.Bool("force", false, "overwrite an existing pass.json")
	return cmd
}

func (a *app) runInit(cmd *cobra.Command, dir string) error {
	defaults := a.config.Init
	passTypeID := stringFlag(cmd, "pass-type-id", defaults.PassTypeIdentifier)
	teamID := stringFlag(cmd, "team-id", defaults.TeamIdentifier)
	organization := stringFlag(cmd, "organization", defaults.OrganizationName)
	style, _ := cmd.Flags().GetString("style")
	transit, _ := cmd.Flags().GetString("transit")
	force, _ := cmd.Flags().GetBool("force")

	if passTypeID == "" || teamID == "" {
		return a.fail(cmd, invalidInput(errors.New("--pass-type-id and --team-id are required"), "missing_identifiers", "pass both identifiers from the developer account"), exitInvalidInput)
	}
	if organization == "" {
		organization = teamID
	}

	serial := uuid.NewString()
	builder := pass.NewBuilder(serial, passTypeID, teamID).
		OrganizationName(organization).
		Description(organization+" pass").
		AddPrimaryField(pass.NewField("title", "TITLE", "Welcome")).
		AddBackField(pass.NewField("terms", "TERMS", "Replace with your terms")).
		AddBarcode(pass.BarcodeFormatQR, serial)
	template, err := finishTemplate(builder, pass.StyleKind(strings.TrimSpace(style)), pass.TransitType(transit))
	if err != nil {
		return a.fail(cmd, err, exitInvalidInput)
	}
	encoded, err := json.MarshalIndent(template, "", "  ")
	if err != nil {
		return a.fail(cmd, err, exitInternalFailure)
	}
	encoded = append(encoded, '\n')

	target := filepath.Join(dir, pkpass.PassFile)
	if _, err := os.Stat(target); err == nil && !force {
		return a.fail(cmd, invalidInput(fmt.Errorf("%s already exists", target), "pass_exists", "use --force to overwrite"), exitInvalidInput)
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return a.fail(cmd, ioFailure(fmt.Errorf("create source directory: %w", err), "create_source", "check directory permissions"), exitInternalFailure)
	}
	if err := fsx.WriteFileAtomic(target, encoded, 0o644); err != nil {
		return a.fail(cmd, ioFailure(err, "write_pass", "check directory permissions"), exitInternalFailure)
	}

	output := initOutput{OK: true, Path: target, SerialNumber: serial, Style: string(template.Style().Kind())}
	return a.finish(cmd, output, func(w io.Writer) {
		_, _ = fmt.Fprintf(w, "wrote %s (serial %s)\n", target, serial)
	}, exitOK)
}

func finishTemplate(builder pass.Builder, style pass.StyleKind, transit pass.TransitType) (pass.Pass, error) {
	switch style {
	case pass.StyleBoardingPass:
		return builder.FinishBoardingPass(transit)
	case pass.StyleCoupon:
		return builder.FinishCoupon()
	case pass.StyleEventTicket:
		return builder.FinishEventTicket()
	case pass.StyleGeneric:
		return builder.FinishGeneric()
	case pass.StyleStoreCard:
		return builder.FinishStoreCard()
	default:
		return pass.Pass{}, invalidInput(fmt.Errorf("unknown style %q", style), "invalid_style", "use boardingPass, coupon, eventTicket, generic or storeCard")
	}
}
