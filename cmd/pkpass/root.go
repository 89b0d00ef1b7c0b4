package main

import (
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/davidahmann/pkpass/core/projectconfig"
)

type app struct {
	verbose    bool
	jsonOutput bool
	configPath string
	logger     *log.Logger
	config     projectconfig.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:   "pkpass",
		Short: "Build, sign and verify wallet pass archives",
		Long: `pkpass packages a pass source directory into a signed .pkpass archive.

The source directory holds images and localizations plus an optional pass.json.
Every file is hashed into manifest.json, which is signed with the pass type
certificate and the intermediate authority certificate.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&a.jsonOutput, "json", false, "emit JSON output")
	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", projectconfig.DefaultPath, "project config file")

	rootCmd.AddCommand(newBuildCmd(a))
	rootCmd.AddCommand(newVerifyCmd(a))
	rootCmd.AddCommand(newInspectCmd(a))
	rootCmd.AddCommand(newInitCmd(a))
	rootCmd.AddCommand(newKeysCmd(a))
	rootCmd.AddCommand(newDoctorCmd(a))
	return rootCmd
}

func (a *app) setup(cmd *cobra.Command) error {
	a.logger = log.NewWithOptions(cmd.ErrOrStderr(), log.Options{Prefix: "pkpass"})
	if a.verbose {
		a.logger.SetLevel(log.DebugLevel)
	}
	allowMissing := !cmd.Flags().Changed("config")
	configuration, err := projectconfig.Load(strings.TrimSpace(a.configPath), allowMissing)
	if err != nil {
		return a.fail(cmd, invalidInput(err, "invalid_config", "fix the project config file"), exitInvalidInput)
	}
	a.config = configuration
	a.logger.Debug("config loaded", "path", a.configPath)
	return nil
}

// stringFlag returns the flag value when set on the command line, else the
// config fallback, else the flag default.
func stringFlag(cmd *cobra.Command, name string, fallback string) string {
	value, _ := cmd.Flags().GetString(name)
	if cmd.Flags().Changed(name) || fallback == "" {
		return strings.TrimSpace(value)
	}
	return fallback
}
