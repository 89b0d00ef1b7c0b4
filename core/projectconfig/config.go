package projectconfig

import (
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
)

const DefaultPath = ".pkpass/config.yaml"

type Config struct {
	Build  BuildDefaults  `yaml:"build"`
	Verify VerifyDefaults `yaml:"verify"`
	Init   InitDefaults   `yaml:"init"`
}

type BuildDefaults struct {
	Source                string `yaml:"source"`
	Pass                  string `yaml:"pass"`
	Out                   string `yaml:"out"`
	Exploded              string `yaml:"exploded"`
	Personalization       string `yaml:"personalization"`
	KeyMode               string `yaml:"key_mode"`
	Certificate           string `yaml:"certificate"`
	CertificateEnv        string `yaml:"certificate_env"`
	PrivateKey            string `yaml:"private_key"` // #nosec G117 -- config key name documents expected secret input.
	PrivateKeyEnv         string `yaml:"private_key_env"`
	PrivateKeyPasswordEnv string `yaml:"private_key_password_env"`
	Intermediate          string `yaml:"intermediate"`
	IntermediateEnv       string `yaml:"intermediate_env"`
}

type VerifyDefaults struct {
	Root             string `yaml:"root"`
	RequireSignature bool   `yaml:"require_signature"`
}

type InitDefaults struct {
	PassTypeIdentifier string `yaml:"pass_type_identifier"`
	TeamIdentifier     string `yaml:"team_identifier"`
	OrganizationName   string `yaml:"organization_name"`
}

func Load(path string, allowMissing bool) (Config, error) {
	trimmedPath := strings.TrimSpace(path)
	if trimmedPath == "" {
		return Config{}, fmt.Errorf("project config path is required")
	}

	// #nosec G304 -- project config path is explicit local user input.
	content, err := os.ReadFile(trimmedPath)
	if err != nil {
		if os.IsNotExist(err) && allowMissing {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("read project config: %w", err)
	}
	if len(strings.TrimSpace(string(content))) == 0 {
		return Config{}, nil
	}

	var configuration Config
	if err := yaml.Unmarshal(content, &configuration); err != nil {
		return Config{}, fmt.Errorf("parse project config: %w", err)
	}
	configuration.normalize()
	if err := configuration.validate(); err != nil {
		return Config{}, err
	}
	return configuration, nil
}

func (configuration *Config) normalize() {
	build := &configuration.Build
	build.Source = strings.TrimSpace(build.Source)
	build.Pass = strings.TrimSpace(build.Pass)
	build.Out = strings.TrimSpace(build.Out)
	build.Exploded = strings.TrimSpace(build.Exploded)
	build.Personalization = strings.TrimSpace(build.Personalization)
	build.KeyMode = strings.ToLower(strings.TrimSpace(build.KeyMode))
	build.Certificate = strings.TrimSpace(build.Certificate)
	build.CertificateEnv = strings.TrimSpace(build.CertificateEnv)
	build.PrivateKey = strings.TrimSpace(build.PrivateKey)
	build.PrivateKeyEnv = strings.TrimSpace(build.PrivateKeyEnv)
	build.PrivateKeyPasswordEnv = strings.TrimSpace(build.PrivateKeyPasswordEnv)
	build.Intermediate = strings.TrimSpace(build.Intermediate)
	build.IntermediateEnv = strings.TrimSpace(build.IntermediateEnv)
	configuration.Verify.Root = strings.TrimSpace(configuration.Verify.Root)
	configuration.Init.PassTypeIdentifier = strings.TrimSpace(configuration.Init.PassTypeIdentifier)
	configuration.Init.TeamIdentifier = strings.TrimSpace(configuration.Init.TeamIdentifier)
	configuration.Init.OrganizationName = strings.TrimSpace(configuration.Init.OrganizationName)
}

func (configuration Config) validate() error {
	switch configuration.Build.KeyMode {
	case "", "dev", "prod":
	default:
		return fmt.Errorf("build.key_mode must be dev or prod, got %q", configuration.Build.KeyMode)
	}
	build := configuration.Build
	if build.Certificate != "" && build.CertificateEnv != "" {
		return fmt.Errorf("build: set either certificate or certificate_env")
	}
	if build.PrivateKey != "" && build.PrivateKeyEnv != "" {
		return fmt.Errorf("build: set either private_key or private_key_env")
	}
	if build.Intermediate != "" && build.IntermediateEnv != "" {
		return fmt.Errorf("build: set either intermediate or intermediate_env")
	}
	return nil
}
