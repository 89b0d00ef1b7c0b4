package sign

import (
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"math/big"
	"os"
	"strings"
	"time"

	"software.sslmate.com/src/go-pkcs12"
)

type KeyMode string

const (
	ModeDev  KeyMode = "dev"
	ModeProd KeyMode = "prod"
)

const DevKeyWarning = "dev mode: ephemeral certificate chain generated; wallets will reject these passes"

// CredentialConfig names where signing material comes from. Each item is read
// from a path or from an env var holding base64 encoded bytes, never both.
type CredentialConfig struct {
	Mode             KeyMode
	CertificatePath  string
	CertificateEnv   string
	PrivateKeyPath   string
	PrivateKeyEnv    string
	PasswordEnv      string
	IntermediatePath string
	IntermediateEnv  string
}

type DevCredentials struct {
	Credentials
	Root *x509.Certificate
}

func LoadCredentials(cfg CredentialConfig) (Credentials, []string, error) {
	mode := cfg.Mode
	if mode == "" {
		mode = ModeProd
	}
	switch mode {
	case ModeDev:
		if cfg.hasAnySource() {
			return Credentials{}, nil, fmt.Errorf("dev mode does not accept explicit key sources")
		}
		dev, err := GenerateDevCredentials()
		if err != nil {
			return Credentials{}, nil, err
		}
		return dev.Credentials, []string{DevKeyWarning}, nil
	case ModeProd:
		if !cfg.hasPrivateSource() {
			return Credentials{}, nil, fmt.Errorf("prod mode requires a private key source")
		}
		if !cfg.hasIntermediateSource() {
			return Credentials{}, nil, ErrMissingIntermediate
		}
		keyData, err := loadSource("private key", cfg.PrivateKeyPath, cfg.PrivateKeyEnv)
		if err != nil {
			return Credentials{}, nil, err
		}
		var certData []byte
		if cfg.CertificatePath != "" || cfg.CertificateEnv != "" {
			certData, err = loadSource("certificate", cfg.CertificatePath, cfg.CertificateEnv)
			if err != nil {
				return Credentials{}, nil, err
			}
		}
		intermediateData, err := loadSource("intermediate", cfg.IntermediatePath, cfg.IntermediateEnv)
		if err != nil {
			return Credentials{}, nil, err
		}
		password := ""
		if cfg.PasswordEnv != "" {
			value, ok := os.LookupEnv(cfg.PasswordEnv)
			if !ok {
				return Credentials{}, nil, fmt.Errorf("password env not set: %s", cfg.PasswordEnv)
			}
			password = value
		}
		creds, err := ParseCredentials(certData, keyData, password, intermediateData)
		if err != nil {
			return Credentials{}, nil, err
		}
		return creds, nil, nil
	default:
		return Credentials{}, nil, fmt.Errorf("unsupported key mode: %q", cfg.Mode)
	}
}

// ParseCredentials accepts a DER or PEM signer certificate, a PKCS#12 bundle
// (or PEM private key) and DER or PEM intermediates. certData may be empty
// when the bundle carries the signer certificate.
func ParseCredentials(certData []byte, keyData []byte, password string, intermediateData []byte) (Credentials, error) {
	key, bundleCert, bundleCAs, err := parsePrivateKey(keyData, password)
	if err != nil {
		return Credentials{}, err
	}
	cert := bundleCert
	if len(certData) > 0 {
		certs, err := ParseCertificates(certData)
		if err != nil {
			return Credentials{}, fmt.Errorf("parse certificate: %w", err)
		}
		cert = certs[0]
	}
	if cert == nil {
		return Credentials{}, fmt.Errorf("signer certificate is required")
	}
	intermediates := bundleCAs
	if len(intermediateData) > 0 {
		intermediates, err = ParseCertificates(intermediateData)
		if err != nil {
			return Credentials{}, fmt.Errorf("parse intermediate: %w", err)
		}
	}
	creds := Credentials{Certificate: cert, PrivateKey: key, Intermediates: intermediates}
	if err := creds.Validate(); err != nil {
		return Credentials{}, err
	}
	return creds, nil
}

// ParseCertificates reads one DER certificate or any number of PEM CERTIFICATE blocks.
func ParseCertificates(data []byte) ([]*x509.Certificate, error) {
	if !isPEM(data) {
		cert, err := x509.ParseCertificate(data)
		if err != nil {
			return nil, err
		}
		return []*x509.Certificate{cert}, nil
	}
	var certs []*x509.Certificate
	for {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, err
		}
		certs = append(certs, cert)
	}
	if len(certs) == 0 {
		return nil, fmt.Errorf("no certificate found in pem input")
	}
	return certs, nil
}

func EncodePKCS12(key crypto.Signer, cert *x509.Certificate, caCerts []*x509.Certificate, password string) ([]byte, error) {
	data, err := pkcs12.Modern.Encode(key, cert, caCerts, password)
	if err != nil {
		return nil, fmt.Errorf("encode pkcs12: %w", err)
	}
	return data, nil
}

// GenerateDevCredentials builds a root, an intermediate and an RSA signer
// certificate valid for one day.
func GenerateDevCredentials() (DevCredentials, error) {
	now := time.Now().UTC()
	rootKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return DevCredentials{}, fmt.Errorf("generate root key: %w", err)
	}
	rootTemplate := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "pkpass dev root", Organization: []string{"pkpass"}},
		NotBefore:             now.Add(-time.Hour),
		NotAfter:              now.Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	root, err := createCertificate(rootTemplate, rootTemplate, rootKey.Public(), rootKey)
	if err != nil {
		return DevCredentials{}, fmt.Errorf("create root: %w", err)
	}

	intermediateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return DevCredentials{}, fmt.Errorf("generate intermediate key: %w", err)
	}
	intermediateTemplate := &x509.Certificate{
		SerialNumber:          big.NewInt(2),
		Subject:               pkix.Name{CommonName: "pkpass dev intermediate", Organization: []string{"pkpass"}},
		NotBefore:             now.Add(-time.Hour),
		NotAfter:              now.Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
		MaxPathLenZero:        true,
	}
	intermediate, err := createCertificate(intermediateTemplate, root, intermediateKey.Public(), rootKey)
	if err != nil {
		return DevCredentials{}, fmt.Errorf("create intermediate: %w", err)
	}

	leafKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return DevCredentials{}, fmt.Errorf("generate signer key: %w", err)
	}
	leafTemplate := &x509.Certificate{
		SerialNumber: big.NewInt(3),
		Subject:      pkix.Name{CommonName: "Pass Type ID: pass.dev.pkpass", OrganizationalUnit: []string{"DEVTEAM01"}},
		NotBefore:    now.Add(-time.Hour),
		NotAfter:     now.Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageCodeSigning},
	}
	leaf, err := createCertificate(leafTemplate, intermediate, leafKey.Public(), intermediateKey)
	if err != nil {
		return DevCredentials{}, fmt.Errorf("create signer certificate: %w", err)
	}

	return DevCredentials{
		Credentials: Credentials{
			Certificate:   leaf,
			PrivateKey:    leafKey,
			Intermediates: []*x509.Certificate{intermediate},
		},
		Root: root,
	}, nil
}

func createCertificate(template, parent *x509.Certificate, pub crypto.PublicKey, signer crypto.Signer) (*x509.Certificate, error) {
	der, err := x509.CreateCertificate(rand.Reader, template, parent, pub, signer)
	if err != nil {
		return nil, err
	}
	return x509.ParseCertificate(der)
}

func parsePrivateKey(data []byte, password string) (crypto.Signer, *x509.Certificate, []*x509.Certificate, error) {
	if isPEM(data) {
		block, _ := pem.Decode(data)
		if block == nil {
			return nil, nil, nil, fmt.Errorf("decode private key pem")
		}
		key, err := parsePEMKey(block)
		if err != nil {
			return nil, nil, nil, err
		}
		return key, nil, nil, nil
	}
	raw, cert, caCerts, err := pkcs12.DecodeChain(data, password)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("decode pkcs12: %w", err)
	}
	key, ok := raw.(crypto.Signer)
	if !ok {
		return nil, nil, nil, fmt.Errorf("unsupported private key type %T", raw)
	}
	return key, cert, caCerts, nil
}

func isPEM(data []byte) bool {
	return bytes.HasPrefix(bytes.TrimSpace(data), []byte("-----BEGIN"))
}

func parsePEMKey(block *pem.Block) (crypto.Signer, error) {
	switch block.Type {
	case "RSA PRIVATE KEY":
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	case "EC PRIVATE KEY":
		return x509.ParseECPrivateKey(block.Bytes)
	case "PRIVATE KEY":
		raw, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		key, ok := raw.(crypto.Signer)
		if !ok {
			return nil, fmt.Errorf("unsupported private key type %T", raw)
		}
		return key, nil
	default:
		return nil, fmt.Errorf("unsupported pem block %q", block.Type)
	}
}

func (cfg CredentialConfig) hasPrivateSource() bool {
	return cfg.PrivateKeyPath != "" || cfg.PrivateKeyEnv != ""
}

func (cfg CredentialConfig) hasIntermediateSource() bool {
	return cfg.IntermediatePath != "" || cfg.IntermediateEnv != ""
}

func (cfg CredentialConfig) hasAnySource() bool {
	return cfg.hasPrivateSource() || cfg.hasIntermediateSource() ||
		cfg.CertificatePath != "" || cfg.CertificateEnv != ""
}

func loadSource(name string, path string, env string) ([]byte, error) {
	if path != "" && env != "" {
		return nil, fmt.Errorf("%s source: set either path or env", name)
	}
	if path != "" {
		// #nosec G304 -- caller supplies local key path by design
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		return data, nil
	}
	encoded, ok := readEnvValue(env)
	if !ok {
		return nil, fmt.Errorf("%s env not set: %s", name, env)
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return data, nil
}

func readEnvValue(name string) (string, bool) {
	if name == "" {
		return "", false
	}
	val, ok := os.LookupEnv(name)
	if !ok {
		return "", false
	}
	val = strings.TrimSpace(val)
	if val == "" {
		return "", false
	}
	return val, true
}
