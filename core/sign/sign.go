package sign

import (
	"crypto"
	"crypto/x509"
	"errors"
	"fmt"

	"github.com/smallstep/pkcs7"
)

var ErrMissingIntermediate = errors.New("intermediate certificate is required")

// Credentials hold the signing identity. The private key must belong to Certificate.
type Credentials struct {
	Certificate   *x509.Certificate
	PrivateKey    crypto.Signer
	Intermediates []*x509.Certificate
}

func (c Credentials) Validate() error {
	if c.Certificate == nil {
		return fmt.Errorf("signer certificate is required")
	}
	if c.PrivateKey == nil {
		return fmt.Errorf("signer private key is required")
	}
	if len(c.Intermediates) == 0 {
		return ErrMissingIntermediate
	}
	return checkKeyMatches(c.Certificate, c.PrivateKey)
}

type PKCS7Signer struct {
	creds Credentials
}

func NewPKCS7Signer(creds Credentials) (*PKCS7Signer, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	return &PKCS7Signer{creds: creds}, nil
}

func (s *PKCS7Signer) Certificate() *x509.Certificate {
	return s.creds.Certificate
}

// Sign returns a detached DER PKCS#7 SignedData over message.
func (s *PKCS7Signer) Sign(message []byte) ([]byte, error) {
	if len(s.creds.Intermediates) == 0 {
		return nil, ErrMissingIntermediate
	}
	signedData, err := pkcs7.NewSignedData(message)
	if err != nil {
		return nil, fmt.Errorf("init signed data: %w", err)
	}
	signedData.SetDigestAlgorithm(pkcs7.OIDDigestAlgorithmSHA256)
	if err := signedData.AddSigner(s.creds.Certificate, s.creds.PrivateKey, pkcs7.SignerInfoConfig{}); err != nil {
		return nil, fmt.Errorf("add signer: %w", err)
	}
	for _, intermediate := range s.creds.Intermediates {
		signedData.AddCertificate(intermediate)
	}
	signedData.Detach()
	der, err := signedData.Finish()
	if err != nil {
		return nil, fmt.Errorf("finish signed data: %w", err)
	}
	return der, nil
}

// VerifyDetached checks a detached signature over message. A nil roots pool
// checks only the signature, not the certificate chain.
func VerifyDetached(signature []byte, message []byte, roots *x509.CertPool) (*x509.Certificate, error) {
	p7, err := pkcs7.Parse(signature)
	if err != nil {
		return nil, fmt.Errorf("parse signature: %w", err)
	}
	p7.Content = message
	if roots != nil {
		err = p7.VerifyWithChain(roots)
	} else {
		err = p7.Verify()
	}
	if err != nil {
		return nil, fmt.Errorf("verify signature: %w", err)
	}
	signer := p7.GetOnlySigner()
	if signer == nil {
		return nil, fmt.Errorf("signature must carry exactly one signer")
	}
	return signer, nil
}

func checkKeyMatches(cert *x509.Certificate, key crypto.Signer) error {
	pub, ok := key.Public().(interface{ Equal(crypto.PublicKey) bool })
	if !ok {
		return fmt.Errorf("unsupported private key type %T", key)
	}
	if !pub.Equal(cert.PublicKey) {
		return fmt.Errorf("private key does not match signer certificate")
	}
	return nil
}
