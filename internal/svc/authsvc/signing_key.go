package authsvc

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrInvalidSigningKey is returned when a key file does not hold an RSA private key.
var ErrInvalidSigningKey = errors.New("invalid signing key")

const (
	// KeyType is the PEM block type for PKCS #1 RSA private keys.
	KeyType = "RSA PRIVATE KEY"
	// PKCS8KeyType is the PEM block type for PKCS #8 private keys.
	PKCS8KeyType = "PRIVATE KEY"
)

// DefaultKeySize is the default RSA key size in bits.
const DefaultKeySize = 2048

// DecodePrivateKey reads and decodes a PEM-encoded RSA private key in
// PKCS #1 or PKCS #8 form.
func DecodePrivateKey(key io.Reader) (*rsa.PrivateKey, error) {
	buf, err := io.ReadAll(key)
	if err != nil {
		return nil, fmt.Errorf("read key: %w", err)
	}

	block, _ := pem.Decode(buf)
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block", ErrInvalidSigningKey)
	}

	switch block.Type {
	case KeyType:
		privateKey, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, errors.Join(ErrInvalidSigningKey, err)
		}

		return privateKey, nil
	case PKCS8KeyType:
		parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, errors.Join(ErrInvalidSigningKey, err)
		}

		privateKey, ok := parsed.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("%w: not an RSA key", ErrInvalidSigningKey)
		}

		return privateKey, nil
	default:
		return nil, fmt.Errorf("%w: unexpected block type %q", ErrInvalidSigningKey, block.Type)
	}
}

// GeneratePrivateKey creates a new RSA private key with the specified bit size.
func GeneratePrivateKey(bits int) (*rsa.PrivateKey, error) {
	signingKey, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}

	return signingKey, nil
}

// EncodePrivateKey encodes an RSA private key as a PKCS #1 PEM block.
func EncodePrivateKey(signingKey *rsa.PrivateKey) ([]byte, error) {
	//nolint:exhaustruct
	pemBlock := &pem.Block{
		Type:  KeyType,
		Bytes: x509.MarshalPKCS1PrivateKey(signingKey),
	}

	var buf bytes.Buffer

	if err := pem.Encode(&buf, pemBlock); err != nil {
		return nil, fmt.Errorf("encode key: %w", err)
	}

	return buf.Bytes(), nil
}

// GetPrivateKey loads the RSA private key stored at path. If the file doesn't
// exist, it generates a new key and saves it there with owner-only permissions.
func GetPrivateKey(path string) (*rsa.PrivateKey, error) {
	// Try decode existing key
	keyFile, err := os.Open(path)
	if err == nil {
		defer keyFile.Close()

		signingKey, err := DecodePrivateKey(keyFile)
		if err != nil {
			return nil, fmt.Errorf("decode private key: %w", err)
		}

		return signingKey, nil
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("open key file: %w", err)
	}

	signingKey, err := GeneratePrivateKey(DefaultKeySize)
	if err != nil {
		return nil, fmt.Errorf("generate private key: %w", err)
	}

	keyBytes, err := EncodePrivateKey(signingKey)
	if err != nil {
		return nil, fmt.Errorf("encode private key: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("mkdir all: %w", err)
	}

	if err := os.WriteFile(path, keyBytes, 0o600); err != nil {
		return nil, fmt.Errorf("write key file: %w", err)
	}

	return signingKey, nil
}
