// Package keys generates and converts the RSA key pairs used by
// blueprint key-pair resources.
package keys

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"

	"golang.org/x/crypto/ssh"
)

const defaultBits = 2048

// Pair holds the PEM encodings of one RSA key pair plus the OpenSSH
// authorized_keys line for the public half.
type Pair struct {
	PrivateKeyPEM string
	PublicKeyPEM  string
	PublicKeySSH  string
}

// Generate creates a new 2048 bit RSA key pair.
func Generate() (*Pair, error) {
	key, err := rsa.GenerateKey(rand.Reader, defaultBits)
	if err != nil {
		return nil, fmt.Errorf("generating rsa key: %w", err)
	}

	privPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})

	pair, err := publicParts(&key.PublicKey)
	if err != nil {
		return nil, err
	}
	pair.PrivateKeyPEM = string(privPEM)
	return pair, nil
}

// FromPrivatePEM derives the public encodings from an existing private
// key, so user-supplied key pairs get the same fields as generated
// ones.
func FromPrivatePEM(privateKeyPEM string) (*Pair, error) {
	block, _ := pem.Decode([]byte(privateKeyPEM))
	if block == nil {
		return nil, fmt.Errorf("no PEM block found in private key")
	}
	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		pkcs8, err8 := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err8 != nil {
			return nil, fmt.Errorf("parsing private key: %w", err)
		}
		rsaKey, ok := pkcs8.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("private key is not RSA")
		}
		key = rsaKey
	}

	pair, err := publicParts(&key.PublicKey)
	if err != nil {
		return nil, err
	}
	pair.PrivateKeyPEM = privateKeyPEM
	return pair, nil
}

func publicParts(pub *rsa.PublicKey) (*Pair, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("encoding public key: %w", err)
	}
	pubPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: der,
	})

	sshKey, err := ssh.NewPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("converting public key to ssh format: %w", err)
	}

	return &Pair{
		PublicKeyPEM: string(pubPEM),
		PublicKeySSH: string(ssh.MarshalAuthorizedKey(sshKey)),
	}, nil
}
