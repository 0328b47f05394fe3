package engine

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"log/slog"
	"os"

	"github.com/golang-jwt/jwt/v5"
)

// TokenIssuer signs and verifies RS256 JWTs with a key persisted on disk.
type TokenIssuer struct {
	Key *rsa.PrivateKey
}

func NewTokenIssuer(keyFile string) *TokenIssuer {
	t := &TokenIssuer{}
	t.loadOrGenerateKey(keyFile)
	return t
}

func (t *TokenIssuer) loadOrGenerateKey(file string) {
read:
	keyPEM, err := os.ReadFile(file)
	if err == nil {
		block, _ := pem.Decode(keyPEM)
		if block == nil {
			panic("no PEM block found in " + file)
		}
		t.Key, err = x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			panic(err)
		}
		return
	}
	if !os.IsNotExist(err) {
		panic(err)
	}

	slog.Info("generating RSA key", "file", file)
	pkey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		panic(err)
	}

	err = os.WriteFile(file, pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(pkey),
	}), 0600)
	if err != nil {
		panic(err)
	}

	goto read
}

func (t *TokenIssuer) Sign(claims *jwt.RegisteredClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return token.SignedString(t.Key)
}

// Verify parses the token and checks its signature and expiry.
// Expired tokens with a valid signature return their claims alongside an
// error matching jwt.ErrTokenExpired so callers can clean up after the session.
func (t *TokenIssuer) Verify(tok string) (*jwt.RegisteredClaims, error) {
	keyFunc := func(token *jwt.Token) (any, error) { return t.Key.Public(), nil }
	methods := jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()})

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tok, claims, keyFunc, methods)
	if errors.Is(err, jwt.ErrTokenExpired) {
		// only trust an expired token when its signature checks out
		if _, sigErr := jwt.ParseWithClaims(tok, &jwt.RegisteredClaims{}, keyFunc, methods, jwt.WithoutClaimsValidation()); sigErr != nil {
			return nil, sigErr
		}
		return claims, err
	}
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
