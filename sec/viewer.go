package sec

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// PermissionReadDocument lets a viewer open the document without editing it
const PermissionReadDocument = "read-document"

const DefaultViewerExpireSeconds = 3600

type ViewerConf struct {
	PrivateKey    string `json:"private_key"`    // PEM file path, relative to the app root if not absolute
	KID           string `json:"kid"`            // derived from the public key if empty
	ExpireSeconds int    `json:"expire_seconds"` // DefaultViewerExpireSeconds if <= 0
}

// ViewerClaims are the claims a document server viewer expects
type ViewerClaims struct {
	DocumentID  string   `json:"document_id"`
	Layer       string   `json:"layer,omitempty"`
	Permissions []string `json:"permissions"`
	jwt.RegisteredClaims
}

// ViewerTokenIssuer signs RS256 viewer tokens for layers of one document
type ViewerTokenIssuer struct {
	Key        *rsa.PrivateKey
	KID        string
	DocumentID string
	Expire     time.Duration

	now func() time.Time
}

func NewViewerTokenIssuer(key *rsa.PrivateKey, conf ViewerConf, documentID string) (*ViewerTokenIssuer, error) {
	if key == nil {
		return nil, errors.New("viewer token: private key required")
	}
	kid := conf.KID
	if kid == "" {
		var err error
		if kid, err = GenerateKeyID(&key.PublicKey, 16); err != nil {
			return nil, err
		}
	}
	expireSeconds := conf.ExpireSeconds
	if expireSeconds <= 0 {
		expireSeconds = DefaultViewerExpireSeconds
	}
	return &ViewerTokenIssuer{
		Key:        key,
		KID:        kid,
		DocumentID: documentID,
		Expire:     time.Duration(expireSeconds) * time.Second,
		now:        time.Now,
	}, nil
}

// PublicPEM is the key to configure on the document server for this issuer
func (i *ViewerTokenIssuer) PublicPEM() ([]byte, error) {
	return EncodePublicPEM(&i.Key.PublicKey)
}

// Issue returns a signed token granting read access to layer
func (i *ViewerTokenIssuer) Issue(layer string) (string, error) {
	now := i.now()
	claims := ViewerClaims{
		DocumentID:  i.DocumentID,
		Layer:       layer,
		Permissions: []string{PermissionReadDocument},
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.Expire)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = i.KID
	return token.SignedString(i.Key)
}

// ParseViewerToken verifies signedToken with pubKey and returns its claims
func ParseViewerToken(signedToken string, pubKey *rsa.PublicKey) (*ViewerClaims, string, error) {
	claims := &ViewerClaims{}
	token, err := jwt.ParseWithClaims(signedToken, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return pubKey, nil
	})
	if err != nil {
		return nil, "", err
	}
	kid, _ := token.Header["kid"].(string)
	return claims, kid, nil
}
