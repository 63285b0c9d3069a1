package audit

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ReceiptClaims is the signed body of a decision receipt. A decision receipt
// is the artifact ARES financial commitments must reference by id (spec
// §4.4); it binds a commitment id to the decision card that authorized it.
type ReceiptClaims struct {
	jwt.RegisteredClaims
	CommitmentID string `json:"commitment_id"`
	DecisionID   string `json:"decision_id"`
}

// ReceiptSigner issues and validates decision receipts using Ed25519 (EdDSA),
// the same signing scheme the teacher's internal/auth.JWTManager uses for
// agent session tokens, repurposed here to bind a financial commitment to
// the PolicyDecisionCard that authorized it rather than to an RBAC identity.
type ReceiptSigner struct {
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey
}

// NewReceiptSigner generates an ephemeral Ed25519 key pair. Production
// deployments load persistent keys the same way the teacher does (PEM files
// via config); the core itself stays storage-agnostic.
func NewReceiptSigner() (*ReceiptSigner, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("audit: generate receipt signing key: %w", err)
	}
	return &ReceiptSigner{privateKey: priv, publicKey: pub}, nil
}

// NewReceiptSignerFromPEM loads a persistent Ed25519 key pair from PKCS8/PKIX
// PEM files, generated by scripts/genkey. Ephemeral keys (NewReceiptSigner)
// invalidate every decision receipt issued before a process restart; a
// persistent key lets receipts outlive the process that signed them.
func NewReceiptSignerFromPEM(privPath, pubPath string) (*ReceiptSigner, error) {
	privBytes, err := os.ReadFile(privPath)
	if err != nil {
		return nil, fmt.Errorf("audit: read private key: %w", err)
	}
	privBlock, _ := pem.Decode(privBytes)
	if privBlock == nil {
		return nil, fmt.Errorf("audit: %s is not PEM-encoded", privPath)
	}
	privAny, err := x509.ParsePKCS8PrivateKey(privBlock.Bytes)
	if err != nil {
		return nil, fmt.Errorf("audit: parse private key: %w", err)
	}
	priv, ok := privAny.(ed25519.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("audit: %s is not an Ed25519 private key", privPath)
	}

	pubBytes, err := os.ReadFile(pubPath)
	if err != nil {
		return nil, fmt.Errorf("audit: read public key: %w", err)
	}
	pubBlock, _ := pem.Decode(pubBytes)
	if pubBlock == nil {
		return nil, fmt.Errorf("audit: %s is not PEM-encoded", pubPath)
	}
	pubAny, err := x509.ParsePKIXPublicKey(pubBlock.Bytes)
	if err != nil {
		return nil, fmt.Errorf("audit: parse public key: %w", err)
	}
	pub, ok := pubAny.(ed25519.PublicKey)
	if !ok {
		return nil, fmt.Errorf("audit: %s is not an Ed25519 public key", pubPath)
	}

	return &ReceiptSigner{privateKey: priv, publicKey: pub}, nil
}

// IssueReceipt signs a decision receipt binding commitmentID to decisionID.
// The returned string is always well over the 6-non-whitespace-character
// minimum the spec requires of a decision-receipt id (§3 Financial Commitment).
func (s *ReceiptSigner) IssueReceipt(commitmentID, decisionID uuid.UUID) (string, error) {
	now := time.Now().UTC()
	claims := ReceiptClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "cac-ares",
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
		CommitmentID: commitmentID.String(),
		DecisionID:   decisionID.String(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	signed, err := token.SignedString(s.privateKey)
	if err != nil {
		return "", fmt.Errorf("audit: sign decision receipt: %w", err)
	}
	return signed, nil
}

// ValidateReceipt parses and verifies a decision receipt token.
func (s *ReceiptSigner) ValidateReceipt(token string) (*ReceiptClaims, error) {
	parsed, err := jwt.ParseWithClaims(token, &ReceiptClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("audit: unexpected signing method: %v", t.Header["alg"])
		}
		return s.publicKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("audit: validate decision receipt: %w", err)
	}
	claims, ok := parsed.Claims.(*ReceiptClaims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("audit: invalid decision receipt claims")
	}
	return claims, nil
}
