package gate

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	v1 "github.com/aevon-lab/trackgate/internal/api/v1"
	"github.com/golang-jwt/jwt/v5"
)

// MarkerHeader carries the signed trust marker from the gate to the tracking handler.
const MarkerHeader = "X-Trackgate-Marker"

const minSecretLength = 32

var (
	ErrMarkerMissing  = errors.New("trust marker missing")
	ErrMarkerInvalid  = errors.New("trust marker invalid")
	ErrMarkerMismatch = errors.New("trust marker does not match payload")
)

// Marker attests that a payload passed validation at the gate.
type Marker struct {
	Event       string
	ValidatedAt time.Time
	Validated   bool

	// Digest is the SHA-256 of the canonical event name and properties.
	Digest string
}

type markerClaims struct {
	Event     string `json:"evt"`
	Validated bool   `json:"validated"`
	Digest    string `json:"digest"`
	jwt.RegisteredClaims
}

// MarkerSigner signs and verifies trust markers as HS256 JWTs.
type MarkerSigner struct {
	key    []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewMarkerSigner creates a signer. An empty secret generates a random key, so
// markers are only valid within this process.
func NewMarkerSigner(secret, issuer string, ttl time.Duration) (*MarkerSigner, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("marker ttl must be > 0")
	}
	key := []byte(secret)
	if secret == "" {
		key = make([]byte, minSecretLength)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("failed to generate marker key: %w", err)
		}
	} else if len(key) < minSecretLength {
		return nil, fmt.Errorf("marker secret must be at least %d bytes", minSecretLength)
	}
	return &MarkerSigner{
		key:    key,
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// Sign issues a marker for a validated event.
func (s *MarkerSigner) Sign(m Marker) (string, error) {
	claims := markerClaims{
		Event:     m.Event,
		Validated: m.Validated,
		Digest:    m.Digest,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(m.ValidatedAt),
			ExpiresAt: jwt.NewNumericDate(m.ValidatedAt.Add(s.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign marker: %w", err)
	}
	return token, nil
}

// Verify checks the token signature, issuer and expiry, and that it attests
// exactly this event payload.
func (s *MarkerSigner) Verify(token string, event *v1.TrackingEvent) (*Marker, error) {
	if token == "" {
		return nil, ErrMarkerMissing
	}

	var claims markerClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMarkerInvalid, err)
	}
	if !claims.Validated {
		return nil, fmt.Errorf("%w: payload not validated", ErrMarkerInvalid)
	}

	digest, err := event.Digest()
	if err != nil {
		return nil, err
	}
	if claims.Event != event.Event || claims.Digest != digest {
		return nil, ErrMarkerMismatch
	}

	m := &Marker{
		Event:     claims.Event,
		Validated: claims.Validated,
		Digest:    claims.Digest,
	}
	if claims.IssuedAt != nil {
		m.ValidatedAt = claims.IssuedAt.Time
	}
	return m, nil
}
