package gate

import (
	"errors"
	"strings"
	"testing"
	"time"

	v1 "github.com/aevon-lab/trackgate/internal/api/v1"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func signedEvent(t *testing.T, s *MarkerSigner, evt *v1.TrackingEvent, at time.Time) string {
	t.Helper()
	digest, err := evt.Digest()
	require.NoError(t, err)
	token, err := s.Sign(Marker{Event: evt.Event, ValidatedAt: at, Validated: true, Digest: digest})
	require.NoError(t, err)
	return token
}

func TestMarker_RoundTrip(t *testing.T) {
	s, err := NewMarkerSigner(testSecret, "trackgate", time.Minute)
	require.NoError(t, err)

	now := time.Now().Truncate(time.Second)
	evt := &v1.TrackingEvent{Event: "pageview", Properties: map[string]interface{}{"path": "/pricing"}}
	token := signedEvent(t, s, evt, now)

	m, err := s.Verify(token, evt)
	require.NoError(t, err)
	assert.Equal(t, "pageview", m.Event)
	assert.True(t, m.Validated)
	assert.True(t, m.ValidatedAt.Equal(now))
}

func TestMarker_VerifyFailures(t *testing.T) {
	s, err := NewMarkerSigner(testSecret, "trackgate", time.Minute)
	require.NoError(t, err)

	evt := &v1.TrackingEvent{Event: "pageview", Properties: map[string]interface{}{"path": "/pricing"}}
	valid := signedEvent(t, s, evt, time.Now())

	other, err := NewMarkerSigner(strings.Repeat("x", 32), "trackgate", time.Minute)
	require.NoError(t, err)
	wrongIssuer, err := NewMarkerSigner(testSecret, "someone-else", time.Minute)
	require.NoError(t, err)

	unvalidated, err := s.Sign(Marker{Event: "pageview", ValidatedAt: time.Now(), Validated: false})
	require.NoError(t, err)

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"iss": "trackgate",
		"exp": time.Now().Add(time.Minute).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		event *v1.TrackingEvent
		want  error
	}{
		{"missing", "", evt, ErrMarkerMissing},
		{"garbage", "not-a-token", evt, ErrMarkerInvalid},
		{"other key", signedEvent(t, other, evt, time.Now()), evt, ErrMarkerInvalid},
		{"wrong issuer", signedEvent(t, wrongIssuer, evt, time.Now()), evt, ErrMarkerInvalid},
		{"expired", signedEvent(t, s, evt, time.Now().Add(-2*time.Minute)), evt, ErrMarkerInvalid},
		{"alg none", noneToken, evt, ErrMarkerInvalid},
		{"not validated", unvalidated, evt, ErrMarkerInvalid},
		{"other event", valid, &v1.TrackingEvent{Event: "signup", Properties: evt.Properties}, ErrMarkerMismatch},
		{"tampered properties", valid, &v1.TrackingEvent{Event: "pageview", Properties: map[string]interface{}{"path": "/admin"}}, ErrMarkerMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Verify(tt.token, tt.event)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestMarker_RejectsExpiredWithClock(t *testing.T) {
	s, err := NewMarkerSigner(testSecret, "trackgate", time.Minute)
	require.NoError(t, err)

	evt := &v1.TrackingEvent{Event: "pageview", Properties: map[string]interface{}{}}
	issued := time.Now()
	token := signedEvent(t, s, evt, issued)

	s.now = func() time.Time { return issued.Add(30 * time.Second) }
	_, err = s.Verify(token, evt)
	require.NoError(t, err)

	s.now = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err = s.Verify(token, evt)
	require.ErrorIs(t, err, ErrMarkerInvalid)
}

func TestNewMarkerSigner(t *testing.T) {
	_, err := NewMarkerSigner("short", "trackgate", time.Minute)
	require.Error(t, err)

	_, err = NewMarkerSigner(testSecret, "trackgate", 0)
	require.Error(t, err)

	a, err := NewMarkerSigner("", "trackgate", time.Minute)
	require.NoError(t, err)
	b, err := NewMarkerSigner("", "trackgate", time.Minute)
	require.NoError(t, err)
	assert.Len(t, a.key, minSecretLength)
	assert.NotEqual(t, a.key, b.key)
}
