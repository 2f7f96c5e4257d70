package main

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/domino14/srs_scheduler/internal/auth"
)

var testKey = []byte("sekrit")

func signed(t *testing.T, method jwt.SigningMethod, key any, claims jwt.MapClaims) http.Header {
	t.Helper()
	tok, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	h := http.Header{}
	h.Set("Authorization", "Bearer "+tok)
	return h
}

func goodClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub": "42",
		"iss": "srs-scheduler",
		"usn": "cesar",
		"exp": time.Now().Add(time.Hour).Unix(),
	}
}

func TestAuthenticateJWT(t *testing.T) {
	ctx, err := authenticateJWT(context.Background(), signed(t, jwt.SigningMethodHS256, testKey, goodClaims()), testKey)
	require.NoError(t, err)
	u := auth.UserFromContext(ctx)
	require.NotNil(t, u)
	assert.Equal(t, int64(42), u.ID)
	assert.Equal(t, "cesar", u.Name)
}

func TestAuthenticateJWTRejects(t *testing.T) {
	expired := goodClaims()
	expired["exp"] = time.Now().Add(-time.Hour).Unix()
	badIss := goodClaims()
	badIss["iss"] = "example.com"
	badSub := goodClaims()
	badSub["sub"] = "cesar"
	noUsn := goodClaims()
	delete(noUsn, "usn")

	cases := map[string]http.Header{
		"missing":    {},
		"not bearer": {"Authorization": []string{"Basic abc"}},
		"wrong key":  signed(t, jwt.SigningMethodHS256, []byte("other"), goodClaims()),
		"expired":    signed(t, jwt.SigningMethodHS256, testKey, expired),
		"issuer":     signed(t, jwt.SigningMethodHS256, testKey, badIss),
		"subject":    signed(t, jwt.SigningMethodHS256, testKey, badSub),
		"username":   signed(t, jwt.SigningMethodHS256, testKey, noUsn),
		"alg none":   signed(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, goodClaims()),
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := authenticateJWT(context.Background(), h, testKey)
			assert.Error(t, err)
		})
	}
}
