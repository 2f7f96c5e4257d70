package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"connectrpc.com/connect"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"

	"github.com/domino14/srs_scheduler/internal/auth"
)

var validIssuers = map[string]bool{
	"srs-scheduler": true,
	"srs.localhost": true,
}

// NewAuthInterceptor rejects calls without a valid bearer token signed with
// secretKey.
func NewAuthInterceptor(secretKey []byte) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			ctx, err := authenticateJWT(ctx, req.Header(), secretKey)
			if err != nil {
				return nil, connect.NewError(connect.CodeUnauthenticated, err)
			}
			return next(ctx, req)
		}
	}
}

func authenticateJWT(ctx context.Context, reqHeader http.Header, secretKey []byte) (context.Context, error) {
	authHeader := reqHeader.Get("Authorization")
	if authHeader == "" {
		return nil, errors.New("no auth method")
	}
	userToken, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok {
		return nil, errors.New("expected a bearer token")
	}

	token, err := jwt.Parse(userToken, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secretKey, nil
	})
	if err != nil {
		log.Ctx(ctx).Err(err).Msg("err-parsing-token")
		return nil, errors.New("could not parse token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("could not parse token claims")
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return nil, errors.New("could not parse uid claim")
	}
	uid, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return nil, errors.New("could not parse uid as an integer")
	}
	iss, ok := claims["iss"].(string)
	if !ok || !validIssuers[iss] {
		return nil, errors.New("unexpected iss claim")
	}
	usn, ok := claims["usn"].(string)
	if !ok || usn == "" {
		return nil, errors.New("unexpected usn claim")
	}
	return auth.WithUser(ctx, auth.User{ID: uid, Name: usn}), nil
}
