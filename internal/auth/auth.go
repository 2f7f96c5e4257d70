// Package auth carries the authenticated caller through a request context.
package auth

import (
	"context"
)

type ctxkey string

const userkey ctxkey = "autheduser"

// User is whoever a verified token says is calling.
type User struct {
	ID   int64
	Name string
}

func WithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, userkey, &u)
}

// UserFromContext returns nil for unauthenticated requests.
func UserFromContext(ctx context.Context) *User {
	u, ok := ctx.Value(userkey).(*User)
	if ok {
		return u
	}
	return nil
}
