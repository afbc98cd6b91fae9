// Package actorctx extracts the identity of the caller driving a write
// (user id, email, IP) from gRPC request metadata and carries it on the
// context so write paths can stamp it onto audit and compliance records.
package actorctx

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// Actor identifies who is driving the current request.
type Actor struct {
	UserID    string
	Email     string
	Role      string
	IPAddress string
}

type ctxKey struct{}

// UserExtractor pulls user identity out of ctx.
type UserExtractor interface {
	ExtractUser(ctx context.Context) (userID, email, role string, err error)
}

// IPExtractor pulls the caller's address out of ctx.
type IPExtractor interface {
	ExtractIP(ctx context.Context) string
}

// MetadataUserExtractor reads user-id/user-email/user-role from incoming
// gRPC metadata headers.
type MetadataUserExtractor struct{}

func (MetadataUserExtractor) ExtractUser(ctx context.Context) (userID, email, role string, err error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", "", "", nil
	}
	if values := md.Get("user-id"); len(values) > 0 {
		userID = values[0]
	}
	if values := md.Get("user-email"); len(values) > 0 {
		email = values[0]
	}
	if values := md.Get("user-role"); len(values) > 0 {
		role = values[0]
	}
	return
}

// MetadataIPExtractor reads x-forwarded-for from incoming gRPC metadata.
type MetadataIPExtractor struct{}

func (MetadataIPExtractor) ExtractIP(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if values := md.Get("x-forwarded-for"); len(values) > 0 {
		return values[0]
	}
	return ""
}

// WithActor stores actor on ctx.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, ctxKey{}, actor)
}

// FromContext returns the actor stashed by the interceptor, if any.
func FromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(ctxKey{}).(Actor)
	return a, ok
}

// UnaryServerInterceptor stashes the caller's identity onto the request
// context ahead of the handler, so repository write paths can read it via
// FromContext when stamping audit and compliance records.
func UnaryServerInterceptor(users UserExtractor, ips IPExtractor) grpc.UnaryServerInterceptor {
	if users == nil {
		users = MetadataUserExtractor{}
	}
	if ips == nil {
		ips = MetadataIPExtractor{}
	}
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		userID, email, role, err := users.ExtractUser(ctx)
		if err != nil {
			return handler(ctx, req)
		}
		actor := Actor{UserID: userID, Email: email, Role: role, IPAddress: ips.ExtractIP(ctx)}
		return handler(WithActor(ctx, actor), req)
	}
}
