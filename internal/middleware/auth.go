// internal/middleware/auth.go
package middleware

import (
	"context"
	"log"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/gurkanbulca/storeflow/internal/models"
	"github.com/gurkanbulca/storeflow/internal/repository"
	"github.com/gurkanbulca/storeflow/pkg/auth"
)

// ActorResolver loads the staff member a token was issued for.
type ActorResolver interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Actor, error)
}

// AuthInterceptor provides authentication middleware
type AuthInterceptor struct {
	tokenManager   *auth.TokenManager
	actors         ActorResolver
	securityLogger *SecurityLogger
	publicMethods  map[string]bool
}

// NewAuthInterceptor creates a new auth interceptor. securityLogger may be nil.
func NewAuthInterceptor(tokenManager *auth.TokenManager, actors ActorResolver, securityLogger *SecurityLogger) *AuthInterceptor {
	publicMethods := map[string]bool{
		"/grpc.health.v1.Health/Check": true,
		"/grpc.health.v1.Health/Watch": true,
	}

	return &AuthInterceptor{
		tokenManager:   tokenManager,
		actors:         actors,
		securityLogger: securityLogger,
		publicMethods:  publicMethods,
	}
}

// AllowMethod marks a method as callable without a token.
func (a *AuthInterceptor) AllowMethod(fullMethod string) {
	a.publicMethods[fullMethod] = true
}

// Unary returns a unary server interceptor for authentication
func (a *AuthInterceptor) Unary() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		if a.publicMethods[info.FullMethod] {
			return handler(ctx, req)
		}

		newCtx, err := a.authenticate(ctx, info.FullMethod)
		if err != nil {
			return nil, err
		}

		return handler(newCtx, req)
	}
}

// Stream returns a stream server interceptor for authentication
func (a *AuthInterceptor) Stream() grpc.StreamServerInterceptor {
	return func(
		srv interface{},
		stream grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		if a.publicMethods[info.FullMethod] {
			return handler(srv, stream)
		}

		newCtx, err := a.authenticate(stream.Context(), info.FullMethod)
		if err != nil {
			return err
		}

		return handler(srv, &wrappedServerStream{ServerStream: stream, ctx: newCtx})
	}
}

// authenticate validates the bearer token and resolves the actor through the directory
func (a *AuthInterceptor) authenticate(ctx context.Context, method string) (context.Context, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing metadata")
	}

	authHeaders := md.Get("authorization")
	if len(authHeaders) == 0 {
		return nil, status.Error(codes.Unauthenticated, "missing authorization header")
	}

	token, err := auth.ExtractTokenFromHeader(authHeaders[0])
	if err != nil {
		a.securityLogger.LogTokenRejected(ctx, method, err.Error())
		return nil, status.Error(codes.Unauthenticated, err.Error())
	}

	actorID, err := a.tokenManager.Validate(token)
	if err != nil {
		a.securityLogger.LogTokenRejected(ctx, method, err.Error())
		return nil, status.Error(codes.Unauthenticated, "invalid token")
	}

	// Roles and the active flag are read per request so revocations apply immediately.
	actor, err := a.actors.GetByID(ctx, actorID)
	if err != nil {
		if repository.IsNotFound(err) {
			a.securityLogger.LogActorUnknown(ctx, actorID, method)
			return nil, status.Error(codes.Unauthenticated, "unknown actor")
		}
		log.Printf("[auth] Error: resolve actor %s: %v", actorID, err)
		return nil, status.Error(codes.Internal, "internal error")
	}
	if !actor.Active {
		a.securityLogger.LogActorInactive(ctx, actorID, method)
		return nil, status.Error(codes.Unauthenticated, "actor is inactive")
	}

	return WithActor(ctx, actor), nil
}

// WithActor stores the authenticated actor in the context
func WithActor(ctx context.Context, actor *models.Actor) context.Context {
	return context.WithValue(ctx, ContextKeyActor, actor)
}

// ActorFromContext returns the authenticated actor, if any
func ActorFromContext(ctx context.Context) (*models.Actor, bool) {
	actor, ok := ctx.Value(ContextKeyActor).(*models.Actor)
	return actor, ok && actor != nil
}

// RequireRole fails unless the authenticated actor holds one of roles.
func RequireRole(ctx context.Context, roles ...models.Role) error {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return status.Error(codes.Unauthenticated, "user not authenticated")
	}

	for _, role := range roles {
		if actor.HasRole(role) {
			return nil
		}
	}

	return status.Error(codes.PermissionDenied, "insufficient permissions")
}
