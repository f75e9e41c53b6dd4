// Package auth resolves the current actor from a bearer token. Credential
// storage and login flows live outside this service; the token store only
// maps opaque tokens to an identity and role.
package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/freightdesk/freightdesk/internal/platform/httpx"
)

// Role restricts what an actor may do.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleOperator Role = "operator"
)

// Actor is the resolved identity attached to a request.
type Actor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role"`
}

type actorContextKey struct{}

// ContextWithActor stores the actor in context.
func ContextWithActor(ctx context.Context, actor *Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the actor, or nil for anonymous requests.
func ActorFromContext(ctx context.Context) *Actor {
	actor, _ := ctx.Value(actorContextKey{}).(*Actor)
	return actor
}

// ActorName returns a stable label for audit trails.
func ActorName(ctx context.Context) string {
	if actor := ActorFromContext(ctx); actor != nil {
		return actor.Name
	}
	return "anonymous"
}

// Resolver looks up actors by token in Redis. Tokens are stored hashed so a
// dump of the store does not leak usable credentials.
type Resolver struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewResolver builds a Resolver.
func NewResolver(rdb *redis.Client, ttl time.Duration) *Resolver {
	return &Resolver{rdb: rdb, ttl: ttl}
}

// IssueToken registers an actor and returns the opaque bearer token.
func (r *Resolver) IssueToken(ctx context.Context, actor Actor) (string, error) {
	if actor.ID == "" || actor.Role == "" {
		return "", errors.New("auth: actor id and role required")
	}
	token := uuid.NewString()
	data, err := json.Marshal(actor)
	if err != nil {
		return "", err
	}
	if err := r.rdb.Set(ctx, tokenKey(token), data, r.ttl).Err(); err != nil {
		return "", fmt.Errorf("auth: store token: %w", err)
	}
	return token, nil
}

// Resolve maps a bearer token to its actor.
func (r *Resolver) Resolve(ctx context.Context, token string) (*Actor, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: missing token", httpx.ErrValidation)
	}
	data, err := r.rdb.Get(ctx, tokenKey(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: unknown token", httpx.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("auth: resolve token: %w", err)
	}
	var actor Actor
	if err := json.Unmarshal(data, &actor); err != nil {
		return nil, fmt.Errorf("auth: decode actor: %w", err)
	}
	return &actor, nil
}

// Revoke drops a token.
func (r *Resolver) Revoke(ctx context.Context, token string) error {
	return r.rdb.Del(ctx, tokenKey(token)).Err()
}

func tokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "auth:token:" + hex.EncodeToString(sum[:])
}

// Middleware resolves the Authorization header into a context actor.
// Requests without a token pass through anonymous; role gates decide later.
func (r *Resolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		token := bearerToken(req)
		if token == "" {
			next.ServeHTTP(w, req)
			return
		}
		actor, err := r.Resolve(req.Context(), token)
		if err != nil {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid or expired token")
			return
		}
		next.ServeHTTP(w, req.WithContext(ContextWithActor(req.Context(), actor)))
	})
}

// RequireOperator rejects requests whose actor is not an operator.
func RequireOperator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		actor := ActorFromContext(req.Context())
		if actor == nil {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
			return
		}
		if actor.Role != RoleOperator {
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "operator role required")
			return
		}
		next.ServeHTTP(w, req)
	})
}

func bearerToken(req *http.Request) string {
	header := req.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
