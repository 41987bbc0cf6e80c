package grpc

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

var ErrBadToken = errors.New("invalid token")

type Claims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

type userIDKey struct{}

// public methods are callable without a token.
var public = map[string]bool{
	MethodCheckAvailability: true,
	MethodListProviders:     true,
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey{}).(string)
	return id, ok && id != ""
}

func IssueToken(userID, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	c := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
}

func ParseToken(raw, secret string) (*Claims, error) {
	tok, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		// block alg confusion
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrBadToken
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	c, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid || strings.TrimSpace(c.UserID) == "" {
		return nil, ErrBadToken
	}
	return c, nil
}

// AuthInterceptor resolves the calling user from an "authorization: Bearer"
// JWT signed with secret. When trustHeader is set and secret is empty the
// x-user-id header is taken as the caller instead; that is only meant for local
// development. With neither, only public methods can be called.
func AuthInterceptor(secret string, trustHeader bool, log *slog.Logger) grpc.UnaryServerInterceptor {
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("component", "grpc.auth"))

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		md, _ := metadata.FromIncomingContext(ctx)

		if secret == "" && trustHeader {
			if vals := md.Get("x-user-id"); len(vals) > 0 && strings.TrimSpace(vals[0]) != "" {
				ctx = WithUserID(ctx, strings.TrimSpace(vals[0]))
			}
			return next(ctx, req)
		}

		raw := ""
		if vals := md.Get("authorization"); len(vals) > 0 {
			raw = strings.TrimSpace(strings.TrimPrefix(vals[0], "Bearer "))
		}
		if raw == "" {
			if public[info.FullMethod] {
				return next(ctx, req)
			}
			return nil, status.Error(codes.Unauthenticated, "no token")
		}
		if secret == "" {
			log.Warn("token presented but no secret configured", slog.String("method", info.FullMethod))
			return nil, status.Error(codes.Unauthenticated, "bad token")
		}

		claims, err := ParseToken(raw, secret)
		if err != nil {
			log.Warn("token rejected", slog.String("method", info.FullMethod), slog.Any("err", err))
			return nil, status.Error(codes.Unauthenticated, "bad token")
		}
		return next(WithUserID(ctx, claims.UserID), req)
	}
}
