package middleware

import (
	"bytes"
	"context"
	"errors"
	"strings"

	"github.com/goccy/go-json"
	"github.com/valyala/fasthttp"

	"drivepulse/internal/auth"
	dbpkg "drivepulse/internal/db"
	httpctx "drivepulse/internal/http/ctx"
	"drivepulse/internal/logging"
)

// Authenticator resolves a bearer token to a user. *auth.Service
// implements it.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*dbpkg.User, error)
}

// BearerAuth validates "Authorization: Bearer <jwt>" and stores the
// resolved user on the request.
func BearerAuth(authn Authenticator) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			header := ctx.Request.Header.Peek("Authorization")
			if len(header) == 0 {
				unauthorized(ctx, "Not authenticated")
				return
			}

			const prefix = "bearer "
			if len(header) < len(prefix) || !bytes.EqualFold(header[:len(prefix)], []byte(prefix)) {
				unauthorized(ctx, "Not authenticated")
				return
			}

			token := strings.TrimSpace(string(header[len(prefix):]))
			if token == "" {
				unauthorized(ctx, "Not authenticated")
				return
			}

			user, err := authn.Authenticate(ctx, token)
			if err != nil {
				if errors.Is(err, auth.ErrUnauthorized) {
					unauthorized(ctx, "Could not validate credentials")
					return
				}
				logging.Error().Err(err).Msg("authenticate request")
				writeDetail(ctx, fasthttp.StatusInternalServerError, "Internal server error")
				return
			}

			httpctx.SetUser(ctx, user)
			next(ctx)
		}
	}
}

func unauthorized(ctx *fasthttp.RequestCtx, detail string) {
	ctx.Response.Header.Set("WWW-Authenticate", "Bearer")
	writeDetail(ctx, fasthttp.StatusUnauthorized, detail)
}

func writeDetail(ctx *fasthttp.RequestCtx, code int, detail string) {
	body, _ := json.Marshal(map[string]string{"detail": detail})
	ctx.SetStatusCode(code)
	ctx.SetContentType("application/json")
	ctx.SetBody(body)
}
