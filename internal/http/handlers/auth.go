package handlers

import (
	"github.com/valyala/fasthttp"

	"drivepulse/internal/auth"
)

func Register(svc *auth.Service) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		var req auth.RegisterRequest
		if !decodeBody(ctx, &req) {
			return
		}

		user, err := svc.Register(ctx, &req)
		if err != nil {
			writeServiceError(ctx, err, "Registration failed")
			return
		}
		jsonResponse(ctx, fasthttp.StatusOK, user)
	}
}

func Login(svc *auth.Service) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		var req auth.LoginRequest
		if !decodeBody(ctx, &req) {
			return
		}

		token, err := svc.Login(ctx, &req)
		if err != nil {
			writeServiceError(ctx, err, "Login failed")
			return
		}
		jsonResponse(ctx, fasthttp.StatusOK, token)
	}
}

// Me returns the authenticated user.
func Me() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}
		jsonResponse(ctx, fasthttp.StatusOK, auth.ViewOf(user))
	}
}
