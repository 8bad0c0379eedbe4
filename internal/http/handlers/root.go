package handlers

import (
	"github.com/valyala/fasthttp"

	"drivepulse/internal/logging"
)

func Root() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		jsonResponse(ctx, fasthttp.StatusOK, map[string]string{"message": "DrivePulse API is running"})
	}
}

func NotFound() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		errResponse(ctx, fasthttp.StatusNotFound, "Not Found")
	}
}

func MethodNotAllowed() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		errResponse(ctx, fasthttp.StatusMethodNotAllowed, "Method Not Allowed")
	}
}

// Panic is the router's recover hook.
func Panic(ctx *fasthttp.RequestCtx, rcv interface{}) {
	logging.Error().
		Interface("panic", rcv).
		Bytes("method", ctx.Method()).
		Bytes("path", ctx.Path()).
		Msg("handler panicked")
	errResponse(ctx, fasthttp.StatusInternalServerError, "Internal server error")
}
