package handlers

import (
	"github.com/valyala/fasthttp"

	"drivepulse/internal/telemetry"
)

func StartSession(svc *telemetry.Service) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}

		view, err := svc.StartSession(ctx, user.ID)
		if err != nil {
			writeServiceError(ctx, err, "Could not start session")
			return
		}
		jsonResponse(ctx, fasthttp.StatusOK, view)
	}
}

func EndSession(svc *telemetry.Service) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}
		id, ok := sessionIDParam(ctx)
		if !ok {
			return
		}
		var req telemetry.EndRequest
		if !decodeBody(ctx, &req) {
			return
		}

		view, err := svc.EndSession(ctx, id, &req, user.ID)
		if err != nil {
			writeServiceError(ctx, err, "Could not end session")
			return
		}
		jsonResponse(ctx, fasthttp.StatusOK, view)
	}
}
