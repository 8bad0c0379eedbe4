package handlers

import (
	"github.com/valyala/fasthttp"

	"drivepulse/internal/telemetry"
)

func SessionSummary(svc *telemetry.Service) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}
		id, ok := sessionIDParam(ctx)
		if !ok {
			return
		}

		summary, err := svc.Summary(ctx, id, user.ID)
		if err != nil {
			writeServiceError(ctx, err, "Summary failed")
			return
		}
		jsonResponse(ctx, fasthttp.StatusOK, summary)
	}
}

func SessionMap(svc *telemetry.Service) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}
		id, ok := sessionIDParam(ctx)
		if !ok {
			return
		}

		points, err := svc.MapPoints(ctx, id, user.ID)
		if err != nil {
			writeServiceError(ctx, err, "Map query failed")
			return
		}
		jsonResponse(ctx, fasthttp.StatusOK, points)
	}
}

func MosCorrelation(svc *telemetry.Service) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}
		id, ok := sessionIDParam(ctx)
		if !ok {
			return
		}

		corr, err := svc.MosCorrelation(ctx, id, user.ID)
		if err != nil {
			writeServiceError(ctx, err, "Correlation failed")
			return
		}
		jsonResponse(ctx, fasthttp.StatusOK, corr)
	}
}
