package handlers

import (
	"github.com/valyala/fasthttp"

	"drivepulse/internal/telemetry"
)

// BatchUpload stores one batch of offline-collected telemetry. Any
// authenticated user may upload to any existing session.
func BatchUpload(svc *telemetry.Service) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if _, ok := MustUser(ctx); !ok {
			return
		}
		var req telemetry.BatchRequest
		if !decodeBody(ctx, &req) {
			return
		}

		res, err := svc.BatchUpload(ctx, &req)
		if err != nil {
			recordBatch("failed", nil)
			writeServiceError(ctx, err, "Upload failed")
			return
		}

		recordBatch("committed", map[string]int{
			"measurements": len(req.Measurements),
			"speed_tests":  len(req.SpeedTests),
			"events":       len(req.Events),
			"mos_feedback": len(req.MosFeedback),
		})
		jsonResponse(ctx, fasthttp.StatusOK, res)
	}
}
