package handlers

import (
	"bytes"

	"github.com/valyala/fasthttp"

	"drivepulse/internal/telemetry"
)

// ExportCSV buffers the export; a failure part way through is a 500 with
// no partial file.
func ExportCSV(svc *telemetry.Service) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}
		id, ok := sessionIDParam(ctx)
		if !ok {
			return
		}

		var buf bytes.Buffer
		if err := svc.ExportCSV(ctx, id, user.ID, &buf); err != nil {
			writeServiceError(ctx, err, "Export failed")
			return
		}

		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetContentType("text/csv")
		ctx.Response.Header.Set("Content-Disposition", "attachment; filename=session_"+id.String()+".csv")
		ctx.SetBody(buf.Bytes())
	}
}
