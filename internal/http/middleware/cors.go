package middleware

import (
	"github.com/valyala/fasthttp"
)

const (
	corsAllowMethods = "GET, POST, PUT, PATCH, DELETE, OPTIONS"
	corsMaxAge       = "600"
)

// CORS adds Access-Control headers for the configured origins and answers
// preflight requests. An origins list containing "*" allows any origin;
// the request's Origin is echoed back so credentials keep working.
func CORS(origins []string) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	allowAll := false
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = struct{}{}
	}

	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			origin := string(ctx.Request.Header.Peek("Origin"))
			if origin == "" {
				next(ctx)
				return
			}

			_, ok := allowed[origin]
			if !allowAll && !ok {
				next(ctx)
				return
			}

			h := &ctx.Response.Header
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Add("Vary", "Origin")

			if ctx.IsOptions() && len(ctx.Request.Header.Peek("Access-Control-Request-Method")) > 0 {
				h.Set("Access-Control-Allow-Methods", corsAllowMethods)
				if reqHeaders := ctx.Request.Header.Peek("Access-Control-Request-Headers"); len(reqHeaders) > 0 {
					h.SetBytesV("Access-Control-Allow-Headers", reqHeaders)
				}
				h.Set("Access-Control-Max-Age", corsMaxAge)
				ctx.SetStatusCode(fasthttp.StatusOK)
				return
			}

			next(ctx)
		}
	}
}
