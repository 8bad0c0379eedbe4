package handlers

import (
	"errors"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"

	"drivepulse/internal/auth"
	dbpkg "drivepulse/internal/db"
	httpctx "drivepulse/internal/http/ctx"
	"drivepulse/internal/logging"
	"drivepulse/internal/telemetry"
	"drivepulse/internal/validation"
)

// MustUser returns the current user from context, or sends 401 and returns (nil, false).
func MustUser(ctx *fasthttp.RequestCtx) (*dbpkg.User, bool) {
	user, ok := httpctx.UserFromCtx(ctx)
	if !ok {
		ctx.Response.Header.Set("WWW-Authenticate", "Bearer")
		errResponse(ctx, fasthttp.StatusUnauthorized, "Not authenticated")
		return nil, false
	}
	return user, true
}

func jsonResponse(ctx *fasthttp.RequestCtx, code int, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		logging.Error().Err(err).Msg("encode response")
		errResponse(ctx, fasthttp.StatusInternalServerError, "Internal server error")
		return
	}
	ctx.SetStatusCode(code)
	ctx.SetContentType("application/json")
	ctx.SetBody(body)
}

// errResponse writes {"detail": detail}, the error shape clients read.
func errResponse(ctx *fasthttp.RequestCtx, code int, detail any) {
	body, _ := json.Marshal(map[string]any{"detail": detail})
	ctx.SetStatusCode(code)
	ctx.SetContentType("application/json")
	ctx.SetBody(body)
}

// validationDetail lists each failed field; it mirrors the loc/msg/type
// entries clients already parse for 422 responses.
type validationDetail struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

// writeServiceError maps service errors to status codes. Storage and
// unknown errors are logged and answered with failMsg so no internals
// reach the client.
func writeServiceError(ctx *fasthttp.RequestCtx, err error, failMsg string) {
	var verr *validation.RequestValidationError
	switch {
	case errors.As(err, &verr):
		details := make([]validationDetail, 0, len(verr.Fields))
		for _, f := range verr.Fields {
			details = append(details, validationDetail{
				Loc:  []string{"body", f.Field},
				Msg:  f.Error(),
				Type: f.Tag,
			})
		}
		errResponse(ctx, fasthttp.StatusUnprocessableEntity, details)
	case errors.Is(err, telemetry.ErrInvalidInput), errors.Is(err, auth.ErrInvalidInput):
		errResponse(ctx, fasthttp.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, telemetry.ErrSessionNotFound):
		errResponse(ctx, fasthttp.StatusNotFound, "Session not found")
	case errors.Is(err, telemetry.ErrForbidden):
		errResponse(ctx, fasthttp.StatusForbidden, "Not authorized to modify this session")
	case errors.Is(err, auth.ErrEmailTaken):
		errResponse(ctx, fasthttp.StatusBadRequest, "Email already registered")
	case errors.Is(err, auth.ErrInvalidCredentials):
		ctx.Response.Header.Set("WWW-Authenticate", "Bearer")
		errResponse(ctx, fasthttp.StatusUnauthorized, "Incorrect email or password")
	case errors.Is(err, auth.ErrUnauthorized):
		ctx.Response.Header.Set("WWW-Authenticate", "Bearer")
		errResponse(ctx, fasthttp.StatusUnauthorized, "Could not validate credentials")
	default:
		logging.Error().Err(err).
			Bytes("method", ctx.Method()).
			Bytes("path", ctx.Path()).
			Msg(failMsg)
		errResponse(ctx, fasthttp.StatusInternalServerError, failMsg)
	}
}

// decodeBody unmarshals the JSON request body into v, answering 400 on
// malformed input.
func decodeBody(ctx *fasthttp.RequestCtx, v any) bool {
	body := ctx.PostBody()
	if len(body) == 0 {
		errResponse(ctx, fasthttp.StatusBadRequest, "request body is required")
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		errResponse(ctx, fasthttp.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// sessionIDParam parses the {id} route parameter. A malformed id is a
// 422, like any other invalid path parameter.
func sessionIDParam(ctx *fasthttp.RequestCtx) (uuid.UUID, bool) {
	raw, _ := ctx.UserValue("id").(string)
	id, err := uuid.Parse(raw)
	if err != nil {
		errResponse(ctx, fasthttp.StatusUnprocessableEntity, []validationDetail{{
			Loc:  []string{"path", "session_id"},
			Msg:  "session_id must be a valid UUID",
			Type: "uuid",
		}})
		return uuid.Nil, false
	}
	return id, true
}
