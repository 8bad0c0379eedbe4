package ctx

import (
	"github.com/valyala/fasthttp"

	dbpkg "drivepulse/internal/db"
)

const UserKey = "user"

// SetUser stores the authenticated user for the rest of the request.
func SetUser(ctx *fasthttp.RequestCtx, user *dbpkg.User) {
	ctx.SetUserValue(UserKey, user)
}

func UserFromCtx(ctx *fasthttp.RequestCtx) (*dbpkg.User, bool) {
	u, ok := ctx.UserValue(UserKey).(*dbpkg.User)
	if !ok || u == nil {
		return nil, false
	}
	return u, true
}
