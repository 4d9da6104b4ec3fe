package middlewares

// gin context keys
const (
	CtxRequestID = "request_id"
	ctxIdentity  = "auth.identity"
)
