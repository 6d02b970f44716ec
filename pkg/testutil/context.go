package testutil

import (
	"net/http"

	"rostersync/pkg/requestcontext"
)

// WithAdminToken sets the operator token header the admin routes check.
func WithAdminToken(req *http.Request, token string) *http.Request {
	req.Header.Set("X-Admin-Token", token)
	return req
}

// WithActor adds an acting operator to the request context.
// This simulates what the admin middleware does when X-Actor is present.
func WithActor(req *http.Request, actor string) *http.Request {
	return req.WithContext(requestcontext.WithActor(req.Context(), actor))
}
