// Copyright (c) 2026 Mulita. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"net/http"

	"github.com/taibuivan/mulita/internal/platform/ctxkey"
)

// WithSession returns a context carrying the authorized session.
func WithSession(ctx context.Context, enriched *EnrichedContext) context.Context {
	return context.WithValue(ctx, ctxkey.KeySession, enriched)
}

// FromContext returns the session stored by the Guard, or nil.
func FromContext(ctx context.Context) *EnrichedContext {
	enriched, _ := ctx.Value(ctxkey.KeySession).(*EnrichedContext)
	return enriched
}

/*
RequiredSession returns the session of a Guard-protected request.

Returns:
  - error: ErrNotAuthenticated if the route was not wrapped by the Guard
*/
func RequiredSession(request *http.Request) (*EnrichedContext, error) {
	enriched := FromContext(request.Context())
	if enriched == nil {
		return nil, ErrNotAuthenticated
	}
	return enriched, nil
}
