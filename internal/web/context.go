package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/rowfetch/internal/core"
)

// withClient copies the client address and user agent into ctx so export
// history can record who started a run. RemoteAddr is already resolved by
// the TrustedRealIP middleware.
func withClient(r *http.Request) context.Context {
	return core.ContextWithClient(r.Context(), r.RemoteAddr, r.UserAgent())
}
