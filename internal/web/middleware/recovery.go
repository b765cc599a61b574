package middleware

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	webcontext "github.com/habitnation/habitnation/internal/web/context"
	"github.com/habitnation/habitnation/internal/web/response"
)

// Recovery turns handler panics into a JSON 500. When expose is set the
// panic value is returned to the client.
func Recovery(expose bool) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					err := fmt.Errorf("panic: %v", rec)
					webcontext.Logger(r.Context()).Error("handler panicked",
						zap.Error(err),
						zap.String("method", r.Method),
						zap.String("path", r.URL.Path),
						zap.Stack("stack"),
					)
					response.RenderInternalError(w, err, expose)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
