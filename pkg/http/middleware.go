package http

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/klwxsrx/go-throttle/pkg/observability"
)

const RequestIDHeader = "X-Request-ID"

func WithMW(mw ServerMiddleware) ServerOption {
	return func(router *mux.Router) {
		router.Use(mux.MiddlewareFunc(mw))
	}
}

func WithCORSHandler() ServerOption {
	return func(router *mux.Router) {
		router.Use(mux.CORSMethodMiddleware(router))
	}
}

// WithRequestID takes the request id from the header or generates a new one.
func WithRequestID(observer observability.Observer) ServerOption {
	return WithMW(func(handler http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if id == "" {
				id = uuid.New().String()
			}

			w.Header().Set(RequestIDHeader, id)
			handler.ServeHTTP(w, r.WithContext(observer.WithRequestID(r.Context(), id)))
		})
	})
}
