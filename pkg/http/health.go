package http

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
)

const HealthPath = "/healthz"

func WithHealthCheck(customHandlerFunc http.HandlerFunc) ServerOption {
	defaultHandler := func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(struct {
			Status string `json:"status"`
		}{
			Status: "OK",
		})
	}

	return func(router *mux.Router) {
		handler := defaultHandler
		if customHandlerFunc != nil {
			handler = customHandlerFunc
		}

		router.
			Name(getRouteName(http.MethodGet, HealthPath)).
			Methods(http.MethodGet).
			Path(HealthPath).
			HandlerFunc(handler)
	}
}

// WithRawHandler registers a plain http.Handler, e.g. the prometheus one.
func WithRawHandler(method, path string, handler http.Handler) ServerOption {
	return func(router *mux.Router) {
		router.
			Name(getRouteName(method, path)).
			Methods(method).
			Path(path).
			Handler(handler)
	}
}
