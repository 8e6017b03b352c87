package http

import (
	"net/http"

	"github.com/klwxsrx/go-throttle/pkg/log"
)

func WithLogging(logger log.Logger, excludedPaths ...string) ServerOption {
	excludedPaths = append(excludedPaths,
		HealthPath,
	)

	isExcluded := func(path string) bool {
		for _, excludedPath := range excludedPaths {
			if excludedPath == path {
				return true
			}
		}
		return false
	}

	return WithMW(func(handler http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isExcluded(r.URL.Path) {
				handler.ServeHTTP(w, r)
				return
			}

			handler.ServeHTTP(w, r)
			meta := getHandlerMetadata(r.Context())

			logger := getRequestResponseFieldsLogger(r, meta.Code, logger).
				WithField("routeName", routeName(r))
			switch {
			case meta.Panic != nil:
				logger.
					WithField("panic", meta.Panic.Message).
					WithField("stacktrace", string(meta.Panic.Stacktrace)).
					Error(r.Context(), "request handled with panic")
			case meta.Code >= http.StatusInternalServerError:
				logger.WithError(meta.Error).Error(r.Context(), "request handled with internal error")
			case meta.Error != nil:
				logger.WithError(meta.Error).Warn(r.Context(), "request handled with error")
			default:
				logger.Info(r.Context(), "request handled")
			}
		})
	})
}

func getRequestFieldsLogger(r *http.Request, logger log.Logger) log.Logger {
	return logger.With(log.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
	})
}

func getRequestResponseFieldsLogger(r *http.Request, code int, logger log.Logger) log.Logger {
	return getRequestFieldsLogger(r, logger).WithField("responseCode", code)
}
