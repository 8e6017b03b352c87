package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gorilla/mux"

	pkgstrings "github.com/klwxsrx/go-throttle/pkg/strings"
)

type HandlerFunc func(w ResponseWriter, r *http.Request) (err error)

type Handler interface {
	Method() string
	Path() string
	HTTPHandler() HandlerFunc
}

type ResponseWriter interface {
	SetHeader(key, value string) ResponseWriter
	SetStatusCode(httpCode int) ResponseWriter
	SetJSONBody(data any) ResponseWriter
	SetBody(contentType string, body []byte) ResponseWriter
}

type RequestDataProvider[T any] func(*http.Request) (T, error)

type errorCode struct {
	code int
	errs []error
}

var ErrParsingError = errors.New("failed to parse request")

func Parse[T any](provider RequestDataProvider[T], from *http.Request, lastErr error) (T, error) {
	if lastErr != nil {
		var result T
		return result, lastErr
	}
	result, err := provider(from)
	if err != nil {
		return result, fmt.Errorf("%w: %s", ErrParsingError, err.Error())
	}
	return result, nil
}

func PathParameter[T any](param string) RequestDataProvider[T] {
	return func(r *http.Request) (T, error) {
		params := mux.Vars(r)
		paramValue, ok := params[param]
		if !ok {
			var result T
			return result, fmt.Errorf("path parameter %s not found", param)
		}
		return pkgstrings.ParseTypedValue[T](paramValue)
	}
}

func QueryParameter[T any](param string) RequestDataProvider[T] {
	return func(r *http.Request) (T, error) {
		value := r.URL.Query().Get(param)
		if value == "" {
			var result T
			return result, fmt.Errorf("query parameter %s not found", param)
		}
		return pkgstrings.ParseTypedValue[T](value)
	}
}

func Header[T any](key string) RequestDataProvider[T] {
	return func(r *http.Request) (T, error) {
		header := r.Header.Get(key)
		if header == "" {
			var result T
			return result, fmt.Errorf("header with key %s not found", key)
		}
		return pkgstrings.ParseTypedValue[T](header)
	}
}

func JSONBody[T any]() RequestDataProvider[T] {
	return func(r *http.Request) (T, error) {
		var body T
		err := json.NewDecoder(r.Body).Decode(&body)
		if err != nil {
			return body, fmt.Errorf("failed to decode json body: %w", err)
		}
		return body, nil
	}
}

// WithErrorMapping responds with the status code of the first matching error returned by a handler.
func WithErrorMapping(statusCodes map[int][]error) ServerOption {
	codes := make([]errorCode, 0, len(statusCodes))
	for code, errs := range statusCodes {
		codes = append(codes, errorCode{code: code, errs: errs})
	}

	return WithMW(func(handler http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			meta := getHandlerMetadata(r.Context())
			meta.ErrorCodes = append(meta.ErrorCodes, codes...)
			handler.ServeHTTP(w, r)
		})
	})
}

type responseWriter struct {
	impl http.ResponseWriter

	writeBodyFunc func() error
	httpCode      int
}

func (w *responseWriter) SetHeader(key, value string) ResponseWriter {
	w.impl.Header().Set(key, value)
	return w
}

func (w *responseWriter) SetStatusCode(httpCode int) ResponseWriter {
	w.httpCode = httpCode
	return w
}

func (w *responseWriter) SetJSONBody(data any) ResponseWriter {
	w.writeBodyFunc = func() error {
		bodyEncoded, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("failed to encode body: %w", err)
		}
		return w.writeBody("application/json", bodyEncoded)
	}
	return w
}

func (w *responseWriter) SetBody(contentType string, body []byte) ResponseWriter {
	w.writeBodyFunc = func() error {
		return w.writeBody(contentType, body)
	}
	return w
}

func (w *responseWriter) writeBody(contentType string, body []byte) error {
	if contentType != "" {
		w.impl.Header().Set("Content-Type", contentType)
	}
	w.impl.WriteHeader(w.httpCode)

	_, err := w.impl.Write(body)
	if err != nil {
		return fmt.Errorf("failed to write body: %w", err)
	}
	return nil
}

func (w *responseWriter) Write(ctx context.Context, err error) {
	meta := getHandlerMetadata(ctx)
	meta.Error = err

	switch {
	case err != nil:
		meta.Code = errorStatusCode(err, meta.ErrorCodes)
		w.impl.WriteHeader(meta.Code)
	case w.writeBodyFunc != nil:
		meta.Code = w.httpCode
		meta.Error = w.writeBodyFunc()
	default:
		meta.Code = w.httpCode
		w.impl.WriteHeader(w.httpCode)
	}
}

func (w *responseWriter) WritePanic(ctx context.Context, panic Panic) {
	meta := getHandlerMetadata(ctx)
	meta.Code = http.StatusInternalServerError
	meta.Panic = &panic

	w.impl.WriteHeader(http.StatusInternalServerError)
}

func errorStatusCode(err error, codes []errorCode) int {
	if errors.Is(err, ErrParsingError) {
		return http.StatusBadRequest
	}

	for _, code := range codes {
		for _, expected := range code.errs {
			if errors.Is(err, expected) {
				return code.code
			}
		}
	}
	return http.StatusInternalServerError
}

func httpHandlerWrapper(handler HandlerFunc) http.HandlerFunc {
	recoverPanic := func(r *http.Request, respWriter *responseWriter) {
		msg := recover()
		if msg == nil {
			return
		}

		respWriter.WritePanic(r.Context(), Panic{
			Message:    fmt.Sprintf("%v", msg),
			Stacktrace: debug.Stack(),
		})
	}

	return func(w http.ResponseWriter, r *http.Request) {
		respWriter := &responseWriter{
			impl:          w,
			writeBodyFunc: nil,
			httpCode:      http.StatusOK,
		}

		defer recoverPanic(r, respWriter)
		err := handler(respWriter, r)
		respWriter.Write(r.Context(), err)
	}
}
