package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	log "github.com/freundallein/todo/backend/chassis/logging"
	"github.com/freundallein/todo/backend/chassis/metrics"
	"github.com/freundallein/todo/backend/chassis/monkey"
)

const unmatchedRoute = "unmatched"

type routeKey struct{}

type routeInfo struct {
	template string
}

// statusRecorder remembers the status code written by the handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(data []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	return s.ResponseWriter.Write(data)
}

// accessLog wraps the whole router so unmatched requests are logged and
// counted too. The route label is filled in by routeLabel once mux matched.
func accessLog(reg *metrics.Registry, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		info := &routeInfo{template: unmatchedRoute}
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), routeKey{}, info)))

		if rec.status == 0 {
			rec.status = http.StatusOK
		}
		elapsed := time.Since(started)
		if reg != nil {
			reg.Requests.WithLabelValues(r.Method, info.template, strconv.Itoa(rec.status)).Inc()
			reg.Duration.WithLabelValues(r.Method, info.template).Observe(elapsed.Seconds())
		}
		log.WithFields(log.Fields{
			"event":    "http_request",
			"method":   r.Method,
			"path":     r.URL.Path,
			"route":    info.template,
			"status":   rec.status,
			"duration": elapsed.String(),
		}).Info("handled request")
	})
}

func routeLabel(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if info, ok := r.Context().Value(routeKey{}).(*routeInfo); ok {
			if route := mux.CurrentRoute(r); route != nil {
				if tpl, err := route.GetPathTemplate(); err == nil {
					info.template = tpl
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}

func recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if p := recover(); p != nil {
				log.WithFields(log.Fields{
					"event":  "handler_panic",
					"method": r.Method,
					"path":   r.URL.Path,
				}).Error(p)
				writeDetail(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func chaos(m *monkey.Monkey) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := m.RandomizeError(nil); err != nil {
				log.WithFields(log.Fields{
					"event": "monkey_error",
					"path":  r.URL.Path,
				}).Error(err)
				writeDetail(w, http.StatusServiceUnavailable, err.Error())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// validate reports path and body problems together in one 422. A body sent
// without Content-Type is read as JSON.
func validate(spec *Spec) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Content-Type") == "" && r.ContentLength != 0 {
				r.Header.Set("Content-Type", "application/json")
			}
			var details []ValidationDetail
			if raw, ok := mux.Vars(r)["todo_id"]; ok {
				if _, detail := parseTodoID(raw); detail != nil {
					details = append(details, *detail)
				}
			}
			if err := spec.ValidateRequest(r); err != nil {
				details = append(details, validationDetails(err)...)
			}
			if len(details) > 0 {
				log.WithFields(log.Fields{
					"event":  "request_validation_failed",
					"method": r.Method,
					"path":   r.URL.Path,
				}).Debug(details)
				writeValidation(w, details...)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

const corsMethods = "DELETE, GET, HEAD, OPTIONS, PATCH, POST, PUT"

// cors allows any origin, method and header, with credentials. Since
// credentials are allowed the origin is echoed instead of "*".
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			next.ServeHTTP(w, r)
			return
		}
		header := w.Header()
		header.Add("Vary", "Origin")
		header.Set("Access-Control-Allow-Origin", origin)
		header.Set("Access-Control-Allow-Credentials", "true")

		requestMethod := r.Header.Get("Access-Control-Request-Method")
		if r.Method != http.MethodOptions || requestMethod == "" {
			next.ServeHTTP(w, r)
			return
		}
		header.Set("Access-Control-Allow-Methods", corsMethods)
		if requested := r.Header.Get("Access-Control-Request-Headers"); requested != "" {
			header.Set("Access-Control-Allow-Headers", strings.TrimSpace(requested))
		}
		header.Set("Access-Control-Max-Age", "600")
		header.Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}
