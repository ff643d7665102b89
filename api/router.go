package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/freundallein/todo/backend/chassis/metrics"
	"github.com/freundallein/todo/backend/chassis/monkey"
	"github.com/freundallein/todo/backend/chassis/storage"
)

// Config ...
type Config struct {
	Repository storage.TodoRepository
	Events     Publisher
	Spec       *Spec
	Metrics    *metrics.Registry
	Monkey     *monkey.Monkey
}

// NewRouter wires endpoints and middleware into a single handler.
func NewRouter(cfg *Config) http.Handler {
	h := &Handlers{
		Repository: cfg.Repository,
		Events:     cfg.Events,
	}

	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusNotFound, "Not Found")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})
	router.Use(routeLabel)

	router.HandleFunc("/openapi.json", cfg.Spec.serveJSON).Methods(http.MethodGet)
	router.HandleFunc("/docs", serveDocs).Methods(http.MethodGet)
	router.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)

	router.HandleFunc("/todos", redirectSlash)

	// No subrouter: its prefix matcher hides method mismatches on /todos/.
	todo := func(handler http.HandlerFunc) http.Handler {
		var next http.Handler = validate(cfg.Spec)(handler)
		if cfg.Monkey.Enabled() {
			next = chaos(cfg.Monkey)(next)
		}
		return next
	}
	router.Handle("/todos/", todo(h.CreateTodo)).Methods(http.MethodPost)
	router.Handle("/todos/", todo(h.ListTodos)).Methods(http.MethodGet)
	router.Handle("/todos/{todo_id}", todo(h.GetTodo)).Methods(http.MethodGet)
	router.Handle("/todos/{todo_id}", todo(h.UpdateTodo)).Methods(http.MethodPut)
	router.Handle("/todos/{todo_id}", todo(h.DeleteTodo)).Methods(http.MethodDelete)

	return accessLog(cfg.Metrics, recovery(cors(router)))
}

// redirectSlash sends /todos to /todos/ keeping the method.
func redirectSlash(w http.ResponseWriter, r *http.Request) {
	target := *r.URL
	target.Path += "/"
	http.Redirect(w, r, target.String(), http.StatusTemporaryRedirect)
}
