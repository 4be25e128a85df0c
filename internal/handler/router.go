package handler

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/flowtrack/internal/files"
	"github.com/BuzzLyutic/flowtrack/internal/notify"
	"github.com/BuzzLyutic/flowtrack/internal/service"
)

func NewRouter(srv *service.TaskService, registry *files.Registry, bus *notify.Bus, logger *zap.Logger) http.Handler {
	tasks := NewTaskHandler(srv, logger)
	fields := NewFileHandler(registry, logger)
	notices := NewNotificationHandler(bus, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"ok"}`)
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", tasks.List)
			r.Post("/", tasks.Create)
			r.Get("/{id}", tasks.Get)
			r.Patch("/{id}", tasks.Update)
			r.Delete("/{id}", tasks.Delete)
		})
		r.Route("/files", func(r chi.Router) {
			r.Post("/fields/{elementId}", fields.Mount)
			r.Delete("/fields/{elementId}", fields.Unmount)
			r.Put("/{fieldKey}", fields.Sync)
			r.Get("/{fieldKey}", fields.Get)
			r.Delete("/{fieldKey}", fields.Clear)
		})
		r.Get("/notifications/stream", notices.Stream)
	})

	return r
}
