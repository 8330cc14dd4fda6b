package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/lexicon/internal/docservice"
)

// ChangeNotifier is told about document edits made through the API.
type ChangeNotifier interface {
	PublishDocumentChange(reason string)
}

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
// notifier may be nil.
func NewRouter(svc *docservice.Service, authEnabled bool, token string, sseHandler http.Handler, notifier ChangeNotifier) chi.Router {
	h := NewHandler(svc, notifier)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Document.
	r.Get("/document", h.GetDocument)
	r.Post("/document/nodes", h.AppendNodes)
	r.Delete("/document/nodes", h.RemoveNodes)
	r.Post("/pointer", h.Pointer)

	// Engine state.
	r.Get("/tooltips", h.ListTooltips)
	r.Get("/replacements", h.ListReplacements)
	r.Get("/dictionary", h.GetDictionary)
	r.Get("/dictionary/{term}", h.LookupTerm)
	r.Post("/substitute", h.Substitute)
	r.Get("/status", h.Status)
	r.Post("/rescan", h.Rescan)
	r.Put("/activation", h.SetActivation)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
