// internal/handlers/router.go
package handlers

import "net/http"

const apiV1 = "/api/v1"

// Router groups the handlers served by the API. Nil handlers leave their
// routes unregistered.
type Router struct {
	Health          *HealthHandler
	Views           *ViewHandler
	Recommendations *RecommendationHandler
	Preferences     *PreferenceHandler
	Dashboard       *DashboardHandler
	Export          *ExportHandler
}

// Register adds every route to mux using method-specific patterns
func (rt *Router) Register(mux *http.ServeMux) {
	if h := rt.Health; h != nil {
		mux.HandleFunc("GET /health", h.Health)
		mux.HandleFunc("GET /ready", h.Readiness)
		mux.HandleFunc("GET "+apiV1+"/health", h.Health)
	}

	if h := rt.Views; h != nil {
		mux.HandleFunc("GET "+apiV1+"/views", h.ListViews)
		mux.HandleFunc("GET "+apiV1+"/views/{view}", h.List)
		mux.HandleFunc("GET "+apiV1+"/views/{view}/facets", h.Facets)
	}

	if h := rt.Recommendations; h != nil {
		mux.HandleFunc("GET "+apiV1+"/recommendations/{id}", h.Get)
		mux.HandleFunc("POST "+apiV1+"/recommendations/{id}/resolve", h.Resolve)
		mux.HandleFunc("POST "+apiV1+"/recommendations/{id}/dismiss", h.Dismiss)
		mux.HandleFunc("POST "+apiV1+"/recommendations/{id}/reopen", h.Reopen)
	}

	if h := rt.Preferences; h != nil {
		mux.HandleFunc("GET "+apiV1+"/preferences/{key}", h.Get)
		mux.HandleFunc("PUT "+apiV1+"/preferences/{key}", h.Put)
	}

	if h := rt.Dashboard; h != nil {
		mux.HandleFunc("GET "+apiV1+"/dashboard", h.GetDashboard)
	}

	if h := rt.Export; h != nil {
		mux.HandleFunc("GET "+apiV1+"/export/{file}", h.Download)
		mux.HandleFunc("POST "+apiV1+"/export/{view}/jobs", h.StartJob)
		mux.HandleFunc("GET "+apiV1+"/export/jobs/{id}", h.GetJob)
	}
}

// Handler returns a new mux with every route registered
func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	rt.Register(mux)
	return mux
}
