package httpx

import (
	"context"
	"net/http"

	"github.com/target/kb-assistant-web/internal/service"
)

// Home is the unguarded landing page. It starts session resolution without
// waiting for it, so the chat link is usually ready by the time it is followed.
func (h *UIHandlers) Home(w http.ResponseWriter, r *http.Request) {
	if c := ClientFromContext(r.Context()); c != nil {
		ctx, cancel := context.WithCancel(r.Context())
		cancel()
		c.Auth.Init(ctx)
	}
	data := basePageData(r, metaFor(PageHome, "Welcome"))
	h.renderPage(w, r, data)
}

// SessionAPI returns the guarded session snapshot as JSON. The token is never included.
func SessionAPI(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, currentSession(r.Context()))
}

type healthResponse struct {
	Status    string `json:"status"`
	Clients   int    `json:"clients"`
	Capacity  int    `json:"capacity"`
	Created   uint64 `json:"created"`
	Evictions uint64 `json:"evictions"`
}

// HealthHandler reports liveness and the browser client registry counters.
func HealthHandler(reg *service.ClientRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok"}
		if reg != nil {
			st := reg.Stats()
			resp.Clients = st.Size
			resp.Capacity = st.Capacity
			resp.Created = st.Created
			resp.Evictions = st.Evictions
		}
		if r.Method == http.MethodHead {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			return
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}
