package handlers

import (
	"net/http"

	"github.com/tobyshaw/otpgate/internal/auth"
	"github.com/tobyshaw/otpgate/internal/render"
)

// AdminHandler serves the protected admin pages
type AdminHandler struct {
	renderer *render.Renderer
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(renderer *render.Renderer) *AdminHandler {
	return &AdminHandler{renderer: renderer}
}

// Dashboard handles GET on the admin root
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	h.renderer.HTML(w, http.StatusOK, "dashboard.html", map[string]any{
		"Email": claims.Email,
	})
}
