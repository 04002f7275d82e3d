package handlers

import (
	"net/http"

	"github.com/senyabanana/tender-engine/internal/auth"
	"github.com/senyabanana/tender-engine/internal/models"
	"github.com/senyabanana/tender-engine/internal/utils"
)

// principal достаёт пользователя, положенного в контекст middleware аутентификации.
func principal(w http.ResponseWriter, r *http.Request) (models.Principal, bool) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		utils.SendErrorResponse(w, models.NewUnauthenticatedError("authentication required"))
	}
	return p, ok
}
