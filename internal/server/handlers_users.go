package server

import (
	"net/http"

	"github.com/MarcoPoloResearchLab/stash/internal/users"
	"github.com/gin-gonic/gin"
)

type upsertUserPayload struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	ImageURL *string `json:"image_url"`
}

type idResponse struct {
	ID string `json:"id"`
}

// handleUpsertUser registers or refreshes the caller. Absent profile fields fall back to the
// session claims.
func (h *httpHandler) handleUpsertUser(c *gin.Context) {
	var request upsertUserPayload
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&request); err != nil {
			writeBindingError(c, err)
			return
		}
	}

	claims := sessionClaims(c)
	profile := users.Profile{Name: claims.Name, Email: claims.Email}
	if claims.Picture != "" {
		picture := claims.Picture
		profile.ImageURL = &picture
	}
	if request.Name != nil {
		profile.Name = *request.Name
	}
	if request.Email != nil {
		profile.Email = *request.Email
	}
	if request.ImageURL != nil {
		profile.ImageURL = request.ImageURL
	}

	userID, err := h.users.Upsert(c.Request.Context(), callerID(c), profile)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, idResponse{ID: userID})
}

func (h *httpHandler) handleCurrentUser(c *gin.Context) {
	user, err := h.users.GetCurrent(c.Request.Context(), callerID(c))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
