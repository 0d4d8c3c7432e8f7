package server

import (
	"net/http"

	"github.com/MarcoPoloResearchLab/stash/internal/library"
	"github.com/gin-gonic/gin"
)

type notePayload struct {
	Content *string `json:"content" binding:"required"`
}

type chatMessagePayload struct {
	Role    string   `json:"role" binding:"required,oneof=user assistant"`
	Content string   `json:"content" binding:"required"`
	Sources []string `json:"sources"`
}

func (h *httpHandler) handleNotesForBookmark(c *gin.Context) {
	notes, err := h.library.NotesForBookmark(c.Request.Context(), callerID(c), c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, notes)
}

func (h *httpHandler) handleCreateNote(c *gin.Context) {
	var request notePayload
	if err := c.ShouldBindJSON(&request); err != nil {
		writeBindingError(c, err)
		return
	}
	noteID, err := h.library.CreateNote(c.Request.Context(), callerID(c), c.Param("id"), *request.Content)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, idResponse{ID: noteID})
}

func (h *httpHandler) handleUpdateNote(c *gin.Context) {
	var request notePayload
	if err := c.ShouldBindJSON(&request); err != nil {
		writeBindingError(c, err)
		return
	}
	noteID, err := h.library.UpdateNote(c.Request.Context(), callerID(c), c.Param("id"), *request.Content)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, idResponse{ID: noteID})
}

func (h *httpHandler) handleRemoveNote(c *gin.Context) {
	noteID, err := h.library.RemoveNote(c.Request.Context(), callerID(c), c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, idResponse{ID: noteID})
}

func (h *httpHandler) handleChatHistory(c *gin.Context) {
	messages, err := h.library.ChatHistory(c.Request.Context(), callerID(c))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

func (h *httpHandler) handleAppendChatMessage(c *gin.Context) {
	var request chatMessagePayload
	if err := c.ShouldBindJSON(&request); err != nil {
		writeBindingError(c, err)
		return
	}
	messageID, err := h.library.AppendChatMessage(c.Request.Context(), callerID(c), library.NewChatMessage{
		Role:    library.ChatRole(request.Role),
		Content: request.Content,
		Sources: request.Sources,
	})
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, idResponse{ID: messageID})
}

func (h *httpHandler) handleClearChat(c *gin.Context) {
	deleted, err := h.library.ClearChat(c.Request.Context(), callerID(c))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}
