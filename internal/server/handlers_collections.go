package server

import (
	"net/http"

	"github.com/MarcoPoloResearchLab/stash/internal/library"
	"github.com/gin-gonic/gin"
)

type createCollectionPayload struct {
	Name        string  `json:"name" binding:"required"`
	Description *string `json:"description"`
	Icon        *string `json:"icon"`
	Color       *string `json:"color"`
}

type updateCollectionPayload struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Icon        *string `json:"icon"`
	Color       *string `json:"color"`
}

func (h *httpHandler) handleListCollections(c *gin.Context) {
	collections, err := h.library.ListCollections(c.Request.Context(), callerID(c))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, collections)
}

func (h *httpHandler) handleGetCollection(c *gin.Context) {
	collection, err := h.library.GetCollection(c.Request.Context(), callerID(c), c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, collection)
}

func (h *httpHandler) handleCollectionBookmarks(c *gin.Context) {
	bookmarks, err := h.library.GetCollectionBookmarks(c.Request.Context(), callerID(c), c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, bookmarks)
}

func (h *httpHandler) handleCreateCollection(c *gin.Context) {
	var request createCollectionPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		writeBindingError(c, err)
		return
	}
	collectionID, err := h.library.CreateCollection(c.Request.Context(), callerID(c), library.NewCollection{
		Name:        request.Name,
		Description: request.Description,
		Icon:        request.Icon,
		Color:       request.Color,
	})
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, idResponse{ID: collectionID})
}

func (h *httpHandler) handleUpdateCollection(c *gin.Context) {
	var request updateCollectionPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		writeBindingError(c, err)
		return
	}
	collectionID, err := h.library.UpdateCollection(c.Request.Context(), callerID(c), c.Param("id"), library.CollectionPatch{
		Name:        request.Name,
		Description: request.Description,
		Icon:        request.Icon,
		Color:       request.Color,
	})
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, idResponse{ID: collectionID})
}

func (h *httpHandler) handleRemoveCollection(c *gin.Context) {
	collectionID, err := h.library.RemoveCollection(c.Request.Context(), callerID(c), c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, idResponse{ID: collectionID})
}

func (h *httpHandler) handleAddToCollection(c *gin.Context) {
	linkID, err := h.library.AddToCollection(c.Request.Context(), callerID(c), c.Param("bookmark_id"), c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, idResponse{ID: linkID})
}

func (h *httpHandler) handleRemoveFromCollection(c *gin.Context) {
	bookmarkID, err := h.library.RemoveFromCollection(c.Request.Context(), callerID(c), c.Param("bookmark_id"), c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, idResponse{ID: bookmarkID})
}

func (h *httpHandler) handleCollectionsForBookmark(c *gin.Context) {
	collections, err := h.library.CollectionsForBookmark(c.Request.Context(), callerID(c), c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, collections)
}
