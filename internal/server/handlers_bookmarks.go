package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/MarcoPoloResearchLab/stash/internal/library"
	"github.com/gin-gonic/gin"
)

var errNumItems = errors.New("num_items must be a non-negative integer")

type createBookmarkPayload struct {
	URL          string   `json:"url" binding:"required"`
	Title        string   `json:"title" binding:"required"`
	Description  *string  `json:"description"`
	ThumbnailURL *string  `json:"thumbnail_url"`
	SiteName     *string  `json:"site_name"`
	Favicon      *string  `json:"favicon"`
	Tags         []string `json:"tags"`
}

type updateBookmarkPayload struct {
	Title        *string   `json:"title"`
	Description  *string   `json:"description"`
	URL          *string   `json:"url"`
	ThumbnailURL *string   `json:"thumbnail_url"`
	SiteName     *string   `json:"site_name"`
	Favicon      *string   `json:"favicon"`
	AISummary    *string   `json:"ai_summary"`
	Tags         *[]string `json:"tags"`
}

func (h *httpHandler) handleListBookmarks(c *gin.Context) {
	filter, page, err := parseListQuery(c)
	if err != nil {
		writeBindingError(c, err)
		return
	}
	result, err := h.library.ListBookmarks(c.Request.Context(), callerID(c), filter, page)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func parseListQuery(c *gin.Context) (library.ListFilter, library.PageRequest, error) {
	var filter library.ListFilter
	if value, ok := c.GetQuery("collection_id"); ok && value != "" {
		filter.CollectionID = &value
	}
	if value, ok := c.GetQuery("tag"); ok && value != "" {
		filter.Tag = &value
	}
	for key, target := range map[string]**bool{"favorite": &filter.IsFavorite, "archived": &filter.IsArchived} {
		raw, ok := c.GetQuery(key)
		if !ok || raw == "" {
			continue
		}
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			return library.ListFilter{}, library.PageRequest{}, fmt.Errorf("%s must be a boolean", key)
		}
		*target = &parsed
	}

	page := library.PageRequest{Cursor: c.Query("cursor")}
	if raw := c.Query("num_items"); raw != "" {
		numItems, err := strconv.Atoi(raw)
		if err != nil || numItems < 0 {
			return library.ListFilter{}, library.PageRequest{}, errNumItems
		}
		page.NumItems = numItems
	}
	return filter, page, nil
}

func (h *httpHandler) handleGetBookmark(c *gin.Context) {
	bookmark, err := h.library.GetBookmark(c.Request.Context(), callerID(c), c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, bookmark)
}

func (h *httpHandler) handleSearchBookmarks(c *gin.Context) {
	bookmarks, err := h.library.SearchBookmarks(c.Request.Context(), callerID(c), c.Query("q"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, bookmarks)
}

func (h *httpHandler) handleFavoriteBookmarks(c *gin.Context) {
	bookmarks, err := h.library.GetFavorites(c.Request.Context(), callerID(c))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, bookmarks)
}

func (h *httpHandler) handleRecentBookmarks(c *gin.Context) {
	bookmarks, err := h.library.GetRecent(c.Request.Context(), callerID(c))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, bookmarks)
}

func (h *httpHandler) handleBookmarkStats(c *gin.Context) {
	stats, err := h.library.GetStats(c.Request.Context(), callerID(c))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *httpHandler) handleCreateBookmark(c *gin.Context) {
	var request createBookmarkPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		writeBindingError(c, err)
		return
	}
	bookmarkID, err := h.library.CreateBookmark(c.Request.Context(), callerID(c), library.NewBookmark{
		URL:          request.URL,
		Title:        request.Title,
		Description:  request.Description,
		ThumbnailURL: request.ThumbnailURL,
		SiteName:     request.SiteName,
		Favicon:      request.Favicon,
		Tags:         request.Tags,
	})
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, idResponse{ID: bookmarkID})
}

func (h *httpHandler) handleUpdateBookmark(c *gin.Context) {
	var request updateBookmarkPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		writeBindingError(c, err)
		return
	}
	bookmarkID, err := h.library.UpdateBookmark(c.Request.Context(), callerID(c), c.Param("id"), library.BookmarkPatch{
		Title:        request.Title,
		Description:  request.Description,
		URL:          request.URL,
		ThumbnailURL: request.ThumbnailURL,
		SiteName:     request.SiteName,
		Favicon:      request.Favicon,
		AISummary:    request.AISummary,
		Tags:         request.Tags,
	})
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, idResponse{ID: bookmarkID})
}

func (h *httpHandler) handleRemoveBookmark(c *gin.Context) {
	bookmarkID, err := h.library.RemoveBookmark(c.Request.Context(), callerID(c), c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, idResponse{ID: bookmarkID})
}

func (h *httpHandler) handleToggleFavorite(c *gin.Context) {
	isFavorite, err := h.library.ToggleFavorite(c.Request.Context(), callerID(c), c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"is_favorite": isFavorite})
}

func (h *httpHandler) handleToggleArchive(c *gin.Context) {
	isArchived, err := h.library.ToggleArchive(c.Request.Context(), callerID(c), c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"is_archived": isArchived})
}

func (h *httpHandler) handleIncrementReadCount(c *gin.Context) {
	readCount, err := h.library.IncrementReadCount(c.Request.Context(), callerID(c), c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"read_count": readCount})
}
