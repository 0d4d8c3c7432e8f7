package library

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const (
	opListBookmarks       = "bookmarks.list"
	opGetBookmark         = "bookmarks.get"
	opSearchBookmarks     = "bookmarks.search"
	opFavoriteBookmarks   = "bookmarks.get_favorites"
	opRecentBookmarks     = "bookmarks.get_recent"
	opBookmarkStats       = "bookmarks.get_stats"
	opCreateBookmark      = "bookmarks.create"
	opUpdateBookmark      = "bookmarks.update"
	opRemoveBookmark      = "bookmarks.remove"
	opToggleFavorite      = "bookmarks.toggle_favorite"
	opToggleArchive       = "bookmarks.toggle_archive"
	opIncrementReadCount  = "bookmarks.increment_read_count"
	defaultPageSize       = 20
	maxPageSize           = 100
	recentBookmarksLimit  = 10
	statsRecentWindow     = 7 * 24 * time.Hour
	fieldBookmarkIDLogKey = columnBookmarkID
)

// ListBookmarks returns one page of the caller's bookmarks.
//
// A collection filter returns every owned bookmark linked to the collection in a single page.
// The favorite and archived filters page through their index oldest first; the default mode pages
// through all bookmarks newest first. A tag narrows the fetched page in memory, so a page may
// hold fewer than NumItems bookmarks while IsDone is still false.
func (s *Service) ListBookmarks(ctx context.Context, caller string, filter ListFilter, request PageRequest) (BookmarkPage, error) {
	userID, found, err := s.lookupCaller(ctx, opListBookmarks, caller)
	if err != nil {
		return BookmarkPage{}, err
	}
	if !found {
		return BookmarkPage{Page: []Bookmark{}, IsDone: true}, nil
	}

	tag := ""
	if filter.Tag != nil {
		tag = *filter.Tag
	}

	if filter.CollectionID != nil {
		bookmarks, err := s.linkedBookmarks(ctx, userID, *filter.CollectionID)
		if err != nil {
			return BookmarkPage{}, s.fail(opListBookmarks, reasonQueryFailed, err,
				zap.String(columnUserID, userID),
				zap.String(columnCollectionID, *filter.CollectionID))
		}
		return BookmarkPage{Page: filterByTag(bookmarks, tag), IsDone: true}, nil
	}

	after, err := DecodeCursor(request.Cursor)
	if err != nil {
		return BookmarkPage{}, newServiceError(opListBookmarks, reasonInvalidInput, err)
	}
	pageSize := clampPageSize(request.NumItems)

	query := BookmarkQuery{UserID: userID, After: after, Limit: pageSize + 1}
	switch {
	case filter.IsFavorite != nil:
		query.IsFavorite = filter.IsFavorite
	case filter.IsArchived != nil:
		query.IsArchived = filter.IsArchived
	default:
		query.Descending = true
	}

	fetched, err := s.store.ListBookmarks(ctx, query)
	if err != nil {
		return BookmarkPage{}, s.fail(opListBookmarks, reasonQueryFailed, err, zap.String(columnUserID, userID))
	}

	page := BookmarkPage{IsDone: len(fetched) <= pageSize}
	if !page.IsDone {
		fetched = fetched[:pageSize]
		page.ContinueCursor = cursorFor(fetched[len(fetched)-1]).Encode()
	}
	page.Page = filterByTag(fetched, tag)
	return page, nil
}

// GetBookmark returns the bookmark when the caller owns it, nil otherwise.
func (s *Service) GetBookmark(ctx context.Context, caller, bookmarkID string) (*Bookmark, error) {
	userID, found, err := s.lookupCaller(ctx, opGetBookmark, caller)
	if err != nil || !found {
		return nil, err
	}
	bookmark, err := s.findOwnedBookmark(ctx, s.store, userID, bookmarkID)
	if err != nil {
		return nil, s.fail(opGetBookmark, reasonQueryFailed, err, zap.String(fieldBookmarkIDLogKey, bookmarkID))
	}
	return bookmark, nil
}

// SearchBookmarks matches the query case-insensitively against title, description, tags and
// AI summary of every bookmark the caller owns.
func (s *Service) SearchBookmarks(ctx context.Context, caller, searchQuery string) ([]Bookmark, error) {
	bookmarks, err := s.allBookmarks(ctx, opSearchBookmarks, caller)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(searchQuery)
	matches := make([]Bookmark, 0, len(bookmarks))
	for _, bookmark := range bookmarks {
		if bookmarkMatches(bookmark, needle) {
			matches = append(matches, bookmark)
		}
	}
	return matches, nil
}

// GetFavorites returns every favorite bookmark of the caller.
func (s *Service) GetFavorites(ctx context.Context, caller string) ([]Bookmark, error) {
	userID, found, err := s.lookupCaller(ctx, opFavoriteBookmarks, caller)
	if err != nil {
		return nil, err
	}
	if !found {
		return []Bookmark{}, nil
	}
	isFavorite := true
	bookmarks, err := s.store.ListBookmarks(ctx, BookmarkQuery{UserID: userID, IsFavorite: &isFavorite})
	if err != nil {
		return nil, s.fail(opFavoriteBookmarks, reasonQueryFailed, err, zap.String(columnUserID, userID))
	}
	return bookmarks, nil
}

// GetRecent returns the caller's ten most recently created bookmarks, newest first.
func (s *Service) GetRecent(ctx context.Context, caller string) ([]Bookmark, error) {
	userID, found, err := s.lookupCaller(ctx, opRecentBookmarks, caller)
	if err != nil {
		return nil, err
	}
	if !found {
		return []Bookmark{}, nil
	}
	bookmarks, err := s.store.ListBookmarks(ctx, BookmarkQuery{UserID: userID, Descending: true, Limit: recentBookmarksLimit})
	if err != nil {
		return nil, s.fail(opRecentBookmarks, reasonQueryFailed, err, zap.String(columnUserID, userID))
	}
	return bookmarks, nil
}

// GetStats counts the caller's bookmarks. ThisWeek covers the trailing seven days from now.
func (s *Service) GetStats(ctx context.Context, caller string) (Stats, error) {
	bookmarks, err := s.allBookmarks(ctx, opBookmarkStats, caller)
	if err != nil {
		return Stats{}, err
	}
	weekStartMs := s.clock().Add(-statsRecentWindow).UTC().UnixMilli()
	stats := Stats{Total: len(bookmarks)}
	for _, bookmark := range bookmarks {
		if bookmark.CreatedAtMs >= weekStartMs {
			stats.ThisWeek++
		}
		if bookmark.IsFavorite {
			stats.Favorites++
		}
		if bookmark.IsArchived {
			stats.Archived++
		}
	}
	return stats, nil
}

// CreateBookmark saves a new bookmark for the caller and returns its id.
func (s *Service) CreateBookmark(ctx context.Context, caller string, input NewBookmark) (string, error) {
	userID, err := s.requireCaller(ctx, opCreateBookmark, caller)
	if err != nil {
		return "", err
	}

	bookmarkURL, err := validateURL(input.URL)
	if err != nil {
		return "", newServiceError(opCreateBookmark, reasonInvalidInput, err)
	}
	title, err := validateRequired("title", input.Title)
	if err != nil {
		return "", newServiceError(opCreateBookmark, reasonInvalidInput, err)
	}

	bookmarkID, err := s.newID(opCreateBookmark)
	if err != nil {
		return "", err
	}

	nowMs := s.nowMs()
	bookmark := Bookmark{
		ID:           bookmarkID,
		UserID:       userID,
		URL:          bookmarkURL,
		Title:        title,
		Description:  normalizeOptional(input.Description),
		ThumbnailURL: normalizeOptional(input.ThumbnailURL),
		SiteName:     normalizeOptional(input.SiteName),
		Favicon:      normalizeOptional(input.Favicon),
		Tags:         datatypes.JSONSlice[string](normalizeTags(input.Tags)),
		IsFavorite:   false,
		IsArchived:   false,
		ReadCount:    0,
		CreatedAtMs:  nowMs,
		UpdatedAtMs:  nowMs,
	}
	if err := s.store.InsertBookmark(ctx, &bookmark); err != nil {
		return "", s.fail(opCreateBookmark, reasonWriteFailed, err, zap.String(columnUserID, userID))
	}
	return bookmarkID, nil
}

// UpdateBookmark applies the patch to an owned bookmark and refreshes its updated time.
func (s *Service) UpdateBookmark(ctx context.Context, caller, bookmarkID string, patch BookmarkPatch) (string, error) {
	userID, err := s.requireCaller(ctx, opUpdateBookmark, caller)
	if err != nil {
		return "", err
	}

	normalized, err := normalizeBookmarkPatch(patch)
	if err != nil {
		return "", newServiceError(opUpdateBookmark, reasonInvalidInput, err)
	}

	err = s.store.WithinTransaction(ctx, func(store Store) error {
		if _, err := s.requireOwnedBookmark(ctx, store, opUpdateBookmark, userID, bookmarkID); err != nil {
			return err
		}
		return store.PatchBookmark(ctx, bookmarkID, normalized, s.nowMs())
	})
	if err != nil {
		return "", s.settle(opUpdateBookmark, err)
	}
	return bookmarkID, nil
}

// RemoveBookmark deletes an owned bookmark with its links and notes.
func (s *Service) RemoveBookmark(ctx context.Context, caller, bookmarkID string) (string, error) {
	userID, err := s.requireCaller(ctx, opRemoveBookmark, caller)
	if err != nil {
		return "", err
	}

	err = s.store.WithinTransaction(ctx, func(store Store) error {
		bookmark, err := s.requireOwnedBookmark(ctx, store, opRemoveBookmark, userID, bookmarkID)
		if err != nil {
			return err
		}
		return store.DeleteBookmark(ctx, bookmark)
	})
	if err != nil {
		return "", s.settle(opRemoveBookmark, err)
	}
	return bookmarkID, nil
}

// ToggleFavorite flips the favorite flag of an owned bookmark and returns the new value.
func (s *Service) ToggleFavorite(ctx context.Context, caller, bookmarkID string) (bool, error) {
	userID, err := s.requireCaller(ctx, opToggleFavorite, caller)
	if err != nil {
		return false, err
	}

	var isFavorite bool
	err = s.store.WithinTransaction(ctx, func(store Store) error {
		bookmark, err := s.requireOwnedBookmark(ctx, store, opToggleFavorite, userID, bookmarkID)
		if err != nil {
			return err
		}
		isFavorite = !bookmark.IsFavorite
		return store.SetBookmarkFavorite(ctx, bookmarkID, isFavorite, s.nowMs())
	})
	if err != nil {
		return false, s.settle(opToggleFavorite, err)
	}
	return isFavorite, nil
}

// ToggleArchive flips the archived flag of an owned bookmark and returns the new value.
func (s *Service) ToggleArchive(ctx context.Context, caller, bookmarkID string) (bool, error) {
	userID, err := s.requireCaller(ctx, opToggleArchive, caller)
	if err != nil {
		return false, err
	}

	var isArchived bool
	err = s.store.WithinTransaction(ctx, func(store Store) error {
		bookmark, err := s.requireOwnedBookmark(ctx, store, opToggleArchive, userID, bookmarkID)
		if err != nil {
			return err
		}
		isArchived = !bookmark.IsArchived
		return store.SetBookmarkArchived(ctx, bookmarkID, isArchived, s.nowMs())
	})
	if err != nil {
		return false, s.settle(opToggleArchive, err)
	}
	return isArchived, nil
}

// IncrementReadCount records one read of an owned bookmark and returns the new count.
func (s *Service) IncrementReadCount(ctx context.Context, caller, bookmarkID string) (int64, error) {
	userID, err := s.requireCaller(ctx, opIncrementReadCount, caller)
	if err != nil {
		return 0, err
	}

	var readCount int64
	err = s.store.WithinTransaction(ctx, func(store Store) error {
		bookmark, err := s.requireOwnedBookmark(ctx, store, opIncrementReadCount, userID, bookmarkID)
		if err != nil {
			return err
		}
		readCount = bookmark.ReadCount + 1
		return store.SetBookmarkReadCount(ctx, bookmarkID, readCount, s.nowMs())
	})
	if err != nil {
		return 0, s.settle(opIncrementReadCount, err)
	}
	return readCount, nil
}

func (s *Service) allBookmarks(ctx context.Context, operation, caller string) ([]Bookmark, error) {
	userID, found, err := s.lookupCaller(ctx, operation, caller)
	if err != nil {
		return nil, err
	}
	if !found {
		return []Bookmark{}, nil
	}
	bookmarks, err := s.store.ListBookmarks(ctx, BookmarkQuery{UserID: userID})
	if err != nil {
		return nil, s.fail(operation, reasonQueryFailed, err, zap.String(columnUserID, userID))
	}
	return bookmarks, nil
}

// linkedBookmarks dereferences the links of a collection in link order, keeping only bookmarks
// owned by userID.
func (s *Service) linkedBookmarks(ctx context.Context, userID, collectionID string) ([]Bookmark, error) {
	links, err := s.store.ListLinksByCollection(ctx, collectionID)
	if err != nil {
		return nil, err
	}
	bookmarkIDs := make([]string, 0, len(links))
	for _, link := range links {
		bookmarkIDs = append(bookmarkIDs, link.BookmarkID)
	}
	found, err := s.store.FindBookmarks(ctx, bookmarkIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]Bookmark, len(found))
	for _, bookmark := range found {
		byID[bookmark.ID] = bookmark
	}

	bookmarks := make([]Bookmark, 0, len(links))
	for _, link := range links {
		bookmark, ok := byID[link.BookmarkID]
		if ok && bookmark.UserID == userID {
			bookmarks = append(bookmarks, bookmark)
		}
	}
	return bookmarks, nil
}

func normalizeBookmarkPatch(patch BookmarkPatch) (BookmarkPatch, error) {
	normalized := patch
	if patch.Title != nil {
		title, err := validateRequired("title", *patch.Title)
		if err != nil {
			return BookmarkPatch{}, err
		}
		normalized.Title = &title
	}
	if patch.URL != nil {
		bookmarkURL, err := validateURL(*patch.URL)
		if err != nil {
			return BookmarkPatch{}, err
		}
		normalized.URL = &bookmarkURL
	}
	if patch.Tags != nil {
		tags := normalizeTags(*patch.Tags)
		normalized.Tags = &tags
	}
	return normalized, nil
}

func filterByTag(bookmarks []Bookmark, tag string) []Bookmark {
	if tag == "" {
		if bookmarks == nil {
			return []Bookmark{}
		}
		return bookmarks
	}
	filtered := make([]Bookmark, 0, len(bookmarks))
	for _, bookmark := range bookmarks {
		if bookmark.HasTag(tag) {
			filtered = append(filtered, bookmark)
		}
	}
	return filtered
}

func bookmarkMatches(bookmark Bookmark, needle string) bool {
	if strings.Contains(strings.ToLower(bookmark.Title), needle) {
		return true
	}
	if bookmark.Description != nil && strings.Contains(strings.ToLower(*bookmark.Description), needle) {
		return true
	}
	for _, tag := range bookmark.Tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	return bookmark.AISummary != nil && strings.Contains(strings.ToLower(*bookmark.AISummary), needle)
}

func clampPageSize(numItems int) int {
	if numItems <= 0 {
		return defaultPageSize
	}
	if numItems > maxPageSize {
		return maxPageSize
	}
	return numItems
}
