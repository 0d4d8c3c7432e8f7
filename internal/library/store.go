package library

import (
	"context"
	"errors"
)

// ErrDuplicateLink is returned by a Store when a (bookmark, collection) pair is already linked.
var ErrDuplicateLink = errors.New("library: duplicate bookmark collection link")

// BookmarkQuery selects bookmarks of one user through one of the listing indexes.
// A nil IsFavorite and IsArchived selects every bookmark. Limit <= 0 means no limit.
type BookmarkQuery struct {
	UserID     string
	IsFavorite *bool
	IsArchived *bool
	After      *Cursor
	Descending bool
	Limit      int
}

// Store persists library records. Mutation entry points own the denormalized counters:
// callers never adjust bookmark_count columns directly.
// Find methods return a nil record and a nil error when nothing matches.
type Store interface {
	WithinTransaction(ctx context.Context, fn func(store Store) error) error

	InsertBookmark(ctx context.Context, bookmark *Bookmark) error
	FindBookmark(ctx context.Context, bookmarkID string) (*Bookmark, error)
	PatchBookmark(ctx context.Context, bookmarkID string, patch BookmarkPatch, updatedAtMs int64) error
	SetBookmarkFavorite(ctx context.Context, bookmarkID string, isFavorite bool, updatedAtMs int64) error
	SetBookmarkArchived(ctx context.Context, bookmarkID string, isArchived bool, updatedAtMs int64) error
	SetBookmarkReadCount(ctx context.Context, bookmarkID string, readCount int64, readAtMs int64) error
	DeleteBookmark(ctx context.Context, bookmark Bookmark) error
	ListBookmarks(ctx context.Context, query BookmarkQuery) ([]Bookmark, error)
	FindBookmarks(ctx context.Context, bookmarkIDs []string) ([]Bookmark, error)

	InsertCollection(ctx context.Context, collection *Collection) error
	FindCollection(ctx context.Context, collectionID string) (*Collection, error)
	PatchCollection(ctx context.Context, collectionID string, patch CollectionPatch, updatedAtMs int64) error
	DeleteCollection(ctx context.Context, collection Collection) error
	ListCollections(ctx context.Context, userID string) ([]Collection, error)
	FindCollections(ctx context.Context, collectionIDs []string) ([]Collection, error)

	InsertLink(ctx context.Context, link *BookmarkCollection) error
	FindLink(ctx context.Context, bookmarkID, collectionID string) (*BookmarkCollection, error)
	DeleteLink(ctx context.Context, link BookmarkCollection, updatedAtMs int64) error
	ListLinksByCollection(ctx context.Context, collectionID string) ([]BookmarkCollection, error)
	ListLinksByBookmark(ctx context.Context, bookmarkID string) ([]BookmarkCollection, error)

	InsertNote(ctx context.Context, note *Note) error
	FindNote(ctx context.Context, noteID string) (*Note, error)
	UpdateNoteContent(ctx context.Context, noteID, content string, updatedAtMs int64) error
	DeleteNote(ctx context.Context, noteID string) error
	ListNotesByBookmark(ctx context.Context, bookmarkID string) ([]Note, error)

	InsertChatMessage(ctx context.Context, message *ChatMessage) error
	ListChatMessages(ctx context.Context, userID string) ([]ChatMessage, error)
	DeleteChatMessages(ctx context.Context, userID string) (int64, error)
}
