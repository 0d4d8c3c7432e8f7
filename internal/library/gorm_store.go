package library

import (
	"context"
	"errors"
	"strings"

	"github.com/MarcoPoloResearchLab/stash/internal/users"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	columnID            = "id"
	columnUserID        = "user_id"
	columnBookmarkID    = "bookmark_id"
	columnCollectionID  = "collection_id"
	columnBookmarkCount = "bookmark_count"
	columnCreatedAtMs   = "created_at_ms"
	columnUpdatedAtMs   = "updated_at_ms"
	queryID             = columnID + " = ?"
	queryIDIn           = columnID + " IN ?"
	queryUserID         = columnUserID + " = ?"
	queryBookmarkID     = columnBookmarkID + " = ?"
	queryCollectionID   = columnCollectionID + " = ?"
	queryLinkPair       = columnBookmarkID + " = ? AND " + columnCollectionID + " = ?"
	orderCreatedAsc     = columnCreatedAtMs + " ASC, " + columnID + " ASC"
	orderCreatedDesc    = columnCreatedAtMs + " DESC, " + columnID + " DESC"
	orderAddedAsc       = "added_at_ms ASC, " + columnID + " ASC"
)

var (
	incrementCounter = gorm.Expr(columnBookmarkCount + " + 1")
	decrementCounter = gorm.Expr("CASE WHEN " + columnBookmarkCount + " > 0 THEN " + columnBookmarkCount + " - 1 ELSE 0 END")
)

// GormStore implements Store on top of a GORM connection.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps db. The schema is expected to be migrated already.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) WithinTransaction(ctx context.Context, fn func(store Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

// InsertBookmark stores the bookmark and increments its owner's bookmark_count.
func (s *GormStore) InsertBookmark(ctx context.Context, bookmark *Bookmark) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(bookmark).Error; err != nil {
			return err
		}
		return tx.Model(&users.User{}).
			Where(queryID, bookmark.UserID).
			Update(columnBookmarkCount, incrementCounter).Error
	})
}

func (s *GormStore) FindBookmark(ctx context.Context, bookmarkID string) (*Bookmark, error) {
	var bookmark Bookmark
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where(queryID, bookmarkID).
		Take(&bookmark).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &bookmark, nil
}

func (s *GormStore) PatchBookmark(ctx context.Context, bookmarkID string, patch BookmarkPatch, updatedAtMs int64) error {
	updates := map[string]any{columnUpdatedAtMs: updatedAtMs}
	if patch.Title != nil {
		updates["title"] = *patch.Title
	}
	if patch.Description != nil {
		updates["description"] = *patch.Description
	}
	if patch.URL != nil {
		updates["url"] = *patch.URL
	}
	if patch.ThumbnailURL != nil {
		updates["thumbnail_url"] = *patch.ThumbnailURL
	}
	if patch.SiteName != nil {
		updates["site_name"] = *patch.SiteName
	}
	if patch.Favicon != nil {
		updates["favicon"] = *patch.Favicon
	}
	if patch.AISummary != nil {
		updates["ai_summary"] = *patch.AISummary
	}
	if patch.Tags != nil {
		updates["tags"] = datatypes.JSONSlice[string](*patch.Tags)
	}
	return s.db.WithContext(ctx).Model(&Bookmark{}).Where(queryID, bookmarkID).Updates(updates).Error
}

func (s *GormStore) SetBookmarkFavorite(ctx context.Context, bookmarkID string, isFavorite bool, updatedAtMs int64) error {
	return s.db.WithContext(ctx).Model(&Bookmark{}).Where(queryID, bookmarkID).Updates(map[string]any{
		"is_favorite":     isFavorite,
		columnUpdatedAtMs: updatedAtMs,
	}).Error
}

func (s *GormStore) SetBookmarkArchived(ctx context.Context, bookmarkID string, isArchived bool, updatedAtMs int64) error {
	return s.db.WithContext(ctx).Model(&Bookmark{}).Where(queryID, bookmarkID).Updates(map[string]any{
		"is_archived":     isArchived,
		columnUpdatedAtMs: updatedAtMs,
	}).Error
}

func (s *GormStore) SetBookmarkReadCount(ctx context.Context, bookmarkID string, readCount int64, readAtMs int64) error {
	return s.db.WithContext(ctx).Model(&Bookmark{}).Where(queryID, bookmarkID).Updates(map[string]any{
		"read_count":      readCount,
		"last_read_at_ms": readAtMs,
		columnUpdatedAtMs: readAtMs,
	}).Error
}

// DeleteBookmark removes the bookmark together with its links and notes. Every collection that
// linked the bookmark and the owning user lose one from their bookmark_count, floored at zero.
func (s *GormStore) DeleteBookmark(ctx context.Context, bookmark Bookmark) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var links []BookmarkCollection
		if err := tx.Where(queryBookmarkID, bookmark.ID).Find(&links).Error; err != nil {
			return err
		}
		for _, link := range links {
			if err := tx.Model(&Collection{}).
				Where(queryID, link.CollectionID).
				Update(columnBookmarkCount, decrementCounter).Error; err != nil {
				return err
			}
		}
		if err := tx.Where(queryBookmarkID, bookmark.ID).Delete(&BookmarkCollection{}).Error; err != nil {
			return err
		}
		if err := tx.Where(queryBookmarkID, bookmark.ID).Delete(&Note{}).Error; err != nil {
			return err
		}
		if err := tx.Where(queryID, bookmark.ID).Delete(&Bookmark{}).Error; err != nil {
			return err
		}
		return tx.Model(&users.User{}).
			Where(queryID, bookmark.UserID).
			Update(columnBookmarkCount, decrementCounter).Error
	})
}

func (s *GormStore) ListBookmarks(ctx context.Context, query BookmarkQuery) ([]Bookmark, error) {
	statement := s.db.WithContext(ctx).Where(queryUserID, query.UserID)
	if query.IsFavorite != nil {
		statement = statement.Where("is_favorite = ?", *query.IsFavorite)
	}
	if query.IsArchived != nil {
		statement = statement.Where("is_archived = ?", *query.IsArchived)
	}
	if query.Descending {
		if query.After != nil {
			statement = statement.Where(
				"("+columnCreatedAtMs+" < ?) OR ("+columnCreatedAtMs+" = ? AND "+columnID+" < ?)",
				query.After.CreatedAtMs, query.After.CreatedAtMs, query.After.ID)
		}
		statement = statement.Order(orderCreatedDesc)
	} else {
		if query.After != nil {
			statement = statement.Where(
				"("+columnCreatedAtMs+" > ?) OR ("+columnCreatedAtMs+" = ? AND "+columnID+" > ?)",
				query.After.CreatedAtMs, query.After.CreatedAtMs, query.After.ID)
		}
		statement = statement.Order(orderCreatedAsc)
	}
	if query.Limit > 0 {
		statement = statement.Limit(query.Limit)
	}

	var bookmarks []Bookmark
	if err := statement.Find(&bookmarks).Error; err != nil {
		return nil, err
	}
	return bookmarks, nil
}

func (s *GormStore) FindBookmarks(ctx context.Context, bookmarkIDs []string) ([]Bookmark, error) {
	if len(bookmarkIDs) == 0 {
		return []Bookmark{}, nil
	}
	var bookmarks []Bookmark
	if err := s.db.WithContext(ctx).Where(queryIDIn, bookmarkIDs).Find(&bookmarks).Error; err != nil {
		return nil, err
	}
	return bookmarks, nil
}

func (s *GormStore) InsertCollection(ctx context.Context, collection *Collection) error {
	return s.db.WithContext(ctx).Create(collection).Error
}

func (s *GormStore) FindCollection(ctx context.Context, collectionID string) (*Collection, error) {
	var collection Collection
	err := s.db.WithContext(ctx).Where(queryID, collectionID).Take(&collection).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &collection, nil
}

func (s *GormStore) PatchCollection(ctx context.Context, collectionID string, patch CollectionPatch, updatedAtMs int64) error {
	updates := map[string]any{columnUpdatedAtMs: updatedAtMs}
	if patch.Name != nil {
		updates["name"] = *patch.Name
	}
	if patch.Description != nil {
		updates["description"] = *patch.Description
	}
	if patch.Icon != nil {
		updates["icon"] = *patch.Icon
	}
	if patch.Color != nil {
		updates["color"] = *patch.Color
	}
	return s.db.WithContext(ctx).Model(&Collection{}).Where(queryID, collectionID).Updates(updates).Error
}

// DeleteCollection removes the collection and its links. Linked bookmarks are left untouched.
func (s *GormStore) DeleteCollection(ctx context.Context, collection Collection) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(queryCollectionID, collection.ID).Delete(&BookmarkCollection{}).Error; err != nil {
			return err
		}
		return tx.Where(queryID, collection.ID).Delete(&Collection{}).Error
	})
}

func (s *GormStore) ListCollections(ctx context.Context, userID string) ([]Collection, error) {
	var collections []Collection
	if err := s.db.WithContext(ctx).
		Where(queryUserID, userID).
		Order(orderCreatedAsc).
		Find(&collections).Error; err != nil {
		return nil, err
	}
	return collections, nil
}

func (s *GormStore) FindCollections(ctx context.Context, collectionIDs []string) ([]Collection, error) {
	if len(collectionIDs) == 0 {
		return []Collection{}, nil
	}
	var collections []Collection
	if err := s.db.WithContext(ctx).Where(queryIDIn, collectionIDs).Find(&collections).Error; err != nil {
		return nil, err
	}
	return collections, nil
}

// InsertLink stores the link, increments the collection's bookmark_count and stamps its
// updated_at_ms with the link's AddedAtMs. A pair that already exists yields ErrDuplicateLink.
func (s *GormStore) InsertLink(ctx context.Context, link *BookmarkCollection) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(link).Error; err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicateLink
			}
			return err
		}
		return tx.Model(&Collection{}).Where(queryID, link.CollectionID).Updates(map[string]any{
			columnBookmarkCount: incrementCounter,
			columnUpdatedAtMs:   link.AddedAtMs,
		}).Error
	})
}

func (s *GormStore) FindLink(ctx context.Context, bookmarkID, collectionID string) (*BookmarkCollection, error) {
	var link BookmarkCollection
	err := s.db.WithContext(ctx).Where(queryLinkPair, bookmarkID, collectionID).Take(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &link, nil
}

// DeleteLink removes the link and decrements the collection's bookmark_count, floored at zero.
func (s *GormStore) DeleteLink(ctx context.Context, link BookmarkCollection, updatedAtMs int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(queryID, link.ID).Delete(&BookmarkCollection{}).Error; err != nil {
			return err
		}
		return tx.Model(&Collection{}).Where(queryID, link.CollectionID).Updates(map[string]any{
			columnBookmarkCount: decrementCounter,
			columnUpdatedAtMs:   updatedAtMs,
		}).Error
	})
}

func (s *GormStore) ListLinksByCollection(ctx context.Context, collectionID string) ([]BookmarkCollection, error) {
	var links []BookmarkCollection
	if err := s.db.WithContext(ctx).
		Where(queryCollectionID, collectionID).
		Order(orderAddedAsc).
		Find(&links).Error; err != nil {
		return nil, err
	}
	return links, nil
}

func (s *GormStore) ListLinksByBookmark(ctx context.Context, bookmarkID string) ([]BookmarkCollection, error) {
	var links []BookmarkCollection
	if err := s.db.WithContext(ctx).
		Where(queryBookmarkID, bookmarkID).
		Order(orderAddedAsc).
		Find(&links).Error; err != nil {
		return nil, err
	}
	return links, nil
}

func (s *GormStore) InsertNote(ctx context.Context, note *Note) error {
	return s.db.WithContext(ctx).Create(note).Error
}

func (s *GormStore) FindNote(ctx context.Context, noteID string) (*Note, error) {
	var note Note
	err := s.db.WithContext(ctx).Where(queryID, noteID).Take(&note).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &note, nil
}

func (s *GormStore) UpdateNoteContent(ctx context.Context, noteID, content string, updatedAtMs int64) error {
	return s.db.WithContext(ctx).Model(&Note{}).Where(queryID, noteID).Updates(map[string]any{
		"content":         content,
		columnUpdatedAtMs: updatedAtMs,
	}).Error
}

func (s *GormStore) DeleteNote(ctx context.Context, noteID string) error {
	return s.db.WithContext(ctx).Where(queryID, noteID).Delete(&Note{}).Error
}

func (s *GormStore) ListNotesByBookmark(ctx context.Context, bookmarkID string) ([]Note, error) {
	var notes []Note
	if err := s.db.WithContext(ctx).
		Where(queryBookmarkID, bookmarkID).
		Order(orderCreatedAsc).
		Find(&notes).Error; err != nil {
		return nil, err
	}
	return notes, nil
}

func (s *GormStore) InsertChatMessage(ctx context.Context, message *ChatMessage) error {
	return s.db.WithContext(ctx).Create(message).Error
}

func (s *GormStore) ListChatMessages(ctx context.Context, userID string) ([]ChatMessage, error) {
	var messages []ChatMessage
	if err := s.db.WithContext(ctx).
		Where(queryUserID, userID).
		Order(orderCreatedAsc).
		Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}

func (s *GormStore) DeleteChatMessages(ctx context.Context, userID string) (int64, error) {
	result := s.db.WithContext(ctx).Where(queryUserID, userID).Delete(&ChatMessage{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
