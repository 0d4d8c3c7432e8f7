package library

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

const (
	opAddToCollection        = "links.add_to_collection"
	opRemoveFromCollection   = "links.remove_from_collection"
	opCollectionsForBookmark = "links.get_collections_for_bookmark"
)

// AddToCollection links an owned bookmark into an owned collection and returns the link id.
// Linking the same pair twice fails with ErrAlreadyInCollection.
func (s *Service) AddToCollection(ctx context.Context, caller, bookmarkID, collectionID string) (string, error) {
	userID, err := s.requireCaller(ctx, opAddToCollection, caller)
	if err != nil {
		return "", err
	}
	linkID, err := s.newID(opAddToCollection)
	if err != nil {
		return "", err
	}

	err = s.store.WithinTransaction(ctx, func(store Store) error {
		if _, err := s.requireOwnedBookmark(ctx, store, opAddToCollection, userID, bookmarkID); err != nil {
			return err
		}
		if _, err := s.requireOwnedCollection(ctx, store, opAddToCollection, userID, collectionID); err != nil {
			return err
		}
		existing, err := store.FindLink(ctx, bookmarkID, collectionID)
		if err != nil {
			return err
		}
		if existing != nil {
			return newServiceError(opAddToCollection, reasonAlreadyExists, ErrAlreadyInCollection)
		}
		return store.InsertLink(ctx, &BookmarkCollection{
			ID:           linkID,
			BookmarkID:   bookmarkID,
			CollectionID: collectionID,
			UserID:       userID,
			AddedAtMs:    s.nowMs(),
		})
	})
	if errors.Is(err, ErrDuplicateLink) {
		return "", newServiceError(opAddToCollection, reasonAlreadyExists, ErrAlreadyInCollection)
	}
	if err != nil {
		return "", s.settle(opAddToCollection, err)
	}
	return linkID, nil
}

// RemoveFromCollection unlinks an owned bookmark from an owned collection and returns the
// bookmark id. A pair that is not linked fails with ErrNotInCollection.
func (s *Service) RemoveFromCollection(ctx context.Context, caller, bookmarkID, collectionID string) (string, error) {
	userID, err := s.requireCaller(ctx, opRemoveFromCollection, caller)
	if err != nil {
		return "", err
	}

	err = s.store.WithinTransaction(ctx, func(store Store) error {
		if _, err := s.requireOwnedBookmark(ctx, store, opRemoveFromCollection, userID, bookmarkID); err != nil {
			return err
		}
		if _, err := s.requireOwnedCollection(ctx, store, opRemoveFromCollection, userID, collectionID); err != nil {
			return err
		}
		link, err := store.FindLink(ctx, bookmarkID, collectionID)
		if err != nil {
			return err
		}
		if link == nil {
			return newServiceError(opRemoveFromCollection, reasonNotFound, ErrNotInCollection)
		}
		return store.DeleteLink(ctx, *link, s.nowMs())
	})
	if err != nil {
		return "", s.settle(opRemoveFromCollection, err)
	}
	return bookmarkID, nil
}

// CollectionsForBookmark returns the caller's collections that contain an owned bookmark.
// A missing or foreign bookmark yields an empty list.
func (s *Service) CollectionsForBookmark(ctx context.Context, caller, bookmarkID string) ([]Collection, error) {
	userID, found, err := s.lookupCaller(ctx, opCollectionsForBookmark, caller)
	if err != nil {
		return nil, err
	}
	if !found {
		return []Collection{}, nil
	}

	bookmark, err := s.findOwnedBookmark(ctx, s.store, userID, bookmarkID)
	if err != nil {
		return nil, s.fail(opCollectionsForBookmark, reasonQueryFailed, err, zap.String(columnBookmarkID, bookmarkID))
	}
	if bookmark == nil {
		return []Collection{}, nil
	}

	links, err := s.store.ListLinksByBookmark(ctx, bookmarkID)
	if err != nil {
		return nil, s.fail(opCollectionsForBookmark, reasonQueryFailed, err, zap.String(columnBookmarkID, bookmarkID))
	}
	collectionIDs := make([]string, 0, len(links))
	for _, link := range links {
		collectionIDs = append(collectionIDs, link.CollectionID)
	}
	linked, err := s.store.FindCollections(ctx, collectionIDs)
	if err != nil {
		return nil, s.fail(opCollectionsForBookmark, reasonQueryFailed, err, zap.String(columnBookmarkID, bookmarkID))
	}
	byID := make(map[string]Collection, len(linked))
	for _, collection := range linked {
		byID[collection.ID] = collection
	}

	collections := make([]Collection, 0, len(links))
	for _, link := range links {
		collection, ok := byID[link.CollectionID]
		if ok && collection.UserID == userID {
			collections = append(collections, collection)
		}
	}
	return collections, nil
}
