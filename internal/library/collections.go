package library

import (
	"context"

	"go.uber.org/zap"
)

const (
	opListCollections          = "collections.list"
	opGetCollection            = "collections.get"
	opGetCollectionBookmarks   = "collections.get_bookmarks"
	opCreateCollection         = "collections.create"
	opUpdateCollection         = "collections.update"
	opRemoveCollection         = "collections.remove"
	fieldCollectionIDLogKey    = columnCollectionID
	collectionNameFieldDisplay = "name"
)

// ListCollections returns the caller's collections, oldest first.
func (s *Service) ListCollections(ctx context.Context, caller string) ([]Collection, error) {
	userID, found, err := s.lookupCaller(ctx, opListCollections, caller)
	if err != nil {
		return nil, err
	}
	if !found {
		return []Collection{}, nil
	}
	collections, err := s.store.ListCollections(ctx, userID)
	if err != nil {
		return nil, s.fail(opListCollections, reasonQueryFailed, err, zap.String(columnUserID, userID))
	}
	return collections, nil
}

// GetCollection returns the collection when the caller owns it, nil otherwise.
func (s *Service) GetCollection(ctx context.Context, caller, collectionID string) (*Collection, error) {
	userID, found, err := s.lookupCaller(ctx, opGetCollection, caller)
	if err != nil || !found {
		return nil, err
	}
	collection, err := s.findOwnedCollection(ctx, s.store, userID, collectionID)
	if err != nil {
		return nil, s.fail(opGetCollection, reasonQueryFailed, err, zap.String(fieldCollectionIDLogKey, collectionID))
	}
	return collection, nil
}

// GetCollectionBookmarks returns the caller's bookmarks linked to an owned collection in the
// order they were added. A missing or foreign collection yields an empty list.
func (s *Service) GetCollectionBookmarks(ctx context.Context, caller, collectionID string) ([]Bookmark, error) {
	userID, found, err := s.lookupCaller(ctx, opGetCollectionBookmarks, caller)
	if err != nil {
		return nil, err
	}
	if !found {
		return []Bookmark{}, nil
	}
	collection, err := s.findOwnedCollection(ctx, s.store, userID, collectionID)
	if err != nil {
		return nil, s.fail(opGetCollectionBookmarks, reasonQueryFailed, err, zap.String(fieldCollectionIDLogKey, collectionID))
	}
	if collection == nil {
		return []Bookmark{}, nil
	}
	bookmarks, err := s.linkedBookmarks(ctx, userID, collectionID)
	if err != nil {
		return nil, s.fail(opGetCollectionBookmarks, reasonQueryFailed, err, zap.String(fieldCollectionIDLogKey, collectionID))
	}
	return bookmarks, nil
}

// CreateCollection creates an empty collection for the caller and returns its id.
func (s *Service) CreateCollection(ctx context.Context, caller string, input NewCollection) (string, error) {
	userID, err := s.requireCaller(ctx, opCreateCollection, caller)
	if err != nil {
		return "", err
	}
	name, err := validateRequired(collectionNameFieldDisplay, input.Name)
	if err != nil {
		return "", newServiceError(opCreateCollection, reasonInvalidInput, err)
	}
	collectionID, err := s.newID(opCreateCollection)
	if err != nil {
		return "", err
	}

	nowMs := s.nowMs()
	collection := Collection{
		ID:            collectionID,
		UserID:        userID,
		Name:          name,
		Description:   normalizeOptional(input.Description),
		Icon:          normalizeOptional(input.Icon),
		Color:         normalizeOptional(input.Color),
		BookmarkCount: 0,
		CreatedAtMs:   nowMs,
		UpdatedAtMs:   nowMs,
	}
	if err := s.store.InsertCollection(ctx, &collection); err != nil {
		return "", s.fail(opCreateCollection, reasonWriteFailed, err, zap.String(columnUserID, userID))
	}
	return collectionID, nil
}

// UpdateCollection applies the patch to an owned collection and refreshes its updated time.
func (s *Service) UpdateCollection(ctx context.Context, caller, collectionID string, patch CollectionPatch) (string, error) {
	userID, err := s.requireCaller(ctx, opUpdateCollection, caller)
	if err != nil {
		return "", err
	}
	if patch.Name != nil {
		name, err := validateRequired(collectionNameFieldDisplay, *patch.Name)
		if err != nil {
			return "", newServiceError(opUpdateCollection, reasonInvalidInput, err)
		}
		patch.Name = &name
	}

	err = s.store.WithinTransaction(ctx, func(store Store) error {
		if _, err := s.requireOwnedCollection(ctx, store, opUpdateCollection, userID, collectionID); err != nil {
			return err
		}
		return store.PatchCollection(ctx, collectionID, patch, s.nowMs())
	})
	if err != nil {
		return "", s.settle(opUpdateCollection, err)
	}
	return collectionID, nil
}

// RemoveCollection deletes an owned collection and its links. The bookmarks themselves remain.
func (s *Service) RemoveCollection(ctx context.Context, caller, collectionID string) (string, error) {
	userID, err := s.requireCaller(ctx, opRemoveCollection, caller)
	if err != nil {
		return "", err
	}

	err = s.store.WithinTransaction(ctx, func(store Store) error {
		collection, err := s.requireOwnedCollection(ctx, store, opRemoveCollection, userID, collectionID)
		if err != nil {
			return err
		}
		return store.DeleteCollection(ctx, collection)
	})
	if err != nil {
		return "", s.settle(opRemoveCollection, err)
	}
	return collectionID, nil
}
