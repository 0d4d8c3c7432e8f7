package library

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestBookmarkCollectionLifecycleScenario(t *testing.T) {
	fixture := newTestFixture(t)
	ctx := context.Background()
	fixture.mustUser(t, "u1")

	bookmarkID, err := fixture.service.CreateBookmark(ctx, "u1", NewBookmark{URL: "https://a.com", Title: "A"})
	if err != nil {
		t.Fatalf("create bookmark failed: %v", err)
	}
	if count := fixture.userCount(t, "u1"); count != 1 {
		t.Fatalf("expected user count 1, got %d", count)
	}

	collectionID := fixture.mustCollection(t, "u1", "C1")
	linkID, err := fixture.service.AddToCollection(ctx, "u1", bookmarkID, collectionID)
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if linkID == "" {
		t.Fatalf("expected link id")
	}
	if count := fixture.collection(t, collectionID).BookmarkCount; count != 1 {
		t.Fatalf("expected collection count 1, got %d", count)
	}
	collections, err := fixture.service.CollectionsForBookmark(ctx, "u1", bookmarkID)
	if err != nil {
		t.Fatalf("collections for bookmark failed: %v", err)
	}
	if len(collections) != 1 || collections[0].ID != collectionID {
		t.Fatalf("expected [C1], got %+v", collections)
	}

	if _, err := fixture.service.RemoveFromCollection(ctx, "u1", bookmarkID, collectionID); err != nil {
		t.Fatalf("remove from collection failed: %v", err)
	}
	if count := fixture.collection(t, collectionID).BookmarkCount; count != 0 {
		t.Fatalf("expected collection count 0, got %d", count)
	}

	if _, err := fixture.service.RemoveBookmark(ctx, "u1", bookmarkID); err != nil {
		t.Fatalf("remove bookmark failed: %v", err)
	}
	if count := fixture.userCount(t, "u1"); count != 0 {
		t.Fatalf("expected user count 0, got %d", count)
	}
}

func TestAddToCollectionRejectsDuplicatePair(t *testing.T) {
	fixture := newTestFixture(t)
	ctx := context.Background()
	fixture.mustUser(t, "user-1")
	bookmarkID := fixture.mustBookmark(t, "user-1", "a")
	collectionID := fixture.mustCollection(t, "user-1", "c")
	fixture.mustLink(t, "user-1", bookmarkID, collectionID)

	_, err := fixture.service.AddToCollection(ctx, "user-1", bookmarkID, collectionID)
	requireCode(t, err, "links.add_to_collection.already_exists", ErrAlreadyInCollection)

	if links := fixture.rowCount(t, &BookmarkCollection{}, "collection_id = ?", collectionID); links != 1 {
		t.Fatalf("expected a single link, got %d", links)
	}
	if count := fixture.collection(t, collectionID).BookmarkCount; count != 1 {
		t.Fatalf("expected collection count 1, got %d", count)
	}
}

func TestInsertLinkMapsUniqueViolationToDuplicate(t *testing.T) {
	fixture := newTestFixture(t)
	ctx := context.Background()
	userID := fixture.mustUser(t, "user-1")
	bookmarkID := fixture.mustBookmark(t, "user-1", "a")
	collectionID := fixture.mustCollection(t, "user-1", "c")
	store := NewGormStore(fixture.db)

	first := &BookmarkCollection{ID: "link-1", BookmarkID: bookmarkID, CollectionID: collectionID, UserID: userID, AddedAtMs: testEpochMs}
	if err := store.InsertLink(ctx, first); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	second := &BookmarkCollection{ID: "link-2", BookmarkID: bookmarkID, CollectionID: collectionID, UserID: userID, AddedAtMs: testEpochMs}
	if err := store.InsertLink(ctx, second); !errors.Is(err, ErrDuplicateLink) {
		t.Fatalf("expected duplicate link error, got %v", err)
	}
	if count := fixture.collection(t, collectionID).BookmarkCount; count != 1 {
		t.Fatalf("rejected insert must not change the counter, got %d", count)
	}
}

func TestAddToCollectionRefreshesCollectionUpdatedTime(t *testing.T) {
	fixture := newTestFixture(t)
	fixture.mustUser(t, "user-1")
	bookmarkID := fixture.mustBookmark(t, "user-1", "a")
	collectionID := fixture.mustCollection(t, "user-1", "c")

	fixture.clock.Advance(time.Minute)
	fixture.mustLink(t, "user-1", bookmarkID, collectionID)
	if updated := fixture.collection(t, collectionID).UpdatedAtMs; updated != testEpochMs+time.Minute.Milliseconds() {
		t.Fatalf("expected updated time after add, got %d", updated)
	}

	fixture.clock.Advance(time.Minute)
	if _, err := fixture.service.RemoveFromCollection(context.Background(), "user-1", bookmarkID, collectionID); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if updated := fixture.collection(t, collectionID).UpdatedAtMs; updated != testEpochMs+2*time.Minute.Milliseconds() {
		t.Fatalf("expected updated time after remove, got %d", updated)
	}
}

func TestRemoveFromCollectionRequiresExistingLink(t *testing.T) {
	fixture := newTestFixture(t)
	fixture.mustUser(t, "user-1")
	bookmarkID := fixture.mustBookmark(t, "user-1", "a")
	collectionID := fixture.mustCollection(t, "user-1", "c")

	_, err := fixture.service.RemoveFromCollection(context.Background(), "user-1", bookmarkID, collectionID)
	requireCode(t, err, "links.remove_from_collection.not_found", ErrNotInCollection)
	if count := fixture.collection(t, collectionID).BookmarkCount; count != 0 {
		t.Fatalf("expected collection count 0, got %d", count)
	}
}

func TestLinkOperationsRequireOwnershipOfBothSides(t *testing.T) {
	fixture := newTestFixture(t)
	ctx := context.Background()
	fixture.mustUser(t, "owner")
	fixture.mustUser(t, "intruder")
	ownerBookmark := fixture.mustBookmark(t, "owner", "a")
	ownerCollection := fixture.mustCollection(t, "owner", "c")
	intruderBookmark := fixture.mustBookmark(t, "intruder", "b")
	intruderCollection := fixture.mustCollection(t, "intruder", "d")

	_, err := fixture.service.AddToCollection(ctx, "intruder", ownerBookmark, intruderCollection)
	requireCode(t, err, "links.add_to_collection.not_found", ErrBookmarkNotFound)
	_, err = fixture.service.AddToCollection(ctx, "intruder", intruderBookmark, ownerCollection)
	requireCode(t, err, "links.add_to_collection.not_found", ErrCollectionNotFound)
	_, err = fixture.service.AddToCollection(ctx, "intruder", intruderBookmark, "missing")
	requireCode(t, err, "links.add_to_collection.not_found", ErrCollectionNotFound)

	fixture.mustLink(t, "owner", ownerBookmark, ownerCollection)
	_, err = fixture.service.RemoveFromCollection(ctx, "intruder", ownerBookmark, ownerCollection)
	requireCode(t, err, "links.remove_from_collection.not_found", ErrBookmarkNotFound)
	if count := fixture.collection(t, ownerCollection).BookmarkCount; count != 1 {
		t.Fatalf("owner collection must be untouched, got %d", count)
	}
}

func TestCreateCollectionDefaultsAndValidation(t *testing.T) {
	fixture := newTestFixture(t)
	ctx := context.Background()
	userID := fixture.mustUser(t, "user-1")

	collectionID, err := fixture.service.CreateCollection(ctx, "user-1", NewCollection{Name: " Reading ", Icon: stringPtr("book"), Color: stringPtr("")})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	collection, err := fixture.service.GetCollection(ctx, "user-1", collectionID)
	if err != nil || collection == nil {
		t.Fatalf("get failed: %v", err)
	}
	if collection.UserID != userID || collection.Name != "Reading" || collection.BookmarkCount != 0 {
		t.Fatalf("unexpected collection %+v", collection)
	}
	if collection.Icon == nil || *collection.Icon != "book" || collection.Color != nil {
		t.Fatalf("unexpected optional fields %+v", collection)
	}

	_, err = fixture.service.CreateCollection(ctx, "user-1", NewCollection{Name: "   "})
	requireCode(t, err, "collections.create.invalid_input", ErrInvalidInput)
}

func TestUpdateCollectionAppliesPatch(t *testing.T) {
	fixture := newTestFixture(t)
	ctx := context.Background()
	fixture.mustUser(t, "user-1")
	collectionID, err := fixture.service.CreateCollection(ctx, "user-1", NewCollection{Name: "Old", Description: stringPtr("keep")})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	fixture.clock.Advance(time.Second)
	if _, err := fixture.service.UpdateCollection(ctx, "user-1", collectionID, CollectionPatch{Name: stringPtr("New"), Color: stringPtr("#fff")}); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	collection := fixture.collection(t, collectionID)
	if collection.Name != "New" || collection.Color == nil || *collection.Color != "#fff" {
		t.Fatalf("unexpected collection %+v", collection)
	}
	if collection.Description == nil || *collection.Description != "keep" {
		t.Fatalf("absent description must stay untouched")
	}
	if collection.UpdatedAtMs != testEpochMs+1000 {
		t.Fatalf("expected refreshed updated time, got %d", collection.UpdatedAtMs)
	}

	_, err = fixture.service.UpdateCollection(ctx, "user-1", collectionID, CollectionPatch{Name: stringPtr(" ")})
	requireCode(t, err, "collections.update.invalid_input", ErrInvalidInput)
}

func TestRemoveCollectionKeepsBookmarksAndOtherMemberships(t *testing.T) {
	fixture := newTestFixture(t)
	ctx := context.Background()
	fixture.mustUser(t, "user-1")
	bookmarkID := fixture.mustBookmark(t, "user-1", "a")
	doomed := fixture.mustCollection(t, "user-1", "doomed")
	kept := fixture.mustCollection(t, "user-1", "kept")
	fixture.mustLink(t, "user-1", bookmarkID, doomed)
	fixture.mustLink(t, "user-1", bookmarkID, kept)

	if _, err := fixture.service.RemoveCollection(ctx, "user-1", doomed); err != nil {
		t.Fatalf("remove failed: %v", err)
	}

	bookmark, err := fixture.service.GetBookmark(ctx, "user-1", bookmarkID)
	if err != nil || bookmark == nil {
		t.Fatalf("bookmark must survive collection removal: %v", err)
	}
	if count := fixture.userCount(t, "user-1"); count != 1 {
		t.Fatalf("expected user count 1, got %d", count)
	}
	if links := fixture.rowCount(t, &BookmarkCollection{}, "collection_id = ?", doomed); links != 0 {
		t.Fatalf("expected doomed links removed, got %d", links)
	}
	collections, err := fixture.service.CollectionsForBookmark(ctx, "user-1", bookmarkID)
	if err != nil {
		t.Fatalf("collections for bookmark failed: %v", err)
	}
	if len(collections) != 1 || collections[0].ID != kept {
		t.Fatalf("expected only kept collection, got %+v", collections)
	}
	if count := fixture.collection(t, kept).BookmarkCount; count != 1 {
		t.Fatalf("expected kept collection count 1, got %d", count)
	}
	if collection, err := fixture.service.GetCollection(ctx, "user-1", doomed); err != nil || collection != nil {
		t.Fatalf("expected doomed collection to be gone, got %+v (%v)", collection, err)
	}
}

func TestForeignCollectionBehavesLikeMissingCollection(t *testing.T) {
	fixture := newTestFixture(t)
	ctx := context.Background()
	fixture.mustUser(t, "owner")
	fixture.mustUser(t, "intruder")
	bookmarkID := fixture.mustBookmark(t, "owner", "a")
	collectionID := fixture.mustCollection(t, "owner", "private")
	fixture.mustLink(t, "owner", bookmarkID, collectionID)

	for name, id := range map[string]string{"foreign": collectionID, "missing": "does-not-exist"} {
		t.Run(name, func(t *testing.T) {
			collection, err := fixture.service.GetCollection(ctx, "intruder", id)
			if err != nil || collection != nil {
				t.Fatalf("expected nil collection, got %+v (%v)", collection, err)
			}
			bookmarks, err := fixture.service.GetCollectionBookmarks(ctx, "intruder", id)
			if err != nil || len(bookmarks) != 0 {
				t.Fatalf("expected no bookmarks, got %v (%v)", bookmarks, err)
			}
			_, err = fixture.service.UpdateCollection(ctx, "intruder", id, CollectionPatch{Name: stringPtr("x")})
			requireCode(t, err, "collections.update.not_found", ErrCollectionNotFound)
			_, err = fixture.service.RemoveCollection(ctx, "intruder", id)
			requireCode(t, err, "collections.remove.not_found", ErrCollectionNotFound)
		})
	}

	collections, err := fixture.service.ListCollections(ctx, "intruder")
	if err != nil || len(collections) != 0 {
		t.Fatalf("expected intruder to see no collections, got %v (%v)", collections, err)
	}
	if fixture.collection(t, collectionID).Name != "private" {
		t.Fatalf("owner collection must be untouched")
	}
}

func TestGetCollectionBookmarksReturnsLinkOrder(t *testing.T) {
	fixture := newTestFixture(t)
	ctx := context.Background()
	fixture.mustUser(t, "user-1")
	first := fixture.mustBookmark(t, "user-1", "first")
	fixture.clock.Advance(time.Second)
	second := fixture.mustBookmark(t, "user-1", "second")
	collectionID := fixture.mustCollection(t, "user-1", "c")

	fixture.mustLink(t, "user-1", second, collectionID)
	fixture.clock.Advance(time.Second)
	fixture.mustLink(t, "user-1", first, collectionID)

	bookmarks, err := fixture.service.GetCollectionBookmarks(ctx, "user-1", collectionID)
	if err != nil {
		t.Fatalf("get bookmarks failed: %v", err)
	}
	if !reflect.DeepEqual(bookmarkIDs(bookmarks), []string{second, first}) {
		t.Fatalf("expected link order, got %v", bookmarkIDs(bookmarks))
	}
}

func TestListCollectionsReturnsOwnCollectionsOldestFirst(t *testing.T) {
	fixture := newTestFixture(t)
	ctx := context.Background()
	fixture.mustUser(t, "user-1")
	fixture.mustUser(t, "user-2")
	first := fixture.mustCollection(t, "user-1", "first")
	fixture.clock.Advance(time.Second)
	second := fixture.mustCollection(t, "user-1", "second")
	fixture.mustCollection(t, "user-2", "other")

	collections, err := fixture.service.ListCollections(ctx, "user-1")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(collections) != 2 || collections[0].ID != first || collections[1].ID != second {
		t.Fatalf("unexpected collections %+v", collections)
	}
}
