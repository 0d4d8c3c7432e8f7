package library

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/MarcoPoloResearchLab/stash/internal/users"
	"pgregory.net/rapid"
)

// counterModel tracks the ids the property run has created and not yet deleted.
type counterModel struct {
	bookmarks   []string
	collections []string
}

func TestDenormalizedCountersMatchDetailRows(t *testing.T) {
	fixture := newTestFixture(t)
	ctx := context.Background()
	var runCounter int

	rapid.Check(t, func(rt *rapid.T) {
		runCounter++
		caller := fmt.Sprintf("rapid-user-%d", runCounter)
		userID, err := fixture.users.Upsert(ctx, caller, users.Profile{Name: caller})
		if err != nil {
			rt.Fatalf("upsert failed: %v", err)
		}
		model := &counterModel{}

		steps := rapid.IntRange(1, 30).Draw(rt, "steps")
		for step := 0; step < steps; step++ {
			action := rapid.SampledFrom([]string{
				"create_bookmark",
				"remove_bookmark",
				"create_collection",
				"remove_collection",
				"add_link",
				"remove_link",
			}).Draw(rt, "action")

			switch action {
			case "create_bookmark":
				bookmarkID, err := fixture.service.CreateBookmark(ctx, caller, NewBookmark{
					URL:   "https://example.com/" + caller,
					Title: rapid.StringMatching(`[A-Za-z0-9]{1,12}`).Draw(rt, "title"),
				})
				if err != nil {
					rt.Fatalf("create bookmark failed: %v", err)
				}
				model.bookmarks = append(model.bookmarks, bookmarkID)
			case "remove_bookmark":
				if len(model.bookmarks) == 0 {
					continue
				}
				index := rapid.IntRange(0, len(model.bookmarks)-1).Draw(rt, "bookmark")
				if _, err := fixture.service.RemoveBookmark(ctx, caller, model.bookmarks[index]); err != nil {
					rt.Fatalf("remove bookmark failed: %v", err)
				}
				model.bookmarks = append(model.bookmarks[:index], model.bookmarks[index+1:]...)
			case "create_collection":
				collectionID, err := fixture.service.CreateCollection(ctx, caller, NewCollection{Name: "c"})
				if err != nil {
					rt.Fatalf("create collection failed: %v", err)
				}
				model.collections = append(model.collections, collectionID)
			case "remove_collection":
				if len(model.collections) == 0 {
					continue
				}
				index := rapid.IntRange(0, len(model.collections)-1).Draw(rt, "collection")
				if _, err := fixture.service.RemoveCollection(ctx, caller, model.collections[index]); err != nil {
					rt.Fatalf("remove collection failed: %v", err)
				}
				model.collections = append(model.collections[:index], model.collections[index+1:]...)
			case "add_link", "remove_link":
				if len(model.bookmarks) == 0 || len(model.collections) == 0 {
					continue
				}
				bookmarkID := rapid.SampledFrom(model.bookmarks).Draw(rt, "link_bookmark")
				collectionID := rapid.SampledFrom(model.collections).Draw(rt, "link_collection")
				if action == "add_link" {
					_, err = fixture.service.AddToCollection(ctx, caller, bookmarkID, collectionID)
					if err != nil && !errors.Is(err, ErrAlreadyInCollection) {
						rt.Fatalf("add link failed: %v", err)
					}
				} else {
					_, err = fixture.service.RemoveFromCollection(ctx, caller, bookmarkID, collectionID)
					if err != nil && !errors.Is(err, ErrNotInCollection) {
						rt.Fatalf("remove link failed: %v", err)
					}
				}
			}

			assertCountersConsistent(rt, fixture, caller, userID, model)
		}
	})
}

func assertCountersConsistent(rt *rapid.T, fixture *testFixture, caller, userID string, model *counterModel) {
	user, err := fixture.users.GetCurrent(context.Background(), caller)
	if err != nil || user == nil {
		rt.Fatalf("failed to load user: %v", err)
	}
	var liveBookmarks int64
	if err := fixture.db.Model(&Bookmark{}).Where("user_id = ?", userID).Count(&liveBookmarks).Error; err != nil {
		rt.Fatalf("count bookmarks failed: %v", err)
	}
	if user.BookmarkCount != liveBookmarks || liveBookmarks != int64(len(model.bookmarks)) {
		rt.Fatalf("user counter %d, live bookmarks %d, model %d", user.BookmarkCount, liveBookmarks, len(model.bookmarks))
	}

	for _, collectionID := range model.collections {
		var collection Collection
		if err := fixture.db.Where("id = ?", collectionID).Take(&collection).Error; err != nil {
			rt.Fatalf("load collection failed: %v", err)
		}
		var links int64
		if err := fixture.db.Model(&BookmarkCollection{}).Where("collection_id = ?", collectionID).Count(&links).Error; err != nil {
			rt.Fatalf("count links failed: %v", err)
		}
		if collection.BookmarkCount != links {
			rt.Fatalf("collection %s counter %d, links %d", collectionID, collection.BookmarkCount, links)
		}
	}
}
