package library

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MarcoPoloResearchLab/stash/internal/ids"
	"github.com/MarcoPoloResearchLab/stash/internal/users"
	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

const testEpochMs = int64(1700000000000)

var databaseCounter atomic.Int64

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.UnixMilli(testEpochMs).UTC()}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(step time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(step)
}

type failingIDProvider struct{}

func (failingIDProvider) NewID() (string, error) {
	return "", errors.New("entropy exhausted")
}

type testFixture struct {
	db      *gorm.DB
	users   *users.Service
	service *Service
	clock   *manualClock
}

func newTestFixture(t *testing.T) *testFixture {
	t.Helper()
	dsn := fmt.Sprintf("file:library-%d?mode=memory&cache=shared", databaseCounter.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to access sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	models := append([]any{&users.User{}}, Models()...)
	if err := db.AutoMigrate(models...); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}

	clock := newManualClock()
	userService, err := users.NewService(users.ServiceConfig{
		Database:   db,
		Clock:      clock.Now,
		IDProvider: ids.NewUUIDProvider(),
	})
	if err != nil {
		t.Fatalf("failed to create user service: %v", err)
	}
	service, err := NewService(ServiceConfig{
		Store:      NewGormStore(db),
		Identities: userService,
		Clock:      clock.Now,
		IDProvider: ids.NewUUIDProvider(),
	})
	if err != nil {
		t.Fatalf("failed to create library service: %v", err)
	}
	return &testFixture{db: db, users: userService, service: service, clock: clock}
}

func (f *testFixture) mustUser(t *testing.T, externalID string) string {
	t.Helper()
	userID, err := f.users.Upsert(context.Background(), externalID, users.Profile{
		Name:  externalID,
		Email: externalID + "@example.com",
	})
	if err != nil {
		t.Fatalf("failed to upsert user %q: %v", externalID, err)
	}
	return userID
}

func (f *testFixture) mustBookmark(t *testing.T, caller, title string, tags ...string) string {
	t.Helper()
	bookmarkID, err := f.service.CreateBookmark(context.Background(), caller, NewBookmark{
		URL:   "https://example.com/" + title,
		Title: title,
		Tags:  tags,
	})
	if err != nil {
		t.Fatalf("failed to create bookmark %q: %v", title, err)
	}
	return bookmarkID
}

func (f *testFixture) mustCollection(t *testing.T, caller, name string) string {
	t.Helper()
	collectionID, err := f.service.CreateCollection(context.Background(), caller, NewCollection{Name: name})
	if err != nil {
		t.Fatalf("failed to create collection %q: %v", name, err)
	}
	return collectionID
}

func (f *testFixture) mustLink(t *testing.T, caller, bookmarkID, collectionID string) {
	t.Helper()
	if _, err := f.service.AddToCollection(context.Background(), caller, bookmarkID, collectionID); err != nil {
		t.Fatalf("failed to link bookmark %q into %q: %v", bookmarkID, collectionID, err)
	}
}

func (f *testFixture) userCount(t *testing.T, externalID string) int64 {
	t.Helper()
	user, err := f.users.GetCurrent(context.Background(), externalID)
	if err != nil || user == nil {
		t.Fatalf("failed to load user %q: %v", externalID, err)
	}
	return user.BookmarkCount
}

func (f *testFixture) collection(t *testing.T, collectionID string) Collection {
	t.Helper()
	var collection Collection
	if err := f.db.Where("id = ?", collectionID).Take(&collection).Error; err != nil {
		t.Fatalf("failed to load collection %q: %v", collectionID, err)
	}
	return collection
}

func (f *testFixture) rowCount(t *testing.T, model any, query string, args ...any) int64 {
	t.Helper()
	var total int64
	if err := f.db.Model(model).Where(query, args...).Count(&total).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	return total
}

func requireCode(t *testing.T, err error, code string, sentinel error) {
	t.Helper()
	var serviceErr *ServiceError
	if !errors.As(err, &serviceErr) {
		t.Fatalf("expected service error %q, got %v", code, err)
	}
	if serviceErr.Code() != code {
		t.Fatalf("expected code %q, got %q", code, serviceErr.Code())
	}
	if sentinel != nil && !errors.Is(err, sentinel) {
		t.Fatalf("expected %v to wrap %v", err, sentinel)
	}
}

func bookmarkIDs(bookmarks []Bookmark) []string {
	identifiers := make([]string, 0, len(bookmarks))
	for _, bookmark := range bookmarks {
		identifiers = append(identifiers, bookmark.ID)
	}
	return identifiers
}

func stringPtr(value string) *string {
	return &value
}

func boolPtr(value bool) *bool {
	return &value
}
