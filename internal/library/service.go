package library

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MarcoPoloResearchLab/stash/internal/ids"
	"github.com/MarcoPoloResearchLab/stash/internal/users"
	"go.uber.org/zap"
)

var (
	// ErrBookmarkNotFound covers both a missing bookmark and one owned by someone else.
	ErrBookmarkNotFound = errors.New("bookmark not found or no access")
	// ErrCollectionNotFound covers both a missing collection and one owned by someone else.
	ErrCollectionNotFound = errors.New("collection not found or no access")
	// ErrNoteNotFound covers both a missing note and one owned by someone else.
	ErrNoteNotFound = errors.New("note not found or no access")
	// ErrAlreadyInCollection rejects a second link of the same bookmark into a collection.
	ErrAlreadyInCollection = errors.New("bookmark already exists in this collection")
	// ErrNotInCollection rejects removing a link that does not exist.
	ErrNotInCollection = errors.New("bookmark does not exist in this collection")
	// ErrInvalidInput wraps every field validation failure.
	ErrInvalidInput = errors.New("invalid input")

	errMissingStore      = errors.New("store is required")
	errMissingIdentities = errors.New("identity resolver is required")
	errMissingIDProvider = errors.New("id provider is required")
	noOpLogger           = zap.NewNop()
)

// ServiceError carries a stable machine-readable code next to the underlying cause.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

func (e *ServiceError) Code() string {
	return e.code
}

const (
	opServiceNew = "library.service.new"

	reasonMissingStore       = "missing_store"
	reasonMissingIdentities  = "missing_identities"
	reasonMissingIDProvider  = "missing_id_provider"
	reasonUserNotFound       = "user_not_found"
	reasonNotFound           = "not_found"
	reasonAlreadyExists      = "already_exists"
	reasonInvalidInput       = "invalid_input"
	reasonIdentityFailed     = "identity_lookup_failed"
	reasonIDGenerationFailed = "id_generation_failed"
	reasonQueryFailed        = "query_failed"
	reasonWriteFailed        = "write_failed"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

// IdentityResolver maps the caller's external identity onto an internal user id.
// It returns users.ErrUserNotFound when no user record exists for the identity.
type IdentityResolver interface {
	ResolveUserID(ctx context.Context, externalID string) (string, error)
}

// ServiceConfig describes the dependencies of the library service.
type ServiceConfig struct {
	Store      Store
	Identities IdentityResolver
	Clock      func() time.Time
	IDProvider ids.Provider
	Logger     *zap.Logger
}

// Service enforces ownership over every library record. Queries degrade to empty results when
// the caller or the record cannot be resolved; mutations fail with a *ServiceError.
type Service struct {
	store      Store
	identities IdentityResolver
	clock      func() time.Time
	idProvider ids.Provider
	logger     *zap.Logger
}

func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, newServiceError(opServiceNew, reasonMissingStore, errMissingStore)
	}
	if cfg.Identities == nil {
		return nil, newServiceError(opServiceNew, reasonMissingIdentities, errMissingIdentities)
	}
	if cfg.IDProvider == nil {
		return nil, newServiceError(opServiceNew, reasonMissingIDProvider, errMissingIDProvider)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Service{
		store:      cfg.Store,
		identities: cfg.Identities,
		clock:      clock,
		idProvider: cfg.IDProvider,
		logger:     logger,
	}, nil
}

func (s *Service) nowMs() int64 {
	return s.clock().UTC().UnixMilli()
}

// lookupCaller resolves the caller for a query. found is false when no user exists.
func (s *Service) lookupCaller(ctx context.Context, operation, externalID string) (string, bool, error) {
	userID, err := s.identities.ResolveUserID(ctx, externalID)
	if errors.Is(err, users.ErrUserNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, s.fail(operation, reasonIdentityFailed, err, zap.String("external_id", externalID))
	}
	return userID, true, nil
}

// requireCaller resolves the caller for a mutation.
func (s *Service) requireCaller(ctx context.Context, operation, externalID string) (string, error) {
	userID, found, err := s.lookupCaller(ctx, operation, externalID)
	if err != nil {
		return "", err
	}
	if !found {
		return "", newServiceError(operation, reasonUserNotFound, users.ErrUserNotFound)
	}
	return userID, nil
}

func (s *Service) newID(operation string) (string, error) {
	identifier, err := s.idProvider.NewID()
	if err != nil {
		return "", s.fail(operation, reasonIDGenerationFailed, err)
	}
	return identifier, nil
}

func (s *Service) findOwnedBookmark(ctx context.Context, store Store, userID, bookmarkID string) (*Bookmark, error) {
	bookmark, err := store.FindBookmark(ctx, bookmarkID)
	if err != nil || bookmark == nil {
		return nil, err
	}
	if bookmark.UserID != userID {
		return nil, nil
	}
	return bookmark, nil
}

func (s *Service) findOwnedCollection(ctx context.Context, store Store, userID, collectionID string) (*Collection, error) {
	collection, err := store.FindCollection(ctx, collectionID)
	if err != nil || collection == nil {
		return nil, err
	}
	if collection.UserID != userID {
		return nil, nil
	}
	return collection, nil
}

// requireOwnedBookmark loads a bookmark for a mutation, collapsing missing and foreign records.
func (s *Service) requireOwnedBookmark(ctx context.Context, store Store, operation, userID, bookmarkID string) (Bookmark, error) {
	bookmark, err := s.findOwnedBookmark(ctx, store, userID, bookmarkID)
	if err != nil {
		return Bookmark{}, s.fail(operation, reasonQueryFailed, err, zap.String(columnBookmarkID, bookmarkID))
	}
	if bookmark == nil {
		return Bookmark{}, newServiceError(operation, reasonNotFound, ErrBookmarkNotFound)
	}
	return *bookmark, nil
}

func (s *Service) requireOwnedCollection(ctx context.Context, store Store, operation, userID, collectionID string) (Collection, error) {
	collection, err := s.findOwnedCollection(ctx, store, userID, collectionID)
	if err != nil {
		return Collection{}, s.fail(operation, reasonQueryFailed, err, zap.String(columnCollectionID, collectionID))
	}
	if collection == nil {
		return Collection{}, newServiceError(operation, reasonNotFound, ErrCollectionNotFound)
	}
	return *collection, nil
}

// fail logs an unexpected failure and wraps it into a *ServiceError.
func (s *Service) fail(operation, reason string, err error, fields ...zap.Field) error {
	s.logError(operation, reason, err, fields...)
	return newServiceError(operation, reason, err)
}

func (s *Service) loggerOrDefault() *zap.Logger {
	if s == nil {
		return noOpLogger
	}
	if s.logger == nil {
		return noOpLogger
	}
	return s.logger
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.loggerOrDefault().Error("library service error", attrs...)
}

// settle converts a raw transaction failure into a *ServiceError, leaving service errors intact.
func (s *Service) settle(operation string, err error) error {
	if err == nil {
		return nil
	}
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return err
	}
	return s.fail(operation, reasonWriteFailed, err)
}
