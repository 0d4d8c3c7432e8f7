package library

import (
	"context"

	"go.uber.org/zap"
)

const (
	opNotesByBookmark = "notes.get_by_bookmark"
	opCreateNote      = "notes.create"
	opUpdateNote      = "notes.update"
	opRemoveNote      = "notes.remove"
	columnNoteID      = "note_id"
)

// NotesForBookmark returns the notes attached to an owned bookmark, oldest first.
func (s *Service) NotesForBookmark(ctx context.Context, caller, bookmarkID string) ([]Note, error) {
	userID, found, err := s.lookupCaller(ctx, opNotesByBookmark, caller)
	if err != nil {
		return nil, err
	}
	if !found {
		return []Note{}, nil
	}
	bookmark, err := s.findOwnedBookmark(ctx, s.store, userID, bookmarkID)
	if err != nil {
		return nil, s.fail(opNotesByBookmark, reasonQueryFailed, err, zap.String(columnBookmarkID, bookmarkID))
	}
	if bookmark == nil {
		return []Note{}, nil
	}
	notes, err := s.store.ListNotesByBookmark(ctx, bookmarkID)
	if err != nil {
		return nil, s.fail(opNotesByBookmark, reasonQueryFailed, err, zap.String(columnBookmarkID, bookmarkID))
	}
	return notes, nil
}

// CreateNote attaches a note to an owned bookmark and returns the note id.
func (s *Service) CreateNote(ctx context.Context, caller, bookmarkID, content string) (string, error) {
	userID, err := s.requireCaller(ctx, opCreateNote, caller)
	if err != nil {
		return "", err
	}
	noteID, err := s.newID(opCreateNote)
	if err != nil {
		return "", err
	}

	err = s.store.WithinTransaction(ctx, func(store Store) error {
		if _, err := s.requireOwnedBookmark(ctx, store, opCreateNote, userID, bookmarkID); err != nil {
			return err
		}
		nowMs := s.nowMs()
		return store.InsertNote(ctx, &Note{
			ID:          noteID,
			UserID:      userID,
			BookmarkID:  bookmarkID,
			Content:     content,
			CreatedAtMs: nowMs,
			UpdatedAtMs: nowMs,
		})
	})
	if err != nil {
		return "", s.settle(opCreateNote, err)
	}
	return noteID, nil
}

// UpdateNote replaces the content of an owned note.
func (s *Service) UpdateNote(ctx context.Context, caller, noteID, content string) (string, error) {
	userID, err := s.requireCaller(ctx, opUpdateNote, caller)
	if err != nil {
		return "", err
	}

	err = s.store.WithinTransaction(ctx, func(store Store) error {
		if _, err := s.requireOwnedNote(ctx, store, opUpdateNote, userID, noteID); err != nil {
			return err
		}
		return store.UpdateNoteContent(ctx, noteID, content, s.nowMs())
	})
	if err != nil {
		return "", s.settle(opUpdateNote, err)
	}
	return noteID, nil
}

// RemoveNote deletes an owned note.
func (s *Service) RemoveNote(ctx context.Context, caller, noteID string) (string, error) {
	userID, err := s.requireCaller(ctx, opRemoveNote, caller)
	if err != nil {
		return "", err
	}

	err = s.store.WithinTransaction(ctx, func(store Store) error {
		if _, err := s.requireOwnedNote(ctx, store, opRemoveNote, userID, noteID); err != nil {
			return err
		}
		return store.DeleteNote(ctx, noteID)
	})
	if err != nil {
		return "", s.settle(opRemoveNote, err)
	}
	return noteID, nil
}

func (s *Service) requireOwnedNote(ctx context.Context, store Store, operation, userID, noteID string) (Note, error) {
	note, err := store.FindNote(ctx, noteID)
	if err != nil {
		return Note{}, s.fail(operation, reasonQueryFailed, err, zap.String(columnNoteID, noteID))
	}
	if note == nil || note.UserID != userID {
		return Note{}, newServiceError(operation, reasonNotFound, ErrNoteNotFound)
	}
	return *note, nil
}
