package library

import (
	"gorm.io/datatypes"
)

// ChatRole enumerates the authors of a chat message.
type ChatRole string

const (
	// ChatRoleUser marks a message typed by the user.
	ChatRoleUser ChatRole = "user"
	// ChatRoleAssistant marks a message produced by the assistant.
	ChatRoleAssistant ChatRole = "assistant"
)

// Bookmark is a saved URL with its metadata.
type Bookmark struct {
	ID           string                      `gorm:"column:id;primaryKey;size:190;not null" json:"id"`
	UserID       string                      `gorm:"column:user_id;size:190;not null;index:idx_bookmarks_user_created,priority:1;index:idx_bookmarks_user_favorite,priority:1;index:idx_bookmarks_user_archived,priority:1" json:"user_id"`
	URL          string                      `gorm:"column:url;type:text;not null" json:"url"`
	Title        string                      `gorm:"column:title;type:text;not null" json:"title"`
	Description  *string                     `gorm:"column:description;type:text" json:"description,omitempty"`
	ThumbnailURL *string                     `gorm:"column:thumbnail_url;type:text" json:"thumbnail_url,omitempty"`
	SiteName     *string                     `gorm:"column:site_name;size:320" json:"site_name,omitempty"`
	Favicon      *string                     `gorm:"column:favicon;type:text" json:"favicon,omitempty"`
	AISummary    *string                     `gorm:"column:ai_summary;type:text" json:"ai_summary,omitempty"`
	Tags         datatypes.JSONSlice[string] `gorm:"column:tags;not null" json:"tags"`
	IsFavorite   bool                        `gorm:"column:is_favorite;not null;default:false;index:idx_bookmarks_user_favorite,priority:2" json:"is_favorite"`
	IsArchived   bool                        `gorm:"column:is_archived;not null;default:false;index:idx_bookmarks_user_archived,priority:2" json:"is_archived"`
	ReadCount    int64                       `gorm:"column:read_count;not null;default:0" json:"read_count"`
	LastReadAtMs *int64                      `gorm:"column:last_read_at_ms" json:"last_read_at_ms,omitempty"`
	CreatedAtMs  int64                       `gorm:"column:created_at_ms;not null;index:idx_bookmarks_user_created,priority:2;index:idx_bookmarks_user_favorite,priority:3;index:idx_bookmarks_user_archived,priority:3" json:"created_at_ms"`
	UpdatedAtMs  int64                       `gorm:"column:updated_at_ms;not null" json:"updated_at_ms"`
}

// TableName provides the explicit table binding for GORM.
func (Bookmark) TableName() string {
	return "bookmarks"
}

// HasTag reports whether the tag set contains tag exactly.
func (b Bookmark) HasTag(tag string) bool {
	for _, candidate := range b.Tags {
		if candidate == tag {
			return true
		}
	}
	return false
}

// Collection groups bookmarks. BookmarkCount mirrors the number of links pointing at it.
type Collection struct {
	ID            string  `gorm:"column:id;primaryKey;size:190;not null" json:"id"`
	UserID        string  `gorm:"column:user_id;size:190;not null;index:idx_collections_user" json:"user_id"`
	Name          string  `gorm:"column:name;size:320;not null" json:"name"`
	Description   *string `gorm:"column:description;type:text" json:"description,omitempty"`
	Icon          *string `gorm:"column:icon;size:64" json:"icon,omitempty"`
	Color         *string `gorm:"column:color;size:32" json:"color,omitempty"`
	BookmarkCount int64   `gorm:"column:bookmark_count;not null;default:0" json:"bookmark_count"`
	CreatedAtMs   int64   `gorm:"column:created_at_ms;not null" json:"created_at_ms"`
	UpdatedAtMs   int64   `gorm:"column:updated_at_ms;not null" json:"updated_at_ms"`
}

// TableName provides the explicit table binding for GORM.
func (Collection) TableName() string {
	return "collections"
}

// BookmarkCollection links a bookmark into a collection. A pair appears at most once.
type BookmarkCollection struct {
	ID           string `gorm:"column:id;primaryKey;size:190;not null" json:"id"`
	BookmarkID   string `gorm:"column:bookmark_id;size:190;not null;uniqueIndex:idx_bookmark_collections_pair,priority:1" json:"bookmark_id"`
	CollectionID string `gorm:"column:collection_id;size:190;not null;uniqueIndex:idx_bookmark_collections_pair,priority:2;index:idx_bookmark_collections_collection" json:"collection_id"`
	UserID       string `gorm:"column:user_id;size:190;not null;index:idx_bookmark_collections_user" json:"user_id"`
	AddedAtMs    int64  `gorm:"column:added_at_ms;not null" json:"added_at_ms"`
}

// TableName provides the explicit table binding for GORM.
func (BookmarkCollection) TableName() string {
	return "bookmark_collections"
}

// Note is free text attached to a bookmark.
type Note struct {
	ID          string `gorm:"column:id;primaryKey;size:190;not null" json:"id"`
	UserID      string `gorm:"column:user_id;size:190;not null;index:idx_notes_user" json:"user_id"`
	BookmarkID  string `gorm:"column:bookmark_id;size:190;not null;index:idx_notes_bookmark" json:"bookmark_id"`
	Content     string `gorm:"column:content;type:text;not null" json:"content"`
	CreatedAtMs int64  `gorm:"column:created_at_ms;not null" json:"created_at_ms"`
	UpdatedAtMs int64  `gorm:"column:updated_at_ms;not null" json:"updated_at_ms"`
}

// TableName provides the explicit table binding for GORM.
func (Note) TableName() string {
	return "notes"
}

// ChatMessage is one entry of a user's append-only chat log.
type ChatMessage struct {
	ID          string                      `gorm:"column:id;primaryKey;size:190;not null" json:"id"`
	UserID      string                      `gorm:"column:user_id;size:190;not null;index:idx_chat_messages_user_created,priority:1" json:"user_id"`
	Role        ChatRole                    `gorm:"column:role;size:16;not null" json:"role"`
	Content     string                      `gorm:"column:content;type:text;not null" json:"content"`
	Sources     datatypes.JSONSlice[string] `gorm:"column:sources" json:"sources,omitempty"`
	CreatedAtMs int64                       `gorm:"column:created_at_ms;not null;index:idx_chat_messages_user_created,priority:2" json:"created_at_ms"`
}

// TableName provides the explicit table binding for GORM.
func (ChatMessage) TableName() string {
	return "chat_messages"
}

// Models lists every table owned by the library for schema migration.
func Models() []any {
	return []any{&Bookmark{}, &Collection{}, &BookmarkCollection{}, &Note{}, &ChatMessage{}}
}

// NewBookmark carries the caller-supplied fields of a bookmark being saved.
type NewBookmark struct {
	URL          string
	Title        string
	Description  *string
	ThumbnailURL *string
	SiteName     *string
	Favicon      *string
	Tags         []string
}

// BookmarkPatch lists the bookmark fields to change. A nil field is left untouched.
type BookmarkPatch struct {
	Title        *string
	Description  *string
	URL          *string
	ThumbnailURL *string
	SiteName     *string
	Favicon      *string
	AISummary    *string
	Tags         *[]string
}

// NewCollection carries the caller-supplied fields of a collection being created.
type NewCollection struct {
	Name        string
	Description *string
	Icon        *string
	Color       *string
}

// CollectionPatch lists the collection fields to change. A nil field is left untouched.
type CollectionPatch struct {
	Name        *string
	Description *string
	Icon        *string
	Color       *string
}

// NewChatMessage carries a chat entry to append.
type NewChatMessage struct {
	Role    ChatRole
	Content string
	Sources []string
}

// ListFilter selects the listing mode. CollectionID, IsFavorite and IsArchived are mutually
// exclusive and checked in that order; Tag narrows whichever mode is chosen.
type ListFilter struct {
	CollectionID *string
	IsFavorite   *bool
	IsArchived   *bool
	Tag          *string
}

// PageRequest carries the pagination input of a listing.
type PageRequest struct {
	Cursor   string
	NumItems int
}

// BookmarkPage is one page of a bookmark listing.
type BookmarkPage struct {
	Page           []Bookmark `json:"page"`
	IsDone         bool       `json:"is_done"`
	ContinueCursor string     `json:"continue_cursor"`
}

// Stats summarises a user's bookmarks.
type Stats struct {
	Total     int `json:"total"`
	ThisWeek  int `json:"this_week"`
	Favorites int `json:"favorites"`
	Archived  int `json:"archived"`
}
