package library

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const (
	opListChat   = "chat.list"
	opCreateChat = "chat.create"
	opClearChat  = "chat.clear"
)

// ChatHistory returns the caller's chat log in creation order.
func (s *Service) ChatHistory(ctx context.Context, caller string) ([]ChatMessage, error) {
	userID, found, err := s.lookupCaller(ctx, opListChat, caller)
	if err != nil {
		return nil, err
	}
	if !found {
		return []ChatMessage{}, nil
	}
	messages, err := s.store.ListChatMessages(ctx, userID)
	if err != nil {
		return nil, s.fail(opListChat, reasonQueryFailed, err, zap.String(columnUserID, userID))
	}
	return messages, nil
}

// AppendChatMessage stores a chat entry for the caller and returns its id.
func (s *Service) AppendChatMessage(ctx context.Context, caller string, input NewChatMessage) (string, error) {
	userID, err := s.requireCaller(ctx, opCreateChat, caller)
	if err != nil {
		return "", err
	}
	if input.Role != ChatRoleUser && input.Role != ChatRoleAssistant {
		return "", newServiceError(opCreateChat, reasonInvalidInput, invalidInput("role must be %q or %q", ChatRoleUser, ChatRoleAssistant))
	}
	if strings.TrimSpace(input.Content) == "" {
		return "", newServiceError(opCreateChat, reasonInvalidInput, invalidInput("content is required"))
	}
	messageID, err := s.newID(opCreateChat)
	if err != nil {
		return "", err
	}

	message := ChatMessage{
		ID:          messageID,
		UserID:      userID,
		Role:        input.Role,
		Content:     input.Content,
		CreatedAtMs: s.nowMs(),
	}
	if input.Sources != nil {
		message.Sources = datatypes.JSONSlice[string](input.Sources)
	}
	if err := s.store.InsertChatMessage(ctx, &message); err != nil {
		return "", s.fail(opCreateChat, reasonWriteFailed, err, zap.String(columnUserID, userID))
	}
	return messageID, nil
}

// ClearChat deletes the caller's whole chat log and returns how many messages were removed.
func (s *Service) ClearChat(ctx context.Context, caller string) (int64, error) {
	userID, err := s.requireCaller(ctx, opClearChat, caller)
	if err != nil {
		return 0, err
	}
	deleted, err := s.store.DeleteChatMessages(ctx, userID)
	if err != nil {
		return 0, s.fail(opClearChat, reasonWriteFailed, err, zap.String(columnUserID, userID))
	}
	return deleted, nil
}
