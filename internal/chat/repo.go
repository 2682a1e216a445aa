package chat

import (
	"context"

	"gorm.io/gorm"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) CreateChat(ctx context.Context, c *Chat) error {
	return r.db.WithContext(ctx).Create(c).Error
}

// GetChat resolves a chat only when it is owned by the caller.
func (r *Repo) GetChat(ctx context.Context, userID, chatID string) (*Chat, error) {
	var c Chat
	if err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", chatID, userID).
		First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// GetChatWithMessages loads the chat plus its full ordered history.
func (r *Repo) GetChatWithMessages(ctx context.Context, userID, chatID string) (*Chat, error) {
	c, err := r.GetChat(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}
	msgs, err := r.ListMessages(ctx, chatID)
	if err != nil {
		return nil, err
	}
	c.Messages = msgs
	return c, nil
}

// ChatListItem is one search/list row with an optional match snippet.
type ChatListItem struct {
	Chat
	Snippet string `json:"snippet,omitempty"`
}

// ListChats returns the caller's chats, newest first. A non-empty
// query filters on title or message content and fills the snippet
// from the first matching message (100 chars max).
func (r *Repo) ListChats(ctx context.Context, userID, query string, includeArchived bool) ([]ChatListItem, error) {
	q := r.db.WithContext(ctx).Model(&Chat{}).Where("chats.user_id = ?", userID)
	if !includeArchived {
		q = q.Where("chats.archived = ?", false)
	}
	if query != "" {
		like := "%" + query + "%"
		q = q.Distinct("chats.*").
			Joins("LEFT JOIN chat_messages ON chat_messages.chat_id = chats.id").
			Where("chats.title LIKE ? OR chat_messages.content LIKE ?", like, like)
	}

	var chats []Chat
	if err := q.Order("chats.created_at DESC").Find(&chats).Error; err != nil {
		return nil, err
	}

	items := make([]ChatListItem, 0, len(chats))
	for _, c := range chats {
		item := ChatListItem{Chat: c}
		if query != "" {
			item.Snippet, _ = r.matchSnippet(ctx, c.ID, query)
		}
		items = append(items, item)
	}
	return items, nil
}

func (r *Repo) matchSnippet(ctx context.Context, chatID, query string) (string, error) {
	var m Message
	err := r.db.WithContext(ctx).
		Where("chat_id = ? AND content LIKE ?", chatID, "%"+query+"%").
		Order("created_at ASC").
		First(&m).Error
	if err != nil {
		return "", err
	}
	// truncate on rune boundaries, not bytes
	content := m.Content
	if runes := []rune(content); len(runes) > 100 {
		content = string(runes[:100]) + "..."
	}
	return content, nil
}

func (r *Repo) UpdateChat(ctx context.Context, c *Chat) error {
	return r.db.WithContext(ctx).Save(c).Error
}

func (r *Repo) SetArchived(ctx context.Context, userID, chatID string, archived bool) error {
	res := r.db.WithContext(ctx).Model(&Chat{}).
		Where("id = ? AND user_id = ?", chatID, userID).
		Update("archived", archived)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteChat hard-deletes the chat with its messages and attachments
// in one transaction and returns the stored attachment paths so the
// caller can remove the files best-effort afterwards.
func (r *Repo) DeleteChat(ctx context.Context, userID, chatID string) ([]string, error) {
	var paths []string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c Chat
		if err := tx.Where("id = ? AND user_id = ?", chatID, userID).First(&c).Error; err != nil {
			return err
		}
		if err := tx.Model(&Attachment{}).
			Where("message_id IN (?)", tx.Model(&Message{}).Select("id").Where("chat_id = ?", chatID)).
			Pluck("path", &paths).Error; err != nil {
			return err
		}
		if err := tx.Where("message_id IN (?)", tx.Model(&Message{}).Select("id").Where("chat_id = ?", chatID)).
			Delete(&Attachment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("chat_id = ?", chatID).Delete(&Message{}).Error; err != nil {
			return err
		}
		return tx.Delete(&c).Error
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}

func (r *Repo) InsertMessage(ctx context.Context, m *Message) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *Repo) InsertAttachment(ctx context.Context, a *Attachment) error {
	return r.db.WithContext(ctx).Create(a).Error
}

// ListMessages returns the chat's messages with attachments in
// creation order ascending. This order is the sole conversation-order
// authority.
func (r *Repo) ListMessages(ctx context.Context, chatID string) ([]Message, error) {
	var msgs []Message
	if err := r.db.WithContext(ctx).
		Preload("Attachments").
		Where("chat_id = ?", chatID).
		Order("created_at ASC").
		Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

// GetAttachmentForUser loads an attachment only when its chat belongs
// to the caller.
func (r *Repo) GetAttachmentForUser(ctx context.Context, userID, attachmentID string) (*Attachment, error) {
	var a Attachment
	err := r.db.WithContext(ctx).
		Joins("JOIN chat_messages ON chat_messages.id = chat_attachments.message_id").
		Joins("JOIN chats ON chats.id = chat_messages.chat_id").
		Where("chat_attachments.id = ? AND chats.user_id = ?", attachmentID, userID).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}
