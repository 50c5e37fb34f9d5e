package database

import (
	"chatapp-client/internal/hub"
	"chatapp-client/internal/models"
	"database/sql"
	"encoding/json"

	"go.uber.org/zap"
)

type ArchivedMessage struct {
	ID          int64               `json:"id,string"`
	ChannelID   int64               `json:"channelID,string"`
	UserID      int64               `json:"userID,string"`
	Username    string              `json:"username"`
	Message     string              `json:"message"`
	Attachments []models.Attachment `json:"attachments"`
	Edited      bool                `json:"edited"`
}

// Archive mirrors message notifications into the database.
type Archive struct {
	db    *sql.DB
	sugar *zap.SugaredLogger
}

func NewArchive(db *sql.DB, sugar *zap.SugaredLogger) *Archive {
	return &Archive{db: db, sugar: sugar}
}

func (a *Archive) Subscribe(h *hub.Hub) {
	h.Subscribe(hub.MessageCreated, func(_ string, payload any) {
		a.logError(a.SaveMessage(payload.(hub.MessagePayload).Message))
	})
	h.Subscribe(hub.MessageModified, func(_ string, payload any) {
		a.logError(a.SaveMessage(payload.(hub.MessageModifiedPayload).New))
	})
	h.Subscribe(hub.MessageDeleted, func(_ string, payload any) {
		a.logError(a.DeleteMessage(payload.(hub.MessageDeletedPayload).MessageID))
	})
}

func (a *Archive) logError(err error) {
	if err != nil {
		a.sugar.Error(err)
	}
}

func (a *Archive) SaveMessage(msg *models.Message) error {
	var userID int64
	if msg.Author != nil {
		user := msg.Author.Identity()
		userID = user.ID

		_, err := a.db.Exec("REPLACE INTO users (id, username, discriminator, avatar) VALUES (?, ?, ?, ?)",
			user.ID, user.Username, user.Discriminator, user.Avatar)
		if err != nil {
			return err
		}
	}

	attachments, err := json.Marshal(msg.Attachments)
	if err != nil {
		return err
	}

	_, err = a.db.Exec("REPLACE INTO messages (id, channel_id, user_id, message, attachments, edited) VALUES (?, ?, ?, ?, ?, ?)",
		msg.ID, msg.ChannelID, userID, msg.Content, string(attachments), msg.EditedTimestamp != nil)
	return err
}

func (a *Archive) DeleteMessage(messageID int64) error {
	_, err := a.db.Exec("DELETE FROM messages WHERE id = ?", messageID)
	return err
}

// Messages returns up to limit archived messages of the channel, newest first.
func (a *Archive) Messages(channelID int64, limit int) ([]ArchivedMessage, error) {
	rows, err := a.db.Query(`
		SELECT m.id, m.channel_id, m.user_id, COALESCE(u.username, ''), m.message, m.attachments, m.edited
		FROM messages m
		LEFT JOIN users u ON m.user_id = u.id
		WHERE m.channel_id = ?
		ORDER BY m.id DESC
		LIMIT ?
	`, channelID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []ArchivedMessage = []ArchivedMessage{}

	for rows.Next() {
		var msg ArchivedMessage
		var attachments sql.NullString

		err := rows.Scan(&msg.ID, &msg.ChannelID, &msg.UserID, &msg.Username, &msg.Message, &attachments, &msg.Edited)
		if err != nil {
			return nil, err
		}
		if attachments.Valid && attachments.String != "" {
			if err := json.Unmarshal([]byte(attachments.String), &msg.Attachments); err != nil {
				return nil, err
			}
		}

		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return messages, nil
}
