package models

import "time"

// MaxMessageLength bounds Message.Text.
const MaxMessageLength = 140

// Message is a short post owned by exactly one user.
type Message struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Text      string    `gorm:"type:varchar(140);not null" json:"text"`
	Timestamp time.Time `gorm:"not null;index:idx_messages_user_timestamp,priority:2,sort:desc" json:"timestamp"`
	UserID    uint      `gorm:"not null;index:idx_messages_user_timestamp,priority:1" json:"user_id"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// TableName specifies the table name for GORM
func (Message) TableName() string {
	return "messages"
}
