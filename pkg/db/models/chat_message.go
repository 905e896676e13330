package models

import (
	"time"

	"github.com/google/uuid"
)

// ChatMessage is a single message in a listing conversation. The price
// resolver inspects it to detect a seller's bid acceptance; everything else
// about chat lives outside this service.
type ChatMessage struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ListingID uuid.UUID `gorm:"column:listing_id;type:uuid;not null;index"`
	SenderID  uuid.UUID `gorm:"column:sender_id;type:uuid;not null"`
	Body      string    `gorm:"column:body;type:text;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
