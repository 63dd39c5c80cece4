package models

import (
	"time"

	"github.com/guidevault/guidevault/internal/epg"
)

// Program is one schedule entry. Natural key is (ChannelID, StartAt); both
// StartAt and EndAt are stored in UTC regardless of the feed's own offset.
// Info retains the full parsed feed fragment for the entry so the VOD
// templater can reach fields the pipeline does not otherwise model.
type Program struct {
	ID            int64     `json:"id,omitempty"`
	ChannelID     int64     `json:"channel_id"`
	CategoryID    *int64    `json:"category_id,omitempty"`
	Title         string    `json:"title"`
	Length        int       `json:"length"`
	StartAt       time.Time `json:"start_at"`
	EndAt         time.Time `json:"end_at"`
	Info          epg.Doc   `json:"info,omitempty"`
	CategoryTitle *string   `json:"category,omitempty"` // populated by read queries (joined from categories)

	// Archived is populated by read queries when an archival record exists.
	Archived *ArchivedProgram `json:"archived,omitempty"`
}
