package domain

import "time"

// Attachment stores metadata for an uploaded file. A nil MessageID means the
// file was attached directly to the ticket's original description. Immutable
// once created.
type Attachment struct {
	ID         int64     `json:"id"`
	TicketID   int64     `json:"ticket_id"`
	MessageID  *int64    `json:"message_id"`
	FileName   string    `json:"file_name"`
	FileURL    string    `json:"file_url"`
	MimeType   string    `json:"mime_type"`
	SizeBytes  int64     `json:"size_bytes"`
	UploaderID string    `json:"uploader_id"`
	CreatedAt  time.Time `json:"created_at"`
}
