package dto

// CreateMessageRequest payload. Posted either as JSON or as multipart form
// fields next to an optional file part.
type CreateMessageRequest struct {
	Content   string `json:"content" form:"content"`
	IsPrivate bool   `json:"is_private" form:"is_private"`
}
