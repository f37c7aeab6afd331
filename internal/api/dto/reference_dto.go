package dto

// CategoryRequest payload for category create/update.
type CategoryRequest struct {
	Name string `json:"name"`
	Icon string `json:"icon"`
}

// FAQRequest payload for FAQ create/update.
type FAQRequest struct {
	Question   string `json:"question"`
	Answer     string `json:"answer"`
	CategoryID *int64 `json:"category_id"`
}
