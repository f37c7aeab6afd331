package domain

// Category is simple reference data for ticket classification.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon"`
}

// FAQ is a knowledge-base entry, optionally linked to a category.
type FAQ struct {
	ID         int64  `json:"id"`
	Question   string `json:"question"`
	Answer     string `json:"answer"`
	CategoryID *int64 `json:"category_id"`
}
