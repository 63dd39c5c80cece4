package models

// Category is a program genre as received from feeds. Identity is the title,
// case-sensitive; categories are created lazily on first sight and never
// updated by the pipeline.
type Category struct {
	ID    int64  `json:"id,omitempty"`
	Title string `json:"title"`
}
