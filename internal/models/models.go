package models

import "time"

// Owner represents a person or company owning properties
type Owner struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	Photo     *Image    `json:"photo,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Property represents a real-estate listing belonging to one owner
type Property struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Address      string    `json:"address"`
	Price        float64   `json:"price"`
	CodeInternal string    `json:"codeInternal"`
	Year         int       `json:"year"`
	IDOwner      int64     `json:"idOwner"`
	Images       []Image   `json:"images"`
	CreatedAt    time.Time `json:"created_at"`
}

// Image represents an uploaded file attached to an owner or property
type Image struct {
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	UploadedAt  time.Time `json:"uploaded_at"`
}
