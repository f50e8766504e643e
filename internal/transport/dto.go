package transport

import "time"

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type UserSummary struct {
	ID       uint   `json:"id,omitempty"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

type LoginResult struct {
	Token string      `json:"token"`
	User  UserSummary `json:"user"`
}

type RegisterResponse struct {
	Message string      `json:"message"`
	User    UserSummary `json:"user"`
}

type UserResponse struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateContentRequest holds the text fields of a multipart upload. Kind is
// read from "category" for books and "type" for the other families.
type CreateContentRequest struct {
	Title       string
	Kind        string
	Author      *string
	Description *string
	Body        *string
}

type ContentResponse struct {
	ID            uint      `json:"id"`
	Title         string    `json:"title"`
	Category      string    `json:"category,omitempty"`
	Type          string    `json:"type,omitempty"`
	Author        *string   `json:"author,omitempty"`
	Description   *string   `json:"description"`
	Content       *string   `json:"content,omitempty"`
	FileSize      *int64    `json:"file_size"`
	UploadedBy    *uint     `json:"uploaded_by"`
	DownloadCount *int64    `json:"download_count,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	FileURL       *string   `json:"file_url"`
	CoverImageURL *string   `json:"cover_image_url,omitempty"`
}

// ContentSummary is returned after a create.
type ContentSummary struct {
	ID       uint    `json:"id"`
	Title    string  `json:"title"`
	Category string  `json:"category,omitempty"`
	Type     string  `json:"type,omitempty"`
	Author   *string `json:"author,omitempty"`
	FileURL  *string `json:"file_url"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
