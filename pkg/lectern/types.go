package lectern

import "time"

// ============================================================================
// Identity Types
// ============================================================================

// User is the instructor identity attached to a session.
type User struct {
	// ID is the unique identifier for the user
	ID int64 `json:"id"`

	// FirstName and LastName are the user's display names
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`

	// Email is the login email address
	Email string `json:"email,omitempty"`
}

// Credentials is the payload of a successful login or register exchange:
// the authenticated user plus a fresh token pair.
type Credentials struct {
	User         *User  `json:"user"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// TokenPair is the payload of a successful refresh exchange. The user
// identity is untouched by a refresh.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// RegisterRequest contains the fields for instructor sign-up.
type RegisterRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// ProfileInput contains the updatable profile fields.
type ProfileInput struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

// ============================================================================
// Course Types
// ============================================================================

// Course is a course as returned by the API.
type Course struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt,omitempty"`
}

// CourseInput contains the writable course fields for create and update.
type CourseInput struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// ListCoursesParams controls pagination and search for ListCourses. Zero
// values fall back to the server defaults.
type ListCoursesParams struct {
	Page   int
	Limit  int
	Search string
}

// CoursesPage is one page of course listings.
type CoursesPage struct {
	Courses []Course `json:"courses"`
	Page    int      `json:"page"`
	Limit   int      `json:"limit"`
	Total   int      `json:"total"`
}

// ============================================================================
// Content Types
// ============================================================================

// ContentKind classifies an attached course file.
type ContentKind string

const (
	ContentPDF   ContentKind = "pdf"
	ContentVideo ContentKind = "video"
	ContentImage ContentKind = "image"
)

// Content is a file attached to a course.
type Content struct {
	ID        string      `json:"id"`
	CourseID  string      `json:"courseId"`
	Name      string      `json:"name"`
	Kind      ContentKind `json:"kind"`
	Size      int64       `json:"size,omitempty"`
	CreatedAt time.Time   `json:"createdAt,omitempty"`
}

// ============================================================================
// Internal Response Types (used for JSON unmarshaling)
// ============================================================================

// errorResponse is the API's error body shape.
type errorResponse struct {
	Code    string            `json:"code,omitempty"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

type listContentResponse struct {
	Content []Content `json:"content"`
}
