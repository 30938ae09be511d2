package lectern

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// ListCourses returns one page of the instructor's courses, optionally
// filtered by a search term.
func (m *Manager) ListCourses(ctx context.Context, params ListCoursesParams) (*CoursesPage, error) {
	query := url.Values{}
	if params.Page > 0 {
		query.Set("page", strconv.Itoa(params.Page))
	}
	if params.Limit > 0 {
		query.Set("limit", strconv.Itoa(params.Limit))
	}
	if params.Search != "" {
		query.Set("search", params.Search)
	}

	path := "/courses"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var page CoursesPage
	if err := m.doAuthJSON(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetCourse fetches a single course by ID.
func (m *Manager) GetCourse(ctx context.Context, courseID string) (*Course, error) {
	var course Course
	path := "/courses/" + url.PathEscape(courseID)
	if err := m.doAuthJSON(ctx, http.MethodGet, path, nil, &course); err != nil {
		return nil, err
	}
	return &course, nil
}

// CreateCourse creates a new course owned by the current instructor.
func (m *Manager) CreateCourse(ctx context.Context, input CourseInput) (*Course, error) {
	var course Course
	if err := m.doAuthJSON(ctx, http.MethodPost, "/courses", input, &course); err != nil {
		return nil, err
	}
	return &course, nil
}

// UpdateCourse replaces the writable fields of an existing course.
func (m *Manager) UpdateCourse(ctx context.Context, courseID string, input CourseInput) (*Course, error) {
	var course Course
	path := "/courses/" + url.PathEscape(courseID)
	if err := m.doAuthJSON(ctx, http.MethodPut, path, input, &course); err != nil {
		return nil, err
	}
	return &course, nil
}

// DeleteCourse removes a course and all of its attached content.
func (m *Manager) DeleteCourse(ctx context.Context, courseID string) error {
	path := "/courses/" + url.PathEscape(courseID)
	if err := m.doAuthJSON(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("delete course %s: %w", courseID, err)
	}
	return nil
}
