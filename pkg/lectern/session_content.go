package lectern

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
)

// ContentFile is one file staged for upload to a course.
type ContentFile struct {
	// Name is the filename reported to the server
	Name string

	// Kind classifies the file (pdf, video, image)
	Kind ContentKind

	// Size is the total size in bytes, used for progress reporting.
	// Zero disables progress for this file.
	Size int64

	// Reader supplies the file bytes
	Reader io.Reader
}

// ProgressFunc receives upload progress as bytes written out of total.
// Total is the sum of the staged file sizes.
type ProgressFunc func(written, total int64)

// UploadContent attaches files to a course via a multipart upload. The
// optional progress callback observes bytes as they are read into the
// request body.
func (m *Manager) UploadContent(
	ctx context.Context,
	courseID string,
	files []ContentFile,
	progress ProgressFunc,
) ([]Content, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("no files to upload")
	}

	var total int64
	for _, f := range files {
		total += f.Size
	}

	// Stream the multipart body through a pipe so large video files never
	// sit fully in memory.
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		err := writeMultipart(mw, courseID, files, progress, total)
		_ = mw.Close()
		pw.CloseWithError(err)
	}()

	headers := map[string]string{"Content-Type": mw.FormDataContentType()}
	path := "/courses/" + url.PathEscape(courseID) + "/content"

	resp, err := m.doAuthRequest(ctx, http.MethodPost, path, pr, headers)
	if err != nil {
		return nil, err
	}

	var out listContentResponse
	if err := decodeJSON(resp, &out); err != nil {
		return nil, err
	}
	return out.Content, nil
}

func writeMultipart(
	mw *multipart.Writer,
	courseID string,
	files []ContentFile,
	progress ProgressFunc,
	total int64,
) error {
	if err := mw.WriteField("courseId", courseID); err != nil {
		return err
	}

	var written int64
	for _, f := range files {
		if err := mw.WriteField("fileTypes", string(f.Kind)); err != nil {
			return err
		}

		part, err := mw.CreateFormFile("files", f.Name)
		if err != nil {
			return err
		}

		n, err := io.Copy(part, f.Reader)
		if err != nil {
			return fmt.Errorf("copy %s: %w", f.Name, err)
		}

		written += n
		if progress != nil && total > 0 {
			progress(written, total)
		}
	}

	return nil
}

// ListContent returns the files attached to a course.
func (m *Manager) ListContent(ctx context.Context, courseID string) ([]Content, error) {
	var out listContentResponse
	path := "/courses/" + url.PathEscape(courseID) + "/content"
	if err := m.doAuthJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Content, nil
}

// DeleteContent removes one attached file from a course.
func (m *Manager) DeleteContent(ctx context.Context, courseID, contentID string) error {
	path := "/courses/" + url.PathEscape(courseID) + "/content/" + url.PathEscape(contentID)
	return m.doAuthJSON(ctx, http.MethodDelete, path, nil, nil)
}

// DownloadURL returns the direct download URL for a content item.
func (m *Manager) DownloadURL(contentID string) string {
	return m.client.url("/courses/content/" + url.PathEscape(contentID) + "/download")
}

// PreviewURL returns the inline preview URL for a content item.
func (m *Manager) PreviewURL(contentID string) string {
	return m.client.url("/courses/content/" + url.PathEscape(contentID) + "/preview")
}
