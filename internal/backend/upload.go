package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/tsam/console/internal/domain"
)

// UploadKind names an upload endpoint and the file types it accepts.
type UploadKind string

const (
	UploadResume   UploadKind = "resume"
	UploadBrochure UploadKind = "brochure"
	UploadArchive  UploadKind = "archive"
	UploadImage    UploadKind = "image"
)

// MaxUploadBytes caps the size of an uploaded file.
const MaxUploadBytes = 10 << 20

var allowedTypes = map[UploadKind][]string{
	UploadResume: {
		"application/pdf",
		"application/msword",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	},
	UploadBrochure: {"application/pdf"},
	UploadArchive:  {"application/zip"},
	UploadImage:    {"image/png", "image/jpeg", "image/gif"},
}

// ParseUploadKind validates a kind name.
func ParseUploadKind(s string) (UploadKind, error) {
	k := UploadKind(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := allowedTypes[k]; !ok {
		return "", domain.NewAppError(domain.CodeValidation, fmt.Sprintf("unknown upload kind %q", s), nil)
	}
	return k, nil
}

// CheckUpload sniffs the content type of data and verifies that kind
// accepts it. The detected MIME type is returned.
func CheckUpload(kind UploadKind, data []byte) (string, error) {
	allowed, ok := allowedTypes[kind]
	if !ok {
		return "", domain.NewAppError(domain.CodeValidation, fmt.Sprintf("unknown upload kind %q", kind), nil)
	}
	if len(data) == 0 {
		return "", domain.NewAppError(domain.CodeValidation, "file is empty", nil)
	}
	if len(data) > MaxUploadBytes {
		return "", domain.NewAppError(domain.CodeValidation, fmt.Sprintf("file exceeds %d MB", MaxUploadBytes>>20), nil)
	}
	mt := mimetype.Detect(data)
	if !mimetypeIn(mt, allowed) {
		return "", domain.NewAppError(domain.CodeValidation,
			fmt.Sprintf("file type %s is not accepted for %s uploads", mt.String(), kind), nil)
	}
	return mt.String(), nil
}

func mimetypeIn(mt *mimetype.MIME, list []string) bool {
	for _, m := range list {
		if mt.Is(m) {
			return true
		}
	}
	return false
}

// Upload posts a file to upload/<kind> and returns the stored URL.
func (c *Client) Upload(ctx context.Context, kind UploadKind, filename string, r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadBytes+1))
	if err != nil {
		return "", fmt.Errorf("backend: read upload: %w", err)
	}
	if _, err := CheckUpload(kind, data); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", path.Base(filename))
	if err != nil {
		return "", fmt.Errorf("backend: build upload: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("backend: build upload: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("backend: build upload: %w", err)
	}

	_, body, err := c.do(ctx, call{
		method:      http.MethodPost,
		path:        path.Join("upload", string(kind)),
		body:        &buf,
		contentType: w.FormDataContentType(),
	})
	if err != nil {
		return "", err
	}
	stored := strings.TrimSpace(decodeMessage(body))
	if stored == "" {
		return "", &domain.AppError{Code: domain.CodeUnclassified, Message: "upload returned no url"}
	}
	return stored, nil
}
