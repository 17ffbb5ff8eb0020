package devapi

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tsam/console/internal/backend"
	"github.com/tsam/console/internal/domain"
)

// storedFile is an uploaded document kept in the database.
type storedFile struct {
	domain.BaseModel
	Kind        string `gorm:"size:20;not null"`
	Name        string `gorm:"size:255;not null"`
	ContentType string `gorm:"size:100;not null"`
	Size        int
	Data        []byte
}

func (storedFile) TableName() string { return "uploaded_files" }

// upload handles POST /upload/:kind with the document in the "file" part
// and answers {"url": "<absolute file url>"}.
func (a *API) upload(c *gin.Context) {
	kind, err := backend.ParseUploadKind(c.Param("kind"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, backend.MaxUploadBytes+1<<20)
	fh, err := c.FormFile("file")
	if err != nil {
		writeError(c, domain.NewAppError(domain.CodeValidation, "file is required", err))
		return
	}
	f, err := fh.Open()
	if err != nil {
		writeError(c, domain.NewAppError(domain.CodeInternal, "read upload", err))
		return
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(io.LimitReader(f, backend.MaxUploadBytes+1))
	if err != nil {
		writeError(c, domain.NewAppError(domain.CodeInternal, "read upload", err))
		return
	}
	contentType, err := backend.CheckUpload(kind, data)
	if err != nil {
		writeError(c, err)
		return
	}

	sf := storedFile{
		Kind:        string(kind),
		Name:        fh.Filename,
		ContentType: contentType,
		Size:        len(data),
		Data:        data,
	}
	if err := a.db.WithContext(c.Request.Context()).Create(&sf).Error; err != nil {
		writeError(c, mapError(err, "File"))
		return
	}

	a.logger.InfoContext(c.Request.Context(), "file uploaded",
		"kind", kind, "id", sf.ID, "content_type", contentType, "bytes", sf.Size)
	c.JSON(http.StatusCreated, gin.H{"url": fileURL(c, sf.ID)})
}

// file handles GET /files/:id.
func (a *API) file(c *gin.Context) {
	var sf storedFile
	if err := a.db.WithContext(c.Request.Context()).First(&sf, "id = ?", c.Param("id")).Error; err != nil {
		writeError(c, mapError(err, "File"))
		return
	}
	c.Header("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": sf.Name}))
	c.Header("Cache-Control", "private, max-age=3600")
	c.Data(http.StatusOK, sf.ContentType, sf.Data)
}

// fileURL builds the absolute URL of a stored file from the mount point of
// the upload route.
func fileURL(c *gin.Context, id string) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if p := c.GetHeader("X-Forwarded-Proto"); p == "http" || p == "https" {
		scheme = p
	}
	prefix := strings.TrimSuffix(c.FullPath(), "/upload/:kind")
	return fmt.Sprintf("%s://%s%s/files/%s", scheme, c.Request.Host, prefix, id)
}
