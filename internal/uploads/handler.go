package uploads

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"saas-backend/internal/shared/server/middleware"
	"saas-backend/internal/shared/server/respond"
	"saas-backend/internal/shared/storage/object"
	"saas-backend/internal/shared/telemetry"
)

const (
	maxUploadBytes = 10 << 20
	presignExpires = 15 * time.Minute
	filesRoute     = "/api/v1/files/"
)

var allowedContentTypes = map[string]struct{}{
	"application/pdf":    {},
	"application/msword": {},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {},
	"text/plain":       {},
	"text/markdown":    {},
	"text/csv":         {},
	"application/json": {},
	"image/png":        {},
	"image/jpeg":       {},
}

// inlineContentTypes may render in the browser; everything else is served as an attachment.
var inlineContentTypes = map[string]struct{}{
	"application/pdf": {},
	"text/plain":      {},
	"image/png":       {},
	"image/jpeg":      {},
}

// Handler serves direct uploads, presigned uploads and org-scoped downloads.
type Handler struct {
	Store object.ObjectStore
	// Presigner is nil unless the store is S3.
	Presigner object.Presigner
}

func NewHandler(store object.ObjectStore, presigner object.Presigner) *Handler {
	return &Handler{Store: store, Presigner: presigner}
}

// RegisterRoutes attaches upload routes. rg must run the auth and organization middleware.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/uploads", h.upload)
	rg.POST("/uploads/presign", h.presign)
	rg.GET("/files/*key", h.download)
}

type uploadResponse struct {
	Pathname    string `json:"pathname"`
	URL         string `json:"url"`
	DownloadURL string `json:"downloadUrl"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

type presignRequest struct {
	FileName    string `json:"fileName" binding:"required"`
	ContentType string `json:"contentType" binding:"required"`
	SizeBytes   int64  `json:"sizeBytes" binding:"required,gt=0"`
}

type presignResponse struct {
	UploadURL        string `json:"uploadUrl"`
	Pathname         string `json:"pathname"`
	ExpiresInSeconds int64  `json:"expiresInSeconds"`
}

func (h *Handler) upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes+1<<20)
	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(c, http.StatusRequestEntityTooLarge, "validation_error", "file exceeds 10MB", nil)
			return
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", "No file provided", nil)
		return
	}
	if fileHeader.Size > maxUploadBytes {
		respond.Error(c, http.StatusRequestEntityTooLarge, "validation_error", "file exceeds 10MB", nil)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()

	sniffed, reader, err := object.Sniff(file)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	if !uploadAllowed(fileHeader.Filename, sniffed) {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file type is not allowed", gin.H{"contentType": sniffed})
		return
	}

	ctx := c.Request.Context()
	orgID := middleware.OrganizationIDFromContext(c)
	key, size, contentType, err := h.Store.Save(ctx, object.Namespace(orgID), fileHeader.Filename, io.LimitReader(reader, maxUploadBytes))
	if err != nil {
		telemetry.Error("uploads.save_failed", map[string]any{
			"request_id":      c.GetString("requestId"),
			"organization_id": orgID,
			"error":           err,
		})
		respond.Error(c, http.StatusInternalServerError, "internal_error", "Upload failed", nil)
		return
	}

	res := uploadResponse{
		Pathname:    key,
		URL:         filesRoute + key,
		DownloadURL: filesRoute + key + "?download=1",
		ContentType: contentType,
		Size:        size,
	}
	if h.Presigner != nil {
		if signed, err := h.Presigner.PresignGet(ctx, key, presignExpires); err == nil {
			res.DownloadURL = signed
		}
	}
	respond.Created(c, res)
}

func (h *Handler) presign(c *gin.Context) {
	if h.Presigner == nil {
		respond.Error(c, http.StatusNotImplemented, "not_configured", "presigned uploads require the s3 object store", nil)
		return
	}
	var req presignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BindError(c, err)
		return
	}
	contentType := strings.TrimSpace(req.ContentType)
	if _, ok := allowedContentTypes[contentType]; !ok {
		respond.Error(c, http.StatusBadRequest, "validation_error", "contentType is not allowed", nil)
		return
	}
	if req.SizeBytes > maxUploadBytes {
		respond.Error(c, http.StatusBadRequest, "validation_error", "sizeBytes exceeds limit", nil)
		return
	}

	orgID := middleware.OrganizationIDFromContext(c)
	key, err := object.NewKey(object.Namespace(orgID), req.FileName)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid fileName", nil)
		return
	}
	url, err := h.Presigner.PresignPut(c.Request.Context(), key, contentType, presignExpires)
	if err != nil {
		telemetry.Error("uploads.presign_failed", map[string]any{
			"request_id":  c.GetString("requestId"),
			"key":         key,
			"contentType": contentType,
			"sizeBytes":   req.SizeBytes,
			"error":       err,
		})
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to generate upload url", nil)
		return
	}
	respond.OK(c, presignResponse{
		UploadURL:        url,
		Pathname:         key,
		ExpiresInSeconds: int64(presignExpires.Seconds()),
	})
}

func (h *Handler) download(c *gin.Context) {
	key, err := object.CleanKey(strings.TrimPrefix(c.Param("key"), "/"))
	if err != nil || !object.OwnedBy(key, middleware.OrganizationIDFromContext(c)) {
		respond.Error(c, http.StatusNotFound, "not_found", "file not found", nil)
		return
	}
	body, err := h.Store.Open(c.Request.Context(), key)
	if errors.Is(err, object.ErrNotFound) {
		respond.Error(c, http.StatusNotFound, "not_found", "file not found", nil)
		return
	}
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to open file", nil)
		return
	}
	defer body.Close()

	contentType, reader, err := object.Sniff(body)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to read file", nil)
		return
	}
	name := displayName(key)
	disposition := "attachment"
	if _, ok := inlineContentTypes[baseType(contentType)]; ok && c.Query("download") == "" {
		disposition = "inline"
	}
	c.Header("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{"filename": name}))
	c.Header("Content-Security-Policy", "sandbox")
	c.Header("X-Content-Type-Options", "nosniff")
	c.DataFromReader(http.StatusOK, -1, contentType, reader, nil)
}

// uploadAllowed checks the sniffed type. Office files sniff as containers, so
// those are matched by extension.
func uploadAllowed(fileName, sniffed string) bool {
	base := baseType(sniffed)
	if _, ok := inlineContentTypes[base]; ok {
		return true
	}
	switch strings.ToLower(path.Ext(fileName)) {
	case ".docx":
		return base == "application/zip"
	case ".doc":
		return base == "application/octet-stream"
	}
	return false
}

func baseType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mediaType
}

// displayName strips the random prefix object.NewKey adds.
func displayName(key string) string {
	name := path.Base(key)
	if i := strings.Index(name, "_"); i >= 0 {
		name = name[i+1:]
	}
	return name
}
