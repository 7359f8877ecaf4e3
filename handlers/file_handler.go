package handlers

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"filenet-backend/models"
	"filenet-backend/service"
	"filenet-backend/storage"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// FileHandler handles HTTP requests for file operations
type FileHandler struct {
	fileService       *service.FileService
	storage           storage.Storage
	maxFileSize       int64
	allowedExtensions map[string]bool
}

// NewFileHandler creates a new file handler. Upload limits come from
// MAX_CONTENT_LENGTH and ALLOWED_EXTENSIONS when set.
func NewFileHandler(fileService *service.FileService, st storage.Storage) *FileHandler {
	h := &FileHandler{
		fileService: fileService,
		storage:     st,
		maxFileSize: 50 * 1024 * 1024, // 50MB
		allowedExtensions: map[string]bool{
			"txt": true, "pdf": true,
			"doc": true, "docx": true,
			"xls": true, "xlsx": true,
			"ppt": true, "pptx": true,
			"jpg": true, "jpeg": true,
			"png": true, "gif": true,
		},
	}

	if raw := os.Getenv("MAX_CONTENT_LENGTH"); raw != "" {
		if limit, err := strconv.ParseInt(raw, 10, 64); err == nil && limit > 0 {
			h.maxFileSize = limit
		}
	}
	if raw := os.Getenv("ALLOWED_EXTENSIONS"); raw != "" {
		allowed := make(map[string]bool)
		for _, ext := range strings.Split(raw, ",") {
			ext = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(ext, ".")))
			if ext != "" {
				allowed[ext] = true
			}
		}
		h.allowedExtensions = allowed
	}
	return h
}

func fileExtension(filename string) string {
	if idx := strings.LastIndex(filename, "."); idx >= 0 && idx < len(filename)-1 {
		return strings.ToLower(filename[idx+1:])
	}
	return ""
}

func (h *FileHandler) validateUpload(c *gin.Context) (filename string, ext string, ok bool) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondError(c, http.StatusBadRequest, "MISSING_FILE", "File is required")
		return "", "", false
	}
	if fileHeader.Size > h.maxFileSize {
		respondError(c, http.StatusBadRequest, "FILE_TOO_LARGE",
			fmt.Sprintf("File size exceeds maximum of %d bytes", h.maxFileSize))
		return "", "", false
	}
	ext = fileExtension(fileHeader.Filename)
	if !h.allowedExtensions[ext] {
		respondError(c, http.StatusBadRequest, "INVALID_FILE_TYPE",
			fmt.Sprintf("File type .%s is not allowed", ext))
		return "", "", false
	}
	return fileHeader.Filename, ext, true
}

func metadataFromForm(c *gin.Context) models.FileMetadata {
	metadata := models.FileMetadata{
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
	}
	if keywords := c.PostForm("keywords"); keywords != "" {
		for _, kw := range strings.Split(keywords, ",") {
			if kw = strings.TrimSpace(kw); kw != "" {
				metadata.Keywords = append(metadata.Keywords, kw)
			}
		}
	}
	return metadata
}

// UploadFile handles POST /api/files/upload
func (h *FileHandler) UploadFile(c *gin.Context) {
	user := CurrentUser(c)

	filename, ext, ok := h.validateUpload(c)
	if !ok {
		return
	}

	fileHeader, _ := c.FormFile("file")
	reader, err := fileHeader.Open()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "FILE_OPEN_ERROR", err.Error())
		return
	}
	defer reader.Close()

	file, err := h.fileService.Upload(c.Request.Context(), service.UploadRequest{
		OwnerID:  user.ID,
		Filename: filename,
		FileType: ext,
		Metadata: metadataFromForm(c),
		Data:     reader,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondData(c, http.StatusCreated, file)
}

// ListFiles handles GET /api/files
func (h *FileHandler) ListFiles(c *gin.Context) {
	files, err := h.fileService.ListUserFiles(c.Request.Context(), CurrentUser(c).ID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, files)
}

// SearchFiles handles GET /api/files/search?query=
func (h *FileHandler) SearchFiles(c *gin.Context) {
	query := c.Query("query")
	if query == "" {
		respondData(c, http.StatusOK, []*models.File{})
		return
	}

	files, err := h.fileService.Search(c.Request.Context(), CurrentUser(c).ID, query)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, files)
}

func fileIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_ID", "Invalid file ID format")
		return uuid.Nil, false
	}
	return id, true
}

// GetFile handles GET /api/files/:id (metadata only)
func (h *FileHandler) GetFile(c *gin.Context) {
	id, ok := fileIDParam(c)
	if !ok {
		return
	}

	file, err := h.fileService.Get(c.Request.Context(), CurrentUser(c).ID, id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, file)
}

// GetFileWithMetadata handles GET /api/files/:id/with-metadata, returning
// the record plus a presigned download URL.
func (h *FileHandler) GetFileWithMetadata(c *gin.Context) {
	id, ok := fileIDParam(c)
	if !ok {
		return
	}

	url, file, err := h.fileService.PresignedDownload(c.Request.Context(), CurrentUser(c).ID, id)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondData(c, http.StatusOK, gin.H{
		"metadata":     file,
		"download_url": url,
	})
}

// DownloadFile handles GET /api/files/:id/download?version=N
func (h *FileHandler) DownloadFile(c *gin.Context) {
	id, ok := fileIDParam(c)
	if !ok {
		return
	}

	versionNumber := 0
	if raw := c.Query("version"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			respondError(c, http.StatusBadRequest, "INVALID_VERSION", "Invalid version number")
			return
		}
		versionNumber = v
	}

	reader, file, err := h.fileService.Download(c.Request.Context(), CurrentUser(c).ID, id, versionNumber)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	defer reader.Close()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.DataFromReader(http.StatusOK, -1, "application/octet-stream", reader, nil)
}

// UpdateFile handles PUT /api/files/:id. Metadata fields update in place;
// an attached file creates a new version.
func (h *FileHandler) UpdateFile(c *gin.Context) {
	id, ok := fileIDParam(c)
	if !ok {
		return
	}
	user := CurrentUser(c)

	_, hasTitle := c.GetPostForm("title")
	_, hasDescription := c.GetPostForm("description")
	_, hasKeywords := c.GetPostForm("keywords")
	if hasTitle || hasDescription || hasKeywords {
		if _, err := h.fileService.UpdateMetadata(c.Request.Context(), user.ID, id, metadataFromForm(c)); err != nil {
			respondServiceError(c, err)
			return
		}
	}

	if fileHeader, err := c.FormFile("file"); err == nil && fileHeader != nil {
		if fileHeader.Size > h.maxFileSize {
			respondError(c, http.StatusBadRequest, "FILE_TOO_LARGE",
				fmt.Sprintf("File size exceeds maximum of %d bytes", h.maxFileSize))
			return
		}
		if ext := fileExtension(fileHeader.Filename); !h.allowedExtensions[ext] {
			respondError(c, http.StatusBadRequest, "INVALID_FILE_TYPE",
				fmt.Sprintf("File type .%s is not allowed", ext))
			return
		}

		reader, err := fileHeader.Open()
		if err != nil {
			respondError(c, http.StatusInternalServerError, "FILE_OPEN_ERROR", err.Error())
			return
		}
		defer reader.Close()

		if _, err := h.fileService.AddVersion(c.Request.Context(), user.ID, id, reader, c.PostForm("comment")); err != nil {
			respondServiceError(c, err)
			return
		}
	}

	file, err := h.fileService.Get(c.Request.Context(), user.ID, id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, file)
}

// ListVersions handles GET /api/files/:id/versions
func (h *FileHandler) ListVersions(c *gin.Context) {
	id, ok := fileIDParam(c)
	if !ok {
		return
	}

	versions, err := h.fileService.ListVersions(c.Request.Context(), CurrentUser(c).ID, id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, versions)
}

// RestoreVersion handles POST /api/files/:id/restore/:version
func (h *FileHandler) RestoreVersion(c *gin.Context) {
	id, ok := fileIDParam(c)
	if !ok {
		return
	}
	versionNumber, err := strconv.Atoi(c.Param("version"))
	if err != nil || versionNumber < 1 {
		respondError(c, http.StatusBadRequest, "INVALID_VERSION", "Invalid version number")
		return
	}

	file, err := h.fileService.RestoreVersion(c.Request.Context(), CurrentUser(c).ID, id, versionNumber)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, file)
}

// ShareRequest is the permission JSON shape:
// {owner: id, read: [ids], write: [ids], delete: [ids]}.
type ShareRequest struct {
	Read   []string `json:"read"`
	Write  []string `json:"write"`
	Delete []string `json:"delete"`
}

// ShareFile handles PUT /api/files/:id/share
func (h *FileHandler) ShareFile(c *gin.Context) {
	id, ok := fileIDParam(c)
	if !ok {
		return
	}

	var req ShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	file, err := h.fileService.Share(c.Request.Context(), CurrentUser(c).ID, id, models.Permissions{
		Read:   req.Read,
		Write:  req.Write,
		Delete: req.Delete,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, file)
}

// DeleteFile handles DELETE /api/files/:id (soft delete)
func (h *FileHandler) DeleteFile(c *gin.Context) {
	id, ok := fileIDParam(c)
	if !ok {
		return
	}

	if err := h.fileService.SoftDelete(c.Request.Context(), CurrentUser(c).ID, id); err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{"message": "File deleted"})
}

// ServePublicFile handles GET /public/files/*path for URLs produced by
// the local storage presigner. The token is a convenience expiry check,
// not a signed capability.
func (h *FileHandler) ServePublicFile(c *gin.Context) {
	storagePath := strings.TrimPrefix(c.Param("path"), "/")
	token := c.Query("token")
	expires, err := strconv.ParseInt(c.Query("expires"), 10, 64)
	if err != nil || token == "" {
		respondError(c, http.StatusBadRequest, "INVALID_TOKEN", "Missing or malformed download token")
		return
	}
	if !storage.ValidateLocalToken(storagePath, token, expires) {
		respondError(c, http.StatusForbidden, "TOKEN_EXPIRED", "Download link is invalid or has expired")
		return
	}

	reader, err := h.storage.Download(c.Request.Context(), storagePath)
	if err != nil {
		respondError(c, http.StatusNotFound, "NOT_FOUND", err.Error())
		return
	}
	defer reader.Close()

	c.DataFromReader(http.StatusOK, -1, "application/octet-stream", reader, nil)
}
