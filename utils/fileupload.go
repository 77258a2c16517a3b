package utils

import (
	"fmt"
	"mime/multipart"
	"path/filepath"
	"sort"
	"strings"
)

// MaxFileSize is 10MB in bytes
const MaxFileSize = 10 * 1024 * 1024

// allowedImageTypes maps accepted disc photo extensions to their content types
var allowedImageTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
}

// FileUploadError represents a file upload validation error
type FileUploadError struct {
	Code    string
	Message string
}

func (e *FileUploadError) Error() string {
	return e.Message
}

// ValidateImageFile validates the uploaded file format and size
func ValidateImageFile(fileHeader *multipart.FileHeader) error {
	// Check file size
	if fileHeader.Size > MaxFileSize {
		return &FileUploadError{
			Code:    "FILE_TOO_LARGE",
			Message: fmt.Sprintf("File size exceeds maximum allowed size of %d MB", MaxFileSize/(1024*1024)),
		}
	}

	// Check file extension
	if _, ok := ImageContentType(fileHeader.Filename); !ok {
		return &FileUploadError{
			Code:    "INVALID_FILE_FORMAT",
			Message: fmt.Sprintf("Only %s files are allowed", strings.Join(allowedExtensions(), ", ")),
		}
	}

	return nil
}

// ImageContentType returns the content type for an accepted image filename
func ImageContentType(filename string) (string, bool) {
	contentType, ok := allowedImageTypes[strings.ToLower(filepath.Ext(filename))]
	return contentType, ok
}

func allowedExtensions() []string {
	exts := make([]string, 0, len(allowedImageTypes))
	for ext := range allowedImageTypes {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
