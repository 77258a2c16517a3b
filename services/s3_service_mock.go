package services

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"sync"

	"github.com/discr/discr-api/utils"
)

// MockS3Service is a mock implementation of S3Service for testing
type MockS3Service struct {
	uploadedFiles map[string][]byte // map of S3 key to file content
	contentTypes  map[string]string
	PutErr        error
	mu            sync.RWMutex
}

// NewMockS3Service creates a new mock S3 service
func NewMockS3Service() *MockS3Service {
	return &MockS3Service{
		uploadedFiles: make(map[string][]byte),
		contentTypes:  make(map[string]string),
	}
}

// SetAsMockForTesting sets this mock as the global S3 service instance for testing
func (m *MockS3Service) SetAsMockForTesting() {
	SetS3Service(m)
}

// UploadFile simulates uploading a file to S3
func (m *MockS3Service) UploadFile(ctx context.Context, prefix string, fileHeader *multipart.FileHeader) (string, error) {
	// Open and read the file
	file, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	// Generate the same key shape as the real service
	contentType, _ := utils.ImageContentType(fileHeader.Filename)
	s3Key := ObjectKey(prefix, fileHeader.Filename)
	if err := m.PutObject(ctx, s3Key, content, contentType); err != nil {
		return "", err
	}
	return s3Key, nil
}

// PutObject simulates storing raw bytes
func (m *MockS3Service) PutObject(ctx context.Context, key string, body []byte, contentType string) error {
	if m.PutErr != nil {
		return m.PutErr
	}

	// Store in mock storage
	m.mu.Lock()
	m.uploadedFiles[key] = body
	m.contentTypes[key] = contentType
	m.mu.Unlock()
	return nil
}

// GetPresignedURL simulates generating a presigned URL
func (m *MockS3Service) GetPresignedURL(ctx context.Context, s3Key string) (string, error) {
	if s3Key == "" {
		return "", nil
	}

	// Check if file exists in mock storage
	m.mu.RLock()
	_, exists := m.uploadedFiles[s3Key]
	m.mu.RUnlock()

	if !exists {
		return "", fmt.Errorf("file not found in mock S3: %s", s3Key)
	}

	// Return a mock presigned URL
	return fmt.Sprintf("https://test-bucket.s3.us-east-1.amazonaws.com/%s?mock=true", s3Key), nil
}

// DeleteFile simulates deleting a file from S3
func (m *MockS3Service) DeleteFile(ctx context.Context, s3Key string) error {
	if s3Key == "" {
		return nil
	}

	m.mu.Lock()
	delete(m.uploadedFiles, s3Key)
	delete(m.contentTypes, s3Key)
	m.mu.Unlock()

	return nil
}

// GetUploadedFiles returns all uploaded files (for testing assertions)
func (m *MockS3Service) GetUploadedFiles() map[string][]byte {
	m.mu.RLock()
	defer m.mu.RUnlock()

	files := make(map[string][]byte, len(m.uploadedFiles))
	for k, v := range m.uploadedFiles {
		files[k] = v
	}
	return files
}

// ContentType returns the content type a key was stored with
func (m *MockS3Service) ContentType(s3Key string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.contentTypes[s3Key]
}

// FileExists checks if a file exists in mock storage
func (m *MockS3Service) FileExists(s3Key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, exists := m.uploadedFiles[s3Key]
	return exists
}

// Clear removes all files from mock storage
func (m *MockS3Service) Clear() {
	m.mu.Lock()
	m.uploadedFiles = make(map[string][]byte)
	m.contentTypes = make(map[string]string)
	m.mu.Unlock()
}
