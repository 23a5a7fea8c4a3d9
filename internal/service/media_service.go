package service

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/stemsi/physqgen-backend/internal/config"
)

// Sentinel errors for media uploads.
var (
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file too large")
	ErrInvalidFilename     = errors.New("invalid file name")
)

// Allowed image MIME types.
var allowedMIMETypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

var filenamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// ImageURLPrefix is where question images are served from.
const ImageURLPrefix = "/images/"

// MediaService stores question images referenced by imageFilename.
type MediaService struct {
	cfg *config.Config
}

// NewMediaService creates a new MediaService.
func NewMediaService(cfg *config.Config) *MediaService {
	return &MediaService{cfg: cfg}
}

// SaveUpload stores an uploaded image. When name is empty a UUID name is
// generated; otherwise name (without extension) is kept so question sets can
// refer to it. Returns the stored file name.
func (s *MediaService) SaveUpload(file multipart.File, header *multipart.FileHeader, name string) (string, error) {
	contentType := header.Header.Get("Content-Type")
	ext, ok := allowedMIMETypes[contentType]
	if !ok {
		return "", fmt.Errorf("%w: %s (allowed: %s)",
			ErrUnsupportedFileType, contentType, strings.Join(allowedTypes(), ", "))
	}

	if header.Size > s.cfg.MaxUploadBytes {
		return "", fmt.Errorf("%w: %d bytes (max: %d)", ErrFileTooLarge, header.Size, s.cfg.MaxUploadBytes)
	}

	filename := uuid.New().String() + ext
	if name != "" {
		base := strings.TrimSuffix(name, filepath.Ext(name))
		if !filenamePattern.MatchString(base) {
			return "", fmt.Errorf("%w: %q", ErrInvalidFilename, name)
		}
		filename = base + ext
	}

	// the declared type must match the content
	sniffed, err := mimetype.DetectReader(file)
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if !sniffed.Is(contentType) {
		return "", fmt.Errorf("%w: declared %s but content is %s", ErrUnsupportedFileType, contentType, sniffed.String())
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind upload: %w", err)
	}

	if err := os.MkdirAll(s.cfg.UploadDir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	dst, err := os.Create(filepath.Join(s.cfg.UploadDir, filename))
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, io.LimitReader(file, s.cfg.MaxUploadBytes+1)); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}

	return filename, nil
}

// MissingImages lists image file names referenced by the question set that
// are not present in the upload directory.
func (s *MediaService) MissingImages(set *config.QuestionSet) []string {
	var missing []string
	seen := make(map[string]bool)
	for _, q := range set.Questions {
		if q.ImageFilename == "" || seen[q.ImageFilename] {
			continue
		}
		seen[q.ImageFilename] = true
		if _, err := os.Stat(filepath.Join(s.cfg.UploadDir, filepath.Base(q.ImageFilename))); err != nil {
			missing = append(missing, q.ImageFilename)
		}
	}
	return missing
}

func allowedTypes() []string {
	types := make([]string, 0, len(allowedMIMETypes))
	for t := range allowedMIMETypes {
		types = append(types, t)
	}
	return types
}
