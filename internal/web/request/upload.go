package request

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var (
	// ErrFileTooLarge is returned when a single file exceeds MaxFileSize
	ErrFileTooLarge = errors.New("file too large")
	// ErrNotAnImage is returned when a file's extension or content is not an allowed image type
	ErrNotAnImage = errors.New("file is not a supported image")
)

// ImageConfig bounds image uploads
type ImageConfig struct {
	MaxFileSize int64
	MaxFiles    int
	// AllowedExts lists lower-case extensions including the dot
	AllowedExts []string
}

// DefaultImageConfig returns the limits used by the admin forms
func DefaultImageConfig() ImageConfig {
	return ImageConfig{
		MaxFileSize: 5 << 20,
		MaxFiles:    10,
		AllowedExts: []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".avif"},
	}
}

// File is a validated upload from a multipart form
type File struct {
	Filename string
	Size     int64
	// ContentType is sniffed from the content, not taken from the client
	ContentType string
	header      *multipart.FileHeader
}

// Open opens the uploaded content
func (f *File) Open() (io.ReadCloser, error) {
	return f.header.Open()
}

// Images returns the files posted under field. Empty parts, which browsers
// send when no file was chosen, are returned unvalidated with Size 0 so
// callers can skip them. The form must already be parsed.
func Images(r *http.Request, field string, cfg ImageConfig) ([]*File, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	headers := r.MultipartForm.File[field]
	if cfg.MaxFiles > 0 && len(headers) > cfg.MaxFiles {
		return nil, fmt.Errorf("at most %d files may be uploaded at once", cfg.MaxFiles)
	}

	files := make([]*File, 0, len(headers))
	for _, h := range headers {
		f, err := inspect(h, cfg)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", h.Filename, err)
		}
		files = append(files, f)
	}
	return files, nil
}

// Image returns the single file posted under field, or nil when none was.
func Image(r *http.Request, field string, cfg ImageConfig) (*File, error) {
	files, err := Images(r, field, cfg)
	if err != nil || len(files) == 0 {
		return nil, err
	}
	return files[0], nil
}

func inspect(h *multipart.FileHeader, cfg ImageConfig) (*File, error) {
	f := &File{Filename: filepath.Base(h.Filename), Size: h.Size, header: h}
	if h.Size == 0 {
		return f, nil
	}
	if cfg.MaxFileSize > 0 && h.Size > cfg.MaxFileSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", ErrFileTooLarge, h.Size, cfg.MaxFileSize)
	}

	ext := strings.ToLower(filepath.Ext(h.Filename))
	if len(cfg.AllowedExts) > 0 && !contains(cfg.AllowedExts, ext) {
		return nil, fmt.Errorf("%w: extension %q", ErrNotAnImage, ext)
	}

	rc, err := h.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer rc.Close()

	mt, err := mimetype.DetectReader(rc)
	if err != nil {
		return nil, fmt.Errorf("detect content type: %w", err)
	}
	// SVG is rejected even though mimetype reports an image type
	if !strings.HasPrefix(mt.String(), "image/") || mt.Is("image/svg+xml") {
		return nil, fmt.Errorf("%w: content is %s", ErrNotAnImage, mt.String())
	}
	f.ContentType = mt.String()
	return f, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
