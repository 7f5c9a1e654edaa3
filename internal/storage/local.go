package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/SAP-F-2025/proctoring-service/internal/models"
	"github.com/SAP-F-2025/proctoring-service/internal/proctoring"
)

// LocalStore writes screenshots under <root>/cv_screenshots.
type LocalStore struct {
	root string
}

func NewLocalStore(root string) (*LocalStore, error) {
	if err := os.MkdirAll(filepath.Join(root, ScreenshotDir), 0o755); err != nil {
		return nil, fmt.Errorf("create screenshot dir: %w", err)
	}
	return &LocalStore{root: root}, nil
}

// Save returns a reference relative to the store root, "cv_screenshots/<file>".
func (s *LocalStore) Save(ctx context.Context, interviewID uint, d models.Detection, frame *proctoring.Frame) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, err := EncodeScreenshot(frame, d)
	if err != nil {
		return "", err
	}

	name := FileName(interviewID, d)
	if err := os.WriteFile(filepath.Join(s.root, ScreenshotDir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write screenshot: %w", err)
	}
	return path.Join(ScreenshotDir, name), nil
}

// Path resolves a reference returned by Save to a file path.
func (s *LocalStore) Path(ref string) string {
	return filepath.Join(s.root, filepath.FromSlash(ref))
}
