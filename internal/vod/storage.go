package vod

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// WriteDocument stores a rendered VOD manifest in the content directory,
// keyed by program id. It returns the file path written.
func WriteDocument(dir string, programID int64, doc string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}
	path := filepath.Join(dir, fmt.Sprintf("%d.xml", programID))
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// Publisher hands finished VOD documents to the external upload/delete
// workflow. Implementations are invoked by archived-program id only.
type Publisher interface {
	Upload(ctx context.Context, archivedID int64) error
	Delete(ctx context.Context, archivedID int64) error
}

// LogPublisher is the no-op Publisher used when no real upload backend is
// wired in. It records each request so operators can verify the queue flow.
type LogPublisher struct{}

func (LogPublisher) Upload(_ context.Context, archivedID int64) error {
	log.Printf("vod publish: upload requested for archived program %d", archivedID)
	return nil
}

func (LogPublisher) Delete(_ context.Context, archivedID int64) error {
	log.Printf("vod publish: delete requested for archived program %d", archivedID)
	return nil
}
