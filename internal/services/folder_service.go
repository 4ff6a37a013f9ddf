package services

import (
	"context"
	"io"

	"github.com/nocodemedia/media-server/internal/models"
	"github.com/nocodemedia/media-server/internal/storage"
)

// FolderService handles business logic for the user folder tree
type FolderService struct {
	store *storage.Store
}

// NewFolderService creates a new folder service
func NewFolderService(store *storage.Store) *FolderService {
	return &FolderService{store: store}
}

// Create makes a new folder under parent. Returns false when a folder with
// the same name already exists there.
func (s *FolderService) Create(ctx context.Context, name, parent string) (bool, error) {
	return s.store.CreateFolder(name, parent)
}

// List returns the folders directly under parent, or the root folders when
// parent is empty
func (s *FolderService) List(ctx context.Context, parent string) ([]models.FolderInfo, error) {
	return s.store.ListFolders(parent)
}

// Delete removes a folder and everything in it. Returns false when the
// folder does not exist.
func (s *FolderService) Delete(ctx context.Context, folderPath string) (bool, error) {
	return s.store.DeleteFolder(ctx, folderPath)
}

// Contents lists the files inside a folder
func (s *FolderService) Contents(ctx context.Context, folderPath string) (*models.FolderContents, error) {
	return s.store.FolderContents(ctx, folderPath)
}

// Upload stores a file inside a folder, creating missing path segments
func (s *FolderService) Upload(ctx context.Context, mediaType models.MediaType, r io.Reader, ext, folderPath, originalFilename, customName string) (string, error) {
	if !mediaType.Uploadable() {
		return "", storage.InvalidMediaTypeError(mediaType)
	}
	return s.store.UploadToFolder(ctx, mediaType, r, ext, folderPath, originalFilename, customName)
}
