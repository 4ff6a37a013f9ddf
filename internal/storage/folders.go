package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/nocodemedia/media-server/internal/models"
)

const foldersDir = "folders"

// protectedFolders are created automatically and can never be deleted,
// regardless of whether they are addressed by display name or normalized id
var protectedFolders = []string{"temp", "Background Music"}

func (s *Store) foldersRoot() string {
	return filepath.Join(s.root, foldersDir)
}

func (s *Store) createDefaultFolders() error {
	if err := os.MkdirAll(s.foldersRoot(), 0755); err != nil {
		return fmt.Errorf("create folders root: %w", err)
	}
	for _, name := range protectedFolders {
		if err := os.MkdirAll(filepath.Join(s.foldersRoot(), name), 0755); err != nil {
			return fmt.Errorf("create default folder %q: %w", name, err)
		}
	}
	return nil
}

// folderIndex is the bidirectional normalized-id lookup, keyed per parent so
// ambiguity in one segment cannot leak into sibling resolution. It replaces
// the directory scan older versions used for reverse lookup.
type folderIndex struct {
	mu    sync.RWMutex
	names map[string]string // parentRel + "\x00" + normalizedID -> display name
}

func newFolderIndex() *folderIndex {
	return &folderIndex{names: make(map[string]string)}
}

func indexKey(parentRel, normalizedID string) string {
	return parentRel + "\x00" + normalizedID
}

func (idx *folderIndex) rebuild(root string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.names = make(map[string]string)
	return filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil || !d.IsDir() || p == root {
			return err
		}
		rel, relErr := filepath.Rel(root, filepath.Dir(p))
		if relErr != nil {
			return relErr
		}
		parent := ""
		if rel != "." {
			parent = filepath.ToSlash(rel)
		}
		idx.names[indexKey(parent, NormalizeFolderID(d.Name()))] = d.Name()
		return nil
	})
}

func (idx *folderIndex) add(parentRel, name string) {
	idx.mu.Lock()
	idx.names[indexKey(parentRel, NormalizeFolderID(name))] = name
	idx.mu.Unlock()
}

func (idx *folderIndex) remove(rel string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	parent := ""
	name := rel
	if i := strings.LastIndex(rel, "/"); i >= 0 {
		parent, name = rel[:i], rel[i+1:]
	}
	delete(idx.names, indexKey(parent, NormalizeFolderID(name)))

	// drop everything indexed below the removed folder
	for key := range idx.names {
		keyParent, _, _ := strings.Cut(key, "\x00")
		if keyParent == rel || strings.HasPrefix(keyParent, rel+"/") {
			delete(idx.names, key)
		}
	}
}

func (idx *folderIndex) lookup(parentRel, normalizedID string) (string, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	name, ok := idx.names[indexKey(parentRel, normalizedID)]
	return name, ok
}

// siblingCollision reports whether another sibling already normalizes to the
// same id as name
func (idx *folderIndex) siblingCollision(parentRel, name string) (string, bool) {
	existing, ok := idx.lookup(parentRel, NormalizeFolderID(name))
	if ok && existing != name {
		return existing, true
	}
	return "", false
}

// ResolveFolderPath maps a folder path whose segments may be display names or
// normalized ids to the canonical display-name path. Each segment resolves
// independently against its already-resolved parent. Returns ErrNotFound when
// a segment matches neither form.
func (s *Store) ResolveFolderPath(folderPath string) (string, error) {
	folderPath = strings.Trim(strings.ReplaceAll(folderPath, "\\", "/"), "/")
	if folderPath == "" {
		return "", nil
	}

	resolved := ""
	for _, segment := range strings.Split(folderPath, "/") {
		if segment == "" || segment == "." || strings.Contains(segment, "..") {
			return "", validationErrorf("invalid folder path")
		}

		// display name wins; normalized id is an alias
		display := segment
		if _, err := os.Stat(filepath.Join(s.foldersRoot(), filepath.FromSlash(resolved), segment)); err != nil {
			name, ok := s.folders.lookup(resolved, NormalizeFolderID(segment))
			if !ok {
				return "", fmt.Errorf("folder %q: %w", folderPath, ErrNotFound)
			}
			display = name
		}

		if resolved == "" {
			resolved = display
		} else {
			resolved = resolved + "/" + display
		}
	}
	return resolved, nil
}

// ensureFolder resolves a folder path, creating missing trailing segments.
// Used by folder uploads, which may target folders that do not exist yet.
func (s *Store) ensureFolder(folderPath string) (string, error) {
	resolved, err := s.ResolveFolderPath(folderPath)
	if err == nil {
		return resolved, nil
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		return "", err
	}

	folderPath = strings.Trim(strings.ReplaceAll(folderPath, "\\", "/"), "/")
	resolved = ""
	for _, segment := range strings.Split(folderPath, "/") {
		if segment == "" || containsTraversal(segment) {
			return "", validationErrorf("invalid folder name")
		}
		next := segment
		if name, ok := s.folders.lookup(resolved, NormalizeFolderID(segment)); ok {
			next = name
		}
		target := filepath.Join(s.foldersRoot(), filepath.FromSlash(resolved), next)
		if _, statErr := os.Stat(target); os.IsNotExist(statErr) {
			if mkErr := os.MkdirAll(target, 0755); mkErr != nil {
				return "", fmt.Errorf("create folder %q: %w", next, mkErr)
			}
			s.folders.add(resolved, next)
		}
		if resolved == "" {
			resolved = next
		} else {
			resolved = resolved + "/" + next
		}
	}
	return resolved, nil
}

// CreateFolder creates a folder under parent. Returns false without error
// when the folder already exists. A sibling whose name normalizes to the same
// id is rejected so normalized addressing stays unambiguous.
func (s *Store) CreateFolder(name, parent string) (bool, error) {
	if name == "" || containsTraversal(name) {
		return false, validationErrorf("invalid folder name")
	}

	parentRel, err := s.ResolveFolderPath(parent)
	if err != nil {
		return false, err
	}

	target := filepath.Join(s.foldersRoot(), filepath.FromSlash(parentRel), name)
	if _, err := os.Stat(target); err == nil {
		return false, nil
	}

	if existing, collides := s.folders.siblingCollision(parentRel, name); collides {
		return false, validationErrorf("folder name %q conflicts with existing folder %q", name, existing)
	}

	if err := os.MkdirAll(target, 0755); err != nil {
		return false, fmt.Errorf("create folder: %w", err)
	}
	s.folders.add(parentRel, name)
	return true, nil
}

// ListFolders enumerates the immediate subfolders of parent, sorted by name
func (s *Store) ListFolders(parent string) ([]models.FolderInfo, error) {
	parentRel, err := s.ResolveFolderPath(parent)
	if err != nil {
		return nil, err
	}

	base := filepath.Join(s.foldersRoot(), filepath.FromSlash(parentRel))
	entries, err := os.ReadDir(base)
	if os.IsNotExist(err) {
		return []models.FolderInfo{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read folders: %w", err)
	}

	folders := make([]models.FolderInfo, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			s.logger.Warn("failed to stat folder", zap.String("folder", entry.Name()), zap.Error(err))
			continue
		}
		rel := entry.Name()
		if parentRel != "" {
			rel = parentRel + "/" + entry.Name()
		}
		folders = append(folders, models.FolderInfo{
			Name:         entry.Name(),
			NormalizedID: NormalizeFolderID(entry.Name()),
			Path:         rel,
			CreatedAt:    info.ModTime(),
			ModifiedAt:   info.ModTime(),
			FileCount:    s.countFolderFiles(rel),
		})
	}

	sort.Slice(folders, func(i, j int) bool { return folders[i].Name < folders[j].Name })
	return folders, nil
}

// DeleteFolder removes a folder tree and its metadata records. Returns false
// when the folder does not exist; protected folders are always rejected.
func (s *Store) DeleteFolder(ctx context.Context, folderPath string) (bool, error) {
	resolved, err := s.ResolveFolderPath(folderPath)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if resolved == "" {
		return false, validationErrorf("cannot delete folder root or empty path")
	}
	if slices.Contains(protectedFolders, resolved) {
		return false, validationErrorf("cannot delete protected folder %q", resolved)
	}

	target := filepath.Join(s.foldersRoot(), filepath.FromSlash(resolved))
	if _, err := os.Stat(target); os.IsNotExist(err) {
		return false, nil
	}
	if err := os.RemoveAll(target); err != nil {
		return false, fmt.Errorf("delete folder: %w", err)
	}

	s.folders.remove(resolved)
	if err := s.meta.DeleteByFolderPrefix(ctx, resolved); err != nil {
		s.logger.Warn("failed to drop metadata for deleted folder", zap.String("folder", resolved), zap.Error(err))
	}
	return true, nil
}

// FolderContents lists the immediate subfolders and files of a folder. File
// entries carry the UUID media id and a display name built from the metadata
// custom name plus the original extension.
func (s *Store) FolderContents(ctx context.Context, folderPath string) (*models.FolderContents, error) {
	contents := &models.FolderContents{
		Folders:     []models.FolderInfo{},
		Files:       []models.FolderFile{},
		CurrentPath: folderPath,
	}

	resolved, err := s.ResolveFolderPath(folderPath)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return contents, nil
		}
		return nil, err
	}
	contents.CurrentPath = resolved

	base := filepath.Join(s.foldersRoot(), filepath.FromSlash(resolved))
	entries, err := os.ReadDir(base)
	if os.IsNotExist(err) {
		return contents, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read folder: %w", err)
	}

	records, err := s.meta.ListByFolder(ctx, resolved)
	if err != nil {
		return nil, err
	}
	byFilename := make(map[string]*models.Metadata, len(records))
	for _, record := range records {
		byFilename[record.Filename] = record
	}

	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") || isMarkerName(name) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			s.logger.Warn("failed to stat folder entry", zap.String("entry", name), zap.Error(err))
			continue
		}
		rel := name
		if resolved != "" {
			rel = resolved + "/" + name
		}

		if entry.IsDir() {
			contents.Folders = append(contents.Folders, models.FolderInfo{
				Name:         name,
				NormalizedID: NormalizeFolderID(name),
				Path:         rel,
				CreatedAt:    info.ModTime(),
				ModifiedAt:   info.ModTime(),
				FileCount:    s.countFolderFiles(rel),
			})
			continue
		}

		ext := strings.ToLower(filepath.Ext(name))
		mediaID := strings.TrimSuffix(name, filepath.Ext(name))
		display := name
		if record, ok := byFilename[name]; ok && record.CustomName != "" {
			display = record.CustomName + ext
		}
		contents.Files = append(contents.Files, models.FolderFile{
			MediaID:       mediaID,
			DisplayName:   display,
			Path:          rel,
			SizeBytes:     info.Size(),
			SizeMB:        toMB(info.Size()),
			CreatedAt:     info.ModTime(),
			ModifiedAt:    info.ModTime(),
			FileExtension: ext,
		})
	}

	sort.Slice(contents.Folders, func(i, j int) bool { return contents.Folders[i].Name < contents.Folders[j].Name })
	sort.Slice(contents.Files, func(i, j int) bool { return contents.Files[i].DisplayName < contents.Files[j].DisplayName })
	return contents, nil
}

func (s *Store) countFolderFiles(rel string) int {
	count := 0
	_ = filepath.WalkDir(filepath.Join(s.foldersRoot(), filepath.FromSlash(rel)), func(_ string, d os.DirEntry, err error) error {
		if err == nil && !d.IsDir() && !isMarkerName(d.Name()) {
			count++
		}
		return nil
	})
	return count
}
