// Package backend serves the two bridge requests from a data folder, either
// directly from disk or through a remote gacha server.
package backend

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/gacha/internal/models"
)

// DefaultFolder is used when a request does not name a data folder
const DefaultFolder = "gacha1"

var (
	// ErrTraversal is returned when a path escapes the data root
	ErrTraversal = errors.New("invalid path: Traversal detected")
	// ErrNotFound is returned when catalog or asset files are missing
	ErrNotFound = errors.New("not found")
	// ErrMissingParameters is returned for asset requests without refs
	ErrMissingParameters = errors.New("missing parameters")
)

// Folder reads catalogs and assets from subdirectories of Root. Each
// subdirectory holds gacha.yaml, items.yaml and the files they reference.
type Folder struct {
	Root    string
	Latency time.Duration
}

// NewFolder creates a folder backend. latency, when positive, delays every
// response the way a remote backend would.
func NewFolder(root string, latency time.Duration) *Folder {
	return &Folder{
		Root:    root,
		Latency: latency,
	}
}

// FetchCatalog returns the raw gacha.yaml and items.yaml of folder
func (f *Folder) FetchCatalog(ctx context.Context, folder string) (models.CatalogPayload, error) {
	if folder == "" {
		folder = DefaultFolder
	}

	folderPath, err := resolveSafePath(f.Root, folder)
	if err != nil {
		return models.CatalogPayload{}, err
	}
	gachaPath, err := resolveSafePath(folderPath, "gacha.yaml")
	if err != nil {
		return models.CatalogPayload{}, err
	}
	itemsPath, err := resolveSafePath(folderPath, "items.yaml")
	if err != nil {
		return models.CatalogPayload{}, err
	}

	gachaYAML, err := readFile(gachaPath)
	if err != nil {
		return models.CatalogPayload{}, fmt.Errorf("config files not found in %s: %w", folder, err)
	}
	itemsYAML, err := readFile(itemsPath)
	if err != nil {
		return models.CatalogPayload{}, fmt.Errorf("config files not found in %s: %w", folder, err)
	}

	if err := f.delay(ctx); err != nil {
		return models.CatalogPayload{}, err
	}

	slog.Debug("Catalog read", "folder", folder, "bytes", len(gachaYAML)+len(itemsYAML))
	return models.CatalogPayload{
		GachaYAML: string(gachaYAML),
		ItemsYAML: string(itemsYAML),
	}, nil
}

// FetchAsset returns the image of ref as a data URI together with the raw
// markdown description
func (f *Folder) FetchAsset(ctx context.Context, folder string, ref models.AssetRef) (models.AssetPayload, error) {
	if ref.Image == "" || ref.Description == "" {
		return models.AssetPayload{}, ErrMissingParameters
	}
	if folder == "" {
		folder = DefaultFolder
	}

	folderPath, err := resolveSafePath(f.Root, folder)
	if err != nil {
		return models.AssetPayload{}, err
	}
	imgPath, err := resolveSafePath(folderPath, ref.Image)
	if err != nil {
		return models.AssetPayload{}, err
	}
	mdPath, err := resolveSafePath(folderPath, ref.Description)
	if err != nil {
		return models.AssetPayload{}, err
	}

	img, err := readFile(imgPath)
	if err != nil {
		return models.AssetPayload{}, fmt.Errorf("assets not found: %w", err)
	}
	md, err := readFile(mdPath)
	if err != nil {
		return models.AssetPayload{}, fmt.Errorf("assets not found: %w", err)
	}

	if err := f.delay(ctx); err != nil {
		return models.AssetPayload{}, err
	}

	return models.AssetPayload{
		ImageData: DataURI(ref.Image, img),
		MDContent: string(md),
	}, nil
}

func (f *Folder) delay(ctx context.Context) error {
	if f.Latency <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(f.Latency)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Folders lists the data folders under Root that contain an items.yaml
func (f *Folder) Folders() ([]string, error) {
	entries, err := os.ReadDir(f.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to read data root: %w", err)
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(f.Root, e.Name(), "items.yaml")); err == nil {
			out = append(out, e.Name())
		}
	}
	return out, nil
}

// DataURI encodes data as a base64 data URI. The media type comes from the
// file extension of name, falling back to content sniffing.
func DataURI(name string, data []byte) string {
	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// resolveSafePath joins parts onto base and rejects results outside base
func resolveSafePath(base string, parts ...string) (string, error) {
	resolvedBase, err := filepath.Abs(base)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", base, err)
	}
	target := filepath.Join(append([]string{resolvedBase}, parts...)...)

	if target != resolvedBase && !strings.HasPrefix(target, resolvedBase+string(filepath.Separator)) {
		slog.Warn("Rejected path outside data root", "base", resolvedBase, "parts", parts)
		return "", ErrTraversal
	}
	return target, nil
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, filepath.Base(path))
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}
