package loader

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/OFFIS-RIT/wisdom/pkg/common"
)

// ErrUnsupportedFormat is returned when a document is neither JSON nor YAML,
// or does not decode into a category mapping.
var ErrUnsupportedFormat = errors.New("loader: unsupported model format")

type ModelFormat string

const (
	ModelFormatAuto ModelFormat = ""
	ModelFormatJSON ModelFormat = "json"
	ModelFormatYAML ModelFormat = "yaml"
)

// FormatFromPath derives the document format from a file extension. Unknown
// extensions yield ModelFormatAuto so the content decides.
func FormatFromPath(path string) ModelFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return ModelFormatJSON
	case ".yaml", ".yml":
		return ModelFormatYAML
	default:
		return ModelFormatAuto
	}
}

// ModelFile points to one organization model document. The content is
// fetched through Source, which may read from disk, S3 or anything else.
type ModelFile struct {
	ID     string
	Path   string
	Format ModelFormat
	Source ModelSource
}

// NewModelFile creates a ModelFile whose format is derived from the path.
func NewModelFile(id, path string, source ModelSource) ModelFile {
	return ModelFile{
		ID:     id,
		Path:   path,
		Format: FormatFromPath(path),
		Source: source,
	}
}

// ModelSource fetches the raw bytes of a model document.
type ModelSource interface {
	GetModelBytes(ctx context.Context, file ModelFile) ([]byte, error)
}

// Load fetches and decodes the document.
//
// Example:
//
//	src := io.NewIOModelSource()
//	model, err := loader.Load(ctx, loader.NewModelFile("m1", "model.yaml", src))
//	if err != nil {
//		log.Fatal(err)
//	}
func Load(ctx context.Context, file ModelFile) (common.OrganizationModel, error) {
	if file.Source == nil {
		return nil, fmt.Errorf("load %s: no model source", file.Path)
	}
	raw, err := file.Source.GetModelBytes(ctx, file)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", file.Path, err)
	}
	model, err := Decode(raw, file.Format)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", file.Path, err)
	}
	return model, nil
}

// CacheKey identifies a file in source caches.
func CacheKey(file ModelFile) string {
	return file.ID + ":" + file.Path
}
