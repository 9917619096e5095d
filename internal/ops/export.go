package ops

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"go.uber.org/zap"

	"github.com/hpungsan/chefai/internal/api"
	"github.com/hpungsan/chefai/internal/errors"
)

// ExportInput contains parameters for the ExportDocument operation.
type ExportInput struct {
	// Save writes the document into the exports directory. When false the
	// caller receives the bytes only (e.g. to stream to a browser).
	Save bool
	// Target, when set, must name the displayed recipe or the call fails
	// with STALE_VIEW before any request is sent.
	Target *Target
}

// ExportOutput contains the result of the ExportDocument operation.
type ExportOutput struct {
	Filename string `json:"filename"`
	Path     string `json:"path,omitempty"`
	Size     int    `json:"size"`
	Document []byte `json:"-"`
}

// ExportDocument sends the displayed recipe, in canonical form, to the
// service and returns the rendered document. It never changes client state.
func ExportDocument(ctx context.Context, o *Orchestrator, input ExportInput) (*ExportOutput, error) {
	if err := o.requireSession(); err != nil {
		return nil, err
	}

	token, err := o.begin(KindExport)
	if err != nil {
		return nil, err
	}

	snap, err := o.snapshotFor(input.Target)
	if err != nil {
		o.end(KindExport, err)
		return nil, err
	}

	o.log.Debug("exporting recipe", zap.String("flight", token), zap.String("recipe_id", snap.recipe.Key()))
	doc, err := o.svc.ExportRecipe(api.WithRequestID(ctx, token), snap.recipe)
	if err != nil {
		err = o.handleError(KindExport, token, err)
		o.end(KindExport, err)
		return nil, err
	}

	out := &ExportOutput{
		Filename: snap.recipe.DocumentFilename(),
		Size:     len(doc),
		Document: doc,
	}

	if input.Save {
		path, err := saveDocument(o.cfg.ExportsDir, out.Filename, doc)
		if err != nil {
			o.end(KindExport, err)
			o.log.Warn("saving export failed", zap.String("flight", token), zap.Error(err))
			return nil, err
		}
		out.Path = path
	}

	o.end(KindExport, nil)
	o.log.Info("recipe exported",
		zap.String("flight", token),
		zap.String("filename", out.Filename),
		zap.Int("bytes", out.Size),
	)
	return out, nil
}

// saveDocument writes data to dir/filename via a temp file and rename, so an
// existing document is never left half-written.
func saveDocument(dir, filename string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", errors.NewInternal(fmt.Errorf("failed to create exports directory: %w", err))
	}

	path := filepath.Join(dir, filename)
	if err := ValidateDocumentPath(path, dir); err != nil {
		return "", err
	}

	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return "", errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := path + "." + hex.EncodeToString(randBytes) + ".tmp"
	file, err := openFileNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return "", errors.NewInternal(fmt.Errorf("failed to create export file: %w", err))
	}

	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	if _, err := file.Write(data); err != nil {
		return "", errors.NewInternal(err)
	}
	if err := file.Sync(); err != nil {
		return "", errors.NewInternal(err)
	}
	// Close before rename (required on Windows)
	if err := file.Close(); err != nil {
		return "", errors.NewInternal(fmt.Errorf("failed to close export file: %w", err))
	}
	file = nil

	// os.Rename would follow a symlink at the destination
	if info, err := os.Lstat(path); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return "", errors.NewValidation("export path is a symlink")
	}

	if err := os.Rename(tempPath, path); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(path); statErr == nil {
				return "", errors.NewValidation("export destination already exists; delete it and export again")
			}
		}
		return "", errors.NewInternal(fmt.Errorf("failed to finalize export: %w", err))
	}

	success = true
	return path, nil
}
