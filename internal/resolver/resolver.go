// Package resolver binds a document's image references to vault files.
package resolver

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"strings"

	"github.com/starford/quailpub/internal/imageref"
	"github.com/starford/quailpub/internal/mime"
	"github.com/starford/quailpub/internal/models"
)

// Host is the vault as seen from one document.
type Host interface {
	// LinkedFiles returns the files wiki embeds may refer to.
	LinkedFiles(ctx context.Context) ([]models.File, error)
	// ResolvePath resolves a path-style target relative to the document.
	ResolvePath(target string) (models.File, bool)
	// ReadBinary returns the content of f.
	ReadBinary(ctx context.Context, f models.File) ([]byte, error)
}

// Image is a reference bound to file content ready for upload.
type Image struct {
	Pathname string // reference target as written in the document
	Name     string // file base name
	Path     string // vault path of the file
	Data     []byte
	MimeType string
	// Aliases are other targets in the document that name the same file.
	Aliases []string
}

// Pathnames returns every target the image is referenced by.
func (img Image) Pathnames() []string {
	return append([]string{img.Pathname}, img.Aliases...)
}

func (img *Image) alias(target string) {
	if target == img.Pathname {
		return
	}
	for _, a := range img.Aliases {
		if a == target {
			return
		}
	}
	img.Aliases = append(img.Aliases, target)
}

// Result partitions the resolved images of a document.
type Result struct {
	Cover *Image
	Body  []Image
}

// Images returns the body images followed by the cover, the order in which
// they are uploaded.
func (r Result) Images() []Image {
	out := append([]Image(nil), r.Body...)
	if r.Cover != nil {
		out = append(out, *r.Cover)
	}
	return out
}

type resolver struct {
	host   Host
	logger *slog.Logger

	linked    []models.File
	linkedErr error
	loaded    bool
}

// Resolve binds refs and the cover image url to vault files.
//
// References that match no file, have an unsupported extension or cannot be
// read are logged and dropped. Body images keep scan order; several
// references to the same file yield one image carrying the other spellings
// as aliases, and the cover file never appears among the body images. The
// only error is a failure to list the linked files.
func Resolve(ctx context.Context, host Host, refs iter.Seq[imageref.Reference], coverURL string, logger *slog.Logger) (Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &resolver{host: host, logger: logger}

	var res Result
	coverPath := ""
	if cover := strings.TrimSpace(coverURL); cover != "" && !imageref.IsRemote(cover) {
		ref := imageref.Reference{Raw: cover, Target: imageref.Decode(cover), Kind: imageref.KindPath}
		f, ok, err := r.locate(ctx, ref)
		if err != nil {
			return Result{}, err
		}
		if ok {
			coverPath = f.Path
			if img, ok := r.load(ctx, cover, f); ok {
				res.Cover = &img
			}
		} else {
			logger.Debug("cover image not found", slog.String("target", cover))
		}
	}

	seen := map[string]int{}
	for ref := range refs {
		if ref.Remote {
			continue
		}
		f, ok, err := r.locate(ctx, ref)
		if err != nil {
			return Result{}, err
		}
		if !ok {
			logger.Debug("image not found", slog.String("target", ref.Target), slog.String("kind", ref.Kind.String()))
			continue
		}
		if f.Path == coverPath {
			if res.Cover != nil {
				res.Cover.alias(ref.Target)
			}
			continue
		}
		if i, ok := seen[f.Path]; ok {
			if i >= 0 {
				res.Body[i].alias(ref.Target)
			}
			continue
		}
		seen[f.Path] = -1
		if img, ok := r.load(ctx, ref.Target, f); ok {
			seen[f.Path] = len(res.Body)
			res.Body = append(res.Body, img)
		}
	}
	return res, nil
}

func (r *resolver) locate(ctx context.Context, ref imageref.Reference) (models.File, bool, error) {
	if ref.Kind == imageref.KindPath {
		f, ok := r.host.ResolvePath(ref.Target)
		return f, ok, nil
	}
	if !r.loaded {
		r.linked, r.linkedErr = r.host.LinkedFiles(ctx)
		r.loaded = true
	}
	if r.linkedErr != nil {
		return models.File{}, false, fmt.Errorf("resolver: list linked files: %w", r.linkedErr)
	}
	f, ok := matchLinked(r.linked, ref.Target)
	return f, ok, nil
}

// matchLinked finds the linked file a wiki target names: by exact path,
// base name or path suffix. The shortest matching path wins.
func matchLinked(files []models.File, target string) (models.File, bool) {
	target = strings.TrimPrefix(strings.ReplaceAll(target, `\`, "/"), "./")
	var (
		best  models.File
		found bool
	)
	for _, f := range files {
		if f.Path != target && f.Name != target && !strings.HasSuffix(f.Path, "/"+target) {
			continue
		}
		if !found || len(f.Path) < len(best.Path) || (len(f.Path) == len(best.Path) && f.Path < best.Path) {
			best, found = f, true
		}
	}
	return best, found
}

func (r *resolver) load(ctx context.Context, pathname string, f models.File) (Image, bool) {
	mimeType, ok := mime.FromExtension(f.Ext)
	if !ok {
		r.logger.Debug("unsupported image type", slog.String("path", f.Path))
		return Image{}, false
	}
	data, err := r.host.ReadBinary(ctx, f)
	if err != nil {
		r.logger.Warn("read image failed", slog.String("path", f.Path), slog.String("error", err.Error()))
		return Image{}, false
	}
	if !mime.Matches(data, mimeType) {
		r.logger.Warn("image content does not match extension",
			slog.String("path", f.Path),
			slog.String("declared", mimeType),
			slog.String("detected", mime.Sniff(data)),
		)
	}
	return Image{
		Pathname: pathname,
		Name:     f.Name,
		Path:     f.Path,
		Data:     data,
		MimeType: mimeType,
	}, true
}
