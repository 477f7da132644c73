// Package media ingests uploaded binaries: it classifies them by declared
// MIME kind, re-encodes images to the display profile, hands video/audio to
// the external transcoder, and produces a durable, publicly addressable
// reference. Temporary files are removed on every exit path.
package media

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/image/draw"

	"pollchat/internal/core"
	"pollchat/internal/filter"
	"pollchat/internal/markup"
	"pollchat/internal/store"
)

// Pipeline failures. ErrPolicyViolation for rejected captions is shared with
// the core taxonomy.
var (
	ErrUnsupportedMedia = errors.New("unsupported media kind")
	ErrTranscodeFailed  = errors.New("media transcode failed")
)

// Kinds assigned by classification.
const (
	KindImage = "image"
	KindVideo = "video"
	KindAudio = "audio"
)

// Upload is one raw client upload.
type Upload struct {
	Reader       io.Reader
	Filename     string
	DeclaredType string
}

// Reference points at a durable transcoded artifact.
type Reference struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	URL       string `json:"url"`
	Fragment  string `json:"fragment"`
	SizeBytes int64  `json:"size_bytes"`
}

// Pipeline owns the content directory and the ingest flow.
type Pipeline struct {
	contentDir       string
	imageWidth       int
	jpegQuality      int
	transcodeTimeout time.Duration

	meta       *store.Store
	filter     *filter.Filter
	transcoder Transcoder
}

// Config carries pipeline tuning. Zero values fall back to the original
// profile: 400px-wide JPEGs at quality 70, two-minute transcode budget.
type Config struct {
	ContentDir       string
	ImageWidth       int
	JPEGQuality      int
	TranscodeTimeout time.Duration
}

// NewPipeline creates the content directory and wires the pipeline.
func NewPipeline(cfg Config, meta *store.Store, f *filter.Filter, tc Transcoder) (*Pipeline, error) {
	dir := strings.TrimSpace(cfg.ContentDir)
	if dir == "" {
		return nil, fmt.Errorf("content directory is required")
	}
	if meta == nil {
		return nil, fmt.Errorf("media metadata store is required")
	}
	if tc == nil {
		tc = FFmpeg{}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create content directory: %w", err)
	}

	p := &Pipeline{
		contentDir:       dir,
		imageWidth:       cfg.ImageWidth,
		jpegQuality:      cfg.JPEGQuality,
		transcodeTimeout: cfg.TranscodeTimeout,
		meta:             meta,
		filter:           f,
		transcoder:       tc,
	}
	if p.imageWidth <= 0 {
		p.imageWidth = 400
	}
	if p.jpegQuality <= 0 {
		p.jpegQuality = 70
	}
	if p.transcodeTimeout <= 0 {
		p.transcodeTimeout = 2 * time.Minute
	}
	slog.Debug("media pipeline initialized", "dir", dir, "image_width", p.imageWidth)
	return p, nil
}

// Ingest runs one upload through the pipeline and returns a durable
// reference. It must be called without holding any room lock; the caller
// appends the resulting fragment through the gate afterwards.
func (p *Pipeline) Ingest(ctx context.Context, up Upload) (Reference, error) {
	if up.Reader == nil {
		return Reference{}, core.ErrBadRequest
	}
	kind, outExt := classify(up.DeclaredType)

	// Spool to a temp file first; the defer guarantees the temporary input
	// is removed on every exit path.
	tempFile, err := os.CreateTemp(p.contentDir, ".upload-*")
	if err != nil {
		return Reference{}, fmt.Errorf("create temp upload file: %w", err)
	}
	tempPath := tempFile.Name()
	defer func() { _ = os.Remove(tempPath) }()

	_, copyErr := io.Copy(tempFile, up.Reader)
	closeErr := tempFile.Close()
	if copyErr != nil {
		return Reference{}, fmt.Errorf("spool upload: %w", copyErr)
	}
	if closeErr != nil {
		return Reference{}, fmt.Errorf("close temp upload file: %w", closeErr)
	}

	if kind == "" {
		slog.Info("upload rejected", "declared_type", up.DeclaredType, "name", up.Filename)
		return Reference{}, fmt.Errorf("%w: %s", ErrUnsupportedMedia, up.DeclaredType)
	}

	id := uuid.NewString()
	diskName := fmt.Sprintf("%d-%s%s", time.Now().UnixMilli(), id, outExt)
	finalPath := filepath.Join(p.contentDir, diskName)

	switch kind {
	case KindImage:
		err = p.processImage(tempPath, finalPath)
	default:
		err = p.transcode(ctx, tempPath, finalPath)
	}
	if err != nil {
		_ = os.Remove(finalPath)
		return Reference{}, err
	}

	info, err := os.Stat(finalPath)
	if err != nil {
		_ = os.Remove(finalPath)
		return Reference{}, fmt.Errorf("stat durable media: %w", err)
	}

	meta := store.MediaMetadata{
		ID:           id,
		Kind:         kind,
		OriginalName: up.Filename,
		ContentType:  contentTypeFor(outExt),
		DiskName:     diskName,
		SizeBytes:    info.Size(),
		CreatedAt:    time.Now().UTC(),
	}
	if err := p.meta.CreateMedia(ctx, meta); err != nil {
		_ = os.Remove(finalPath)
		return Reference{}, fmt.Errorf("persist media metadata: %w", err)
	}

	// Captions embed attacker-chosen text (the original filename), so the
	// produced fragment is filtered too, not just the raw input. A rejected
	// caption must not leave an orphaned durable artifact behind.
	url := "/uploads/" + diskName
	fragment := markup.MediaFragment(kind, url, up.Filename)
	if p.filter != nil && p.filter.Violates(fragment) {
		_ = p.meta.DeleteMedia(ctx, id)
		_ = os.Remove(finalPath)
		slog.Info("media caption blocked", "media_id", id, "name", up.Filename)
		return Reference{}, core.ErrPolicyViolation
	}

	slog.Info("media ingested", "media_id", id, "kind", kind, "name", up.Filename, "size", info.Size())
	return Reference{
		ID:        id,
		Kind:      kind,
		URL:       url,
		Fragment:  fragment,
		SizeBytes: info.Size(),
	}, nil
}

// processImage decodes the spooled upload, scales it down to the display
// width preserving aspect ratio, and re-encodes it as JPEG into finalPath.
func (p *Pipeline) processImage(tempPath, finalPath string) error {
	in, err := os.Open(tempPath)
	if err != nil {
		return fmt.Errorf("open spooled image: %w", err)
	}
	src, format, err := image.Decode(in)
	_ = in.Close()
	if err != nil {
		return fmt.Errorf("%w: decode image: %v", ErrUnsupportedMedia, err)
	}

	bounds := src.Bounds()
	if bounds.Dx() > p.imageWidth {
		height := bounds.Dy() * p.imageWidth / bounds.Dx()
		if height < 1 {
			height = 1
		}
		dst := image.NewRGBA(image.Rect(0, 0, p.imageWidth, height))
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
		src = dst
	}

	out, err := os.Create(finalPath)
	if err != nil {
		return fmt.Errorf("create durable image: %w", err)
	}
	encErr := jpeg.Encode(out, src, &jpeg.Options{Quality: p.jpegQuality})
	closeErr := out.Close()
	if encErr != nil {
		return fmt.Errorf("encode image: %w", encErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close durable image: %w", closeErr)
	}
	slog.Debug("image re-encoded", "format", format, "out", filepath.Base(finalPath))
	return nil
}

// transcode runs the external transcoder with a bounded execution budget.
// Failures and timeouts surface as ErrTranscodeFailed; partial outputs are
// removed by the caller.
func (p *Pipeline) transcode(ctx context.Context, tempPath, finalPath string) error {
	ctx, cancel := context.WithTimeout(ctx, p.transcodeTimeout)
	defer cancel()

	if err := p.transcoder.Transcode(ctx, tempPath, finalPath); err != nil {
		slog.Error("transcode failed", "out", filepath.Base(finalPath), "err", err)
		return fmt.Errorf("%w: %v", ErrTranscodeFailed, err)
	}
	return nil
}

// classify maps the declared MIME kind to a pipeline kind and the durable
// output extension. An empty kind means unsupported.
func classify(declared string) (kind, outExt string) {
	declared = strings.ToLower(strings.TrimSpace(declared))
	switch {
	case strings.HasPrefix(declared, "image/"):
		return KindImage, ".jpg"
	case strings.HasPrefix(declared, "video/"):
		return KindVideo, ".mp4"
	case strings.HasPrefix(declared, "audio/"):
		return KindAudio, ".m4a"
	default:
		return "", ""
	}
}

func contentTypeFor(ext string) string {
	switch ext {
	case ".jpg":
		return "image/jpeg"
	case ".mp4":
		return "video/mp4"
	case ".m4a":
		return "audio/mp4"
	default:
		return "application/octet-stream"
	}
}
