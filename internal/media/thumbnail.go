package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
	"golang.org/x/sync/singleflight"

	"autogallery/internal/cache"
	"autogallery/internal/classify"
	"autogallery/internal/logging"
	"autogallery/internal/metrics"
)

// Outcome says what Generate did for a request that did not fail.
type Outcome int

const (
	// Written means a new artifact was encoded and stored.
	Written Outcome = iota
	// SkippedExists means an artifact was already at the destination.
	SkippedExists
	// SkippedIneligible means the source is not a format we thumbnail.
	SkippedIneligible
)

func (o Outcome) String() string {
	switch o {
	case Written:
		return "written"
	case SkippedExists:
		return "exists"
	case SkippedIneligible:
		return "ineligible"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Options configures a Generator.
type Options struct {
	MaxWidth  int // bounding box, default 178
	MaxHeight int // bounding box, default 100
	Quality   int // JPEG quality, default 85
	UseVips   bool
}

// DefaultOptions returns the 178x100 box used by the gallery templates.
func DefaultOptions() Options {
	return Options{MaxWidth: 178, MaxHeight: 100, Quality: 85}
}

// Generator produces thumbnail artifacts. It is safe for concurrent use;
// concurrent calls for the same destination share one generation.
type Generator struct {
	opts  Options
	group singleflight.Group
	log   logging.Logger
}

// NewGenerator returns a Generator. Zero fields in opts take defaults.
func NewGenerator(opts Options) *Generator {
	def := DefaultOptions()
	if opts.MaxWidth <= 0 {
		opts.MaxWidth = def.MaxWidth
	}
	if opts.MaxHeight <= 0 {
		opts.MaxHeight = def.MaxHeight
	}
	if opts.Quality <= 0 || opts.Quality > 100 {
		opts.Quality = def.Quality
	}
	return &Generator{opts: opts, log: logging.For("thumbnail")}
}

// Options returns the effective options.
func (g *Generator) Options() Options {
	return g.opts
}

// Generate writes a thumbnail of source to dest unless one is already
// there. An existing artifact is never overwritten. Failures to decode come
// back as *ThumbnailError, failures to store as *CacheWriteError; neither
// leaves a partial file at dest.
func (g *Generator) Generate(ctx context.Context, source, dest string) (Outcome, error) {
	if !classify.Thumbnailable(source) {
		metrics.ThumbnailGenerationsTotal.WithLabelValues("ineligible").Inc()
		return SkippedIneligible, nil
	}
	if artifactExists(dest) {
		metrics.ThumbnailGenerationsTotal.WithLabelValues("exists").Inc()
		return SkippedExists, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	v, err, _ := g.group.Do(dest, func() (interface{}, error) {
		return g.generate(source, dest)
	})
	if err != nil {
		return 0, err
	}
	return v.(Outcome), nil
}

func (g *Generator) generate(source, dest string) (Outcome, error) {
	// Another caller may have finished between the check and the flight.
	if artifactExists(dest) {
		metrics.ThumbnailGenerationsTotal.WithLabelValues("exists").Inc()
		return SkippedExists, nil
	}

	start := time.Now()
	data, err := g.render(source)
	if err != nil {
		metrics.ThumbnailGenerationsTotal.WithLabelValues("error_decode").Inc()
		return 0, err
	}

	writeStart := time.Now()
	if err := writeArtifact(dest, data); err != nil {
		metrics.ThumbnailGenerationsTotal.WithLabelValues("error_write").Inc()
		return 0, err
	}
	metrics.ThumbnailGenerationDuration.WithLabelValues("write").Observe(time.Since(writeStart).Seconds())
	metrics.ThumbnailGenerationDuration.WithLabelValues("total").Observe(time.Since(start).Seconds())
	metrics.ThumbnailGenerationsTotal.WithLabelValues("success").Inc()

	g.log.Debug("wrote %s for %s (%d bytes, %v)", filepath.Base(dest), source, len(data), time.Since(start).Round(time.Millisecond))
	return Written, nil
}

// render decodes, resizes, sharpens and encodes source. Decoders have been
// known to panic on hostile input, so panics become ThumbnailErrors too.
func (g *Generator) render(source string) (data []byte, err error) {
	op := "decode"
	defer func() {
		if r := recover(); r != nil {
			err = &ThumbnailError{Path: source, Op: op, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	phase := time.Now()
	img, err := g.decode(source)
	if err != nil {
		return nil, &ThumbnailError{Path: source, Op: op, Err: err}
	}
	metrics.ThumbnailGenerationDuration.WithLabelValues("decode").Observe(time.Since(phase).Seconds())

	op = "resize"
	phase = time.Now()
	b := img.Bounds()
	w, h := FitBox(b.Dx(), b.Dy(), g.opts.MaxWidth, g.opts.MaxHeight)
	if w == 0 || h == 0 {
		return nil, &ThumbnailError{Path: source, Op: op, Err: fmt.Errorf("image has zero size (%dx%d)", b.Dx(), b.Dy())}
	}
	var thumb image.Image = img
	if w != b.Dx() || h != b.Dy() {
		thumb = imaging.Resize(img, w, h, imaging.Lanczos)
	}
	thumb = sharpen(thumb)
	metrics.ThumbnailGenerationDuration.WithLabelValues("resize").Observe(time.Since(phase).Seconds())

	op = "encode"
	phase = time.Now()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: g.opts.Quality}); err != nil {
		return nil, &ThumbnailError{Path: source, Op: op, Err: err}
	}
	metrics.ThumbnailGenerationDuration.WithLabelValues("encode").Observe(time.Since(phase).Seconds())
	return buf.Bytes(), nil
}

func (g *Generator) decode(source string) (image.Image, error) {
	format := "unknown"
	if dims, f, err := GetImageDimensions(source); err == nil {
		format = f
		if dims.Width == 0 || dims.Height == 0 {
			return nil, fmt.Errorf("image has zero size (%dx%d)", dims.Width, dims.Height)
		}
	}

	if g.opts.UseVips && IsVipsAvailable() {
		img, err := LoadImageWithVips(source, g.opts.MaxWidth, g.opts.MaxHeight)
		if err == nil {
			metrics.ThumbnailDecodeByFormat.WithLabelValues(format, "vips").Inc()
			return img, nil
		}
		g.log.Debug("vips could not load %s, falling back: %v", source, err)
	}

	img, err := LoadImageConstrained(source, MaxImageDimension, MaxImagePixels)
	if err != nil {
		return nil, err
	}
	metrics.ThumbnailDecodeByFormat.WithLabelValues(format, "imaging").Inc()
	return img, nil
}

func artifactExists(dest string) bool {
	info, err := os.Stat(dest)
	return err == nil && info.Mode().IsRegular()
}

// writeArtifact creates dest's directory on demand and moves a fully
// written temp file into place, so readers only ever see complete JPEGs.
func writeArtifact(dest string, data []byte) error {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &CacheWriteError{Path: dest, Err: err}
	}

	tmp, err := os.CreateTemp(dir, cache.TempPrefix+"*")
	if err != nil {
		return &CacheWriteError{Path: dest, Err: err}
	}
	tmpName := tmp.Name()
	cleanup := func(cause error) error {
		tmp.Close()
		if rmErr := os.Remove(tmpName); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			logging.Warn("thumbnail: leaving temp file %s: %v", tmpName, rmErr)
		}
		return &CacheWriteError{Path: dest, Err: cause}
	}

	if _, err := tmp.Write(data); err != nil {
		return cleanup(err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		return cleanup(err)
	}
	if err := tmp.Close(); err != nil {
		return cleanup(err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		return cleanup(err)
	}
	return nil
}
