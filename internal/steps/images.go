package steps

import (
	"bytes"
	"context"
	"fmt"
	"image/gif"
	"image/jpeg"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	mailbuild "github.com/alnah/go-mailbuild"
	"github.com/alnah/go-mailbuild/internal/config"
	"github.com/alnah/go-mailbuild/internal/fileutil"
)

// copyStep copies images matching the configured patterns to <imgDest>.
// Its only target is "images".
type copyStep struct {
	patterns []string
}

func (s *copyStep) Targets() []string { return []string{"images"} }

func (s *copyStep) Run(ctx context.Context, env *mailbuild.Env, _ string) error {
	dirs, err := paths(env, mailbuild.PathImages, mailbuild.PathImageDest)
	if err != nil {
		return err
	}
	src, dst := dirs[0], dirs[1]

	files, err := fileutil.Glob(src, s.patterns...)
	if err != nil {
		return err
	}
	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		native := filepath.FromSlash(rel)
		if err := fileutil.CopyFile(filepath.Join(src, native), filepath.Join(dst, native)); err != nil {
			return err
		}
	}
	env.Logger.Debug("copied images", slog.Int("count", len(files)))
	return nil
}

// imageminStep re-encodes images into <imgDest>, keeping whichever of the
// original and the re-encoded bytes is smaller.
type imageminStep struct {
	cfg config.ImagesConfig
}

func (s *imageminStep) Run(ctx context.Context, env *mailbuild.Env, _ string) error {
	dirs, err := paths(env, mailbuild.PathImages, mailbuild.PathImageDest)
	if err != nil {
		return err
	}
	src, dst := dirs[0], dirs[1]

	files, err := fileutil.Glob(src, s.cfg.Patterns...)
	if err != nil {
		return err
	}

	workers := s.cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	var saved atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, rel := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			native := filepath.FromSlash(rel)
			n, err := optimizeImage(filepath.Join(src, native), filepath.Join(dst, native), s.cfg.JPEGQuality)
			if err != nil {
				return fmt.Errorf("%s: %w", rel, err)
			}
			saved.Add(n)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	env.Logger.Info("optimized images", slog.Int("count", len(files)), slog.Int64("savedBytes", saved.Load()))
	return nil
}

// optimizeImage writes the smaller encoding of src to dst and returns the
// bytes saved. Formats it cannot re-encode are copied as they are.
func optimizeImage(src, dst string, quality int) (int64, error) {
	orig, err := os.ReadFile(src) // #nosec G304 -- listed from the images directory
	if err != nil {
		return 0, err
	}

	smaller, err := reencode(orig, strings.ToLower(filepath.Ext(src)), quality)
	if err != nil {
		return 0, err
	}
	out := orig
	if smaller != nil && len(smaller) < len(orig) {
		out = smaller
	}
	if err := fileutil.WriteFile(dst, out); err != nil {
		return 0, err
	}
	return int64(len(orig) - len(out)), nil
}

// reencode returns data re-encoded for ext, or nil for unknown formats.
// Progressive JPEG is never produced: the standard encoder writes baseline.
func reencode(data []byte, ext string, quality int) ([]byte, error) {
	var buf bytes.Buffer
	switch ext {
	case ".png":
		img, err := png.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decoding png: %w", err)
		}
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		if err := enc.Encode(&buf, img); err != nil {
			return nil, err
		}
	case ".jpg", ".jpeg":
		img, err := jpeg.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decoding jpeg: %w", err)
		}
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, err
		}
	case ".gif":
		anim, err := gif.DecodeAll(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decoding gif: %w", err)
		}
		if err := gif.EncodeAll(&buf, anim); err != nil {
			return nil, err
		}
	default:
		return nil, nil
	}
	return buf.Bytes(), nil
}
