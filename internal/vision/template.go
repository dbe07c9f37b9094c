package vision

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gocv.io/x/gocv"
)

// Template is an immutable reference image for one tracked target.
//
// It holds the full-resolution raster and, when pyramid matching is
// enabled, a pre-downscaled copy so the coarse tier never resizes on the
// hot path. All fields are fixed at load time; only the tracker's runtime
// state (last position) changes frame to frame.
type Template struct {
	name   string
	full   gocv.Mat
	small  gocv.Mat // empty when pyramid matching is disabled
	width  int
	height int
	smallW int
	smallH int
}

// TemplateOptions controls how template assets are decoded.
type TemplateOptions struct {
	// Grayscale decodes templates single-channel. Must match the frame
	// representation the coordinator produces.
	Grayscale bool

	// DownscaleFactor in (0,1) pre-computes a downscaled copy for the
	// pyramid coarse tier. A factor of 1 (or 0) disables it.
	DownscaleFactor float64
}

// LoadTemplate reads one reference image from disk.
// A missing or undecodable asset returns ErrTemplateUnreadable — template
// loading happens once at construction and failures are fatal to startup.
func LoadTemplate(name, path string, opts TemplateOptions) (*Template, error) {
	flags := gocv.IMReadColor
	if opts.Grayscale {
		flags = gocv.IMReadGrayScale
	}

	full := gocv.IMRead(path, flags)
	if full.Empty() {
		return nil, fmt.Errorf("%w: %q (%s)", ErrTemplateUnreadable, name, path)
	}

	t := &Template{
		name:   name,
		full:   full,
		small:  gocv.NewMat(),
		width:  full.Cols(),
		height: full.Rows(),
	}

	if opts.DownscaleFactor > 0 && opts.DownscaleFactor < 1 {
		t.smallW = max(1, int(float64(t.width)*opts.DownscaleFactor))
		t.smallH = max(1, int(float64(t.height)*opts.DownscaleFactor))
		// INTER_AREA for the template: loaded once, quality matters more
		// than speed here.
		gocv.Resize(full, &t.small, image.Pt(t.smallW, t.smallH), 0, 0, gocv.InterpolationArea)
	}

	return t, nil
}

// LoadTemplates reads a name → image-path asset table. Templates are
// loaded in name order so construction failures are deterministic.
// On error, any templates already loaded are closed.
func LoadTemplates(assets map[string]string, opts TemplateOptions) ([]*Template, error) {
	names := make([]string, 0, len(assets))
	for name := range assets {
		names = append(names, name)
	}
	sort.Strings(names)

	templates := make([]*Template, 0, len(names))
	for _, name := range names {
		t, err := LoadTemplate(name, assets[name], opts)
		if err != nil {
			for _, loaded := range templates {
				loaded.Close()
			}
			return nil, err
		}
		templates = append(templates, t)
	}
	return templates, nil
}

// LoadTemplateDir loads every image in a directory as a template. The
// template name is the file name without its extension. Returns
// ErrNoTemplates when the directory holds no recognised image files.
func LoadTemplateDir(dir string, opts TemplateOptions) ([]*Template, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading template dir: %w", err)
	}

	assets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		switch ext {
		case ".png", ".jpg", ".jpeg", ".bmp":
		default:
			continue
		}
		name := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		assets[name] = filepath.Join(dir, entry.Name())
	}

	if len(assets) == 0 {
		return nil, fmt.Errorf("%w: no image files in %q", ErrNoTemplates, dir)
	}
	return LoadTemplates(assets, opts)
}

// Name returns the template's identifier, used as the observation key.
func (t *Template) Name() string { return t.name }

// Width returns the full-resolution template width in pixels.
func (t *Template) Width() int { return t.width }

// Height returns the full-resolution template height in pixels.
func (t *Template) Height() int { return t.height }

// HasSmall reports whether a downscaled copy exists for pyramid matching.
func (t *Template) HasSmall() bool { return !t.small.Empty() }

// Close releases the underlying image buffers.
func (t *Template) Close() {
	if !t.full.Empty() {
		_ = t.full.Close()
	}
	_ = t.small.Close()
}
