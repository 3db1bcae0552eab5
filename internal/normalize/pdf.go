package normalize

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/ocreval/internal/document"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// ErrNoPageImage marks a PDF page without an embedded raster that could not be rendered.
var ErrNoPageImage = errors.New("no extractable page image")

// pdfPages reads page geometry and, when rasterize is set, the page images.
func (n *Normalizer) pdfPages(ctx context.Context, path string, cfg document.RunConfig, rasterize bool) ([]Page, error) {
	dims, err := api.PageDimsFile(path)
	if err != nil {
		return nil, fmt.Errorf("read page dimensions: %w", err)
	}
	selected, err := selectPages(n.opts.Pages, len(dims))
	if err != nil {
		return nil, err
	}

	pages := make([]Page, 0, len(selected))
	for _, num := range selected {
		d := dims[num-1]
		pages = append(pages, Page{Index: num - 1, Width: d.Width, Height: d.Height})
	}
	if !rasterize {
		return pages, nil
	}

	var fits []int
	for i := range pages {
		p := &pages[i]
		if _, _, err := n.rasterSize(p.Width, p.Height, cfg.DPI); err != nil {
			p.Failure = err
			continue
		}
		fits = append(fits, p.Index+1)
	}

	rendered, err := n.renderPages(ctx, path, fits, cfg.DPI)
	if err != nil {
		return nil, err
	}
	var missing []int
	for _, num := range fits {
		if rendered[num] == nil {
			missing = append(missing, num)
		}
	}
	var embedded map[int][]image.Image
	if len(missing) > 0 {
		if embedded, err = extractImages(path, missing); err != nil {
			return nil, err
		}
	}

	for i := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := &pages[i]
		if p.Failed() {
			continue
		}
		img := rendered[p.Index+1]
		if img == nil {
			img = largestImage(embedded[p.Index+1])
		}
		if img == nil {
			p.Failure = ErrNoPageImage
			continue
		}
		p.Image, p.Failure = n.render(img, p.Width, p.Height, cfg)
	}
	return pages, nil
}

// renderPages renders the given 1-based pages at dpi according to the page
// image strategy. It returns nil when pages should come from embedded images.
func (n *Normalizer) renderPages(ctx context.Context, path string, pages []int, dpi int) (map[int]image.Image, error) {
	if n.opts.PageImages == PageImagesEmbedded || len(pages) == 0 {
		return nil, nil
	}
	rendered, err := renderPDF(ctx, path, pages, dpi)
	switch {
	case err == nil:
		return rendered, nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return nil, err
	case n.opts.PageImages == PageImagesRender:
		return nil, fmt.Errorf("render pages: %w", err)
	default:
		n.logger.Debug("page rendering unavailable, using embedded images", "path", path, "error", err)
		return nil, nil
	}
}

// extractImages extracts the embedded images of the given 1-based pages into
// a temporary directory and decodes them grouped by page number.
func extractImages(filename string, pages []int) (map[int][]image.Image, error) {
	tempDir, err := os.MkdirTemp("", "ocreval-extract-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(tempDir) }()

	pageStrings := make([]string, len(pages))
	for i, p := range pages {
		pageStrings[i] = strconv.Itoa(p)
	}
	if err := api.ExtractImagesFile(filename, tempDir, pageStrings, nil); err != nil {
		return nil, fmt.Errorf("failed to extract images from PDF: %w", err)
	}
	return collectExtractedImages(tempDir)
}

// collectExtractedImages groups decodable images in dir by page number.
func collectExtractedImages(dir string) (map[int][]image.Image, error) {
	result := make(map[int][]image.Image)
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		pageNum, err := parsePageFromFilename(info.Name())
		if err != nil {
			return nil
		}
		img, err := loadImageFile(path)
		if err != nil {
			return nil
		}
		result[pageNum] = append(result[pageNum], img)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// pdfcpu names extracted images <base>_<page>_<name>.<ext>, with the page
// number zero padded to the document's page digit count.
var extractedImageRe = regexp.MustCompile(`_(\d+)_([^_]+)\.[A-Za-z0-9]+$`)

// parsePageFromFilename extracts the page number from a pdfcpu image filename.
func parsePageFromFilename(filename string) (int, error) {
	m := extractedImageRe.FindStringSubmatch(filename)
	if m == nil {
		return 0, errors.New("not a page image file")
	}
	if m[2] == "thumb" {
		return 0, errors.New("page thumbnail")
	}
	return strconv.Atoi(m[1])
}

func largestImage(imgs []image.Image) image.Image {
	var best image.Image
	bestArea := 0
	for _, img := range imgs {
		b := img.Bounds()
		if a := b.Dx() * b.Dy(); a > bestArea {
			best, bestArea = img, a
		}
	}
	return best
}

// selectPages returns the 1-based page numbers chosen by pageRange, in order
// and without duplicates. An empty range selects every page.
func selectPages(pageRange string, total int) ([]int, error) {
	requested, err := parsePageRange(pageRange, total)
	if err != nil {
		return nil, fmt.Errorf("invalid page range %q: %w", pageRange, err)
	}
	if len(requested) == 0 {
		out := make([]int, total)
		for i := range out {
			out[i] = i + 1
		}
		return out, nil
	}
	seen := make(map[int]bool, len(requested))
	var out []int
	for _, p := range requested {
		if p < 1 || p > total {
			return nil, fmt.Errorf("page %d out of range 1-%d", p, total)
		}
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out, nil
}

// parsePageRange parses a page range string like "1-5" or "1,3,5". Pages
// above total are rejected before any range is expanded.
func parsePageRange(pageRange string, total int) ([]int, error) {
	if strings.TrimSpace(pageRange) == "" {
		return nil, nil
	}
	var pages []int
	for _, part := range strings.Split(pageRange, ",") {
		tokenPages, err := parseRangeToken(strings.TrimSpace(part), total)
		if err != nil {
			return nil, err
		}
		pages = append(pages, tokenPages...)
	}
	return pages, nil
}

// parseRangeToken parses either a single page token (e.g., "3") or a range token (e.g., "1-5").
func parseRangeToken(part string, total int) ([]int, error) {
	if strings.Contains(part, "-") {
		rangeParts := strings.Split(part, "-")
		if len(rangeParts) != 2 {
			return nil, fmt.Errorf("invalid range format: %s", part)
		}
		start, err := strconv.Atoi(strings.TrimSpace(rangeParts[0]))
		if err != nil {
			return nil, fmt.Errorf("invalid start page: %s", rangeParts[0])
		}
		end, err := strconv.Atoi(strings.TrimSpace(rangeParts[1]))
		if err != nil {
			return nil, fmt.Errorf("invalid end page: %s", rangeParts[1])
		}
		if start > end {
			return nil, fmt.Errorf("start page %d greater than end page %d", start, end)
		}
		if start < 1 || end > total {
			return nil, fmt.Errorf("page range %d-%d out of range 1-%d", start, end, total)
		}
		out := make([]int, 0, end-start+1)
		for i := start; i <= end; i++ {
			out = append(out, i)
		}
		return out, nil
	}
	page, err := strconv.Atoi(part)
	if err != nil {
		return nil, fmt.Errorf("invalid page number: %s", part)
	}
	return []int{page}, nil
}
