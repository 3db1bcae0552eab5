package cmd

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"path/filepath"

	"github.com/MeKo-Tech/ocreval/internal/document"
	"github.com/MeKo-Tech/ocreval/internal/extract"
	"github.com/MeKo-Tech/ocreval/internal/normalize"
	"github.com/MeKo-Tech/ocreval/internal/overlay"
	"github.com/spf13/cobra"
)

func newOverlayCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "overlay [document]",
		Short: "Draw labeled regions over the pages of a document",
		Long: `Render the regions an engine extracts, colored by label, over each page.

With --raw-engine the regions of an unlabeled run are drawn as well: a raw
region covered by a labeled region is marked matched, one without a labeled
counterpart is marked missing.

Examples:
  ocreval overlay report.pdf --engine native --out overlays/
  ocreval overlay scan.png --engine hocr --raw-engine tesseract --out overlays/ --pdf`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runOverlay(cmd, args[0])
		},
	}
	f := cmd.Flags()
	f.String("engine", "", "engine producing the labeled regions")
	f.String("raw-engine", "", "engine producing unlabeled regions to check against the labeled run")
	f.String("colorspace", "", "raster colorspace (gray, rgb)")
	f.Int("dpi", 0, "raster resolution")
	f.String("pages", "", "page range for PDF inputs, e.g. 1-3,5")
	f.String("out", "overlays", "output directory")
	f.Bool("pdf", false, "also write an overlay PDF")
	return cmd
}

func (a *app) runOverlay(cmd *cobra.Command, path string) error {
	cfg := *a.cfg
	f := cmd.Flags()
	if f.Changed("engine") {
		cfg.Evaluation.Engine, _ = f.GetString("engine")
	}
	if f.Changed("colorspace") {
		cfg.Evaluation.Colorspace, _ = f.GetString("colorspace")
	}
	if f.Changed("dpi") {
		cfg.Evaluation.DPI, _ = f.GetInt("dpi")
	}
	if f.Changed("pages") {
		cfg.Normalize.Pages, _ = f.GetString("pages")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := slog.Default()
	registry := extract.DefaultRegistry(cfg.ToExtractConfig(), logger)
	normalizer := normalize.New(cfg.ToNormalizeOptions(), logger)
	ctx := cmd.Context()

	primary := cfg.Primary()
	doc, background, err := overlayRun(cmd, registry, normalizer, primary, path, logger)
	if err != nil {
		return err
	}

	var raw *document.Document
	if rawEngine, _ := f.GetString("raw-engine"); rawEngine != "" {
		rawCfg := primary
		rawCfg.Engine = document.EngineID(rawEngine)
		if raw, _, err = overlayRun(cmd, registry, normalizer, rawCfg, path, logger); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	pages := overlay.RenderDocument(doc, raw, background, cfg.ToOverlayOptions())
	out, _ := f.GetString("out")
	paths, err := overlay.WritePNGs(filepath.Join(out, doc.ID), doc.ID, pages)
	if err != nil {
		return err
	}
	if writePDF, _ := f.GetBool("pdf"); writePDF {
		pdfPath := filepath.Join(out, doc.ID+".pdf")
		if err := overlay.WritePDF(pdfPath, pages); err != nil {
			return err
		}
		paths = append(paths, pdfPath)
	}
	for _, p := range paths {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), p)
	}
	return nil
}

// overlayRun normalizes and extracts path under cfg. The returned image
// source serves page rasters; text engines get a best-effort raster pass
// so the overlay has a background where the document provides one.
func overlayRun(cmd *cobra.Command, registry *extract.Registry, normalizer *normalize.Normalizer,
	cfg document.RunConfig, path string, logger *slog.Logger,
) (*document.Document, overlay.ImageSource, error) {
	ctx := cmd.Context()
	engine, err := registry.ValidateRunConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	needsRaster := engine.Capabilities().NeedsRaster
	norm, err := normalizer.Normalize(ctx, path, cfg, needsRaster)
	if err != nil {
		return nil, nil, err
	}
	doc, err := extract.Run(ctx, engine, norm, logger)
	if err != nil {
		return nil, nil, err
	}
	if len(doc.Pages) == 0 {
		return nil, nil, errors.New("document has no pages")
	}

	rasters := norm
	if !needsRaster {
		if r, err := normalizer.Normalize(ctx, path, cfg, true); err == nil {
			rasters = r
		} else {
			logger.Debug("no page rasters for overlay background", "document", doc.ID, "error", err)
		}
	}
	images := func(index int) image.Image {
		for _, p := range rasters.Pages {
			if p.Index == index {
				return p.Image
			}
		}
		return nil
	}
	return doc, images, nil
}
