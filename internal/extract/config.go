package extract

// Config collects per-engine settings.
type Config struct {
	Native     NativeOptions
	Tesseract  TesseractOptions
	HOCR       HOCROptions
	Sidecar    SidecarOptions
	DocumentAI DocumentAIOptions
}

// DefaultConfig returns the built-in engine settings.
func DefaultConfig() Config {
	return Config{
		Native:    DefaultNativeOptions(),
		Tesseract: DefaultTesseractOptions(),
		HOCR:      HOCROptions{Level: LevelLine},
		Sidecar:   SidecarOptions{Suffix: "regions"},
		DocumentAI: DocumentAIOptions{
			Location: "us",
		},
	}
}

// NativeOptions tune grouping of PDF text-layer glyphs into line regions.
type NativeOptions struct {
	// RowTolerance is the baseline distance in points within which glyphs share a row.
	RowTolerance float64
	// GapFactor splits a row where the horizontal gap exceeds GapFactor times the font size.
	GapFactor float64
}

// DefaultNativeOptions returns the default native text grouping.
func DefaultNativeOptions() NativeOptions {
	return NativeOptions{RowTolerance: 3.0, GapFactor: 2.0}
}

// TesseractOptions configure the tesseract engine.
type TesseractOptions struct {
	Languages []string
	PSM       int
	Variables map[string]string
	// Level selects line or paragraph regions from tesseract's hOCR output.
	Level Level
}

// DefaultTesseractOptions returns English, automatic page segmentation, line regions.
func DefaultTesseractOptions() TesseractOptions {
	return TesseractOptions{Languages: []string{"eng"}, PSM: 3, Level: LevelLine}
}

// HOCROptions configure the hOCR sidecar engine.
type HOCROptions struct {
	// Dir holds <id>.hocr files; empty means next to the source document.
	Dir   string
	Level Level
}

// SidecarOptions configure the JSON region sidecar engine.
type SidecarOptions struct {
	// Dir holds <id>.<suffix>.json files; empty means next to the source document.
	Dir    string
	Suffix string
}

// DocumentAIOptions configure Google Document AI processing.
type DocumentAIOptions struct {
	ProjectID       string
	Location        string
	ProcessorID     string
	CredentialsFile string
	// CacheDir stores <id>.documentai.json responses for offline reruns.
	CacheDir string
}
