//nolint:lll
package config

// Config represents the complete configuration of ocreval. It is loaded from
// configuration files, environment variables and command-line flags.
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	// The run under evaluation
	Evaluation EvaluationConfig `mapstructure:"evaluation" yaml:"evaluation" json:"evaluation"`

	Normalize NormalizeConfig `mapstructure:"normalize" yaml:"normalize" json:"normalize"`
	Align     AlignConfig     `mapstructure:"align" yaml:"align" json:"align"`
	Score     ScoreConfig     `mapstructure:"score" yaml:"score" json:"score"`
	Engines   EnginesConfig   `mapstructure:"engines" yaml:"engines" json:"engines"`
	Overlay   OverlayConfig   `mapstructure:"overlay" yaml:"overlay" json:"overlay"`
	Output    OutputConfig    `mapstructure:"output" yaml:"output" json:"output"`
	Batch     BatchConfig     `mapstructure:"batch" yaml:"batch" json:"batch"`
}

// RunSpec names an engine, colorspace and resolution.
type RunSpec struct {
	Engine     string `mapstructure:"engine" yaml:"engine" json:"engine"`
	Colorspace string `mapstructure:"colorspace" yaml:"colorspace" json:"colorspace"`
	DPI        int    `mapstructure:"dpi" yaml:"dpi" json:"dpi"`
}

// EvaluationConfig selects the primary run and the comparison mode.
type EvaluationConfig struct {
	Engine     string `mapstructure:"engine" yaml:"engine" json:"engine"`
	Colorspace string `mapstructure:"colorspace" yaml:"colorspace" json:"colorspace"`
	DPI        int    `mapstructure:"dpi" yaml:"dpi" json:"dpi"`
	Mode       string `mapstructure:"mode" yaml:"mode" json:"mode"`
	// Baseline is an optional lossless run used to attribute normalization
	// loss; an empty engine disables it.
	Baseline RunSpec `mapstructure:"baseline" yaml:"baseline" json:"baseline"`
}

// NormalizeConfig contains document normalization settings.
type NormalizeConfig struct {
	SourceDPI int    `mapstructure:"source_dpi" yaml:"source_dpi" json:"source_dpi"`
	MaxPixels int    `mapstructure:"max_pixels" yaml:"max_pixels" json:"max_pixels"`
	Pages     string `mapstructure:"pages" yaml:"pages" json:"pages"`
	// PageImageStrategy selects how PDF pages become rasters: auto, render or embedded.
	PageImageStrategy string `mapstructure:"page_image_strategy" yaml:"page_image_strategy" json:"page_image_strategy"`
}

// AlignConfig contains text comparison settings.
type AlignConfig struct {
	Mode               string `mapstructure:"mode" yaml:"mode" json:"mode"`
	CaseFold           bool   `mapstructure:"case_fold" yaml:"case_fold" json:"case_fold"`
	StripPunctuation   bool   `mapstructure:"strip_punctuation" yaml:"strip_punctuation" json:"strip_punctuation"`
	RejoinHyphenation  bool   `mapstructure:"rejoin_hyphenation" yaml:"rejoin_hyphenation" json:"rejoin_hyphenation"`
	ReplaceTypographic bool   `mapstructure:"replace_typographic" yaml:"replace_typographic" json:"replace_typographic"`
}

// ScoreConfig contains scoring settings.
type ScoreConfig struct {
	ExcludeLabels       []string `mapstructure:"exclude_labels" yaml:"exclude_labels" json:"exclude_labels"`
	IncludeUnclassified bool     `mapstructure:"include_unclassified" yaml:"include_unclassified" json:"include_unclassified"`
	RegionMatchIoU      float64  `mapstructure:"region_match_iou" yaml:"region_match_iou" json:"region_match_iou"`
}

// EnginesConfig contains per-engine settings.
type EnginesConfig struct {
	Native     NativeConfig     `mapstructure:"native" yaml:"native" json:"native"`
	Tesseract  TesseractConfig  `mapstructure:"tesseract" yaml:"tesseract" json:"tesseract"`
	HOCR       HOCRConfig       `mapstructure:"hocr" yaml:"hocr" json:"hocr"`
	Sidecar    SidecarConfig    `mapstructure:"sidecar" yaml:"sidecar" json:"sidecar"`
	DocumentAI DocumentAIConfig `mapstructure:"documentai" yaml:"documentai" json:"documentai"`
}

// NativeConfig tunes grouping of PDF text-layer glyphs.
type NativeConfig struct {
	RowTolerance float64 `mapstructure:"row_tolerance" yaml:"row_tolerance" json:"row_tolerance"`
	GapFactor    float64 `mapstructure:"gap_factor" yaml:"gap_factor" json:"gap_factor"`
}

// TesseractConfig contains tesseract settings.
type TesseractConfig struct {
	Languages []string          `mapstructure:"languages" yaml:"languages" json:"languages"`
	PSM       int               `mapstructure:"psm" yaml:"psm" json:"psm"`
	Variables map[string]string `mapstructure:"variables" yaml:"variables" json:"variables"`
	Level     string            `mapstructure:"level" yaml:"level" json:"level"`
}

// HOCRConfig contains hOCR sidecar settings.
type HOCRConfig struct {
	Dir   string `mapstructure:"dir" yaml:"dir" json:"dir"`
	Level string `mapstructure:"level" yaml:"level" json:"level"`
}

// SidecarConfig contains JSON region sidecar settings.
type SidecarConfig struct {
	Dir    string `mapstructure:"dir" yaml:"dir" json:"dir"`
	Suffix string `mapstructure:"suffix" yaml:"suffix" json:"suffix"`
}

// DocumentAIConfig contains Google Document AI settings.
type DocumentAIConfig struct {
	ProjectID       string `mapstructure:"project_id" yaml:"project_id" json:"project_id"`
	Location        string `mapstructure:"location" yaml:"location" json:"location"`
	ProcessorID     string `mapstructure:"processor_id" yaml:"processor_id" json:"processor_id"`
	CredentialsFile string `mapstructure:"credentials_file" yaml:"credentials_file" json:"credentials_file"`
	CacheDir        string `mapstructure:"cache_dir" yaml:"cache_dir" json:"cache_dir"`
}

// OverlayConfig contains overlay rendering settings.
type OverlayConfig struct {
	Scale          float64 `mapstructure:"scale" yaml:"scale" json:"scale"`
	Thickness      int     `mapstructure:"thickness" yaml:"thickness" json:"thickness"`
	Dash           int     `mapstructure:"dash" yaml:"dash" json:"dash"`
	MatchThreshold float64 `mapstructure:"match_threshold" yaml:"match_threshold" json:"match_threshold"`
	Legend         bool    `mapstructure:"legend" yaml:"legend" json:"legend"`
}

// OutputConfig contains report and artifact settings.
type OutputConfig struct {
	Format      string `mapstructure:"format" yaml:"format" json:"format"`
	File        string `mapstructure:"file" yaml:"file" json:"file"`
	OverlayDir  string `mapstructure:"overlay_dir" yaml:"overlay_dir" json:"overlay_dir"`
	OverlayPDF  bool   `mapstructure:"overlay_pdf" yaml:"overlay_pdf" json:"overlay_pdf"`
	MetricsFile string `mapstructure:"metrics_file" yaml:"metrics_file" json:"metrics_file"`
}

// BatchConfig contains document discovery and concurrency settings.
type BatchConfig struct {
	Workers         int      `mapstructure:"workers" yaml:"workers" json:"workers"`
	Recursive       bool     `mapstructure:"recursive" yaml:"recursive" json:"recursive"`
	Include         []string `mapstructure:"include" yaml:"include" json:"include"`
	Exclude         []string `mapstructure:"exclude" yaml:"exclude" json:"exclude"`
	GroundTruthDir  string   `mapstructure:"ground_truth_dir" yaml:"ground_truth_dir" json:"ground_truth_dir"`
	ContinueOnError bool     `mapstructure:"continue_on_error" yaml:"continue_on_error" json:"continue_on_error"`
}
