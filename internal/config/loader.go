package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the base name for configuration files (without extension).
	ConfigFileName = "ocreval"

	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "OCREVAL"
)

// Loader handles loading configuration from various sources.
type Loader struct {
	v *viper.Viper
	// envFiles are loaded into the process environment before binding.
	envFiles []string
}

// NewLoader creates a loader on the global viper instance so that flags
// bound by the CLI take part in resolution.
func NewLoader() *Loader {
	return &Loader{v: viper.GetViper()}
}

// NewLoaderWithViper creates a loader on v.
func NewLoaderWithViper(v *viper.Viper) *Loader {
	return &Loader{v: v}
}

// WithEnvFiles sets the .env files read before environment binding. Missing
// files are ignored; variables already set in the environment win.
func (l *Loader) WithEnvFiles(files ...string) *Loader {
	l.envFiles = files
	return l
}

// Load loads configuration from the search paths, environment variables and defaults.
func (l *Loader) Load() (*Config, error) {
	return l.load("", true)
}

// LoadWithoutValidation is Load without the final validation.
func (l *Loader) LoadWithoutValidation() (*Config, error) {
	return l.load("", false)
}

// LoadWithFile loads configuration from a specific file path.
func (l *Loader) LoadWithFile(configFile string) (*Config, error) {
	return l.load(configFile, true)
}

// LoadWithFileWithoutValidation is LoadWithFile without the final validation.
func (l *Loader) LoadWithFileWithoutValidation(configFile string) (*Config, error) {
	return l.load(configFile, false)
}

func (l *Loader) load(configFile string, validate bool) (*Config, error) {
	if err := l.loadEnvFiles(); err != nil {
		return nil, err
	}

	if configFile != "" {
		if _, err := os.Stat(configFile); os.IsNotExist(err) {
			return nil, fmt.Errorf("config file does not exist: %s", configFile)
		}
		l.v.SetConfigFile(configFile)
	} else {
		l.v.SetConfigName(ConfigFileName)
		l.v.SetConfigType("yaml")
		l.addConfigPaths()
	}

	l.setupEnvironmentVariables()
	l.setDefaults()

	if err := l.v.ReadInConfig(); err != nil {
		// a missing file is fine when searching; defaults and env vars apply
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := l.v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if validate {
		if err := config.Validate(); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
	}

	return &config, nil
}

func (l *Loader) loadEnvFiles() error {
	for _, f := range l.envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("error loading env file %s: %w", f, err)
		}
	}
	return nil
}

// Get returns a value from the configuration.
func (l *Loader) Get(key string) any {
	return l.v.Get(key)
}

// Set sets a value in the configuration.
func (l *Loader) Set(key string, value any) {
	l.v.Set(key, value)
}

// GetConfigFileUsed returns the path of the config file used.
func (l *Loader) GetConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// GetViper returns the underlying viper instance.
func (l *Loader) GetViper() *viper.Viper {
	return l.v
}

// addConfigPaths adds the standard configuration search paths.
func (l *Loader) addConfigPaths() {
	for _, p := range GetConfigSearchPaths() {
		l.v.AddConfigPath(p)
	}
}

// setupEnvironmentVariables configures environment variable handling.
func (l *Loader) setupEnvironmentVariables() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.AutomaticEnv()
	// OCREVAL_EVALUATION_DPI maps to evaluation.dpi
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

// setDefaults sets default values for all configuration options. Every key
// needs a default for AutomaticEnv to see it during Unmarshal.
func (l *Loader) setDefaults() {
	d := DefaultConfig()

	l.v.SetDefault("log_level", d.LogLevel)
	l.v.SetDefault("verbose", d.Verbose)

	l.v.SetDefault("evaluation.engine", d.Evaluation.Engine)
	l.v.SetDefault("evaluation.colorspace", d.Evaluation.Colorspace)
	l.v.SetDefault("evaluation.dpi", d.Evaluation.DPI)
	l.v.SetDefault("evaluation.mode", d.Evaluation.Mode)
	l.v.SetDefault("evaluation.baseline.engine", d.Evaluation.Baseline.Engine)
	l.v.SetDefault("evaluation.baseline.colorspace", d.Evaluation.Baseline.Colorspace)
	l.v.SetDefault("evaluation.baseline.dpi", d.Evaluation.Baseline.DPI)

	l.v.SetDefault("normalize.source_dpi", d.Normalize.SourceDPI)
	l.v.SetDefault("normalize.max_pixels", d.Normalize.MaxPixels)
	l.v.SetDefault("normalize.pages", d.Normalize.Pages)
	l.v.SetDefault("normalize.page_image_strategy", d.Normalize.PageImageStrategy)

	l.v.SetDefault("align.mode", d.Align.Mode)
	l.v.SetDefault("align.case_fold", d.Align.CaseFold)
	l.v.SetDefault("align.strip_punctuation", d.Align.StripPunctuation)
	l.v.SetDefault("align.rejoin_hyphenation", d.Align.RejoinHyphenation)
	l.v.SetDefault("align.replace_typographic", d.Align.ReplaceTypographic)

	l.v.SetDefault("score.exclude_labels", d.Score.ExcludeLabels)
	l.v.SetDefault("score.include_unclassified", d.Score.IncludeUnclassified)
	l.v.SetDefault("score.region_match_iou", d.Score.RegionMatchIoU)

	l.v.SetDefault("engines.native.row_tolerance", d.Engines.Native.RowTolerance)
	l.v.SetDefault("engines.native.gap_factor", d.Engines.Native.GapFactor)
	l.v.SetDefault("engines.tesseract.languages", d.Engines.Tesseract.Languages)
	l.v.SetDefault("engines.tesseract.psm", d.Engines.Tesseract.PSM)
	l.v.SetDefault("engines.tesseract.level", d.Engines.Tesseract.Level)
	l.v.SetDefault("engines.hocr.dir", d.Engines.HOCR.Dir)
	l.v.SetDefault("engines.hocr.level", d.Engines.HOCR.Level)
	l.v.SetDefault("engines.sidecar.dir", d.Engines.Sidecar.Dir)
	l.v.SetDefault("engines.sidecar.suffix", d.Engines.Sidecar.Suffix)
	l.v.SetDefault("engines.documentai.project_id", d.Engines.DocumentAI.ProjectID)
	l.v.SetDefault("engines.documentai.location", d.Engines.DocumentAI.Location)
	l.v.SetDefault("engines.documentai.processor_id", d.Engines.DocumentAI.ProcessorID)
	l.v.SetDefault("engines.documentai.credentials_file", d.Engines.DocumentAI.CredentialsFile)
	l.v.SetDefault("engines.documentai.cache_dir", d.Engines.DocumentAI.CacheDir)

	l.v.SetDefault("overlay.scale", d.Overlay.Scale)
	l.v.SetDefault("overlay.thickness", d.Overlay.Thickness)
	l.v.SetDefault("overlay.dash", d.Overlay.Dash)
	l.v.SetDefault("overlay.match_threshold", d.Overlay.MatchThreshold)
	l.v.SetDefault("overlay.legend", d.Overlay.Legend)

	l.v.SetDefault("output.format", d.Output.Format)
	l.v.SetDefault("output.file", d.Output.File)
	l.v.SetDefault("output.overlay_dir", d.Output.OverlayDir)
	l.v.SetDefault("output.overlay_pdf", d.Output.OverlayPDF)
	l.v.SetDefault("output.metrics_file", d.Output.MetricsFile)

	l.v.SetDefault("batch.workers", d.Batch.Workers)
	l.v.SetDefault("batch.recursive", d.Batch.Recursive)
	l.v.SetDefault("batch.include", d.Batch.Include)
	l.v.SetDefault("batch.exclude", d.Batch.Exclude)
	l.v.SetDefault("batch.ground_truth_dir", d.Batch.GroundTruthDir)
	l.v.SetDefault("batch.continue_on_error", d.Batch.ContinueOnError)
}

// GetResolvedConfig returns the current resolved configuration for debugging.
func (l *Loader) GetResolvedConfig() map[string]any {
	return l.v.AllSettings()
}

// WriteConfigToFile writes the current configuration to a file.
func (l *Loader) WriteConfigToFile(filename string) error {
	return l.v.WriteConfigAs(filename)
}

// GenerateDefaultConfigFile writes the defaults to filename (ocreval.yaml when empty).
func GenerateDefaultConfigFile(filename string) error {
	loader := NewLoaderWithViper(viper.New())
	loader.setDefaults()

	if filename == "" {
		filename = ConfigFileName + ".yaml"
	}

	return loader.WriteConfigToFile(filename)
}

// GetConfigSearchPaths returns the paths where configuration files are searched.
func GetConfigSearchPaths() []string {
	paths := []string{"."}

	home, homeErr := os.UserHomeDir()
	if homeErr == nil {
		paths = append(paths, home)
	}

	if configDir, exists := os.LookupEnv("XDG_CONFIG_HOME"); exists {
		paths = append(paths, filepath.Join(configDir, "ocreval"))
	} else if homeErr == nil {
		paths = append(paths, filepath.Join(home, ".config", "ocreval"))
	}

	return append(paths, "/etc/ocreval")
}
