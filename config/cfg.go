package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	TemplateFieldName string

	CredentialsConfig struct {
		NotionToken  SecretString `yaml:"notion_token"`
		NotionAPIURL string       `yaml:"notion_api_url" validate:"required,url"`
		QuipToken    SecretString `yaml:"quip_token"`
		QuipBaseURL  string       `yaml:"quip_base_url" validate:"required,url"`
	}

	RouteConfig struct {
		Name           string `yaml:"name" validate:"required"`
		Description    string `yaml:"description,omitempty"`
		Source         string `yaml:"source" sanitize:"path_clean" validate:"required"`
		NotionDatabase string `yaml:"notion_database,omitempty"`
		QuipFolder     string `yaml:"quip_folder,omitempty"`
		Enabled        bool   `yaml:"enabled"`
	}

	MediaConfig struct {
		// directories searched when a wikilink does not resolve next to the document
		SearchFolders []string `yaml:"search_folders" validate:"dive,required"`
		// raster images wider than this are downscaled before upload, 0 disables
		MaxImageWidth int `yaml:"max_image_width" validate:"gte=0"`
		JPEGQuality   int `yaml:"jpeg_quality_level" validate:"min=40,max=100"`
	}

	DocumentConfig struct {
		OutputNameTemplate    string      `yaml:"output_name_template"`
		FileNameTransliterate bool        `yaml:"file_name_transliterate"`
		MediaDirSuffix        string      `yaml:"media_dir_suffix" validate:"required"`
		Media                 MediaConfig `yaml:"media"`
	}

	SyncConfig struct {
		StatePath string `yaml:"state_path" sanitize:"path_clean,assure_dir_exists_for_file" validate:"required,filepath"`
	}

	Config struct {
		Version     int               `yaml:"version" validate:"eq=1"`
		Credentials CredentialsConfig `yaml:"credentials"`
		Routes      []RouteConfig     `yaml:"routes" validate:"dive"`
		Document    DocumentConfig    `yaml:"document"`
		Sync        SyncConfig        `yaml:"sync"`
		Logging     LoggingConfig     `yaml:"logging"`
		Reporting   ReporterConfig    `yaml:"reporting"`
	}
)

const (
	// NOTE: must match yaml field name above, alternative is to use struct
	// field name and reflection which I want to avoid for now
	OutputNameTemplateFieldName TemplateFieldName = "output_name_template"
)

var requiredOptions = append([]func(*gencfg.ProcessingOptions){},
	gencfg.WithDoNotExpandField(string(OutputNameTemplateFieldName)),
)

// Route returns the route with the given name or nil when it is not configured.
func (cfg *Config) Route(name string) *RouteConfig {
	for i := range cfg.Routes {
		if cfg.Routes[i].Name == name {
			return &cfg.Routes[i]
		}
	}
	return nil
}

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// We want to use only fields we defined so we cannot use yaml.Unmarshal
	// directly here
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		// sanitize and validate what has been loaded
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, fmt.Errorf("configuration sanitization failed: %w", err)
		}
		if err := gencfg.Validate(cfg); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of expanded configuration template to provide
// sane defaults and performs validation.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, append(requiredOptions, options...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	cfg, err := unmarshalConfig(data, &Config{}, !haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	if !haveFile {
		return cfg, nil
	}

	// overwrite cfg values with values from the file
	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err = unmarshalConfig(data, cfg, haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	return cfg, nil
}

// Prepare generates configuration file from template and returns it as a byte
// slice.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl, requiredOptions...)
}

func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %v", err)
	}
	return data, nil
}
