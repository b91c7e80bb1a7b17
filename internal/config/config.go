// Package config loads the loto6.json5 configuration file.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"loto6-archive/internal/archive"
	"loto6-archive/internal/chrono"
	"loto6-archive/internal/loto6/mizuho"
	"loto6-archive/lib/configutil"
	configlibsql "loto6-archive/lib/configutil/libsql"
)

const FileName = "loto6.json5"

const (
	BackendFS     = "fs"
	BackendSqlite = "sqlite"
)

type Source struct {
	// Kind is "csv" or "html".
	Kind              string  `json:"kind"`
	IndexURL          string  `json:"index_url"`
	CSVBaseURL        string  `json:"csv_base_url"`
	PageURL           string  `json:"page_url"`
	UserAgent         string  `json:"user_agent"`
	TimeoutSeconds    int     `json:"timeout_seconds"`
	Retries           int     `json:"retries"`
	RequestsPerSecond float64 `json:"requests_per_second"`
	BrowserTransport  bool    `json:"browser_transport"`
}

type Archive struct {
	MaxSize int `json:"max_size"`
}

type Storage struct {
	// Backend is "fs" or "sqlite".
	Backend  string              `json:"backend"`
	Dir      string              `json:"dir"`
	Database configlibsql.Struct `json:"database"`
}

type Debug struct {
	// HttpDumpDir receives every http message when running verbose, it may
	// start with <dev_state>.
	HttpDumpDir string `json:"http_dump_dir"`
}

type Watch struct {
	Cron string `json:"cron"`
}

type Config struct {
	Source  Source  `json:"source"`
	Archive Archive `json:"archive"`
	Storage Storage `json:"storage"`
	Debug   Debug   `json:"debug"`
	Watch   Watch   `json:"watch"`
}

// Default is the configuration the files are decoded over, it supplies
// every field a file leaves out.
func Default() Config {
	return Config{
		Source: Source{
			Kind:              string(mizuho.SourceCSV),
			IndexURL:          mizuho.DefaultIndexURL,
			CSVBaseURL:        mizuho.DefaultCSVBaseURL,
			PageURL:           mizuho.DefaultPageURL,
			UserAgent:         mizuho.DefaultUserAgent,
			TimeoutSeconds:    30,
			Retries:           2,
			RequestsPerSecond: 2,
		},
		Archive: Archive{
			MaxSize: archive.DefaultMaxSize,
		},
		Storage: Storage{
			Backend: BackendFS,
			Dir:     "data",
			Database: configlibsql.Struct{
				File: "data/loto6.db",
			},
		},
		Watch: Watch{
			// drawings are on monday and thursday at 18:45 JST
			Cron: "30 19 * * 1,4",
		},
	}
}

// Load reads the configuration at path, or searches for loto6.json5 from
// the working directory upwards when path is empty. A missing file is only
// an error when path was given explicitly.
func Load(path string) (Config, error) {
	var (
		config Config
		err    error
	)
	if path == "" {
		config, err = configutil.ReadRecursivelyOnto(FileName, Default())
		if errors.Is(err, os.ErrNotExist) {
			err = nil
		}
	} else {
		config, err = configutil.ReadConfigOnto(path, Default())
		if errors.Is(err, os.ErrNotExist) {
			err = fmt.Errorf("config %s: %w", path, err)
		}
	}
	if err != nil {
		return Config{}, err
	}
	return config, nil
}

func (c Config) Validate() error {
	var errs []error
	if !mizuho.Source(c.Source.Kind).Valid() {
		errs = append(errs, fmt.Errorf("source.kind: must be csv or html, got %q", c.Source.Kind))
	}
	for name, raw := range map[string]string{
		"source.index_url":    c.Source.IndexURL,
		"source.csv_base_url": c.Source.CSVBaseURL,
		"source.page_url":     c.Source.PageURL,
	} {
		if _, err := url.ParseRequestURI(raw); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	if c.Source.TimeoutSeconds < 0 {
		errs = append(errs, fmt.Errorf("source.timeout_seconds: must not be negative"))
	}
	if c.Source.Retries < 0 {
		errs = append(errs, fmt.Errorf("source.retries: must not be negative"))
	}
	if c.Source.RequestsPerSecond < 0 {
		errs = append(errs, fmt.Errorf("source.requests_per_second: must not be negative"))
	}
	if c.Archive.MaxSize < 1 {
		errs = append(errs, fmt.Errorf("archive.max_size: must be at least 1, got %d", c.Archive.MaxSize))
	}

	switch c.Storage.Backend {
	case BackendFS:
		if c.Storage.Dir == "" {
			errs = append(errs, fmt.Errorf("storage.dir: required by the fs backend"))
		}
	case BackendSqlite:
		if c.Storage.Database.File == "" && c.Storage.Database.Url == "" {
			errs = append(errs, fmt.Errorf("storage.database: file or url is required by the sqlite backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.backend: must be fs or sqlite, got %q", c.Storage.Backend))
	}

	if err := chrono.ValidateSpec(c.Watch.Cron); err != nil {
		errs = append(errs, fmt.Errorf("watch.cron: %w", err))
	}
	return errors.Join(errs...)
}

// MizuhoOptions converts the source section to fetch client options.
func (c Config) MizuhoOptions() mizuho.Options {
	return mizuho.Options{
		IndexURL:          c.Source.IndexURL,
		CSVBaseURL:        c.Source.CSVBaseURL,
		PageURL:           c.Source.PageURL,
		UserAgent:         c.Source.UserAgent,
		Source:            mizuho.Source(c.Source.Kind),
		Timeout:           time.Duration(c.Source.TimeoutSeconds) * time.Second,
		Retries:           c.Source.Retries,
		RequestsPerSecond: c.Source.RequestsPerSecond,
		BrowserTransport:  c.Source.BrowserTransport,
	}
}
