package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spf13/viper"
)

const (
	SourceCSV    = "csv"
	SourceSheets = "sheets"

	DateMonthFirst = "month-first"
	DateDayFirst   = "day-first"
)

// Columns maps each transaction field to its 0-based position in an input row.
type Columns struct {
	Date        int
	Description int
	Category    int
	Amount      int
	Flow        int
}

// Max returns the highest mapped index; shorter rows cannot be normalized.
func (c Columns) Max() int {
	return max(c.Date, c.Description, c.Category, c.Amount, c.Flow)
}

func (c Columns) indexes() map[string]int {
	return map[string]int{
		"date": c.Date, "description": c.Description, "category": c.Category,
		"amount": c.Amount, "flow": c.Flow,
	}
}

// Ingest holds everything the normalizer needs to read a spreadsheet export.
type Ingest struct {
	Columns   Columns
	HasHeader bool
	Delimiter rune
	DateOrder string
}

type Config struct {
	// HTTP Server
	Port           string
	CacheTTL       time.Duration
	RateLimitRPS   float64
	RateLimitBurst int

	// Storage
	StorageLocation string

	// Ingestion
	Ingest      Ingest
	SourceType  string
	CSVFilePath string

	// Google Sheets
	GoogleSpreadsheetID      string
	GoogleSheetRange         string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// AMQP, disabled when AMQPURL is empty
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Logging
	LogLevel  string
	LogFormat string
}

var defaults = map[string]any{
	"port":                        "8081",
	"cache_ttl":                   "",
	"rate_limit_rps":              10.0,
	"rate_limit_burst":            20,
	"storage_location":            "./data/finance.db",
	"column_mapping.date":         0,
	"column_mapping.description":  1,
	"column_mapping.category":     2,
	"column_mapping.amount":       3,
	"column_mapping.flow":         4,
	"has_header":                  true,
	"csv_delimiter":               ",",
	"date_order":                  DateMonthFirst,
	"source_type":                 SourceCSV,
	"csv_file_path":               "",
	"google_spreadsheet_id":       "",
	"google_sheet_range":          "A:E",
	"google_service_account_json": "",
	"google_service_account_file": "",
	"amqp_url":                    "",
	"amqp_exchange":               "fintrack",
	"amqp_queue":                  "fintrack_imports",
	"log_level":                   "info",
	"log_format":                  "text",
}

// Nested keys whose environment variable is not the upper-cased key.
var envAliases = map[string]string{
	"column_mapping.date":        "COLUMN_DATE",
	"column_mapping.description": "COLUMN_DESCRIPTION",
	"column_mapping.category":    "COLUMN_CATEGORY",
	"column_mapping.amount":      "COLUMN_AMOUNT",
	"column_mapping.flow":        "COLUMN_FLOW",
}

// Load builds the configuration from defaults, an optional config file
// (TOML, YAML or JSON, chosen by extension) and the environment, in that
// order of increasing precedence. It does not validate.
func Load(path string) (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.AutomaticEnv()
	for key, env := range envAliases {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	// Read leaves one by one so environment overrides of nested keys apply.
	cols := Columns{
		Date:        v.GetInt("column_mapping.date"),
		Description: v.GetInt("column_mapping.description"),
		Category:    v.GetInt("column_mapping.category"),
		Amount:      v.GetInt("column_mapping.amount"),
		Flow:        v.GetInt("column_mapping.flow"),
	}

	ttl, err := cacheTTL(v.GetString("cache_ttl"), v.GetString("amqp_url"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:           v.GetString("port"),
		CacheTTL:       ttl,
		RateLimitRPS:   v.GetFloat64("rate_limit_rps"),
		RateLimitBurst: v.GetInt("rate_limit_burst"),

		StorageLocation: v.GetString("storage_location"),

		Ingest: Ingest{
			Columns:   cols,
			HasHeader: v.GetBool("has_header"),
			Delimiter: parseDelimiter(v.GetString("csv_delimiter")),
			DateOrder: strings.ToLower(strings.TrimSpace(v.GetString("date_order"))),
		},
		SourceType:  strings.ToLower(strings.TrimSpace(v.GetString("source_type"))),
		CSVFilePath: v.GetString("csv_file_path"),

		GoogleSpreadsheetID:      v.GetString("google_spreadsheet_id"),
		GoogleSheetRange:         v.GetString("google_sheet_range"),
		GoogleServiceAccountJSON: v.GetString("google_service_account_json"),
		GoogleServiceAccountFile: v.GetString("google_service_account_file"),

		AMQPURL:      v.GetString("amqp_url"),
		AMQPExchange: v.GetString("amqp_exchange"),
		AMQPQueue:    v.GetString("amqp_queue"),

		LogLevel:  strings.ToLower(v.GetString("log_level")),
		LogFormat: strings.ToLower(v.GetString("log_format")),
	}
	return cfg, nil
}

// DefaultCacheTTL applies when CACHE_TTL is unset and import events can flush the cache.
const DefaultCacheTTL = 5 * time.Minute

// cacheTTL parses CACHE_TTL. Left unset, caching is on only when AMQP is
// configured; otherwise nothing would tell the dashboard about imports made
// by another process.
func cacheTTL(raw, amqpURL string) (time.Duration, error) {
	if strings.TrimSpace(raw) == "" {
		if amqpURL == "" {
			return 0, nil
		}
		return DefaultCacheTTL, nil
	}
	ttl, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid CACHE_TTL %q: %w", raw, err)
	}
	return ttl, nil
}

// parseDelimiter accepts a single character or the word "tab".
func parseDelimiter(s string) rune {
	switch strings.ToLower(s) {
	case "":
		return ','
	case "tab", `\t`:
		return '\t'
	}
	r, size := utf8.DecodeRuneInString(s)
	if size != len(s) {
		return utf8.RuneError
	}
	return r
}

// Validate validates the configuration and returns an error listing every problem.
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if strings.TrimSpace(c.StorageLocation) == "" {
		errs = append(errs, "storage location cannot be empty")
	}

	seen := map[int]string{}
	indexes := c.Ingest.Columns.indexes()
	for _, name := range []string{"date", "description", "category", "amount", "flow"} {
		idx := indexes[name]
		if idx < 0 {
			errs = append(errs, fmt.Sprintf("invalid %s column %d: must be >= 0", name, idx))
			continue
		}
		if other, dup := seen[idx]; dup {
			errs = append(errs, fmt.Sprintf("columns %s and %s both map to index %d", other, name, idx))
		}
		seen[idx] = name
	}

	switch c.Ingest.Delimiter {
	case utf8.RuneError, '"', '\r', '\n', 0:
		errs = append(errs, "invalid CSV delimiter: must be a single character other than quote or newline")
	}

	if c.Ingest.DateOrder != DateMonthFirst && c.Ingest.DateOrder != DateDayFirst {
		errs = append(errs, fmt.Sprintf("invalid date order '%s': must be %s or %s", c.Ingest.DateOrder, DateMonthFirst, DateDayFirst))
	}

	switch c.SourceType {
	case SourceCSV:
	case SourceSheets:
		if c.GoogleSpreadsheetID == "" {
			errs = append(errs, "Google Spreadsheet ID is required when using sheets source")
		}
	default:
		errs = append(errs, fmt.Sprintf("invalid source type '%s': must be one of %v", c.SourceType, []string{SourceCSV, SourceSheets}))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errs = append(errs, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.CacheTTL < 0 {
		errs = append(errs, fmt.Sprintf("invalid cache TTL %v: must not be negative", c.CacheTTL))
	}
	if c.RateLimitRPS <= 0 {
		errs = append(errs, fmt.Sprintf("invalid rate limit %v: must be positive", c.RateLimitRPS))
	}
	if c.RateLimitBurst < 1 {
		errs = append(errs, fmt.Sprintf("invalid rate limit burst %d: must be at least 1", c.RateLimitBurst))
	}

	if !slices.Contains([]string{"debug", "info", "warn", "error"}, c.LogLevel) {
		errs = append(errs, fmt.Sprintf("invalid log level '%s'", c.LogLevel))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Sprintf("invalid log format '%s': must be text or json", c.LogFormat))
	}

	if len(errs) > 0 {
		return errors.New("configuration validation failed:\n- " + strings.Join(errs, "\n- "))
	}
	return nil
}

// AMQPEnabled reports whether import events should be published.
func (c *Config) AMQPEnabled() bool {
	return c.AMQPURL != ""
}
