package main

import (
	"errors"
	"fmt"
	"strings"
)

type Config struct {
	ConfigPath string
	Characters []string

	Source   string
	InputDir string

	S3Endpoint  string
	S3Bucket    string
	S3Prefix    string
	S3Region    string
	S3UseSSL    bool
	S3AccessKey string
	S3SecretKey string

	Sink      string
	OutputDir string
	Title     string
	Overwrite bool

	AccessToken     string
	CredentialsFile string

	Flat          bool
	IncludeTarget bool

	Concurrency int
	RateLimit   float64

	Summarize          bool
	Model              string
	APIKey             string
	SummaryConcurrency int
	Flex               bool

	MetricsFile string
	LogLevel    string
	LogFormat   string
}

func (c Config) Validate() error {
	if len(c.Characters) == 0 {
		return errors.New("missing -characters")
	}
	switch c.Source {
	case "dir":
		if c.InputDir == "" {
			return errors.New("missing -in (required for -source dir)")
		}
	case "drive":
	case "s3":
		if c.S3Endpoint == "" || c.S3Bucket == "" {
			return errors.New("-source s3 needs -s3-endpoint and -s3-bucket")
		}
	default:
		return fmt.Errorf("unknown -source %q (want dir, drive or s3)", c.Source)
	}
	switch c.Sink {
	case "csv":
		if c.OutputDir == "" {
			return errors.New("missing -out (required for -sink csv)")
		}
	case "sheets":
	default:
		return fmt.Errorf("unknown -sink %q (want csv or sheets)", c.Sink)
	}
	if c.Concurrency < 1 {
		return errors.New("concurrency must be >= 1")
	}
	if c.RateLimit < 0 {
		return errors.New("rps must be >= 0")
	}
	if c.Summarize {
		if c.Flat {
			return errors.New("-summarize needs threaded output (drop -flat)")
		}
		if c.Model == "" {
			return errors.New("missing -model")
		}
		if c.APIKey == "" {
			return errors.New("-summarize needs OPENAI_API_KEY")
		}
		if c.SummaryConcurrency < 1 {
			return errors.New("summary-concurrency must be >= 1")
		}
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		Source:             "dir",
		InputDir:           "archives",
		Sink:               "csv",
		OutputDir:          "out",
		Concurrency:        2,
		RateLimit:          5,
		Model:              "gpt-5-mini",
		SummaryConcurrency: 4,
	}
}

// splitList splits a comma separated flag value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
