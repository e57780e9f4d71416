package main

import (
	"errors"
	"path/filepath"

	"github.com/theimaginaryfoundation/note-sheets/migration"
)

type Config struct {
	InputDir    string
	OutputDir   string
	ItemsField  string
	Language    string
	Concurrency int
	Pretty      bool
	Overwrite   bool
}

func (c Config) Validate() error {
	if c.InputDir == "" {
		return errors.New("missing -in")
	}
	if c.OutputDir == "" {
		return errors.New("missing -out")
	}
	if c.Concurrency < 1 {
		return errors.New("concurrency must be >= 1")
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		InputDir:    "archives",
		OutputDir:   filepath.FromSlash("out/threads"),
		ItemsField:  migration.DefaultItemsField,
		Language:    migration.DefaultLanguage,
		Concurrency: 2,
	}
}
