package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"

	"github.com/theimaginaryfoundation/note-sheets/migration/config"
	"github.com/theimaginaryfoundation/note-sheets/migration/fileutils"
)

func main() {
	cfg, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	if err := run(cfg, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()

	fs.SetOutput(os.Stderr)

	fs.StringVar(&cfg.OutPath, "out", "", "Write to this file instead of stdout")
	fs.BoolVar(&cfg.Defaults, "defaults", false, "Print the built-in configuration instead of the schema")
	fs.BoolVar(&cfg.Pretty, "pretty", cfg.Pretty, "Indent the JSON output")

	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage:\n  %s [flags]\n\nFlags:\n", filepath.Base(os.Args[0]))
		fs.PrintDefaults()
		fmt.Fprintln(fs.Output(), "\nExamples:")
		fmt.Fprintln(fs.Output(), "  go run ./cmd/config-schema -out note-sheets.schema.json")
		fmt.Fprintln(fs.Output(), "  go run ./cmd/config-schema -defaults")
	}

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func run(cfg Config, stdout io.Writer) error {
	var v any = Schema()
	if cfg.Defaults {
		v = config.DefaultConfig()
	}
	if cfg.OutPath != "" {
		return fileutils.WriteJSONFileAtomic(cfg.OutPath, v, cfg.Pretty)
	}
	enc := json.NewEncoder(stdout)
	if cfg.Pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

// Schema describes the YAML configuration file.
func Schema() *jsonschema.Schema {
	r := jsonschema.Reflector{
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	s := r.Reflect(&config.Config{})
	s.Title = "note-sheets configuration"
	return s
}
