// Package config holds the static deployment settings: the character roster, which
// addresses count as direct messages, which mentions are dropped, and output options.
package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/theimaginaryfoundation/note-sheets/migration"
)

// Character is one selectable archive owner.
type Character struct {
	// ID is the actor handle (trailing segment of the actor URL).
	ID string `mapstructure:"id" json:"id" jsonschema:"required"`

	// File is the archive file name (a path under the source root, an object key, or a
	// key into DriveFiles).
	File string `mapstructure:"file" json:"file" jsonschema:"required"`

	// Enabled characters can be selected for a run.
	Enabled bool `mapstructure:"enabled" json:"enabled"`
}

// LoggingConfig mirrors logging.Config for the file/env layer.
type LoggingConfig struct {
	Level  string `mapstructure:"level" json:"level,omitempty" jsonschema:"enum=trace,enum=debug,enum=info,enum=warn,enum=error"`
	Format string `mapstructure:"format" json:"format,omitempty" jsonschema:"enum=console,enum=json"`
}

// Config is the full static configuration.
type Config struct {
	// Characters maps display name to character. A config file entry replaces the
	// built-in entry of the same name; other built-in entries stay.
	Characters map[string]Character `mapstructure:"characters" json:"characters"`

	DMTargets        []string `mapstructure:"dm_targets" json:"dm_targets"`
	ExcludedMentions []string `mapstructure:"excluded_mentions" json:"excluded_mentions"`

	// ZoneOffsetHours is the fixed output time zone.
	ZoneOffsetHours int `mapstructure:"zone_offset_hours" json:"zone_offset_hours" jsonschema:"minimum=-12,maximum=14"`

	Language   string `mapstructure:"language" json:"language"`
	ItemsField string `mapstructure:"items_field" json:"items_field"`

	// DriveFiles maps archive file names to Google Drive file ids.
	DriveFiles map[string]string `mapstructure:"drive_files" json:"drive_files,omitempty"`

	// MaxSelected limits how many characters one run may select (0 = unlimited).
	MaxSelected int `mapstructure:"max_selected" json:"max_selected" jsonschema:"minimum=0"`

	SheetTitle string `mapstructure:"sheet_title" json:"sheet_title"`

	Logging LoggingConfig `mapstructure:"logging" json:"logging"`
}

const instance = "https://paradise-is-not-lost.whippy.kr/users/"

// DefaultConfig returns the built-in configuration of the original deployment.
func DefaultConfig() *Config {
	return &Config{
		Characters: map[string]Character{
			"아서":    {ID: "Arthur_s", File: "arthur.json", Enabled: true},
			"샬럿":    {ID: "zZzzZzz", File: "charlotte.json", Enabled: true},
			"니나":    {ID: "NINA", File: "nina.json"},
			"위스테라이": {ID: "Nightmare", File: "wiz.json"},
			"딜런":    {ID: "DylanRossini", File: "dylan.json"},
			"리키":    {ID: "RICKYBANG", File: "ricky.json"},
			"윈터":    {ID: "Winter", File: "winter.json"},
			"제이어드":  {ID: "DD_Jayard", File: "j.json", Enabled: true},
			"루":     {ID: "LuBu3", File: "lu.json", Enabled: true},
			"엘가":    {ID: "Elgar", File: "elgar.json", Enabled: true},
			"할로우":   {ID: "H0110W", File: "hollow.json"},
			"도로테아":  {ID: "Dorothy_Witch", File: "dorothy.json"},
			"케일럽":   {ID: "Y0UNGBL00D", File: "cale.json"},
			"멜리사":   {ID: "Melissa", File: "melissa.json", Enabled: true},
			"카이퍼":   {ID: "Ebony", File: "kuiper.json"},
			"타우리온":  {ID: "TauLeo", File: "tauleon.json"},
			"요세프":   {ID: "Y0S3F", File: "yosef.json", Enabled: true},
		},
		DMTargets: []string{
			instance + "NOTICE",
			instance + "Paradise",
			instance + "SYSTEM",
		},
		ExcludedMentions: []string{
			"@Limone", "@jackson", "@Kevin_Vance", "@Guinevere", "@NOTICE", "@STORY", "@Paradise",
		},
		ZoneOffsetHours: 9,
		Language:        migration.DefaultLanguage,
		ItemsField:      migration.DefaultItemsField,
		DriveFiles:      map[string]string{},
		SheetTitle:      "역극백업",
		Logging:         LoggingConfig{Level: "info", Format: "console"},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error
	if len(c.Characters) == 0 {
		errs = append(errs, errors.New("characters: at least one character is required"))
	}
	files := make(map[string]string)
	for _, name := range c.Names() {
		ch := c.Characters[name]
		if strings.TrimSpace(ch.ID) == "" {
			errs = append(errs, fmt.Errorf("characters.%s.id is required", name))
		}
		if strings.TrimSpace(ch.File) == "" {
			errs = append(errs, fmt.Errorf("characters.%s.file is required", name))
		} else if other, ok := files[ch.File]; ok {
			errs = append(errs, fmt.Errorf("characters.%s.file %q already used by %s", name, ch.File, other))
		} else {
			files[ch.File] = name
		}
	}
	if c.ZoneOffsetHours < -12 || c.ZoneOffsetHours > 14 {
		errs = append(errs, fmt.Errorf("zone_offset_hours must be between -12 and 14, got %d", c.ZoneOffsetHours))
	}
	if strings.TrimSpace(c.Language) == "" {
		errs = append(errs, errors.New("language is required"))
	}
	if strings.TrimSpace(c.ItemsField) == "" {
		errs = append(errs, errors.New("items_field is required"))
	}
	if c.MaxSelected < 0 {
		errs = append(errs, fmt.Errorf("max_selected must be >= 0, got %d", c.MaxSelected))
	}
	if strings.TrimSpace(c.SheetTitle) == "" {
		errs = append(errs, errors.New("sheet_title is required"))
	}
	return errors.Join(errs...)
}

// Names returns the character names sorted.
func (c *Config) Names() []string {
	names := make([]string, 0, len(c.Characters))
	for name := range c.Characters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Select turns chosen character names into archive references, in the order given.
// Repeated names are collapsed. Unknown or disabled characters, an empty selection, or
// more than MaxSelected characters are errors.
func (c *Config) Select(names []string) ([]migration.ArchiveRef, error) {
	seen := make(map[string]bool)
	var refs []migration.ArchiveRef
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		ch, ok := c.Characters[name]
		if !ok {
			return nil, fmt.Errorf("Select: unknown character %q", name)
		}
		if !ch.Enabled {
			return nil, fmt.Errorf("Select: character %q is disabled", name)
		}
		refs = append(refs, migration.ArchiveRef{Name: name, Ref: ch.File})
	}
	if len(refs) == 0 {
		return nil, errors.New("Select: no characters selected")
	}
	if c.MaxSelected > 0 && len(refs) > c.MaxSelected {
		return nil, fmt.Errorf("Select: %d characters selected, at most %d allowed", len(refs), c.MaxSelected)
	}
	return refs, nil
}

// NameByID maps actor handles to display names.
func (c *Config) NameByID() map[string]string {
	out := make(map[string]string, len(c.Characters))
	for name, ch := range c.Characters {
		out[ch.ID] = name
	}
	return out
}

// Location is the fixed output time zone.
func (c *Config) Location() *time.Location {
	return migration.FixedZone(time.Duration(c.ZoneOffsetHours) * time.Hour)
}

// Filter builds the message filter for this deployment.
func (c *Config) Filter() migration.Filter {
	return migration.NewFilter(c.DMTargets, c.ExcludedMentions)
}
