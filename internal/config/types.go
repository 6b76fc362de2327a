package config

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// ByteSize is a byte count that parses from YAML either as a plain number or
// as a human-readable string such as "512MiB" or "1 GB".
type ByteSize int64

// UnmarshalYAML implements yaml.Unmarshaler.
func (b *ByteSize) UnmarshalYAML(value *yaml.Node) error {
	var raw int64
	if err := value.Decode(&raw); err == nil {
		*b = ByteSize(raw)
		return nil
	}

	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("byte size must be a number or a size string: %w", err)
	}

	parsed, err := humanize.ParseBytes(s)
	if err != nil {
		return fmt.Errorf("invalid byte size %q: %w", s, err)
	}
	*b = ByteSize(parsed)
	return nil
}

// String renders the size human-readably.
func (b ByteSize) String() string {
	if b < 0 {
		return "0 B"
	}
	return humanize.IBytes(uint64(b))
}

// Duration is a time.Duration that parses from YAML as a Go duration string
// such as "500ms" or "1m30s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string like \"500ms\": %w", err)
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// String renders the duration.
func (d Duration) String() string {
	return time.Duration(d).String()
}
