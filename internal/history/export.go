// SPDX-License-Identifier: MPL-2.0

package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const (
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// ErrInvalidFormat is returned when an export Format is not recognized.
var ErrInvalidFormat = errors.New("invalid export format")

type (
	// Format selects the encoding used by Export.
	Format string

	// InvalidFormatError is returned when a Format value is not recognized.
	// It wraps ErrInvalidFormat for errors.Is() compatibility.
	InvalidFormatError struct {
		Value Format
	}

	// exportRecord flattens Record for encoders that know nothing about
	// uuid.UUID.
	exportRecord struct {
		ID            string    `json:"id" toml:"id" yaml:"id"`
		Command       string    `json:"command" toml:"command" yaml:"command"`
		StartedAt     time.Time `json:"started_at" toml:"started_at" yaml:"started_at"`
		Interpreter   string    `json:"interpreter" toml:"interpreter" yaml:"interpreter"`
		OutputPreview string    `json:"output_preview" toml:"output_preview" yaml:"output_preview"`
		ExitCode      *int      `json:"exit_code,omitempty" toml:"exit_code,omitempty" yaml:"exit_code,omitempty"`
		Cancelled     bool      `json:"cancelled,omitempty" toml:"cancelled,omitempty" yaml:"cancelled,omitempty"`
	}

	// exportDocument is the TOML root; TOML cannot encode a bare array.
	exportDocument struct {
		Records []exportRecord `toml:"records"`
	}
)

// String returns the string representation of the Format.
func (f Format) String() string { return string(f) }

// IsValid returns whether the Format is one of the defined values,
// and a list of validation errors if it is not.
func (f Format) IsValid() (bool, []error) {
	switch f {
	case FormatJSON, FormatTOML, FormatYAML:
		return true, nil
	default:
		return false, []error{&InvalidFormatError{Value: f}}
	}
}

// Error implements the error interface for InvalidFormatError.
func (e *InvalidFormatError) Error() string {
	return fmt.Sprintf("invalid export format %q (valid: json, toml, yaml)", e.Value)
}

// Unwrap returns ErrInvalidFormat for errors.Is() compatibility.
func (e *InvalidFormatError) Unwrap() error { return ErrInvalidFormat }

// Export writes records to w in the given format.
func Export(w io.Writer, records []Record, format Format) error {
	if valid, errs := format.IsValid(); !valid {
		return errs[0]
	}

	out := make([]exportRecord, 0, len(records))
	for _, r := range records {
		out = append(out, exportRecord{
			ID:            r.ID.String(),
			Command:       r.Command,
			StartedAt:     r.StartedAt,
			Interpreter:   r.Interpreter,
			OutputPreview: r.OutputPreview,
			ExitCode:      r.ExitCode,
			Cancelled:     r.Cancelled,
		})
	}

	switch format {
	case FormatTOML:
		enc := toml.NewEncoder(w)
		enc.SetIndentTables(true)
		return enc.Encode(exportDocument{Records: out})
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(out); err != nil {
			return err
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
}

// Export writes the whole history to w.
func (s *Store) Export(w io.Writer, format Format) error {
	return Export(w, s.Items(), format)
}
