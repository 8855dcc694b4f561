// SPDX-License-Identifier: MPL-2.0

package config

import (
	"reflect"
	"strings"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// These tests keep the Go struct JSON tags and the CUE schema field names
// aligned, so a renamed field cannot be silently ignored at load time.

func extractCUEFields(t *testing.T, val cue.Value) map[string]bool {
	t.Helper()

	fields := make(map[string]bool)

	iter, err := val.Fields(cue.Definitions(false), cue.Optional(true))
	if err != nil {
		t.Fatalf("failed to iterate CUE fields: %v", err)
	}

	for iter.Next() {
		sel := iter.Selector()
		if sel.LabelType().IsHidden() || sel.IsDefinition() {
			continue
		}
		fields[strings.TrimSuffix(sel.String(), "?")] = iter.IsOptional()
	}

	return fields
}

func extractGoJSONTags(t *testing.T, typ reflect.Type) map[string]bool {
	t.Helper()

	if typ.Kind() != reflect.Struct {
		t.Fatalf("expected struct type, got %s", typ.Kind())
	}

	fields := make(map[string]bool)
	for i := range typ.NumField() {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}
		name, opts, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			continue
		}
		fields[name] = strings.Contains(opts, "omitempty")
	}

	return fields
}

func TestRunConfigSchemaSync(t *testing.T) {
	t.Parallel()

	schema := cuecontext.New().CompileString(configSchema)
	if schema.Err() != nil {
		t.Fatalf("failed to compile CUE schema: %v", schema.Err())
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))
	if def.Err() != nil {
		t.Fatalf("failed to lookup #Config: %v", def.Err())
	}

	cueFields := extractCUEFields(t, def)
	goFields := extractGoJSONTags(t, reflect.TypeFor[RunConfig]())

	for field := range cueFields {
		if _, ok := goFields[field]; !ok {
			t.Errorf("CUE field %q not found in RunConfig (missing JSON tag)", field)
		}
	}
	for field := range goFields {
		if _, ok := cueFields[field]; !ok {
			t.Errorf("RunConfig JSON tag %q not found in CUE schema", field)
		}
	}
}

func TestSchemaRejectsInvalidValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		valid bool
	}{
		{"empty file", ``, true},
		{"all fields", `interpreter: "shell", shell_path: "/bin/bash", secondary_path: "", native_tool: "swift", env: {A: "1"}`, true},
		{"unknown interpreter", `interpreter: "ruby"`, false},
		{"unknown field", `colour: "red"`, false},
		{"non-string env value", `env: {A: 1}`, false},
		{"env key with equals", `env: {"A=B": "1"}`, false},
		{"native tool with slash", `native_tool: "/usr/bin/swift"`, false},
		{"shell path wrong type", `shell_path: true`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx := cuecontext.New()
			def := ctx.CompileString(configSchema).LookupPath(cue.ParsePath("#Config"))
			user := ctx.CompileString(tt.input)
			if user.Err() != nil {
				t.Fatalf("test input does not compile: %v", user.Err())
			}

			err := def.Unify(user).Validate(cue.Concrete(true))
			if tt.valid && err != nil {
				t.Errorf("expected valid, got %v", err)
			}
			if !tt.valid && err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
