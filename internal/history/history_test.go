// SPDX-License-Identifier: MPL-2.0

package history

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/snipr/snipr/internal/testutil"
)

var testTime = time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openTemp(t *testing.T) *Store {
	t.Helper()
	return Open(filepath.Join(t.TempDir(), FileName), discardLogger())
}

func TestStore_AddIsNewestFirstAndPersisted(t *testing.T) {
	t.Parallel()

	store := openTemp(t)
	for _, cmd := range []string{"echo 1", "echo 2", "echo 2"} {
		if err := store.Add(NewRecord(cmd, "shell", testTime, cmd[5:]+"\n")); err != nil {
			t.Fatalf("Add(%q) error: %v", cmd, err)
		}
	}

	items := store.Items()
	if len(items) != 3 || store.Len() != 3 {
		t.Fatalf("len = %d, want 3 (no deduplication)", len(items))
	}
	if items[0].Command != "echo 2" || items[2].Command != "echo 1" {
		t.Errorf("order = %q, %q, %q", items[0].Command, items[1].Command, items[2].Command)
	}
	if items[0].ID == items[1].ID {
		t.Error("identical commands must still get distinct IDs")
	}

	reopened := Open(store.Path(), discardLogger())
	if reopened.LoadError() != nil {
		t.Fatalf("LoadError() = %v", reopened.LoadError())
	}
	got := reopened.Items()
	if len(got) != 3 || got[0].ID != items[0].ID || !got[2].StartedAt.Equal(testTime) {
		t.Errorf("reopened history mismatch: %+v", got)
	}
}

func TestStore_Clear(t *testing.T) {
	t.Parallel()

	store := openTemp(t)
	_ = store.Add(NewRecord("x", "shell", testTime, ""))
	if err := store.Clear(); err != nil {
		t.Fatal(err)
	}
	if store.Len() != 0 {
		t.Errorf("Len() = %d after Clear", store.Len())
	}

	if data := testutil.MustReadFile(t, store.Path()); strings.TrimSpace(data) != "[]" {
		t.Errorf("cleared file = %q, want []", data)
	}
}

func TestOpen_MissingAndCorrupt(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	missing := Open(filepath.Join(dir, "missing.json"), discardLogger())
	if missing.Len() != 0 || missing.LoadError() != nil {
		t.Errorf("missing file: len=%d err=%v", missing.Len(), missing.LoadError())
	}

	corruptPath := filepath.Join(dir, "corrupt.json")
	testutil.MustWriteFile(t, corruptPath, "{not json")
	corrupt := Open(corruptPath, discardLogger())
	if corrupt.Len() != 0 || corrupt.LoadError() == nil {
		t.Errorf("corrupt file: len=%d err=%v", corrupt.Len(), corrupt.LoadError())
	}
}

func TestStore_Get(t *testing.T) {
	t.Parallel()

	store := openTemp(t)
	a := NewRecord("a", "shell", testTime, "")
	a.ID = uuid.MustParse("aaaaaaaa-0000-4000-8000-000000000001")
	b := NewRecord("b", "shell", testTime, "")
	b.ID = uuid.MustParse("aaaaaaaa-0000-4000-8000-000000000002")
	_ = store.Add(a)
	_ = store.Add(b)

	if got, err := store.Get(a.ID.String()); err != nil || got.Command != "a" {
		t.Errorf("Get(full) = %+v, %v", got, err)
	}
	if got, err := store.Get("AAAAAAAA-0000-4000-8000-000000000002"); err != nil || got.Command != "b" {
		t.Errorf("Get(upper) = %+v, %v", got, err)
	}
	if _, err := store.Get("aaaaaaaa"); !errors.Is(err, ErrAmbiguousID) {
		t.Errorf("Get(shared prefix) = %v, want ErrAmbiguousID", err)
	}
	if _, err := store.Get("ffff"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(unknown) = %v, want ErrNotFound", err)
	}
	if _, err := store.Get(""); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(empty) = %v, want ErrNotFound", err)
	}
}

func TestStore_Search(t *testing.T) {
	t.Parallel()

	store := openTemp(t)
	_ = store.Add(NewRecord("make build", "shell", testTime, "ok\n"))
	_ = store.Add(NewRecord("print(1)", "secondary", testTime, "Traceback: BUILD failed\n"))
	_ = store.Add(NewRecord("ls", "shell", testTime, "README\n"))

	got := store.Search("build")
	if len(got) != 2 || got[0].Command != "print(1)" || got[1].Command != "make build" {
		t.Errorf("Search(build) = %+v", got)
	}
	if len(store.Search("")) != 3 {
		t.Error("empty query should match everything")
	}
	if len(store.Search("nothing-matches")) != 0 {
		t.Error("unexpected match")
	}
	if store.Len() != 3 {
		t.Error("Search must not modify the store")
	}
}

func TestStore_AddReportsWriteFailure(t *testing.T) {
	t.Parallel()

	blocker := filepath.Join(t.TempDir(), "blocker")
	testutil.MustWriteFile(t, blocker, "")

	store := Open(filepath.Join(blocker, FileName), discardLogger())
	if err := store.Add(NewRecord("x", "shell", testTime, "")); err == nil {
		t.Error("expected persistence error")
	}
	if store.Len() != 1 {
		t.Error("record should be kept in memory after a failed write")
	}
}

func TestPreview_Properties(t *testing.T) {
	t.Parallel()

	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("preview is a prefix of at most 300 characters", prop.ForAll(
		func(s string) bool {
			p := Preview(s)
			if !strings.HasPrefix(s, p) {
				return false
			}
			n := utf8.RuneCountInString(p)
			if utf8.RuneCountInString(s) <= PreviewLength {
				return p == s
			}
			return n == PreviewLength
		},
		gen.AnyString(),
	))

	properties.Property("long transcripts are cut to exactly 300 characters", prop.ForAll(
		func(n int) bool {
			return utf8.RuneCountInString(Preview(strings.Repeat("é", n))) == min(n, PreviewLength)
		},
		gen.IntRange(0, 1000),
	))

	properties.TestingRun(t)
}

func TestExport(t *testing.T) {
	t.Parallel()

	rec := NewRecord("echo 2", "shell", testTime, "2\n").WithExitCode(0)
	cancelled := NewRecord("sleep 5", "shell", testTime, "")
	cancelled.Cancelled = true
	records := []Record{rec, cancelled}

	t.Run("json", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if err := Export(&buf, records, FormatJSON); err != nil {
			t.Fatal(err)
		}
		var decoded []map[string]any
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(decoded) != 2 || decoded[0]["id"] != rec.ID.String() || decoded[0]["exit_code"] != float64(0) {
			t.Errorf("decoded = %v", decoded)
		}
		if _, ok := decoded[1]["exit_code"]; ok {
			t.Error("nil exit code should be omitted")
		}
	})

	t.Run("toml", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if err := Export(&buf, records, FormatTOML); err != nil {
			t.Fatal(err)
		}
		var doc exportDocument
		if err := toml.Unmarshal(buf.Bytes(), &doc); err != nil {
			t.Fatalf("invalid TOML: %v\n%s", err, buf.String())
		}
		if len(doc.Records) != 2 || doc.Records[1].Command != "sleep 5" || !doc.Records[1].Cancelled {
			t.Errorf("decoded = %+v", doc.Records)
		}
	})

	t.Run("yaml", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if err := Export(&buf, records, FormatYAML); err != nil {
			t.Fatal(err)
		}
		var decoded []exportRecord
		if err := yaml.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid YAML: %v\n%s", err, buf.String())
		}
		if len(decoded) != 2 || decoded[0].OutputPreview != "2\n" || !decoded[0].StartedAt.Equal(testTime) {
			t.Errorf("decoded = %+v", decoded)
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		t.Parallel()

		if err := Export(io.Discard, records, "xml"); !errors.Is(err, ErrInvalidFormat) {
			t.Errorf("Export(xml) = %v, want ErrInvalidFormat", err)
		}
	})
}
