// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"
	"testing"
)

func allIds() []Id {
	return []Id{
		ConfigLoadFailedId,
		InterpreterNotFoundId,
		PermissionDeniedId,
		SpawnFailedId,
		RunInProgressId,
		HistoryLoadFailedId,
		RecordNotFoundId,
		InvalidInterpreterId,
		EnvFileInvalidId,
	}
}

// stubRender swaps the glamour renderer for an identity function.
func stubRender(t *testing.T) {
	t.Helper()

	original := render
	t.Cleanup(func() { render = original })
	render = func(in string, _ string) (string, error) {
		return in, nil
	}
}

func TestId_Constants(t *testing.T) {
	t.Parallel()

	seen := make(map[Id]bool)
	for _, id := range allIds() {
		if seen[id] {
			t.Errorf("duplicate ID: %d", id)
		}
		seen[id] = true
	}

	if ConfigLoadFailedId != 1 {
		t.Errorf("ConfigLoadFailedId = %d, want 1", ConfigLoadFailedId)
	}
}

func TestGet(t *testing.T) {
	t.Parallel()

	tests := []struct {
		id       Id
		wantNil  bool
		contains string
	}{
		{ConfigLoadFailedId, false, "Failed to load configuration"},
		{InterpreterNotFoundId, false, "Interpreter not found"},
		{PermissionDeniedId, false, "Permission denied"},
		{SpawnFailedId, false, "Failed to start the interpreter"},
		{RunInProgressId, false, "already in progress"},
		{HistoryLoadFailedId, false, "run history"},
		{RecordNotFoundId, false, "Run record not found"},
		{InvalidInterpreterId, false, "Invalid interpreter"},
		{EnvFileInvalidId, false, "Invalid env file"},
		{Id(9999), true, "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.contains, func(t *testing.T) {
			t.Parallel()

			got := Get(tt.id)
			if tt.wantNil {
				if got != nil {
					t.Errorf("Get(%d) should return nil", tt.id)
				}
				return
			}
			if got == nil {
				t.Fatalf("Get(%d) returned nil", tt.id)
			}
			if got.Id() != tt.id {
				t.Errorf("Get(%d).Id() = %d", tt.id, got.Id())
			}
			if !strings.Contains(string(got.MarkdownMsg()), tt.contains) {
				t.Errorf("Get(%d).MarkdownMsg() should contain %q", tt.id, tt.contains)
			}
		})
	}
}

func TestValues(t *testing.T) {
	t.Parallel()

	values := Values()
	if len(values) != len(allIds()) {
		t.Fatalf("Values() returned %d issues, want %d", len(values), len(allIds()))
	}
	for i := 1; i < len(values); i++ {
		if values[i-1].Id() >= values[i].Id() {
			t.Errorf("Values() not ordered by ID at index %d", i)
		}
	}
	for _, v := range values {
		if v.MarkdownMsg() == "" {
			t.Errorf("issue %d has empty MarkdownMsg", v.Id())
		}
	}
}

func TestIssue_LinksAreCloned(t *testing.T) {
	t.Parallel()

	got := Get(InterpreterNotFoundId)
	links := got.ExtLinks()
	if len(links) == 0 {
		t.Fatal("expected external links")
	}
	original := links[0]
	links[0] = "modified"
	if got.ExtLinks()[0] != original {
		t.Error("ExtLinks() should return a clone")
	}
	if got.DocLinks() != nil {
		t.Error("DocLinks() should be nil when none are set")
	}
}

//nolint:tparallel // mutates the package-level renderer
func TestIssue_Render(t *testing.T) {
	stubRender(t)

	t.Run("with links", func(t *testing.T) {
		rendered, err := Get(InterpreterNotFoundId).Render("notty")
		if err != nil {
			t.Fatalf("Render() error: %v", err)
		}
		if !strings.Contains(rendered, "See also") || !strings.Contains(rendered, "python.org") {
			t.Errorf("Render() should append the links section, got:\n%s", rendered)
		}
	})

	t.Run("without links", func(t *testing.T) {
		rendered, err := Get(RunInProgressId).Render("notty")
		if err != nil {
			t.Fatalf("Render() error: %v", err)
		}
		if strings.Contains(rendered, "See also") {
			t.Error("Render() without links should not contain 'See also'")
		}
	})

	t.Run("every issue renders", func(t *testing.T) {
		for _, v := range Values() {
			rendered, err := v.Render("notty")
			if err != nil || rendered == "" {
				t.Errorf("issue %d: rendered=%q err=%v", v.Id(), rendered, err)
			}
		}
	})
}
