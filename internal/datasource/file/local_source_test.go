package file

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

// TestLocalOpen covers success, missing file, and pre-canceled context.
func TestLocalOpen(t *testing.T) {
	t.Parallel()

	type tc struct {
		name            string
		prepare         func(t *testing.T) string
		makeCtx         func(t *testing.T) context.Context
		wantErrIs       error
		wantErrContains string
		wantContent     string
	}

	writeData := func(t *testing.T, payload string) string {
		t.Helper()
		p := filepath.Join(t.TempDir(), "online_retail.csv")
		if err := os.WriteFile(p, []byte(payload), 0o644); err != nil {
			t.Fatalf("write test file: %v", err)
		}
		return p
	}

	cases := []tc{
		{
			name:        "success_reads_content",
			prepare:     func(t *testing.T) string { return writeData(t, "Invoice\n536365\n") },
			makeCtx:     func(t *testing.T) context.Context { return context.Background() },
			wantContent: "Invoice\n536365\n",
		},
		{
			name: "missing_file_errors_with_wrapping",
			prepare: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "missing.csv")
			},
			makeCtx:         func(t *testing.T) context.Context { return context.Background() },
			wantErrIs:       os.ErrNotExist,
			wantErrContains: "open ",
		},
		{
			name:    "pre_canceled_context_short_circuits",
			prepare: func(t *testing.T) string { return writeData(t, "ignored") },
			makeCtx: func(t *testing.T) context.Context {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx
			},
			wantErrIs: context.Canceled,
		},
	}

	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			rc, err := NewLocal(c.prepare(t)).Open(c.makeCtx(t))

			if c.wantErrIs != nil {
				if !errors.Is(err, c.wantErrIs) {
					t.Fatalf("errors.Is(%v, %v) = false", err, c.wantErrIs)
				}
				if c.wantErrContains != "" && !strings.Contains(err.Error(), c.wantErrContains) {
					t.Fatalf("error %q does not contain %q", err, c.wantErrContains)
				}
				if rc != nil {
					_ = rc.Close()
					t.Fatalf("got non-nil ReadCloser on error: %T", rc)
				}
				return
			}

			if err != nil {
				t.Fatalf("Open() unexpected error: %v", err)
			}
			defer rc.Close()

			got, err := io.ReadAll(rc)
			if err != nil {
				t.Fatalf("reading: %v", err)
			}
			if string(got) != c.wantContent {
				t.Fatalf("content = %q, want %q", got, c.wantContent)
			}
		})
	}
}

func TestList_SortedMatchesOnly(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, name := range []string{"b_2011.csv", "a_2010.csv", "notes.txt", "c_2012.csv"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "dir.csv"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	got, err := List(dir, "*.csv")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{
		filepath.Join(dir, "a_2010.csv"),
		filepath.Join(dir, "b_2011.csv"),
		filepath.Join(dir, "c_2012.csv"),
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("List = %q, want %q", got, want)
	}
}

func TestList_NoMatchesAndBadPattern(t *testing.T) {
	t.Parallel()

	got, err := List(t.TempDir(), "*.csv")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no files, got %q", got)
	}

	if _, err := List(t.TempDir(), "[bad"); err == nil {
		t.Fatal("expected error for malformed pattern")
	}
}
