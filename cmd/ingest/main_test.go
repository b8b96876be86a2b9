package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
)

const sample = `InvoiceNo,StockCode,Description,Quantity,InvoiceDate,UnitPrice,CustomerID,Country
536365,85123A,WHITE HANGING HEART T-LIGHT HOLDER,6,12/1/2010 8:26,2.55,17850,United Kingdom
536365,71053,WHITE METAL LANTERN,6,12/1/2010 8:26,3.39,17850,United Kingdom
536366,,NO STOCKCODE,1,12/1/2010 8:28,1.85,17850,United Kingdom
`

func TestRun(t *testing.T) {
	t.Parallel()

	dataDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dataDir, "online_retail.csv"), []byte(sample), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		dataDir  string
		wantCode int
		wantOut  string
	}{
		{"loads files", dataDir, 0, "DONE. Total rows inserted: 2\n"},
		{"no input files", t.TempDir(), 1, ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env := map[string]string{
				"STORE_KIND":         "sqlite",
				"DB_DSN":             filepath.Join(t.TempDir(), "w.db"),
				"AUTO_CREATE_TABLES": "1",
				"DATA_DIR":           tt.dataDir,
				"CHUNK_SIZE":         "2",
				"PAGE_SIZE":          "2",
				"LOG_LEVEL":          "error",
			}
			var out bytes.Buffer
			code := run(context.Background(), func(k string) string { return env[k] }, &out)
			if code != tt.wantCode {
				t.Fatalf("exit code = %d, want %d", code, tt.wantCode)
			}
			if out.String() != tt.wantOut {
				t.Fatalf("stdout = %q, want %q", out.String(), tt.wantOut)
			}
		})
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	t.Parallel()

	env := map[string]string{"STORE_KIND": "sqlite", "DATA_DIR": t.TempDir()}
	if code := run(context.Background(), func(k string) string { return env[k] }, &bytes.Buffer{}); code != 1 {
		t.Fatalf("exit code = %d; sqlite without DB_DSN must fail", code)
	}
}
