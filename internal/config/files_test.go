package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestResolveFilesDefaults(t *testing.T) {
	root := t.TempDir()
	top := filepath.Join(root, "top.v")
	core := filepath.Join(root, "rtl", "core.sv")
	notes := filepath.Join(root, "rtl", "notes.txt")
	vendored := filepath.Join(root, ".git", "hooks", "x.v")
	cached := filepath.Join(root, ".rtlscan_cache", "y.v")
	writeFile(t, top, "module top; endmodule")
	writeFile(t, core, "module core; endmodule")
	writeFile(t, notes, "not verilog")
	writeFile(t, vendored, "module bad; endmodule")
	writeFile(t, cached, "module bad2; endmodule")

	files, err := DefaultConfig().ResolveFiles(root)
	if err != nil {
		t.Fatalf("ResolveFiles: %v", err)
	}

	want := []string{core, top}
	if len(files) != len(want) {
		t.Fatalf("expected %v, got %v", want, files)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, files)
		}
	}
}

func TestResolveFilesExcludeAndExtensions(t *testing.T) {
	root := t.TempDir()
	rtl := filepath.Join(root, "rtl", "alu.v")
	sim := filepath.Join(root, "sim", "tb_alu.v")
	header := filepath.Join(root, "rtl", "defs.vh")
	writeFile(t, rtl, "module alu; endmodule")
	writeFile(t, sim, "module tb_alu; endmodule")
	writeFile(t, header, "`define W 8")

	cfg := DefaultConfig()
	cfg.Files.Include = []string{"**/*"}
	cfg.Files.Exclude = []string{"sim/*.v"}
	cfg.Files.Extensions = []string{".v", ".VH"}

	files, err := cfg.ResolveFiles(root)
	if err != nil {
		t.Fatalf("ResolveFiles: %v", err)
	}
	if !containsPath(files, rtl) || !containsPath(files, header) {
		t.Fatalf("expected rtl sources, got %v", files)
	}
	if containsPath(files, sim) {
		t.Fatalf("expected %s to be excluded, got %v", sim, files)
	}
}

func TestResolveFilesSingleFile(t *testing.T) {
	root := t.TempDir()
	only := filepath.Join(root, "only.txt")
	writeFile(t, only, "module only; endmodule")

	files, err := DefaultConfig().ResolveFiles(only)
	if err != nil {
		t.Fatalf("ResolveFiles: %v", err)
	}
	if len(files) != 1 || files[0] != only {
		t.Fatalf("expected [%s], got %v", only, files)
	}
}

func TestResolveFilesMissingRoot(t *testing.T) {
	if _, err := DefaultConfig().ResolveFiles(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatalf("expected error for missing root")
	}
}

func TestIsSourceFile(t *testing.T) {
	cfg := DefaultConfig()
	root := "/proj"
	cases := map[string]bool{
		"/proj/a.v":                true,
		"/proj/sub/b.SV":           true,
		"/proj/c.vhd":              false,
		"/proj/.git/d.v":           false,
		"/proj/node_modules/x/e.v": false,
	}
	for path, want := range cases {
		if got := cfg.IsSourceFile(root, path); got != want {
			t.Fatalf("IsSourceFile(%q) = %v, want %v", path, got, want)
		}
	}
	if !cfg.IsIgnoredDir(".git") || cfg.IsIgnoredDir("rtl") {
		t.Fatalf("unexpected ignored-dir answers")
	}
}

func TestMatchSuffix(t *testing.T) {
	tests := []struct {
		path    string
		pattern string
		want    bool
	}{
		{"a/b/c.v", "*.v", true},
		{"a/b/c.sv", "*.v", false},
		{"a/b/c.v", "b/*.v", true},
		{"c.v", "/*.v", true},
	}
	for _, tt := range tests {
		if got := matchSuffix(filepath.FromSlash(tt.path), filepath.FromSlash(tt.pattern)); got != tt.want {
			t.Fatalf("matchSuffix(%q, %q) = %v, want %v", tt.path, tt.pattern, got, tt.want)
		}
	}
}

func containsPath(paths []string, want string) bool {
	for _, p := range paths {
		if p == want {
			return true
		}
	}
	return false
}
