package render

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// fakeRasterizer writes a script that mimics pdftoppm: it records its
// arguments and writes PNG bytes to <output-prefix>.png.
func fakeRasterizer(t *testing.T) (binary, argsFile string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script stub")
	}
	dir := t.TempDir()
	argsFile = filepath.Join(dir, "args")
	binary = filepath.Join(dir, "pdftoppm")
	script := "#!/bin/sh\n" +
		"echo \"$@\" > " + argsFile + "\n" +
		"for last; do :; done\n" +
		"printf 'png-bytes' > \"$last.png\"\n"
	if err := os.WriteFile(binary, []byte(script), 0755); err != nil {
		t.Fatal(err)
	}
	return binary, argsFile
}

func TestRenderPage(t *testing.T) {
	binary, argsFile := fakeRasterizer(t)
	r := &PopplerRenderer{Binary: binary, DPI: 150}

	png, err := r.RenderPage(context.Background(), "/docs/estimate.pdf", 3)
	if err != nil {
		t.Fatal(err)
	}
	if string(png) != "png-bytes" {
		t.Errorf("png: got %q", png)
	}

	args, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatal(err)
	}
	got := string(args)
	for _, want := range []string{"-png", "-r 150", "-f 3", "-l 3", "-singlefile", "/docs/estimate.pdf"} {
		if !strings.Contains(got, want) {
			t.Errorf("args missing %q: %s", want, got)
		}
	}
}

func TestRenderPage_defaultDPI(t *testing.T) {
	binary, argsFile := fakeRasterizer(t)
	r := &PopplerRenderer{Binary: binary}

	if _, err := r.RenderPage(context.Background(), "/docs/estimate.pdf", 1); err != nil {
		t.Fatal(err)
	}
	args, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(args), "-r 200") {
		t.Errorf("expected default DPI in args: %s", args)
	}
}

func TestRenderPage_binaryFailure(t *testing.T) {
	dir := t.TempDir()
	binary := filepath.Join(dir, "pdftoppm")
	script := "#!/bin/sh\necho 'no such page' >&2\nexit 1\n"
	if err := os.WriteFile(binary, []byte(script), 0755); err != nil {
		t.Fatal(err)
	}
	r := &PopplerRenderer{Binary: binary}

	_, err := r.RenderPage(context.Background(), "/docs/estimate.pdf", 99)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "no such page") {
		t.Errorf("error should carry tool output: %v", err)
	}
}
