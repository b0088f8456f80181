package report

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ════════════════════════════════════════════════════════════════════
// PDF export: HTML → PDF via wkhtmltopdf or headless Chromium
// ════════════════════════════════════════════════════════════════════

// PDFEngine names an HTML-to-PDF converter.
type PDFEngine string

const (
	EngineWKHTML   PDFEngine = "wkhtmltopdf"
	EngineChromium PDFEngine = "chromium"
	EngineNone     PDFEngine = "none"
)

var chromiumBinaries = []string{"chromium-browser", "chromium", "google-chrome", "google-chrome-stable"}

// lookPath is replaced in tests.
var lookPath = exec.LookPath

// DetectPDFEngine reports which converter is installed.
func DetectPDFEngine() (PDFEngine, string) {
	if path, err := lookPath("wkhtmltopdf"); err == nil {
		return EngineWKHTML, path
	}
	for _, name := range chromiumBinaries {
		if path, err := lookPath(name); err == nil {
			return EngineChromium, path
		}
	}
	return EngineNone, ""
}

// WritePDF converts html to a PDF at path. Without a converter the HTML is
// written next to it with an .html extension; the returned path is the
// file actually written.
func WritePDF(ctx context.Context, html, path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("output path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}

	engine, bin := DetectPDFEngine()
	if engine == EngineNone {
		out := htmlPath(path)
		if err := os.WriteFile(out, []byte(html), 0o644); err != nil {
			return "", fmt.Errorf("writing HTML fallback: %w", err)
		}
		return out, nil
	}

	tmp, err := os.CreateTemp("", "quantdesk-report-*.html")
	if err != nil {
		return "", fmt.Errorf("writing temp HTML: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(html); err != nil {
		tmp.Close()
		return "", fmt.Errorf("writing temp HTML: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving output path: %w", err)
	}
	cmd := exec.CommandContext(ctx, bin, pdfArgs(engine, tmp.Name(), abs)...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("%s failed: %w\n%s", engine, err, output)
	}
	return path, nil
}

func pdfArgs(engine PDFEngine, in, out string) []string {
	if engine == EngineWKHTML {
		return []string{
			"--page-size", "A4",
			"--margin-top", "15mm", "--margin-bottom", "15mm",
			"--margin-left", "10mm", "--margin-right", "10mm",
			"--encoding", "UTF-8",
			"--enable-local-file-access",
			"--quiet",
			in, out,
		}
	}
	return []string{
		"--headless",
		"--disable-gpu",
		"--no-sandbox",
		"--print-to-pdf=" + out,
		"--print-to-pdf-no-header",
		"file://" + in,
	}
}

func htmlPath(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return path[:len(path)-4] + ".html"
	}
	return path + ".html"
}
