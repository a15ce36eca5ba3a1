// Package pdftext extracts plain text from PDF documents by shelling
// out to the pdftotext utility from poppler-utils.
package pdftext

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const extractTimeout = 30 * time.Second

// ExtractFile runs pdftotext on the file at path and returns the text.
func ExtractFile(ctx context.Context, path string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, extractTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "pdftotext", "-raw", path, "-")

	var out bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if strings.Contains(err.Error(), "executable file not found") {
			return "", fmt.Errorf("pdftotext binary not found, install poppler-utils: %w", err)
		}
		return "", fmt.Errorf("pdftotext failed: %v: %s", err, msg)
	}

	text := out.String()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("pdftotext extracted no text, file may be image-based or protected")
	}
	return text, nil
}
