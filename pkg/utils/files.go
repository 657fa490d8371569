package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func GetPathInfo(relPath string) (fullPath string, parentDir string, err error) {
	// Convert to absolute path (resolves ../../ and cleans the path)
	fullPath, err = filepath.Abs(relPath)
	if err != nil {
		return "", "", err
	}

	// Get the directory containing the file
	parentDir = filepath.Dir(fullPath)

	return fullPath, parentDir, nil
}

// ReportDir picks the directory that receives the reports for input. With no
// outDir the reports go next to the input. When several inputs share outDir,
// each gets a subdirectory named after the file without its extension.
func ReportDir(input, outDir string, shared bool) (string, error) {
	fullPath, parentDir, err := GetPathInfo(input)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", input, err)
	}
	if outDir == "" {
		return parentDir, nil
	}

	dir, err := filepath.Abs(outDir)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", outDir, err)
	}
	if shared {
		base := filepath.Base(fullPath)
		dir = filepath.Join(dir, strings.TrimSuffix(base, filepath.Ext(base)))
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}
