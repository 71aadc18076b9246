package utils

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// EnsureDir creates a directory if it doesn't exist
func EnsureDir(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}

// GetFileExtension returns the lower-cased file extension without the dot
func GetFileExtension(filename string) string {
	ext := filepath.Ext(filename)
	if len(ext) > 0 {
		return strings.ToLower(ext[1:])
	}
	return ""
}

// IsScreenshotFile checks if a file has a screenshot extension we can decode
func IsScreenshotFile(filename string) bool {
	switch GetFileExtension(filename) {
	case "jpg", "jpeg", "png", "webp":
		return true
	}
	return false
}

// StepIDFromFilename derives a step id from a screenshot file name
func StepIDFromFilename(path string) string {
	base := filepath.Base(path)
	return SanitizeFilename(strings.TrimSuffix(base, filepath.Ext(base)))
}

// OutputPath builds the path of a rendered artifact for a step
func OutputPath(outputDir, stepID, suffix, format string) string {
	if format == "" {
		format = "jpg"
	}
	name := fmt.Sprintf("%s%s.%s", SanitizeFilename(stepID), suffix, strings.ToLower(format))
	return filepath.Join(outputDir, name)
}

// ListScreenshots lists the screenshots directly inside dir in lexical order
func ListScreenshots(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read screenshot directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.Type()&fs.ModeType != 0 || !IsScreenshotFile(entry.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// FileExists checks if a file exists and is not a directory
func FileExists(filename string) bool {
	info, err := os.Stat(filename)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// SanitizeFilename removes or replaces invalid characters in filenames
func SanitizeFilename(filename string) string {
	invalid := []string{"/", "\\", ":", "*", "?", "\"", "<", ">", "|", " "}
	result := filename

	for _, char := range invalid {
		result = strings.ReplaceAll(result, char, "_")
	}

	// Remove leading/trailing underscores and dots
	return strings.Trim(result, "_.")
}

// FormatFileSize formats file size in human-readable format
func FormatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}

	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
