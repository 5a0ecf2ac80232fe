package ffmpeg

import (
	"fmt"
	"path/filepath"
	"strings"
)

// DefaultExt is used when the source file has no extension.
const DefaultExt = "mp4"

// SplitName returns the stem and extension (without dot) of path's base name.
func SplitName(path string) (stem, ext string) {
	base := filepath.Base(path)
	dotExt := filepath.Ext(base)
	stem = strings.TrimSuffix(base, dotExt)
	ext = strings.TrimPrefix(dotExt, ".")
	if ext == "" {
		ext = DefaultExt
	}
	return stem, ext
}

// OutputPath builds {outDir}/{stem}_{tag}.{ext} for src.
func OutputPath(src, outDir, tag string) (string, error) {
	stem, ext := SplitName(src)
	if stem == "" || stem == "." || stem == string(filepath.Separator) {
		return "", fmt.Errorf("invalid source filename: %q", src)
	}
	return filepath.Join(outDir, fmt.Sprintf("%s_%s.%s", stem, tag, ext)), nil
}
