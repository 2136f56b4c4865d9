package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// newestGGUF returns the most recently modified *.gguf file in dir.
func newestGGUF(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read run dir: %w", err)
	}
	var best string
	var bestMod int64
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".gguf") {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		if mod := fi.ModTime().UnixNano(); best == "" || mod > bestMod {
			best, bestMod = e.Name(), mod
		}
	}
	if best == "" {
		return "", fmt.Errorf("no .gguf model in %s", dir)
	}
	return filepath.Join(dir, best), nil
}
