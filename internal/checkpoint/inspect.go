// Package checkpoint reads on-disk training checkpoints and decides how a
// training run should restore from them. Nothing here touches the engine.
package checkpoint

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"lsai/internal/common/fsutil"
)

const (
	// IndexFile lists saved weights as `model_checkpoint_path: "<name>"` lines.
	IndexFile = "checkpoint"
	// CounterFile holds the number of completed training steps.
	CounterFile = "counter"

	indexKey = "model_checkpoint_path:"
)

// File is a regular file in a checkpoint directory.
type File struct {
	Name      string `json:"name"`
	Size      int64  `json:"size"`
	HumanSize string `json:"human_size"`
}

// Info describes a checkpoint directory as found on disk at inspection time.
type Info struct {
	Dir         string   `json:"dir"`
	Exists      bool     `json:"exists"`
	LatestModel *string  `json:"latest_model,omitempty"`
	CurrentStep int      `json:"current_step"`
	Files       []File   `json:"files,omitempty"`
	Warnings    []string `json:"warnings,omitempty"`
	// CounterOK is set when the counter file exists and parsed.
	CounterOK bool `json:"-"`
}

// RunDir returns the checkpoint directory for a run.
func RunDir(root, runName string) string {
	return filepath.Join(root, runName)
}

// Inspect reads the index file, the step counter and the file inventory of
// dir. A missing directory yields Info{Exists: false}; unreadable or
// malformed metadata is logged and recorded in Warnings, never returned.
func Inspect(dir string) Info {
	info := Info{Dir: dir}
	if !fsutil.IsDir(dir) {
		return info
	}
	info.Exists = true

	latest, err := readLatestModel(filepath.Join(dir, IndexFile))
	if err != nil {
		info.warn(err)
	}
	info.LatestModel = latest

	step, found, err := readCounter(filepath.Join(dir, CounterFile))
	if err != nil {
		info.warn(err)
	}
	info.CurrentStep = step
	info.CounterOK = found && err == nil

	files, err := listFiles(dir)
	if err != nil {
		info.warn(err)
	}
	info.Files = files
	return info
}

func (i *Info) warn(err error) {
	log.Warn().Err(err).Str("dir", i.Dir).Msg("checkpoint metadata unreadable")
	i.Warnings = append(i.Warnings, err.Error())
}

// readLatestModel returns the quoted value of the first well-formed
// model_checkpoint_path line. An absent file is not an error.
func readLatestModel(path string) (*string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read index file: %w", err)
	}
	sc := bufio.NewScanner(bytes.NewReader(b))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(line, indexKey) {
			continue
		}
		if name, ok := quoted(line[len(indexKey):]); ok {
			return &name, nil
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan index file: %w", err)
	}
	return nil, nil
}

// quoted extracts the text between the first pair of double quotes.
func quoted(s string) (string, bool) {
	start := strings.IndexByte(s, '"')
	if start < 0 {
		return "", false
	}
	end := strings.IndexByte(s[start+1:], '"')
	if end < 0 {
		return "", false
	}
	return s[start+1 : start+1+end], true
}

// readCounter reports whether the counter file exists alongside its value.
func readCounter(path string) (int, bool, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, false, nil
		}
		return 0, true, fmt.Errorf("read counter file: %w", err)
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil {
		return 0, true, fmt.Errorf("parse counter file: %w", err)
	}
	if n < 0 {
		return 0, true, fmt.Errorf("parse counter file: negative step %d", n)
	}
	return n, true, nil
}

func listFiles(dir string) ([]File, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list checkpoint dir: %w", err)
	}
	files := make([]File, 0, len(entries))
	for _, e := range entries {
		// Stat follows symlinks; dangling links and directories are skipped.
		fi, err := os.Stat(filepath.Join(dir, e.Name()))
		if err != nil || !fi.Mode().IsRegular() {
			continue
		}
		files = append(files, File{Name: e.Name(), Size: fi.Size(), HumanSize: fsutil.HumanSize(fi.Size())})
	}
	sort.Slice(files, func(a, b int) bool { return files[a].Name < files[b].Name })
	return files, nil
}

// TrainingSteps returns the step counter when the counter file exists and
// parsed cleanly.
func (i Info) TrainingSteps() (int, bool) {
	if !i.CounterOK {
		return 0, false
	}
	return i.CurrentStep, true
}
