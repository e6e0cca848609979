package inspect

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Mode selects what a preview extracts from a file.
type Mode string

const (
	ModeHead       Mode = "head"
	ModeImports    Mode = "imports"
	ModeExports    Mode = "exports"
	ModeSignatures Mode = "signatures"
	ModeStructure  Mode = "structure"
)

// Preview is the mode-specific structured payload for a file.
// Only the fields relevant to the requested mode are populated;
// Language and TotalLines are always set.
type Preview struct {
	Path       string    `json:"path"`
	Mode       Mode      `json:"mode"`
	Language   string    `json:"language"`
	TotalLines int       `json:"total_lines"`
	Head       []string  `json:"head,omitempty"`
	Imports    []string  `json:"imports,omitempty"`
	Exports    []string  `json:"exports,omitempty"`
	Signatures []string  `json:"signatures,omitempty"`
	Classes    []string  `json:"classes,omitempty"`
	Functions  []string  `json:"functions,omitempty"`
	Sections   []Section `json:"sections,omitempty"`
}

// Section is a named, line-numbered region of a file.
type Section struct {
	Name string `json:"name"`
	Line int    `json:"line"`
}

// Inspector reads and summarizes source files. It enforces its own size
// ceiling and directory exclusions.
type Inspector struct {
	MaxFileBytes int64
	ExcludedDirs []string
	HeadLines    int
}

// NewInspector creates an inspector with default limits.
func NewInspector() *Inspector {
	return &Inspector{
		MaxFileBytes: 1 << 20, // 1 MiB
		ExcludedDirs: []string{".git", "node_modules", "vendor", "dist", "__pycache__", ".venv"},
		HeadLines:    20,
	}
}

// Preview extracts a mode-specific summary from the file at path.
func (in *Inspector) Preview(path string, mode Mode) (*Preview, error) {
	lines, err := in.readAll(path)
	if err != nil {
		return nil, err
	}

	p := &Preview{
		Path:       path,
		Mode:       mode,
		Language:   detectLanguage(path),
		TotalLines: len(lines),
	}

	switch mode {
	case ModeHead:
		n := in.HeadLines
		if n <= 0 {
			n = 20
		}
		if n > len(lines) {
			n = len(lines)
		}
		p.Head = append(p.Head, lines[:n]...)
	case ModeImports:
		p.Imports = scanImports(lines, p.Language)
	case ModeExports:
		p.Exports = scanExports(lines, p.Language)
	case ModeSignatures:
		p.Signatures = scanSignatures(lines, p.Language)
	case ModeStructure:
		p.Imports = scanImports(lines, p.Language)
		p.Classes, p.Functions, p.Sections = scanStructure(lines, p.Language)
	default:
		return nil, fmt.Errorf("unknown preview mode %q", mode)
	}

	return p, nil
}

// ReadLines returns the text of lines [start, end] (1-based, inclusive) and
// the last line actually read. end past EOF is clamped.
func (in *Inspector) ReadLines(path string, start, end int) (string, int, error) {
	lines, err := in.readAll(path)
	if err != nil {
		return "", 0, err
	}
	if start < 1 {
		start = 1
	}
	if end > len(lines) {
		end = len(lines)
	}
	if start > end {
		return "", 0, nil
	}
	return strings.Join(lines[start-1:end], "\n"), end, nil
}

func (in *Inspector) readAll(path string) ([]string, error) {
	for _, dir := range in.ExcludedDirs {
		if containsPathSegment(path, dir) {
			return nil, fmt.Errorf("path %s is in excluded directory %s", path, dir)
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	if in.MaxFileBytes > 0 && info.Size() > in.MaxFileBytes {
		return nil, fmt.Errorf("%s exceeds size ceiling (%d bytes)", path, in.MaxFileBytes)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return nil, nil
	}
	return strings.Split(text, "\n"), nil
}

func containsPathSegment(path, segment string) bool {
	clean := filepath.ToSlash(path)
	for _, part := range strings.Split(clean, "/") {
		if part == segment {
			return true
		}
	}
	return false
}
