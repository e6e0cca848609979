package contextpack

import (
	"github.com/zen-systems/localgate/pkg/config"
	"github.com/zen-systems/localgate/pkg/inspect"
)

// sliceMinTokens is the minimum remaining budget before a code slice is
// packed alongside an outline; below it the file stays outline-only.
const sliceMinTokens = 100

// Inspector is the file-introspection contract the packer depends on.
type Inspector interface {
	Preview(path string, mode inspect.Mode) (*inspect.Preview, error)
	ReadLines(path string, start, end int) (string, int, error)
}

// Packer assembles token-budgeted prompts from file context.
type Packer struct {
	inspector Inspector
	maxFiles  int
	maxLines  int
}

// NewPacker creates a packer over the given inspector.
func NewPacker(inspector Inspector, cfg config.PackerConfig) *Packer {
	maxFiles := cfg.MaxFiles
	if maxFiles <= 0 {
		maxFiles = 5
	}
	maxLines := cfg.MaxLinesPerFile
	if maxLines <= 0 {
		maxLines = 80
	}
	return &Packer{inspector: inspector, maxFiles: maxFiles, maxLines: maxLines}
}

// Pack builds a PackedContext for the task within budget. Task text is
// charged first; files are considered in input order up to max_files, each
// packed outline-first and skipped silently when unreadable or too large.
func (p *Packer) Pack(task string, fileRefs []string, budget int) *PackedContext {
	pc := &PackedContext{Task: task, Budget: budget}

	taskTokens := EstimateTokens(task)
	if taskTokens >= budget {
		// Degenerate oversize task: report the whole budget as consumed
		// and pack nothing else.
		pc.TotalTokens = budget
		return pc
	}
	pc.TotalTokens = taskTokens

	refs := fileRefs
	if len(refs) > p.maxFiles {
		refs = refs[:p.maxFiles]
	}

	for _, path := range refs {
		p.packFile(pc, path)
	}
	return pc
}

// Expand builds a new PackedContext under newBudget that keeps every outline
// from previous verbatim and grows slices monotonically: existing slices gain
// lines past their old end, outline-only files gain a first slice.
func (p *Packer) Expand(previous *PackedContext, newBudget int) *PackedContext {
	pc := &PackedContext{
		Task:          previous.Task,
		Budget:        newBudget,
		FilesIncluded: previous.FilesIncluded,
	}

	taskTokens := EstimateTokens(previous.Task)
	if taskTokens >= newBudget {
		// Same degenerate case as Pack: the task alone fills the budget.
		pc.TotalTokens = newBudget
		return pc
	}
	pc.TotalTokens = taskTokens
	pc.Outlines = append(pc.Outlines, previous.Outlines...)
	for i := range pc.Outlines {
		pc.TotalTokens += EstimateTokens(renderOutline(&pc.Outlines[i]))
	}

	prevSlices := make(map[string]*FileSlice, len(previous.Slices))
	for i := range previous.Slices {
		prevSlices[previous.Slices[i].Path] = &previous.Slices[i]
	}

	for i := range pc.Outlines {
		outline := &pc.Outlines[i]
		if old, ok := prevSlices[outline.Path]; ok {
			grown := p.growSlice(outline, old, newBudget-pc.TotalTokens)
			pc.Slices = append(pc.Slices, *grown)
			pc.TotalTokens += grown.Tokens
		} else if newBudget-pc.TotalTokens >= sliceMinTokens {
			if slice := p.firstSlice(outline, newBudget-pc.TotalTokens); slice != nil {
				pc.Slices = append(pc.Slices, *slice)
				pc.TotalTokens += slice.Tokens
			}
		}
	}
	return pc
}

func (p *Packer) packFile(pc *PackedContext, path string) {
	preview, err := p.inspector.Preview(path, inspect.ModeStructure)
	if err != nil {
		return // unreadable files are skipped silently
	}

	outline := FileOutline{
		Path:       path,
		Language:   preview.Language,
		TotalLines: preview.TotalLines,
		Classes:    preview.Classes,
		Functions:  preview.Functions,
		Sections:   preview.Sections,
		Imports:    preview.Imports,
	}

	outlineTokens := EstimateTokens(renderOutline(&outline))
	if pc.TotalTokens+outlineTokens > pc.Budget {
		return // no partial packing: the whole outline fits or the file is skipped
	}
	pc.Outlines = append(pc.Outlines, outline)
	pc.TotalTokens += outlineTokens
	pc.FilesIncluded++

	remaining := pc.Budget - pc.TotalTokens
	if remaining < sliceMinTokens {
		return // outline-only
	}
	if slice := p.firstSlice(&outline, remaining); slice != nil {
		pc.Slices = append(pc.Slices, *slice)
		pc.TotalTokens += slice.Tokens
	}
}

// firstSlice reads the opening lines of a file into a slice that fits within
// allowance, trimming trailing lines if needed. Returns nil when nothing fits.
func (p *Packer) firstSlice(outline *FileOutline, allowance int) *FileSlice {
	end := p.maxLines
	if outline.TotalLines < end {
		end = outline.TotalLines
	}
	if end < 1 {
		return nil
	}
	return p.buildSlice(outline.Path, 1, end, allowance)
}

// growSlice extends an existing slice by reading past its old end. The old
// text is always kept; growth is best effort within allowance.
func (p *Packer) growSlice(outline *FileOutline, old *FileSlice, allowance int) *FileSlice {
	kept := *old
	if old.EndLine >= outline.TotalLines || allowance < sliceMinTokens {
		return &kept
	}

	newEnd := old.EndLine + p.maxLines
	if newEnd > outline.TotalLines {
		newEnd = outline.TotalLines
	}

	for end := newEnd; end > old.EndLine; end-- {
		extra, lastLine, err := p.inspector.ReadLines(outline.Path, old.EndLine+1, end)
		if err != nil {
			return &kept
		}
		grown := FileSlice{
			Path:      old.Path,
			StartLine: old.StartLine,
			EndLine:   lastLine,
			Text:      old.Text + "\n" + extra,
		}
		grown.Tokens = EstimateTokens(renderSlice(&grown))
		if grown.Tokens <= allowance {
			return &grown
		}
	}
	return &kept
}

func (p *Packer) buildSlice(path string, start, end, allowance int) *FileSlice {
	for ; end >= start; end-- {
		text, lastLine, err := p.inspector.ReadLines(path, start, end)
		if err != nil || lastLine == 0 {
			return nil
		}
		slice := FileSlice{Path: path, StartLine: start, EndLine: lastLine, Text: text}
		slice.Tokens = EstimateTokens(renderSlice(&slice))
		if slice.Tokens <= allowance {
			return &slice
		}
	}
	return nil
}
