// Package chunker splits a symbol's source snippet into token-bounded,
// possibly overlapping windows. Small symbols produce a single
// SemanticEntry; large ones are split with a sliding window that always
// advances at least one line.
package chunker

import (
	"fmt"
	"strings"

	"github.com/guvensoft/codectx-mcp/internal/textutil"
	"github.com/guvensoft/codectx-mcp/pkg/types"
)

// Options controls chunk sizing. In New, a zero or negative
// ChunkTokenLimit or CharsPerToken and a negative OverlapTokens are
// replaced by DefaultOptions' values; OverlapTokens 0 means no overlap.
type Options struct {
	ChunkTokenLimit int // target token count per chunk
	OverlapTokens   int // token overlap between consecutive chunks
	CharsPerToken   int // estimator ratio, matches textutil.CharsPerToken
}

// DefaultOptions matches the "embedding sweet spot" sizing the rest of the
// pipeline assumes when the caller doesn't override it.
func DefaultOptions() Options {
	return Options{
		ChunkTokenLimit: 200,
		OverlapTokens:   40,
		CharsPerToken:   textutil.CharsPerToken,
	}
}

// Chunker turns symbol line-ranges into SemanticEntry records.
type Chunker struct {
	opts Options
}

// New builds a Chunker; out-of-range fields in opts fall back to
// DefaultOptions as described on Options.
func New(opts Options) *Chunker {
	d := DefaultOptions()
	if opts.ChunkTokenLimit <= 0 {
		opts.ChunkTokenLimit = d.ChunkTokenLimit
	}
	if opts.OverlapTokens < 0 {
		opts.OverlapTokens = d.OverlapTokens
	}
	if opts.CharsPerToken <= 0 {
		opts.CharsPerToken = d.CharsPerToken
	}
	return &Chunker{opts: opts}
}

// ChunkSymbol slices sym's snippet out of the file's lines (1-based,
// inclusive) and returns one or more SemanticEntry records covering it. A
// symbol whose whole snippet fits under ChunkTokenLimit yields a single
// entry with id "<file>:<symbol>"; a larger one yields "<file>:<symbol>:chunkN"
// entries for N = 0, 1, ...
func (c *Chunker) ChunkSymbol(lines []string, sym types.Symbol) []types.SemanticEntry {
	start := sym.StartLine - 1
	end := sym.EndLine - 1
	if start < 0 {
		start = 0
	}
	if end >= len(lines) {
		end = len(lines) - 1
	}
	if start > end {
		return nil
	}
	symLines := lines[start : end+1]

	windows := c.windows(symLines)
	entries := make([]types.SemanticEntry, 0, len(windows))
	for i, w := range windows {
		text := strings.Join(symLines[w[0]:w[1]+1], "\n")
		id := fmt.Sprintf("%s:%s", sym.File, sym.Name)
		if len(windows) > 1 {
			id = fmt.Sprintf("%s:chunk%d", id, i)
		}
		entries = append(entries, types.SemanticEntry{
			ID:        id,
			File:      sym.File,
			Symbol:    sym.Name,
			StartLine: sym.StartLine + w[0],
			EndLine:   sym.StartLine + w[1],
			Text:      text,
		})
	}
	return entries
}

// windows returns [start,end] line-index pairs (relative to lines, both
// inclusive) covering lines with a sliding token-bounded window. Each
// window after the first backs up by OverlapTokens worth of trailing
// lines, but always advances by at least one line from the previous
// window's start.
func (c *Chunker) windows(lines []string) [][2]int {
	var out [][2]int
	idx := 0
	for idx < len(lines) {
		tokens := 0
		end := idx
		for end < len(lines) {
			lineTokens := c.estimateTokens(lines[end])
			if end > idx && tokens+lineTokens > c.opts.ChunkTokenLimit {
				break
			}
			tokens += lineTokens
			end++
		}
		end--
		if end < idx {
			end = idx
		}
		out = append(out, [2]int{idx, end})

		if end+1 >= len(lines) {
			break
		}

		next := c.backOffByOverlap(lines, idx, end)
		if next <= idx {
			next = idx + 1
		}
		idx = next
	}
	return out
}

// backOffByOverlap walks backward from end toward idx accumulating token
// cost, stopping once OverlapTokens worth of trailing lines have been
// covered; it returns the first line index that should start the next
// window.
func (c *Chunker) backOffByOverlap(lines []string, idx, end int) int {
	if c.opts.OverlapTokens <= 0 {
		return end + 1
	}
	backTokens := 0
	j := end
	for j > idx {
		backTokens += c.estimateTokens(lines[j])
		if backTokens >= c.opts.OverlapTokens {
			break
		}
		j--
	}
	return j
}

func (c *Chunker) estimateTokens(line string) int {
	n := (len(line) + c.opts.CharsPerToken - 1) / c.opts.CharsPerToken
	if n < 1 {
		n = 1
	}
	return n
}
