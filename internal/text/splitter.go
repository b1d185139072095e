// Package text builds the two-level chunk hierarchy used by indexing and
// retrieval. Documents are split into large parent windows for answer
// context and small overlapping child passages for scoring.
package text

import "strings"

type ChunkType string

const (
	ChunkTypeParent ChunkType = "parent"
	ChunkTypeChild  ChunkType = "child"
	ChunkTypeWindow ChunkType = "window"
)

// Chunk is a built passage prior to persistence. ParentIndex refers to the
// position of the owning parent chunk in the returned slice, or -1 for
// parent chunks themselves.
type Chunk struct {
	Index       int
	Type        ChunkType
	Content     string
	TokenCount  int
	ParentIndex int
}

type SplitOptions struct {
	ParentSize   int // target parent window size in chars
	ChildSize    int // target child passage size in chars
	ChildOverlap int // overlap between consecutive children in chars
}

func DefaultSplitOptions() SplitOptions {
	return SplitOptions{
		ParentSize:   4000,
		ChildSize:    500,
		ChildOverlap: 150,
	}
}

// EstimateTokens approximates token count at ~4 chars per token.
func EstimateTokens(s string) int {
	return len(s) / 4
}

type lineKind int

const (
	lineText lineKind = iota
	lineHeading
	lineFence
	lineBlank
)

type line struct {
	kind lineKind
	text string
}

// block is a semantic unit: one heading, one paragraph, or one complete
// fenced code block. Blocks are never split, so fence parity inside a block
// is always even and chunk boundaries can only fall between blocks.
type block struct {
	content string
	heading bool
	fenced  bool
}

// Split builds the parent/child hierarchy for a document. The walk honors
// headings and paragraph breaks, and a fenced code block always lands whole
// inside a single chunk: a block larger than the target size is emitted
// oversized rather than split.
func Split(text string, opts SplitOptions) []Chunk {
	if opts.ParentSize <= 0 || opts.ChildSize <= 0 {
		opts = DefaultSplitOptions()
	}
	if opts.ChildOverlap >= opts.ChildSize {
		opts.ChildOverlap = opts.ChildSize / 3
	}

	blocks := lexBlocks(text)
	if len(blocks) == 0 {
		return nil
	}

	windows := groupWindows(blocks, opts.ParentSize)

	var chunks []Chunk
	for _, win := range windows {
		parentContent := joinBlocks(win)
		parentIdx := len(chunks)
		chunks = append(chunks, Chunk{
			Index:       len(chunks),
			Type:        ChunkTypeParent,
			Content:     parentContent,
			TokenCount:  EstimateTokens(parentContent),
			ParentIndex: -1,
		})

		for _, childBlocks := range groupChildren(win, opts.ChildSize, opts.ChildOverlap) {
			content := joinBlocks(childBlocks)
			chunks = append(chunks, Chunk{
				Index:       len(chunks),
				Type:        ChunkTypeChild,
				Content:     content,
				TokenCount:  EstimateTokens(content),
				ParentIndex: parentIdx,
			})
		}
	}

	return chunks
}

func lexLine(s string) line {
	trimmed := strings.TrimSpace(s)
	switch {
	case trimmed == "":
		return line{kind: lineBlank, text: s}
	case strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~"):
		return line{kind: lineFence, text: s}
	case isHeading(trimmed):
		return line{kind: lineHeading, text: s}
	default:
		return line{kind: lineText, text: s}
	}
}

func isHeading(trimmed string) bool {
	n := 0
	for n < len(trimmed) && trimmed[n] == '#' {
		n++
	}
	return n >= 1 && n <= 6 && n < len(trimmed) && (trimmed[n] == ' ' || trimmed[n] == '\t')
}

// lexBlocks tokenizes input lines and assembles them into semantic blocks.
// Inside a fence, heading and blank lines are ordinary content; the fence
// closes on the next fence marker or at end of input.
func lexBlocks(text string) []block {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var blocks []block
	var para []string
	var fence []string
	inFence := false

	flushPara := func() {
		if len(para) == 0 {
			return
		}
		content := strings.TrimRight(strings.Join(para, "\n"), "\n")
		if strings.TrimSpace(content) != "" {
			blocks = append(blocks, block{content: content})
		}
		para = nil
	}

	for _, raw := range strings.Split(text, "\n") {
		l := lexLine(raw)

		if inFence {
			fence = append(fence, raw)
			if l.kind == lineFence {
				blocks = append(blocks, block{content: strings.Join(fence, "\n"), fenced: true})
				fence = nil
				inFence = false
			}
			continue
		}

		switch l.kind {
		case lineFence:
			flushPara()
			fence = []string{raw}
			inFence = true
		case lineHeading:
			flushPara()
			blocks = append(blocks, block{content: strings.TrimRight(raw, " \t"), heading: true})
		case lineBlank:
			flushPara()
		default:
			para = append(para, raw)
		}
	}

	// Unterminated fence runs to end of input and stays one block.
	if inFence && len(fence) > 0 {
		blocks = append(blocks, block{content: strings.Join(fence, "\n"), fenced: true})
	}
	flushPara()

	return blocks
}

// groupWindows packs blocks into parent-sized windows. A heading starts a
// fresh window once the current one is half full, so sections tend to stay
// together. An oversized block becomes a window of its own.
func groupWindows(blocks []block, parentSize int) [][]block {
	var windows [][]block
	var current []block
	currentLen := 0

	flush := func() {
		if len(current) > 0 {
			windows = append(windows, current)
			current = nil
			currentLen = 0
		}
	}

	for _, b := range blocks {
		bLen := len(b.content)

		if b.heading && currentLen >= parentSize/2 {
			flush()
		}
		if currentLen > 0 && currentLen+bLen+1 > parentSize {
			flush()
		}

		current = append(current, b)
		currentLen += bLen + 1
	}
	flush()

	return windows
}

// groupChildren packs a parent window's blocks into child passages. A new
// child is seeded with the trailing blocks of the previous one, up to the
// overlap budget, so context spans passage boundaries. Overlap is whole
// blocks only, which keeps fence parity intact.
func groupChildren(win []block, childSize, overlap int) [][]block {
	var children [][]block
	var current []block
	currentLen := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		children = append(children, current)

		var seed []block
		seedLen := 0
		for i := len(current) - 1; i >= 0; i-- {
			bLen := len(current[i].content)
			if seedLen+bLen > overlap {
				break
			}
			seed = append([]block{current[i]}, seed...)
			seedLen += bLen
		}
		// An overlap seed that covers the whole previous child would emit
		// duplicates forever; drop it.
		if len(seed) == len(current) {
			seed = nil
			seedLen = 0
		}
		current = seed
		currentLen = seedLen
	}

	for _, b := range win {
		bLen := len(b.content)
		if currentLen > 0 && currentLen+bLen+1 > childSize {
			flush()
		}
		current = append(current, b)
		currentLen += bLen + 1
	}
	if len(current) > 0 {
		children = append(children, current)
	}

	// Drop trailing children that are pure overlap repeats of the previous
	// child (possible when the window ends right after a flush).
	return dedupeTail(children)
}

func dedupeTail(children [][]block) [][]block {
	if len(children) < 2 {
		return children
	}
	last := joinBlocks(children[len(children)-1])
	prev := joinBlocks(children[len(children)-2])
	if strings.HasSuffix(prev, last) {
		return children[:len(children)-1]
	}
	return children
}

func joinBlocks(blocks []block) string {
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		parts = append(parts, b.content)
	}
	return strings.Join(parts, "\n\n")
}

// FenceBalanced reports whether s contains an even number of fence markers.
// Used by tests and ingestion validation.
func FenceBalanced(s string) bool {
	count := 0
	for _, raw := range strings.Split(s, "\n") {
		trimmed := strings.TrimSpace(raw)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			count++
		}
	}
	return count%2 == 0
}
