// Package chunker provides a boundary-aware text chunker.
//
// Content that fits in one chunk is returned whole. Longer content is cut
// at the best natural boundary found by searching backwards from the naive
// cut point: a paragraph break, then a sentence end followed by a capital,
// then any period, then a space, and finally a hard cut. Consecutive chunks
// overlap so context is not lost at the seams. All sizes and offsets count
// characters (runes), not bytes.
package chunker

import (
	"unicode"

	"github.com/custodia-labs/overlayc/internal/core/domain"
	"github.com/custodia-labs/overlayc/internal/core/ports/driven"
)

// Ensure Processor implements the interface.
var _ driven.Chunker = (*Processor)(nil)

// Defaults, in characters.
const (
	DefaultMaxChunkSize   = 1000
	DefaultOverlap        = 100
	DefaultMinChunkSize   = 200
	DefaultBoundaryWindow = 100
)

// Processor splits entry content into overlapping chunks.
type Processor struct {
	maxSize int
	overlap int
	minSize int
	window  int

	// fixed disables the boundary search: every cut is a hard cut.
	fixed bool
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithMaxChunkSize sets the maximum chunk length.
func WithMaxChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.maxSize = size
		}
	}
}

// WithOverlap sets the overlap between consecutive chunks.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// WithMinChunkSize sets the floor below which a trailing chunk is merged
// into its predecessor.
func WithMinChunkSize(size int) Option {
	return func(p *Processor) {
		if size >= 0 {
			p.minSize = size
		}
	}
}

// WithBoundaryWindow sets how far back from the naive cut a boundary is
// searched for.
func WithBoundaryWindow(window int) Option {
	return func(p *Processor) {
		if window > 0 {
			p.window = window
		}
	}
}

// WithFixedSize disables the boundary search so chunks are cut at exactly
// the maximum size.
func WithFixedSize() Option {
	return func(p *Processor) {
		p.fixed = true
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		maxSize: DefaultMaxChunkSize,
		overlap: DefaultOverlap,
		minSize: DefaultMinChunkSize,
		window:  DefaultBoundaryWindow,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Overlap must leave room to advance.
	if p.overlap >= p.maxSize {
		p.overlap = p.maxSize / 4
	}
	if p.minSize > p.maxSize {
		p.minSize = p.maxSize
	}
	if p.minSize < 1 {
		p.minSize = 1
	}

	return p
}

// Name returns the chunker name.
func (p *Processor) Name() string {
	if p.fixed {
		return "fixed"
	}
	return "boundary"
}

// MaxChunkSize returns the effective maximum chunk length.
func (p *Processor) MaxChunkSize() int { return p.maxSize }

// Overlap returns the effective overlap.
func (p *Processor) Overlap() int { return p.overlap }

// MinChunkSize returns the effective minimum chunk length.
func (p *Processor) MinChunkSize() int { return p.minSize }

type span struct {
	start, end int
}

// Chunk splits the entry content. Empty content yields no chunks.
func (p *Processor) Chunk(entry *domain.ContentEntry) []domain.Chunk {
	if entry.Content == "" {
		return nil
	}

	runes := []rune(entry.Content)
	spans := p.split(runes)

	chunks := make([]domain.Chunk, len(spans))
	for i, s := range spans {
		chunks[i] = domain.Chunk{
			OverlayID:   entry.ID,
			ChunkIndex:  i,
			TotalChunks: len(spans),
			Content:     string(runes[s.start:s.end]),
			StartOffset: s.start,
			EndOffset:   s.end,
		}
	}
	return chunks
}

func (p *Processor) split(runes []rune) []span {
	n := len(runes)
	if n <= p.maxSize {
		return []span{{0, n}}
	}

	spans := make([]span, 0, n/(p.maxSize-p.overlap)+1)
	pos := 0
	for pos < n {
		end := pos + p.maxSize
		if end >= n {
			end = n
		} else {
			end = p.boundary(runes, pos, end)
		}
		spans = append(spans, span{pos, end})
		if end == n {
			break
		}

		next := end - p.overlap
		if next <= pos {
			next = end
		}
		pos = next
	}

	// A short tail is folded into the chunk before it.
	if last := len(spans) - 1; last > 0 && spans[last].end-spans[last].start < p.minSize {
		spans[last-1].end = spans[last].end
		spans = spans[:last]
	}
	return spans
}

// boundary returns the cut position for a chunk starting at pos whose naive
// end is naive. The cut is never closer to pos than the minimum chunk size.
func (p *Processor) boundary(runes []rune, pos, naive int) int {
	lower := naive - p.window
	if floor := pos + p.minSize; lower < floor {
		lower = floor
	}
	if p.fixed || lower > naive {
		return naive
	}

	for _, match := range []func(r []rune, cut int) bool{
		isParagraphBreak,
		isSentenceBreak,
		isPeriod,
		isSpace,
	} {
		for cut := naive; cut >= lower; cut-- {
			if match(runes, cut) {
				return cut
			}
		}
	}
	return naive
}

// isParagraphBreak: the chunk ends right after a blank line.
func isParagraphBreak(r []rune, cut int) bool {
	return cut >= 2 && r[cut-2] == '\n' && r[cut-1] == '\n'
}

// isSentenceBreak: the next chunk starts at a capital letter that follows
// sentence punctuation and a space.
func isSentenceBreak(r []rune, cut int) bool {
	if cut < 2 || cut >= len(r) {
		return false
	}
	switch r[cut-2] {
	case '.', '!', '?':
		return r[cut-1] == ' ' && unicode.IsUpper(r[cut])
	}
	return false
}

func isPeriod(r []rune, cut int) bool {
	return cut >= 1 && r[cut-1] == '.'
}

func isSpace(r []rune, cut int) bool {
	return cut >= 1 && r[cut-1] == ' '
}
