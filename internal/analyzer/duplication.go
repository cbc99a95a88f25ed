package analyzer

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/zeebo/blake3"

	"github.com/augurhq/augur/pkg/models"
	"github.com/augurhq/augur/pkg/parser"
)

const (
	signatureSize = 64 // MinHash signature length
	lshBands      = 16 // bands of signatureSize/lshBands rows each
	shingleK      = 3  // tokens per shingle
)

// DuplicationAnalyzer finds near-duplicate functions across files using
// MinHash signatures with LSH candidate banding, verified by Jaccard
// similarity over normalized token shingles.
type DuplicationAnalyzer struct {
	minLines   int
	similarity float64
}

// DuplicationOption configures a DuplicationAnalyzer.
type DuplicationOption func(*DuplicationAnalyzer)

// WithDuplicationMinLines sets the minimum fragment length considered.
func WithDuplicationMinLines(n int) DuplicationOption {
	return func(a *DuplicationAnalyzer) {
		if n > 0 {
			a.minLines = n
		}
	}
}

// WithDuplicationSimilarity sets the verified Jaccard similarity threshold.
func WithDuplicationSimilarity(s float64) DuplicationOption {
	return func(a *DuplicationAnalyzer) {
		if s > 0 && s <= 1 {
			a.similarity = s
		}
	}
}

// NewDuplicationAnalyzer creates a duplication analyzer.
func NewDuplicationAnalyzer(opts ...DuplicationOption) *DuplicationAnalyzer {
	a := &DuplicationAnalyzer{minLines: 6, similarity: 0.8}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *DuplicationAnalyzer) Name() string              { return "duplication" }
func (a *DuplicationAnalyzer) Category() models.Category { return models.CategoryDuplication }

func (a *DuplicationAnalyzer) Languages() []models.Language {
	return []models.Language{models.LangPython, models.LangJavaScript, models.LangTypeScript}
}

// Analyze handles the single-file case; duplicates within one file are
// still duplicates.
func (a *DuplicationAnalyzer) Analyze(ctx context.Context, in *Input) ([]models.Issue, error) {
	return a.AnalyzeBatch(ctx, []*Input{in})
}

// fragment is one candidate unit of duplicated code.
type fragment struct {
	file      string
	name      string
	startLine uint32
	endLine   uint32
	shingles  map[uint64]bool
	signature [signatureSize]uint64
}

// AnalyzeBatch extracts function fragments from every input, buckets
// MinHash signatures with LSH, and reports verified duplicate pairs.
func (a *DuplicationAnalyzer) AnalyzeBatch(ctx context.Context, inputs []*Input) ([]models.Issue, error) {
	var fragments []*fragment
	for _, in := range inputs {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		fragments = append(fragments, a.extractFragments(in)...)
	}
	if len(fragments) < 2 {
		return nil, nil
	}

	// LSH banding: fragments sharing any band signature become candidates.
	candidates := make(map[[2]int]bool)
	rows := signatureSize / lshBands
	for band := 0; band < lshBands; band++ {
		buckets := make(map[string][]int)
		for i, f := range fragments {
			h := blake3.New()
			for r := 0; r < rows; r++ {
				v := f.signature[band*rows+r]
				h.Write([]byte{byte(v >> 56), byte(v >> 48), byte(v >> 40), byte(v >> 32),
					byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)})
			}
			key := string(h.Sum(nil)[:16])
			buckets[key] = append(buckets[key], i)
		}
		for _, members := range buckets {
			for i := 0; i < len(members); i++ {
				for j := i + 1; j < len(members); j++ {
					candidates[[2]int{members[i], members[j]}] = true
				}
			}
		}
	}

	// Verify candidates with exact Jaccard similarity. Pairs are walked
	// in fragment index order so repeated runs emit identical issue lists.
	pairs := make([][2]int, 0, len(candidates))
	for pair := range candidates {
		pairs = append(pairs, pair)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i][0] != pairs[j][0] {
			return pairs[i][0] < pairs[j][0]
		}
		return pairs[i][1] < pairs[j][1]
	})

	var issues []models.Issue
	reported := make(map[string]bool)
	for _, pair := range pairs {
		f1, f2 := fragments[pair[0]], fragments[pair[1]]
		sim := jaccard(f1.shingles, f2.shingles)
		if sim < a.similarity {
			continue
		}
		for _, side := range [][2]*fragment{{f1, f2}, {f2, f1}} {
			this, other := side[0], side[1]
			key := fmt.Sprintf("%s:%d->%s:%d", this.file, this.startLine, other.file, other.startLine)
			if reported[key] {
				continue
			}
			reported[key] = true

			iss := models.NewIssue(models.CategoryDuplication, "duplicate_code", models.SeverityMedium,
				fmt.Sprintf("Function %s duplicates %s (%s:%d)", this.name, other.name, other.file, other.startLine),
				models.Location{
					File:      this.file,
					StartLine: this.startLine,
					EndLine:   this.endLine,
					Function:  this.name,
				})
			iss.Confidence = sim
			iss.Description = fmt.Sprintf("%.0f%% similar over %d lines", sim*100, this.endLine-this.startLine+1)
			iss.Suggestions = []string{"Extract the shared logic into one function"}
			issues = append(issues, iss)
		}
	}
	return issues, nil
}

// extractFragments pulls function-level fragments meeting the length floor.
func (a *DuplicationAnalyzer) extractFragments(in *Input) []*fragment {
	parsed, err := in.Parsed()
	if err != nil {
		return nil
	}

	var fragments []*fragment
	for _, fn := range parser.GetFunctions(parsed) {
		if int(fn.EndLine-fn.StartLine)+1 < a.minLines {
			continue
		}
		tokens := normalizeTokens(parser.GetNodeText(fn.Node, parsed.Source))
		if len(tokens) < shingleK {
			continue
		}

		f := &fragment{
			file:      in.File.Path,
			name:      fn.Name,
			startLine: fn.StartLine,
			endLine:   fn.EndLine,
			shingles:  shingleSet(tokens),
		}
		f.signature = minhashSignature(f.shingles)
		fragments = append(fragments, f)
	}
	return fragments
}

var tokenRe = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*|\d+(?:\.\d+)?|"(?:[^"\\]|\\.)*"|'(?:[^'\\]|\\.)*'|[{}()\[\];,.:=<>!+\-*/%&|^~?]+`)

var codeKeywords = makeSet([]string{
	"if", "else", "elif", "for", "while", "return", "def", "class", "function",
	"const", "let", "var", "import", "from", "export", "try", "except", "catch",
	"finally", "raise", "throw", "with", "async", "await", "yield", "lambda",
	"switch", "case", "break", "continue", "new", "in", "of", "not", "and", "or",
	"true", "false", "null", "none", "this", "self", "pass", "do",
})

// normalizeTokens maps identifiers and literals to placeholder tokens so
// renamed clones still match. Keywords and operators pass through.
func normalizeTokens(text string) []string {
	raw := tokenRe.FindAllString(text, -1)
	tokens := make([]string, 0, len(raw))
	for _, tok := range raw {
		switch {
		case tok[0] == '"' || tok[0] == '\'':
			tokens = append(tokens, "LIT")
		case tok[0] >= '0' && tok[0] <= '9':
			tokens = append(tokens, "NUM")
		case codeKeywords[strings.ToLower(tok)]:
			tokens = append(tokens, strings.ToLower(tok))
		case tok[0] == '_' || (tok[0] >= 'A' && tok[0] <= 'Z') || (tok[0] >= 'a' && tok[0] <= 'z'):
			tokens = append(tokens, "VAR")
		default:
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

// shingleSet hashes k-token windows into a shingle set.
func shingleSet(tokens []string) map[uint64]bool {
	shingles := make(map[uint64]bool)
	for i := 0; i+shingleK <= len(tokens); i++ {
		h := blake3.New()
		for _, tok := range tokens[i : i+shingleK] {
			h.Write([]byte(tok))
			h.Write([]byte{0})
		}
		sum := h.Sum(nil)
		var v uint64
		for b := 0; b < 8; b++ {
			v = v<<8 | uint64(sum[b])
		}
		shingles[v] = true
	}
	return shingles
}

// minhashSignature computes a MinHash signature using xxhash-seeded
// permutations of the shingle values.
func minhashSignature(shingles map[uint64]bool) [signatureSize]uint64 {
	var sig [signatureSize]uint64
	for i := range sig {
		sig[i] = ^uint64(0)
	}
	var buf [16]byte
	for shingle := range shingles {
		for i := 0; i < signatureSize; i++ {
			for b := 0; b < 8; b++ {
				buf[b] = byte(shingle >> (8 * b))
				buf[8+b] = byte(uint64(i) >> (8 * b))
			}
			if h := xxhash.Sum64(buf[:]); h < sig[i] {
				sig[i] = h
			}
		}
	}
	return sig
}

// jaccard computes set similarity of two shingle sets.
func jaccard(a, b map[uint64]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	var intersection int
	for v := range small {
		if large[v] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}
