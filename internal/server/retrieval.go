package server

import (
	"bytes"
	"fmt"
	"hash/fnv"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

const (
	chunkWords   = 120
	chunkOverlap = 20
)

var fallbackAnswers = []string{
	"I could not find that in the uploaded documents. Try rephrasing your question or ask an administrator to upload the relevant material.",
	"None of the current documents cover that topic yet.",
	"I don't have enough information in the document library to answer that.",
}

var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "what": {}, "who": {}, "how": {},
	"when": {}, "where": {}, "which": {}, "with": {}, "this": {}, "that": {},
	"does": {}, "from": {}, "can": {}, "you": {}, "about": {}, "las": {}, "los": {},
	"del": {}, "que": {}, "una": {}, "como": {}, "para": {}, "por": {},
}

type chunk struct {
	docID    int
	filename string
	text     string
	terms    map[string]int
}

// Index is a keyword index over uploaded document text.
type Index struct {
	mu     sync.RWMutex
	chunks map[int][]chunk
}

func NewIndex() *Index {
	return &Index{chunks: make(map[int][]chunk)}
}

// Add indexes a document. Content that yields no text is skipped.
func (ix *Index) Add(docID int, filename string, content []byte) error {
	text, err := extractText(filename, content)
	if err != nil {
		return err
	}
	var chunks []chunk
	for _, part := range chunkText(text, chunkWords, chunkOverlap) {
		chunks = append(chunks, chunk{docID: docID, filename: filename, text: part, terms: termCounts(part)})
	}
	ix.mu.Lock()
	ix.chunks[docID] = chunks
	ix.mu.Unlock()
	return nil
}

func (ix *Index) Remove(docID int) {
	ix.mu.Lock()
	delete(ix.chunks, docID)
	ix.mu.Unlock()
}

// Len returns the number of indexed chunks.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	n := 0
	for _, c := range ix.chunks {
		n += len(c)
	}
	return n
}

// Answer returns the best matching passage, or a canned reply chosen
// deterministically from the query when nothing matches. matched is false
// for canned replies.
func (ix *Index) Answer(query string) (answer string, matched bool) {
	terms := termCounts(query)
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	var best *chunk
	bestScore := 0
	ids := make([]int, 0, len(ix.chunks))
	for id := range ix.chunks {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		for i := range ix.chunks[id] {
			c := &ix.chunks[id][i]
			score := 0
			for t := range terms {
				score += c.terms[t]
			}
			if score > bestScore {
				best, bestScore = c, score
			}
		}
	}
	if best != nil {
		return fmt.Sprintf("According to %s: %s", best.filename, best.text), true
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(strings.TrimSpace(query))))
	return fallbackAnswers[h.Sum32()%uint32(len(fallbackAnswers))], false
}

func extractText(filename string, content []byte) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return extractPDF(content)
	default:
		if !utf8.Valid(content) {
			return "", nil
		}
		return normalizeText(string(content)), nil
	}
}

func extractPDF(content []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Skip problematic pages instead of failing entirely
			continue
		}
		sb.WriteString(text)
		sb.WriteByte(' ')
	}
	return normalizeText(sb.String()), nil
}

func normalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func chunkText(text string, size, overlap int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if overlap >= size {
		overlap = 0
	}
	var out []string
	for start := 0; start < len(words); start += size - overlap {
		end := start + size
		if end > len(words) {
			end = len(words)
		}
		out = append(out, strings.Join(words[start:end], " "))
		if end == len(words) {
			break
		}
	}
	return out
}

func termCounts(s string) map[string]int {
	counts := make(map[string]int)
	for _, w := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if utf8.RuneCountInString(w) < 3 {
			continue
		}
		if _, skip := stopwords[w]; skip {
			continue
		}
		counts[w]++
	}
	return counts
}
