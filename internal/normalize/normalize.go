// Package normalize holds the text canonicalization shared by the filter,
// deduplicator and scorer: cleanup of feed artifacts, tokenization with
// stop-word removal, and the deterministic ids and fingerprints derived
// from it.
package normalize

import (
	"crypto/sha256"
	"encoding/hex"
	"html"
	"regexp"
	"sort"
	"strings"
)

var (
	tagExpr        = regexp.MustCompile(`<[^>]+>`)
	spaceExpr      = regexp.MustCompile(`\s+`)
	utmQueryExpr   = regexp.MustCompile(`[?&]utm_[^&\s]*`)
	punctExpr      = regexp.MustCompile(`[^\p{L}\p{N}\s]`)
	readMoreExpr   = regexp.MustCompile(`(?i)(read more|читать далее|подробнее).*$`)
	trackParamExpr = regexp.MustCompile(`utm_source=[^&\s]*&?`)
)

// stopWords are dropped before similarity comparison. The list covers the
// two languages the configured feeds actually serve.
var stopWords = map[string]struct{}{}

func init() {
	for _, w := range []string{
		"the", "and", "in", "on", "at", "to", "for", "of", "with", "by",
		"from", "up", "about", "a", "an", "is", "are", "was", "were", "be",
		"been", "have", "has", "had", "do", "does", "did", "will", "would",
		"could", "should", "may", "might", "can", "this", "that", "these",
		"those",
		"и", "в", "на", "с", "по", "для", "от", "до", "из", "к", "у", "о",
		"об", "за", "при", "что", "как", "это", "его", "она", "они",
	} {
		stopWords[w] = struct{}{}
	}
}

// CleanText strips HTML tags and entities, collapses whitespace and removes
// common feed artifacts such as tracking parameters and "read more" tails.
func CleanText(text string) string {
	if text == "" {
		return ""
	}

	text = tagExpr.ReplaceAllString(text, " ")
	text = html.UnescapeString(text)
	text = trackParamExpr.ReplaceAllString(text, "")
	text = utmQueryExpr.ReplaceAllString(text, "")
	text = readMoreExpr.ReplaceAllString(text, "")
	text = spaceExpr.ReplaceAllString(text, " ")

	return strings.TrimSpace(text)
}

// Tokens returns the normalized token set of a text: lowercased, punctuation
// stripped, stop-words and very short words removed.
func Tokens(text string) map[string]struct{} {
	cleaned := strings.ToLower(CleanText(text))
	cleaned = punctExpr.ReplaceAllString(cleaned, " ")

	tokens := map[string]struct{}{}
	for _, word := range strings.Fields(cleaned) {
		if len([]rune(word)) <= 2 {
			continue
		}
		if _, stop := stopWords[word]; stop {
			continue
		}
		tokens[word] = struct{}{}
	}

	return tokens
}

// Jaccard computes set similarity in [0,1]. Two empty sets are not similar;
// empty-content items dedup by exact id instead.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	intersection := 0
	for token := range a {
		if _, ok := b[token]; ok {
			intersection++
		}
	}

	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

// ItemID derives the stable item id from source tag and link. Re-fetching
// the same link never produces a new id.
func ItemID(sourceTag, link string) string {
	sum := sha256.Sum256([]byte(sourceTag + "|" + link))
	return hex.EncodeToString(sum[:])[:32]
}

// FingerprintKey hashes the sorted token set of title and body into the
// cache key used by the enrichment cache.
func FingerprintKey(title, body string) string {
	tokens := Tokens(title + " " + body)

	sorted := make([]string, 0, len(tokens))
	for token := range tokens {
		sorted = append(sorted, token)
	}
	sort.Strings(sorted)

	sum := sha256.Sum256([]byte(strings.Join(sorted, " ")))
	return hex.EncodeToString(sum[:])[:16]
}

var sentenceEndExpr = regexp.MustCompile(`([^.!?]*[.!?])`)

// TruncateSentences cuts text to at most max characters on a sentence
// boundary, so degraded summaries never end mid-sentence.
func TruncateSentences(text string, max int) string {
	text = CleanText(text)
	if len(text) <= max {
		return text
	}

	var b strings.Builder
	for _, sentence := range sentenceEndExpr.FindAllString(text, -1) {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		if b.Len()+len(sentence)+1 > max {
			break
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(sentence)
	}

	if b.Len() == 0 {
		runes := []rune(text)
		if len(runes) > max {
			runes = runes[:max]
		}
		return strings.TrimSpace(string(runes))
	}

	return b.String()
}
