package research

import (
	"net/url"
	"sort"
	"strings"

	"github.com/mikeboe/scholar-agent/pkg/search"
)

// Curate deduplicates raw hits by domain, scores them against the query
// and returns at most topN sources ordered by score descending. The first
// hit seen for a domain wins the dedup slot regardless of score, and the
// sort is stable so equal scores keep provider order.
func Curate(query string, hits []search.Result, topN int) []CuratedSource {
	seen := make(map[string]bool)
	curated := make([]CuratedSource, 0, len(hits))

	for _, h := range hits {
		d := Domain(h.URL)
		if seen[d] {
			continue
		}
		seen[d] = true
		curated = append(curated, CuratedSource{
			Title:   h.Title,
			URL:     h.URL,
			Snippet: h.Snippet,
			Score:   scoreHit(query, h.Title, h.Snippet, h.URL),
		})
	}

	sort.SliceStable(curated, func(i, j int) bool {
		return curated[i].Score > curated[j].Score
	})

	if topN >= 0 && len(curated) > topN {
		curated = curated[:topN]
	}
	return curated
}

// Domain extracts the URL host, lower-cased, with a leading "www."
// stripped. Unparseable or host-less URLs key on the raw string so that
// distinct garbage inputs do not collapse into one dedup bucket.
func Domain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	host := strings.ToLower(u.Host)
	return strings.TrimPrefix(host, "www.")
}

// scoreHit counts distinct query tokens appearing as substrings of the
// hit's title+snippet text, plus a 0.5 authority bonus for .edu/.gov
// domains.
func scoreHit(query, title, snippet, rawURL string) float64 {
	text := normalizeText(title + " " + snippet)

	tokens := make(map[string]bool)
	for _, t := range strings.Fields(normalizeText(query)) {
		tokens[t] = true
	}

	var score float64
	for t := range tokens {
		if strings.Contains(text, t) {
			score++
		}
	}

	d := Domain(rawURL)
	if strings.HasSuffix(d, ".edu") || strings.HasSuffix(d, ".gov") {
		score += 0.5
	}
	return score
}

func normalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
