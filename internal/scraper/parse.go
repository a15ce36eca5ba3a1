package scraper

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

// Candidate is one tender listing found on a source page, before
// dedup and storage.
type Candidate struct {
	Title       string
	Description string
	SourceURL   string
	DeadlineStr string
	Location    string
	Sector      string
}

// Listing titles that are not tender notices.
var skipTitleKeywords = []string{"recruitment", "award notice", "results"}

const (
	maxTitleLen       = 500
	maxDescriptionLen = 2000
)

// ParseListings extracts tender candidates from a source page. Three
// strategies run in order, each only when the previous found nothing:
// table rows, article blocks, then bare PDF anchors.
func ParseListings(r io.Reader, baseURL, category string) ([]Candidate, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	candidates := parseTables(doc, baseURL)
	if len(candidates) == 0 {
		candidates = parseArticles(doc, baseURL)
	}
	if len(candidates) == 0 {
		candidates = parsePDFAnchors(doc, baseURL)
	}

	for i := range candidates {
		if candidates[i].Sector == "" {
			if category != "" {
				candidates[i].Sector = category
			} else {
				candidates[i].Sector = GuessSector(candidates[i].Title)
			}
		}
	}
	return candidates, nil
}

// parseTables reads listing tables: title and link in the first cell,
// description in the second, deadline in the third when present.
func parseTables(doc *html.Node, baseURL string) []Candidate {
	var candidates []Candidate
	for _, table := range findAll(doc, "table") {
		rows := findAll(table, "tr")
		if len(rows) < 2 {
			continue
		}
		for _, row := range rows[1:] { // skip header
			cells := findAll(row, "td")
			if len(cells) < 2 {
				continue
			}
			if c, ok := candidateFromRow(cells, baseURL); ok {
				candidates = append(candidates, c)
			}
		}
	}
	return candidates
}

func candidateFromRow(cells []*html.Node, baseURL string) (Candidate, bool) {
	title := extractText(cells[0])
	if len(title) < 5 {
		return Candidate{}, false
	}

	link := findFirst(cells[0], "a")
	if link == nil {
		return Candidate{}, false
	}
	href := attrValue(link, "href")
	if href == "" {
		return Candidate{}, false
	}

	c := Candidate{
		Title:     clipText(title, maxTitleLen),
		SourceURL: absolutize(href, baseURL),
	}
	if len(cells) > 1 {
		c.Description = clipText(extractText(cells[1]), maxDescriptionLen)
	}
	if len(cells) > 2 {
		c.DeadlineStr = extractText(cells[2])
	}
	return c, true
}

// parseArticles reads WordPress-style listing pages: article or div
// blocks whose class hints at a post, each with a linked title.
func parseArticles(doc *html.Node, baseURL string) []Candidate {
	blocks := findAllWithClassHint(doc, []string{"article", "div"},
		"tender", "notice", "procurement", "post", "entry")
	if len(blocks) == 0 {
		blocks = findAll(doc, "h1", "h2", "h3")
	}

	var candidates []Candidate
	for _, block := range blocks {
		link := findFirst(block, "a")
		if link == nil {
			continue
		}
		title := extractText(link)
		if len(title) < 10 || isSkippableTitle(title) {
			continue
		}
		href := attrValue(link, "href")
		if href == "" {
			continue
		}

		c := Candidate{
			Title:     clipText(title, maxTitleLen),
			SourceURL: absolutize(href, baseURL),
		}
		if p := findFirst(block, "p"); p != nil {
			c.Description = clipText(extractText(p), maxDescriptionLen)
		}
		candidates = append(candidates, c)
	}
	return candidates
}

// parsePDFAnchors is the last-resort strategy: every link pointing
// straight at a PDF becomes a candidate.
func parsePDFAnchors(doc *html.Node, baseURL string) []Candidate {
	var candidates []Candidate
	for _, link := range findAll(doc, "a") {
		href := attrValue(link, "href")
		if !strings.HasSuffix(strings.ToLower(href), ".pdf") {
			continue
		}
		title := extractText(link)
		if title == "" {
			parts := strings.Split(href, "/")
			title = parts[len(parts)-1]
		}
		candidates = append(candidates, Candidate{
			Title:     clipText(title, maxTitleLen),
			SourceURL: absolutize(href, baseURL),
		})
	}
	return candidates
}

func isSkippableTitle(title string) bool {
	lower := strings.ToLower(title)
	for _, kw := range skipTitleKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func absolutize(href, baseURL string) string {
	if strings.HasPrefix(href, "http") {
		return href
	}
	return strings.TrimSuffix(baseURL, "/") + "/" + strings.TrimPrefix(href, "/")
}

func clipText(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

// findAll collects every element node matching one of the tags,
// depth-first.
func findAll(n *html.Node, tags ...string) []*html.Node {
	var nodes []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			for _, tag := range tags {
				if n.Data == tag {
					nodes = append(nodes, n)
					break
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return nodes
}

// findAllWithClassHint collects matching elements whose class
// attribute contains any of the hints.
func findAllWithClassHint(n *html.Node, tags []string, hints ...string) []*html.Node {
	var nodes []*html.Node
	for _, node := range findAll(n, tags...) {
		class := strings.ToLower(attrValue(node, "class"))
		for _, hint := range hints {
			if strings.Contains(class, hint) {
				nodes = append(nodes, node)
				break
			}
		}
	}
	return nodes
}

// findFirst returns the first matching descendant element, or nil.
func findFirst(n *html.Node, tag string) *html.Node {
	var found *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found != nil {
			return
		}
		if n.Type == html.ElementNode && n.Data == tag {
			found = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return found
}

func attrValue(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

// extractText concatenates the text nodes under n, collapsing
// whitespace.
func extractText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}
