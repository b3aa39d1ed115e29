// Package extract infers article records from search-results pages whose
// markup has no stable schema.
package extract

import (
	"regexp"
	"strings"

	"github.com/owldoor/door-news/internal/models"
	"github.com/owldoor/door-news/internal/processing"
)

// Rules tune link classification and the ancestor walk.
type Rules struct {
	// BlockedFragments reject links that point back into the search engine.
	BlockedFragments []string
	// Boilerplate rejects link texts that are navigation, not headlines.
	Boilerplate       []string
	MinTitleLen       int
	MinDescriptionLen int
	MaxDepth          int
	MaxTitleLen       int
	MaxDescriptionLen int
}

// DefaultRules returns the rules tuned for Naver news search.
func DefaultRules() Rules {
	return Rules{
		BlockedFragments: []string{
			"search.naver.com",
			"help.naver.com",
			"nid.naver.com",
			"mkt.naver.com",
			"navercorp.com",
			"news.naver.com/main/static",
			"channelPromotion",
		},
		Boilerplate:       []string{"언론사 선정", "언론사가 선정한"},
		MinTitleLen:       20,
		MinDescriptionLen: 30,
		MaxDepth:          8,
		MaxTitleLen:       150,
		MaxDescriptionLen: 300,
	}
}

// Extractor turns a search-results document into candidate articles.
type Extractor struct {
	rules Rules
}

// New builds an Extractor. Zero numeric fields fall back to DefaultRules.
func New(rules Rules) *Extractor {
	def := DefaultRules()
	if rules.MinTitleLen <= 0 {
		rules.MinTitleLen = def.MinTitleLen
	}
	if rules.MinDescriptionLen <= 0 {
		rules.MinDescriptionLen = def.MinDescriptionLen
	}
	if rules.MaxDepth <= 0 {
		rules.MaxDepth = def.MaxDepth
	}
	if rules.MaxTitleLen <= 0 {
		rules.MaxTitleLen = def.MaxTitleLen
	}
	if rules.MaxDescriptionLen <= 0 {
		rules.MaxDescriptionLen = def.MaxDescriptionLen
	}
	return &Extractor{rules: rules}
}

var absoluteDate = regexp.MustCompile(`\d{4}\.`)

// slots holds the fields filled during the ancestor walk.
type slots struct {
	description string
	thumbnail   string
	source      string
	date        string
}

func (s *slots) full() bool {
	return s.description != "" && s.thumbnail != "" && s.source != "" && s.date != ""
}

// Extract returns one candidate per distinct news link, in document order.
// Source, date, thumbnail and description may be empty; the keyword is left
// for the caller.
func (e *Extractor) Extract(root Node) []models.Article {
	if root == nil {
		return nil
	}

	seen := make(map[string]struct{})
	var out []models.Article

	for _, link := range findAll(root, isTag("a")) {
		href := link.Attr("href")
		text := trimmedText(link)
		if !e.isNewsLink(href, text) {
			continue
		}
		if _, dup := seen[href]; dup {
			continue
		}
		seen[href] = struct{}{}

		s := e.walk(link, text)

		source := NormalizeSource(s.source)
		if source == "" {
			source = SourceFromURL(href)
		}

		out = append(out, models.Article{
			Title:       processing.Truncate(text, e.rules.MaxTitleLen),
			URL:         href,
			Description: processing.Truncate(s.description, e.rules.MaxDescriptionLen),
			Source:      source,
			Date:        NormalizeDate(s.date),
			Thumbnail:   s.thumbnail,
		})
	}

	return out
}

func (e *Extractor) isNewsLink(href, text string) bool {
	if !strings.HasPrefix(href, "http") {
		return false
	}
	for _, frag := range e.rules.BlockedFragments {
		if strings.Contains(href, frag) {
			return false
		}
	}
	if processing.RuneLen(text) <= e.rules.MinTitleLen {
		return false
	}
	for _, phrase := range e.rules.Boilerplate {
		if strings.Contains(text, phrase) {
			return false
		}
	}
	return true
}

// walk climbs at most MaxDepth ancestors of link. Each slot keeps the first
// value found; later levels only fill slots that are still empty.
func (e *Extractor) walk(link Node, linkText string) slots {
	var s slots
	parent := link.Parent()
	for i := 0; i < e.rules.MaxDepth && parent != nil; i++ {
		if s.description == "" {
			s.description = e.description(parent, linkText)
		}
		if s.thumbnail == "" {
			s.thumbnail = thumbnail(parent)
		}
		if s.source == "" {
			if el := findFirst(parent, classContains("press", "source")); el != nil {
				s.source = trimmedText(el)
			}
		}
		if s.date == "" {
			s.date = date(parent)
		}
		if s.full() {
			break
		}
		parent = parent.Parent()
	}
	return s
}

func (e *Extractor) description(container Node, linkText string) string {
	el := findFirst(container, classContains("dsc", "desc"))
	if el == nil {
		return ""
	}
	text := trimmedText(el)
	if processing.RuneLen(text) > e.rules.MinDescriptionLen && text != linkText {
		return text
	}
	return ""
}

// thumbnail only looks at the first image below container.
func thumbnail(container Node) string {
	img := findFirst(container, isTag("img"))
	if img == nil {
		return ""
	}
	src := img.Attr("data-lazysrc")
	if src == "" {
		src = img.Attr("src")
	}
	if src == "" || strings.Contains(src, "data:image") || strings.Contains(src, "blank") || !strings.HasPrefix(src, "http") {
		return ""
	}
	return src
}

// date returns the last info/date/time element at this level that looks like a timestamp.
func date(container Node) string {
	var found string
	for _, el := range findAll(container, classContains("info", "date", "time")) {
		t := trimmedText(el)
		if strings.Contains(t, "전") || strings.Contains(t, "일") || absoluteDate.MatchString(t) {
			found = t
		}
	}
	return found
}
