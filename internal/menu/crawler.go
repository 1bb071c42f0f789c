package menu

import (
	"bytes"
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

const defaultMaxDepth = 2

// Finder walks a restaurant website breadth-first looking for a menu link.
// It never leaves the site's origin and stops at the first hit.
type Finder struct {
	fetcher    Fetcher
	classifier *Classifier
	maxDepth   int
	logger     *zap.Logger
}

// FinderConfig tunes the crawl.
type FinderConfig struct {
	MaxDepth   int
	Keywords   []string
	Exclusions []string
}

// NewFinder builds a Finder. A zero MaxDepth falls back to the default.
func NewFinder(fetcher Fetcher, cfg FinderConfig, logger *zap.Logger) *Finder {
	if logger == nil {
		logger = zap.NewNop()
	}
	maxDepth := cfg.MaxDepth
	if maxDepth <= 0 {
		maxDepth = defaultMaxDepth
	}
	return &Finder{
		fetcher:    fetcher,
		classifier: NewClassifier(cfg.Keywords, cfg.Exclusions),
		maxDepth:   maxDepth,
		logger:     logger,
	}
}

type crawlItem struct {
	pageURL string
	depth   int
}

// FindMenu returns the absolute URL of the first link on the site that
// looks like a menu, or "" when none is found within the depth limit.
// Fetch and parse faults on individual pages are logged and skipped; the
// only error returned is context cancellation.
func (f *Finder) FindMenu(ctx context.Context, websiteURL string) (string, error) {
	root, err := url.Parse(strings.TrimSpace(websiteURL))
	if err != nil || root.Host == "" || (root.Scheme != "http" && root.Scheme != "https") {
		f.logger.Debug("skipping unusable website url", zap.String("url", websiteURL))
		return "", nil
	}

	start, err := NormalizeURL(root.String())
	if err != nil {
		return "", nil
	}

	visited := map[string]bool{start: true}
	queue := []crawlItem{{pageURL: start, depth: 0}}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		item := queue[0]
		queue = queue[1:]

		page, err := f.fetcher.Fetch(ctx, item.pageURL)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			f.logger.Debug("page fetch failed",
				zap.String("url", item.pageURL), zap.Error(err))
			continue
		}

		if page.ContentType != "" && !strings.Contains(strings.ToLower(page.ContentType), "html") {
			continue
		}

		hit, children := f.scanPage(root, page)
		if hit != "" {
			return hit, nil
		}
		if item.depth >= f.maxDepth {
			continue
		}
		for _, child := range children {
			if visited[child] {
				continue
			}
			visited[child] = true
			queue = append(queue, crawlItem{pageURL: child, depth: item.depth + 1})
		}
	}
	return "", nil
}

// scanPage extracts anchors from one document. Off-origin anchors are
// discarded before classification, and the first anchor that classifies
// in document order is the hit.
func (f *Finder) scanPage(root *url.URL, page Page) (hit string, children []string) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		f.logger.Debug("page parse failed",
			zap.String("url", page.URL), zap.Error(err))
		return "", nil
	}

	base, err := url.Parse(page.URL)
	if err != nil {
		return "", nil
	}

	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, _ := sel.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") ||
			strings.HasPrefix(strings.ToLower(href), "mailto:") ||
			strings.HasPrefix(strings.ToLower(href), "tel:") ||
			strings.HasPrefix(strings.ToLower(href), "javascript:") {
			return true
		}

		ref, err := url.Parse(href)
		if err != nil {
			return true
		}
		abs := base.ResolveReference(ref)
		if abs.Scheme != "http" && abs.Scheme != "https" {
			return true
		}
		if !sameOrigin(root, abs) {
			return true
		}

		if f.classifier.IsMenuLink(href, sel.Text()) {
			hit = abs.String()
			return false
		}

		if strings.HasSuffix(strings.ToLower(abs.Path), ".pdf") {
			return true
		}
		normalized, err := NormalizeURL(abs.String())
		if err == nil {
			children = append(children, normalized)
		}
		return true
	})

	return hit, children
}
