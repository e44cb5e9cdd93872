package sources

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"dealersync/server/internal/models"
)

// HTMLAdapter extracts listings from dealer-site detail pages. Field
// extraction is regex-per-field from the vendor rules; link discovery and
// image collection walk the document with goquery.
//
// One Parse call handles one detail page and yields at most one listing.
type HTMLAdapter struct {
	mu    sync.Mutex
	rules map[string]*regexp.Regexp // compiled per vendor+field
	links map[string]*regexp.Regexp
}

func NewHTMLAdapter() (*HTMLAdapter, error) {
	return &HTMLAdapter{
		rules: make(map[string]*regexp.Regexp),
		links: make(map[string]*regexp.Regexp),
	}, nil
}

func (a *HTMLAdapter) fieldRule(vendor *models.VendorConfig, field, expr string) (*regexp.Regexp, error) {
	key := fmt.Sprintf("%d/%s", vendor.ID, field)
	a.mu.Lock()
	defer a.mu.Unlock()
	if re, ok := a.rules[key]; ok {
		return re, nil
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("vendor %s field %s: %w", vendor.Name, field, err)
	}
	a.rules[key] = re
	return re, nil
}

func (a *HTMLAdapter) linkRule(vendor *models.VendorConfig) (*regexp.Regexp, error) {
	key := fmt.Sprintf("%d", vendor.ID)
	a.mu.Lock()
	defer a.mu.Unlock()
	if re, ok := a.links[key]; ok {
		return re, nil
	}
	re, err := regexp.Compile(vendor.LinkPattern)
	if err != nil {
		return nil, fmt.Errorf("vendor %s link pattern: %w", vendor.Name, err)
	}
	a.links[key] = re
	return re, nil
}

// ListingLinks extracts canonical detail-page URLs from one listing page.
// Query-parameterized URLs (sort/filter permutations) are rejected so the
// same listing never shows up under several addresses.
func (a *HTMLAdapter) ListingLinks(doc []byte, vendor *models.VendorConfig) ([]string, error) {
	linkRe, err := a.linkRule(vendor)
	if err != nil {
		return nil, err
	}
	page, err := goquery.NewDocumentFromReader(bytes.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("parse listing page: %w", err)
	}
	base, err := url.Parse(vendor.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("vendor %s base url: %w", vendor.Name, err)
	}

	seen := make(map[string]struct{})
	var links []string
	page.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
			return
		}
		u, err := base.Parse(href)
		if err != nil {
			return
		}
		if u.RawQuery != "" || u.Host != base.Host {
			return
		}
		if !linkRe.MatchString(u.Path) {
			return
		}
		u.Fragment = ""
		abs := u.String()
		if _, dup := seen[abs]; dup {
			return
		}
		seen[abs] = struct{}{}
		links = append(links, abs)
	})
	return links, nil
}

// Parse extracts one listing from a detail page. A page that yields no
// identifiable listing is a parse failure; the caller logs it and moves on.
func (a *HTMLAdapter) Parse(doc []byte, vendor *models.VendorConfig) ([]models.RawListing, error) {
	return a.parsePage(doc, vendor, "")
}

// ParseDetail is Parse with the fetched URL attached to the listing.
func (a *HTMLAdapter) ParseDetail(doc []byte, vendor *models.VendorConfig, sourceURL string) ([]models.RawListing, error) {
	return a.parsePage(doc, vendor, sourceURL)
}

func (a *HTMLAdapter) parsePage(doc []byte, vendor *models.VendorConfig, sourceURL string) ([]models.RawListing, error) {
	body := string(doc)
	fields := make(map[string]string, len(vendor.Rules))
	for field, expr := range vendor.Rules {
		re, err := a.fieldRule(vendor, field, expr)
		if err != nil {
			return nil, err
		}
		m := re.FindStringSubmatch(body)
		if len(m) >= 2 {
			fields[field] = strings.TrimSpace(stripTags(m[1]))
		}
	}

	page, err := goquery.NewDocumentFromReader(bytes.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("parse detail page: %w", err)
	}
	images := collectImages(page, vendor.BaseURL)

	raw, err := buildListing(fields, images, vendor, sourceURL)
	if err != nil {
		return nil, err
	}
	return []models.RawListing{raw}, nil
}

func collectImages(page *goquery.Document, baseURL string) []string {
	base, err := url.Parse(baseURL)
	if err != nil {
		base = nil
	}
	var images []string
	page.Find("img").Each(func(_ int, sel *goquery.Selection) {
		src, ok := sel.Attr("data-src")
		if !ok || strings.TrimSpace(src) == "" {
			src, _ = sel.Attr("src")
		}
		src = strings.TrimSpace(src)
		if src == "" || strings.HasPrefix(src, "data:") {
			return
		}
		if base != nil {
			if u, err := base.Parse(src); err == nil {
				src = u.String()
			}
		}
		images = append(images, src)
	})
	return images
}

var tagRe = regexp.MustCompile(`<[^>]+>`)

func stripTags(s string) string {
	return strings.TrimSpace(tagRe.ReplaceAllString(s, " "))
}
