package scrape

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// The selectors below mirror the DSFR-based markup of the DREAL ARA site:
// department tiles on the entry page, year tiles per department, paginated
// project cards, and download blocks on project pages.

type departmentLink struct {
	Name string
	URL  string
}

type yearLink struct {
	Subdiv string
	URL    string
}

type projectListing struct {
	ProjectURLs []string
	NextPageURL string
}

type fileLink struct {
	Text string
	URL  string
}

type projectPage struct {
	Title     string
	FileLinks []fileLink
}

func newDocument(page Page) (*goquery.Document, *url.URL, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return nil, nil, fmt.Errorf("parse HTML from %s: %w", page.URL, err)
	}
	base, err := url.Parse(page.FinalURL)
	if err != nil {
		base, err = url.Parse(page.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("parse base URL %s: %w", page.URL, err)
		}
	}
	return doc, base, nil
}

func resolveHref(base *url.URL, href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	abs := base.ResolveReference(ref)
	abs.Fragment = ""
	return abs.String()
}

// parseDepartments extracts the per-department links from the first
// sub-section menu ("Par département") of the entry page.
func parseDepartments(page Page) ([]departmentLink, error) {
	doc, base, err := newDocument(page)
	if err != nil {
		return nil, err
	}

	var out []departmentLink
	menu := doc.Find("#contenu .rubrique_avec_sous-rubriques").First()
	menu.Find(".fr-collapse .lien-sous-rubrique").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Find("a").First().Attr("href")
		if !ok {
			return
		}
		name := strings.TrimSpace(s.Text())
		if abs := resolveHref(base, href); abs != "" {
			out = append(out, departmentLink{Name: name, URL: abs})
		}
	})
	return out, nil
}

// parseYearSections locates the sub-listing matching the target year on a
// department page. A department without a matching year contributes no work.
func parseYearSections(page Page, targetYear int) ([]yearLink, error) {
	doc, base, err := newDocument(page)
	if err != nil {
		return nil, err
	}
	year := fmt.Sprintf("%d", targetYear)

	var out []yearLink
	doc.Find("#contenu .liste-rubriques > div").Each(func(_ int, section *goquery.Selection) {
		switch {
		case section.Find(".rubrique_avec_sous-rubriques").Length() > 0:
			title := strings.TrimSpace(section.Find("p.fr-tile__title").First().Text())
			if title != year {
				return
			}
			section.Find(".fr-collapse a").Each(func(_ int, link *goquery.Selection) {
				href, ok := link.Attr("href")
				if !ok {
					return
				}
				if abs := resolveHref(base, href); abs != "" {
					out = append(out, yearLink{
						Subdiv: strings.TrimSpace(link.Text()),
						URL:    abs,
					})
				}
			})
		case section.Find(".item-liste-rubriques-seule").Length() > 0:
			title := strings.TrimSpace(section.Find(".fr-tile__link").First().Text())
			if title != year {
				return
			}
			href, ok := section.Find("a").First().Attr("href")
			if !ok {
				return
			}
			if abs := resolveHref(base, href); abs != "" {
				out = append(out, yearLink{URL: abs})
			}
		}
	})
	return out, nil
}

// parseProjectListing extracts the project links of one listing page and the
// "next page" link, if any. Pagination terminates when no next link exists.
func parseProjectListing(page Page) (projectListing, error) {
	doc, base, err := newDocument(page)
	if err != nil {
		return projectListing{}, err
	}

	var listing projectListing
	doc.Find("#contenu .liste-articles .fr-card__link").Each(func(_ int, link *goquery.Selection) {
		href, ok := link.Attr("href")
		if !ok {
			return
		}
		if abs := resolveHref(base, href); abs != "" {
			listing.ProjectURLs = append(listing.ProjectURLs, abs)
		}
	})

	next := doc.Find("#contenu .fr-pagination__list .fr-pagination__link--next[href]").First()
	if href, ok := next.Attr("href"); ok {
		listing.NextPageURL = resolveHref(base, href)
	}
	return listing, nil
}

// parseProjectPage extracts the project title and its downloadable file links.
func parseProjectPage(page Page) (projectPage, error) {
	doc, base, err := newDocument(page)
	if err != nil {
		return projectPage{}, err
	}

	result := projectPage{
		Title: strings.TrimSpace(doc.Find("h1.titre-article").First().Text()),
	}
	doc.Find("#contenu div.fr-download a.fr-download__link").Each(func(_ int, link *goquery.Selection) {
		href, ok := link.Attr("href")
		if !ok {
			return
		}
		if abs := resolveHref(base, href); abs != "" {
			result.FileLinks = append(result.FileLinks, fileLink{
				Text: strings.TrimSpace(link.Text()),
				URL:  abs,
			})
		}
	})
	return result, nil
}
