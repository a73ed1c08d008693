// Package extract reads the bookable-unit count from a rendered listing page.
package extract

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/availmon/internal/monitor"
)

// Defaults match the filter sidebar of the Holland2Stay residences listing.
const (
	DefaultLabelSelector = "label.checkbox_container"
	DefaultMarkerPhrase  = "Available to book"
)

// Nine digits always fit in an int, so Atoi cannot overflow.
var countPattern = regexp.MustCompile(`\((\d{1,9})\)`)

// Config controls which element the extractor inspects.
type Config struct {
	LabelSelector string
	MarkerPhrase  string
}

// Extractor implements monitor.Extractor with goquery.
type Extractor struct {
	selector string
	marker   string
}

// New builds an Extractor, falling back to the defaults for empty fields.
func New(cfg Config) *Extractor {
	selector := strings.TrimSpace(cfg.LabelSelector)
	if selector == "" {
		selector = DefaultLabelSelector
	}
	marker := cfg.MarkerPhrase
	if strings.TrimSpace(marker) == "" {
		marker = DefaultMarkerPhrase
	}
	return &Extractor{selector: selector, marker: marker}
}

// Extract scans the configured labels for the marker phrase and returns the
// first parenthesized integer in that label's text.
func (e *Extractor) Extract(html []byte) monitor.Reading {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return monitor.Reading{}
	}

	var reading monitor.Reading
	doc.Find(e.selector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := sel.Text()
		if !strings.Contains(text, e.marker) {
			return true
		}
		reading = parseLabel(text)
		return false
	})
	return reading
}

func parseLabel(text string) monitor.Reading {
	reading := monitor.Reading{Found: true, Label: strings.Join(strings.Fields(text), " ")}
	match := countPattern.FindStringSubmatch(text)
	if match == nil {
		return reading
	}
	count, err := strconv.Atoi(match[1])
	if err != nil {
		return reading
	}
	reading.Count = count
	return reading
}
