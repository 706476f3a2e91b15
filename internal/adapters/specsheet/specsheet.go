// Package specsheet reads phone spec sheets from GSMArena-style pages and
// turns them into change-form suggestions for smartphone models.
package specsheet

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"

	"github.com/phenrril/myshop/internal/domain"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

type sheet struct{ *domain.SpecSheet }

type Fetcher struct {
	client  *http.Client
	baseURL string
}

// New builds a fetcher against baseURL, https://www.gsmarena.com when empty.
func New(baseURL string) *Fetcher {
	if baseURL == "" {
		baseURL = "https://www.gsmarena.com"
	}
	return &Fetcher{
		client:  &http.Client{Timeout: 15 * time.Second},
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

func (f *Fetcher) get(ctx context.Context, u string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status code: %d", resp.StatusCode)
	}
	return goquery.NewDocumentFromReader(resp.Body)
}

// Search looks query up and reads the sheet of the first result.
func (f *Fetcher) Search(ctx context.Context, query string) (*domain.SpecSheet, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("empty search")
	}
	doc, err := f.get(ctx, f.baseURL+"/results.php3?sQuickSearch=yes&sName="+url.QueryEscape(query))
	if err != nil {
		return nil, err
	}
	href, ok := doc.Find("div.makers a").First().Attr("href")
	if !ok {
		return nil, fmt.Errorf("%w: no device matches %q", domain.ErrNotFound, query)
	}
	return f.Fetch(ctx, f.baseURL+"/"+strings.TrimPrefix(href, "/"))
}

// Fetch reads the spec sheet at pageURL.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (*domain.SpecSheet, error) {
	doc, err := f.get(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	s := Parse(doc)
	s.Source = pageURL
	return s, nil
}

var (
	spaces     = regexp.MustCompile(`\s+`)
	mahRe      = regexp.MustCompile(`(?i)(\d{3,5})\s*mah`)
	ramRe      = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(GB|MB)\s*RAM`)
	storageRe  = regexp.MustCompile(`(?i)(\d+)\s*(GB|TB)\b(?:\s*\d+\s*GB\s*RAM)?`)
	inchesRe   = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:inches|inch|")`)
	dimsRe     = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*x\s*(\d+(?:\.\d+)?)\s*x\s*(\d+(?:\.\d+)?)\s*mm`)
	gramsRe    = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*g\b`)
	btRe       = regexp.MustCompile(`(\d\.\d)`)
	androidRe  = regexp.MustCompile(`(?i)\b(android|ios|windows phone|harmonyos)\b`)
	currencyRe = regexp.MustCompile(`[₹$€£]`)
)

// Parse reads the label/value rows of every table in doc and the device
// photos. The operating system is reported by name only ("Android").
func Parse(doc *goquery.Document) *domain.SpecSheet {
	s := sheet{&domain.SpecSheet{Fields: map[string]any{}}}
	doc.Find("table tr").Each(func(_ int, tr *goquery.Selection) {
		tds := tr.Find("td")
		if tds.Length() < 2 {
			return
		}
		label := strings.ToLower(strings.TrimSpace(tds.First().Text()))
		value := strings.TrimSpace(spaces.ReplaceAllString(tds.Eq(1).Text(), " "))
		if value == "" || currencyRe.MatchString(value) {
			return
		}
		s.apply(label, value)
	})
	doc.Find(".specs-photo-main img, #pictures-list img").Each(func(_ int, img *goquery.Selection) {
		if src, ok := img.Attr("src"); ok && strings.HasPrefix(src, "http") {
			s.addImage(src)
		}
	})
	return s.SpecSheet
}

func (s sheet) apply(label, value string) {
	lower := strings.ToLower(value)
	switch {
	case label == "type" && mahRe.MatchString(value):
		s.Fields["battery_capacity"] = atoi(mahRe.FindStringSubmatch(value)[1])
		switch {
		case strings.Contains(lower, "li-po") || strings.Contains(lower, "polymer"):
			s.Fields["battery_type"] = string(domain.BatteryLithiumPolymer)
		case strings.Contains(lower, "li-ion") || strings.Contains(lower, "ion"):
			s.Fields["battery_type"] = string(domain.BatteryLithiumIon)
		}
	case label == "internal":
		if m := ramRe.FindStringSubmatch(value); m != nil {
			s.Fields["ram_storage"] = megabytes(m[1], m[2])
		}
		for _, part := range strings.Split(value, ",") {
			if m := storageRe.FindStringSubmatch(strings.TrimSpace(part)); m != nil {
				gb := atoi(m[1])
				if strings.EqualFold(m[2], "TB") {
					gb *= 1024
				}
				s.addStorage(gb)
			}
		}
	case label == "size" && inchesRe.MatchString(value):
		s.Fields["screen_size"] = decimal.RequireFromString(inchesRe.FindStringSubmatch(value)[1]).Round(2)
	case label == "dimensions":
		if m := dimsRe.FindStringSubmatch(value); m != nil {
			s.Fields["height"] = decimal.RequireFromString(m[1]).Round(1)
			s.Fields["width"] = decimal.RequireFromString(m[2]).Round(1)
		}
	case label == "weight":
		if m := gramsRe.FindStringSubmatch(value); m != nil {
			s.Fields["weight"] = decimal.RequireFromString(m[1]).Round(1)
		}
	case label == "wlan":
		if strings.HasPrefix(lower, "no") {
			s.Fields["wifi_connectivity"] = string(domain.WifiConnectivities[0])
		} else if strings.Contains(lower, "802.11") {
			s.Fields["wifi_connectivity"] = string(domain.WifiConnectivities[1])
		}
	case label == "bluetooth":
		if strings.HasPrefix(lower, "no") {
			s.Fields["bluetooth"] = string(domain.BluetoothVersions[0])
		} else if m := btRe.FindStringSubmatch(value); m != nil && domain.BluetoothVersion(m[1]).Valid() {
			s.Fields["bluetooth"] = m[1]
		}
	case label == "positioning" || label == "gps":
		s.Fields["gps"] = !strings.HasPrefix(lower, "no")
	case label == "os":
		if m := androidRe.FindStringSubmatch(value); m != nil {
			s.OperatingSystem = canonicalOS(m[1])
		}
	}
}

func (s sheet) addStorage(gb int) {
	for _, x := range s.Storages {
		if x == gb {
			return
		}
	}
	s.Storages = append(s.Storages, gb)
}

func (s sheet) addImage(src string) {
	for _, x := range s.Images {
		if x == src {
			return
		}
	}
	s.Images = append(s.Images, src)
}

func canonicalOS(name string) string {
	switch strings.ToLower(name) {
	case "ios":
		return "iOS"
	case "harmonyos":
		return "HarmonyOS"
	case "windows phone":
		return "Windows Phone"
	}
	return "Android"
}

func megabytes(amount, unit string) int {
	v, err := strconv.ParseFloat(amount, 64)
	if err != nil {
		return 0
	}
	if strings.EqualFold(unit, "GB") {
		v *= 1024
	}
	return int(v)
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
