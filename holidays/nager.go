/*
Package holidays provides budget.HolidaySource implementations.

SOURCES:
  NagerSource   public holidays from a Nager.Date compatible HTTP API
  StaticSource  a fixed list, for tests, offline setups and seeding

JURISDICTIONS:
  A jurisdiction is an ISO 3166-1 country code ("DE") or a subdivision
  code ("DE-BY"). For a subdivision, nationwide holidays are kept plus the
  regional ones that list the subdivision in "counties".
*/
package holidays

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/warp/budget-engine/budget"
)

// DefaultBaseURL is the public Nager.Date endpoint.
const DefaultBaseURL = "https://date.nager.at"

// NagerSource fetches holidays over HTTP.
type NagerSource struct {
	baseURL string
	client  *http.Client
}

// NewNagerSource creates a source. An empty baseURL uses DefaultBaseURL and
// a nil client gets a 10s timeout.
func NewNagerSource(baseURL string, client *http.Client) *NagerSource {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &NagerSource{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

// publicHoliday is one element of the /PublicHolidays response.
type publicHoliday struct {
	Date        string   `json:"date"`
	LocalName   string   `json:"localName"`
	Name        string   `json:"name"`
	CountryCode string   `json:"countryCode"`
	Global      bool     `json:"global"`
	Counties    []string `json:"counties"`
}

// Fetch implements budget.HolidaySource.
func (s *NagerSource) Fetch(ctx context.Context, jurisdiction string, year int) ([]budget.Date, error) {
	country, region := splitJurisdiction(jurisdiction)
	if country == "" {
		return nil, &budget.ValidationError{Field: "jurisdiction", Message: "must not be empty"}
	}

	url := fmt.Sprintf("%s/api/v3/PublicHolidays/%d/%s", s.baseURL, year, country)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch holidays %s/%d: %w", country, year, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNoContent:
		// unknown country code
		return []budget.Date{}, nil
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fetch holidays %s/%d: status %d: %s", country, year, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload []publicHoliday
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode holidays: %w", err)
	}
	return filterHolidays(payload, region)
}

func filterHolidays(payload []publicHoliday, region string) ([]budget.Date, error) {
	dates := make([]budget.Date, 0, len(payload))
	for _, h := range payload {
		if !appliesTo(h, region) {
			continue
		}
		d, err := budget.ParseDate(h.Date)
		if err != nil {
			return nil, fmt.Errorf("holiday %q: %w", h.Name, err)
		}
		dates = append(dates, d)
	}
	return dates, nil
}

func appliesTo(h publicHoliday, region string) bool {
	if h.Global || len(h.Counties) == 0 {
		return true
	}
	if region == "" {
		return false
	}
	for _, c := range h.Counties {
		if strings.EqualFold(c, region) {
			return true
		}
	}
	return false
}

// splitJurisdiction returns ("DE", "DE-BY") for "de-by" and ("DE", "") for "DE".
func splitJurisdiction(j string) (country, region string) {
	j = strings.ToUpper(strings.TrimSpace(j))
	if j == "" {
		return "", ""
	}
	if i := strings.IndexByte(j, '-'); i > 0 {
		return j[:i], j
	}
	return j, ""
}
