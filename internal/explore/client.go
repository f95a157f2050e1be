package explore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/julianalert/expedition37-sub000/internal/api"
	"github.com/julianalert/expedition37-sub000/internal/catalog"
	"github.com/julianalert/expedition37-sub000/internal/feed"
)

// Client reads the directory API.
type Client struct {
	base string
	http *http.Client
}

// NewClient returns a client for the API rooted at base, e.g.
// http://localhost:8080. A nil hc gets a 10 second timeout.
func NewClient(base string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{base: strings.TrimRight(base, "/"), http: hc}
}

// CountriesPage fetches one page of countries.
func (c *Client) CountriesPage(ctx context.Context, page, limit int) (feed.Page[catalog.Country], string, error) {
	var body catalog.CountryPage
	origin, err := c.get(ctx, "/api/v1/countries/page", pageQuery(page, limit), &body)
	if err != nil {
		return feed.Page[catalog.Country]{}, "", err
	}
	return feed.Page[catalog.Country]{Items: body.Countries, HasMore: body.HasMore, Total: body.Total}, origin, nil
}

// CitiesPage fetches one page of cities.
func (c *Client) CitiesPage(ctx context.Context, page, limit int) (feed.Page[catalog.City], string, error) {
	var body catalog.CityPage
	origin, err := c.get(ctx, "/api/v1/cities/page", pageQuery(page, limit), &body)
	if err != nil {
		return feed.Page[catalog.City]{}, "", err
	}
	return feed.Page[catalog.City]{Items: body.Cities, HasMore: body.HasMore, Total: body.Total}, origin, nil
}

// Countries fetches the full country list, used to resolve city continents.
func (c *Client) Countries(ctx context.Context) ([]catalog.Country, error) {
	var body struct {
		Countries []catalog.Country `json:"countries"`
	}
	if _, err := c.get(ctx, "/api/v1/countries", nil, &body); err != nil {
		return nil, err
	}
	return body.Countries, nil
}

func pageQuery(page, limit int) url.Values {
	return url.Values{"page": {strconv.Itoa(page)}, "limit": {strconv.Itoa(limit)}}
}

// get decodes a JSON response into dst and returns its data origin header.
func (c *Client) get(ctx context.Context, path string, q url.Values, dst any) (string, error) {
	u := c.base + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("building request for %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("requesting %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(b, &apiErr) == nil && apiErr.Error != "" {
			return "", fmt.Errorf("%s: %d %s", path, resp.StatusCode, apiErr.Error)
		}
		return "", fmt.Errorf("%s: unexpected status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return "", fmt.Errorf("decoding %s: %w", path, err)
	}
	return resp.Header.Get(api.OriginHeader), nil
}
