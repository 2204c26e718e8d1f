package online

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/hyperjump/teian/internal/models"
	"github.com/hyperjump/teian/pkg/utils"
)

const defaultWikipediaURL = "https://en.wikipedia.org/w/api.php"

// maxExtractChars bounds the text pulled per article.
const maxExtractChars = 500

// WikipediaGateway searches Wikipedia through the MediaWiki API. Requests are
// rate limited so bursts of suggestion traffic do not hammer the public API.
type WikipediaGateway struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

// WikipediaConfig configures a WikipediaGateway.
type WikipediaConfig struct {
	BaseURL       string // defaults to the public en.wikipedia.org endpoint
	Timeout       time.Duration
	RatePerSecond float64
}

// NewWikipediaGateway creates a gateway against the MediaWiki API.
func NewWikipediaGateway(cfg WikipediaConfig) *WikipediaGateway {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultWikipediaURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	rps := cfg.RatePerSecond
	if rps <= 0 {
		rps = 1.0
	}
	return &WikipediaGateway{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

type wikipediaResponse struct {
	Query struct {
		Pages map[string]struct {
			PageID  int    `json:"pageid"`
			Title   string `json:"title"`
			Extract string `json:"extract"`
			Index   int    `json:"index"`
		} `json:"pages"`
	} `json:"query"`
}

// Search queries the MediaWiki search API and returns article intros as
// results. Failures surface as ErrUnavailable.
func (g *WikipediaGateway) Search(ctx context.Context, query string, maxResults int) ([]models.SearchResult, error) {
	if maxResults <= 0 {
		maxResults = 3
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("action", "query")
	params.Set("format", "json")
	params.Set("generator", "search")
	params.Set("gsrsearch", query)
	params.Set("gsrlimit", strconv.Itoa(maxResults))
	params.Set("prop", "extracts")
	params.Set("exintro", "1")
	params.Set("explaintext", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "teian/1.0 (local retrieval assistant)")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: server returned %d", ErrUnavailable, resp.StatusCode)
	}

	var parsed wikipediaResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}

	// The pages map is unordered; the index field carries search relevance.
	type page struct {
		title   string
		extract string
		index   int
	}
	var pages []page
	for _, p := range parsed.Query.Pages {
		if p.Extract == "" {
			continue
		}
		pages = append(pages, page{title: p.Title, extract: p.Extract, index: p.Index})
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].index < pages[j].index })

	results := make([]models.SearchResult, 0, len(pages))
	for i, p := range pages {
		if i >= maxResults {
			break
		}
		results = append(results, models.SearchResult{
			Text:        utils.Truncate(p.extract, maxExtractChars),
			Score:       relevanceScore(i),
			Source:      models.SourceOnline,
			Attribution: "Wikipedia: " + p.title,
		})
	}
	return results, nil
}

// relevanceScore maps search rank to a descending score below any plausible
// local similarity, keeping online results after local ones on ties.
func relevanceScore(rank int) float64 {
	return 0.5 / float64(rank+1)
}
