package reranker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"inquiro/backend/internal/faults"
)

// Client calls an external rerank provider. Rerank returns one relevance
// score per candidate, aligned with the input order; a candidate the
// provider skipped gets NaN so callers can keep its original score.
type Client struct {
	apiKey   string
	provider string
	client   *http.Client
	baseURL  string
}

func NewClient(provider, apiKey string) (*Client, error) {
	if provider != "jina" && provider != "cohere" {
		return nil, faults.Configuration(fmt.Errorf("unknown rerank provider %q", provider))
	}
	if apiKey == "" {
		return nil, faults.Configuration(errors.New("rerank api key not configured"))
	}
	return &Client{
		provider: provider,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 10 * time.Second},
	}, nil
}

func (c *Client) SetBaseURL(url string) {
	c.baseURL = url
}

func (c *Client) Rerank(ctx context.Context, query string, docs []string) ([]float64, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	if c.provider == "cohere" {
		return c.call(ctx, "https://api.cohere.ai/v1/rerank", map[string]interface{}{
			"model":            "rerank-english-v3.0",
			"query":            query,
			"documents":        docs,
			"top_n":            len(docs),
			"return_documents": false,
		}, len(docs))
	}
	return c.call(ctx, "https://api.jina.ai/v1/rerank", map[string]interface{}{
		"model":     "jina-reranker-v1-base-en",
		"query":     query,
		"documents": docs,
	}, len(docs))
}

func (c *Client) call(ctx context.Context, url string, reqBody map[string]interface{}, n int) ([]float64, error) {
	if c.baseURL != "" {
		url = c.baseURL
	}

	jsonBody, _ := json.Marshal(reqBody)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, faults.Transient(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		err := fmt.Errorf("%s api error: %d", c.provider, resp.StatusCode)
		if resp.StatusCode >= 500 {
			return nil, faults.Transient(err)
		}
		return nil, err
	}

	var result struct {
		Results []struct {
			Index int     `json:"index"`
			Score float64 `json:"relevance_score"`
		} `json:"results"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	// Providers return (index, score) pairs and may omit candidates.
	scores := make([]float64, n)
	for i := range scores {
		scores[i] = math.NaN()
	}
	for _, r := range result.Results {
		if r.Index >= 0 && r.Index < n {
			scores[r.Index] = r.Score
		}
	}

	return scores, nil
}
