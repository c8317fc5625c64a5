// Package websearch Tavily 网络搜索，作为 agent 的一个工具使用
package websearch

import (
	"context"
	"time"

	"github.com/Malowking/parlrag/core/config"
	"github.com/Malowking/parlrag/core/errors"
	"github.com/go-resty/resty/v2"
	"github.com/gogf/gf/v2/frame/g"
)

// Result 一条搜索结果
type Result struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score,omitempty"`
}

type searchRequest struct {
	APIKey      string `json:"api_key"`
	Query       string `json:"query"`
	MaxResults  int    `json:"max_results"`
	SearchDepth string `json:"search_depth"`
}

type searchResponse struct {
	Query   string    `json:"query"`
	Results []*Result `json:"results"`
}

// Client Tavily 搜索客户端
type Client struct {
	http       *resty.Client
	apiKey     string
	maxResults int
}

func NewClient(conf config.TavilyConfig) *Client {
	maxResults := conf.MaxResults
	if maxResults <= 0 {
		maxResults = 3
	}
	httpClient := resty.New().
		SetBaseURL(conf.BaseURL).
		SetTimeout(30*time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second)
	httpClient.AddRetryCondition(retryCondition)

	return &Client{http: httpClient, apiKey: conf.APIKey, maxResults: maxResults}
}

// retryCondition 网络错误、限流和服务端错误时重试
func retryCondition(r *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	if r == nil {
		return false
	}
	code := r.StatusCode()
	return code >= 500 || code == 429
}

// Search 按相关性返回至多 maxResults 条结果
func (c *Client) Search(ctx context.Context, query string) ([]*Result, error) {
	var out searchResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(&searchRequest{
			APIKey:      c.apiKey,
			Query:       query,
			MaxResults:  c.maxResults,
			SearchDepth: "basic",
		}).
		SetResult(&out).
		Post("/search")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrWebSearchFailed, "tavily request failed")
	}
	if resp.IsError() {
		return nil, errors.Newf(errors.ErrWebSearchFailed, "tavily returned status %d", resp.StatusCode())
	}

	results := out.Results
	if len(results) > c.maxResults {
		results = results[:c.maxResults]
	}
	g.Log().Infof(ctx, "tavily search: query=%s, results=%d", query, len(results))
	return results, nil
}
