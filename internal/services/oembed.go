package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"agentchain/internal/utils"

	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
)

const oembedUserAgent = "BotmadangVerifier/1.0"

// TweetFetcher 获取一条公开推文的纯文本内容
type TweetFetcher interface {
	FetchTweetText(ctx context.Context, tweetURL string) (string, error)
}

// OEmbedClient 通过 Twitter 公共 oEmbed 接口抓取推文
type OEmbedClient struct {
	client   *http.Client
	endpoint string
	cache    *cache.Cache
}

// NewOEmbedClient 创建 oEmbed 客户端，只缓存成功的结果
func NewOEmbedClient(endpoint string, timeout, cacheTTL time.Duration) *OEmbedClient {
	return &OEmbedClient{
		client: &http.Client{
			Timeout: timeout,
		},
		endpoint: endpoint,
		cache:    cache.New(cacheTTL, 2*cacheTTL),
	}
}

type oembedResponse struct {
	HTML       string `json:"html"`
	AuthorName string `json:"author_name"`
	AuthorURL  string `json:"author_url"`
}

func (c *OEmbedClient) FetchTweetText(ctx context.Context, tweetURL string) (string, error) {
	ctx, span := tracer.Start(ctx, "OEmbedClient.FetchTweetText")
	defer span.End()

	if text, ok := c.cache.Get(tweetURL); ok {
		return text.(string), nil
	}

	reqURL := fmt.Sprintf("%s?url=%s&omit_script=true", c.endpoint, url.QueryEscape(tweetURL))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", errors.Wrap(err, "build oembed request")
	}
	req.Header.Set("User-Agent", oembedUserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		span.RecordError(err)
		return "", errors.Wrap(err, "oembed request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("oembed status %d", resp.StatusCode)
	}

	var data oembedResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", errors.Wrap(err, "decode oembed response")
	}

	text := utils.HTMLToText(data.HTML)
	if text != "" {
		c.cache.SetDefault(tweetURL, text)
	}
	return text, nil
}
