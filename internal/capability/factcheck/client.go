// Package factcheck implements ClaimLookup against the Google Fact Check
// Tools claims:search endpoint.
package factcheck

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	commonhttp "vigil-workers/internal/common/http"
	"vigil-workers/internal/models"
)

const cacheKeyPrefix = "vigil:claim:"

// noMatch is cached for queries that returned no claims.
const noMatch = "none"

type Config struct {
	BaseURL      string
	APIKey       string
	LanguageCode string
	CacheTTL     time.Duration
}

type Logger interface {
	Warn(msg string, fields map[string]interface{})
}

type Client struct {
	config *Config
	http   *commonhttp.Client
	redis  *redis.Client
	logger Logger
}

// NewClient builds the lookup. rdb may be nil to disable caching.
func NewClient(config *Config, httpClient *commonhttp.Client, rdb *redis.Client, log Logger) *Client {
	return &Client{config: config, http: httpClient, redis: rdb, logger: log}
}

type searchResponse struct {
	Claims []struct {
		Text        string `json:"text"`
		Claimant    string `json:"claimant"`
		ClaimReview []struct {
			URL           string `json:"url"`
			TextualRating string `json:"textualRating"`
		} `json:"claimReview"`
	} `json:"claims"`
}

// Lookup returns the first review of the first matching claim, or nil when
// nothing matches.
func (c *Client) Lookup(ctx context.Context, query string) (*models.ClaimMatch, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	key := cacheKey(query)
	if match, ok := c.fromCache(ctx, key); ok {
		return match, nil
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("languageCode", c.config.LanguageCode)
	if c.config.APIKey != "" {
		params.Set("key", c.config.APIKey)
	}

	var resp searchResponse
	if err := c.http.GetJSON(ctx, c.config.BaseURL, params, &resp); err != nil {
		return nil, fmt.Errorf("claims search: %w", err)
	}

	var match *models.ClaimMatch
	if len(resp.Claims) > 0 {
		claim := resp.Claims[0]
		match = &models.ClaimMatch{
			Text:     claim.Text,
			Claimant: claim.Claimant,
		}
		if len(claim.ClaimReview) > 0 {
			match.Rating = claim.ClaimReview[0].TextualRating
			match.URL = claim.ClaimReview[0].URL
		}
	}

	c.toCache(ctx, key, match)
	return match, nil
}

func cacheKey(query string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	sum := sha1.Sum([]byte(normalized))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}

func (c *Client) fromCache(ctx context.Context, key string) (*models.ClaimMatch, bool) {
	if c.redis == nil {
		return nil, false
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.warn("claim cache read failed", key, err)
		}
		return nil, false
	}
	if val == noMatch {
		return nil, true
	}
	var match models.ClaimMatch
	if err := json.Unmarshal([]byte(val), &match); err != nil {
		c.warn("claim cache entry unreadable", key, err)
		return nil, false
	}
	return &match, true
}

func (c *Client) toCache(ctx context.Context, key string, match *models.ClaimMatch) {
	if c.redis == nil {
		return
	}
	val := noMatch
	if match != nil {
		data, err := json.Marshal(match)
		if err != nil {
			return
		}
		val = string(data)
	}
	if err := c.redis.Set(ctx, key, val, c.config.CacheTTL).Err(); err != nil {
		c.warn("claim cache write failed", key, err)
	}
}

func (c *Client) warn(msg, key string, err error) {
	if c.logger != nil {
		c.logger.Warn(msg, map[string]interface{}{"key": key, "error": err.Error()})
	}
}
