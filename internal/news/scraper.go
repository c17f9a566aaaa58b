package news

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"aurum/internal/logger"
)

// Item 单条新闻摘要，随上下文注入决策提示词。
type Item struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Source  string `json:"source"`
	Date    string `json:"date"`
	Snippet string `json:"snippet"`
}

// SourceConfig 描述一个新闻站点及其抽取选择器。
type SourceConfig struct {
	Name      string
	BaseURL   string
	ListPath  string
	Selectors ArticleSelectors
	RateLimit time.Duration
}

type ArticleSelectors struct {
	ArticleContainer string
	Title            string
	URL              string
	Snippet          string
	PublishedAt      string
}

// Scraper 抓取多个加密货币新闻站点的头条。
type Scraper struct {
	sources []SourceConfig
	timeout time.Duration
}

func NewScraper(timeout time.Duration) *Scraper {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Scraper{
		sources: defaultSources(),
		timeout: timeout,
	}
}

func defaultSources() []SourceConfig {
	return []SourceConfig{
		{
			Name:     "CoinDesk",
			BaseURL:  "https://www.coindesk.com",
			ListPath: "/markets",
			Selectors: ArticleSelectors{
				ArticleContainer: "div.bg-white article, article",
				Title:            "h2 a, h3 a, a.headline",
				URL:              "h2 a, h3 a, a.headline",
				Snippet:          "p",
				PublishedAt:      "time",
			},
			RateLimit: 2 * time.Second,
		},
		{
			Name:     "Cointelegraph",
			BaseURL:  "https://cointelegraph.com",
			ListPath: "/tags/bitcoin",
			Selectors: ArticleSelectors{
				ArticleContainer: "article.post-card-inline",
				Title:            "span.post-card-inline__title",
				URL:              "a.post-card-inline__title-link",
				Snippet:          "p.post-card-inline__text",
				PublishedAt:      "time",
			},
			RateLimit: 2 * time.Second,
		},
	}
}

// Fetch 抓取各来源头条，合并后裁剪到 maxItems。全部来源失败时返回错误，
// 供上游归类为必需信号缺失。
func (s *Scraper) Fetch(ctx context.Context, maxItems int) ([]Item, error) {
	if maxItems <= 0 {
		maxItems = 5
	}
	perSource := maxItems/len(s.sources) + 1

	var all []Item
	var lastErr error
	for _, src := range s.sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		items, err := s.scrapeSource(src, perSource)
		if err != nil {
			logger.Warnf("新闻抓取失败 source=%s err=%v", src.Name, err)
			lastErr = err
			continue
		}
		all = append(all, items...)
		time.Sleep(src.RateLimit)
	}
	if len(all) == 0 {
		if lastErr == nil {
			lastErr = fmt.Errorf("no news articles extracted")
		}
		return nil, lastErr
	}
	if len(all) > maxItems {
		all = all[:maxItems]
	}
	logger.Infof("新闻抓取完成 items=%d", len(all))
	return all, nil
}

func (s *Scraper) scrapeSource(src SourceConfig, maxItems int) ([]Item, error) {
	var items []Item

	c := colly.NewCollector(
		colly.AllowedDomains(hostOf(src.BaseURL)),
		colly.MaxDepth(1),
		colly.Async(false),
	)
	c.SetRequestTimeout(s.timeout)
	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	})

	c.OnHTML(src.Selectors.ArticleContainer, func(e *colly.HTMLElement) {
		if len(items) >= maxItems {
			return
		}
		title := strings.TrimSpace(e.ChildText(src.Selectors.Title))
		if title == "" {
			return
		}
		link := strings.TrimSpace(e.ChildAttr(src.Selectors.URL, "href"))
		if link != "" && strings.HasPrefix(link, "/") {
			link = src.BaseURL + link
		}
		items = append(items, Item{
			Title:   title,
			Link:    link,
			Source:  src.Name,
			Date:    strings.TrimSpace(e.ChildAttr(src.Selectors.PublishedAt, "datetime")),
			Snippet: trimSnippet(e.ChildText(src.Selectors.Snippet)),
		})
	})

	if err := c.Visit(src.BaseURL + src.ListPath); err != nil {
		return nil, err
	}
	c.Wait()
	return items, nil
}

func trimSnippet(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	const maxLen = 280
	if len(text) > maxLen {
		return text[:maxLen]
	}
	return text
}

func hostOf(base string) string {
	u, err := url.Parse(base)
	if err != nil {
		return ""
	}
	return u.Host
}
