// Package websearch implements the web_search tool: DuckDuckGo instant
// answers for the query, optionally following the best source URL and
// converting its HTML to Markdown so the model can read the page itself.
// Used by the agent to research venues, protocols and token addresses while
// composing a strategy.
package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/parallaxfi/weft/internal/utils"
	"github.com/parallaxfi/weft/providers/tool"
)

const (
	searchEndpoint = "https://api.duckduckgo.com/"
	userAgent      = "weft-websearch/1.0"
	fetchTimeout   = 30 * time.Second
	maxPageSize    = 10 * 1024 * 1024
	maxTopics      = 5
)

// Input is the web_search tool's parameter schema.
type Input struct {
	Query string `json:"query" jsonschema:"description=The search query to look up,required"`
	// FetchPage fetches the best source URL and returns its content as
	// Markdown in addition to the instant-answer summary.
	FetchPage bool `json:"fetch_page,omitempty" jsonschema:"description=Also fetch the top source page and return it as Markdown,optional"`
}

// Output is what the model receives back.
type Output struct {
	Query     string `json:"query" jsonschema:"description=The original search query"`
	Summary   string `json:"summary" jsonschema:"description=Summary of instant answers and related topics"`
	SourceURL string `json:"source_url,omitempty" jsonschema:"description=URL of the fetched source page"`
	Page      string `json:"page,omitempty" jsonschema:"description=Markdown content of the fetched source page"`
}

// New returns the web_search tool.
func New() *tool.Tool[Input, Output] {
	return tool.NewTool("web_search", Search,
		tool.WithDescription("Search the web for protocols, venues, token addresses and market context. Returns instant answers plus related topics; set fetch_page to also read the top source page as Markdown."),
	)
}

// instantAnswer is the subset of the DuckDuckGo instant answer response the
// tool consumes.
type instantAnswer struct {
	AbstractText string `json:"AbstractText"`
	AbstractURL  string `json:"AbstractURL"`
	Answer       string `json:"Answer"`
	Definition   string `json:"Definition"`
	Heading      string `json:"Heading"`
	RelatedTopics []struct {
		Text     string `json:"Text"`
		FirstURL string `json:"FirstURL"`
	} `json:"RelatedTopics"`
}

// Search performs the search and, when requested, reads the best source page.
func Search(ctx context.Context, input Input) (Output, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return Output{}, fmt.Errorf("query cannot be empty")
	}

	answer, err := fetchInstantAnswer(ctx, query)
	if err != nil {
		return Output{}, err
	}

	output := Output{
		Query:   query,
		Summary: summarize(answer),
	}

	if input.FetchPage {
		sourceURL := bestSourceURL(answer)
		if sourceURL != "" {
			markdown, fetchErr := fetchAsMarkdown(ctx, sourceURL)
			if fetchErr == nil {
				output.SourceURL = sourceURL
				output.Page = utils.TruncateString(markdown, 20000)
			}
			// A failed page fetch is not fatal: the summary still answers.
		}
	}

	return output, nil
}

func fetchInstantAnswer(ctx context.Context, query string) (*instantAnswer, error) {
	params := url.Values{}
	params.Add("q", query)
	params.Add("format", "json")
	params.Add("no_html", "1")
	params.Add("skip_disambig", "1")

	request, err := http.NewRequestWithContext(ctx, "GET", searchEndpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	request.Header.Set("User-Agent", userAgent)

	response, err := http.DefaultClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("error making request: %w", err)
	}
	defer utils.CloseWithLog(response.Body)

	if response.StatusCode != http.StatusOK && response.StatusCode != http.StatusAccepted {
		return nil, fmt.Errorf("unexpected status code: %d", response.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(response.Body, maxPageSize))
	if err != nil {
		return nil, fmt.Errorf("error reading response: %w", err)
	}

	var answer instantAnswer
	if err := json.Unmarshal(body, &answer); err != nil {
		return nil, fmt.Errorf("error parsing response: %w", err)
	}
	return &answer, nil
}

func summarize(answer *instantAnswer) string {
	var parts []string
	if answer.AbstractText != "" {
		parts = append(parts, "Abstract: "+answer.AbstractText)
		if answer.AbstractURL != "" {
			parts = append(parts, "Source: "+answer.AbstractURL)
		}
	}
	if answer.Answer != "" {
		parts = append(parts, "Answer: "+answer.Answer)
	}
	if answer.Definition != "" {
		parts = append(parts, "Definition: "+answer.Definition)
	}
	if len(answer.RelatedTopics) > 0 {
		var topics []string
		for i, topic := range answer.RelatedTopics {
			if i >= maxTopics {
				break
			}
			if topic.Text != "" {
				topics = append(topics, topic.Text)
			}
		}
		if len(topics) > 0 {
			parts = append(parts, "Related topics: "+strings.Join(topics, "; "))
		}
	}
	if len(parts) == 0 {
		return "No results found for this query."
	}
	return strings.Join(parts, "\n\n")
}

// bestSourceURL picks the page worth reading: the abstract's source first,
// then the first related topic with a URL.
func bestSourceURL(answer *instantAnswer) string {
	if answer.AbstractURL != "" {
		return answer.AbstractURL
	}
	for _, topic := range answer.RelatedTopics {
		if topic.FirstURL != "" {
			return topic.FirstURL
		}
	}
	return ""
}

func fetchAsMarkdown(ctx context.Context, pageURL string) (string, error) {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	request, err := http.NewRequestWithContext(ctxWithTimeout, "GET", pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	request.Header.Set("User-Agent", userAgent)

	response, err := http.DefaultClient.Do(request)
	if err != nil {
		return "", fmt.Errorf("failed to fetch page: %w", err)
	}
	defer utils.CloseWithLog(response.Body)

	if response.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", response.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(response.Body, maxPageSize))
	if err != nil {
		return "", fmt.Errorf("failed to read page: %w", err)
	}

	markdown, err := htmltomarkdown.ConvertString(string(body))
	if err != nil {
		return "", fmt.Errorf("failed to convert HTML to Markdown: %w", err)
	}
	return markdown, nil
}
