package capabilities

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/jarvis/pkg/domain"
	"github.com/aretw0/jarvis/pkg/ports"
	"github.com/aretw0/jarvis/pkg/registry"
)

const webSearchLimit = 3

// WebSearch returns web_search over searcher.
func WebSearch(searcher ports.Searcher) registry.Capability {
	return registry.Capability{
		Descriptor: domain.CapabilityDescriptor{
			Name: "web_search",
			Description: "Search the web for current information: news, weather, prices, " +
				"or anything not in memory.",
			Parameters: schema([]string{"query"}, map[string]any{
				"query": str("The search query."),
			}),
		},
		Invoke: func(ctx context.Context, args map[string]any) (domain.Result, error) {
			var in struct {
				Query string `mapstructure:"query"`
			}
			if err := registry.DecodeArgs(args, &in); err != nil {
				return domain.Result{}, err
			}
			query := strings.TrimSpace(in.Query)
			if query == "" {
				return domain.Failure("query is required"), nil
			}
			results, err := searcher.Search(ctx, query, webSearchLimit)
			if err != nil {
				return domain.Failure(fmt.Sprintf("Error searching the web: %v", err)), nil
			}
			if len(results) == 0 {
				return domain.OK("No search results found."), nil
			}
			return domain.OK(FormatSearchResults(results)), nil
		},
	}
}

// FormatSearchResults renders numbered results with their snippet and source.
func FormatSearchResults(results []domain.SearchResult) string {
	items := make([]string, len(results))
	for i, r := range results {
		title := r.Title
		if title == "" {
			title = "No title"
		}
		items[i] = fmt.Sprintf("%d. %s\n   %s\n   Source: %s", i+1, title, r.Snippet, r.URL)
	}
	return "Web search results:\n\n" + strings.Join(items, "\n\n")
}
