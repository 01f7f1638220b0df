package tools

import (
	"context"
	"encoding/json"
)

// collegeSites restricts knowledge searches to a partner college's web site
// when the model supplies a college hint.
var collegeSites = map[string]string{
	"allied":      "alliedinstitute.edu.au",
	"paragon":     "paragonpolytechnic.edu.au",
	"hilton":      "hiltonacademy.edu.au",
	"collins":     "collinsacademy.edu.au",
	"future":      "futureenglish.edu.au",
	"everthought": "everthought.edu.au",
}

// Retriever is the knowledge-retrieval backend behind the search tool.
type Retriever interface {
	Search(ctx context.Context, query, site string) (string, error)
}

// SearchTool answers free-form questions by searching the knowledge base.
type SearchTool struct {
	retriever Retriever
}

// NewSearchTool creates a SearchTool over the given retriever.
func NewSearchTool(retriever Retriever) *SearchTool {
	return &SearchTool{retriever: retriever}
}

func (t *SearchTool) Name() string { return string(ToolSearchKnowledge) }

func (t *SearchTool) Description() string {
	return "Search Laurus Education's knowledge base for relevant information to help you answer the user's enquiries."
}

func (t *SearchTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"query": {
				"type": "string",
				"description": "Query used to search the knowledge base"
			},
			"college": {
				"type": "string",
				"description": "Restrict the search to one partner college's web site",
				"enum": ["allied", "paragon", "hilton", "collins", "future", "everthought"]
			}
		},
		"required": ["query"]
	}`)
}

func (t *SearchTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	query, err := requireString(params, "query")
	if err != nil {
		return "", err
	}

	site := ""
	if college, ok := params["college"].(string); ok {
		site = collegeSites[college]
	}

	return t.retriever.Search(ctx, query, site)
}
