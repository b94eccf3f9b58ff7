package index

type esSource struct {
	Content string `json:"content"`
	Path    string `json:"path"`
}

type esHit struct {
	ID     string   `json:"_id"`
	Score  float64  `json:"_score"`
	Source esSource `json:"_source"`
}

type esSearchResponse struct {
	ScrollID string `json:"_scroll_id"`
	Hits     struct {
		Hits []*esHit `json:"hits"`
	} `json:"hits"`
}

type esError struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

type esErrorResponse struct {
	Error  esError `json:"error"`
	Status int     `json:"status"`
}

type esBulkItem struct {
	ID     string   `json:"_id"`
	Status int      `json:"status"`
	Result string   `json:"result"`
	Error  *esError `json:"error,omitempty"`
}

type esBulkResponse struct {
	Errors bool                     `json:"errors"`
	Items  []map[string]*esBulkItem `json:"items"`
}

type esBulkAction struct {
	Index string `json:"_index"`
	ID    string `json:"_id"`
}

type esSearchRequest struct {
	Size   int            `json:"size"`
	Sort   []string       `json:"sort,omitempty"`
	Source any            `json:"_source,omitempty"`
	Query  map[string]any `json:"query"`
}

type esScrollRequest struct {
	Scroll   string `json:"scroll"`
	ScrollID string `json:"scroll_id"`
}

type esClearScrollRequest struct {
	ScrollID []string `json:"scroll_id"`
}

var esIndexSettings = map[string]any{
	"mappings": map[string]any{
		"properties": map[string]any{
			"content": map[string]any{"type": "text"},
			"path":    map[string]any{"type": "keyword"},
		},
	},
}
