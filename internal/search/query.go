// internal/search/query.go
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// Hit is one search result row for the back-office view.
type Hit struct {
	ApplicationID string  `json:"applicationId"`
	Name          string  `json:"name"`
	Email         string  `json:"email"`
	Status        string  `json:"status"`
	Score         float64 `json:"score"`
}

// SearchRequest describes a back-office application search.
type SearchRequest struct {
	Keywords string
	Status   string
	From     int
	Size     int
}

// Search runs a keyword search over indexed applications.
func (i *Indexer) Search(ctx context.Context, req SearchRequest) ([]Hit, int64, error) {
	if req.Size <= 0 {
		req.Size = 20
	}

	body, err := json.Marshal(buildApplicationQuery(req))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: marshal query: %v", ErrSearchQueryFailed, err)
	}

	searchReq := esapi.SearchRequest{
		Index: []string{ApplicationIndex},
		Body:  strings.NewReader(string(body)),
		From:  &req.From,
		Size:  &req.Size,
	}

	res, err := searchReq.Do(ctx, i.client)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrSearchQueryFailed, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, 0, fmt.Errorf("%w: %s", ErrSearchQueryFailed, res.Status())
	}

	var parsed struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Score  float64             `json:"_score"`
				Source applicationDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, 0, fmt.Errorf("%w: decode response: %v", ErrSearchQueryFailed, err)
	}

	hits := make([]Hit, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		hits = append(hits, Hit{
			ApplicationID: h.Source.ApplicationID,
			Name:          h.Source.Name,
			Email:         h.Source.Email,
			Status:        h.Source.Status,
			Score:         h.Score,
		})
	}
	return hits, parsed.Hits.Total.Value, nil
}

func buildApplicationQuery(req SearchRequest) map[string]interface{} {
	mustClauses := []interface{}{}
	filterClauses := []interface{}{}

	if req.Keywords != "" {
		mustClauses = append(mustClauses, map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  req.Keywords,
				"fields": []string{"name^3", "email^2", "phone"},
				"type":   "best_fields",
			},
		})
	}
	if req.Status != "" {
		filterClauses = append(filterClauses, map[string]interface{}{
			"term": map[string]interface{}{"status": req.Status},
		})
	}

	boolQuery := map[string]interface{}{}
	if len(mustClauses) > 0 {
		boolQuery["must"] = mustClauses
	}
	if len(filterClauses) > 0 {
		boolQuery["filter"] = filterClauses
	}
	if len(boolQuery) == 0 {
		return map[string]interface{}{
			"query": map[string]interface{}{"match_all": map[string]interface{}{}},
			"sort":  []interface{}{map[string]interface{}{"submittedAt": "desc"}},
		}
	}

	return map[string]interface{}{
		"query": map[string]interface{}{"bool": boolQuery},
	}
}
