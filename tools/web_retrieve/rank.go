package web_retrieve

import (
	"strconv"

	"github.com/blevesearch/bleve"
	"github.com/mohammad-safakhou/scout/tools/web_search/models"
)

type candidateDoc struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	URL     string `json:"url"`
}

// rankCandidates orders the indices of results by BM25 relevance to query
// using a throwaway in-memory index. Results the index does not match keep
// their search order after the matched ones.
func rankCandidates(query string, results []models.Result) ([]int, error) {
	index, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, err
	}
	defer index.Close()

	for i, r := range results {
		doc := candidateDoc{Title: r.Title, Snippet: r.Snippet, URL: r.URL}
		if err := index.Index(strconv.Itoa(i), doc); err != nil {
			return nil, err
		}
	}

	order := make([]int, 0, len(results))
	seen := make(map[int]bool, len(results))
	if query != "" {
		req := bleve.NewSearchRequestOptions(bleve.NewMatchQuery(query), len(results), 0, false)
		res, err := index.Search(req)
		if err != nil {
			return nil, err
		}
		for _, hit := range res.Hits {
			i, err := strconv.Atoi(hit.ID)
			if err != nil || seen[i] {
				continue
			}
			seen[i] = true
			order = append(order, i)
		}
	}
	for i := range results {
		if !seen[i] {
			order = append(order, i)
		}
	}
	return order, nil
}
