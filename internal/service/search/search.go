package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/sacredheart/pharmacy_shop/internal/models"
)

// Search runs a fuzzy multi_match over the medicine index. Medicine name is
// boosted above generic name and manufacturer.
func Search(ctx context.Context, es *elasticsearch.Client, index, query string, from, size int) (int64, []models.Medicine, error) {
	body := map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":     query,
				"fields":    []string{"name^2", "generic_name", "manufacturer", "description"},
				"fuzziness": "AUTO",
			},
		},
		"from": from,
		"size": size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, fmt.Errorf("search: encode query: %w", err)
	}

	res, err := es.Search(
		es.Search.WithContext(ctx),
		es.Search.WithIndex(index),
		es.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("search: %w", err)
	}

	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return 0, nil, fmt.Errorf("search: %s: %s", res.Status(), body)
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source models.Medicine `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, err
	}

	meds := make([]models.Medicine, len(r.Hits.Hits))
	for i, hit := range r.Hits.Hits {
		meds[i] = hit.Source
	}
	return r.Hits.Total.Value, meds, nil
}

// IndexMedicine upserts a medicine document keyed by its id.
func IndexMedicine(ctx context.Context, es *elasticsearch.Client, index string, med *models.Medicine) error {
	data, err := json.Marshal(med)
	if err != nil {
		return fmt.Errorf("search: encode medicine: %w", err)
	}

	res, err := es.Index(
		index,
		bytes.NewReader(data),
		es.Index.WithContext(ctx),
		es.Index.WithDocumentID(med.ID),
	)
	if err != nil {
		return fmt.Errorf("search: index medicine: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("search: index medicine: %s: %s", res.Status(), body)
	}
	return nil
}
