package listing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"barter_backend/internal/platform/elasticsearch"

	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/elastic/go-elasticsearch/v8/esutil"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SearchIndexer keeps the search index in step with listings. Only active
// listings are searchable.
type SearchIndexer interface {
	Enabled() bool
	IndexListing(ctx context.Context, l *Listing) error
	RemoveListing(ctx context.Context, id uuid.UUID) error
	SearchListingIDs(ctx context.Context, q ListingSearchQuery) ([]uuid.UUID, int64, error)
	BulkIndex(ctx context.Context, listings []Listing) (int, error)
}

// NewSearchIndexer returns the Elasticsearch indexer, or a no-op one when the
// client is not configured.
func NewSearchIndexer(client *elasticsearch.ESClientWrapper, logger *zap.Logger) SearchIndexer {
	if client == nil {
		return noopIndexer{}
	}
	return &esIndexer{client: client, logger: logger.Named("ListingIndexer")}
}

type geoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type listingDocument struct {
	Title          string    `json:"title"`
	Description    string    `json:"description,omitempty"`
	Category       string    `json:"category"`
	Condition      string    `json:"condition"`
	Status         string    `json:"status"`
	UserID         string    `json:"user_id"`
	EstimatedValue float64   `json:"estimated_value"`
	Location       *geoPoint `json:"location,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func toDocument(l *Listing) listingDocument {
	doc := listingDocument{
		Title:          l.Title,
		Category:       string(l.Category),
		Condition:      string(l.Condition),
		Status:         string(l.Status),
		UserID:         l.UserID.String(),
		EstimatedValue: l.EstimatedValue,
		CreatedAt:      l.CreatedAt,
		UpdatedAt:      l.UpdatedAt,
	}
	if l.Description != nil {
		doc.Description = *l.Description
	}
	if l.Latitude != nil && l.Longitude != nil {
		doc.Location = &geoPoint{Lat: *l.Latitude, Lon: *l.Longitude}
	}
	return doc
}

// buildSearchQuery returns the request body for a listing search.
func buildSearchQuery(q ListingSearchQuery) map[string]interface{} {
	filter := []interface{}{
		map[string]interface{}{"term": map[string]interface{}{"status": string(StatusActive)}},
	}
	if q.Category != nil {
		filter = append(filter, map[string]interface{}{"term": map[string]interface{}{"category": string(*q.Category)}})
	}

	boolQuery := map[string]interface{}{"filter": filter}
	if term := strings.TrimSpace(q.Query); term != "" {
		boolQuery["must"] = []interface{}{
			map[string]interface{}{
				"multi_match": map[string]interface{}{
					"query":  term,
					"fields": []string{"title^2", "description"},
				},
			},
		}
	}

	return map[string]interface{}{
		"query": map[string]interface{}{"bool": boolQuery},
		"sort": []interface{}{
			"_score",
			map[string]interface{}{"created_at": map[string]interface{}{"order": "desc"}},
		},
	}
}

type esIndexer struct {
	client *elasticsearch.ESClientWrapper
	logger *zap.Logger
}

func (i *esIndexer) Enabled() bool { return true }

func (i *esIndexer) IndexListing(ctx context.Context, l *Listing) error {
	if l.Status != StatusActive {
		return i.RemoveListing(ctx, l.ID)
	}
	body, err := json.Marshal(toDocument(l))
	if err != nil {
		return fmt.Errorf("error marshalling listing to JSON for ES: %w", err)
	}
	req := esapi.IndexRequest{
		Index:      elasticsearch.ListingsIndexName,
		DocumentID: l.ID.String(),
		Body:       bytes.NewReader(body),
	}
	res, err := req.Do(ctx, i.client.Client)
	if err != nil {
		return fmt.Errorf("index listing %s: %w", l.ID, err)
	}
	defer res.Body.Close()
	return elasticsearch.DecodeResponse(res, nil)
}

func (i *esIndexer) RemoveListing(ctx context.Context, id uuid.UUID) error {
	req := esapi.DeleteRequest{
		Index:      elasticsearch.ListingsIndexName,
		DocumentID: id.String(),
	}
	res, err := req.Do(ctx, i.client.Client)
	if err != nil {
		return fmt.Errorf("remove listing %s from index: %w", id, err)
	}
	defer res.Body.Close()
	if res.StatusCode == 404 {
		return nil
	}
	return elasticsearch.DecodeResponse(res, nil)
}

func (i *esIndexer) SearchListingIDs(ctx context.Context, q ListingSearchQuery) ([]uuid.UUID, int64, error) {
	body, err := json.Marshal(buildSearchQuery(q))
	if err != nil {
		return nil, 0, fmt.Errorf("marshal search query: %w", err)
	}

	search := i.client.Search
	res, err := search(
		search.WithContext(ctx),
		search.WithIndex(elasticsearch.ListingsIndexName),
		search.WithBody(bytes.NewReader(body)),
		search.WithFrom(q.Offset),
		search.WithSize(q.Limit),
		search.WithTrackTotalHits(true),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("search listings: %w", err)
	}
	defer res.Body.Close()

	var parsed struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := elasticsearch.DecodeResponse(res, &parsed); err != nil {
		return nil, 0, err
	}

	ids := make([]uuid.UUID, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		id, err := uuid.Parse(hit.ID)
		if err != nil {
			i.logger.Warn("Skipping search hit with invalid id", zap.String("id", hit.ID))
			continue
		}
		ids = append(ids, id)
	}
	return ids, parsed.Hits.Total.Value, nil
}

// BulkIndex indexes listings through the bulk API and returns how many
// documents were accepted.
func (i *esIndexer) BulkIndex(ctx context.Context, listings []Listing) (int, error) {
	bi, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Client: i.client.Client,
		Index:  elasticsearch.ListingsIndexName,
	})
	if err != nil {
		return 0, fmt.Errorf("create bulk indexer: %w", err)
	}

	for idx := range listings {
		l := &listings[idx]
		body, err := json.Marshal(toDocument(l))
		if err != nil {
			return 0, fmt.Errorf("error marshalling listing %s: %w", l.ID, err)
		}
		err = bi.Add(ctx, esutil.BulkIndexerItem{
			Action:     "index",
			DocumentID: l.ID.String(),
			Body:       bytes.NewReader(body),
			OnFailure: func(_ context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
				i.logger.Error("Bulk index item failed",
					zap.String("listingID", item.DocumentID),
					zap.String("reason", res.Error.Reason),
					zap.Error(err),
				)
			},
		})
		if err != nil {
			return 0, fmt.Errorf("queue listing %s: %w", l.ID, err)
		}
	}

	if err := bi.Close(ctx); err != nil {
		return 0, fmt.Errorf("flush bulk indexer: %w", err)
	}
	stats := bi.Stats()
	if stats.NumFailed > 0 {
		return int(stats.NumIndexed), fmt.Errorf("%d listings failed to index", stats.NumFailed)
	}
	return int(stats.NumIndexed), nil
}

type noopIndexer struct{}

func (noopIndexer) Enabled() bool { return false }
func (noopIndexer) IndexListing(context.Context, *Listing) error { return nil }
func (noopIndexer) RemoveListing(context.Context, uuid.UUID) error { return nil }
func (noopIndexer) BulkIndex(context.Context, []Listing) (int, error) { return 0, nil }
func (noopIndexer) SearchListingIDs(context.Context, ListingSearchQuery) ([]uuid.UUID, int64, error) {
	return nil, 0, nil
}
