package elasticsearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.uber.org/zap"
)

const ListingsIndexName = "listings"

// listingsMapping mirrors the searchable subset of a listing.
func listingsMapping() (string, error) {
	keyword := map[string]interface{}{"type": "keyword"}
	mapping := map[string]interface{}{
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"title":           map[string]interface{}{"type": "text"},
				"description":     map[string]interface{}{"type": "text"},
				"category":        keyword,
				"condition":       keyword,
				"status":          keyword,
				"user_id":         keyword,
				"estimated_value": map[string]interface{}{"type": "double"},
				"location":        map[string]interface{}{"type": "geo_point"},
				"created_at":      map[string]interface{}{"type": "date"},
				"updated_at":      map[string]interface{}{"type": "date"},
			},
		},
	}
	mappingBytes, err := json.Marshal(mapping)
	if err != nil {
		return "", fmt.Errorf("error marshalling listings mapping to JSON: %w", err)
	}
	return string(mappingBytes), nil
}

// CreateListingsIndexIfNotExists creates the listings index with the defined mapping
// if it does not already exist.
func CreateListingsIndexIfNotExists(ctx context.Context, client *ESClientWrapper, logger *zap.Logger) error {
	log := logger.Named("elasticsearch_index_setup")

	req := esapi.IndicesExistsRequest{
		Index: []string{ListingsIndexName},
	}
	res, err := req.Do(ctx, client.Client)
	if err != nil {
		log.Error("Error checking if listings index exists", zap.Error(err))
		return fmt.Errorf("error checking if listings index exists: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusOK {
		log.Info("Listings index already exists", zap.String("index_name", ListingsIndexName))
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		log.Error("Error checking if listings index exists, unexpected status",
			zap.String("status", res.Status()),
			zap.String("index_name", ListingsIndexName),
		)
		return fmt.Errorf("error checking if listings index exists: status %s", res.Status())
	}

	mappingJSON, err := listingsMapping()
	if err != nil {
		log.Error("Failed to define listings mapping", zap.Error(err))
		return err
	}

	createReq := esapi.IndicesCreateRequest{
		Index: ListingsIndexName,
		Body:  strings.NewReader(mappingJSON),
	}
	createRes, err := createReq.Do(ctx, client.Client)
	if err != nil {
		log.Error("Error creating listings index", zap.Error(err), zap.String("index_name", ListingsIndexName))
		return fmt.Errorf("error creating listings index %s: %w", ListingsIndexName, err)
	}
	defer createRes.Body.Close()

	if createRes.IsError() {
		var errorBody map[string]interface{}
		if err := decodeJSONBody(createRes.Body, &errorBody); err != nil {
			log.Error("Failed to parse listings index creation error response body", zap.Error(err), zap.String("status", createRes.Status()))
		} else {
			log.Error("Failed to create listings index",
				zap.String("status", createRes.Status()),
				zap.Any("error_details", errorBody),
				zap.String("index_name", ListingsIndexName),
			)
		}
		return fmt.Errorf("failed to create listings index %s: status %s", ListingsIndexName, createRes.Status())
	}

	log.Info("Listings index created successfully", zap.String("index_name", ListingsIndexName))
	return nil
}

// DecodeResponse decodes a successful response body or turns an error
// response into a Go error.
func DecodeResponse(res *esapi.Response, target interface{}) error {
	if res.IsError() {
		var body map[string]interface{}
		_ = decodeJSONBody(res.Body, &body)
		return fmt.Errorf("elasticsearch responded %s: %v", res.Status(), body["error"])
	}
	if target == nil {
		return nil
	}
	return decodeJSONBody(res.Body, target)
}
