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

const NotificationsIndexName = "notifications"

// defineNotificationsMapping returns the JSON string for the notifications
// index mapping.
func defineNotificationsMapping() (string, error) {
	mapping := map[string]interface{}{
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"title":      map[string]interface{}{"type": "text"},
				"message":    map[string]interface{}{"type": "text"},
				"user_id":    map[string]interface{}{"type": "keyword"},
				"type":       map[string]interface{}{"type": "keyword"},
				"is_read":    map[string]interface{}{"type": "boolean"},
				"created_at": map[string]interface{}{"type": "date"},
			},
		},
	}
	mappingBytes, err := json.Marshal(mapping)
	if err != nil {
		return "", fmt.Errorf("error marshalling notifications mapping to JSON: %w", err)
	}
	return string(mappingBytes), nil
}

// CreateNotificationsIndexIfNotExists creates the notifications index with
// the defined mapping if it does not already exist.
func CreateNotificationsIndexIfNotExists(client *ESClientWrapper, logger *zap.Logger) error {
	ctx := context.Background()
	log := logger.Named("elasticsearch_index_setup")

	req := esapi.IndicesExistsRequest{
		Index: []string{NotificationsIndexName},
	}
	res, err := req.Do(ctx, client.Client)
	if err != nil {
		log.Error("Error checking if notifications index exists", zap.Error(err))
		return fmt.Errorf("error checking if notifications index exists: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusOK {
		log.Info("Notifications index already exists", zap.String("index_name", NotificationsIndexName))
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("error checking if notifications index exists: status %s", res.Status())
	}

	mappingJSON, err := defineNotificationsMapping()
	if err != nil {
		return err
	}

	createReq := esapi.IndicesCreateRequest{
		Index: NotificationsIndexName,
		Body:  strings.NewReader(mappingJSON),
	}
	createRes, err := createReq.Do(ctx, client.Client)
	if err != nil {
		log.Error("Error creating notifications index", zap.Error(err))
		return fmt.Errorf("error creating notifications index: %w", err)
	}
	defer createRes.Body.Close()

	if createRes.IsError() {
		return fmt.Errorf("error creating notifications index: status %s", createRes.Status())
	}

	log.Info("Notifications index created", zap.String("index_name", NotificationsIndexName))
	return nil
}
