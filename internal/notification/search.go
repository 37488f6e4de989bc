package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"workhub_backend/internal/common"
	platformES "workhub_backend/internal/platform/elasticsearch"
)

// notificationSearchDoc is the shape stored in the notifications index. Only
// the searchable and filterable fields go in; the store remains the source of
// truth and hits are hydrated back from it.
type notificationSearchDoc struct {
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

type esSearchResult struct {
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID string `json:"_id"`
		} `json:"hits"`
	} `json:"hits"`
}

// indexForSearch indexes a notification document. Runs on a background
// goroutine after create; failures are logged and the document is simply
// absent from search until the next write.
func (s *ServiceImplementation) indexForSearch(n *Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), asyncTimeout)
	defer cancel()

	doc := notificationSearchDoc{
		UserID:    n.UserID.String(),
		Title:     n.Title,
		Message:   n.Message,
		Type:      string(n.Type),
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt,
	}
	body, err := json.Marshal(doc)
	if err != nil {
		s.logger.Error("Failed to marshal notification for indexing",
			zap.String("notification_id", n.ID.String()),
			zap.Error(err),
		)
		return
	}

	req := esapi.IndexRequest{
		Index:      platformES.NotificationsIndexName,
		DocumentID: n.ID.String(),
		Body:       bytes.NewReader(body),
	}
	res, err := req.Do(ctx, s.esClient.Client)
	if err != nil {
		s.logger.Warn("Failed to index notification",
			zap.String("notification_id", n.ID.String()),
			zap.Error(err),
		)
		return
	}
	defer res.Body.Close()

	if res.IsError() {
		s.logger.Warn("Elasticsearch rejected notification document",
			zap.String("notification_id", n.ID.String()),
			zap.String("status", res.Status()),
		)
	}
}

// deleteFromSearch removes a notification document after a store delete.
func (s *ServiceImplementation) deleteFromSearch(id uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), asyncTimeout)
	defer cancel()

	req := esapi.DeleteRequest{
		Index:      platformES.NotificationsIndexName,
		DocumentID: id.String(),
	}
	res, err := req.Do(ctx, s.esClient.Client)
	if err != nil {
		s.logger.Warn("Failed to delete notification document",
			zap.String("notification_id", id.String()),
			zap.Error(err),
		)
		return
	}
	defer res.Body.Close()
}

// searchWithES runs the full-text query against Elasticsearch, scoped to the
// caller, then hydrates the matching IDs from the store. Deleted-but-still-
// indexed documents drop out during hydration.
func (s *ServiceImplementation) searchWithES(ctx context.Context, userID uuid.UUID, term string, page, pageSize int) ([]Notification, *common.Pagination, error) {
	if page <= 0 {
		page = 1
	}
	from := (page - 1) * pageSize

	query := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": []interface{}{
					map[string]interface{}{
						"multi_match": map[string]interface{}{
							"query":  term,
							"fields": []string{"title^2", "message"},
						},
					},
				},
				"filter": []interface{}{
					map[string]interface{}{
						"term": map[string]interface{}{"user_id": userID.String()},
					},
				},
			},
		},
		"sort": []interface{}{
			map[string]interface{}{"created_at": map[string]interface{}{"order": "desc"}},
		},
		"from": from,
		"size": pageSize,
	}
	body, err := json.Marshal(query)
	if err != nil {
		return nil, nil, fmt.Errorf("marshalling search query failed: %w", err)
	}

	res, err := s.esClient.Search(
		s.esClient.Search.WithContext(ctx),
		s.esClient.Search.WithIndex(platformES.NotificationsIndexName),
		s.esClient.Search.WithBody(bytes.NewReader(body)),
		s.esClient.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("elasticsearch search request failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, nil, fmt.Errorf("elasticsearch search returned status %s", res.Status())
	}

	var parsed esSearchResult
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, nil, fmt.Errorf("decoding search response failed: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		id, err := uuid.Parse(hit.ID)
		if err != nil {
			s.logger.Warn("Skipping search hit with non-UUID id", zap.String("doc_id", strconv.Quote(hit.ID)))
			continue
		}
		ids = append(ids, id)
	}

	notifications, err := s.repo.FindByIDs(ctx, userID, ids)
	if err != nil {
		return nil, nil, err
	}

	pagination := common.NewPagination(parsed.Hits.Total.Value, page, pageSize)
	return notifications, pagination, nil
}
