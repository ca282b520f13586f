// internal/search/indexer.go

// Package search keeps a best-effort Elasticsearch index of submitted
// applications for the admissions back office. Indexing runs as a
// submission hook; a search-cluster outage never affects submission.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"student-portal/internal/common/logger"
	"student-portal/internal/models"
)

const ApplicationIndex = "portal-applications"

var (
	ErrSearchQueryFailed = errors.New("SEARCH_QUERY_FAILED")
	ErrIndexingFailed    = errors.New("INDEXING_FAILED")
)

// applicationDocument is the flattened shape stored in the index.
type applicationDocument struct {
	ApplicationID string   `json:"applicationId"`
	LeadID        string   `json:"leadId"`
	OwnerID       string   `json:"ownerId"`
	Name          string   `json:"name"`
	Email         string   `json:"email"`
	Phone         string   `json:"phone,omitempty"`
	Status        string   `json:"status"`
	DocumentURLs  []string `json:"documentUrls"`
	SubmittedAt   string   `json:"submittedAt"`
}

type Indexer struct {
	client *elasticsearch.Client
	logger logger.Logger
}

func NewIndexer(client *elasticsearch.Client, log logger.Logger) *Indexer {
	if log == nil {
		log = logger.NewStructured("info", "json")
	}
	return &Indexer{client: client, logger: log}
}

// AfterSubmission indexes the freshly submitted application.
func (i *Indexer) AfterSubmission(ctx context.Context, app *models.Application, lead *models.Lead) error {
	doc := applicationDocument{
		ApplicationID: app.ID,
		LeadID:        lead.ID,
		OwnerID:       app.OwnerID,
		Name:          lead.Name,
		Email:         app.Email,
		Phone:         lead.Phone,
		Status:        string(app.Status),
		DocumentURLs:  documentURLs(app),
		SubmittedAt:   app.SubmittedAt.Format("2006-01-02T15:04:05Z07:00"),
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: marshal document: %v", ErrIndexingFailed, err)
	}

	req := esapi.IndexRequest{
		Index:      ApplicationIndex,
		DocumentID: app.ID,
		Body:       bytes.NewReader(body),
		Refresh:    "false",
	}

	res, err := req.Do(ctx, i.client)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIndexingFailed, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("%w: %s", ErrIndexingFailed, res.Status())
	}

	i.logger.Debug("application indexed", map[string]interface{}{
		"applicationId": app.ID,
		"index":         ApplicationIndex,
	})
	return nil
}

func documentURLs(app *models.Application) []string {
	urls := []string{}
	if app.PassportPhotoURL != nil {
		urls = append(urls, *app.PassportPhotoURL)
	}
	if app.IdentificationDocumentURL != nil {
		urls = append(urls, *app.IdentificationDocumentURL)
	}
	urls = append(urls, app.AcademicDocumentURLs...)
	return urls
}
