package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/elastic/go-elasticsearch/v9"
)

type Elastic struct {
	es *elasticsearch.Client
}

type ElasticConfig struct {
	URL      string
	Username string
	Password string
	// Transport overrides the HTTP transport, nil uses the default.
	Transport http.RoundTripper
}

// NewElastic connects and checks the cluster answers before returning.
func NewElastic(ctx context.Context, cfg ElasticConfig) (*Elastic, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: cfg.Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch client: %w", err)
	}

	res, err := client.Info(client.Info.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("elasticsearch info: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("elasticsearch info: %s: %s", res.Status(), body)
	}

	return &Elastic{es: client}, nil
}

func (e *Elastic) Index(ctx context.Context, doc Document) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(doc); err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	res, err := e.es.Index(
		IndexName(doc.Family),
		&buf,
		e.es.Index.WithDocumentID(strconv.FormatUint(uint64(doc.ID), 10)),
		e.es.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("index document: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index document: %s", res.Status())
	}
	return nil
}

// Remove deletes a document. A document that was never indexed is not an error.
func (e *Elastic) Remove(ctx context.Context, family string, id uint) error {
	res, err := e.es.Delete(
		IndexName(family),
		strconv.FormatUint(uint64(id), 10),
		e.es.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("delete document: %s", res.Status())
	}
	return nil
}
