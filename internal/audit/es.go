package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/elastic/go-elasticsearch/v9"
)

const DefaultIndex = "auth-audit"

type ESRecorder struct {
	client *elasticsearch.Client
	index  string
}

func NewESRecorder(url, username, password, index string) (*ESRecorder, error) {
	if index == "" {
		index = DefaultIndex
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{url},
		Username:  username,
		Password:  password,
	})
	if err != nil {
		return nil, fmt.Errorf("audit: create es client: %w", err)
	}

	res, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("audit: es info: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("audit: es error: %s: %s", res.Status(), body)
	}

	return &ESRecorder{client: client, index: index}, nil
}

func (r *ESRecorder) Record(ctx context.Context, e Entry) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(e); err != nil {
		return fmt.Errorf("audit: encode entry: %w", err)
	}

	res, err := r.client.Index(r.index, &buf, r.client.Index.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("audit: index entry: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("audit: index entry: %s", res.Status())
	}
	return nil
}
