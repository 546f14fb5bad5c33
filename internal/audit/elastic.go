package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/elastic/go-elasticsearch/v9"
)

type ESConfig struct {
	URL      string
	User     string
	Password string
	Index    string
	// Transport is swapped out in tests.
	Transport http.RoundTripper
}

func NewESClient(ctx context.Context, cfg ESConfig) (*elasticsearch.Client, error) {
	slog.Info("connecting to elasticsearch", "url", cfg.URL)

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.User,
		Password:  cfg.Password,
		Transport: cfg.Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	res, err := client.Info(client.Info.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("elasticsearch info: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("elasticsearch error response %s: %s", res.Status(), body)
	}

	return client, nil
}

// ESIndexer writes grant documents into one index.
type ESIndexer struct {
	Client *elasticsearch.Client
	Index  string
}

func (x *ESIndexer) IndexGrant(ctx context.Context, g Grant) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(g); err != nil {
		return fmt.Errorf("encode grant: %w", err)
	}

	res, err := x.Client.Index(
		x.Index,
		&buf,
		x.Client.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("index grant: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("index grant: %s: %s", res.Status(), body)
	}
	return nil
}
