package connector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/datasmith-io/datasmith/pkg/domain"
	"github.com/datasmith-io/datasmith/pkg/secret"
)

// teamworkCredential is the plaintext layout inside a sealed credential.
type teamworkCredential struct {
	ApiKey string `json:"apiKey"`
}

// TeamworkFetcher pulls items from a Teamwork site's v3 API, one request
// per configured data type (tasks, messages, ...).
type TeamworkFetcher struct {
	box    *secret.Box
	client *http.Client

	// BaseURL overrides the scheme+host derived from the source's domain.
	// Tests point it at a local server.
	BaseURL string
}

func NewTeamworkFetcher(box *secret.Box, client *http.Client) *TeamworkFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &TeamworkFetcher{box: box, client: client}
}

var _ Fetcher = &TeamworkFetcher{}

func (t *TeamworkFetcher) Fetch(ctx context.Context, source domain.Source) ([]map[string]any, error) {
	conn := source.Connector
	if conn == nil {
		return nil, ErrFetch(source, errors.New("not a connector source"))
	}

	apiKey, err := t.apiKey(conn)
	if err != nil {
		return nil, ErrFetch(source, err)
	}

	dataTypes := conn.DataTypes
	if len(dataTypes) == 0 {
		dataTypes = []string{"messages"}
	}

	records := []map[string]any{}
	for _, dataType := range dataTypes {
		items, err := t.fetchItems(ctx, conn.Domain, apiKey, dataType)
		if err != nil {
			return nil, ErrFetch(source, err)
		}
		for _, item := range items {
			item["_type"] = dataType
			records = append(records, item)
		}
	}
	return records, nil
}

// Test verifies the credential against the site without fetching data.
func (t *TeamworkFetcher) Test(ctx context.Context, conn *domain.ConnectorSpec) error {
	apiKey, err := t.apiKey(conn)
	if err != nil {
		return err
	}
	resp, err := t.get(ctx, conn.Domain, apiKey, "me")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("teamwork responded %s", resp.Status)
	}
	return nil
}

func (t *TeamworkFetcher) apiKey(conn *domain.ConnectorSpec) (string, error) {
	plaintext, err := t.box.Open(conn.Credential)
	if err != nil {
		return "", fmt.Errorf("cannot open stored credential: %w", err)
	}
	cred := teamworkCredential{}
	if err := json.Unmarshal(plaintext, &cred); err != nil {
		return "", fmt.Errorf("broken stored credential: %w", err)
	}
	if cred.ApiKey == "" {
		return "", errors.New("stored credential has no apiKey")
	}
	return cred.ApiKey, nil
}

func (t *TeamworkFetcher) get(ctx context.Context, domainName string, apiKey string, resource string) (*http.Response, error) {
	base := t.BaseURL
	if base == "" {
		base = "https://" + domainName
	}
	endpoint, err := url.JoinPath(base, "projects/api/v3", resource+".json")
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(apiKey, "")
	return t.client.Do(req)
}

func (t *TeamworkFetcher) fetchItems(ctx context.Context, domainName string, apiKey string, dataType string) ([]map[string]any, error) {
	resp, err := t.get(ctx, domainName, apiKey, dataType)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("teamwork responded %s for %s", resp.Status, dataType)
	}

	// v3 payloads wrap the collection in a key named after the resource
	// ({"tasks": [...]}); take the first array found.
	payload := map[string]any{}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	if items, ok := payload[dataType].([]any); ok {
		return asRecords(items)
	}
	for _, value := range payload {
		if items, ok := value.([]any); ok {
			return asRecords(items)
		}
	}
	return []map[string]any{}, nil
}

func asRecords(items []any) ([]map[string]any, error) {
	records := make([]map[string]any, 0, len(items))
	for _, item := range items {
		record, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("unexpected item shape: %T", item)
		}
		records = append(records, record)
	}
	return records, nil
}
