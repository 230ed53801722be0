// internal/server/memory.go
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"mcp-simple-bolus/internal/config"
	"mcp-simple-bolus/internal/models"
)

// MemoryClient donates saved carb entries to the knowledge-graph memory
// service behind the MCP proxy. Donations are best effort.
type MemoryClient struct {
	httpClient *http.Client
	proxyURL   string
	apiKey     string
}

func NewMemoryClient(cfg config.MemoryConfig) *MemoryClient {
	return &MemoryClient{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		proxyURL: cfg.ProxyURL,
		apiKey:   cfg.APIKey,
	}
}

func (m *MemoryClient) DonateCarbEntry(ctx context.Context, entry models.CarbEntry) error {
	entityData := map[string]interface{}{
		"entities": []map[string]interface{}{
			{
				"name":       fmt.Sprintf("CarbEntry_%s", entry.StartDate.Format("2006-01-02_15-04")),
				"entityType": "Carb Entry",
				"observations": []string{
					fmt.Sprintf("Carbs: %.1f g", entry.Quantity.Value),
					fmt.Sprintf("Start: %s", entry.StartDate.Format(time.RFC3339)),
					"Source: simple_bolus",
				},
			},
		},
	}

	return m.callService(ctx, "create_entities", entityData)
}

func (m *MemoryClient) callService(ctx context.Context, toolName string, args interface{}) error {
	url := fmt.Sprintf("%s/memory", m.proxyURL)

	requestData := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/call",
		"params": map[string]interface{}{
			"name":      toolName,
			"arguments": args,
		},
	}

	jsonData, err := json.Marshal(requestData)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if m.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+m.apiKey)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("request failed with status %d and couldn't read body: %v", resp.StatusCode, err)
		}
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var rpcResponse struct {
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rpcResponse); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if rpcResponse.Error != nil {
		return fmt.Errorf("memory service error %d: %s", rpcResponse.Error.Code, rpcResponse.Error.Message)
	}

	return nil
}
