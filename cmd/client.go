package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const DEFAULT_ADDR = "http://127.0.0.1:3000"

// apiClient talks to a running enablex daemon
type apiClient struct {
	baseURL    string
	httpClient *http.Client
}

type apiResponse struct {
	Errors  []string        `json:"errors"`
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

func newAPIClient(addr string) *apiClient {
	return &apiClient{
		baseURL:    strings.TrimRight(addr, "/") + "/api/v1",
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// do sends body as JSON & decodes the response data into out, if provided
func (client *apiClient) do(method, path string, body interface{}, out interface{}) error {
	var payload bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&payload).Encode(body); err != nil {
			return err
		}
	}

	req, err := http.NewRequest(method, client.baseURL+path, &payload)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := client.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("unable to reach enablex daemon at %v, is it running? %v", client.baseURL, err)
	}
	defer res.Body.Close()

	response := apiResponse{}
	if err := json.NewDecoder(res.Body).Decode(&response); err != nil {
		return fmt.Errorf("invalid response from daemon: %v", err)
	}

	if res.StatusCode >= http.StatusBadRequest {
		return formattedError("%s", strings.Join(response.Errors, "\n"))
	}

	if out == nil || len(response.Data) == 0 {
		return nil
	}
	return json.Unmarshal(response.Data, out)
}
