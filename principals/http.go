package principals

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// HTTPProvider fetches principals from the broker's userprincipals
// endpoint using a bearer access token. No third-party HTTP client appears
// anywhere in the example corpus, so this uses net/http directly rather
// than adopting a library with no grounding.
type HTTPProvider struct {
	BaseURL     string
	AccessToken string
	Client      *http.Client
}

// GetUserPrincipals implements Provider.
func (p *HTTPProvider) GetUserPrincipals(ctx context.Context) (*Principals, error) {
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}

	url := p.BaseURL + "/userprincipals?fields=streamerSubscriptionKeys,streamerConnectionInfo"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("principals: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.AccessToken)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("principals: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("principals: unexpected status %d", resp.StatusCode)
	}

	var result Principals
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("principals: decode response: %w", err)
	}
	return &result, nil
}
