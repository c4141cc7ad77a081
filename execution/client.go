// Package execution contains the HTTP client of the venue executing revealed
// commitments.
package execution

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/riskgate-org/riskgate/txsystem/escrow"
	"github.com/riskgate-org/riskgate/types"
)

const (
	ExecutePath = "api/v1/execute"

	defaultScheme   = "http://"
	contentType     = "Content-Type"
	applicationCbor = "application/cbor"

	maxResponseSize = 1 << 20
)

var _ escrow.Executor = (*Client)(nil)

type (
	// ExecuteRequest is posted to the venue as CBOR. The venue must execute a
	// CommitmentID at most once and answer a repeated request with the output
	// of the first execution.
	ExecuteRequest struct {
		_            struct{} `cbor:",toarray"`
		CommitmentID []byte
		Params       []byte
		Value        uint64
	}

	// ExecuteResponse is the CBOR response of the venue.
	ExecuteResponse struct {
		_            struct{} `cbor:",toarray"`
		OutputAmount uint64
	}

	Client struct {
		BaseUrl    *url.URL
		HttpClient http.Client
		executeURL *url.URL
	}
)

func New(baseUrl string, timeout time.Duration) (*Client, error) {
	if !strings.HasPrefix(baseUrl, "http://") && !strings.HasPrefix(baseUrl, "https://") {
		baseUrl = defaultScheme + baseUrl
	}
	u, err := url.Parse(baseUrl)
	if err != nil {
		return nil, fmt.Errorf("error parsing executor base URL (%s): %w", baseUrl, err)
	}
	return &Client{
		BaseUrl:    u,
		HttpClient: http.Client{Timeout: timeout},
		executeURL: u.JoinPath(ExecutePath),
	}, nil
}

// Execute posts the params with the value to the venue and returns the
// reported output amount. Any non 200 response is an error.
func (c *Client) Execute(ctx context.Context, id common.Hash, params []byte, value uint64) (uint64, error) {
	body, err := types.Cbor.Marshal(&ExecuteRequest{CommitmentID: id.Bytes(), Params: params, Value: value})
	if err != nil {
		return 0, fmt.Errorf("failed to encode execute request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.executeURL.String(), bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to build execute request: %w", err)
	}
	req.Header.Set(contentType, applicationCbor)
	response, err := c.HttpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request execute failed: %w", err)
	}
	defer response.Body.Close()

	data, err := io.ReadAll(io.LimitReader(response.Body, maxResponseSize))
	if err != nil {
		return 0, fmt.Errorf("failed to read execute response: %w", err)
	}
	if response.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected response status %d: %s", response.StatusCode, strings.TrimSpace(string(data)))
	}
	if len(data) == 0 {
		return 0, errors.New("empty execute response")
	}
	var res ExecuteResponse
	if err := types.Cbor.Unmarshal(data, &res); err != nil {
		return 0, fmt.Errorf("failed to decode execute response: %w", err)
	}
	return res.OutputAmount, nil
}
