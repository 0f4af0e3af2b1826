package member

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client talks to the member service's internal API.
type Client struct {
	baseURL    string
	secret     string
	httpClient *http.Client
}

func NewClient(baseURL, secret string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  secret,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

type Info struct {
	UserID   uint64 `json:"userId"`
	Nickname string `json:"userNicknm"`
	Role     string `json:"userRole"`
}

type envelope[T any] struct {
	Data T `json:"data"`
}

type batchInfo struct {
	Members []Info `json:"members"`
}

// FetchMember returns the member with the given id.
func (c *Client) FetchMember(ctx context.Context, userID uint64) (*Info, error) {
	endpoint := fmt.Sprintf("%s/internal/members/%d", c.baseURL, userID)

	var payload envelope[Info]
	if err := c.get(ctx, endpoint, &payload); err != nil {
		return nil, err
	}
	return &payload.Data, nil
}

// FetchMembers returns every member found among userIDs. Unknown ids are
// simply absent from the result.
func (c *Client) FetchMembers(ctx context.Context, userIDs []uint64) ([]Info, error) {
	ids := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		ids = append(ids, strconv.FormatUint(id, 10))
	}
	endpoint := fmt.Sprintf(
		"%s/internal/members/batch?userIds=%s",
		c.baseURL,
		url.QueryEscape(strings.Join(ids, ",")),
	)

	var payload envelope[batchInfo]
	if err := c.get(ctx, endpoint, &payload); err != nil {
		return nil, err
	}
	return payload.Data.Members, nil
}

func (c *Client) get(ctx context.Context, endpoint string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.secret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf(
			"member service error: status=%d body=%s",
			resp.StatusCode,
			string(b),
		)
	}

	return json.NewDecoder(resp.Body).Decode(dest)
}
