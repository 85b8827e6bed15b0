package line

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"lineops/internal/domain"
)

// MaxMulticastRecipients is the platform limit of user IDs per multicast call.
const MaxMulticastRecipients = 500

type broadcastRequest struct {
	Messages []domain.TextMessage `json:"messages"`
}

type multicastRequest struct {
	To       []string             `json:"to"`
	Messages []domain.TextMessage `json:"messages"`
}

type quotaResponse struct {
	Type  string `json:"type"`
	Value *int64 `json:"value,omitempty"`
}

type consumptionResponse struct {
	TotalUsage int64 `json:"totalUsage"`
}

type followersResponse struct {
	UserIDs []string `json:"userIds"`
	Next    string   `json:"next,omitempty"`
}

// Broadcast sends messages to every friend of the account.
func (c *Client) Broadcast(ctx context.Context, messages []domain.TextMessage) error {
	if len(messages) == 0 {
		return errors.New("line: broadcast: no messages")
	}
	return c.doJSON(ctx, "broadcast", http.MethodPost, c.apiURL("/message/broadcast"),
		broadcastRequest{Messages: messages}, nil)
}

// Multicast sends messages to at most MaxMulticastRecipients users.
func (c *Client) Multicast(ctx context.Context, to []string, messages []domain.TextMessage) error {
	if len(to) == 0 {
		return errors.New("line: multicast: no recipients")
	}
	if len(to) > MaxMulticastRecipients {
		return fmt.Errorf("line: multicast: %d recipients exceeds limit of %d", len(to), MaxMulticastRecipients)
	}
	if len(messages) == 0 {
		return errors.New("line: multicast: no messages")
	}
	op := fmt.Sprintf("multicast (%d users)", len(to))
	return c.doJSON(ctx, op, http.MethodPost, c.apiURL("/message/multicast"),
		multicastRequest{To: to, Messages: messages}, nil)
}

// MessageQuota returns the plan kind and, for limited plans, the monthly
// allowance. The allowance is 0 for any other kind.
func (c *Client) MessageQuota(ctx context.Context) (domain.PlanKind, int64, error) {
	var payload quotaResponse
	if err := c.doJSON(ctx, "get monthly quota", http.MethodGet, c.apiURL("/message/quota"), nil, &payload); err != nil {
		return "", 0, err
	}
	kind := domain.PlanKind(payload.Type)
	if kind != domain.PlanLimited || payload.Value == nil {
		return kind, 0, nil
	}
	return kind, *payload.Value, nil
}

// MessageConsumption returns the number of messages sent this month.
func (c *Client) MessageConsumption(ctx context.Context) (int64, error) {
	var payload consumptionResponse
	if err := c.doJSON(ctx, "get monthly consumption", http.MethodGet, c.apiURL("/message/quota/consumption"), nil, &payload); err != nil {
		return 0, err
	}
	return payload.TotalUsage, nil
}

// FollowerIDs fetches one page of follower user IDs. start is the continuation
// token from the previous page, empty for the first page. next is empty on the
// last page.
func (c *Client) FollowerIDs(ctx context.Context, start string, limit int) (ids []string, next string, err error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if start != "" {
		q.Set("start", start)
	}
	u := c.apiURL("/followers/ids")
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	var payload followersResponse
	if err := c.doJSON(ctx, "get followers/ids", http.MethodGet, u, nil, &payload); err != nil {
		return nil, "", err
	}
	return payload.UserIDs, payload.Next, nil
}
