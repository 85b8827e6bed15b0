package line

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"lineops/internal/domain"
)

type createRichMenuResponse struct {
	RichMenuID string `json:"richMenuId"`
}

type richMenuListResponse struct {
	RichMenus []domain.RichMenuSummary `json:"richmenus"`
}

type aliasListResponse struct {
	Aliases []domain.Alias `json:"aliases"`
}

type updateAliasRequest struct {
	RichMenuID string `json:"richMenuId"`
}

type defaultRichMenuResponse struct {
	RichMenuID string `json:"richMenuId"`
}

// CreateRichMenu creates a menu definition and returns its server-issued ID.
func (c *Client) CreateRichMenu(ctx context.Context, menu domain.RichMenu) (string, error) {
	var payload createRichMenuResponse
	op := "create richmenu " + menu.Name
	if err := c.doJSON(ctx, op, http.MethodPost, c.apiURL("/richmenu"), menu, &payload); err != nil {
		return "", err
	}
	if payload.RichMenuID == "" {
		return "", errors.New("line: create richmenu: response has no richMenuId")
	}
	return payload.RichMenuID, nil
}

// UploadRichMenuImage uploads the menu image. contentType must be image/jpeg or
// image/png.
func (c *Client) UploadRichMenuImage(ctx context.Context, richMenuID, contentType string, image []byte) error {
	if strings.TrimSpace(richMenuID) == "" {
		return errors.New("line: upload image: rich menu id is required")
	}
	if len(image) == 0 {
		return errors.New("line: upload image: image is empty")
	}
	u := c.dataURL("/richmenu/" + pathID(richMenuID) + "/content")
	_, err := c.do(ctx, "upload image -> "+richMenuID, http.MethodPost, u, contentType, bytes.NewReader(image))
	return err
}

func (c *Client) ListRichMenus(ctx context.Context) ([]domain.RichMenuSummary, error) {
	var payload richMenuListResponse
	if err := c.doJSON(ctx, "list menus", http.MethodGet, c.apiURL("/richmenu/list"), nil, &payload); err != nil {
		return nil, err
	}
	return payload.RichMenus, nil
}

func (c *Client) DeleteRichMenu(ctx context.Context, richMenuID string) error {
	u := c.apiURL("/richmenu/" + pathID(richMenuID))
	return c.doJSON(ctx, "delete "+richMenuID, http.MethodDelete, u, nil, nil)
}

// CreateAlias binds a new alias. The server answers 400 if the alias exists.
func (c *Client) CreateAlias(ctx context.Context, aliasID, richMenuID string) error {
	body := domain.Alias{AliasID: aliasID, RichMenuID: richMenuID}
	return c.doJSON(ctx, "create alias "+aliasID, http.MethodPost, c.apiURL("/richmenu/alias"), body, nil)
}

// UpdateAlias rebinds an existing alias. The server answers 404 if it does not
// exist.
func (c *Client) UpdateAlias(ctx context.Context, aliasID, richMenuID string) error {
	u := c.apiURL("/richmenu/alias/" + pathID(aliasID))
	return c.doJSON(ctx, "update alias "+aliasID, http.MethodPost, u, updateAliasRequest{RichMenuID: richMenuID}, nil)
}

func (c *Client) ListAliases(ctx context.Context) ([]domain.Alias, error) {
	var payload aliasListResponse
	if err := c.doJSON(ctx, "list aliases", http.MethodGet, c.apiURL("/richmenu/alias/list"), nil, &payload); err != nil {
		return nil, err
	}
	return payload.Aliases, nil
}

func (c *Client) DeleteAlias(ctx context.Context, aliasID string) error {
	u := c.apiURL("/richmenu/alias/" + pathID(aliasID))
	return c.doJSON(ctx, "delete alias "+aliasID, http.MethodDelete, u, nil, nil)
}

// SetDefaultRichMenu makes richMenuID the default for all users.
func (c *Client) SetDefaultRichMenu(ctx context.Context, richMenuID string) error {
	u := c.apiURL("/user/all/richmenu/" + pathID(richMenuID))
	return c.doJSON(ctx, "set default(all)", http.MethodPost, u, nil, nil)
}

// DefaultRichMenu returns the current default menu ID, or "" when none is set.
func (c *Client) DefaultRichMenu(ctx context.Context) (string, error) {
	var payload defaultRichMenuResponse
	err := c.doJSON(ctx, "get default(all)", http.MethodGet, c.apiURL("/user/all/richmenu"), nil, &payload)
	if IsNotFound(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("line: get default rich menu: %w", err)
	}
	return payload.RichMenuID, nil
}
