package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/organicecom/marketconnect/pkg/slogx"
)

// Vendor API methods the catalog service invokes through the signed gateway.
const (
	methodTextSearch = "aliexpress.ds.text.search"
	methodProductGet = "aliexpress.ds.product.get"
)

// APIClient is the signed business-call surface the catalog service depends
// on. *gop.Client satisfies it.
type APIClient interface {
	Execute(ctx context.Context, method, session string, params map[string]string) (json.RawMessage, error)
}

// CatalogService proxies catalog lookups to the vendor's dropshipping API.
// It is the in-repo consumer of the token core: every call resolves a valid
// access token first and signs the request with the business variant.
type CatalogService struct {
	Auth *AuthService
	API  APIClient
}

// SearchProducts runs a keyword search against the vendor catalog on behalf
// of userID. page is 1-based; pageSize caps at the vendor limit of 50.
func (s *CatalogService) SearchProducts(ctx context.Context, userID, query string, page, pageSize int) (json.RawMessage, error) {
	session, err := s.Auth.ValidToken(ctx, userID)
	if err != nil {
		return nil, err
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 50 {
		pageSize = 20
	}

	params := map[string]string{
		"keyWord":   query,
		"pageIndex": strconv.Itoa(page),
		"pageSize":  strconv.Itoa(pageSize),
		"local":     "en",
		"currency":  "USD",
	}

	slogx.FromContext(ctx).Debug("catalog search", "user_id", userID, "query", query, "page", page)

	data, err := s.API.Execute(ctx, methodTextSearch, session, params)
	if err != nil {
		return nil, fmt.Errorf("catalog search: %w", err)
	}
	return data, nil
}

// GetProduct fetches a single product's detail by vendor product ID.
func (s *CatalogService) GetProduct(ctx context.Context, userID, productID string) (json.RawMessage, error) {
	session, err := s.Auth.ValidToken(ctx, userID)
	if err != nil {
		return nil, err
	}

	data, err := s.API.Execute(ctx, methodProductGet, session, map[string]string{
		"product_id":      productID,
		"target_language": "en",
		"target_currency": "USD",
	})
	if err != nil {
		return nil, fmt.Errorf("product detail: %w", err)
	}
	return data, nil
}
