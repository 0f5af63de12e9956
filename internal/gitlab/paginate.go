package gitlab

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

var nextPageHeader = http.CanonicalHeaderKey("X-Next-Page")

// FetchPages walks a paginated listing sequentially and returns the items in
// forge order. It stops on a short page, once limit items were collected
// (limit <= 0 means no cap), or when the forge reports an empty X-Next-Page.
// A partial last page is kept. A "page" in params sets the first page requested.
func FetchPages[T any](ctx context.Context, c *Client, endpoint string, params url.Values, perPage, limit int) ([]T, error) {
	perPage = c.ClampPerPage(perPage)
	if limit > 0 && limit < perPage {
		perPage = limit
	}

	query := url.Values{}
	for k, v := range params {
		query[k] = v
	}
	query.Set("per_page", strconv.Itoa(perPage))

	start := 1
	if p, err := strconv.Atoi(query.Get("page")); err == nil && p > 1 {
		start = p
	}

	var all []T
	for page := start; ; page++ {
		query.Set("page", strconv.Itoa(page))

		resp, err := c.do(ctx, endpoint, query)
		if err != nil {
			return nil, err
		}

		var items []T
		if err := json.Unmarshal(resp.body, &items); err != nil {
			return nil, fmt.Errorf("failed to decode page %d of %s: %w", page, endpoint, err)
		}
		all = append(all, items...)

		if limit > 0 && len(all) >= limit {
			return all[:limit], nil
		}
		if len(items) < perPage {
			return all, nil
		}
		if next, present := resp.header[nextPageHeader]; present && strings.TrimSpace(strings.Join(next, "")) == "" {
			return all, nil
		}
	}
}
