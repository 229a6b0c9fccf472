package fotasync

import (
	"context"

	"github.com/pkg/errors"
)

// pageFetch fetches one page (1-based) and reports the items on it plus the
// server-declared last page.
type pageFetch[T any] func(ctx context.Context, page int) (items []T, lastPage int, err error)

// collectPages drains a paginated listing into one in-order slice. At least
// one page is always requested. The first fetch error aborts the whole
// aggregation; no partial results are returned. A last-page value that would
// keep the loop from advancing is a logic error, not retried.
func collectPages[T any](ctx context.Context, fetch pageFetch[T]) ([]T, error) {
	var all []T
	page := 1
	for {
		items, lastPage, err := fetch(ctx, page)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
		if lastPage <= 0 {
			return nil, errors.Errorf("pagination reported invalid last page %d on page %d", lastPage, page)
		}
		if page >= lastPage {
			return all, nil
		}
		page++
	}
}
