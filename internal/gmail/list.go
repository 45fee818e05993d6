package gmail

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// ListOptions filters list calls. Zero values are omitted from the request.
type ListOptions struct {
	Query            string
	LabelIDs         []string
	MaxResults       int
	PageToken        string
	IncludeSpamTrash bool
}

func (o ListOptions) values() url.Values {
	v := url.Values{}
	if o.Query != "" {
		v.Set("q", o.Query)
	}
	for _, id := range o.LabelIDs {
		v.Add("labelIds", id)
	}
	if o.MaxResults > 0 {
		v.Set("maxResults", strconv.Itoa(o.MaxResults))
	}
	if o.PageToken != "" {
		v.Set("pageToken", o.PageToken)
	}
	if o.IncludeSpamTrash {
		v.Set("includeSpamTrash", "true")
	}
	return v
}

// pageFunc fetches one page and reports the token of the next.
type pageFunc[T any] func(ctx context.Context, opts ListOptions) ([]T, string, error)

// collect follows nextPageToken until the server stops returning one and
// concatenates the pages in the order received.
func collect[T any](ctx context.Context, opts ListOptions, page pageFunc[T]) ([]T, error) {
	var all []T
	seen := map[string]bool{}
	for {
		items, next, err := page(ctx, opts)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
		if next == "" {
			return all, nil
		}
		if seen[next] {
			return nil, fmt.Errorf("page token %q repeated by server", next)
		}
		seen[next] = true
		opts.PageToken = next
	}
}

// details fetches every listed item by id, in order.
func details[T any](ctx context.Context, ids []string, get func(context.Context, string) (T, error)) ([]T, error) {
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		item, err := get(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

func escape(id string) string { return url.PathEscape(id) }
