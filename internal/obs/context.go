package obs

import (
	"context"
	"sort"
	"sync"
)

type requestTagsKey struct{}

// RequestTags collects values that handlers deep in the chain attach to a
// request, such as the order reference a webhook settled. The request logger
// installs it before calling the next handler and emits the values on the
// access log line afterwards, so tags set by inner handlers reach it even
// though they run on derived contexts.
type RequestTags struct {
	mu     sync.Mutex
	route  string
	fields map[string]string
}

// WithRequestTags returns a context carrying a fresh tag set. An existing set
// is reused so nested middleware share one.
func WithRequestTags(ctx context.Context) (context.Context, *RequestTags) {
	if ctx == nil {
		ctx = context.Background()
	}
	if tags := tagsFrom(ctx); tags != nil {
		return ctx, tags
	}
	tags := &RequestTags{}
	return context.WithValue(ctx, requestTagsKey{}, tags), tags
}

func tagsFrom(ctx context.Context) *RequestTags {
	if ctx == nil {
		return nil
	}
	tags, _ := ctx.Value(requestTagsKey{}).(*RequestTags)
	return tags
}

// Tag records key=value for the current request. It is a no-op when the
// context carries no tag set.
func Tag(ctx context.Context, key, value string) {
	tags := tagsFrom(ctx)
	if tags == nil || key == "" {
		return
	}
	tags.mu.Lock()
	defer tags.mu.Unlock()
	if tags.fields == nil {
		tags.fields = make(map[string]string, 4)
	}
	tags.fields[key] = value
}

// Each calls fn for every tag in key order.
func (t *RequestTags) Each(fn func(key, value string)) {
	if t == nil {
		return
	}
	t.mu.Lock()
	keys := make([]string, 0, len(t.fields))
	for k := range t.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	values := make([]string, len(keys))
	for i, k := range keys {
		values[i] = t.fields[k]
	}
	t.mu.Unlock()
	for i, k := range keys {
		fn(k, values[i])
	}
}

// WithRoutePattern stores the matched router pattern. When the context carries
// a tag set the pattern is recorded there as well.
func WithRoutePattern(ctx context.Context, pattern string) context.Context {
	ctx, tags := WithRequestTags(ctx)
	tags.mu.Lock()
	tags.route = pattern
	tags.mu.Unlock()
	return ctx
}

// RoutePatternFromContext extracts the route pattern from context if present.
func RoutePatternFromContext(ctx context.Context) string {
	tags := tagsFrom(ctx)
	if tags == nil {
		return ""
	}
	tags.mu.Lock()
	defer tags.mu.Unlock()
	return tags.route
}
