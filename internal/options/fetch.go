// Package options resolves the option lists of select-type fields.
//
// Static options come straight from the schema. Remote options are fetched
// over HTTP, extracted with a JSONPath, narrowed by the field's filters and
// mapped to {label, value} pairs. A failed fetch never propagates: it is
// logged as a *TransportError and the field gets an empty list.
//
// Results live in a caller-owned State keyed by field; nothing here caches
// across calls.
package options

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/JonMunkholm/gridkit/internal/logging"
	"github.com/JonMunkholm/gridkit/internal/metrics"
	"github.com/JonMunkholm/gridkit/internal/record"
	"github.com/JonMunkholm/gridkit/internal/schema"
	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
)

// Defaults for Fetcher.
const (
	DefaultTimeout      = 10 * time.Second
	DefaultMaxBodyBytes = 5 << 20
	DefaultConcurrency  = 4
	DefaultValueKey     = "value"
	DefaultLabelKey     = "label"
)

// TransportError describes a remote option fetch that failed.
type TransportError struct {
	Field string
	URL   string
	Err   error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("fetch options for %q from %s: %v", e.Field, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Fetcher loads remote option lists.
type Fetcher struct {
	Client       *http.Client
	MaxBodyBytes int64
	// Concurrency caps parallel fetches in LoadAll.
	Concurrency int
}

// NewFetcher returns a Fetcher using client, or a client with DefaultTimeout
// when client is nil.
func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	return &Fetcher{
		Client:       client,
		MaxBodyBytes: DefaultMaxBodyBytes,
		Concurrency:  DefaultConcurrency,
	}
}

// Fetch requests src and maps the response to options. depValue is the
// current value of src.DependsOn, or nil.
func (f *Fetcher) Fetch(ctx context.Context, field string, src *schema.RemoteSource, depValue any) ([]schema.Option, error) {
	if src == nil || src.URL == "" {
		return nil, &TransportError{Field: field, Err: errors.New("no remote source")}
	}
	target := BuildURL(src, depValue)
	wrap := func(err error) error {
		return &TransportError{Field: field, URL: target, Err: err}
	}

	method := strings.ToUpper(src.Method)
	if method == "" {
		method = http.MethodGet
	}
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, wrap(err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range src.Headers {
		req.Header.Set(k, v)
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, wrap(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, wrap(fmt.Errorf("unexpected status %s", resp.Status))
	}

	limit := f.MaxBodyBytes
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, wrap(err)
	}
	if int64(len(body)) > limit {
		return nil, wrap(fmt.Errorf("response exceeds %d bytes", limit))
	}

	doc, err := oj.Parse(body)
	if err != nil {
		return nil, wrap(fmt.Errorf("invalid json: %w", err))
	}
	items, err := Extract(doc, src.Path)
	if err != nil {
		return nil, wrap(err)
	}
	return MapItems(ApplyFilters(items, src.Filter), src.ValueKey, src.LabelKey), nil
}

// Load resolves the options for one field. Remote failures are logged and
// counted, and yield an empty list.
func (f *Fetcher) Load(ctx context.Context, field schema.Field, values *record.Record) []schema.Option {
	if field.Options == nil {
		return nil
	}
	if field.Options.Remote == nil {
		return field.Options.Static
	}

	src := field.Options.Remote
	var dep any
	if src.DependsOn != "" {
		dep = values.Value(src.DependsOn)
		if record.String(dep) == "" {
			// Nothing to fetch until the parent has a value.
			return []schema.Option{}
		}
	}

	opts, err := f.Fetch(ctx, field.Key, src, dep)
	if err != nil {
		metrics.OptionFetchFailures.WithLabelValues(field.Key).Inc()
		logging.FromContext(ctx).Warn("option fetch failed",
			slog.String("field", field.Key),
			slog.Any("error", err),
		)
		return []schema.Option{}
	}
	return opts
}

// BuildURL substitutes the dependency value into src.URL. A "{key}"
// placeholder naming src.DependsOn is replaced in place; otherwise the value
// is appended as a query parameter named after the dependency.
func BuildURL(src *schema.RemoteSource, depValue any) string {
	if src.DependsOn == "" || depValue == nil {
		return src.URL
	}
	v := record.String(depValue)

	placeholder := "{" + src.DependsOn + "}"
	if strings.Contains(src.URL, placeholder) {
		return strings.ReplaceAll(src.URL, placeholder, url.PathEscape(v))
	}

	u, err := url.Parse(src.URL)
	if err != nil {
		return src.URL
	}
	q := u.Query()
	q.Set(src.DependsOn, v)
	u.RawQuery = q.Encode()
	return u.String()
}

// Extract finds the item array in a decoded document. An empty path means
// the document itself is the array.
func Extract(doc any, path string) ([]any, error) {
	if path == "" {
		items, ok := doc.([]any)
		if !ok {
			return nil, fmt.Errorf("response is %T, not an array; configure a path", doc)
		}
		return items, nil
	}

	expr := path
	if !strings.HasPrefix(expr, "$") {
		expr = "$." + expr
	}
	x, err := jp.ParseString(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid path %q: %w", path, err)
	}

	results := x.Get(doc)
	if len(results) == 1 {
		if items, ok := results[0].([]any); ok {
			return items, nil
		}
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("path %q matched nothing", path)
	}
	return results, nil
}

// MapItems converts decoded items to options. Object items read valueKey and
// labelKey (JSONPaths allowed); scalar items are their own value and label.
// Items without a value are skipped.
func MapItems(items []any, valueKey, labelKey string) []schema.Option {
	if valueKey == "" {
		valueKey = DefaultValueKey
	}
	if labelKey == "" {
		labelKey = DefaultLabelKey
	}

	opts := make([]schema.Option, 0, len(items))
	for _, item := range items {
		var value, label any
		switch item.(type) {
		case map[string]any:
			value = lookup(item, valueKey)
			label = lookup(item, labelKey)
		case []any, nil:
			continue
		default:
			value, label = item, item
		}
		if value == nil {
			continue
		}
		if label == nil {
			label = value
		}
		opts = append(opts, schema.Option{Label: record.String(label), Value: value})
	}
	return opts
}
