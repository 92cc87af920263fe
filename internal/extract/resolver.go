package extract

import (
	"regexp"
	"strings"
)

// Resolution carries the resource and subscription facts recovered from a body.
type Resolution struct {
	Resource         string
	SubscriptionID   string
	SubscriptionName string
}

// Merge fills the empty fields of r from next. Fields already set are kept.
func (r Resolution) Merge(next Resolution) Resolution {
	if r.Resource == "" {
		r.Resource = next.Resource
	}
	if r.SubscriptionID == "" {
		r.SubscriptionID = next.SubscriptionID
	}
	if r.SubscriptionName == "" {
		r.SubscriptionName = next.SubscriptionName
	}
	return r
}

// Strategy recovers whatever fields it can from a body. The current
// resolution is provided for strategies whose result depends on it.
type Strategy interface {
	Name() string
	Resolve(body string, current Resolution) Resolution
}

// Resolver applies strategies in order with first-writer-wins per field.
type Resolver struct {
	strategies []Strategy
}

// NewResolver builds a resolver over strategies.
func NewResolver(strategies ...Strategy) *Resolver {
	return &Resolver{strategies: strategies}
}

// DefaultResolver returns the query, resource-id, free-text cascade.
func DefaultResolver() *Resolver {
	return NewResolver(QueryStrategy{}, ResourceIDStrategy{}, TextStrategy{})
}

// Resolve runs every strategy starting from seed.
func (r *Resolver) Resolve(body string, seed Resolution) Resolution {
	current := seed
	for _, s := range r.strategies {
		current = current.Merge(s.Resolve(body, current))
	}
	return current
}

var queryPattern = regexp.MustCompile(`(?is)let\s+(\w+)\s*=\s*"([^"]+)".*?Resource\s*==\s*(\w+|"[^"]+")`)

// QueryStrategy reads the resource from a log query of the form
// `let v = "name"; ... Resource == v`.
type QueryStrategy struct{}

func (QueryStrategy) Name() string { return "query" }

func (QueryStrategy) Resolve(body string, _ Resolution) Resolution {
	m := queryPattern.FindStringSubmatch(body)
	if m == nil {
		return Resolution{}
	}
	variable, value, ref := m[1], m[2], m[3]
	if strings.Contains(ref, `"`) {
		return Resolution{Resource: strings.Trim(ref, `"`)}
	}
	if ref == variable {
		return Resolution{Resource: value}
	}
	return Resolution{}
}

var resourceIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)resourceId\s*=\s*(/\S+)`),
	regexp.MustCompile(`(?i)(?:resource id)\s*[:\t ]*\s*(/\S+)`),
}

// ResourceIDStrategy reads /subscriptions/<id>/.../<name> resource paths.
type ResourceIDStrategy struct{}

func (ResourceIDStrategy) Name() string { return "resource_id" }

func (ResourceIDStrategy) Resolve(body string, _ Resolution) Resolution {
	for _, pattern := range resourceIDPatterns {
		m := pattern.FindStringSubmatch(body)
		if m == nil {
			continue
		}
		if res, ok := parseResourcePath(m[1]); ok {
			return res
		}
	}
	return Resolution{}
}

func parseResourcePath(path string) (Resolution, bool) {
	var parts []string
	for _, p := range strings.Split(strings.TrimSpace(path), "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) < 3 || strings.ToLower(parts[0]) != "subscriptions" {
		return Resolution{}, false
	}
	return Resolution{
		SubscriptionID: strings.ToLower(parts[1]),
		Resource:       parts[len(parts)-1],
	}, true
}

var (
	targetResourcePattern = regexp.MustCompile(`Target resource name\s+(\S+)`)
	subscriptionIDPattern = regexp.MustCompile(`(?i)Subscription ID:\s*([a-f0-9\-]+)`)
	subscriptionNameLabel = regexp.MustCompile(`Subscription name:\s*(.+)`)
	subscriptionNameProse = regexp.MustCompile(`the Azure subscription\s+(.+?)(?:\s*\.)`)
)

// TextStrategy reads labelled values from the prose of the notification.
type TextStrategy struct{}

func (TextStrategy) Name() string { return "text" }

func (TextStrategy) Resolve(body string, _ Resolution) Resolution {
	var res Resolution
	if m := targetResourcePattern.FindStringSubmatch(body); m != nil {
		res.Resource = m[1]
	}
	if m := subscriptionIDPattern.FindStringSubmatch(body); m != nil {
		res.SubscriptionID = strings.ToLower(m[1])
	}
	m := subscriptionNameLabel.FindStringSubmatch(body)
	if m == nil {
		m = subscriptionNameProse.FindStringSubmatch(body)
	}
	if m != nil {
		res.SubscriptionName = strings.TrimSpace(m[1])
	}
	return res
}

var (
	_ Strategy = QueryStrategy{}
	_ Strategy = ResourceIDStrategy{}
	_ Strategy = TextStrategy{}
)
