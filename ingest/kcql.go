package ingest

import (
	"fmt"
	"strings"
)

// Route is one parsed KCQL-like routing expression: which bucket/prefix
// feeds which topic, per §6.
type Route struct {
	Topic string
	Root  RootLocation
}

// ParseRoute parses one routing expression of the form:
//
//	INSERT INTO <topic> SELECT * FROM <bucket[/prefix]>
//
// Matching is case-insensitive on keywords; the topic and bucket/prefix
// tokens are taken verbatim. Extra whitespace is tolerated. This is a
// minimal tokenizer, not a general SQL-like grammar: KCQL clauses beyond
// the source root and target topic (WITHPARTITIONER, etc.) are configured
// through connect.s3.source.* properties instead, per §6.
func ParseRoute(expr string) (Route, error) {
	fields := strings.Fields(expr)
	if len(fields) != 7 {
		return Route{}, fmt.Errorf("kcql: expected 7 tokens (INSERT INTO <topic> SELECT * FROM <bucket>), got %d in %q", len(fields), expr)
	}

	if !strings.EqualFold(fields[0], "INSERT") || !strings.EqualFold(fields[1], "INTO") {
		return Route{}, fmt.Errorf("kcql: expected \"INSERT INTO\", got %q %q", fields[0], fields[1])
	}
	topic := fields[2]
	if !strings.EqualFold(fields[3], "SELECT") || fields[4] != "*" {
		return Route{}, fmt.Errorf("kcql: expected \"SELECT *\", got %q %q", fields[3], fields[4])
	}
	if !strings.EqualFold(fields[5], "FROM") {
		return Route{}, fmt.Errorf("kcql: expected \"FROM <bucket>\"")
	}

	source := fields[6]
	if topic == "" || source == "" {
		return Route{}, fmt.Errorf("kcql: topic and source must be non-empty in %q", expr)
	}

	bucket, prefix, _ := strings.Cut(source, "/")
	if bucket == "" {
		return Route{}, fmt.Errorf("kcql: empty bucket in source %q", source)
	}

	return Route{
		Topic: topic,
		Root: RootLocation{
			Bucket:     bucket,
			Prefix:     prefix,
			AllowSlash: true,
		},
	}, nil
}

// ParseRoutes parses a semicolon-separated list of routing expressions,
// one per configured source, per §6 ("one per source").
func ParseRoutes(exprs string) ([]Route, error) {
	if strings.TrimSpace(exprs) == "" {
		return nil, nil
	}
	var routes []Route
	for _, part := range strings.Split(exprs, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		r, err := ParseRoute(part)
		if err != nil {
			return nil, err
		}
		routes = append(routes, r)
	}
	return routes, nil
}
