package ingest

import (
	"strconv"
	"strings"
	"time"
)

// Configuration keys, per §6.
const (
	KeyRecurseLevels    = "connect.s3.source.partition.search.recurse.levels"
	KeySearchInterval   = "connect.s3.source.partition.search.interval.millis"
	KeyPauseAfterCount  = "connect.s3.source.partition.search.pause.after.count"
	KeyPauseAfterMillis = "connect.s3.source.partition.search.pause.after.millis"
	KeySearchBlock      = "connect.s3.source.partition.search.block"
	KeyExtractorType    = "connect.s3.source.partition.extractor.type"
	KeyExtractorRegex   = "connect.s3.source.partition.extractor.regex"
	KeyRoutes           = "connect.s3.kcql"
)

// Defaults, per §6.
const (
	defaultRecurseLevels    = 0
	defaultSearchIntervalMS = 300000
	defaultPauseAfterCount  = 1000
	defaultPauseAfterMillis = 0
	defaultSearchBlock      = false
)

// ExtractorType enumerates the §6 partition.extractor.type values.
type ExtractorType string

// Extractor type values. Per §9's first open question, an absent/empty
// extractor type is treated as "whole object name is the partition key",
// modeled here as ExtractorNone rather than leaving it ambiguous.
const (
	ExtractorNone         ExtractorType = ""
	ExtractorHierarchical ExtractorType = "hierarchical"
	ExtractorRegex        ExtractorType = "regex"
)

// deprecatedKeys maps legacy property names to their current equivalents.
// Applied before validation, per §6: "a deprecation remapper may rename
// legacy keys before validation."
var deprecatedKeys = map[string]string{
	"connect.s3.source.partition.search.max":      KeyPauseAfterCount,
	"connect.s3.source.partition.search.max.time": KeyPauseAfterMillis,
}

// Config is the parsed, validated task configuration.
type Config struct {
	Routes []Route

	RecurseLevels    int
	SearchInterval   time.Duration
	PauseAfterCount  int
	PauseAfterMillis time.Duration
	SearchBlock      bool

	ExtractorType  ExtractorType
	ExtractorRegex string

	TaskCount int
	TaskIndex int
}

// remapDeprecated lower-cases keys (per §6: "all lower-cased at ingress")
// and applies the deprecation remapper.
func remapDeprecated(props map[string]string) map[string]string {
	out := make(map[string]string, len(props))
	for k, v := range props {
		lk := strings.ToLower(strings.TrimSpace(k))
		if renamed, ok := deprecatedKeys[lk]; ok {
			lk = renamed
		}
		out[lk] = v
	}
	return out
}

// ParseConfig parses and validates task configuration from a flat property
// map, per §6. taskCount/taskIndex are supplied by the host, not read from
// props (they are a scheduling concern of the embedding framework).
func ParseConfig(props map[string]string, taskCount, taskIndex int) (Config, error) {
	props = remapDeprecated(props)

	cfg := Config{
		RecurseLevels:    defaultRecurseLevels,
		SearchInterval:   defaultSearchIntervalMS * time.Millisecond,
		PauseAfterCount:  defaultPauseAfterCount,
		PauseAfterMillis: defaultPauseAfterMillis * time.Millisecond,
		SearchBlock:      defaultSearchBlock,
		TaskCount:        taskCount,
		TaskIndex:        taskIndex,
	}

	if v, ok := props[KeyRecurseLevels]; ok {
		n, err := parseIntKey(KeyRecurseLevels, v)
		if err != nil {
			return Config{}, err
		}
		if n < 0 {
			return Config{}, &ConfigError{Key: KeyRecurseLevels, Message: "must be >= 0"}
		}
		cfg.RecurseLevels = n
	}

	if v, ok := props[KeySearchInterval]; ok {
		n, err := parseIntKey(KeySearchInterval, v)
		if err != nil {
			return Config{}, err
		}
		cfg.SearchInterval = time.Duration(n) * time.Millisecond
	}

	if v, ok := props[KeyPauseAfterCount]; ok {
		n, err := parseIntKey(KeyPauseAfterCount, v)
		if err != nil {
			return Config{}, err
		}
		if n < 0 {
			return Config{}, &ConfigError{Key: KeyPauseAfterCount, Message: "must be >= 0"}
		}
		cfg.PauseAfterCount = n
	}

	if v, ok := props[KeyPauseAfterMillis]; ok {
		n, err := parseIntKey(KeyPauseAfterMillis, v)
		if err != nil {
			return Config{}, err
		}
		cfg.PauseAfterMillis = time.Duration(n) * time.Millisecond
	}

	if v, ok := props[KeySearchBlock]; ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, &ConfigError{Key: KeySearchBlock, Message: "must be a bool: " + err.Error()}
		}
		cfg.SearchBlock = b
	}

	extractorType := ExtractorType(strings.ToLower(strings.TrimSpace(props[KeyExtractorType])))
	switch extractorType {
	case ExtractorNone, ExtractorHierarchical, ExtractorRegex:
		cfg.ExtractorType = extractorType
	default:
		return Config{}, &ConfigError{Key: KeyExtractorType, Message: "must be one of: hierarchical, regex, or empty"}
	}

	cfg.ExtractorRegex = props[KeyExtractorRegex]
	if cfg.ExtractorType == ExtractorRegex && cfg.ExtractorRegex == "" {
		return Config{}, &ConfigError{Key: KeyExtractorRegex, Message: "required when extractor.type is \"regex\""}
	}

	routesExpr, ok := props[KeyRoutes]
	if !ok || strings.TrimSpace(routesExpr) == "" {
		return Config{}, &ConfigError{Key: KeyRoutes, Message: "at least one routing expression is required"}
	}
	routes, err := ParseRoutes(routesExpr)
	if err != nil {
		return Config{}, &ConfigError{Key: KeyRoutes, Message: err.Error()}
	}
	cfg.Routes = routes

	return cfg, nil
}

func parseIntKey(key, v string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, &ConfigError{Key: key, Message: "must be an integer: " + err.Error()}
	}
	return n, nil
}
