package ingest

import (
	"testing"
	"time"
)

func TestParseConfig_Defaults(t *testing.T) {
	cfg, err := ParseConfig(map[string]string{
		KeyRoutes: "INSERT INTO events SELECT * FROM bucket",
	}, 3, 1)
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	if cfg.RecurseLevels != defaultRecurseLevels {
		t.Errorf("RecurseLevels = %d, want %d", cfg.RecurseLevels, defaultRecurseLevels)
	}
	if cfg.SearchInterval != defaultSearchIntervalMS*time.Millisecond {
		t.Errorf("SearchInterval = %v", cfg.SearchInterval)
	}
	if cfg.PauseAfterCount != defaultPauseAfterCount {
		t.Errorf("PauseAfterCount = %d", cfg.PauseAfterCount)
	}
	if cfg.TaskCount != 3 || cfg.TaskIndex != 1 {
		t.Errorf("TaskCount/TaskIndex = %d/%d, want 3/1", cfg.TaskCount, cfg.TaskIndex)
	}
}

func TestParseConfig_MissingRoutesIsAnError(t *testing.T) {
	if _, err := ParseConfig(map[string]string{}, 1, 0); err == nil {
		t.Fatal("expected an error for missing routes")
	}
}

func TestParseConfig_DeprecatedKeyRemapped(t *testing.T) {
	cfg, err := ParseConfig(map[string]string{
		KeyRoutes: "INSERT INTO events SELECT * FROM bucket",
		"connect.s3.source.partition.search.max": "42",
	}, 1, 0)
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	if cfg.PauseAfterCount != 42 {
		t.Errorf("PauseAfterCount = %d, want 42 via deprecated key remap", cfg.PauseAfterCount)
	}
}

func TestParseConfig_InvalidExtractorType(t *testing.T) {
	_, err := ParseConfig(map[string]string{
		KeyRoutes:        "INSERT INTO events SELECT * FROM bucket",
		KeyExtractorType: "bogus",
	}, 1, 0)
	if err == nil {
		t.Fatal("expected an error for an unrecognized extractor type")
	}
}

func TestParseConfig_RegexExtractorRequiresPattern(t *testing.T) {
	_, err := ParseConfig(map[string]string{
		KeyRoutes:        "INSERT INTO events SELECT * FROM bucket",
		KeyExtractorType: "regex",
	}, 1, 0)
	if err == nil {
		t.Fatal("expected an error when extractor.type=regex has no pattern")
	}
}

func TestParseConfig_NegativeRecurseLevelsIsAnError(t *testing.T) {
	_, err := ParseConfig(map[string]string{
		KeyRoutes:        "INSERT INTO events SELECT * FROM bucket",
		KeyRecurseLevels: "-1",
	}, 1, 0)
	if err == nil {
		t.Fatal("expected an error for negative recurse levels")
	}
}
