// Command s3ingest-poll runs a single task instance against a live
// S3-compatible bucket and prints each polled batch. It exists to exercise
// the pipeline end to end against LocalStack or MinIO during development;
// production embeddings drive task.Task directly from their own scheduler.
//
// Run with: go run ./cmd/s3ingest-poll
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/justapithecus/s3ingest/ingest"
	s3store "github.com/justapithecus/s3ingest/ingest/s3"
	"github.com/justapithecus/s3ingest/task"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	ctx := context.Background()

	bucket := getenv("S3INGEST_BUCKET", "s3ingest-example")
	endpoint := getenv("S3INGEST_ENDPOINT", "http://localhost:4566")
	region := getenv("S3INGEST_REGION", "us-east-1")
	accessKey := getenv("S3INGEST_ACCESS_KEY", "test")
	secretKey := getenv("S3INGEST_SECRET_KEY", "test")
	kcql := getenv("S3INGEST_KCQL", fmt.Sprintf("INSERT INTO events SELECT * FROM %s/data", bucket))

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		),
	)
	if err != nil {
		return fmt.Errorf("load aws config: %w", err)
	}

	client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	if _, err := client.ListBuckets(ctx, &awss3.ListBucketsInput{}); err != nil {
		fmt.Printf("S3 service not reachable at %s\n", endpoint)
		fmt.Println("Skipping poll.")
		return nil //nolint:nilerr // intentional: skip gracefully when the backend is unreachable
	}

	storage := s3store.New(client)

	cfg, err := ingest.ParseConfig(map[string]string{
		ingest.KeyRoutes:         kcql,
		ingest.KeySearchInterval: "5000",
	}, 1, 0)
	if err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	tsk := task.New(cfg, storage, ingest.NewSystemClock(), ingest.NoOffsets)
	if err := tsk.Start(ctx); err != nil {
		return fmt.Errorf("start task: %w", err)
	}
	defer func() { _ = tsk.Close(ctx) }()

	for i := 0; i < 3; i++ {
		batches, err := tsk.Poll(ctx)
		if err != nil {
			return fmt.Errorf("poll: %w", err)
		}
		for _, batch := range batches {
			for _, rec := range batch.Records {
				line, err := json.Marshal(rec.Value)
				if err != nil {
					return fmt.Errorf("marshal record: %w", err)
				}
				fmt.Printf("%s/%s#%d -> %s: %s\n", rec.Path.Bucket, rec.Path.Key, rec.Line, rec.Topic, line)
			}
		}
		time.Sleep(time.Second)
	}

	return nil
}

func getenv(key, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}
