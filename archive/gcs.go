// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package archive

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSTarget writes archives to a Google Cloud Storage bucket
type GCSTarget struct {
	client *storage.Client
	bucket *storage.BucketHandle
	prefix string
}

func NewGCSTarget(
	ctx context.Context,
	bucket string,
	prefix string,
	credentialsFile string,
) (*GCSTarget, error) {
	if bucket == "" {
		return nil, errors.New("gcs archive: bucket not set")
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	clientOpts := []option.ClientOption{storage.WithDisabledClientMetrics()}
	if credentialsFile != "" {
		clientOpts = append(
			clientOpts,
			option.WithCredentialsFile(credentialsFile),
		)
	}
	client, err := storage.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("gcs archive: failed in creating storage client: %w", err)
	}
	return &GCSTarget{
		client: client,
		bucket: client.Bucket(bucket),
		prefix: prefix,
	}, nil
}

func (g *GCSTarget) Put(ctx context.Context, key string, data []byte) error {
	w := g.bucket.Object(joinKey(g.prefix, key)).NewWriter(ctx)
	w.ContentType = "application/zstd"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

func (g *GCSTarget) Close() error {
	return g.client.Close()
}
