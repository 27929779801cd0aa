/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package assets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3API is the subset of the S3 client the asset store uses.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Store keeps assets as objects <prefix>/<category>/<name> in a bucket.
type S3Store struct {
	client S3API
	bucket string
	prefix string
}

// NewS3Store loads the default AWS configuration (env, shared config, IMDS).
func NewS3Store(ctx context.Context, bucket, prefix string) (*S3Store, error) {
	if bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewS3StoreWithClient(s3.NewFromConfig(cfg), bucket, prefix), nil
}

// NewS3StoreWithClient uses client as is.
func NewS3StoreWithClient(client S3API, bucket, prefix string) *S3Store {
	return &S3Store{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

func (s *S3Store) key(cat Category, name string) string {
	return path.Join(s.prefix, string(cat), name)
}

func (s *S3Store) dir(cat Category) string {
	return path.Join(s.prefix, string(cat)) + "/"
}

func (s *S3Store) Put(ctx context.Context, cat Category, name string, data []byte) error {
	if err := checkKey(cat, name); err != nil {
		return fmt.Errorf("put asset: %w", err)
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(cat, name)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(ContentTypeFor(name, data)),
	})
	if err != nil {
		return fmt.Errorf("put asset %s/%s: %w", cat, name, err)
	}
	return nil
}

func (s *S3Store) Get(ctx context.Context, cat Category, name string) (Asset, error) {
	if err := checkKey(cat, name); err != nil {
		return Asset{}, fmt.Errorf("get asset: %w", err)
	}
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(cat, name)),
	})
	if err != nil {
		var nsk *s3types.NoSuchKey
		if errors.As(err, &nsk) {
			return Asset{}, fmt.Errorf("%s/%s: %w", cat, name, ErrNotFound)
		}
		return Asset{}, fmt.Errorf("get asset %s/%s: %w", cat, name, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Asset{}, fmt.Errorf("read asset %s/%s: %w", cat, name, err)
	}
	ct := aws.ToString(resp.ContentType)
	if ct == "" {
		ct = ContentTypeFor(name, data)
	}
	return Asset{Category: cat, Name: name, ContentType: ct, Data: data}, nil
}

func (s *S3Store) names(ctx context.Context, cat Category) ([]string, error) {
	var names []string
	p := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.dir(cat)),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list assets %s: %w", cat, err)
		}
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), s.dir(cat))
			if name != "" && !strings.Contains(name, "/") {
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names, nil
}

func (s *S3Store) List(ctx context.Context, cat Category) ([]Asset, error) {
	if _, err := ParseCategory(string(cat)); err != nil {
		return nil, err
	}
	names, err := s.names(ctx, cat)
	if err != nil {
		return nil, err
	}
	out := make([]Asset, 0, len(names))
	for _, n := range names {
		a, err := s.Get(ctx, cat, n)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *S3Store) Delete(ctx context.Context, cat Category, name string) error {
	if err := checkKey(cat, name); err != nil {
		return fmt.Errorf("delete asset: %w", err)
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(cat, name)),
	})
	if err != nil {
		return fmt.Errorf("delete asset %s/%s: %w", cat, name, err)
	}
	return nil
}

func (s *S3Store) Clear(ctx context.Context, cat Category) error {
	names, err := s.names(ctx, cat)
	if err != nil {
		return err
	}
	for _, n := range names {
		if err := s.Delete(ctx, cat, n); err != nil {
			return err
		}
	}
	return nil
}

func (s *S3Store) Close() error { return nil }
