/*
 *    Copyright 2023 iFood
 *
 *    Licensed under the Apache License, Version 2.0 (the "License");
 *    you may not use this file except in compliance with the License.
 *    You may obtain a copy of the License at
 *
 *      http://www.apache.org/licenses/LICENSE-2.0
 *
 *    Unless required by applicable law or agreed to in writing, software
 *    distributed under the License is distributed on an "AS IS" BASIS,
 *    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *    See the License for the specific language governing permissions and
 *    limitations under the License.
 */

package awsutils

import (
	"context"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"io"
)

const (
	downloadConcurrency = 4
	uploadPartSize      = 64 * 1024 * 1024
	uploadConcurrency   = 4
)

type S3 struct {
	svc        *s3.S3
	downloader *s3manager.Downloader
	uploader   *s3manager.Uploader
}

func (s *S3) Init(awsSession *session.Session, awsConfig *aws.Config) {
	s.svc = s3.New(awsSession, awsConfig)

	s.downloader = s3manager.NewDownloaderWithClient(s.svc, func(d *s3manager.Downloader) {
		d.Concurrency = downloadConcurrency
	})

	s.uploader = s3manager.NewUploaderWithClient(s.svc, func(u *s3manager.Uploader) {
		u.PartSize = uploadPartSize
		u.Concurrency = uploadConcurrency
	})
}

func (s *S3) ListObjects(ctx context.Context, bucket, prefix string, token *string) (*s3.ListObjectsV2Output, error) {
	return s.svc.ListObjectsV2WithContext(ctx, &s3.ListObjectsV2Input{
		Bucket:            aws.String(bucket),
		Prefix:            aws.String(prefix),
		ContinuationToken: token,
	})
}

// Download writes the object using ranged requests in parallel.
// https://docs.aws.amazon.com/sdk-for-go/api/service/s3/s3manager/#Downloader
func (s *S3) Download(ctx context.Context, file io.WriterAt, bucket, key string) error {
	_, err := s.downloader.DownloadWithContext(ctx, file, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})

	return err
}

// Upload switches to multipart for bodies larger than the part size.
func (s *S3) Upload(ctx context.Context, data io.Reader, bucket, key, contentType string) error {
	input := &s3manager.UploadInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   data,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	_, err := s.uploader.UploadWithContext(ctx, input)

	return err
}
