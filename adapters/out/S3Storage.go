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

package out

import (
	"context"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"io"
	"s3-event-bridge/domain/entities"
	"s3-event-bridge/pkg/awsutils"
)

type S3Storage struct {
	svc awsutils.S3
}

func NewS3Storage(awsSession *session.Session, awsConfig *aws.Config) *S3Storage {
	svc := awsutils.S3{}
	svc.Init(awsSession, awsConfig)

	return &S3Storage{svc: svc}
}

func (s *S3Storage) List(ctx context.Context, bucket, prefix string, token *string) (entities.ObjectPage, error) {
	output, err := s.svc.ListObjects(ctx, bucket, prefix, token)
	if err != nil {
		return entities.ObjectPage{}, err
	}

	page := entities.ObjectPage{Objects: make([]entities.ObjectRecord, 0, len(output.Contents))}
	for _, object := range output.Contents {
		page.Objects = append(page.Objects, ToObjectRecord(object))
	}

	if aws.BoolValue(output.IsTruncated) {
		page.NextToken = output.NextContinuationToken
	}

	return page, nil
}

func (s *S3Storage) Get(ctx context.Context, bucket, key string, writer io.WriterAt) error {
	return s.svc.Download(ctx, writer, bucket, key)
}

func (s *S3Storage) Put(ctx context.Context, bucket, key string, reader io.Reader, contentType string) error {
	return s.svc.Upload(ctx, reader, bucket, key, contentType)
}

func ToObjectRecord(object *s3.Object) entities.ObjectRecord {
	record := entities.ObjectRecord{
		ETag:         object.ETag,
		Key:          object.Key,
		LastModified: object.LastModified,
		Size:         aws.Int64Value(object.Size),
		StorageClass: object.StorageClass,
	}

	if len(object.ChecksumAlgorithm) > 0 {
		record.ChecksumAlgorithm = aws.StringValueSlice(object.ChecksumAlgorithm)
	}

	if object.Owner != nil {
		record.Owner = &entities.Owner{DisplayName: object.Owner.DisplayName, ID: object.Owner.ID}
	}

	return record
}
