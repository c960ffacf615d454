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
	"io"
	"s3-event-bridge/domain/entities"
)

//go:generate go run -mod=mod github.com/golang/mock/mockgen -destination=../../../mocks/mock_object_store.go -package=mocks -source=ObjectStore.go
type ObjectStore interface {
	ObjectStoreReader
	ObjectStoreWriter
}

// ObjectStoreReader is implemented by AWS S3 and any store exposing list-by-prefix and get-by-key
type ObjectStoreReader interface {
	List(ctx context.Context, bucket, prefix string, token *string) (entities.ObjectPage, error)
	Get(ctx context.Context, bucket, key string, writer io.WriterAt) error
}

type ObjectStoreWriter interface {
	Put(ctx context.Context, bucket, key string, reader io.Reader, contentType string) error
}
