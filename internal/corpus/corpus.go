// Package corpus loads the article corpus the graph is built from. The
// corpus collaborator hands over a JSON array of article records; sources
// are a local file path or an s3://bucket/key object.
package corpus

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/astrobio/biograph/backend/pkg/common"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type objectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Loader resolves corpus sources. The S3 client may be nil when only local
// paths are used.
type Loader struct {
	s3 objectGetter
}

// NewLoader creates a corpus loader. client may be nil.
func NewLoader(client objectGetter) *Loader {
	return &Loader{s3: client}
}

// Load reads and decodes the corpus at source. Sources starting with s3://
// are fetched from object storage, everything else is treated as a local
// file path. Records are returned as-is; filtering on has_results happens
// during graph building.
func (l *Loader) Load(ctx context.Context, source string) ([]common.Article, error) {
	var (
		data []byte
		err  error
	)
	if strings.HasPrefix(source, "s3://") {
		data, err = l.fetchS3(ctx, source)
	} else {
		data, err = os.ReadFile(source)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus %s: %w", source, err)
	}

	var articles []common.Article
	if err := json.Unmarshal(data, &articles); err != nil {
		return nil, fmt.Errorf("failed to decode corpus %s: %w", source, err)
	}
	return articles, nil
}

func (l *Loader) fetchS3(ctx context.Context, source string) ([]byte, error) {
	if l.s3 == nil {
		return nil, fmt.Errorf("no S3 client configured for source %s", source)
	}

	bucket, key, err := splitS3Source(source)
	if err != nil {
		return nil, err
	}

	result, err := l.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get object from S3: %w", err)
	}
	defer result.Body.Close()

	return io.ReadAll(result.Body)
}

func splitS3Source(source string) (bucket, key string, err error) {
	trimmed := strings.TrimPrefix(source, "s3://")
	bucket, key, found := strings.Cut(trimmed, "/")
	if !found || bucket == "" || key == "" {
		return "", "", fmt.Errorf("invalid s3 source %q, want s3://bucket/key", source)
	}
	return bucket, key, nil
}
