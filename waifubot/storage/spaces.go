package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/disgoorg/waifu-bot/waifubot/render"
)

// maxArtSize caps a single portrait download.
const maxArtSize = 8 << 20

type SpacesOptions struct {
	Key    string
	Secret string
	Region string
	Bucket string
	// Endpoint defaults to https://{region}.digitaloceanspaces.com.
	Endpoint  string
	ArtRoot   string
	PathStyle bool
}

// SpacesArtSource reads card portraits from a DigitalOcean Spaces (S3 compatible) bucket.
type SpacesArtSource struct {
	client  *s3.Client
	bucket  string
	artRoot string
}

func NewSpacesArtSource(ctx context.Context, opts SpacesOptions) (*SpacesArtSource, error) {
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s.digitaloceanspaces.com", opts.Region)
	}

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(opts.Key, opts.Secret, "")),
		config.WithRegion(opts.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load Spaces config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = opts.PathStyle
	})

	return &SpacesArtSource{
		client:  client,
		bucket:  opts.Bucket,
		artRoot: strings.Trim(opts.ArtRoot, "/"),
	}, nil
}

func (s *SpacesArtSource) objectKey(key string) string {
	key = strings.TrimPrefix(key, "/")
	if s.artRoot == "" {
		return key
	}
	return path.Join(s.artRoot, key)
}

// Art downloads one portrait. A missing object is render.ErrArtNotFound.
func (s *SpacesArtSource) Art(ctx context.Context, key string) ([]byte, error) {
	objectKey := s.objectKey(key)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, fmt.Errorf("%w: %s", render.ErrArtNotFound, objectKey)
		}
		return nil, fmt.Errorf("failed to fetch %s: %w", objectKey, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(io.LimitReader(out.Body, maxArtSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", objectKey, err)
	}
	if len(data) > maxArtSize {
		return nil, fmt.Errorf("art %s exceeds %d bytes", objectKey, maxArtSize)
	}

	slog.Debug("Card art fetched",
		slog.String("type", "sys"),
		slog.String("bucket", s.bucket),
		slog.String("key", objectKey),
		slog.Int("size", len(data)),
	)
	return data, nil
}

func (s *SpacesArtSource) Bucket() string {
	return s.bucket
}
