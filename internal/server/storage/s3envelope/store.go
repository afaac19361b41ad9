// Package s3envelope хранит конверты ключей в S3-совместимом объектном хранилище.
// Один объект на пользователя, тело объекта - JSON конверта.
package s3envelope

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/iudanet/vaultsync/internal/models"
	"github.com/iudanet/vaultsync/internal/server/storage"
)

//go:generate moq -out objectclient_mock.go . ObjectClient

// ObjectClient subset of the S3 API used by Store
type ObjectClient interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Config параметры подключения к бакету
type Config struct {
	Bucket    string
	Region    string
	Endpoint  string // пусто для AWS, адрес MinIO и т.п. иначе
	AccessKey string
	SecretKey string
	Prefix    string
}

// Store implements storage.EnvelopeStorage on top of S3
type Store struct {
	client ObjectClient
	bucket string
	prefix string
}

var _ storage.EnvelopeStorage = (*Store)(nil)

var loadDefaultAWSConfig = config.LoadDefaultConfig

// New builds an S3 client from cfg
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket is not configured")
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return NewWithClient(client, cfg.Bucket, cfg.Prefix), nil
}

// NewWithClient creates Store over an existing client
func NewWithClient(client ObjectClient, bucket, prefix string) *Store {
	return &Store{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

// GetEnvelope returns user's key envelope
func (s *Store) GetEnvelope(ctx context.Context, userID string) (*models.KeyEnvelope, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(userID)),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, storage.ErrEnvelopeNotFound
		}
		return nil, fmt.Errorf("failed to get envelope object: %w", err)
	}
	defer func() {
		_ = out.Body.Close()
	}()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read envelope object: %w", err)
	}

	env := &models.KeyEnvelope{}
	if err := json.Unmarshal(body, env); err != nil {
		return nil, fmt.Errorf("failed to decode key envelope: %w", err)
	}
	return env, nil
}

// PutEnvelope replaces user's key envelope
func (s *Store) PutEnvelope(ctx context.Context, userID string, env *models.KeyEnvelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to encode key envelope: %w", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(userID)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to put envelope object: %w", err)
	}
	return nil
}

func (s *Store) key(userID string) string {
	if s.prefix == "" {
		return "envelopes/" + userID + ".json"
	}
	return s.prefix + "/envelopes/" + userID + ".json"
}
