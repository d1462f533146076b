package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	cfg "github.com/maheshrc27/postflow/configs"
)

type R2Service struct {
	config  cfg.Config
	presign *s3.PresignClient
}

func NewR2Service(ctx context.Context, cfg cfg.Config) (*R2Service, error) {
	client, err := R2Client(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &R2Service{config: cfg, presign: s3.NewPresignClient(client)}, nil
}

func R2Client(ctx context.Context, c cfg.Config) (*s3.Client, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(c.R2.AccessKey, c.R2.SecretKey, "")),
		config.WithRegion("auto"),
	)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", c.R2.AccountID))
	}), nil
}

// PresignGetURL returns a time-limited GET URL for an object in the bucket.
func (r *R2Service) PresignGetURL(ctx context.Context, key string) (string, error) {
	req, err := r.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.config.R2.BucketName),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(r.config.R2.PresignTTL))
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}
	return req.URL, nil
}
