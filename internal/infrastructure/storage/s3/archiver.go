// Package s3 archiva los artefactos del comprobante (XML firmado, CDR) en un bucket S3 o compatible.
package s3

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/jhoicas/facturador-sunat/pkg/config"
)

// Archiver sube artefactos con la clave {prefix}/{ruc}/{archivo}.
type Archiver struct {
	bucket   string
	prefix   string
	uploader *manager.Uploader
}

// NewArchiver crea el cliente S3. Con Endpoint definido usa path-style (MinIO y similares).
func NewArchiver(ctx context.Context, cfg config.StorageConfig) (*Archiver, error) {
	var opts []func(*awsconfig.LoadOptions) error
	opts = append(opts, awsconfig.WithRegion(cfg.Region))
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	client := s3.NewFromConfig(awsCfg, s3Opts...)
	return &Archiver{
		bucket:   cfg.Bucket,
		prefix:   "comprobantes",
		uploader: manager.NewUploader(client),
	}, nil
}

// Key arma la clave del objeto.
func (a *Archiver) Key(ruc, fileName string) string {
	return path.Join(a.prefix, ruc, fileName)
}

// Archive sube data bajo {prefix}/{ruc}/{fileName}.
func (a *Archiver) Archive(ctx context.Context, ruc, fileName string, data []byte) error {
	_, err := a.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(a.Key(ruc, fileName)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType(fileName)),
	})
	if err != nil {
		return fmt.Errorf("s3 upload %s: %w", fileName, err)
	}
	return nil
}

func contentType(fileName string) string {
	switch strings.ToLower(path.Ext(fileName)) {
	case ".xml":
		return "application/xml"
	case ".zip":
		return "application/zip"
	}
	return "application/octet-stream"
}
