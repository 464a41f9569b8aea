// Package store writes valuation results, cashflows and quotes as parquet
// files to a local directory tree or S3, and fetches input tables from S3.
package store

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/parquet-go/parquet-go"
)

// S3API is the subset of the S3 client used here.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Dataset is a named set of rows produced for one date.
type Dataset[T any] struct {
	Name string
	Date time.Time
	Rows []T
}

func WriteParquet[T any](rows []T, output io.Writer) error {
	writer := parquet.NewGenericWriter[T](output)

	if _, err := writer.Write(rows); err != nil {
		writer.Close()
		return fmt.Errorf("failed to write records: %w", err)
	}

	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close writer: %w", err)
	}

	return nil
}

// ReadParquet reads every row of a parquet file written by WriteParquet.
func ReadParquet[T any](path string) ([]T, error) {
	return parquet.ReadFile[T](path)
}

// datePath is the YYYY/MM/DD prefix datasets are stored under.
func datePath(date time.Time) string {
	return fmt.Sprintf("%04d/%02d/%02d", date.UTC().Year(), date.UTC().Month(), date.UTC().Day())
}

func StoreToPath[T any](ctx context.Context, ds *Dataset[T], basepath string) (string, error) {
	dir := filepath.Join(basepath, filepath.FromSlash(datePath(ds.Date)))

	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return "", err
	}

	outPath := filepath.Join(dir, ds.Name+".parquet")

	file, err := os.Create(outPath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	if err := WriteParquet(ds.Rows, file); err != nil {
		return "", err
	}

	return outPath, nil
}

type S3Path struct {
	Bucket string
	Prefix string
}

func (p *S3Path) String() string {
	if p.Prefix == "" {
		return fmt.Sprintf("s3://%s", p.Bucket)
	}
	return fmt.Sprintf("s3://%s/%s", p.Bucket, p.Prefix)
}

func ParseS3(path string) (*S3Path, error) {
	if !strings.HasPrefix(path, "s3://") {
		return nil, fmt.Errorf("path must start with s3://")
	}

	path = strings.TrimPrefix(path, "s3://")
	parts := strings.SplitN(path, "/", 2)

	bucket := parts[0]
	if bucket == "" {
		return nil, fmt.Errorf("missing bucket in s3 path")
	}

	var prefix string
	if len(parts) > 1 {
		prefix = strings.TrimSuffix(parts[1], "/")
	}

	return &S3Path{
		Bucket: bucket,
		Prefix: prefix,
	}, nil
}

func StoreToS3[T any](ctx context.Context, ds *Dataset[T], s3Client S3API, dst *S3Path) (string, error) {
	tmp, err := os.CreateTemp("", "gilt-*.parquet")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %v", err)
	}
	defer tmp.Close()
	defer os.Remove(tmp.Name())

	if err := WriteParquet(ds.Rows, tmp); err != nil {
		return "", err
	}

	if _, err := tmp.Seek(0, 0); err != nil {
		return "", fmt.Errorf("failed to seek to start of file: %w", err)
	}

	key := fmt.Sprintf("%s/%s.parquet", datePath(ds.Date), ds.Name)
	if dst.Prefix != "" {
		key = fmt.Sprintf("%s/%s", dst.Prefix, key)
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(dst.Bucket),
		Key:    aws.String(key),
		Body:   tmp,
	}

	if _, err := s3Client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("failed to upload file to s3://%s/%s: %w", dst.Bucket, key, err)
	}

	return fmt.Sprintf("s3://%s/%s", dst.Bucket, key), nil
}

// Store writes the dataset under dst, which is either a local directory or
// an s3:// location.
func Store[T any](ctx context.Context, ds *Dataset[T], s3Client S3API, dst string) (string, error) {
	if s3Path, err := ParseS3(dst); err == nil {
		if s3Client == nil {
			return "", fmt.Errorf("no s3 client for %s", dst)
		}
		return StoreToS3(ctx, ds, s3Client, s3Path)
	}
	return StoreToPath(ctx, ds, dst)
}

// FetchS3 downloads the object at src to a temporary file that keeps the
// object's extension. The caller removes the file.
func FetchS3(ctx context.Context, s3Client S3API, src *S3Path) (string, error) {
	out, err := s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(src.Bucket),
		Key:    aws.String(src.Prefix),
	})
	if err != nil {
		return "", fmt.Errorf("failed to get %s: %w", src, err)
	}
	defer out.Body.Close()

	tmp, err := os.CreateTemp("", "gilt-input-*"+path.Ext(src.Prefix))
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %v", err)
	}
	defer tmp.Close()

	if _, err := io.Copy(tmp, out.Body); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to download %s: %w", src, err)
	}

	return tmp.Name(), nil
}
