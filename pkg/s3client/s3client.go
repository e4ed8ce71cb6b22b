package s3client

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

const defaultRegion = "ap-southeast-1"

type Client struct {
	api s3iface.S3API
}

// New builds a client from static credentials; an empty region falls back to ap-southeast-1.
func New(awsAccessKey, awsSecretKey, region string) (*Client, error) {
	if awsAccessKey == "" || awsSecretKey == "" {
		return nil, fmt.Errorf("AWS_ACCESS_KEY and AWS_SECRET_KEY must be set")
	}
	if region == "" {
		region = defaultRegion
	}

	sess, err := session.NewSession(&aws.Config{
		Credentials: credentials.NewStaticCredentials(awsAccessKey, awsSecretKey, ""),
		Region:      aws.String(region),
	})
	if err != nil {
		return nil, fmt.Errorf("fail to create aws session: %w", err)
	}
	return &Client{api: s3.New(sess)}, nil
}

func NewWithAPI(api s3iface.S3API) *Client {
	return &Client{api: api}
}

func (c *Client) GetObject(ctx context.Context, bucket, key string) ([]byte, error) {
	result, err := c.api.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("fail to get s3://%s/%s: %w", bucket, key, err)
	}
	defer result.Body.Close()

	body, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("fail to read s3://%s/%s: %w", bucket, key, err)
	}
	return body, nil
}

func (c *Client) UploadObject(ctx context.Context, bucket, key string, body []byte) error {
	_, err := c.api.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(body),
	})
	if err != nil {
		return fmt.Errorf("fail to upload s3://%s/%s: %w", bucket, key, err)
	}
	return nil
}
