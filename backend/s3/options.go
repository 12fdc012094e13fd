package s3

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// Options holds s3-specific options. Zero values defer to the aws default
// credential and region resolution chain.
type Options struct {
	AccessKeyID                 string                `json:"accessKeyId,omitempty"`
	SecretAccessKey             string                `json:"secretAccessKey,omitempty"`
	SessionToken                string                `json:"sessionToken,omitempty"`
	Region                      string                `json:"region,omitempty"`
	RoleARN                     string                `json:"roleARN,omitempty"`
	Endpoint                    string                `json:"endpoint,omitempty"`
	ACL                         types.ObjectCannedACL `json:"acl,omitempty"`
	ForcePathStyle              bool                  `json:"forcePathStyle,omitempty"`
	DisableServerSideEncryption bool                  `json:"disableServerSideEncryption,omitempty"`
	Retry                       aws.Retryer           `json:"-"`
	UploadChunkSize             int64                 `json:"uploadChunkSize,omitempty"`
	UploadConcurrency           int                   `json:"uploadConcurrency,omitempty"`
	FileBufferSize              int                   `json:"fileBufferSize,omitempty"`
	DownloadPartitionSize       int64                 `json:"downloadPartitionSize,omitempty"`
}

// getClient builds the s3 client from the aws default config overlaid with
// whatever Options set explicitly.
func getClient(opt Options) (Client, error) {
	awsConfig, err := config.LoadDefaultConfig(context.Background())
	if err != nil {
		return nil, err
	}

	return s3.NewFromConfig(awsConfig, func(opts *s3.Options) {
		if opt.Region != "" {
			opts.Region = opt.Region
		}
		if opt.Endpoint != "" {
			// minio/localstack style fixed endpoint; otherwise the sdk
			// resolves one from the region
			opts.BaseEndpoint = aws.String(opt.Endpoint)
		}
		opts.UsePathStyle = opt.ForcePathStyle
		if opt.Retry != nil {
			opts.Retryer = opt.Retry
		}
		if provider := credentialsProvider(awsConfig, opt); provider != nil {
			opts.Credentials = provider
		}
	}), nil
}

// credentialsProvider picks static keys when both halves are set, an assumed
// role when one is named, and otherwise nil so the default chain applies.
func credentialsProvider(awsConfig aws.Config, opt Options) aws.CredentialsProvider {
	switch {
	case opt.AccessKeyID != "" && opt.SecretAccessKey != "":
		return credentials.NewStaticCredentialsProvider(opt.AccessKeyID, opt.SecretAccessKey, opt.SessionToken)
	case opt.RoleARN != "":
		return aws.NewCredentialsCache(stscreds.NewAssumeRoleProvider(sts.NewFromConfig(awsConfig), opt.RoleARN))
	default:
		return nil
	}
}
