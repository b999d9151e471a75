package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/3leaps/blobstream/pkg/source"
	s3client "github.com/3leaps/blobstream/pkg/source/s3"
)

var headCmd = &cobra.Command{
	Use:   "head <s3://bucket/key>",
	Short: "Print object properties without downloading the body",
	Args:  cobra.ExactArgs(1),
	RunE:  runHead,
}

func init() {
	rootCmd.AddCommand(headCmd)

	headCmd.Flags().StringVarP(&getRegion, "region", "r", "", "AWS region")
	headCmd.Flags().StringVarP(&getProfile, "profile", "p", "", "AWS profile")
	headCmd.Flags().StringVar(&getEndpoint, "endpoint", "", "Custom S3 endpoint")
}

type headOutput struct {
	Bucket       string            `json:"bucket"`
	Key          string            `json:"key"`
	Size         int64             `json:"size"`
	ETag         string            `json:"etag,omitempty"`
	ContentType  string            `json:"content_type,omitempty"`
	LastModified *time.Time        `json:"last_modified,omitempty"`
	Kind         string            `json:"kind,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

func runHead(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	parsed, err := ParseURI(args[0])
	if err != nil {
		return err
	}

	client, err := s3client.New(ctx, s3client.Config{
		Bucket:         parsed.Bucket,
		Key:            parsed.Key,
		Region:         getRegion,
		Endpoint:       getEndpoint,
		Profile:        getProfile,
		ForcePathStyle: getEndpoint != "",
	})
	if err != nil {
		return fmt.Errorf("connect to store: %w", err)
	}

	var pg source.PropertyGetter = client
	resp, err := pg.Properties(ctx)
	if err != nil {
		return err
	}

	out := headOutput{
		Bucket:      parsed.Bucket,
		Key:         parsed.Key,
		Size:        resp.ContentLength,
		ETag:        resp.ETag,
		ContentType: resp.ContentType,
		Kind:        string(resp.Kind),
		Metadata:    resp.Metadata,
	}
	if !resp.LastModified.IsZero() {
		out.LastModified = &resp.LastModified
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
