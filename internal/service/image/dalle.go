package image

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// dalleSizes maps aspect ratios onto the sizes DALL-E 3 supports
var dalleSizes = map[string]string{
	"1:1":  openai.CreateImageSize1024x1024,
	"3:4":  openai.CreateImageSize1024x1792,
	"4:3":  openai.CreateImageSize1792x1024,
	"9:16": openai.CreateImageSize1024x1792,
	"16:9": openai.CreateImageSize1792x1024,
}

// DalleSize returns the DALL-E 3 size for an aspect, 1024x1024 if unknown
func DalleSize(aspect string) string {
	if size, ok := dalleSizes[aspect]; ok {
		return size
	}
	return openai.CreateImageSize1024x1024
}

// DalleClient generates images with DALL-E 3
type DalleClient struct {
	client *openai.Client
}

// NewDalleClient creates a DALL-E client. baseURL overrides the API root
// when non-empty.
func NewDalleClient(apiKey, baseURL string) *DalleClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &DalleClient{client: openai.NewClientWithConfig(cfg)}
}

// ImageURL generates one standard-quality image and returns its URL
func (c *DalleClient) ImageURL(ctx context.Context, prompt, aspect string) (string, error) {
	resp, err := c.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         prompt,
		Model:          openai.CreateImageModelDallE3,
		N:              1,
		Size:           DalleSize(aspect),
		Quality:        openai.CreateImageQualityStandard,
		ResponseFormat: openai.CreateImageResponseFormatURL,
	})
	if err != nil {
		return "", fmt.Errorf("create image: %w", err)
	}
	if len(resp.Data) == 0 {
		return "", nil
	}
	return resp.Data[0].URL, nil
}
