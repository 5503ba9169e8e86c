package platform

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/markdave123-py/Conversa/internal/models"
)

// SDKClient is the structured-client rendition of the platform surface,
// built on go-openai. The SDK covers files and vector stores; conversations
// and responses are not in its surface, so those two calls delegate to the
// shared REST core. Result shapes are identical either way.
type SDKClient struct {
	oa   *openai.Client
	rest *RESTClient
}

func NewSDKClient(apiKey, baseURL string, rest *RESTClient) *SDKClient {
	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &SDKClient{
		oa:   openai.NewClientWithConfig(clientConfig),
		rest: rest,
	}
}

// mapSDKErr normalizes SDK failures so callers can test for ErrNotFound the
// same way on both paths.
func mapSDKErr(op string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (c *SDKClient) CreateConversation(ctx context.Context) (models.Conversation, error) {
	return c.rest.CreateConversation(ctx)
}

func (c *SDKClient) CreateIndex(ctx context.Context, name string) (models.ContentIndex, error) {
	vs, err := c.oa.CreateVectorStore(ctx, openai.VectorStoreRequest{Name: name})
	if err != nil {
		return models.ContentIndex{}, mapSDKErr("create vector store", err)
	}
	return vectorStoreToModel(vs), nil
}

func (c *SDKClient) RetrieveIndex(ctx context.Context, indexID string) (models.ContentIndex, error) {
	vs, err := c.oa.RetrieveVectorStore(ctx, indexID)
	if err != nil {
		return models.ContentIndex{}, mapSDKErr("retrieve vector store", err)
	}
	return vectorStoreToModel(vs), nil
}

func vectorStoreToModel(vs openai.VectorStore) models.ContentIndex {
	return models.ContentIndex{
		ID:        vs.ID,
		Name:      vs.Name,
		Status:    vs.Status,
		FileCount: vs.FileCounts.Total,
	}
}

func (c *SDKClient) AddFileToIndex(ctx context.Context, indexID, fileID string) (models.IndexMembership, error) {
	vf, err := c.oa.CreateVectorStoreFile(ctx, indexID, openai.VectorStoreFileRequest{FileID: fileID})
	if err != nil {
		return models.IndexMembership{}, mapSDKErr("add file to vector store", err)
	}
	return vectorStoreFileToModel(indexID, vf), nil
}

func (c *SDKClient) RetrieveMembership(ctx context.Context, indexID, fileID string) (models.IndexMembership, error) {
	vf, err := c.oa.RetrieveVectorStoreFile(ctx, indexID, fileID)
	if err != nil {
		return models.IndexMembership{}, mapSDKErr("retrieve vector store file", err)
	}
	return vectorStoreFileToModel(indexID, vf), nil
}

func vectorStoreFileToModel(indexID string, vf openai.VectorStoreFile) models.IndexMembership {
	return models.IndexMembership{
		IndexID: indexID,
		FileID:  vf.ID,
		Status:  models.MembershipStatus(vf.Status),
	}
}

func (c *SDKClient) ImportFile(ctx context.Context, req ImportRequest) (models.FileHandle, error) {
	f, err := c.oa.CreateFileBytes(ctx, openai.FileBytesRequest{
		Name:    req.Filename,
		Bytes:   req.Data,
		Purpose: openai.PurposeAssistants,
	})
	if err != nil {
		return models.FileHandle{}, mapSDKErr("import file", err)
	}
	return models.FileHandle{
		ID:          f.ID,
		Filename:    f.FileName,
		ContentType: req.ContentType,
		Category:    req.Category,
	}, nil
}

func (c *SDKClient) CreateResponse(ctx context.Context, req ResponseRequest) (models.Reply, error) {
	return c.rest.CreateResponse(ctx, req)
}

func (c *SDKClient) StreamResponse(ctx context.Context, req ResponseRequest, emit func(StreamEvent)) (models.Reply, error) {
	return c.rest.StreamResponse(ctx, req, emit)
}
