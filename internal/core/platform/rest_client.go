package platform

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/markdave123-py/Conversa/internal/models"
)

// RESTClient is the raw-HTTP rendition of the platform surface. It speaks
// the wire format directly so it keeps working when the structured SDK lags
// behind the platform's API.
type RESTClient struct {
	http  *resty.Client
	model string
}

func NewRESTClient(baseURL, apiKey, model string) *RESTClient {
	baseURL = strings.TrimRight(baseURL, "/")
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetAuthToken(apiKey).
		SetHeader("OpenAI-Beta", "assistants=v2").
		SetHeader("User-Agent", "Conversa/1.0").
		SetTimeout(2 * time.Minute)

	return &RESTClient{http: httpClient, model: model}
}

type restError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

func (c *RESTClient) wrapError(op string, resp *resty.Response) error {
	if resp.StatusCode() == http.StatusNotFound {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	var e restError
	if err := json.Unmarshal(resp.Body(), &e); err == nil && e.Error.Message != "" {
		return fmt.Errorf("%s (%d): %s", op, resp.StatusCode(), e.Error.Message)
	}
	return fmt.Errorf("%s (%d): %s", op, resp.StatusCode(), resp.String())
}

type restConversation struct {
	ID        string `json:"id"`
	CreatedAt int64  `json:"created_at"`
}

func (c *RESTClient) CreateConversation(ctx context.Context) (models.Conversation, error) {
	var out restConversation
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]any{}).
		SetResult(&out).
		Post("/conversations")
	if err != nil {
		return models.Conversation{}, fmt.Errorf("create conversation: %w", err)
	}
	if resp.IsError() {
		return models.Conversation{}, c.wrapError("create conversation", resp)
	}
	return models.Conversation{ID: out.ID, CreatedAt: time.Unix(out.CreatedAt, 0)}, nil
}

type restIndex struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Status     string `json:"status"`
	FileCounts struct {
		Total int `json:"total"`
	} `json:"file_counts"`
}

func (i restIndex) toModel() models.ContentIndex {
	return models.ContentIndex{ID: i.ID, Name: i.Name, Status: i.Status, FileCount: i.FileCounts.Total}
}

func (c *RESTClient) CreateIndex(ctx context.Context, name string) (models.ContentIndex, error) {
	var out restIndex
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]any{"name": name}).
		SetResult(&out).
		Post("/vector_stores")
	if err != nil {
		return models.ContentIndex{}, fmt.Errorf("create vector store: %w", err)
	}
	if resp.IsError() {
		return models.ContentIndex{}, c.wrapError("create vector store", resp)
	}
	return out.toModel(), nil
}

func (c *RESTClient) RetrieveIndex(ctx context.Context, indexID string) (models.ContentIndex, error) {
	var out restIndex
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/vector_stores/" + indexID)
	if err != nil {
		return models.ContentIndex{}, fmt.Errorf("retrieve vector store: %w", err)
	}
	if resp.IsError() {
		return models.ContentIndex{}, c.wrapError("retrieve vector store", resp)
	}
	return out.toModel(), nil
}

type restMembership struct {
	ID            string `json:"id"`
	VectorStoreID string `json:"vector_store_id"`
	Status        string `json:"status"`
	LastError     *struct {
		Message string `json:"message"`
	} `json:"last_error"`
}

func (m restMembership) toModel(indexID string) models.IndexMembership {
	out := models.IndexMembership{
		IndexID: indexID,
		FileID:  m.ID,
		Status:  models.MembershipStatus(m.Status),
	}
	if m.LastError != nil {
		out.LastError = m.LastError.Message
	}
	return out
}

func (c *RESTClient) AddFileToIndex(ctx context.Context, indexID, fileID string) (models.IndexMembership, error) {
	var out restMembership
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]any{"file_id": fileID}).
		SetResult(&out).
		Post("/vector_stores/" + indexID + "/files")
	if err != nil {
		return models.IndexMembership{}, fmt.Errorf("add file to vector store: %w", err)
	}
	if resp.IsError() {
		return models.IndexMembership{}, c.wrapError("add file to vector store", resp)
	}
	return out.toModel(indexID), nil
}

func (c *RESTClient) RetrieveMembership(ctx context.Context, indexID, fileID string) (models.IndexMembership, error) {
	var out restMembership
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/vector_stores/" + indexID + "/files/" + fileID)
	if err != nil {
		return models.IndexMembership{}, fmt.Errorf("retrieve vector store file: %w", err)
	}
	if resp.IsError() {
		return models.IndexMembership{}, c.wrapError("retrieve vector store file", resp)
	}
	return out.toModel(indexID), nil
}

type restFile struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
}

func (c *RESTClient) ImportFile(ctx context.Context, req ImportRequest) (models.FileHandle, error) {
	var out restFile
	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{"purpose": purposeFor(req.Category)}).
		SetFileReader("file", req.Filename, bytes.NewReader(req.Data)).
		SetResult(&out).
		Post("/files")
	if err != nil {
		return models.FileHandle{}, fmt.Errorf("import file: %w", err)
	}
	if resp.IsError() {
		return models.FileHandle{}, c.wrapError("import file", resp)
	}
	return models.FileHandle{
		ID:          out.ID,
		Filename:    out.Filename,
		ContentType: req.ContentType,
		Category:    req.Category,
	}, nil
}

// purposeFor maps a staged-file category onto the platform's file purpose.
// Everything the gateway stages today is consumed by assistant tooling.
func purposeFor(_ models.FileCategory) string {
	return "assistants"
}

type restResponse struct {
	ID           string `json:"id"`
	OutputText   string `json:"output_text"`
	Conversation struct {
		ID string `json:"id"`
	} `json:"conversation"`
	Output []struct {
		Type    string `json:"type"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"output"`
}

func (r restResponse) text() string {
	if r.OutputText != "" {
		return r.OutputText
	}
	var b strings.Builder
	for _, item := range r.Output {
		if item.Type != "message" {
			continue
		}
		for _, part := range item.Content {
			if part.Type == "output_text" {
				b.WriteString(part.Text)
			}
		}
	}
	return b.String()
}

func (r restResponse) toReply() models.Reply {
	return models.Reply{
		Text:           r.text(),
		ResponseID:     r.ID,
		ConversationID: r.Conversation.ID,
	}
}

func (c *RESTClient) responseBody(req ResponseRequest, stream bool) map[string]any {
	input := map[string]any{
		"role":    "user",
		"content": req.Text,
	}
	if len(req.AttachmentFileIDs) > 0 {
		attachments := make([]map[string]any, 0, len(req.AttachmentFileIDs))
		for _, fid := range req.AttachmentFileIDs {
			attachments = append(attachments, map[string]any{
				"file_id": fid,
				"tools":   []map[string]string{{"type": "file_search"}},
			})
		}
		input["attachments"] = attachments
	}

	body := map[string]any{
		"model": c.model,
		"input": []map[string]any{input},
	}
	if req.ConversationID != "" {
		body["conversation"] = req.ConversationID
	}
	if len(req.IndexIDs) > 0 {
		body["tools"] = []map[string]any{{
			"type":             "file_search",
			"vector_store_ids": req.IndexIDs,
		}}
	}
	if stream {
		body["stream"] = true
	}
	return body
}

func (c *RESTClient) CreateResponse(ctx context.Context, req ResponseRequest) (models.Reply, error) {
	var out restResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(c.responseBody(req, false)).
		SetResult(&out).
		Post("/responses")
	if err != nil {
		return models.Reply{}, fmt.Errorf("create response: %w", err)
	}
	if resp.IsError() {
		return models.Reply{}, c.wrapError("create response", resp)
	}
	reply := out.toReply()
	if reply.ConversationID == "" {
		reply.ConversationID = req.ConversationID
	}
	return reply, nil
}

const (
	ssePrefix  = "data: "
	sseDone    = "[DONE]"
	sseMaxLine = 1 << 20
)

type sseEvent struct {
	Type     string        `json:"type"`
	Delta    string        `json:"delta"`
	Response *restResponse `json:"response"`
}

// StreamResponse submits the turn with stream=true and parses the SSE frames
// as they arrive. Deltas are forwarded through emit; the accumulated reply is
// returned once the stream finishes. Cancelling ctx aborts the underlying
// request mid-stream.
func (c *RESTClient) StreamResponse(ctx context.Context, req ResponseRequest, emit func(StreamEvent)) (models.Reply, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "text/event-stream").
		SetBody(c.responseBody(req, true)).
		SetDoNotParseResponse(true).
		Post("/responses")
	if err != nil {
		return models.Reply{}, fmt.Errorf("stream response: %w", err)
	}
	raw := resp.RawBody()
	defer raw.Close()

	if resp.StatusCode() >= 400 {
		buf := new(bytes.Buffer)
		_, _ = buf.ReadFrom(raw)
		var e restError
		if jsonErr := json.Unmarshal(buf.Bytes(), &e); jsonErr == nil && e.Error.Message != "" {
			return models.Reply{}, fmt.Errorf("stream response (%d): %s", resp.StatusCode(), e.Error.Message)
		}
		return models.Reply{}, fmt.Errorf("stream response (%d): %s", resp.StatusCode(), buf.String())
	}

	var (
		acc   strings.Builder
		reply models.Reply
	)
	sc := bufio.NewScanner(raw)
	sc.Buffer(make([]byte, 0, 64*1024), sseMaxLine)
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, ssePrefix) {
			continue
		}
		payload := strings.TrimPrefix(line, ssePrefix)
		if payload == sseDone {
			break
		}
		var ev sseEvent
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			continue
		}
		switch {
		case ev.Type == "response.output_text.delta" && ev.Delta != "":
			acc.WriteString(ev.Delta)
			if emit != nil {
				emit(StreamEvent{Delta: ev.Delta})
			}
		case ev.Type == "response.completed" && ev.Response != nil:
			reply = ev.Response.toReply()
		}
	}
	if err := sc.Err(); err != nil {
		if ctx.Err() != nil {
			return models.Reply{}, ctx.Err()
		}
		return models.Reply{}, fmt.Errorf("stream response: %w", err)
	}

	if reply.Text == "" {
		reply.Text = acc.String()
	}
	if reply.ConversationID == "" {
		reply.ConversationID = req.ConversationID
	}
	if emit != nil {
		emit(StreamEvent{Done: true})
	}
	return reply, nil
}
