package services

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sessionstore "github.com/markdave123-py/Conversa/internal/core/session-store"
	"github.com/markdave123-py/Conversa/internal/models"
	"github.com/markdave123-py/Conversa/internal/pkg/logger"
)

// fakeObjects serves staged blobs from a map, standing in for S3.
type fakeObjects struct {
	blobs map[string][]byte
}

func (f *fakeObjects) UploadFile(_ context.Context, _, key string, _ io.Reader, _ string) (string, error) {
	return "https://bucket.example/" + key, nil
}

func (f *fakeObjects) GetFile(_ context.Context, _, key string) ([]byte, error) {
	data, ok := f.blobs[key]
	if !ok {
		return nil, fmt.Errorf("no such key: %s", key)
	}
	return data, nil
}

func (f *fakeObjects) DeleteFile(context.Context, string, string) error { return nil }

func (f *fakeObjects) PresignPut(_ context.Context, _, key, _ string, _ time.Duration) (string, error) {
	return "https://bucket.example/presigned/" + key, nil
}

// TestUploadToAnswerFlow walks the whole attachment lifecycle: staged blob
// -> file import -> index create -> attach -> poll to completion ->
// conversation create -> retrieval-augmented turn.
func TestUploadToAnswerFlow(t *testing.T) {
	ctx := context.Background()
	fake := newFakePlatform()
	store := sessionstore.NewMemoryStore(time.Hour)
	nop := logger.NewNopLogger()

	objects := &fakeObjects{blobs: map[string][]byte{
		"uploads/user-1/report.csv": []byte("month,revenue\njan,100\nfeb,120\n"),
	}}

	importer := NewFileImportService(objects, fake, "bucket", nop)
	indexes := newIndexService(fake, store)
	conversations := newConversationService(fake, store)
	dispatch := NewDispatchService(fake, nop)

	sess := models.NewSession("sess-1", "user-1")

	handle, err := importer.Import(ctx, "uploads/user-1/report.csv", "report.csv", "text/csv", models.CategoryFileSearch)
	require.NoError(t, err)
	assert.Equal(t, "report.csv", handle.Filename)

	indexID, err := indexes.GetOrCreate(ctx, sess.ConversationID, sess)
	require.NoError(t, err)

	fake.script(indexID, handle.ID,
		pollStep{status: models.MembershipInProgress},
		pollStep{status: models.MembershipInProgress},
		pollStep{status: models.MembershipCompleted},
	)

	m, err := indexes.Attach(ctx, indexID, handle)
	require.NoError(t, err)
	assert.False(t, m.Status.Terminal())

	m, err = indexes.AwaitIndexed(ctx, indexID, handle, time.Second, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, models.MembershipCompleted, m.Status)

	convID, err := conversations.GetOrCreate(ctx, sess)
	require.NoError(t, err)

	reply, err := dispatch.Send(ctx, convID, indexID, "summarize this file", ToolConfig{})
	require.NoError(t, err)
	assert.NotEmpty(t, reply.Text)
	assert.True(t, strings.HasPrefix(reply.ResponseID, "resp_"))
	assert.Equal(t, []string{indexID}, fake.lastResponseReq.IndexIDs)
}

// TestDegradedSendAfterIndexingFailure: a file whose indexing job dies must
// not block the user's turn; the turn goes out without that file.
func TestDegradedSendAfterIndexingFailure(t *testing.T) {
	ctx := context.Background()
	fake := newFakePlatform()
	store := sessionstore.NewMemoryStore(time.Hour)
	nop := logger.NewNopLogger()

	indexes := newIndexService(fake, store)
	dispatch := NewDispatchService(fake, nop)
	sess := models.NewSession("sess-1", "user-1")

	indexID, err := indexes.GetOrCreate(ctx, "conv_0001", sess)
	require.NoError(t, err)

	handle := models.FileHandle{ID: "file_0001", Filename: "broken.pdf"}
	fake.script(indexID, handle.ID, pollStep{status: models.MembershipFailed})

	_, err = indexes.Attach(ctx, indexID, handle)
	require.NoError(t, err)
	_, err = indexes.AwaitIndexed(ctx, indexID, handle, time.Second, time.Millisecond)
	var failed *models.IndexingFailedError
	require.ErrorAs(t, err, &failed)

	// The turn still goes out, with the failed file excluded from the
	// message binding.
	reply, err := dispatch.Send(ctx, "conv_0001", indexID, "summarize anyway", ToolConfig{})
	require.NoError(t, err)
	assert.NotEmpty(t, reply.Text)
	assert.Empty(t, fake.lastResponseReq.AttachmentFileIDs)
}
