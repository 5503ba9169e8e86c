package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/Conversa/internal/pkg/logger"
)

func TestSendBindsContentIndex(t *testing.T) {
	fake := newFakePlatform()
	svc := NewDispatchService(fake, logger.NewNopLogger())

	reply, err := svc.Send(context.Background(), "conv_0001", "vs_0001", "summarize this file", ToolConfig{})
	require.NoError(t, err)
	assert.NotEmpty(t, reply.Text)
	assert.Equal(t, []string{"vs_0001"}, fake.lastResponseReq.IndexIDs)
}

func TestSendDegradesWithoutIndex(t *testing.T) {
	fake := newFakePlatform()
	svc := NewDispatchService(fake, logger.NewNopLogger())

	reply, err := svc.Send(context.Background(), "conv_0001", "", "hello", ToolConfig{})
	require.NoError(t, err, "a missing index is degraded mode, not an error")
	assert.NotEmpty(t, reply.Text)
	assert.Empty(t, fake.lastResponseReq.IndexIDs)
}

func TestSendCapturesLazyConversationID(t *testing.T) {
	fake := newFakePlatform()
	svc := NewDispatchService(fake, logger.NewNopLogger())

	reply, err := svc.Send(context.Background(), "", "", "hello", ToolConfig{})
	require.NoError(t, err)
	assert.NotEmpty(t, reply.ConversationID, "dispatcher reports the platform-assigned id")
	assert.True(t, strings.HasPrefix(reply.ResponseID, "resp_"))
}

func TestSendStreamAccumulates(t *testing.T) {
	fake := newFakePlatform()
	fake.streamDeltas = []string{"The ", "report ", "covers ", "revenue."}
	svc := NewDispatchService(fake, logger.NewNopLogger())

	var got []string
	reply, err := svc.SendStream(context.Background(), "conv_0001", "vs_0001", "summarize", ToolConfig{}, func(delta string) {
		got = append(got, delta)
	})
	require.NoError(t, err)
	assert.Equal(t, fake.streamDeltas, got)
	assert.Equal(t, "The report covers revenue.", reply.Text)
}
