package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/markdave123-py/Conversa/internal/core/platform"
	"github.com/markdave123-py/Conversa/internal/models"
)

// fakePlatform scripts the assistant platform for tests. Poll results for a
// membership are consumed one per RetrieveMembership call; the last entry
// repeats once the script runs out.
type fakePlatform struct {
	mu sync.Mutex

	conversationSeq int
	indexSeq        int
	fileSeq         int
	responseSeq     int

	indexes     map[string]models.ContentIndex
	memberships map[string][]pollStep
	pollCounts  map[string]int

	createConversationErr error
	createIndexErr        error
	retrieveIndexErr      error
	addFileErr            error

	lastResponseReq platform.ResponseRequest
	streamDeltas    []string
	replyText       string
}

type pollStep struct {
	status models.MembershipStatus
	err    error
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		indexes:     make(map[string]models.ContentIndex),
		memberships: make(map[string][]pollStep),
		pollCounts:  make(map[string]int),
		replyText:   "the report covers quarterly revenue",
	}
}

func membershipKey(indexID, fileID string) string { return indexID + "/" + fileID }

func (f *fakePlatform) script(indexID, fileID string, steps ...pollStep) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.memberships[membershipKey(indexID, fileID)] = steps
}

func (f *fakePlatform) CreateConversation(context.Context) (models.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createConversationErr != nil {
		return models.Conversation{}, f.createConversationErr
	}
	f.conversationSeq++
	return models.Conversation{ID: fmt.Sprintf("conv_%04d", f.conversationSeq)}, nil
}

func (f *fakePlatform) CreateIndex(_ context.Context, name string) (models.ContentIndex, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createIndexErr != nil {
		return models.ContentIndex{}, f.createIndexErr
	}
	f.indexSeq++
	idx := models.ContentIndex{ID: fmt.Sprintf("vs_%04d", f.indexSeq), Name: name, Status: "completed"}
	f.indexes[idx.ID] = idx
	return idx, nil
}

func (f *fakePlatform) RetrieveIndex(_ context.Context, indexID string) (models.ContentIndex, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.retrieveIndexErr != nil {
		return models.ContentIndex{}, f.retrieveIndexErr
	}
	idx, ok := f.indexes[indexID]
	if !ok {
		return models.ContentIndex{}, fmt.Errorf("retrieve vector store: %w", platform.ErrNotFound)
	}
	return idx, nil
}

func (f *fakePlatform) AddFileToIndex(_ context.Context, indexID, fileID string) (models.IndexMembership, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addFileErr != nil {
		return models.IndexMembership{}, f.addFileErr
	}
	key := membershipKey(indexID, fileID)
	if _, ok := f.memberships[key]; !ok {
		f.memberships[key] = []pollStep{{status: models.MembershipCompleted}}
	}
	return models.IndexMembership{IndexID: indexID, FileID: fileID, Status: models.MembershipQueued}, nil
}

func (f *fakePlatform) RetrieveMembership(_ context.Context, indexID, fileID string) (models.IndexMembership, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := membershipKey(indexID, fileID)
	steps, ok := f.memberships[key]
	if !ok {
		return models.IndexMembership{}, errors.New("membership not found")
	}
	i := f.pollCounts[key]
	f.pollCounts[key]++
	if i >= len(steps) {
		i = len(steps) - 1
	}
	step := steps[i]
	if step.err != nil {
		return models.IndexMembership{}, step.err
	}
	return models.IndexMembership{IndexID: indexID, FileID: fileID, Status: step.status}, nil
}

func (f *fakePlatform) polls(indexID, fileID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pollCounts[membershipKey(indexID, fileID)]
}

func (f *fakePlatform) createdIndexes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.indexSeq
}

func (f *fakePlatform) ImportFile(_ context.Context, req platform.ImportRequest) (models.FileHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fileSeq++
	return models.FileHandle{
		ID:          fmt.Sprintf("file_%04d", f.fileSeq),
		Filename:    req.Filename,
		ContentType: req.ContentType,
		Category:    req.Category,
	}, nil
}

func (f *fakePlatform) CreateResponse(_ context.Context, req platform.ResponseRequest) (models.Reply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastResponseReq = req
	f.responseSeq++
	convID := req.ConversationID
	if convID == "" {
		f.conversationSeq++
		convID = fmt.Sprintf("conv_%04d", f.conversationSeq)
	}
	return models.Reply{
		Text:           f.replyText,
		ResponseID:     fmt.Sprintf("resp_%04d", f.responseSeq),
		ConversationID: convID,
	}, nil
}

func (f *fakePlatform) StreamResponse(ctx context.Context, req platform.ResponseRequest, emit func(platform.StreamEvent)) (models.Reply, error) {
	f.mu.Lock()
	deltas := f.streamDeltas
	f.mu.Unlock()

	var text string
	for _, d := range deltas {
		text += d
		if emit != nil {
			emit(platform.StreamEvent{Delta: d})
		}
	}
	reply, err := f.CreateResponse(ctx, req)
	if err != nil {
		return models.Reply{}, err
	}
	if text != "" {
		reply.Text = text
	}
	if emit != nil {
		emit(platform.StreamEvent{Done: true})
	}
	return reply, nil
}

// failingStore rejects every write, for exercising persistence degradation.
type failingStore struct {
	saved int
}

func (s *failingStore) Get(context.Context, string) (*models.Session, error) { return nil, nil }
func (s *failingStore) Save(context.Context, *models.Session) error {
	s.saved++
	return errors.New("connection reset")
}
func (s *failingStore) Delete(context.Context, string) error { return nil }
func (s *failingStore) Close() error                         { return nil }
