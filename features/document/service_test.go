package document

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"inquiro/backend/internal/text"
)

// --- Mocks ---

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Save(ctx context.Context, doc *Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockRepository) ExistsByHash(ctx context.Context, hash string) (bool, error) {
	args := m.Called(ctx, hash)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) Get(ctx context.Context, id string) (*Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Document), args.Error(1)
}

func (m *MockRepository) List(ctx context.Context) ([]Document, error) {
	args := m.Called(ctx)
	return args.Get(0).([]Document), args.Error(1)
}

func (m *MockRepository) UpdateStatus(ctx context.Context, id, status string) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockRepository) UpdateCategory(ctx context.Context, id, category string) error {
	args := m.Called(ctx, id, category)
	return args.Error(0)
}

func (m *MockRepository) SoftDelete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRepository) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockRepository) BulkCreateChunks(ctx context.Context, chunks []Chunk) error {
	args := m.Called(ctx, chunks)
	return args.Error(0)
}

func (m *MockRepository) GetChunks(ctx context.Context, documentID string) ([]Chunk, error) {
	args := m.Called(ctx, documentID)
	return args.Get(0).([]Chunk), args.Error(1)
}

func (m *MockRepository) CountChunks(ctx context.Context, documentID string) (int, error) {
	args := m.Called(ctx, documentID)
	return args.Int(0), args.Error(1)
}

func (m *MockRepository) DeleteChunks(ctx context.Context, documentID string) error {
	args := m.Called(ctx, documentID)
	return args.Error(0)
}

func (m *MockRepository) SearchableChunks(ctx context.Context) ([]Chunk, error) {
	args := m.Called(ctx)
	return args.Get(0).([]Chunk), args.Error(1)
}

func (m *MockRepository) ChunksMissingEmbedding(ctx context.Context, documentID string) ([]Chunk, error) {
	args := m.Called(ctx, documentID)
	return args.Get(0).([]Chunk), args.Error(1)
}

func (m *MockRepository) UpdateChunkEmbeddings(ctx context.Context, updates []ChunkEmbedding) error {
	args := m.Called(ctx, updates)
	return args.Error(0)
}

func (m *MockRepository) DocumentIDsMissingEmbeddings(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	return args.Get(0).([]string), args.Error(1)
}

type MockTaskCreator struct {
	mock.Mock
}

func (m *MockTaskCreator) Create(ctx context.Context, documentID string) (bool, error) {
	args := m.Called(ctx, documentID)
	return args.Bool(0), args.Error(1)
}

type MockStatusReader struct {
	mock.Mock
}

func (m *MockStatusReader) EmbeddingStatus(ctx context.Context, documentID string) (string, error) {
	args := m.Called(ctx, documentID)
	return args.String(0), args.Error(1)
}

func newTestService(repo *MockRepository, tasks *MockTaskCreator) *Service {
	return NewService(repo, tasks, text.DefaultSplitOptions())
}

// --- Tests ---

func TestCreate_Success(t *testing.T) {
	repo := new(MockRepository)
	tasks := new(MockTaskCreator)
	svc := newTestService(repo, tasks)

	repo.On("ExistsByHash", mock.Anything, mock.Anything).Return(false, nil)
	repo.On("Save", mock.Anything, mock.Anything).Return(nil)

	var saved []Chunk
	repo.On("BulkCreateChunks", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { saved = args.Get(1).([]Chunk) }).
		Return(nil)
	repo.On("UpdateStatus", mock.Anything, mock.Anything, StatusReady).Return(nil)
	tasks.On("Create", mock.Anything, mock.Anything).Return(true, nil)

	doc := &Document{Title: "Guide", Category: "routing"}
	err := svc.Create(context.Background(), doc, "first paragraph.\n\nsecond paragraph.")

	require.NoError(t, err)
	assert.Equal(t, StatusReady, doc.Status)
	assert.NotEmpty(t, doc.ContentHash)
	assert.Equal(t, int64(len("first paragraph.\n\nsecond paragraph.")), doc.ByteSize)
	assert.NotEmpty(t, doc.Preview)

	require.NotEmpty(t, saved)
	repo.AssertExpectations(t)
	tasks.AssertExpectations(t)
}

func TestCreate_ChunkParentWiring(t *testing.T) {
	repo := new(MockRepository)
	tasks := new(MockTaskCreator)
	svc := newTestService(repo, tasks)

	repo.On("ExistsByHash", mock.Anything, mock.Anything).Return(false, nil)
	repo.On("Save", mock.Anything, mock.Anything).Return(nil)

	var saved []Chunk
	repo.On("BulkCreateChunks", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { saved = args.Get(1).([]Chunk) }).
		Return(nil)
	repo.On("UpdateStatus", mock.Anything, mock.Anything, StatusReady).Return(nil)
	tasks.On("Create", mock.Anything, mock.Anything).Return(true, nil)

	doc := &Document{Title: "Guide"}
	require.NoError(t, svc.Create(context.Background(), doc, "alpha.\n\nbeta.\n\ngamma."))

	byID := make(map[string]Chunk, len(saved))
	for _, c := range saved {
		assert.NotEmpty(t, c.ID)
		assert.Equal(t, doc.ID, c.DocumentID)
		byID[c.ID] = c
	}

	parents, children := 0, 0
	for _, c := range saved {
		switch c.Type {
		case "parent":
			parents++
			assert.Empty(t, c.ParentID)
		default:
			children++
			parent, ok := byID[c.ParentID]
			require.True(t, ok, "child must reference a saved parent")
			assert.Equal(t, "parent", parent.Type)
		}
	}
	assert.Greater(t, parents, 0)
	assert.Greater(t, children, 0)
}

func TestCreate_Duplicate(t *testing.T) {
	repo := new(MockRepository)
	tasks := new(MockTaskCreator)
	svc := newTestService(repo, tasks)

	repo.On("ExistsByHash", mock.Anything, mock.Anything).Return(true, nil)

	err := svc.Create(context.Background(), &Document{Title: "dup"}, "same content")

	assert.ErrorIs(t, err, ErrDuplicate)
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestCreate_EmptyContent(t *testing.T) {
	svc := newTestService(new(MockRepository), new(MockTaskCreator))
	err := svc.Create(context.Background(), &Document{}, "   ")
	assert.Error(t, err)
}

func TestCreate_ChunkPersistFailureMarksError(t *testing.T) {
	repo := new(MockRepository)
	tasks := new(MockTaskCreator)
	svc := newTestService(repo, tasks)

	repo.On("ExistsByHash", mock.Anything, mock.Anything).Return(false, nil)
	repo.On("Save", mock.Anything, mock.Anything).Return(nil)
	repo.On("BulkCreateChunks", mock.Anything, mock.Anything).Return(errors.New("copy failed"))
	repo.On("UpdateStatus", mock.Anything, mock.Anything, StatusError).Return(nil)

	err := svc.Create(context.Background(), &Document{Title: "Guide"}, "some content")

	assert.Error(t, err)
	repo.AssertCalled(t, "UpdateStatus", mock.Anything, mock.Anything, StatusError)
	tasks.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreate_TaskFailureIsNotFatal(t *testing.T) {
	repo := new(MockRepository)
	tasks := new(MockTaskCreator)
	svc := newTestService(repo, tasks)

	repo.On("ExistsByHash", mock.Anything, mock.Anything).Return(false, nil)
	repo.On("Save", mock.Anything, mock.Anything).Return(nil)
	repo.On("BulkCreateChunks", mock.Anything, mock.Anything).Return(nil)
	repo.On("UpdateStatus", mock.Anything, mock.Anything, StatusReady).Return(nil)
	tasks.On("Create", mock.Anything, mock.Anything).Return(false, errors.New("nsq down"))

	err := svc.Create(context.Background(), &Document{Title: "Guide"}, "some content")

	assert.NoError(t, err, "ingestion succeeds even when the task enqueue fails")
}

func TestGet_ComposesDetail(t *testing.T) {
	repo := new(MockRepository)
	statuses := new(MockStatusReader)
	svc := newTestService(repo, new(MockTaskCreator))

	repo.On("Get", mock.Anything, "doc1").Return(&Document{ID: "doc1", Title: "Guide"}, nil)
	repo.On("CountChunks", mock.Anything, "doc1").Return(7, nil)
	statuses.On("EmbeddingStatus", mock.Anything, "doc1").Return("processing", nil)

	detail, err := svc.Get(context.Background(), "doc1", statuses)

	require.NoError(t, err)
	assert.Equal(t, 7, detail.ChunkCount)
	assert.Equal(t, "processing", detail.EmbeddingStatus)
}

func TestDelete_RemovesChunksFirst(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo, new(MockTaskCreator))

	repo.On("DeleteChunks", mock.Anything, "doc1").Return(nil)
	repo.On("SoftDelete", mock.Anything, "doc1").Return(nil)

	require.NoError(t, svc.Delete(context.Background(), "doc1"))
	repo.AssertExpectations(t)
}

func TestDelete_ChunkFailureAborts(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo, new(MockTaskCreator))

	repo.On("DeleteChunks", mock.Anything, "doc1").Return(errors.New("db down"))

	assert.Error(t, svc.Delete(context.Background(), "doc1"))
	repo.AssertNotCalled(t, "SoftDelete", mock.Anything, mock.Anything)
}
