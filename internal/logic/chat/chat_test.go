package chat

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/Malowking/parlrag/core/agent"
	"github.com/Malowking/parlrag/core/conversation"
	coreErrors "github.com/Malowking/parlrag/core/errors"
	"github.com/Malowking/parlrag/core/generator"
	"github.com/Malowking/parlrag/core/grader"
	"github.com/Malowking/parlrag/core/query"
	"github.com/Malowking/parlrag/internal/testkit"
	"github.com/cloudwego/eino/components/retriever"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

type emptyRetriever struct{}

func (emptyRetriever) Retrieve(context.Context, string, ...retriever.Option) ([]*schema.Document, error) {
	return nil, nil
}

func newTestChat(t *testing.T, m *testkit.ScriptedModel, store conversation.Store) *Chat {
	t.Helper()
	gr, err := grader.NewGrader(testkit.Replies(testkit.ToolCall("g", grader.GradeToolName, `{"binaryScore":"no"}`)), false, 1)
	require.NoError(t, err)
	a, err := agent.NewAgent(context.Background(), &agent.Config{
		Model:       m,
		Retriever:   emptyRetriever{},
		Grader:      gr,
		Transformer: query.NewTransformer(testkit.Replies(schema.AssistantMessage("q", nil))),
		Generator:   generator.NewGenerator(testkit.Replies(schema.AssistantMessage("g", nil)), nil),
		MaxHops:     4,
	})
	require.NoError(t, err)
	return NewChat(a, store)
}

// echoModel 回复包含当前历史的消息数
func echoModel() *testkit.ScriptedModel {
	return testkit.NewScriptedModel(func(_ context.Context, input []*schema.Message, _ []*schema.ToolInfo) (*schema.Message, error) {
		return schema.AssistantMessage(fmt.Sprintf("seen %d: %s", len(input), testkit.LastUserText(input)), nil), nil
	})
}

func TestTurn_SavesOnSuccess(t *testing.T) {
	ctx := context.Background()
	store := conversation.NewMemoryStore(time.Minute)
	c := newTestChat(t, echoModel(), store)

	var deltas []string
	res, err := c.Turn(ctx, "s1", "Hello", func(d string) { deltas = append(deltas, d) })
	require.NoError(t, err)
	assert.Equal(t, "Hello", res.Question)
	assert.Equal(t, "seen 2: Hello", res.Response)
	assert.Equal(t, res.Response, strings.Join(deltas, ""))

	res, err = c.Turn(ctx, "s1", "Again", nil)
	require.NoError(t, err)
	// system + user + assistant + user
	assert.Equal(t, "seen 4: Again", res.Response)

	conv, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, conv.Messages, 4)
	assert.Equal(t, schema.User, conv.Messages[2].Role)
	assert.Equal(t, res.MessageID, conv.Messages[3].ID)
}

func TestTurn_FailureSavesNothing(t *testing.T) {
	ctx := context.Background()
	store := conversation.NewMemoryStore(time.Minute)
	m := testkit.NewScriptedModel(func(context.Context, []*schema.Message, []*schema.ToolInfo) (*schema.Message, error) {
		return nil, fmt.Errorf("provider unavailable")
	})
	c := newTestChat(t, m, store)

	_, err := c.Turn(ctx, "s1", "Hello", nil)
	require.Error(t, err)
	assert.True(t, coreErrors.HasCode(err, coreErrors.ErrLLMCallFailed))

	conv, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, conv.Messages)
}

func TestTurn_RejectsEmptyMessage(t *testing.T) {
	c := newTestChat(t, echoModel(), conversation.NewMemoryStore(time.Minute))
	_, err := c.Turn(context.Background(), "s1", "  ", nil)
	assert.True(t, coreErrors.HasCode(err, coreErrors.ErrInvalidParameter))
}

func TestTurn_SerializesSessionAndReleasesLocks(t *testing.T) {
	ctx := context.Background()
	store := conversation.NewMemoryStore(time.Minute)
	c := newTestChat(t, echoModel(), store)

	var eg errgroup.Group
	for i := 0; i < 8; i++ {
		eg.Go(func() error {
			_, err := c.Turn(ctx, "shared", fmt.Sprintf("question %d", i), nil)
			return err
		})
		eg.Go(func() error {
			_, err := c.Turn(ctx, fmt.Sprintf("own-%d", i), "Hello", nil)
			return err
		})
	}
	require.NoError(t, eg.Wait())

	// 同一会话串行执行，没有轮次被覆盖
	conv, err := store.Load(ctx, "shared")
	require.NoError(t, err)
	assert.Len(t, conv.Messages, 16)
	assert.Zero(t, c.locks.Len())

	_, err = c.Turn(ctx, "shared", "   ", nil)
	require.Error(t, err)
	_, err = c.Turn(ctx, "fresh", "Hello", nil)
	require.NoError(t, err)
	assert.Zero(t, c.locks.Len())
}

func TestSessionLocks_RemovedAfterUnlock(t *testing.T) {
	l := newSessionLocks()
	l.Lock("a")
	l.Lock("b")
	assert.Equal(t, 2, l.Len())

	done := make(chan struct{})
	go func() {
		l.Lock("a")
		l.Unlock("a")
		close(done)
	}()
	l.Unlock("a")
	<-done
	assert.Equal(t, 1, l.Len())

	l.Unlock("b")
	assert.Zero(t, l.Len())
}
