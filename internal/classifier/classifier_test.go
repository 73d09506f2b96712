package classifier_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/JaimeStill/emoclassify/internal/chunking"
	"github.com/JaimeStill/emoclassify/internal/classifier"
	"github.com/JaimeStill/emoclassify/internal/conversation"
	"github.com/JaimeStill/emoclassify/internal/definitions"
	"github.com/JaimeStill/emoclassify/internal/oracle"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// scriptedOracle answers by the content of the chunk's final message.
type scriptedOracle struct {
	answers map[string]oracle.Verdict
	fail    map[string]error
	delay   time.Duration

	calls atomic.Int64
	mu    sync.Mutex
	seen  []string
}

func (s *scriptedOracle) Classify(ctx context.Context, def definitions.Definition, chunk chunking.Chunk) (oracle.Verdict, error) {
	s.calls.Add(1)
	content := chunk.Last().Content

	s.mu.Lock()
	s.seen = append(s.seen, content)
	s.mu.Unlock()

	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if err, ok := s.fail[content]; ok {
		return "", err
	}
	if v, ok := s.answers[content]; ok {
		return v, nil
	}
	return oracle.No, nil
}

func definition(policy chunking.Policy) definitions.Definition {
	return definitions.V1Definition{
		Common: definitions.Common{
			ClassifierName: "sadness",
			Chunker:        policy,
			Prompt:         "Does the user express sadness?",
		},
	}
}

func conv() conversation.Conversation {
	return conversation.Conversation{
		{Role: conversation.RoleUser, Content: "hi"},
		{Role: conversation.RoleAssistant, Content: "hello"},
		{Role: conversation.RoleUser, Content: "I'm so sad today"},
		{Role: conversation.RoleAssistant, Content: "I'm sorry to hear that"},
		{Role: conversation.RoleUser, Content: "thanks"},
	}
}

func TestClassifyConversation(t *testing.T) {
	o := &scriptedOracle{answers: map[string]oracle.Verdict{
		"I'm so sad today": oracle.Yes,
		"thanks":           oracle.Unsure,
	}}
	c := classifier.New(definition(chunking.UserMessage), o, chunking.DefaultContext)

	got, err := c.ClassifyConversation(context.Background(), conv())
	require.NoError(t, err)

	want := map[int]oracle.Verdict{0: oracle.No, 2: oracle.Yes, 4: oracle.Unsure}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ClassifyConversation() mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, int64(3), o.calls.Load())
}

func TestClassifyEmptyConversation(t *testing.T) {
	o := &scriptedOracle{}

	for _, p := range chunking.Policies() {
		t.Run(string(p), func(t *testing.T) {
			c := classifier.New(definition(p), o, chunking.DefaultContext)
			got, err := c.ClassifyConversation(context.Background(), nil)
			require.NoError(t, err)
			assert.NotNil(t, got)
			assert.Empty(t, got)
		})
	}
	assert.Zero(t, o.calls.Load())
}

func TestClassifyNoMatchingChunks(t *testing.T) {
	o := &scriptedOracle{}
	c := classifier.New(definition(chunking.AssistantMessage), o, chunking.DefaultContext)

	got, err := c.ClassifyConversation(context.Background(), conversation.Conversation{
		{Role: conversation.RoleUser, Content: "anyone there?"},
	})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestClassifyFailurePropagates(t *testing.T) {
	o := &scriptedOracle{
		fail:  map[string]error{"hi": oracle.ErrParseFailure},
		delay: 5 * time.Millisecond,
	}
	c := classifier.New(definition(chunking.UserMessage), o, chunking.DefaultContext)

	got, err := c.ClassifyConversation(context.Background(), conv())
	assert.Nil(t, got)
	assert.ErrorIs(t, err, oracle.ErrParseFailure)
	assert.ErrorContains(t, err, "chunk 0")

	// siblings still ran to completion
	assert.Equal(t, int64(3), o.calls.Load())
}

func TestClassifyUnknownPolicy(t *testing.T) {
	c := classifier.New(definition("sentence"), &scriptedOracle{}, chunking.DefaultContext)

	_, err := c.ClassifyConversation(context.Background(), conv())
	assert.ErrorIs(t, err, chunking.ErrUnknownPolicy)
}

type gatedCompleter struct {
	active atomic.Int64
	peak   atomic.Int64
}

func (g *gatedCompleter) Complete(ctx context.Context, req oracle.Request) (string, error) {
	n := g.active.Add(1)
	defer g.active.Add(-1)
	for {
		p := g.peak.Load()
		if n <= p || g.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(15 * time.Millisecond)
	return `{"response": "no"}`, nil
}

func TestClassifyRespectsOracleCap(t *testing.T) {
	messages := make(conversation.Conversation, 0, 5)
	for range 5 {
		messages = append(messages, conversation.Message{Role: conversation.RoleUser, Content: "still here"})
	}

	completer := &gatedCompleter{}
	client := oracle.New(completer, &oracle.Config{MaxConcurrent: 2}, discardLogger())
	c := classifier.New(definition(chunking.UserMessage), client, chunking.DefaultContext)

	got, err := c.ClassifyConversation(context.Background(), messages)
	require.NoError(t, err)
	assert.Len(t, got, 5)
	assert.LessOrEqual(t, completer.peak.Load(), int64(2))
}

func TestFromDefinitions(t *testing.T) {
	defs := definitions.Set{
		"b": definition(chunking.UserMessage),
		"a": definition(chunking.WholeConversation),
	}

	set := classifier.FromDefinitions(defs, &scriptedOracle{}, 2)
	assert.Equal(t, []string{"a", "b"}, set.Names())
	assert.Equal(t, chunking.WholeConversation, set["a"].Definition().Policy())
	assert.Equal(t, "sadness", set["b"].Name())
}

var errBoom = errors.New("boom")

func TestClassifyWrapsOracleError(t *testing.T) {
	o := &scriptedOracle{fail: map[string]error{"thanks": errBoom}}
	c := classifier.New(definition(chunking.UserMessage), o, chunking.DefaultContext)

	_, err := c.ClassifyConversation(context.Background(), conv())
	assert.ErrorIs(t, err, errBoom)
	assert.ErrorContains(t, err, "classifier sadness")
}
