package flow

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memohai/mbot/internal/channel"
	"github.com/memohai/mbot/internal/channel/inbound"
	"github.com/memohai/mbot/internal/completion"
	"github.com/memohai/mbot/internal/conversation"
)

type fakeSender struct {
	mu       sync.Mutex
	messages []channel.Fragment
	actions  []channel.SenderAction
	failAt   map[int]bool
	calls    int
}

func (s *fakeSender) SendMessage(_ context.Context, _ string, fragment channel.Fragment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.calls
	s.calls++
	if s.failAt[idx] {
		return errors.New("send failed")
	}
	s.messages = append(s.messages, fragment)
	return nil
}

func (s *fakeSender) SendAction(_ context.Context, _ string, action channel.SenderAction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions = append(s.actions, action)
	return nil
}

type fakeCompleter struct {
	reply   []channel.Fragment
	windows [][]conversation.Turn
	prompts []completion.PromptConfig
}

func (c *fakeCompleter) Complete(_ context.Context, window []conversation.Turn, prompt completion.PromptConfig) []channel.Fragment {
	c.windows = append(c.windows, window)
	c.prompts = append(c.prompts, prompt)
	return c.reply
}

type staticPrompt string

func (p staticPrompt) SystemInstruction(context.Context) string { return string(p) }

type fakeSettings struct {
	floats map[string]float64
	ints   map[string]int
}

func (s fakeSettings) Float(_ context.Context, name string) (float64, bool) {
	v, ok := s.floats[name]
	return v, ok
}

func (s fakeSettings) Int(_ context.Context, name string) (int, bool) {
	v, ok := s.ints[name]
	return v, ok
}

type conflictStore struct {
	conversation.Store
}

func (conflictStore) Save(context.Context, conversation.Conversation) (conversation.Conversation, error) {
	return conversation.Conversation{}, conversation.ErrVersionConflict
}

type harness struct {
	session   *Session
	sender    *fakeSender
	completer *fakeCompleter
	store     conversation.Store
}

func newHarness(t *testing.T, reply []channel.Fragment, opts Options) *harness {
	t.Helper()
	h := &harness{
		sender:    &fakeSender{failAt: map[int]bool{}},
		completer: &fakeCompleter{reply: reply},
		store:     conversation.NewMemoryStore(),
	}
	h.session = NewSession(nil, Deps{
		Normalizer: inbound.NewNormalizer(nil, nil, inbound.ReplyPolicyMarker),
		Completer:  h.completer,
		Dispatcher: channel.NewDispatcher(nil, h.sender),
		Store:      h.store,
		Prompts:    staticPrompt("be helpful"),
	}, opts)
	return h
}

func textEvent(sender, mid, text string) channel.InboundEvent {
	return channel.InboundEvent{SenderID: sender, Message: &channel.InboundMessage{ID: mid, Text: text}}
}

func TestSessionHelloRoundTrip(t *testing.T) {
	t.Parallel()

	h := newHarness(t, []channel.Fragment{channel.TextFragment("Hi!")}, Options{Temperature: 0.7})
	ctx := context.Background()

	outcome := h.session.Process(ctx, textEvent("u1", "m1", "hello"))
	require.Equal(t, OutcomeAllSent, outcome)

	conv, err := h.store.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []conversation.Turn{
		conversation.UserTurn("hello"),
		conversation.AssistantTurn("Hi!"),
	}, conv.History)

	require.Len(t, h.completer.windows, 1)
	assert.Equal(t, []conversation.Turn{conversation.UserTurn("hello")}, h.completer.windows[0])
	assert.Equal(t, "be helpful", h.completer.prompts[0].SystemInstruction)
	assert.InDelta(t, 0.7, h.completer.prompts[0].Temperature, 1e-6)
	assert.Nil(t, h.completer.prompts[0].ThinkingBudget)

	assert.Equal(t, []channel.SenderAction{channel.ActionMarkSeen, channel.ActionTypingOn, channel.ActionTypingOff}, h.sender.actions)
	assert.Equal(t, []channel.Fragment{channel.TextFragment("Hi!")}, h.sender.messages)
}

func TestSessionDuplicateDropped(t *testing.T) {
	t.Parallel()

	h := newHarness(t, []channel.Fragment{channel.TextFragment("Hi!")}, Options{})
	ctx := context.Background()

	require.Equal(t, OutcomeAllSent, h.session.Process(ctx, textEvent("u1", "m1", "hello")))
	require.Equal(t, OutcomeDuplicate, h.session.Process(ctx, textEvent("u1", "m1", "hello")))

	assert.Len(t, h.completer.windows, 1)
	assert.Len(t, h.sender.messages, 1)
	conv, err := h.store.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, conv.History, 2)
}

func TestSessionPartialFailureLeavesHistory(t *testing.T) {
	t.Parallel()

	h := newHarness(t, []channel.Fragment{channel.TextFragment("one"), channel.TextFragment("two")}, Options{})
	ctx := context.Background()

	require.Equal(t, OutcomeAllSent, h.session.Process(ctx, textEvent("u1", "m1", "hello")))
	before, err := h.store.Load(ctx, "u1")
	require.NoError(t, err)

	h.sender.failAt[h.sender.calls+1] = true
	require.Equal(t, OutcomePartialFailure, h.session.Process(ctx, textEvent("u1", "m2", "again")))

	after, err := h.store.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Len(t, h.sender.messages, 3)
}

func TestSessionProviderExhausted(t *testing.T) {
	t.Parallel()

	h := newHarness(t, []channel.Fragment{}, Options{})
	ctx := context.Background()

	require.Equal(t, OutcomeProviderExhausted, h.session.Process(ctx, textEvent("u1", "m1", "hello")))
	assert.Empty(t, h.sender.messages)
	assert.Contains(t, h.sender.actions, channel.ActionTypingOff)

	conv, err := h.store.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, conv.History)
	assert.Zero(t, conv.Version)
}

func TestSessionPostbackBypassesDedup(t *testing.T) {
	t.Parallel()

	h := newHarness(t, []channel.Fragment{channel.TextFragment("Welcome")}, Options{})
	ctx := context.Background()
	event := channel.InboundEvent{SenderID: "u1", Postback: &channel.Postback{Title: "Get Started", Payload: "GET_STARTED"}}

	require.Equal(t, OutcomeAllSent, h.session.Process(ctx, event))
	require.Equal(t, OutcomeAllSent, h.session.Process(ctx, event))

	conv, err := h.store.Load(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, conv.History, 4)
	assert.Equal(t, `user clicked: "Get Started"`, conv.History[0].Content)
}

func TestSessionSkipsUnprocessable(t *testing.T) {
	t.Parallel()

	h := newHarness(t, []channel.Fragment{channel.TextFragment("Hi!")}, Options{})
	ctx := context.Background()

	echo := channel.InboundEvent{SenderID: "u1", Message: &channel.InboundMessage{ID: "m1", Text: "page said", IsEcho: true}}
	receipt := channel.InboundEvent{SenderID: "u1"}
	noSender := textEvent("", "m2", "hello")

	assert.Equal(t, OutcomeSkipped, h.session.Process(ctx, echo))
	assert.Equal(t, OutcomeSkipped, h.session.Process(ctx, receipt))
	assert.Equal(t, OutcomeSkipped, h.session.Process(ctx, noSender))
	assert.Empty(t, h.completer.windows)
	assert.Empty(t, h.sender.actions)
}

func TestSessionHistoryWindowAndSettings(t *testing.T) {
	t.Parallel()

	h := newHarness(t, []channel.Fragment{channel.TextFragment("ok")}, Options{MaxHistoryTurns: 4, Temperature: 0.7})
	h.session.settings = fakeSettings{
		floats: map[string]float64{"temperature": 0.2},
		ints:   map[string]int{"thinking_budget": 1024},
	}
	ctx := context.Background()

	seed := conversation.Conversation{SenderID: "u1"}
	for i := 0; i < 10; i++ {
		seed = seed.Append(conversation.UserTurn("q"), conversation.AssistantTurn("a"))
	}
	_, err := h.store.Save(ctx, seed)
	require.NoError(t, err)

	require.Equal(t, OutcomeAllSent, h.session.Process(ctx, textEvent("u1", "m1", "latest")))

	window := h.completer.windows[0]
	require.Len(t, window, 5)
	assert.Equal(t, conversation.UserTurn("latest"), window[4])

	prompt := h.completer.prompts[0]
	assert.InDelta(t, 0.2, prompt.Temperature, 1e-6)
	require.NotNil(t, prompt.ThinkingBudget)
	assert.Equal(t, 1024, *prompt.ThinkingBudget)

	conv, err := h.store.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, conv.History, 22)
}

func TestSessionSaveConflictFails(t *testing.T) {
	t.Parallel()

	h := newHarness(t, []channel.Fragment{channel.TextFragment("Hi!")}, Options{})
	h.session.store = conflictStore{Store: h.store}

	require.Equal(t, OutcomeFailed, h.session.Process(context.Background(), textEvent("u1", "m1", "hello")))
	assert.Len(t, h.sender.messages, 1)
}

func TestDispatchAndCommitReturnsConflict(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil, Options{})
	h.session.store = conflictStore{Store: h.store}

	outcome, err := h.session.DispatchAndCommit(context.Background(),
		conversation.Conversation{SenderID: "u1"},
		conversation.UserTurn("hello"),
		[]channel.Fragment{channel.TextFragment("Hi!")})
	assert.Equal(t, OutcomeFailed, outcome)
	assert.ErrorIs(t, err, conversation.ErrVersionConflict)
}

func TestFragmentText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		fragment channel.Fragment
		want     string
	}{
		{name: "text", fragment: channel.TextFragment("Hi!"), want: "Hi!"},
		{
			name:     "attachment",
			fragment: channel.Fragment{Kind: channel.FragmentAttachment, Attachment: &channel.OutboundAttachment{Type: "image", URL: "u"}},
			want:     `assistant sent an "image"`,
		},
		{
			name:     "quick replies with text",
			fragment: channel.Fragment{Kind: channel.FragmentQuickReplies, QuickReplies: json.RawMessage(`{"text":"Pick one","quick_replies":[]}`)},
			want:     "Pick one",
		},
		{
			name:     "quick replies without text",
			fragment: channel.Fragment{Kind: channel.FragmentQuickReplies, QuickReplies: json.RawMessage(`{"quick_replies":[]}`)},
			want:     "[quick replies]",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FragmentText(tt.fragment); got != tt.want {
				t.Fatalf("FragmentText() = %q, want %q", got, tt.want)
			}
		})
	}
}
