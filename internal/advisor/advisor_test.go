package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prakamrit/storefront/internal/catalog"
)

type stubChat struct {
	reply string
	err   error
	calls int
	last  ChatRequest
}

func (s *stubChat) Chat(_ context.Context, r ChatRequest) (string, error) {
	s.calls++
	s.last = r
	return s.reply, s.err
}

type recorded struct{ op, outcome string }

type stubRecorder struct{ calls []recorded }

func (r *stubRecorder) ObserveAICall(op, outcome string) {
	r.calls = append(r.calls, recorded{op, outcome})
}

func TestConsult_Unconfigured(t *testing.T) {
	a := New(nil, zerolog.Nop())
	assert.False(t, a.Configured())
	assert.Equal(t, missingKeyReply, a.Consult(context.Background(), "hello"))
}

func TestConsult_ReturnsReply(t *testing.T) {
	chat := &stubChat{reply: "Try *Ashwagandha*."}
	rec := &stubRecorder{}
	a := New(chat, zerolog.Nop(), WithRecorder(rec))

	got := a.Consult(context.Background(), "I feel anxious")

	assert.Equal(t, "Try *Ashwagandha*.", got)
	require.Len(t, chat.last.Messages, 2)
	assert.Equal(t, RoleSystem, chat.last.Messages[0].Role)
	assert.Contains(t, chat.last.Messages[0].Content[0].Text, "PrakAmrit Ayurvedic Guide")
	assert.Equal(t, "I feel anxious", chat.last.Messages[1].Content[0].Text)
	assert.Equal(t, []recorded{{OpConsult, OutcomeOK}}, rec.calls)
}

func TestConsult_Fallbacks(t *testing.T) {
	a := New(&stubChat{reply: "  "}, zerolog.Nop())
	assert.Equal(t, emptyReply, a.Consult(context.Background(), "q"))

	a = New(&stubChat{err: errors.New("boom")}, zerolog.Nop())
	assert.Equal(t, unavailableReply, a.Consult(context.Background(), "q"))
}

func TestConsult_BreakerOpensAfterFailures(t *testing.T) {
	chat := &stubChat{err: errors.New("upstream down")}
	rec := &stubRecorder{}
	a := New(chat, zerolog.Nop(), WithRecorder(rec), WithBreakerSettings(gobreaker.Settings{
		Timeout:     time.Hour,
		ReadyToTrip: func(c gobreaker.Counts) bool { return c.ConsecutiveFailures >= 2 },
	}))

	for i := 0; i < 4; i++ {
		assert.Equal(t, unavailableReply, a.Consult(context.Background(), "q"))
	}
	assert.Equal(t, 2, chat.calls)
	require.Len(t, rec.calls, 4)
	assert.Equal(t, OutcomeFallback, rec.calls[0].outcome)
	assert.Equal(t, OutcomeOpen, rec.calls[3].outcome)
}

func TestScan_ParsesReply(t *testing.T) {
	chat := &stubChat{reply: "```json\n{\"dosha\":\"Pitta\",\"analysis\":\"Red tongue.\",\"recommendation\":\"Cooling herbs.\"}\n```"}
	a := New(chat, zerolog.Nop())

	res, err := a.Scan(context.Background(), "data:image/png;base64,AAAA", "BBBB")
	require.NoError(t, err)

	assert.Equal(t, ScanResult{Dosha: catalog.Pitta, Analysis: "Red tongue.", Recommendation: "Cooling herbs."}, res)
	assert.True(t, chat.last.JSON)
	content := chat.last.Messages[0].Content
	require.Len(t, content, 3)
	assert.Equal(t, "data:image/jpeg;base64,AAAA", content[0].ImageURL.URL)
	assert.Equal(t, "data:image/jpeg;base64,BBBB", content[1].ImageURL.URL)
}

func TestScan_FallsBackToVata(t *testing.T) {
	for name, chat := range map[string]*stubChat{
		"error":         {err: errors.New("timeout")},
		"not json":      {reply: "The tongue looks pale."},
		"unknown dosha": {reply: `{"dosha":"Tridosha","analysis":"x","recommendation":"y"}`},
	} {
		res, err := New(chat, zerolog.Nop()).Scan(context.Background(), "AAAA", "BBBB")
		require.NoError(t, err, name)
		assert.Equal(t, FallbackScan(), res, name)
		assert.Equal(t, catalog.Vata, res.Dosha, name)
	}
}

func TestScan_RejectsBadInput(t *testing.T) {
	_, err := New(nil, zerolog.Nop()).Scan(context.Background(), "AAAA", "BBBB")
	assert.ErrorIs(t, err, ErrNotConfigured)

	a := New(&stubChat{}, zerolog.Nop())
	_, err = a.Scan(context.Background(), "data:image/png;base64,", "BBBB")
	assert.ErrorIs(t, err, ErrInvalidImage)
	_, err = a.Scan(context.Background(), "AAAA", " ")
	assert.ErrorIs(t, err, ErrInvalidImage)
}

func TestCleanImage(t *testing.T) {
	for in, want := range map[string]string{
		"data:image/png;base64,QQ==":  "QQ==",
		"data:image/jpg;base64,QQ==":  "QQ==",
		"data:image/jpeg;base64,QQ==": "QQ==",
		"QQ==":                        "QQ==",
	} {
		got, err := CleanImage(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
}

func TestClientChat(t *testing.T) {
	var got payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer k3y", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Namaste"}}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/v1/", "k3y", WithModel("test-model"))
	reply, err := c.Chat(context.Background(), ChatRequest{
		Messages:  []Message{TextMessage(RoleUser, "hi")},
		MaxTokens: 10,
		JSON:      true,
	})
	require.NoError(t, err)
	assert.Equal(t, "Namaste", reply)
	assert.Equal(t, "test-model", got.Model)
	require.NotNil(t, got.ResponseFormat)
	assert.Equal(t, "json_object", got.ResponseFormat.Type)
}

func TestClientChat_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("case") {
		case "empty":
			_, _ = w.Write([]byte(`{"choices":[]}`))
		default:
			http.Error(w, "quota exceeded", http.StatusTooManyRequests)
		}
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "k").Chat(context.Background(), ChatRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")

	c := NewClient(srv.URL, "k")
	c.endpoint += "?case=empty"
	_, err = c.Chat(context.Background(), ChatRequest{})
	assert.ErrorContains(t, err, "no choices")
}
