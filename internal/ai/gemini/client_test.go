package gemini

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

type fakeReply struct {
	resp *genai.GenerateContentResponse
	err  error
}

type fakeChat struct {
	reply    fakeReply
	messages []string
}

func (f *fakeChat) SendMessage(_ context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	for _, part := range parts {
		f.messages = append(f.messages, part.Text)
	}
	return f.reply.resp, f.reply.err
}

type chatCall struct {
	model  string
	config *genai.GenerateContentConfig
	chat   *fakeChat
}

type fakeChats struct {
	mu      sync.Mutex
	replies []fakeReply
	calls   []chatCall
}

func (f *fakeChats) push(resp *genai.GenerateContentResponse, err error) *fakeChats {
	f.replies = append(f.replies, fakeReply{resp: resp, err: err})
	return f
}

func (f *fakeChats) Create(_ context.Context, model string, config *genai.GenerateContentConfig, _ []*genai.Content) (chatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.replies) == 0 {
		return nil, errors.New("unexpected call")
	}
	chat := &fakeChat{reply: f.replies[0]}
	f.replies = f.replies[1:]
	f.calls = append(f.calls, chatCall{model: model, config: config, chat: chat})
	return chat, nil
}

func textResponse(parts ...string) *genai.GenerateContentResponse {
	content := &genai.Content{}
	for _, p := range parts {
		content.Parts = append(content.Parts, &genai.Part{Text: p})
	}
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: content}}}
}

func stubSleep(t *testing.T) *[]time.Duration {
	t.Helper()
	var delays []time.Duration
	original := sleep
	sleep = func(d time.Duration) { delays = append(delays, d) }
	t.Cleanup(func() { sleep = original })
	return &delays
}

func newTestGenerator(chats chatCreator, retries int) *Generator {
	return &Generator{chats: chats, model: "gemini-test", maxRetries: retries, logger: zap.NewNop()}
}

func TestGeneratorSendsSystemInstruction(t *testing.T) {
	chats := (&fakeChats{}).push(textResponse("{\"success\": true}", "  ", "tail"), nil)
	g := newTestGenerator(chats, 1)

	out, err := g.GenerateContent(context.Background(), " system ", "message")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "{\"success\": true}\ntail" {
		t.Fatalf("unexpected output: %q", out)
	}

	call := chats.calls[0]
	if call.model != "gemini-test" {
		t.Fatalf("unexpected model: %s", call.model)
	}
	if call.config.SystemInstruction == nil || call.config.SystemInstruction.Parts[0].Text != "system" {
		t.Fatalf("expected trimmed system instruction, got %+v", call.config.SystemInstruction)
	}
	if call.config.ResponseMIMEType != "application/json" {
		t.Fatalf("expected json response type, got %q", call.config.ResponseMIMEType)
	}
	if len(call.chat.messages) != 1 || call.chat.messages[0] != "message" {
		t.Fatalf("unexpected messages: %+v", call.chat.messages)
	}
}

func TestGeneratorRetriesServerErrors(t *testing.T) {
	delays := stubSleep(t)

	serverErr := genai.APIError{Code: http.StatusServiceUnavailable, Status: "UNAVAILABLE"}
	chats := (&fakeChats{}).push(nil, serverErr).push(nil, serverErr).push(textResponse("ok"), nil)
	g := newTestGenerator(chats, 3)

	out, err := g.GenerateContent(context.Background(), "sys", "msg")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "ok" {
		t.Fatalf("unexpected output: %q", out)
	}
	if len(chats.calls) != 3 {
		t.Fatalf("expected 3 calls, got %d", len(chats.calls))
	}
	if len(*delays) != 2 || (*delays)[0] != baseBackoff || (*delays)[1] != 2*baseBackoff {
		t.Fatalf("unexpected backoff: %v", *delays)
	}
}

func TestGeneratorStopsAfterRetriesExhausted(t *testing.T) {
	stubSleep(t)

	serverErr := genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL"}
	chats := (&fakeChats{}).push(nil, serverErr).push(nil, serverErr)
	g := newTestGenerator(chats, 2)

	_, err := g.GenerateContent(context.Background(), "sys", "msg")
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != http.StatusInternalServerError {
		t.Fatalf("expected the last api error, got %v", err)
	}
	if len(chats.calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(chats.calls))
	}
}

func TestGeneratorQuotaErrors(t *testing.T) {
	tests := []struct {
		name      string
		message   string
		wantCalls int
	}{
		{"long advertised delay", "quota exhausted, retry after 60 seconds", 1},
		{"short advertised delay", "rate limited, retry in 1.5s", 2},
		{"no advertised delay", "rate limited", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stubSleep(t)
			quotaErr := genai.APIError{Code: http.StatusTooManyRequests, Status: "RESOURCE_EXHAUSTED", Message: tt.message}
			chats := (&fakeChats{}).push(nil, quotaErr).push(textResponse("ok"), nil)
			g := newTestGenerator(chats, 3)

			_, _ = g.GenerateContent(context.Background(), "sys", "msg")
			if len(chats.calls) != tt.wantCalls {
				t.Fatalf("expected %d calls, got %d", tt.wantCalls, len(chats.calls))
			}
		})
	}
}

func TestGeneratorDoesNotRetryClientErrors(t *testing.T) {
	chats := (&fakeChats{}).
		push(nil, genai.APIError{Code: http.StatusBadRequest, Status: "INVALID_ARGUMENT"}).
		push(textResponse("ok"), nil)
	g := newTestGenerator(chats, 3)

	if _, err := g.GenerateContent(context.Background(), "sys", "msg"); err == nil {
		t.Fatal("expected error")
	}
	if len(chats.calls) != 1 {
		t.Fatalf("expected a single call, got %d", len(chats.calls))
	}
}

func TestGeneratorEmptyInputAndOutput(t *testing.T) {
	g := newTestGenerator((&fakeChats{}).push(textResponse("   "), nil), 1)

	if _, err := g.GenerateContent(context.Background(), "sys", "  "); err == nil {
		t.Fatal("expected error for empty message")
	}
	if _, err := g.GenerateContent(context.Background(), "sys", "msg"); err == nil {
		t.Fatal("expected error for empty response")
	}

	var nilGen *Generator
	if _, err := nilGen.GenerateContent(context.Background(), "sys", "msg"); err == nil {
		t.Fatal("expected error for nil generator")
	}
	if nilGen.Model() != "" {
		t.Fatal("expected empty model for nil generator")
	}
}

func TestGeneratorStopsWaitingWhenContextEnds(t *testing.T) {
	original := sleep
	release := make(chan struct{})
	sleep = func(time.Duration) { <-release }
	t.Cleanup(func() {
		close(release)
		sleep = original
	})

	serverErr := genai.APIError{Code: http.StatusBadGateway}
	chats := (&fakeChats{}).push(nil, serverErr).push(textResponse("ok"), nil)
	g := newTestGenerator(chats, 3)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := g.GenerateContent(ctx, "sys", "msg"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
