package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aidance/internal/bridge"
	"aidance/internal/core"
	applog "aidance/internal/log"
	"aidance/internal/middleware/ratelimit"
	"aidance/internal/services"
	"aidance/internal/session"
	"aidance/internal/storage"
	"aidance/internal/storage/memory"
)

type fakeClassifier struct {
	result bridge.Result
	block  chan struct{}
}

func (f *fakeClassifier) Classify(context.Context, []core.Message, core.TodoList) bridge.Result {
	if f.block != nil {
		<-f.block
	}
	return f.result
}

type harness struct {
	srv        *Server
	store      *storage.Store
	classifier *fakeClassifier
}

func newHarness(t *testing.T, quota int64, opts ...Option) *harness {
	t.Helper()
	ctx := context.Background()
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	store := storage.NewStore(memory.New(quota), applog.Discard())
	sess := session.New(store, session.WithClock(clock), session.WithLogger(applog.Discard()))
	sess.Load(ctx)
	fc := &fakeClassifier{result: bridge.Fallback("收到")}
	svc := services.NewChatService(store, sess, fc,
		services.WithLocation(time.UTC), services.WithClock(clock), services.WithLogger(applog.Discard()))

	opts = append([]Option{WithLogger(applog.Discard()), WithRateLimit(ratelimit.Config{RequestsPerMinute: 100000})}, opts...)
	srv := NewServer(":0", svc, opts...)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return &harness{srv: srv, store: store, classifier: fc}
}

func (h *harness) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func TestHealthAndReady(t *testing.T) {
	h := newHarness(t, 0)
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := h.do(t, http.MethodGet, path, "")
		assert.Equal(t, http.StatusOK, rr.Code, path)
		assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
		assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	}

	down := newHarness(t, 0, WithReadiness(func(context.Context) error { return errors.New("db gone") }))
	assert.Equal(t, http.StatusServiceUnavailable, down.do(t, http.MethodGet, "/readyz", "").Code)
}

func TestMessagesStartWithWelcome(t *testing.T) {
	h := newHarness(t, 0)
	rr := h.do(t, http.MethodGet, "/api/messages", "")
	require.Equal(t, http.StatusOK, rr.Code)

	resp := decode[messagesResponse](t, rr)
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, session.WelcomeID, resp.Messages[0].ID)
	assert.False(t, resp.Sending)
}

func TestChatCreatesRecords(t *testing.T) {
	h := newHarness(t, 0)
	h.classifier.result.Reply = "记下了"
	h.classifier.result.Expenses = []bridge.ExpenseItem{{Amount: 30, Category: "餐饮", Item: "面条"}}

	rr := h.do(t, http.MethodPost, "/api/chat", `{"text":"午饭吃面花了30"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	res := decode[services.SendResult](t, rr)
	require.Len(t, res.Messages, 2)
	assert.Equal(t, core.RoleUser, res.Messages[0].Role)
	assert.Equal(t, "记下了", res.Messages[1].Content)
	require.Len(t, res.Records, 1)
	assert.Equal(t, 30.0, res.Records[0].Expense.Amount)

	rr = h.do(t, http.MethodGet, "/api/records?tab=expense", "")
	require.Equal(t, http.StatusOK, rr.Code)
	list := decode[recordsResponse](t, rr)
	require.Len(t, list.Records, 1)

	rr = h.do(t, http.MethodDelete, "/api/records/"+list.Records[0].ID, "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Empty(t, h.store.Records(context.Background()))
}

func TestChatValidation(t *testing.T) {
	h := newHarness(t, 0)
	assert.Equal(t, http.StatusUnprocessableEntity, h.do(t, http.MethodPost, "/api/chat", `{"text":"   "}`).Code)
	assert.Equal(t, http.StatusBadRequest, h.do(t, http.MethodPost, "/api/chat", `{"text":`).Code)
	assert.Equal(t, http.StatusBadRequest, h.do(t, http.MethodPost, "/api/chat", `{"text":"a"} {}`).Code)
	assert.Equal(t, http.StatusMethodNotAllowed, h.do(t, http.MethodGet, "/api/chat", "").Code)
}

func TestChatBodyTooLarge(t *testing.T) {
	h := newHarness(t, 0, WithMaxBodyBytes(32))
	rr := h.do(t, http.MethodPost, "/api/chat", `{"text":"`+strings.Repeat("长", 64)+`"}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}

func TestChatRejectsReentry(t *testing.T) {
	h := newHarness(t, 0)
	h.classifier.block = make(chan struct{})

	done := make(chan int, 1)
	go func() {
		done <- h.do(t, http.MethodPost, "/api/chat", `{"text":"第一条"}`).Code
	}()

	require.Eventually(t, func() bool {
		return decode[messagesResponse](t, h.do(t, http.MethodGet, "/api/messages", "")).Sending
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, http.StatusConflict, h.do(t, http.MethodPost, "/api/chat", `{"text":"第二条"}`).Code)

	close(h.classifier.block)
	assert.Equal(t, http.StatusOK, <-done)
}

func TestChatQuotaExceeded(t *testing.T) {
	h := newHarness(t, 16)
	rr := h.do(t, http.MethodPost, "/api/chat", `{"text":"今天心情很好，想记录一下"}`)
	require.Equal(t, http.StatusInsufficientStorage, rr.Code, rr.Body.String())

	res := decode[services.SendResult](t, rr)
	assert.Equal(t, services.QuotaNotice, res.Notice)
	assert.NotEmpty(t, res.Messages)
}

func TestQuotaOnTodoAdd(t *testing.T) {
	h := newHarness(t, 8)
	rr := h.do(t, http.MethodPost, "/api/todos", `{"text":"去超市买牛奶和面包"}`)
	require.Equal(t, http.StatusInsufficientStorage, rr.Code)
	assert.Equal(t, services.QuotaNotice, decode[errorResponse](t, rr).Error)
}

func TestTodoLifecycle(t *testing.T) {
	h := newHarness(t, 0)

	assert.Equal(t, http.StatusUnprocessableEntity, h.do(t, http.MethodPost, "/api/todos", `{"text":" "}`).Code)

	rr := h.do(t, http.MethodPost, "/api/todos", `{"text":"拿快递"}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	item := decode[core.TodoItem](t, rr)
	assert.False(t, item.Completed)

	rr = h.do(t, http.MethodPost, "/api/todos/"+item.ID+"/toggle", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, decode[core.TodoItem](t, rr).Completed)

	rr = h.do(t, http.MethodGet, "/api/todos", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[todosResponse](t, rr).Todos, 1)

	assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodPost, "/api/todos/missing/toggle", "").Code)
	assert.Equal(t, http.StatusNoContent, h.do(t, http.MethodDelete, "/api/todos/"+item.ID, "").Code)
	assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodDelete, "/api/todos/"+item.ID, "").Code)
}

func TestBudgetRoundTrip(t *testing.T) {
	h := newHarness(t, 0)

	rr := h.do(t, http.MethodPut, "/api/budget", `{"totalBudget":1000,"categoryBudgets":{"餐饮":200,"交通":0}}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	b := decode[core.BudgetConfig](t, rr)
	assert.Equal(t, 1000.0, b.TotalBudget)
	assert.Equal(t, map[string]float64{"餐饮": 200}, b.CategoryBudgets)

	assert.Equal(t, http.StatusUnprocessableEntity, h.do(t, http.MethodPut, "/api/budget", `{"totalBudget":-5}`).Code)

	rr = h.do(t, http.MethodGet, "/api/budget", "")
	assert.Equal(t, 1000.0, decode[core.BudgetConfig](t, rr).TotalBudget)
}

func TestDashboard(t *testing.T) {
	h := newHarness(t, 0)
	h.classifier.result.Expenses = []bridge.ExpenseItem{{Amount: 50, Category: "交通", Item: "打车"}}
	require.Equal(t, http.StatusOK, h.do(t, http.MethodPost, "/api/chat", `{"text":"打车50"}`).Code)

	rr := h.do(t, http.MethodGet, "/api/dashboard?year=2024&month=3&tab=expense", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	d := decode[services.Dashboard](t, rr)
	assert.Equal(t, 50.0, d.Overview.Total)
	assert.Contains(t, d.Categories, "交通")
	assert.Len(t, d.Records, 1)

	assert.Equal(t, http.StatusBadRequest, h.do(t, http.MethodGet, "/api/dashboard?month=13", "").Code)
	assert.Equal(t, http.StatusBadRequest, h.do(t, http.MethodGet, "/api/dashboard?year=abc", "").Code)
}

func TestClear(t *testing.T) {
	h := newHarness(t, 0)
	require.Equal(t, http.StatusCreated, h.do(t, http.MethodPost, "/api/todos", `{"text":"买菜"}`).Code)
	require.Equal(t, http.StatusOK, h.do(t, http.MethodPost, "/api/chat", `{"text":"hello"}`).Code)

	assert.Equal(t, http.StatusNoContent, h.do(t, http.MethodPost, "/api/clear", "").Code)

	msgs := decode[messagesResponse](t, h.do(t, http.MethodGet, "/api/messages", ""))
	require.Len(t, msgs.Messages, 1)
	assert.Equal(t, session.WelcomeID, msgs.Messages[0].ID)
	assert.Empty(t, decode[todosResponse](t, h.do(t, http.MethodGet, "/api/todos", "")).Todos)
}

func TestRateLimit(t *testing.T) {
	h := newHarness(t, 0, WithRateLimit(ratelimit.Config{RequestsPerMinute: 2}))
	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusOK, h.do(t, http.MethodGet, "/healthz", "").Code)
	}
	rr := h.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))
}

func TestSanitizeInput(t *testing.T) {
	assert.Equal(t, "a\tb\nc", sanitizeInput("  a\tb\x00\nc\x07 "))
}
