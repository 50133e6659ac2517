package service_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"go.uber.org/mock/gomock"

	"sec-rag/internal/contextutil"
	"sec-rag/internal/rag"
	"sec-rag/internal/service"
	"sec-rag/internal/service/mocks"
	"sec-rag/internal/storage"
	storagemocks "sec-rag/internal/storage/mocks"
)

func staticLoader(a service.Answerer) service.EngineLoader {
	return func(context.Context) (service.Answerer, error) {
		return a, nil
	}
}

var answered = rag.Outcome{
	Kind:    rag.KindAnswered,
	Answer:  "$391,035 million",
	Sources: []string{"Apple 10-K", "Item 8", "p. 28"},
}

func TestQAService_Ask(t *testing.T) {
	ctrl := gomock.NewController(t)
	answerer := mocks.NewMockAnswerer(ctrl)
	queryLog := storagemocks.NewMockQueryLogStore(ctrl)

	answerer.EXPECT().
		Answer(gomock.Any(), "What was Apple's total net sales in fiscal 2024?").
		Return(answered)

	ctx := contextutil.WithRequestID(context.Background(), "req-42")
	queryLog.EXPECT().
		Insert(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, q *storage.QueryRecord) error {
			if q.RequestID != "req-42" {
				t.Errorf("RequestID = %q, want req-42", q.RequestID)
			}
			if q.Outcome != "answered" || q.Reason != "none" {
				t.Errorf("Outcome/Reason = %q/%q", q.Outcome, q.Reason)
			}
			if q.Answer != answered.Answer || len(q.Sources) != 3 {
				t.Errorf("record = %+v", q)
			}
			return nil
		})

	svc := service.NewQAService(staticLoader(answerer), queryLog)
	resp, err := svc.Ask(ctx, service.AskRequest{Query: "  What was Apple's total net sales in fiscal 2024?  "})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}

	if resp.Answer != "$391,035 million" {
		t.Errorf("Answer = %q", resp.Answer)
	}
	if len(resp.Sources) != 3 || resp.Sources[2] != "p. 28" {
		t.Errorf("Sources = %v", resp.Sources)
	}
	if resp.Outcome != rag.KindAnswered || resp.Debug != nil {
		t.Errorf("Outcome = %v, Debug = %v", resp.Outcome, resp.Debug)
	}
}

func TestQAService_Ask_Refusals(t *testing.T) {
	tests := []struct {
		name        string
		outcome     rag.Outcome
		wantAnswer  string
		wantOutcome string
		wantReason  string
	}{
		{
			name:        "out of scope",
			outcome:     rag.Outcome{Kind: rag.KindOutOfScope, Reason: rag.ReasonScope},
			wantAnswer:  rag.OutOfScopeMessage,
			wantOutcome: "out_of_scope",
			wantReason:  "scope",
		},
		{
			name:        "low confidence",
			outcome:     rag.Outcome{Kind: rag.KindNotSpecified, Reason: rag.ReasonLowConfidence},
			wantAnswer:  rag.NotSpecifiedMessage,
			wantOutcome: "not_specified",
			wantReason:  "low_confidence",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			answerer := mocks.NewMockAnswerer(ctrl)
			queryLog := storagemocks.NewMockQueryLogStore(ctrl)

			answerer.EXPECT().Answer(gomock.Any(), gomock.Any()).Return(tt.outcome)
			queryLog.EXPECT().
				Insert(gomock.Any(), gomock.Any()).
				DoAndReturn(func(_ context.Context, q *storage.QueryRecord) error {
					if q.Outcome != tt.wantOutcome || q.Reason != tt.wantReason {
						t.Errorf("record outcome/reason = %q/%q, want %q/%q", q.Outcome, q.Reason, tt.wantOutcome, tt.wantReason)
					}
					return nil
				})

			svc := service.NewQAService(staticLoader(answerer), queryLog)
			resp, err := svc.Ask(context.Background(), service.AskRequest{Query: "question"})
			if err != nil {
				t.Fatalf("Ask() error = %v", err)
			}
			if resp.Answer != tt.wantAnswer {
				t.Errorf("Answer = %q, want %q", resp.Answer, tt.wantAnswer)
			}
			if resp.Sources == nil || len(resp.Sources) != 0 {
				t.Errorf("Sources = %v, want empty non-nil", resp.Sources)
			}
		})
	}
}

func TestQAService_Ask_Debug(t *testing.T) {
	ctrl := gomock.NewController(t)
	answerer := mocks.NewMockAnswerer(ctrl)

	dbg := &rag.DebugInfo{Reason: "none"}
	answerer.EXPECT().AnswerWithDebug(gomock.Any(), "q").Return(answered, dbg)

	svc := service.NewQAService(staticLoader(answerer), nil)
	resp, err := svc.Ask(context.Background(), service.AskRequest{Query: "q", Debug: true})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if resp.Debug != dbg {
		t.Errorf("Debug = %v, want %v", resp.Debug, dbg)
	}
}

func TestQAService_Ask_Validation(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"empty", ""},
		{"whitespace", " \n\t "},
		{"too long", strings.Repeat("a", service.MaxQueryLength+1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loads := 0
			load := func(context.Context) (service.Answerer, error) {
				loads++
				return nil, errors.New("should not load")
			}

			svc := service.NewQAService(load, nil)
			_, err := svc.Ask(context.Background(), service.AskRequest{Query: tt.query})

			var vErr *service.ValidationError
			if !errors.As(err, &vErr) || vErr.Field != "query" {
				t.Errorf("Ask() error = %v, want ValidationError on query", err)
			}
			if !errors.Is(err, service.ErrInvalidInput) {
				t.Errorf("Ask() error should match ErrInvalidInput")
			}
			if loads != 0 {
				t.Errorf("engine loaded %d times for invalid input", loads)
			}
		})
	}
}

func TestQAService_WarmUpOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	answerer := mocks.NewMockAnswerer(ctrl)
	answerer.EXPECT().Answer(gomock.Any(), gomock.Any()).Return(answered).Times(10)

	var mu sync.Mutex
	loads := 0
	load := func(context.Context) (service.Answerer, error) {
		mu.Lock()
		defer mu.Unlock()
		loads++
		return answerer, nil
	}

	svc := service.NewQAService(load, nil)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Ask(context.Background(), service.AskRequest{Query: "q"}); err != nil {
				t.Errorf("Ask() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if loads != 1 {
		t.Errorf("loader called %d times, want 1", loads)
	}
}

func TestQAService_WarmUpFailureIsMemoized(t *testing.T) {
	loadErr := errors.New("index not found")
	loads := 0
	load := func(context.Context) (service.Answerer, error) {
		loads++
		return nil, loadErr
	}

	svc := service.NewQAService(load, nil)

	for range 3 {
		_, err := svc.Ask(context.Background(), service.AskRequest{Query: "q"})
		if !errors.Is(err, service.ErrNotReady) || !errors.Is(err, loadErr) {
			t.Errorf("Ask() error = %v, want ErrNotReady wrapping %v", err, loadErr)
		}
	}
	if err := svc.Ready(context.Background()); !errors.Is(err, service.ErrNotReady) {
		t.Errorf("Ready() error = %v, want ErrNotReady", err)
	}
	if loads != 1 {
		t.Errorf("loader called %d times, want 1", loads)
	}
}

func TestQAService_WarmUpSurvivesCancelledCaller(t *testing.T) {
	ctrl := gomock.NewController(t)
	answerer := mocks.NewMockAnswerer(ctrl)

	load := func(ctx context.Context) (service.Answerer, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return answerer, nil
	}
	svc := service.NewQAService(load, nil)

	// A health check whose deadline already passed wins the race to warm up.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := svc.Ready(ctx); err != nil {
		t.Fatalf("Ready() with cancelled caller error = %v", err)
	}
	if err := svc.Ready(context.Background()); err != nil {
		t.Errorf("Ready() after warm-up error = %v", err)
	}
}

func TestQAService_QueryLogFailureDoesNotFailAsk(t *testing.T) {
	ctrl := gomock.NewController(t)
	answerer := mocks.NewMockAnswerer(ctrl)
	queryLog := storagemocks.NewMockQueryLogStore(ctrl)

	answerer.EXPECT().Answer(gomock.Any(), gomock.Any()).Return(answered)
	queryLog.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(errors.New("disk full"))

	svc := service.NewQAService(staticLoader(answerer), queryLog)
	resp, err := svc.Ask(context.Background(), service.AskRequest{Query: "q"})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if resp.Answer != answered.Answer {
		t.Errorf("Answer = %q", resp.Answer)
	}
}

func TestQAService_RecentQueries(t *testing.T) {
	ctrl := gomock.NewController(t)
	queryLog := storagemocks.NewMockQueryLogStore(ctrl)

	want := []storage.QueryRecord{{ID: "a"}, {ID: "b"}}
	queryLog.EXPECT().ListRecent(gomock.Any(), 2).Return(want, nil)
	queryLog.EXPECT().ListRecent(gomock.Any(), 5).Return(nil, errors.New("locked"))

	svc := service.NewQAService(staticLoader(nil), queryLog)

	got, err := svc.RecentQueries(context.Background(), 2)
	if err != nil {
		t.Fatalf("RecentQueries() error = %v", err)
	}
	if len(got) != 2 || got[0].ID != "a" {
		t.Errorf("RecentQueries() = %v", got)
	}

	if _, err := svc.RecentQueries(context.Background(), 5); err == nil {
		t.Error("RecentQueries() expected error from store")
	}

	for _, limit := range []int{0, -1, 501} {
		if _, err := svc.RecentQueries(context.Background(), limit); !errors.Is(err, service.ErrInvalidInput) {
			t.Errorf("RecentQueries(%d) error = %v, want ErrInvalidInput", limit, err)
		}
	}
}

func TestQAService_RecentQueries_NoLog(t *testing.T) {
	svc := service.NewQAService(staticLoader(nil), nil)
	got, err := svc.RecentQueries(context.Background(), 10)
	if err != nil || got == nil || len(got) != 0 {
		t.Errorf("RecentQueries() = %v, %v; want empty slice", got, err)
	}
}
