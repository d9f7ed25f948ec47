package transcript

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/VinMeld/campus-chat/internal/api"
	"github.com/VinMeld/campus-chat/internal/session"
)

type fakeAsker struct {
	answer string
	err    error
	block  chan struct{}
}

func (f *fakeAsker) Ask(ctx context.Context, q string) (string, error) {
	if f.block != nil {
		<-f.block
	}
	return f.answer, f.err
}

type gate bool

func (g gate) Authenticated() bool { return bool(g) }

type notes struct {
	mu     sync.Mutex
	titles []string
}

func (n *notes) Notify(title, description string) {
	n.mu.Lock()
	n.titles = append(n.titles, title)
	n.mu.Unlock()
}

func (n *notes) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.titles)
}

func wait(t *testing.T, e *Engine) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := e.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
}

func TestSubmitRevealsAnswer(t *testing.T) {
	e := New(Options{Asker: &fakeAsker{answer: "42"}, Gate: gate(true), Interval: time.Millisecond})
	defer e.Close()

	if err := e.Submit(context.Background(), "what is the answer?"); err != nil {
		t.Fatal(err)
	}
	wait(t, e)

	msgs := e.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %+v", msgs)
	}
	if msgs[0].Author != User || msgs[0].Text != "what is the answer?" {
		t.Errorf("unexpected user message %+v", msgs[0])
	}
	if msgs[1].Author != Assistant || msgs[1].Text != "42" || msgs[1].State != Complete {
		t.Errorf("unexpected assistant message %+v", msgs[1])
	}
}

func TestUnauthenticatedSubmitLeavesTranscript(t *testing.T) {
	n := &notes{}
	e := New(Options{Asker: &fakeAsker{answer: "x"}, Gate: gate(false), Notifier: n})

	err := e.Submit(context.Background(), "hello")
	if !errors.Is(err, session.ErrNotAuthenticated) {
		t.Errorf("expected ErrNotAuthenticated, got %v", err)
	}
	if len(e.Messages()) != 0 {
		t.Error("transcript should be unchanged")
	}
	if n.count() != 1 {
		t.Errorf("expected one notification, got %d", n.count())
	}
}

func TestEmptySubmitRejected(t *testing.T) {
	e := New(Options{Asker: &fakeAsker{}, Gate: gate(true)})
	if err := e.Submit(context.Background(), "   "); !errors.Is(err, ErrEmptyMessage) {
		t.Errorf("expected ErrEmptyMessage, got %v", err)
	}
}

func TestSingleRevealAtATime(t *testing.T) {
	var mu sync.Mutex
	maxRevealing := 0
	e := New(Options{
		Asker:    &fakeAsker{answer: "a fairly long answer to keep the loop busy"},
		Gate:     gate(true),
		Interval: time.Millisecond,
		OnUpdate: func(msgs []Message) {
			n := 0
			for _, m := range msgs {
				if m.State == Revealing {
					n++
				}
			}
			mu.Lock()
			if n > maxRevealing {
				maxRevealing = n
			}
			mu.Unlock()
		},
	})
	defer e.Close()

	ctx := context.Background()
	if err := e.Submit(ctx, "first"); err != nil {
		t.Fatal(err)
	}
	if err := e.Submit(ctx, "second"); !errors.Is(err, ErrRevealInProgress) {
		t.Errorf("expected ErrRevealInProgress, got %v", err)
	}
	if err := e.RevealNext("other"); !errors.Is(err, ErrRevealInProgress) {
		t.Errorf("expected ErrRevealInProgress, got %v", err)
	}
	wait(t, e)

	mu.Lock()
	defer mu.Unlock()
	if maxRevealing != 1 {
		t.Errorf("expected at most one revealing message, saw %d", maxRevealing)
	}
	if got := len(e.Messages()); got != 2 {
		t.Errorf("rejected submission must not append, got %d messages", got)
	}
	if err := e.Submit(ctx, "third"); err != nil {
		t.Errorf("submit after completion: %v", err)
	}
}

func TestFailedQueryAppendsCompleteError(t *testing.T) {
	n := &notes{}
	e := New(Options{
		Asker:    &fakeAsker{err: &api.APIError{Status: 502, Message: "model offline"}},
		Gate:     gate(true),
		Notifier: n,
	})

	err := e.Submit(context.Background(), "hi")
	if !errors.Is(err, api.ErrRequestFailed) {
		t.Fatalf("expected ErrRequestFailed, got %v", err)
	}
	msgs := e.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected user + error message, got %+v", msgs)
	}
	last := msgs[1]
	if last.Author != Assistant || last.State != Complete || last.Text != "Sorry, I couldn't get a response. model offline" {
		t.Errorf("unexpected error message %+v", last)
	}
	if e.Busy() {
		t.Error("engine should be idle after a failure")
	}
	if n.count() != 1 {
		t.Errorf("expected one notification, got %d", n.count())
	}
}

func TestUnavailableAPIText(t *testing.T) {
	e := New(Options{Asker: &fakeAsker{err: api.ErrAPIUnavailable}, Gate: gate(true)})
	_ = e.Submit(context.Background(), "hi")
	msgs := e.Messages()
	if msgs[len(msgs)-1].Text != "Sorry, the API is not configured." {
		t.Errorf("unexpected text %q", msgs[len(msgs)-1].Text)
	}
}

func TestResetCancelsReveal(t *testing.T) {
	e := New(Options{Asker: &fakeAsker{answer: "long answer that will not finish"}, Gate: gate(true), Interval: 50 * time.Millisecond})
	defer e.Close()

	if err := e.Submit(context.Background(), "q"); err != nil {
		t.Fatal(err)
	}
	e.Reset()
	if len(e.Messages()) != 0 || e.Busy() {
		t.Fatal("reset should empty the transcript and go idle")
	}
	time.Sleep(120 * time.Millisecond)
	if len(e.Messages()) != 0 {
		t.Error("cancelled reveal mutated the transcript")
	}
}

func TestResetDropsInFlightAnswer(t *testing.T) {
	block := make(chan struct{})
	e := New(Options{Asker: &fakeAsker{answer: "late", block: block}, Gate: gate(true), Interval: time.Millisecond})
	defer e.Close()

	done := make(chan error, 1)
	go func() { done <- e.Submit(context.Background(), "q") }()

	deadline := time.Now().Add(2 * time.Second)
	for !e.Busy() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	e.Reset()
	close(block)
	if err := <-done; err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if len(e.Messages()) != 0 {
		t.Errorf("late answer should be dropped, got %+v", e.Messages())
	}
}

func TestRevealNextEmpty(t *testing.T) {
	e := New(Options{Asker: &fakeAsker{}, Gate: gate(true)})
	if err := e.RevealNext(""); err != nil {
		t.Fatal(err)
	}
	msgs := e.Messages()
	if len(msgs) != 1 || msgs[0].State != Complete || e.Busy() {
		t.Errorf("empty reveal should complete immediately: %+v", msgs)
	}
}

func TestClosedEngineRejects(t *testing.T) {
	e := New(Options{Asker: &fakeAsker{answer: "x"}, Gate: gate(true)})
	e.Close()
	e.Close()
	if err := e.Submit(context.Background(), "hi"); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}
