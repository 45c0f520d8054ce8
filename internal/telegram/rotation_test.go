package telegram

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"
)

type sentRecorder struct {
	mu    sync.Mutex
	texts []string
	chats []int64
	err   error
}

func (s *sentRecorder) send(ctx context.Context, chatID int64, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts = append(s.texts, text)
	s.chats = append(s.chats, chatID)
	return s.err
}

func (s *sentRecorder) sent() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.texts...)
}

func noSleep(ctx context.Context, d time.Duration) error {
	return ctx.Err()
}

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"single", "Markets are calm.", []string{"Markets are calm."}},
		{"multiple", "ETH is up. BTC is flat.  SOL dipped.", []string{"ETH is up.", "BTC is flat.", "SOL dipped."}},
		{"no trailing period", "First. Second", []string{"First.", "Second."}},
		{"empty pieces dropped", "One... Two.", []string{"One.", "Two."}},
		{"empty", "", nil},
		{"only periods", " . . ", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitSentences(tt.input)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("SplitSentences(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestRotationTakeTurn_PostsSentences(t *testing.T) {
	commentator := &fakeDiscusser{texts: []string{"ETH is up. BTC is flat."}}
	rec := &sentRecorder{}
	r := NewRotation(commentator, rec.send, RotationConfig{ChatID: -100})
	r.sleep = noSleep

	if err := r.takeTurn(context.Background()); err != nil {
		t.Fatalf("takeTurn returned error: %v", err)
	}

	if got := rec.sent(); !reflect.DeepEqual(got, []string{"ETH is up.", "BTC is flat."}) {
		t.Errorf("Unexpected messages %q", got)
	}
	for _, chatID := range rec.chats {
		if chatID != -100 {
			t.Errorf("Expected chat -100, got %d", chatID)
		}
	}

	calls := commentator.calls()
	if len(calls) != 1 || calls[0].Question != "" {
		t.Errorf("Expected one empty payload, got %+v", calls)
	}
}

func TestRotationTakeTurn_SkipsDuplicate(t *testing.T) {
	commentator := &fakeDiscusser{texts: []string{"Same take."}}
	rec := &sentRecorder{}
	r := NewRotation(commentator, rec.send, RotationConfig{ChatID: 1})
	r.sleep = noSleep

	for i := 0; i < 3; i++ {
		if err := r.takeTurn(context.Background()); err != nil {
			t.Fatalf("takeTurn returned error: %v", err)
		}
	}

	if got := rec.sent(); len(got) != 1 {
		t.Errorf("Expected duplicate commentary to be skipped, got %q", got)
	}
}

func TestRotationTakeTurn_Errors(t *testing.T) {
	t.Run("commentator error", func(t *testing.T) {
		r := NewRotation(&fakeDiscusser{err: errors.New("unavailable")}, (&sentRecorder{}).send, RotationConfig{ChatID: 1})
		r.sleep = noSleep
		if err := r.takeTurn(context.Background()); err == nil {
			t.Error("Expected error from commentator")
		}
	})

	t.Run("empty text", func(t *testing.T) {
		rec := &sentRecorder{}
		r := NewRotation(&fakeDiscusser{texts: []string{"   "}}, rec.send, RotationConfig{ChatID: 1})
		r.sleep = noSleep
		if err := r.takeTurn(context.Background()); !errors.Is(err, errEmptyCommentary) {
			t.Errorf("Expected errEmptyCommentary, got %v", err)
		}
		if len(rec.sent()) != 0 {
			t.Error("Nothing should be sent for empty commentary")
		}
	})

	t.Run("send failure keeps going", func(t *testing.T) {
		rec := &sentRecorder{err: errors.New("forbidden")}
		r := NewRotation(&fakeDiscusser{texts: []string{"A. B."}}, rec.send, RotationConfig{ChatID: 1})
		r.sleep = noSleep
		if err := r.takeTurn(context.Background()); err != nil {
			t.Errorf("Send failures should not fail the turn, got %v", err)
		}
		if len(rec.sent()) != 2 {
			t.Errorf("Expected both sentences attempted, got %d", len(rec.sent()))
		}
	})
}

func TestRotationToggle(t *testing.T) {
	r := NewRotation(&fakeDiscusser{}, (&sentRecorder{}).send, RotationConfig{StartWithTurn: true})

	if !r.MyTurn() {
		t.Fatal("Expected to start with the turn")
	}
	if r.Toggle() {
		t.Error("Expected turn to be given up")
	}
	if !r.Toggle() {
		t.Error("Expected turn to come back")
	}
}

func TestRotationDefaults(t *testing.T) {
	r := NewRotation(&fakeDiscusser{}, (&sentRecorder{}).send, RotationConfig{})

	if r.cfg.TurnInterval != 5*time.Second {
		t.Errorf("Expected 5s turn interval, got %v", r.cfg.TurnInterval)
	}
	if r.cfg.SendSpacing != 500*time.Millisecond {
		t.Errorf("Expected 500ms spacing, got %v", r.cfg.SendSpacing)
	}
	if r.cfg.PollInterval != time.Second {
		t.Errorf("Expected 1s poll interval, got %v", r.cfg.PollInterval)
	}
	if r.cfg.ErrorBackoff != 5*time.Second {
		t.Errorf("Expected 5s error backoff, got %v", r.cfg.ErrorBackoff)
	}
}

func TestRotationRun_WaitsForTurn(t *testing.T) {
	commentator := &fakeDiscusser{texts: []string{"Late take."}}
	rec := &sentRecorder{}
	r := NewRotation(commentator, rec.send, RotationConfig{
		ChatID:        1,
		TurnInterval:  80 * time.Millisecond,
		StartWithTurn: false,
		SendSpacing:   time.Millisecond,
		PollInterval:  5 * time.Millisecond,
		ErrorBackoff:  5 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	time.Sleep(40 * time.Millisecond)
	if len(commentator.calls()) != 0 {
		t.Error("Commentator should not be asked before the turn arrives")
	}

	waitFor(t, 2*time.Second, func() bool { return len(rec.sent()) == 1 })

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
