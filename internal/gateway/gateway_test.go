package gateway

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"server-market-go/internal/database"
	"server-market-go/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

func setupGateway(t *testing.T, queueSize int, start bool) (*Gateway, func()) {
	t.Helper()
	svc, err := database.NewService(context.Background(), models.DatabaseConfig{
		Path:        ":memory:",
		BusyTimeout: time.Second,
		PingTimeout: time.Second,
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	g := New(svc, models.GatewayConfig{QueueSize: queueSize})
	if start {
		g.Start(context.Background())
	}

	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := g.Stop(ctx); err != nil {
			t.Errorf("Failed to stop gateway: %v", err)
		}
		svc.Close()
	}
	return g, cleanup
}

func wait[T any](t *testing.T, f *Future[T]) (T, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return f.Wait(ctx)
}

func balance(t *testing.T, g *Gateway, p models.Party) decimal.Decimal {
	t.Helper()
	value, err := wait(t, Submit(g, "balance", func(ctx context.Context, tx *database.Tx) (decimal.Decimal, error) {
		return tx.Ledger().GetBalance(ctx, p)
	}))
	if err != nil {
		t.Fatalf("Failed to read balance: %v", err)
	}
	return value
}

func TestSubmit_Completes(t *testing.T) {
	g, cleanup := setupGateway(t, 8, true)
	defer cleanup()

	alice := models.Player(uuid.New())
	f := Submit(g, "deposit", func(ctx context.Context, tx *database.Tx) (string, error) {
		if err := tx.Ledger().Deposit(ctx, alice, decimal.NewFromInt(12)); err != nil {
			return "", err
		}
		return "ok", nil
	})

	value, err := wait(t, f)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if value != "ok" || f.State() != Completed {
		t.Errorf("Expected ok/completed, got %q/%s", value, f.State())
	}
	if got := balance(t, g, alice); !got.Equal(decimal.NewFromInt(12)) {
		t.Errorf("Expected committed balance 12, got %s", got)
	}
}

func TestSubmit_ErrorRollsBack(t *testing.T) {
	g, cleanup := setupGateway(t, 8, true)
	defer cleanup()

	alice := models.Player(uuid.New())
	boom := errors.New("boom")
	f := Submit(g, "deposit then fail", func(ctx context.Context, tx *database.Tx) (struct{}, error) {
		if err := tx.Ledger().Deposit(ctx, alice, decimal.NewFromInt(12)); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, boom
	})

	if _, err := wait(t, f); !errors.Is(err, boom) {
		t.Fatalf("Expected boom, got %v", err)
	}
	if f.State() != Failed {
		t.Errorf("Expected failed state, got %s", f.State())
	}
	if got := balance(t, g, alice); !got.IsZero() {
		t.Errorf("Expected rollback, got %s", got)
	}
}

func TestSubmit_PanicRollsBack(t *testing.T) {
	g, cleanup := setupGateway(t, 8, true)
	defer cleanup()

	alice := models.Player(uuid.New())
	f := Submit(g, "panics", func(ctx context.Context, tx *database.Tx) (int, error) {
		if err := tx.Ledger().Deposit(ctx, alice, decimal.NewFromInt(3)); err != nil {
			return 0, err
		}
		panic("half way")
	})

	if _, err := wait(t, f); !errors.Is(err, ErrPanic) {
		t.Fatalf("Expected ErrPanic, got %v", err)
	}
	if got := balance(t, g, alice); !got.IsZero() {
		t.Errorf("Expected rollback after panic, got %s", got)
	}

	// The worker survives the panic.
	if _, err := wait(t, Submit(g, "after", func(ctx context.Context, tx *database.Tx) (int, error) { return 1, nil })); err != nil {
		t.Errorf("Expected worker alive after panic, got %v", err)
	}
}

func TestSubmit_FIFOUnderConcurrentCallers(t *testing.T) {
	g, cleanup := setupGateway(t, 512, true)
	defer cleanup()

	const callers, perCaller = 8, 25
	var order []string

	var eg errgroup.Group
	futures := make([][]*Future[struct{}], callers)
	for c := 0; c < callers; c++ {
		eg.Go(func() error {
			for i := 0; i < perCaller; i++ {
				tag := fmt.Sprintf("%d:%d", c, i)
				futures[c] = append(futures[c], Submit(g, "record", func(ctx context.Context, tx *database.Tx) (struct{}, error) {
					order = append(order, tag)
					return struct{}{}, nil
				}))
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		t.Fatalf("Submission failed: %v", err)
	}
	for _, fs := range futures {
		for _, f := range fs {
			if _, err := wait(t, f); err != nil {
				t.Fatalf("Unit failed: %v", err)
			}
		}
	}

	if len(order) != callers*perCaller {
		t.Fatalf("Expected %d units, got %d", callers*perCaller, len(order))
	}
	next := make(map[int]int)
	for _, tag := range order {
		var c, i int
		if _, err := fmt.Sscanf(tag, "%d:%d", &c, &i); err != nil {
			t.Fatalf("Bad tag %q", tag)
		}
		if i != next[c] {
			t.Fatalf("Caller %d ran unit %d before unit %d", c, i, next[c])
		}
		next[c]++
	}
}

func TestSubmit_NoNegativeBalanceUnderConcurrency(t *testing.T) {
	g, cleanup := setupGateway(t, 256, true)
	defer cleanup()

	alice, bob := models.Player(uuid.New()), models.Player(uuid.New())
	if _, err := wait(t, Submit(g, "fund", func(ctx context.Context, tx *database.Tx) (struct{}, error) {
		return struct{}{}, tx.Ledger().Deposit(ctx, alice, decimal.NewFromInt(10))
	})); err != nil {
		t.Fatalf("Failed to fund: %v", err)
	}

	const attempts = 25
	results := make([]error, attempts)
	var eg errgroup.Group
	for i := 0; i < attempts; i++ {
		eg.Go(func() error {
			f := Submit(g, "pay", func(ctx context.Context, tx *database.Tx) (struct{}, error) {
				return struct{}{}, tx.Ledger().Transfer(ctx, alice, bob, decimal.NewFromInt(1))
			})
			_, results[i] = f.Wait(context.Background())
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	succeeded := 0
	for _, err := range results {
		switch {
		case err == nil:
			succeeded++
		case !errors.Is(err, database.ErrInsufficientFunds):
			t.Errorf("Unexpected error: %v", err)
		}
	}
	if succeeded != 10 {
		t.Errorf("Expected 10 successful payments, got %d", succeeded)
	}
	if got := balance(t, g, alice); !got.IsZero() {
		t.Errorf("Expected alice at 0, got %s", got)
	}
	if got := balance(t, g, bob); !got.Equal(decimal.NewFromInt(10)) {
		t.Errorf("Expected bob at 10, got %s", got)
	}
}

func TestSubmit_QueueFullAndClosed(t *testing.T) {
	g, cleanup := setupGateway(t, 1, false)
	defer cleanup()

	noop := func(ctx context.Context, tx *database.Tx) (int, error) { return 1, nil }
	first := Submit(g, "first", noop)
	if first.State() != Queued {
		t.Errorf("Expected queued, got %s", first.State())
	}

	second := Submit(g, "second", noop)
	select {
	case <-second.Done():
	default:
		t.Fatal("Expected full queue to fail immediately")
	}
	if _, err := wait(t, second); !errors.Is(err, ErrQueueFull) {
		t.Errorf("Expected ErrQueueFull, got %v", err)
	}

	if err := g.Stop(context.Background()); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if _, err := wait(t, first); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected queued unit of a never started gateway to fail with ErrClosed, got %v", err)
	}
	if _, err := wait(t, Submit(g, "late", noop)); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
}

func TestStop_DrainsQueuedWork(t *testing.T) {
	g, cleanup := setupGateway(t, 64, true)
	defer cleanup()

	var futures []*Future[int]
	for i := 0; i < 20; i++ {
		futures = append(futures, Submit(g, "work", func(ctx context.Context, tx *database.Tx) (int, error) {
			return i, nil
		}))
	}
	if err := g.Stop(context.Background()); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	for i, f := range futures {
		value, err := wait(t, f)
		if err != nil || value != i {
			t.Errorf("Unit %d: got %d, %v", i, value, err)
		}
	}
}

func TestStop_HandsContinuationsToLoopBeforeReturning(t *testing.T) {
	g, cleanup := setupGateway(t, 64, true)
	defer cleanup()

	loop := NewLoop()
	ran := 0
	for i := 0; i < 20; i++ {
		Submit(g, "work", func(ctx context.Context, tx *database.Tx) (int, error) {
			return i, nil
		}).Then(loop, func(int, error) {
			ran++
		})
	}
	if err := g.Stop(context.Background()); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	if n := loop.RunPending(); n != 20 || ran != 20 {
		t.Errorf("Expected 20 continuations after Stop, ran %d (%d)", n, ran)
	}
}

func TestThen_RunsOnCallerLoop(t *testing.T) {
	g, cleanup := setupGateway(t, 8, true)
	defer cleanup()

	loop := NewLoop()
	got := 0
	Submit(g, "answer", func(ctx context.Context, tx *database.Tx) (int, error) {
		return 42, nil
	}).Then(loop, func(value int, err error) {
		if err != nil {
			t.Errorf("Unexpected error: %v", err)
		}
		got = value
	})

	select {
	case <-loop.Wake():
	case <-time.After(5 * time.Second):
		t.Fatal("Continuation was never handed to the loop")
	}
	if got != 0 {
		t.Fatal("Continuation ran before the loop ticked")
	}
	if n := loop.RunPending(); n != 1 {
		t.Errorf("Expected 1 continuation, ran %d", n)
	}
	if got != 42 {
		t.Errorf("Expected 42, got %d", got)
	}
}

func TestCatch_KeepsErrorAndSetsValue(t *testing.T) {
	g, cleanup := setupGateway(t, 8, true)
	defer cleanup()

	boom := errors.New("boom")
	f := Catch(Submit(g, "fails", func(ctx context.Context, tx *database.Tx) (string, error) {
		return "", boom
	}), func(err error) string {
		return "failed: " + err.Error()
	})

	value, err := wait(t, f)
	if !errors.Is(err, boom) {
		t.Errorf("Expected boom, got %v", err)
	}
	if value != "failed: boom" {
		t.Errorf("Expected handler value, got %q", value)
	}
	if f.State() != Failed {
		t.Errorf("Expected failed, got %s", f.State())
	}

	ok, err := wait(t, Catch(Resolved("fine", nil), func(error) string { return "unused" }))
	if err != nil || ok != "fine" {
		t.Errorf("Expected pass-through, got %q, %v", ok, err)
	}
}
