package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"AIToolNews/internal/domain"
)

var fixedNow = func() time.Time { return time.Date(2026, 1, 29, 7, 0, 0, 0, time.UTC) }

func TestFileLedgerPersistsAcrossOpens(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state", "ledger.json")

	l, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile returned error: %v", err)
	}
	if err := l.RecordDelivered(ctx, domain.ChannelSocial, "https://x.com/a/status/1", fixedNow()); err != nil {
		t.Fatalf("RecordDelivered returned error: %v", err)
	}

	reopened, err := OpenFile(path)
	if err != nil {
		t.Fatalf("reopen returned error: %v", err)
	}
	done, err := reopened.HasDelivered(ctx, domain.ChannelSocial, "https://x.com/a/status/1")
	if err != nil || !done {
		t.Fatalf("expected delivered after reopen, got %v (err=%v)", done, err)
	}
	done, _ = reopened.HasDelivered(ctx, domain.ChannelChat, "https://x.com/a/status/1")
	if done {
		t.Fatalf("chat channel must be independent from social")
	}
}

func TestSQLiteLedger(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	l, err := Open(ctx, "sqlite", filepath.Join(t.TempDir(), "ledger.db"), "")
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	defer l.Close()

	if err := l.RecordDelivered(ctx, domain.ChannelChat, "k1", fixedNow()); err != nil {
		t.Fatalf("RecordDelivered returned error: %v", err)
	}
	if err := l.RecordDelivered(ctx, domain.ChannelChat, "k1", fixedNow()); err != nil {
		t.Fatalf("second RecordDelivered returned error: %v", err)
	}

	done, err := l.HasDelivered(ctx, domain.ChannelChat, "k1")
	if err != nil || !done {
		t.Fatalf("expected k1 delivered, got %v (err=%v)", done, err)
	}
	done, err = l.HasDelivered(ctx, domain.ChannelChat, "k2")
	if err != nil || done {
		t.Fatalf("expected k2 undelivered, got %v (err=%v)", done, err)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), "mongo", "", "")
	if !errors.Is(err, ErrUnknownDriver) {
		t.Fatalf("expected ErrUnknownDriver, got %v", err)
	}
}

func TestGuardDeliversOnce(t *testing.T) {
	t.Parallel()

	l, err := OpenFile(filepath.Join(t.TempDir(), "ledger.json"))
	if err != nil {
		t.Fatalf("OpenFile returned error: %v", err)
	}
	guard := NewGuard(l, fixedNow)

	var calls atomic.Int32
	publish := func(context.Context) error {
		calls.Add(1)
		return nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := guard.Deliver(context.Background(), domain.ChannelSocial, "key", publish); err != nil {
				t.Errorf("Deliver returned error: %v", err)
			}
		}()
	}
	wg.Wait()

	if calls.Load() != 1 {
		t.Fatalf("expected exactly one publish, got %d", calls.Load())
	}
}

func TestGuardFailedPublishIsNotRecorded(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	l, _ := OpenFile(filepath.Join(t.TempDir(), "ledger.json"))
	guard := NewGuard(l, fixedNow)

	sent, err := guard.Deliver(ctx, domain.ChannelSocial, "key", func(context.Context) error {
		return errors.New("403 forbidden")
	})
	if err == nil || sent {
		t.Fatalf("expected publish error, got sent=%v err=%v", sent, err)
	}

	done, _ := l.HasDelivered(ctx, domain.ChannelSocial, "key")
	if done {
		t.Fatalf("failed publish must not be recorded")
	}

	sent, err = guard.Deliver(ctx, domain.ChannelSocial, "key", func(context.Context) error { return nil })
	if err != nil || !sent {
		t.Fatalf("expected retry to deliver, got sent=%v err=%v", sent, err)
	}
}

func TestGuardDeliverAll(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	l, _ := OpenFile(filepath.Join(t.TempDir(), "ledger.json"))
	_ = l.RecordDelivered(ctx, domain.ChannelChat, "a", fixedNow())
	guard := NewGuard(l, fixedNow)

	var got []string
	pending, err := guard.DeliverAll(ctx, domain.ChannelChat, []string{"a", "b", "c"}, func(_ context.Context, keys []string) error {
		got = keys
		return nil
	})
	if err != nil {
		t.Fatalf("DeliverAll returned error: %v", err)
	}
	if strings.Join(got, ",") != "b,c" || strings.Join(pending, ",") != "b,c" {
		t.Fatalf("expected b,c pending, got %v / %v", got, pending)
	}

	called := false
	pending, err = guard.DeliverAll(ctx, domain.ChannelChat, []string{"a", "b", "c"}, func(context.Context, []string) error {
		called = true
		return nil
	})
	if err != nil || called || len(pending) != 0 {
		t.Fatalf("expected nothing pending, got called=%v pending=%v err=%v", called, pending, err)
	}
}

func TestImportHistory(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	l, _ := OpenFile(filepath.Join(t.TempDir(), "ledger.json"))

	history := `["https://x.com/a/status/1/", "https://x.com/b/status/2", "#", "not a url"]`
	n, err := ImportHistory(ctx, l, domain.ChannelSocial, strings.NewReader(history), fixedNow())
	if err != nil {
		t.Fatalf("ImportHistory returned error: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 imported, got %d", n)
	}

	done, _ := l.HasDelivered(ctx, domain.ChannelSocial, "https://x.com/a/status/1")
	if !done {
		t.Fatalf("expected normalized URL key to be delivered")
	}

	n, err = ImportHistory(ctx, l, domain.ChannelSocial, strings.NewReader(history), fixedNow())
	if err != nil || n != 0 {
		t.Fatalf("expected re-import to be a no-op, got %d (err=%v)", n, err)
	}
}
