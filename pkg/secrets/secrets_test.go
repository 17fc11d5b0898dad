package secrets

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

// countingProvider counts how many times the underlying secret is fetched
type countingProvider struct {
	secret  []byte
	fetches atomic.Int64
}

func (p *countingProvider) FetchSecret() ([]byte, error) {
	p.fetches.Add(1)
	return p.secret, nil
}

func TestUseAsDelegateUnknownProvider(t *testing.T) {
	ResetForTest()

	err := UseAsDelegate("nope")
	if !errors.Is(err, ErrUnknownProvider) {
		t.Errorf("Expected ErrUnknownProvider, got %v", err)
	}
	if _, ok := ActiveProvider(); ok {
		t.Error("No delegate must be installed after a failed UseAsDelegate")
	}
}

func TestUseAsDelegateIdempotent(t *testing.T) {
	ResetForTest()
	RegisterProvider("console", func() Provider {
		return &countingProvider{secret: []byte("hunter2")}
	})

	if err := UseAsDelegate("console"); err != nil {
		t.Fatalf("First UseAsDelegate failed: %v", err)
	}
	if err := UseAsDelegate("console"); err != nil {
		t.Errorf("Repeated UseAsDelegate with same name must be a no-op, got %v", err)
	}
	if DelegateName() != "console" {
		t.Errorf("Expected delegate name 'console', got %q", DelegateName())
	}
}

func TestUseAsDelegateConflict(t *testing.T) {
	ResetForTest()
	RegisterProvider("console", func() Provider {
		return &countingProvider{secret: []byte("a")}
	})
	RegisterProvider("vault", func() Provider {
		return &countingProvider{secret: []byte("b")}
	})

	if err := UseAsDelegate("console"); err != nil {
		t.Fatalf("UseAsDelegate failed: %v", err)
	}
	if err := UseAsDelegate("vault"); !errors.Is(err, ErrConflictingDelegate) {
		t.Errorf("Expected ErrConflictingDelegate, got %v", err)
	}
}

func TestDelegateFetchesUnderlyingSecretOnce(t *testing.T) {
	ResetForTest()
	underlying := &countingProvider{secret: []byte("hunter2")}
	RegisterProvider("console", func() Provider { return underlying })

	if err := UseAsDelegate("console"); err != nil {
		t.Fatalf("UseAsDelegate failed: %v", err)
	}
	delegate, ok := ActiveProvider()
	if !ok {
		t.Fatal("Expected an active delegate")
	}

	// N concurrent consumers share one prompt
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			secret, err := delegate.FetchSecret()
			if err != nil {
				t.Errorf("FetchSecret failed: %v", err)
				return
			}
			if string(secret) != "hunter2" {
				t.Errorf("Unexpected secret %q", secret)
			}
		}()
	}
	wg.Wait()

	if got := underlying.fetches.Load(); got != 1 {
		t.Errorf("Expected exactly 1 underlying fetch, got %d", got)
	}
}

func TestDelegateReturnsCopy(t *testing.T) {
	ResetForTest()
	RegisterProvider("console", func() Provider {
		return &countingProvider{secret: []byte("hunter2")}
	})
	if err := UseAsDelegate("console"); err != nil {
		t.Fatalf("UseAsDelegate failed: %v", err)
	}
	delegate, _ := ActiveProvider()

	first, _ := delegate.FetchSecret()
	first[0] = 'X'

	second, _ := delegate.FetchSecret()
	if string(second) != "hunter2" {
		t.Errorf("Mutating a returned secret must not corrupt the cache, got %q", second)
	}
}

func TestConcurrentUseAsDelegate(t *testing.T) {
	ResetForTest()
	RegisterProvider("console", func() Provider {
		return &countingProvider{secret: []byte("a")}
	})

	var wg sync.WaitGroup
	var successes atomic.Int64
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := UseAsDelegate("console"); err == nil {
				successes.Add(1)
			}
		}()
	}
	wg.Wait()

	// Idempotent install: every call succeeds, one delegate exists
	if successes.Load() != 16 {
		t.Errorf("Expected all 16 calls to succeed, got %d", successes.Load())
	}
	if _, ok := ActiveProvider(); !ok {
		t.Error("Expected an active delegate after concurrent installs")
	}
}
