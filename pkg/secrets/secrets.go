// Package secrets provides the process-wide secret-provider registry and
// the singleton delegate that lets every in-process consumer of the
// clustering tier share a single credential prompt.
//
// Providers register under a name; UseAsDelegate installs a caching
// delegate in front of the named provider exactly once per process. The
// registry is typed: there is no dynamic loading by class or package name.
package secrets

import (
	"errors"
	"fmt"
	"sync"
)

// Provider supplies the credential material for a secured tier URL.
// Implementations may prompt interactively; the delegate guarantees the
// prompt runs at most once per process.
type Provider interface {
	FetchSecret() ([]byte, error)
}

// Factory constructs a Provider when the delegate is installed
type Factory func() Provider

var (
	ErrUnknownProvider     = errors.New("secret provider not registered")
	ErrConflictingDelegate = errors.New("secret delegate already installed for a different provider")
)

var (
	mu         sync.Mutex
	factories  = make(map[string]Factory)
	active     *singletonDelegate
	activeName string
)

// RegisterProvider makes a provider available under a name. Typically
// called from an init function of the package implementing the provider.
// Re-registering a name replaces the previous factory.
func RegisterProvider(name string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[name] = factory
}

// UseAsDelegate installs the singleton delegate wrapping the named
// provider. Idempotent: repeated calls with the same name are no-ops.
// A different name after installation is a configuration conflict, and an
// unregistered name is an error — both fail rather than silently ignoring
// misconfigured credentials.
func UseAsDelegate(name string) error {
	mu.Lock()
	defer mu.Unlock()

	if active != nil {
		if activeName == name {
			return nil
		}
		return fmt.Errorf("%w: have %q, requested %q", ErrConflictingDelegate, activeName, name)
	}

	factory, ok := factories[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}

	active = &singletonDelegate{delegate: factory()}
	activeName = name
	return nil
}

// ActiveProvider returns the installed delegate, if any. Consumers fetch
// credentials through it so the underlying prompt runs once.
func ActiveProvider() (Provider, bool) {
	mu.Lock()
	defer mu.Unlock()
	if active == nil {
		return nil, false
	}
	return active, true
}

// DelegateName returns the provider name the delegate wraps, or empty
func DelegateName() string {
	mu.Lock()
	defer mu.Unlock()
	return activeName
}

// ResetForTest clears the registry and the installed delegate. Tests only.
func ResetForTest() {
	mu.Lock()
	defer mu.Unlock()
	factories = make(map[string]Factory)
	active = nil
	activeName = ""
}

// singletonDelegate caches the wrapped provider's secret after the first
// fetch so concurrent consumers trigger at most one prompt
type singletonDelegate struct {
	delegate Provider
	once     sync.Once
	secret   []byte
	err      error
}

// FetchSecret returns a copy of the cached secret, fetching it on first use
func (d *singletonDelegate) FetchSecret() ([]byte, error) {
	d.once.Do(func() {
		d.secret, d.err = d.delegate.FetchSecret()
	})
	if d.err != nil {
		return nil, d.err
	}
	out := make([]byte, len(d.secret))
	copy(out, d.secret)
	return out, nil
}
