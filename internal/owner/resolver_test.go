package owner

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/listenupapp/bookpeer/internal/errors"
)

type fakeLookup struct {
	err   error
	addrs map[string][]netip.Addr
	block bool
	hosts []string
}

func (f *fakeLookup) LookupNetIP(ctx context.Context, _ string, host string) ([]netip.Addr, error) {
	f.hosts = append(f.hosts, host)
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.addrs[host], nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func addrs(ss ...string) []netip.Addr {
	out := make([]netip.Addr, 0, len(ss))
	for _, s := range ss {
		out = append(out, netip.MustParseAddr(s))
	}
	return out
}

func TestResolve_DefaultsToLocalhost(t *testing.T) {
	lookup := &fakeLookup{addrs: map[string][]netip.Addr{"localhost": addrs("127.0.0.1")}}
	r, err := NewResolver(testLogger(), Options{Lookup: lookup})
	require.NoError(t, err)

	owner, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:5005", owner.Endpoint())
	assert.True(t, owner.Online)
	assert.Equal(t, []string{"localhost"}, lookup.hosts)
}

func TestResolve_PrefersIPv4(t *testing.T) {
	lookup := &fakeLookup{addrs: map[string][]netip.Addr{"peer.lan": addrs("fe80::1", "10.0.0.7", "10.0.0.8")}}
	r, err := NewResolver(testLogger(), Options{Lookup: lookup, Host: "peer.lan", Port: 6000})
	require.NoError(t, err)

	owner, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, netip.MustParseAddr("10.0.0.7"), owner.Address)
	assert.Equal(t, 6000, owner.Port)
}

func TestResolve_IPv6Only(t *testing.T) {
	lookup := &fakeLookup{addrs: map[string][]netip.Addr{"v6.lan": addrs("2001:db8::1")}}
	r, err := NewResolver(testLogger(), Options{Lookup: lookup, Host: "v6.lan"})
	require.NoError(t, err)

	owner, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "[2001:db8::1]:5005", owner.Endpoint())
}

func TestResolve_LiteralAddressSkipsLookup(t *testing.T) {
	lookup := &fakeLookup{}
	r, err := NewResolver(testLogger(), Options{Lookup: lookup, Host: "192.168.1.20"})
	require.NoError(t, err)

	owner, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.20:5005", owner.Endpoint())
	assert.Empty(t, lookup.hosts)
}

func TestResolve_Failure(t *testing.T) {
	lookup := &fakeLookup{err: errors.New("no such host")}
	r, err := NewResolver(testLogger(), Options{Lookup: lookup, Host: "ghost.invalid"})
	require.NoError(t, err)

	_, err = r.Resolve(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrResolveFailed))
	assert.Contains(t, err.Error(), "no such host")
}

func TestResolve_NoAddresses(t *testing.T) {
	lookup := &fakeLookup{addrs: map[string][]netip.Addr{}}
	r, err := NewResolver(testLogger(), Options{Lookup: lookup, Host: "empty.lan"})
	require.NoError(t, err)

	_, err = r.Resolve(context.Background())
	assert.Equal(t, apperrors.CodeResolveFailed, apperrors.CodeOf(err))
}

func TestResolve_Timeout(t *testing.T) {
	lookup := &fakeLookup{block: true}
	r, err := NewResolver(testLogger(), Options{Lookup: lookup, Host: "slow.lan", Timeout: 20 * time.Millisecond})
	require.NoError(t, err)

	start := time.Now()
	_, err = r.Resolve(context.Background())
	assert.Equal(t, apperrors.CodeResolveFailed, apperrors.CodeOf(err))
	assert.Less(t, time.Since(start), time.Second)
}

func TestResolve_CallerCanceled(t *testing.T) {
	lookup := &fakeLookup{block: true}
	r, err := NewResolver(testLogger(), Options{Lookup: lookup, Host: "slow.lan"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Resolve(ctx)
	assert.Equal(t, apperrors.CodeCanceled, apperrors.CodeOf(err))
}

func TestNewResolver_NormalisesInternationalHost(t *testing.T) {
	r, err := NewResolver(testLogger(), Options{Host: "Bücher.example"})
	require.NoError(t, err)
	assert.Equal(t, "xn--bcher-kva.example", r.Host())
}

func TestNewResolver_Validation(t *testing.T) {
	_, err := NewResolver(testLogger(), Options{Port: 70000})
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))

	_, err = NewResolver(testLogger(), Options{Host: "bad host name"})
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))
}
