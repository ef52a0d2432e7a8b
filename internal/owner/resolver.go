// Package owner resolves the network identity of the local peer, which is
// stamped on every catalog entry as the book's owner.
package owner

import (
	"context"
	"log/slog"
	"net"
	"net/netip"
	"strings"
	"time"

	"golang.org/x/net/idna"

	"github.com/listenupapp/bookpeer/internal/domain"
	apperrors "github.com/listenupapp/bookpeer/internal/errors"
)

const (
	// DefaultHost is the host name resolved when none is configured.
	DefaultHost = "localhost"

	// DefaultPort is the port peers share books on.
	DefaultPort = 5005

	// DefaultTimeout bounds a single host lookup.
	DefaultTimeout = 2 * time.Second
)

// HostLookup resolves a host name to addresses. *net.Resolver satisfies it.
type HostLookup interface {
	LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error)
}

// Options configures a Resolver. Zero values take the package defaults.
type Options struct {
	Lookup  HostLookup
	Host    string
	Port    int
	Timeout time.Duration
}

// Resolver turns the configured host and port into a BookOwner.
type Resolver struct {
	lookup  HostLookup
	logger  *slog.Logger
	host    string
	port    int
	timeout time.Duration
}

// NewResolver creates a resolver. The host is converted to its ASCII form;
// an invalid internationalised name is a validation error.
func NewResolver(logger *slog.Logger, opts Options) (*Resolver, error) {
	host := strings.TrimSpace(opts.Host)
	if host == "" {
		host = DefaultHost
	}
	if _, err := netip.ParseAddr(host); err != nil {
		ascii, err := idna.Lookup.ToASCII(host)
		if err != nil {
			return nil, apperrors.Validationf("owner host %q is not a valid host name: %v", opts.Host, err)
		}
		host = ascii
	}

	port := opts.Port
	if port == 0 {
		port = DefaultPort
	}
	if port < 1 || port > 65535 {
		return nil, apperrors.Validationf("owner port %d out of range", port)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	lookup := opts.Lookup
	if lookup == nil {
		lookup = net.DefaultResolver
	}

	return &Resolver{
		lookup:  lookup,
		logger:  logger,
		host:    host,
		port:    port,
		timeout: timeout,
	}, nil
}

// Host returns the normalised host name.
func (r *Resolver) Host() string {
	return r.host
}

// Resolve looks the host up and returns an online owner. IPv4 addresses are
// preferred; among addresses of the same family the first one wins.
// A failed lookup is an error, never an offline owner.
func (r *Resolver) Resolve(ctx context.Context) (domain.BookOwner, error) {
	if addr, err := netip.ParseAddr(r.host); err == nil {
		return r.owner(addr.Unmap())
	}

	lookupCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	addrs, err := r.lookup.LookupNetIP(lookupCtx, "ip", r.host)
	if err != nil {
		if ctx.Err() != nil {
			return domain.BookOwner{}, apperrors.Canceled(ctx.Err())
		}
		r.logger.Error("owner lookup failed", "host", r.host, "timeout", r.timeout, "error", err)
		return domain.BookOwner{}, apperrors.Wrapf(err, apperrors.CodeResolveFailed, "resolve owner host %s", r.host)
	}

	addr, ok := pick(addrs)
	if !ok {
		return domain.BookOwner{}, apperrors.Wrapf(errNoAddress, apperrors.CodeResolveFailed, "resolve owner host %s", r.host)
	}

	r.logger.Debug("owner resolved", "host", r.host, "addr", addr, "took", time.Since(start))
	return r.owner(addr)
}

var errNoAddress = apperrors.New("no addresses returned")

func (r *Resolver) owner(addr netip.Addr) (domain.BookOwner, error) {
	o, err := domain.NewBookOwner(addr, r.port)
	if err != nil {
		return domain.BookOwner{}, apperrors.Wrapf(err, apperrors.CodeResolveFailed, "owner %s", r.host)
	}
	return o, nil
}

func pick(addrs []netip.Addr) (netip.Addr, bool) {
	var fallback netip.Addr
	for _, a := range addrs {
		a = a.Unmap()
		if a.Is4() {
			return a, true
		}
		if !fallback.IsValid() && a.IsValid() {
			fallback = a
		}
	}
	return fallback, fallback.IsValid()
}
