package client

import (
	"context"
	"net"
	"net/url"
	"os"
	"sync"
)

const (
	// dockerHost is the hostname a container uses to reach its host machine
	dockerHost = "host.docker.internal"

	// hostInterface is the interface whose address replaces localhost
	// outside a container
	hostInterface = "en0"
)

// Resolver caches whether backend hostnames resolve. Results are keyed by
// hostname and safe for concurrent insert and read.
type Resolver struct {
	results sync.Map

	lookup      func(ctx context.Context, host string) ([]string, error)
	inContainer func() bool
	hostAddr    func(iface string) (string, bool)
}

// NewResolver creates a Resolver backed by the system resolver
func NewResolver() *Resolver {
	return &Resolver{
		lookup:      net.DefaultResolver.LookupHost,
		inContainer: runningInContainer,
		hostAddr:    interfaceIPv4,
	}
}

// Check reports whether the hostname of rawURL resolves. The first answer per
// hostname is cached; force performs a fresh lookup and replaces it. A
// lookup cut short by ctx is not cached.
func (r *Resolver) Check(ctx context.Context, rawURL string, force bool) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return false
	}
	host := u.Hostname()

	if !force {
		if ok, found := r.results.Load(host); found {
			return ok.(bool)
		}
	}

	ok := r.resolve(ctx, host)
	if !ok && ctx.Err() != nil {
		return false
	}
	r.results.Store(host, ok)
	return ok
}

// Cached returns the stored result for a hostname
func (r *Resolver) Cached(host string) (ok, found bool) {
	v, found := r.results.Load(host)
	if !found {
		return false, false
	}
	return v.(bool), true
}

func (r *Resolver) resolve(ctx context.Context, host string) bool {
	if net.ParseIP(host) != nil {
		return true
	}
	addrs, err := r.lookup(ctx, host)
	return err == nil && len(addrs) > 0
}

// ResolveLocalhost rewrites a localhost URL so it reaches the host machine:
// the container host gateway inside a container, otherwise the first
// external IPv4 address of en0. The URL is returned unchanged when neither
// applies or for any other host.
func (r *Resolver) ResolveLocalhost(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() != "localhost" {
		return rawURL
	}

	host := ""
	switch {
	case r.inContainer != nil && r.inContainer():
		host = dockerHost
	case r.hostAddr != nil:
		host, _ = r.hostAddr(hostInterface)
	}
	if host == "" {
		return rawURL
	}

	if port := u.Port(); port != "" {
		u.Host = net.JoinHostPort(host, port)
	} else {
		u.Host = host
	}
	return u.String()
}

// interfaceIPv4 returns the first non-loopback IPv4 address of an interface
func interfaceIPv4(name string) (string, bool) {
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return "", false
	}
	addrs, err := iface.Addrs()
	if err != nil {
		return "", false
	}
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() {
			continue
		}
		if ip4 := ipNet.IP.To4(); ip4 != nil {
			return ip4.String(), true
		}
	}
	return "", false
}

func runningInContainer() bool {
	_, err := os.Stat("/.dockerenv")
	return err == nil
}
