package identity

import (
	"fmt"
	"math/rand"
	"net/http"
	"strings"
)

// Identity is the set of request headers presented for one location attempt.
type Identity struct {
	Headers http.Header
}

// Apply copies the identity's headers onto req.
func (i Identity) Apply(req *http.Request) {
	for k, vals := range i.Headers {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}
}

// Provider captures a single identity strategy (randomized, static, etc.).
type Provider interface {
	Name() string
	Next() Identity
}

// Registry keeps a mapping from provider names to their implementations.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry builds a registry with the built-in providers registered.
func NewRegistry(origin string) *Registry {
	r := &Registry{providers: map[string]Provider{}}
	r.Register(NewRandomized(origin))
	r.Register(NewStatic(origin, ""))
	return r
}

// Register adds or replaces a provider implementation.
func (r *Registry) Register(p Provider) {
	if r.providers == nil {
		r.providers = map[string]Provider{}
	}
	r.providers[p.Name()] = p
}

// Resolve returns a provider by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Provider, error) {
	if p, ok := r.providers[name]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("identity provider %s is not registered", name)
}

var userAgentTemplates = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/%[1]s Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:%[4]d.0) Gecko/20100101 Firefox/%[4]d.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_%[2]d_0) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/%[1]s Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_%[2]d_0) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/%[3]s Safari/605.1.15",
}

// Randomized varies the user agent and forwarded client address per attempt.
type Randomized struct {
	origin string
}

// NewRandomized builds the default provider.
func NewRandomized(origin string) *Randomized {
	return &Randomized{origin: strings.TrimRight(origin, "/")}
}

// Name identifies the provider inside the registry.
func (r *Randomized) Name() string {
	return "randomized"
}

// Next draws a fresh identity.
func (r *Randomized) Next() Identity {
	ip := randomIP()
	h := baseHeaders(r.origin, randomUserAgent())
	h.Set("X-Forwarded-For", ip)
	h.Set("Client-IP", ip)
	return Identity{Headers: h}
}

// Static always presents the same user agent.
type Static struct {
	origin    string
	userAgent string
}

// NewStatic builds a fixed identity; userAgent defaults to CinemaScanner/1.0.
func NewStatic(origin, userAgent string) *Static {
	if userAgent == "" {
		userAgent = "CinemaScanner/1.0"
	}
	return &Static{origin: strings.TrimRight(origin, "/"), userAgent: userAgent}
}

// Name identifies the provider inside the registry.
func (s *Static) Name() string {
	return "static"
}

// Next returns the fixed identity.
func (s *Static) Next() Identity {
	return Identity{Headers: baseHeaders(s.origin, s.userAgent)}
}

func baseHeaders(origin, userAgent string) http.Header {
	h := http.Header{}
	h.Set("User-Agent", userAgent)
	h.Set("Accept", "application/json, text/plain, */*")
	h.Set("Accept-Language", "en-US,en;q=0.9")
	if origin != "" {
		h.Set("Origin", origin)
		h.Set("Referer", origin+"/")
	}
	return h
}

func randomUserAgent() string {
	tpl := userAgentTemplates[rand.Intn(len(userAgentTemplates))]
	chrome := fmt.Sprintf("%d.0.%d.%d", 100+rand.Intn(31), 1000+rand.Intn(5000), rand.Intn(151))
	safari := fmt.Sprintf("%d.%d", 15+rand.Intn(4), rand.Intn(4))
	return fmt.Sprintf(tpl, chrome, 13+rand.Intn(3), safari, 100+rand.Intn(31))
}

func randomIP() string {
	return fmt.Sprintf("%d.%d.%d.%d", 1+rand.Intn(223), rand.Intn(256), rand.Intn(256), 1+rand.Intn(254))
}
