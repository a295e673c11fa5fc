package lamda

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	apperrors "github.com/astropenguin/ndradex/internal/errors"
	"github.com/astropenguin/ndradex/internal/logging"
)

// Resolver maps species identifiers to parsed Molecules. A location is
// fetched and parsed at most once per Resolver lifetime, no matter how many
// jobs (or goroutines) request it: concurrent first-time requests for the
// same species collapse into a single resolution via singleflight, and later
// requests are served from the memo under a read lock.
type Resolver struct {
	aliases  map[string]string
	cacheDir string
	client   *http.Client
	logger   logging.Logger

	group singleflight.Group

	mu   sync.RWMutex
	memo map[string]*Molecule
}

// ResolverOption configures a Resolver during construction.
type ResolverOption func(*Resolver)

// WithHTTPClient sets a custom HTTP client for remote datafile fetches.
func WithHTTPClient(client *http.Client) ResolverOption {
	return func(r *Resolver) { r.client = client }
}

// WithLogger sets the logger used for cache and fetch events.
func WithLogger(logger logging.Logger) ResolverOption {
	return func(r *Resolver) { r.logger = logger }
}

// NewResolver creates a Resolver.
//
// Parameters:
//   - aliases: The species alias table (short name -> canonical location),
//     supplied by the configuration collaborator.
//   - cacheDir: The on-disk cache area for fetched datafiles.
//   - opts: Optional overrides.
//
// Returns:
//   - *Resolver: The constructed resolver.
func NewResolver(aliases map[string]string, cacheDir string, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		aliases:  aliases,
		cacheDir: cacheDir,
		client:   http.DefaultClient,
		logger:   logging.Nop(),
		memo:     make(map[string]*Molecule),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve maps a species identifier to a parsed Molecule. The identifier may
// be an alias, a bare datafile name (with or without the ".dat" suffix), a
// local path, or an HTTP(S) URL. Any failure is a DataResolutionError and is
// surfaced before dispatch, never per job.
func (r *Resolver) Resolve(ctx context.Context, query string) (*Molecule, error) {
	location := query
	if canonical, ok := r.aliases[query]; ok {
		location = canonical
	}

	r.mu.RLock()
	mol, ok := r.memo[location]
	r.mu.RUnlock()
	if ok {
		return mol, nil
	}

	v, err, _ := r.group.Do(location, func() (any, error) {
		// Recheck under the group: a previous winner may have populated
		// the memo between the RLock above and this call.
		r.mu.RLock()
		mol, ok := r.memo[location]
		r.mu.RUnlock()
		if ok {
			return mol, nil
		}

		mol, err := r.resolve(ctx, query, location)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.memo[location] = mol
		r.mu.Unlock()
		return mol, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Molecule), nil
}

// resolve performs the uncached resolution of one canonical location.
func (r *Resolver) resolve(ctx context.Context, query, location string) (*Molecule, error) {
	path, err := r.localPath(ctx, location)
	if err != nil {
		return nil, apperrors.DataResolutionError{Query: query, Cause: err}
	}

	mol, err := ParseFile(path)
	if err != nil {
		return nil, apperrors.DataResolutionError{Query: query, Cause: err}
	}
	if len(mol.Transitions()) == 0 {
		return nil, apperrors.DataResolutionError{
			Query: query,
			Cause: fmt.Errorf("datafile %s has no usable transition table", path),
		}
	}

	mol.Query = query
	r.logger.Debug("resolved molecular data",
		logging.String("query", query),
		logging.String("path", path),
		logging.Int("transitions", len(mol.Transitions())))
	return mol, nil
}

// localPath turns a canonical location into a readable local datafile path,
// fetching and persisting remote content on cache miss.
func (r *Resolver) localPath(ctx context.Context, location string) (string, error) {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return r.fetch(ctx, location)
	}

	// Local path, possibly without the ".dat" suffix.
	if _, err := os.Stat(location); err == nil {
		return location, nil
	}

	// Bare name: consult the cache area.
	name := strings.TrimSuffix(filepath.Base(location), ".dat") + ".dat"
	cached := filepath.Join(r.cacheDir, name)
	if _, err := os.Stat(cached); err == nil {
		return cached, nil
	}

	return "", fmt.Errorf("no datafile found for %q (looked at %s)", location, cached)
}

// fetch performs a cached download: the on-disk cache is consulted first and
// a network fetch happens only on a miss. Fetched content is fully persisted
// (via a temporary file and rename) before it is trusted as a parse source,
// so concurrent runs never observe a torn cache entry.
func (r *Resolver) fetch(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	stem := strings.TrimSuffix(filepath.Base(u.Path), ".dat")
	cached := filepath.Join(r.cacheDir, stem+".dat")

	if _, err := os.Stat(cached); err == nil {
		r.logger.Debug("datafile cache hit", logging.String("url", rawURL), logging.String("path", cached))
		return cached, nil
	}

	if err := os.MkdirAll(r.cacheDir, 0o755); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return "", apperrors.WrapError(err, "failed to fetch %s", rawURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch %s: status %s", rawURL, resp.Status)
	}

	tmp, err := os.CreateTemp(r.cacheDir, stem+".*.tmp")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return "", apperrors.WrapError(err, "failed to persist %s", rawURL)
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), cached); err != nil {
		return "", err
	}

	r.logger.Info("fetched datafile",
		logging.String("url", rawURL),
		logging.String("path", cached))
	return cached, nil
}

// Invalidate removes a cached datafile so the next Resolve refetches it.
// The in-memory memo entry for the location is dropped as well.
func (r *Resolver) Invalidate(location string) error {
	if canonical, ok := r.aliases[location]; ok {
		location = canonical
	}

	r.mu.Lock()
	delete(r.memo, location)
	r.mu.Unlock()

	stem := location
	if u, err := url.Parse(location); err == nil && u.Path != "" {
		stem = u.Path
	}
	name := strings.TrimSuffix(filepath.Base(stem), ".dat") + ".dat"
	err := os.Remove(filepath.Join(r.cacheDir, name))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
