// Package loader fetches and decodes knowledge-graph documents from local
// files or HTTP URLs, trying a list of candidate locations in order.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/kgview/pkg/debug"
	"github.com/vanderheijden86/kgview/pkg/metrics"
	"github.com/vanderheijden86/kgview/pkg/model"
)

// ErrNotFound is returned when no candidate location yields a valid graph.
var ErrNotFound = errors.New("graph data not found")

// DefaultCandidates are tried when the caller supplies none.
var DefaultCandidates = []string{
	"graph_data.json",
	"data/graph_data.json",
	"knowledge_graph.json",
}

// DefaultTimeout bounds a single HTTP fetch.
const DefaultTimeout = 15 * time.Second

// MaxDocumentBytes caps how much of a response body is read.
const MaxDocumentBytes = 64 << 20

// MasterySource supplies per-node mastery scores.
type MasterySource interface {
	LoadMastery(ctx context.Context) (model.Mastery, error)
}

// Loader fetches graph documents.
type Loader struct {
	client *http.Client
	logger *log.Logger
}

// New returns a Loader with a default HTTP client.
func New() *Loader {
	return &Loader{
		client: &http.Client{Timeout: DefaultTimeout},
		// Silence by default. Callers can opt-in via SetLogger.
		logger: log.New(io.Discard, "", 0),
	}
}

// SetLogger sets a custom logger for per-candidate failures
func (l *Loader) SetLogger(logger *log.Logger) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	l.logger = logger
}

// SetHTTPClient replaces the client used for http(s) candidates.
func (l *Loader) SetHTTPClient(c *http.Client) {
	if c != nil {
		l.client = c
	}
}

// IsURL reports whether candidate is fetched over HTTP.
func IsURL(candidate string) bool {
	return strings.HasPrefix(candidate, "http://") || strings.HasPrefix(candidate, "https://")
}

// Fetch returns the raw bytes at candidate.
func (l *Loader) Fetch(ctx context.Context, candidate string) ([]byte, error) {
	if !IsURL(candidate) {
		data, err := os.ReadFile(candidate)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", candidate, err)
		}
		return data, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, candidate, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", candidate, err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", candidate, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: unexpected status %s", candidate, resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxDocumentBytes))
	if err != nil {
		return nil, fmt.Errorf("reading body of %s: %w", candidate, err)
	}
	return data, nil
}

// LoadFirst tries candidates in order and returns the first document that
// fetches and decodes, along with the candidate it came from. When all fail
// the error wraps ErrNotFound and every per-candidate error.
func (l *Loader) LoadFirst(ctx context.Context, candidates []string) (*model.Document, string, error) {
	if len(candidates) == 0 {
		candidates = DefaultCandidates
	}
	defer metrics.TimerWithCallback(metrics.GraphLoad, func(d time.Duration) {
		debug.LogTiming("graph load", d)
	})()

	errs := []error{ErrNotFound}
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		data, err := l.Fetch(ctx, c)
		if err != nil {
			l.logger.Printf("graph candidate %s: %v", c, err)
			errs = append(errs, err)
			continue
		}
		doc, err := DecodeBytes(data)
		if err != nil {
			l.logger.Printf("graph candidate %s: %v", c, err)
			errs = append(errs, fmt.Errorf("%s: %w", c, err))
			continue
		}
		debug.Log("loaded graph from %s: %d nodes, %d edges, %d levels",
			c, len(doc.Graph.Nodes), len(doc.Graph.Edges), len(doc.Levels))
		return doc, c, nil
	}
	return nil, "", errors.Join(errs...)
}

// LoadFirst is Loader.LoadFirst on a default loader.
func LoadFirst(ctx context.Context, candidates []string) (*model.Document, string, error) {
	return New().LoadFirst(ctx, candidates)
}

// Result is the outcome of LoadAll.
type Result struct {
	Document *model.Document
	Source   string
	Mastery  model.Mastery
	// MasteryErr is set when the mastery source failed; the graph is still
	// usable without it.
	MasteryErr error
}

// LoadAll fetches the graph and, when ms is non-nil, the mastery map
// concurrently. Only a graph failure is returned as an error.
func (l *Loader) LoadAll(ctx context.Context, candidates []string, ms MasterySource) (Result, error) {
	var res Result
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		doc, src, err := l.LoadFirst(gctx, candidates)
		if err != nil {
			return err
		}
		res.Document, res.Source = doc, src
		return nil
	})
	if ms != nil {
		g.Go(func() error {
			m, err := ms.LoadMastery(gctx)
			if err != nil {
				l.logger.Printf("mastery: %v", err)
				res.MasteryErr = err
				return nil // mastery is optional
			}
			res.Mastery = m
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Result{}, err
	}
	return res, nil
}

// FileMastery reads a JSON mastery map from a path or URL.
type FileMastery struct {
	Loader   *Loader
	Location string
}

// LoadMastery implements MasterySource.
func (f FileMastery) LoadMastery(ctx context.Context) (model.Mastery, error) {
	l := f.Loader
	if l == nil {
		l = New()
	}
	data, err := l.Fetch(ctx, f.Location)
	if err != nil {
		return nil, err
	}
	return DecodeMastery(data)
}
