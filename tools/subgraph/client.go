package subgraph

import (
	"context"
	"math/big"
	"net/http"
	"time"

	"github.com/machinebox/graphql"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"gitlab.com/badgerdao/settsim/constants"
	"gitlab.com/badgerdao/settsim/metrics"
)

// -------------------------------------------------------------------------------------
// Runner
// -------------------------------------------------------------------------------------

// Runner executes one GraphQL query and decodes its data into resp.
type Runner interface {
	Query(ctx context.Context, query string, vars map[string]interface{}, resp interface{}) error
}

// GraphQLRunner runs queries against a subgraph endpoint.
type GraphQLRunner struct {
	client *graphql.Client
}

func NewGraphQLRunner(url string, httpClient *http.Client, log zerolog.Logger) *GraphQLRunner {
	client := graphql.NewClient(url, graphql.WithHTTPClient(httpClient))
	client.Log = func(s string) {
		log.Trace().Str("url", url).Msg(s)
	}
	return &GraphQLRunner{client: client}
}

func (r *GraphQLRunner) Query(ctx context.Context, query string, vars map[string]interface{}, resp interface{}) error {
	req := graphql.NewRequest(query)
	for k, v := range vars {
		req.Var(k, v)
	}
	return r.client.Run(ctx, req, resp)
}

// -------------------------------------------------------------------------------------
// Client
// -------------------------------------------------------------------------------------

type Config struct {
	URL      string
	CreamURL string

	// PageSize is the number of entities per page, 1000 when zero.
	PageSize int

	// Retries of failed HTTP requests. Zero keeps failures fatal.
	Retries int

	// RateLimit is the maximum number of queries per second, unlimited when zero.
	RateLimit float64

	Timeout time.Duration
}

// Client reads and reshapes Sett data from the protocol subgraph and the cream
// subgraph. Every call rebuilds its result from the source.
type Client struct {
	subgraph Runner
	cream    Runner
	pageSize int
	limiter  *rate.Limiter
	log      zerolog.Logger
	m        *metrics.Metrics
}

// NewClient returns a client querying the configured endpoints over HTTP.
func NewClient(cfg Config, log zerolog.Logger, m *metrics.Metrics) *Client {
	httpClient := NewHTTPClient(cfg.Retries, cfg.Timeout, log)
	var cream Runner
	if cfg.CreamURL != "" {
		cream = NewGraphQLRunner(cfg.CreamURL, httpClient, log)
	}
	return NewClientWithRunners(NewGraphQLRunner(cfg.URL, httpClient, log), cream, cfg, log, m)
}

// NewClientWithRunners returns a client over the given runners. cream may be nil when
// cream balances are not needed.
func NewClientWithRunners(subgraph, cream Runner, cfg Config, log zerolog.Logger, m *metrics.Metrics) *Client {
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = constants.SubgraphPageSize
	}
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	return &Client{
		subgraph: subgraph,
		cream:    cream,
		pageSize: pageSize,
		limiter:  rate.NewLimiter(limit, 1),
		log:      log.With().Str("module", "subgraph").Logger(),
		m:        m,
	}
}

func (c *Client) query(ctx context.Context, runner Runner, collection, query string, vars map[string]interface{}, resp interface{}) error {
	if runner == nil {
		return errors.Errorf("no endpoint configured for %s", collection)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return errors.Wrap(err, "rate limiter")
	}
	if err := runner.Query(ctx, query, vars, resp); err != nil {
		return errors.Wrapf(err, "fail to query %s", collection)
	}
	c.m.SubgraphPage(collection)
	return nil
}

// -------------------------------------------------------------------------------------
// Helpers
// -------------------------------------------------------------------------------------

var errNotFound = errors.New("entity not found")

func parseBig(field, s string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, errors.Errorf("invalid %s %q", field, s)
	}
	return n, nil
}

func blockHeight(block uint64) map[string]interface{} {
	return map[string]interface{}{"number": block}
}

func idFilter(id string) map[string]interface{} {
	return map[string]interface{}{"id": id}
}

func idGt(cursor string) map[string]interface{} {
	return map[string]interface{}{"id_gt": cursor}
}
