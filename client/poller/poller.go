// Package poller keeps a client's copy of the booking data fresh by asking
// the sync endpoint at a fixed interval and replacing the whole copy
// whenever the server reports a newer version.
package poller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slotbook/internal/domains/sync/model/dto"
	"slotbook/shared/constant"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	DefaultInterval = 3 * time.Second
	defaultTimeout  = 10 * time.Second
	syncPath        = "/v1/sync"
)

var ErrUnexpectedStatus = errors.New("unexpected sync status")

// ApplyFunc receives a complete snapshot. It replaces the caller's state,
// it never merges into it.
type ApplyFunc func(version int64, data dto.SnapshotData)

type Option func(*Poller)

func WithInterval(interval time.Duration) Option {
	return func(p *Poller) {
		if interval > 0 {
			p.interval = interval
		}
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(p *Poller) {
		if client != nil {
			p.client = client
		}
	}
}

// WithVersion starts from a version the caller already holds.
func WithVersion(version int64) Option {
	return func(p *Poller) {
		p.version = version
	}
}

type Poller struct {
	endpoint string
	applyFn  ApplyFunc
	interval time.Duration
	client   *http.Client

	// polling serializes round trips; mu guards the fields below it.
	polling   sync.Mutex
	mu        sync.Mutex
	version   int64
	mode      string
	forceFull bool
}

func New(baseURL string, apply ApplyFunc, opts ...Option) *Poller {
	p := &Poller{
		endpoint: strings.TrimRight(baseURL, "/") + syncPath,
		applyFn:  apply,
		interval: DefaultInterval,
		client:   &http.Client{Timeout: defaultTimeout},
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Version returns the version of the last applied snapshot.
func (p *Poller) Version() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.version
}

// Mode returns the storage mode the server reported last, empty before the
// first successful poll.
func (p *Poller) Mode() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.mode
}

// Run polls once right away and then on every tick until ctx is done. A
// failed poll is logged and retried on the next tick.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if _, err := p.PollOnce(ctx); err != nil && ctx.Err() == nil {
			log.Warn().Err(err).Str("endpoint", p.endpoint).Msg("sync poll failed")
		}

		select {
		case <-ctx.Done():
			return ctx.Err() //nolint:wrapcheck
		case <-ticker.C:
		}
	}
}

// PollOnce runs a single sync round trip and reports whether a snapshot was
// applied.
func (p *Poller) PollOnce(ctx context.Context) (bool, error) {
	p.polling.Lock()
	defer p.polling.Unlock()

	p.mu.Lock()
	version, full := p.version, p.forceFull
	p.mu.Unlock()

	res, err := p.fetch(ctx, version, full)
	if err != nil {
		return false, err
	}

	p.apply(res, version)

	return res.NeedsSync && res.Data != nil, nil
}

func (p *Poller) apply(res dto.SyncResponse, version int64) {
	if res.NeedsSync && res.Data != nil {
		p.applyFn(res.Version, *res.Data)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.mode = res.Mode

	if !res.NeedsSync || res.Data == nil {
		// The server forgot versions we already saw, so its counter restarted.
		p.forceFull = res.Mode == dto.ModeAuthoritative && res.Version < version

		return
	}

	p.version = res.Version
	p.forceFull = false

	log.Debug().Int64("version", res.Version).Int("slots", len(res.Data.Slots)).Msg("applied sync snapshot")
}

func (p *Poller) fetch(ctx context.Context, version int64, full bool) (dto.SyncResponse, error) {
	res := dto.SyncResponse{}

	query := url.Values{}
	query.Set(constant.RequestParamVersion, strconv.FormatInt(version, 10))

	if full {
		query.Set(constant.RequestParamFull, strconv.FormatBool(full))
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return res, fmt.Errorf("failed to build sync request: %w", err)
	}

	request.Header.Set("Accept", constant.ContentTypeJSON)

	response, err := p.client.Do(request)
	if err != nil {
		return res, fmt.Errorf("failed to call sync: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return res, fmt.Errorf("%w: %d", ErrUnexpectedStatus, response.StatusCode)
	}

	if err = json.NewDecoder(response.Body).Decode(&res); err != nil {
		return res, fmt.Errorf("failed to decode sync response: %w", err)
	}

	return res, nil
}
