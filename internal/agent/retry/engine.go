// Package retry implements the Retry Engine: reconstructing a single
// subdoc's original apply request from the cached multipart bundle and
// resubmitting it via the component RPC.
package retry

import (
	"context"
	"log/slog"

	agent "github.com/rdkcentral/webconfig-agent/internal/agent"
	"github.com/rdkcentral/webconfig-agent/internal/agent/domain"
	"github.com/rdkcentral/webconfig-agent/internal/agent/metrics"
)

// BundleCache is the read-only multipart cache collaborator: an
// indexable list of entries, the last of which is metadata and must be
// skipped.
type BundleCache interface {
	Entries() []domain.MultipartEntry
}

// Engine is the process-wide Retry Engine.
type Engine struct {
	cache      BundleCache
	params     agent.ParamCodec
	multipart  agent.MultipartCodec
	rpc        agent.ComponentRPC
	breakers   *breakerRegistry
	logger     *slog.Logger
	metricsAgt *metrics.Agent
}

// New builds an Engine over its collaborators.
func New(cache BundleCache, params agent.ParamCodec, mp agent.MultipartCodec, rpc agent.ComponentRPC, cbConfig CircuitBreakerConfig, logger *slog.Logger, m *metrics.Agent) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		cache: cache, params: params, multipart: mp, rpc: rpc,
		breakers: newBreakerRegistry(cbConfig, m), logger: logger, metricsAgt: m,
	}
}

// Retry rebuilds and resubmits the apply request for name. A name not
// found in the cache, or a cache with no eligible entries, fails without
// scheduling any future attempt: the next retry is triggered by the
// next EXPIRE or CRASH event, never by this call itself.
func (e *Engine) Retry(ctx context.Context, name string) domain.Status {
	if e.cache == nil {
		e.logger.Error("retry: no bundle cache configured")
		return domain.StatusFailure
	}

	entries := e.cache.Entries()
	if len(entries) == 0 {
		e.logger.Warn("retry: bundle cache is empty", "name", name)
		return domain.StatusFailure
	}

	// The last entry is the root/metadata entry, not an applicable
	// subdoc; it is intentionally excluded from the scan.
	var target *domain.MultipartEntry
	for i := 0; i < len(entries)-1; i++ {
		if entries[i].NameSpace == name {
			target = &entries[i]
			break
		}
	}
	if target == nil {
		e.logger.Warn("retry: name not found in bundle cache", "name", name)
		return domain.StatusFailure
	}

	decoded, err := e.params.DecodeParamBlob(target.Data)
	if err != nil {
		e.logger.Error("retry: failed to decode param blob", "name", name, "error", err)
		return domain.StatusFailure
	}
	if len(decoded) == 0 {
		e.logger.Warn("retry: decoded param list is empty", "name", name)
		return domain.StatusFailure
	}

	etag := parseEtag(target.Etag)

	outgoing := make([]domain.Param, 0, len(decoded))
	for _, p := range decoded {
		if p.Type != domain.ParamTypeBlob {
			e.logger.Warn("retry: param type is not a blob, skipping", "name", name, "param", p.Name)
			continue
		}
		appended := e.multipart.AppendedDoc(target.NameSpace, etag, p.Value)
		outgoing = append(outgoing, domain.Param{
			Name:  p.Name,
			Value: appended,
			Type:  domain.ParamTypeBase64,
		})
	}
	if len(outgoing) == 0 {
		e.logger.Warn("retry: no eligible blob params after filtering", "name", name)
		return domain.StatusFailure
	}

	if e.rpc == nil {
		e.logger.Error("retry: no component RPC configured", "name", name)
		return domain.StatusFailure
	}

	breaker := e.breakers.get(name)
	if !breaker.Allow() {
		e.logger.Warn("retry: circuit open, skipping RPC call", "name", name)
		return domain.StatusFailure
	}

	status, ccspStatus, err := e.rpc.SetValues(ctx, outgoing, agent.SetModeAtomicWebconfig)
	if err != nil || status != domain.StatusSuccess {
		breaker.RecordFailure()
		e.logger.Error("retry: setValues failed", "name", name, "ccsp_status", ccspStatus, "error", err)
		return domain.StatusFailure
	}

	breaker.RecordSuccess()
	return domain.StatusSuccess
}

func parseEtag(etag string) uint32 {
	if etag == "" {
		return 0
	}
	var n uint32
	for _, c := range etag {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + uint32(c-'0')
	}
	return n
}
