// Package agent declares the contracts between the apply-lifecycle core
// and the collaborators the spec treats as external: the bundle fetch,
// the multipart/param codecs, the component RPC surface, the upstream
// notification sink, and the root-version commit hook. Concrete
// implementations live in sibling packages (transport/httpfetch,
// multipart, retry, api) and are wired together in engine.Engine.
package agent

import (
	"context"

	"github.com/rdkcentral/webconfig-agent/internal/agent/domain"
)

// Fetcher retrieves the raw multipart bundle for a device from the cloud
// control plane.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (body []byte, boundary string, etag string, err error)
}

// MultipartCodec parses a fetched bundle into its constituent subdoc
// entries and composes the appended-document payload used on retry.
type MultipartCodec interface {
	Parse(boundary string, body []byte) ([]domain.MultipartEntry, error)
	AppendedDoc(nameSpace string, etag uint32, value []byte) []byte
}

// ParamCodec decodes one subdoc entry's raw data into typed RPC
// parameters.
type ParamCodec interface {
	DecodeParamBlob(data []byte) ([]domain.Param, error)
}

// SetMode mirrors the component RPC's apply mode. ATOMIC is the only
// mode the core ever requests.
type SetMode int

const (
	SetModeAtomicWebconfig SetMode = iota
)

// ComponentRPC is the on-device setValues surface a subdoc is applied
// through.
type ComponentRPC interface {
	SetValues(ctx context.Context, params []domain.Param, mode SetMode) (domain.Status, int, error)
}

// NotificationSink is the publish-only upstream transport for apply
// lifecycle notifications.
type NotificationSink interface {
	Notify(ctx context.Context, n domain.Notification) error
}

// RootUpdatePolicy decides whether a bundle-level version commit is due
// (all constituent subdocs ACKed) and performs the commit.
type RootUpdatePolicy interface {
	NeedsRootUpdate(bundleTxID string) bool
	CommitRootVersion(ctx context.Context, bundleTxID string, version uint32) error
}

// GlobalTxIDSource supplies the stable correlation id the outer fetch
// layer attached to the bundle currently being applied. Every
// notification raised while that bundle is in flight carries the same
// id, so the root-update bookkeeping can tell which bundle an ACK
// belongs to.
type GlobalTxIDSource interface {
	CurrentGlobalTxID() string
}
