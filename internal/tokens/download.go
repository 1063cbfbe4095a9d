package tokens

import "time"

// DownloadGrant is the caller-supplied metadata attached to a download token.
// It is echoed back only on successful consumption, never listable.
type DownloadGrant struct {
	AgentID  string
	Path     string
	MimeType string
	Size     int64
}

// DefaultDownloadTTL bounds a download link's lifetime when configuration
// does not supply one.
const DefaultDownloadTTL = 5 * time.Minute

// DownloadStore hands out time-boxed single-use file-access grants.
type DownloadStore struct {
	*Store[DownloadGrant]
}

func NewDownloadStore(ttl time.Duration) *DownloadStore {
	if ttl <= 0 {
		ttl = DefaultDownloadTTL
	}
	return &DownloadStore{Store: NewStore[DownloadGrant](ttl)}
}
