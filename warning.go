package httpcache

// RFC 7234 §5.5 warn-codes. The agent field is rendered as "-" since this
// cache has no configured warn-agent identity distinct from its Via
// pseudonym.
const (
	warningResponseIsStale     = `110 - "Response is Stale"`
	warningRevalidationFailed  = `111 - "Revalidation Failed"`
	warningDisconnectedOp      = `112 - "Disconnected Operation"`
	warningHeuristicExpiration = `113 - "Heuristic Expiration"`
)
