// Package tierclient manages the lifecycle of a cache manager's single
// shared connection to the clustering tier.
//
// This package handles:
//   - Lazy, exactly-once creation of the clustered connection under
//     concurrent callers
//   - Topology tracking across connections, with listeners detached before
//     any connection they observed is shut down
//   - Rejoin handling: tearing down the old connection asynchronously and
//     publishing a replacement atomically
//   - One-time process-wide secret-delegate installation so multiple
//     in-process consumers share a single credential prompt
package tierclient
