// Package convergence checks that replicas of a session agree.
//
// Each replica publishes the digest of its canonical log after every
// reconciliation. Check reads the published digests back and reports whether
// they are all equal. Replicas never read each other's digests to make
// decisions; this is an outside observer only.
package convergence
