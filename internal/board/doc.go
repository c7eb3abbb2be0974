// Package board tracks the game state that moves act on.
//
// The board only knows slots and what occupies them. Slot names follow a
// fixed layout per player:
//
//	p<N>/reserve/<i>   recruit cards dealt to player N
//	p<N>/active/<j>    recruits player N keeps
//	p<N>/worker/<k>    player N's idle workers
//
// Any other location is a shared space that starts empty. Moves swap slot
// contents, so a choice and its reversal restore the original board.
//
// A replica applies moves to a live board as they arrive; Replay rebuilds the
// board from a canonical log. Two replicas agree when their replayed boards
// have the same Digest.
package board
