// Package rules loads game parameters from CUE.
//
// A rules file holds a single `game` struct, checked against the embedded
// #Rules schema. Fields left out take the values from Default.
//
//	game: {
//		players:        3
//		recruits_dealt: 3
//		recruits_kept:  1
//	}
package rules
