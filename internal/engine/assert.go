//go:build !chessassert

package engine

import "github.com/rs/zerolog/log"

// debugAssert logs a violated invariant. Build with -tags chessassert to
// make violations fatal.
func debugAssert(cond bool, msg string) {
	if !cond {
		log.Warn().Str("check", msg).Msg("search invariant violated")
	}
}
