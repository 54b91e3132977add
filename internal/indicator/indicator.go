// Package indicator computes the MACD trend indicator and its SIGNAL line
// over an in-memory price series.
//
// All computations are batch and index-aligned: each output series has the
// same length as its input, with a sentinel 0 at indices that lack enough
// history for the window.
package indicator
