// Package similarity provides label normalization and approximate string
// scoring used to compare form labels with known label phrases and to pick
// the closest option of a select or radio control for a profile value.
//
// Key functions:
//   - Normalize: NFKC-folds, lower-cases and strips punctuation
//   - Tokens: splits normalized text into keyword tokens
//   - Score: 0-100 similarity (identity, containment, token overlap)
//   - WordScore: Score with whole-word containment
//   - MatchOptions: ranks option strings against a target value
package similarity
