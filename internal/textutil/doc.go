// Package textutil provides small text helpers shared by the generation stages.
//
// The primary use cases are:
//   - Splitting prose into words and sentences for readability scoring
//   - Picking a search keyword out of a short statement
//   - Sanitizing identifiers into filesystem-safe path segments
//
// Words are lowercased and stripped of punctuation. Keyword selection ignores
// common English stop words and words of three letters or fewer.
package textutil
