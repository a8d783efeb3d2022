// Package diff parses unified diffs into the changed-line ranges that
// review findings anchor to.
//
// Only added lines in new-file numbering count as changed: inline
// comments attach to the new side of the diff, and context lines are
// not part of the change under review.
package diff
