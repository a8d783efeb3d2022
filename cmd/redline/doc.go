// Redline reviews merge requests against project guideline documents
// using LLM providers, posting only findings that are new relative to
// the comments already on the change.
//
// Usage:
//
//	redline review mr 42 --project group/api   # review a GitLab merge request
//	redline review local                       # review uncommitted changes
//	redline guidelines list                    # show the resolved guideline set
//	redline guidelines check                   # validate .redline/ documents
//
// Guideline documents live in .redline/*.yaml; when none exist the
// built-in default preset is used.
//
// See https://github.com/redlinehq/redline for full documentation.
package main
