// Package validate implements the bounded validate-then-retry loop
// guarding a quality-checked stage, as an explicit state machine rather
// than nested control flow:
//
//	drafted → validating → accepted
//	                     ↘ needs_retry → retrying → drafted (again)
//
// The retry ceiling is fixed per stage. When it is exhausted and the
// output still fails validation, the stage terminates as
// accepted_with_warnings instead of failing the run: the pipeline
// delivers a degraded result and carries the last validation feedback on
// the run record for visibility.
package validate
