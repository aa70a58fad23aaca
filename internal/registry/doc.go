// Package registry holds everything a supervisor needs to execute a
// pipeline type: the named Go stage handlers and validator functions, the
// loaded pipeline definitions, and the resolved execution order of each
// pipeline.
//
// Registration is where all static validation happens, once per pipeline
// type rather than per run: manifest/handler parity (every referenced
// handler and validator must be registered), output-key uniqueness, and
// dependency-graph acyclicity. A pipeline that registers cleanly cannot
// fail to resolve at run time.
package registry
