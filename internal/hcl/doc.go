// Package hcl implements the config.Loader interface for HCL pipeline
// manifests. It discovers .hcl files, decodes the pipeline/stage block
// structure via gohcl, and translates it into the format-agnostic
// config model.
package hcl
