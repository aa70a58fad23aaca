// Package config defines the format-agnostic model of a pipeline
// definition. Loaders (see internal/hcl) translate their on-disk format
// into this model; the registry and supervisor only ever see the model.
package config
