package config

import "context"

// Loader abstracts the on-disk definition format away from the rest of
// the application. Load reads every definition file under the given
// paths and returns the translated model.
type Loader interface {
	Load(ctx context.Context, paths ...string) (*Model, error)
}
