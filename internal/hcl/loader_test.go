package hcl

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/pipegrid/internal/testutil"
)

func loadModel(t *testing.T, files map[string]string) (map[string]any, error) {
	t.Helper()
	dir := testutil.WriteManifests(t, files)
	model, err := NewLoader().Load(context.Background(), dir)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(model.Pipelines))
	for name, p := range model.Pipelines {
		out[name] = p
	}
	return out, nil
}

func TestLoader_FullManifest(t *testing.T) {
	t.Parallel()
	dir := testutil.WriteManifests(t, map[string]string{
		"report.hcl": `
			pipeline "weekly_report" {
				max_concurrency   = 8
				failure_tolerance = 0.25

				defaults {
					regions = ["eu", "us", "apac"]
					limit   = 100
				}

				stage "fetch" {
					handler    = "fetch_sources"
					outputs    = ["raw"]
					checkpoint = true
					timeout    = "30s"
				}

				stage "expand" {
					handler = "fetch_region"
					fan_out = "regions"
					outputs = ["region_data"]
				}

				stage "compose" {
					handler     = "compose_report"
					inputs      = ["raw", "region_data"]
					outputs     = ["report"]
					validator   = "check_report"
					max_retries = 2
					depends_on  = ["fetch"]
				}
			}
		`,
	})

	model, err := NewLoader().Load(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, model.Pipelines, 1)

	p := model.Pipelines["weekly_report"]
	require.NotNil(t, p)
	assert.Equal(t, 8, p.MaxConcurrency)
	assert.Equal(t, 0.25, p.FailureTolerance)
	assert.Equal(t, []any{"eu", "us", "apac"}, p.Defaults["regions"])
	assert.Equal(t, float64(100), p.Defaults["limit"])

	require.Len(t, p.Stages, 3)
	fetch := p.Stages[0]
	assert.Equal(t, "fetch", fetch.Name)
	assert.Equal(t, "fetch_sources", fetch.Handler)
	assert.True(t, fetch.Checkpoint)
	assert.Equal(t, 30*time.Second, fetch.Timeout)

	expand := p.Stages[1]
	assert.True(t, expand.FansOut())
	assert.Equal(t, "regions", expand.FanOutKey)

	compose := p.Stages[2]
	assert.True(t, compose.Validated())
	assert.Equal(t, "check_report", compose.Validator)
	assert.Equal(t, 2, compose.MaxRetries)
	assert.Equal(t, []string{"fetch"}, compose.DependsOn)
}

func TestLoader_AppliesDefaults(t *testing.T) {
	t.Parallel()
	dir := testutil.WriteManifests(t, map[string]string{
		"minimal.hcl": `
			pipeline "minimal" {
				stage "only" {
					handler   = "work"
					validator = "check"
				}
			}
		`,
	})

	model, err := NewLoader().Load(context.Background(), dir)
	require.NoError(t, err)

	p := model.Pipelines["minimal"]
	require.NotNil(t, p)
	assert.Equal(t, 4, p.MaxConcurrency)
	assert.Equal(t, 0.5, p.FailureTolerance)
	assert.Equal(t, 1, p.Stages[0].MaxRetries, "omitted max_retries defaults to one retry")
	assert.Zero(t, p.Stages[0].Timeout)
}

func TestLoader_MergesMultipleFiles(t *testing.T) {
	t.Parallel()
	files := map[string]string{
		"a.hcl": `
			pipeline "one" {
				stage "s" { handler = "work" }
			}
		`,
		"nested/b.hcl": `
			pipeline "two" {
				stage "s" { handler = "work" }
			}
		`,
		"ignored.txt": `
			pipeline "three" {
				stage "s" { handler = "work" }
			}
		`,
	}
	pipelines, err := loadModel(t, files)
	require.NoError(t, err)
	assert.Len(t, pipelines, 2)
	assert.Contains(t, pipelines, "one")
	assert.Contains(t, pipelines, "two")
}

func TestLoader_DuplicatePipelineRejected(t *testing.T) {
	t.Parallel()
	_, err := loadModel(t, map[string]string{
		"a.hcl": `
			pipeline "dup" {
				stage "s" { handler = "work" }
			}
		`,
		"b.hcl": `
			pipeline "dup" {
				stage "s" { handler = "work" }
			}
		`,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `pipeline "dup" defined more than once`)
}

func TestLoader_ValidationErrors(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name     string
		manifest string
		wantErr  string
	}{
		{
			name: "tolerance out of range",
			manifest: `
				pipeline "p" {
					failure_tolerance = 1.5
					stage "s" { handler = "work" }
				}
			`,
			wantErr: "failure_tolerance must be within [0, 1]",
		},
		{
			name: "zero concurrency",
			manifest: `
				pipeline "p" {
					max_concurrency = 0
					stage "s" { handler = "work" }
				}
			`,
			wantErr: "max_concurrency must be >= 1",
		},
		{
			name:     "no stages",
			manifest: `pipeline "p" { }`,
			wantErr:  "has no stages",
		},
		{
			name: "retries without validator",
			manifest: `
				pipeline "p" {
					stage "s" {
						handler     = "work"
						max_retries = 3
					}
				}
			`,
			wantErr: "max_retries set but no validator",
		},
		{
			name: "negative retries",
			manifest: `
				pipeline "p" {
					stage "s" {
						handler     = "work"
						validator   = "check"
						max_retries = -1
					}
				}
			`,
			wantErr: "max_retries must be >= 0",
		},
		{
			name: "bad timeout",
			manifest: `
				pipeline "p" {
					stage "s" {
						handler = "work"
						timeout = "soon"
					}
				}
			`,
			wantErr: "invalid timeout",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := loadModel(t, map[string]string{"p.hcl": tc.manifest})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestLoader_SingleFilePath(t *testing.T) {
	t.Parallel()
	dir := testutil.WriteManifests(t, map[string]string{
		"solo.hcl": `
			pipeline "solo" {
				stage "s" { handler = "work" }
			}
		`,
	})

	model, err := NewLoader().Load(context.Background(), dir+"/solo.hcl")
	require.NoError(t, err)
	assert.Contains(t, model.Pipelines, "solo")
}

func TestLoader_MissingPath(t *testing.T) {
	t.Parallel()
	_, err := NewLoader().Load(context.Background(), "/does/not/exist")
	assert.Error(t, err)
}
