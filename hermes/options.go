package hermes

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
)

// RetryPolicy controls how long a post waits before its native send is
// considered lost and how many times it gets reposted. Defaults: 100s per
// attempt, zero extra retries.
type RetryPolicy struct {
	PerAttemptTimeout time.Duration `mapstructure:"per_attempt_timeout" validate:"required"`
	MaxRetries        int           `mapstructure:"max_retries" validate:"gte=0"`
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{PerAttemptTimeout: 100 * time.Second, MaxRetries: 0}
}

// Options holds the engine's construction-time knobs.
type Options struct {
	// AutoShmem enables automatic shared-memory acceleration for same-node
	// endpoints, where the underlying driver supports it.
	AutoShmem bool `mapstructure:"auto_shmem"`

	// StatsOnTeardown emits final counters (see stats.go) when Close runs.
	StatsOnTeardown bool `mapstructure:"stats_on_teardown"`

	// ForceNonBlockingProgress shortens the per-Progress() wait from the
	// default 100ms to a minimal poll, at the cost of busier spinning.
	ForceNonBlockingProgress bool `mapstructure:"force_non_blocking_progress"`

	// ForkedChild marks that the process may fork after engine creation;
	// Close must not finalize shared native-layer state in that case.
	ForkedChild bool `mapstructure:"forked_child"`

	// MargoCompat enables the breadcrumb wire extension (see margo.go)
	// instead of the straight-through path; no provider id is multiplexed
	// into the rpc id.
	MargoCompat bool `mapstructure:"margo_compat"`

	RetryPolicy RetryPolicy `mapstructure:"retry_policy" validate:"required"`

	ProgressInterval time.Duration `mapstructure:"progress_interval" validate:"required"`

	// StatsLogInterval, when non-zero, registers a periodic stats snapshot
	// with the hk housekeeper instead of only logging once on teardown.
	StatsLogInterval time.Duration `mapstructure:"stats_log_interval"`
}

func DefaultOptions() Options {
	return Options{
		RetryPolicy:      DefaultRetryPolicy(),
		ProgressInterval: 100 * time.Millisecond,
	}
}

var validate = validator.New()

// DecodeOptions fills Options from a generic map (e.g. parsed from YAML by
// spf13/viper in a cmd/ program), applying DefaultOptions first so partial
// configuration is allowed, then validating the result.
func DecodeOptions(raw map[string]any) (Options, error) {
	opts := DefaultOptions()
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &opts,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
		),
	})
	if err != nil {
		return Options{}, fmt.Errorf("hermes: options decoder: %w", err)
	}
	if err := dec.Decode(raw); err != nil {
		return Options{}, fmt.Errorf("hermes: decode options: %w", err)
	}
	if err := validate.Struct(&opts); err != nil {
		return Options{}, &ErrConfiguration{Msg: err.Error()}
	}
	return opts, nil
}
