package config

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"

	"tmplq/internal/apperr"
)

// Setting keys accepted by Runtime.Update.
const (
	KeyQueueCapacity    = "queue_capacity"
	KeyHistoryCapacity  = "history_capacity"
	KeyMaxTemplateBytes = "max_template_bytes"
	KeyProcessingDelay  = "processing_delay_ms"
)

// MaxProcessingDelayMs caps both ends of the processing delay range.
const MaxProcessingDelayMs = int(time.Hour / time.Millisecond)

// DelayRange bounds the simulated processing delay, in milliseconds.
type DelayRange struct {
	Min int `json:"min" mapstructure:"min"`
	Max int `json:"max" mapstructure:"max"`
}

// Bounds returns the range as durations.
func (d DelayRange) Bounds() (time.Duration, time.Duration) {
	return time.Duration(d.Min) * time.Millisecond, time.Duration(d.Max) * time.Millisecond
}

// Settings are the runtime-tunable parameters of the job pipeline.
type Settings struct {
	QueueCapacity    int        `json:"queue_capacity"`
	HistoryCapacity  int        `json:"history_capacity"`
	MaxTemplateBytes int        `json:"max_template_bytes"`
	ProcessingDelay  DelayRange `json:"processing_delay_ms"`
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		QueueCapacity:    50,
		HistoryCapacity:  20,
		MaxTemplateBytes: 10000,
		ProcessingDelay:  DelayRange{Min: 500, Max: 2500},
	}
}

// Validate checks every field and reports all violations.
func (s Settings) Validate() error {
	var merr *multierror.Error
	if s.QueueCapacity <= 0 {
		merr = multierror.Append(merr, fmt.Errorf("%s: must be a positive integer", KeyQueueCapacity))
	}
	if s.HistoryCapacity <= 0 {
		merr = multierror.Append(merr, fmt.Errorf("%s: must be a positive integer", KeyHistoryCapacity))
	}
	if s.MaxTemplateBytes <= 0 {
		merr = multierror.Append(merr, fmt.Errorf("%s: must be a positive integer", KeyMaxTemplateBytes))
	}
	if err := s.ProcessingDelay.validate(); err != nil {
		merr = multierror.Append(merr, err)
	}
	return merr.ErrorOrNil()
}

func (d DelayRange) validate() error {
	if d.Min < 0 || d.Max < 0 {
		return fmt.Errorf("%s: min and max must be non-negative", KeyProcessingDelay)
	}
	if d.Min > MaxProcessingDelayMs || d.Max > MaxProcessingDelayMs {
		return fmt.Errorf("%s: min and max must not exceed %d", KeyProcessingDelay, MaxProcessingDelayMs)
	}
	if d.Min >= d.Max {
		return fmt.Errorf("%s: min (%d) must be less than max (%d)", KeyProcessingDelay, d.Min, d.Max)
	}
	return nil
}

// Runtime holds the process-wide settings. Readers always get a full copy;
// writers replace the settings atomically.
type Runtime struct {
	mu       sync.RWMutex
	settings Settings
}

// NewRuntime returns a Runtime starting from initial.
func NewRuntime(initial Settings) *Runtime {
	return &Runtime{settings: initial}
}

// Get returns the current settings.
func (r *Runtime) Get() Settings {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.settings
}

// Update applies a partial update keyed by setting name. Every supplied key is
// validated independently and the batch is applied only if all keys are valid.
// Values are expected in their decoded JSON form: numbers as float64 or
// json.Number, the delay range as an object with optional "min" and "max".
func (r *Runtime) Update(patch map[string]any) (Settings, error) {
	if len(patch) == 0 {
		return Settings{}, apperr.New(apperr.BadRequest, "no settings supplied")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	next := r.settings
	var merr *multierror.Error

	keys := make([]string, 0, len(patch))
	for k := range patch {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := patch[key]
		switch key {
		case KeyQueueCapacity:
			n, err := positiveInt(key, value)
			if err != nil {
				merr = multierror.Append(merr, err)
				continue
			}
			next.QueueCapacity = n
		case KeyHistoryCapacity:
			n, err := positiveInt(key, value)
			if err != nil {
				merr = multierror.Append(merr, err)
				continue
			}
			next.HistoryCapacity = n
		case KeyMaxTemplateBytes:
			n, err := positiveInt(key, value)
			if err != nil {
				merr = multierror.Append(merr, err)
				continue
			}
			next.MaxTemplateBytes = n
		case KeyProcessingDelay:
			d, err := delayRange(next.ProcessingDelay, value)
			if err != nil {
				merr = multierror.Append(merr, err)
				continue
			}
			next.ProcessingDelay = d
		default:
			merr = multierror.Append(merr, fmt.Errorf("%s: unknown setting", key))
		}
	}

	if err := merr.ErrorOrNil(); err != nil {
		return Settings{}, apperr.Invalid("invalid config update", err)
	}

	r.settings = next
	return next, nil
}

func positiveInt(key string, v any) (int, error) {
	n, ok := asInt(v)
	if !ok || n <= 0 {
		return 0, fmt.Errorf("%s: must be a positive integer", key)
	}
	return n, nil
}

func delayRange(current DelayRange, v any) (DelayRange, error) {
	var fields map[string]any
	switch x := v.(type) {
	case map[string]any:
		fields = x
	case DelayRange:
		fields = map[string]any{"min": x.Min, "max": x.Max}
	default:
		return DelayRange{}, fmt.Errorf("%s: must be an object with min and max", KeyProcessingDelay)
	}

	next := current
	for name, raw := range fields {
		n, ok := asInt(raw)
		if !ok {
			return DelayRange{}, fmt.Errorf("%s.%s: must be an integer", KeyProcessingDelay, name)
		}
		switch name {
		case "min":
			next.Min = n
		case "max":
			next.Max = n
		default:
			return DelayRange{}, fmt.Errorf("%s.%s: unknown field", KeyProcessingDelay, name)
		}
	}
	if err := next.validate(); err != nil {
		return DelayRange{}, err
	}
	return next, nil
}

// asInt accepts integral numbers in any of the shapes a decoded request may carry.
func asInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case int64:
		if x > math.MaxInt32 || x < math.MinInt32 {
			return 0, false
		}
		return int(x), true
	case float64:
		if x != math.Trunc(x) || math.IsInf(x, 0) || x > math.MaxInt32 || x < math.MinInt32 {
			return 0, false
		}
		return int(x), true
	case json.Number:
		n, err := x.Int64()
		if err != nil {
			return 0, false
		}
		return asInt(n)
	default:
		return 0, false
	}
}
