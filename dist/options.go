package dist

import "log/slog"

// PushOption configures a Push operation.
type PushOption func(*pushConfig)

type pushConfig struct {
	logger      *slog.Logger
	tags        []string
	annotations map[string]string
}

// PushWithLogger sets the logger for push progress. Nil discards logs.
func PushWithLogger(logger *slog.Logger) PushOption {
	return func(cfg *pushConfig) {
		cfg.logger = logger
	}
}

// PushWithTags applies additional tags to the pushed artifact.
//
// The primary tag is always applied. These tags are applied after the
// push succeeds.
func PushWithTags(tags ...string) PushOption {
	return func(cfg *pushConfig) {
		cfg.tags = append(cfg.tags, tags...)
	}
}

// PushWithAnnotations sets custom annotations on the artifact manifest.
//
// The package name annotation and org.opencontainers.image.created are
// set automatically and can be overridden.
func PushWithAnnotations(annotations map[string]string) PushOption {
	return func(cfg *pushConfig) {
		if cfg.annotations == nil {
			cfg.annotations = make(map[string]string)
		}
		for k, v := range annotations {
			cfg.annotations[k] = v
		}
	}
}

func (cfg *pushConfig) log() *slog.Logger {
	if cfg.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return cfg.logger
}

// PullOption configures a Pull operation.
type PullOption func(*pullConfig)

type pullConfig struct {
	logger *slog.Logger
}

// PullWithLogger sets the logger for pull progress. Nil discards logs.
func PullWithLogger(logger *slog.Logger) PullOption {
	return func(cfg *pullConfig) {
		cfg.logger = logger
	}
}

func (cfg *pullConfig) log() *slog.Logger {
	if cfg.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return cfg.logger
}
