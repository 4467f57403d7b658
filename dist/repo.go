package dist

import (
	"fmt"
	"net/http"

	"oras.land/oras-go/v2/registry/remote"
	"oras.land/oras-go/v2/registry/remote/auth"
	"oras.land/oras-go/v2/registry/remote/retry"
)

// RepositoryOption configures NewRepository.
type RepositoryOption func(*repoConfig)

type repoConfig struct {
	plainHTTP  bool
	userAgent  string
	credential auth.Credential
}

// WithPlainHTTP connects over HTTP instead of HTTPS. For local registries
// and tests.
func WithPlainHTTP() RepositoryOption {
	return func(cfg *repoConfig) {
		cfg.plainHTTP = true
	}
}

// WithCredential authenticates with a static username and password.
func WithCredential(username, password string) RepositoryOption {
	return func(cfg *repoConfig) {
		cfg.credential = auth.Credential{Username: username, Password: password}
	}
}

// WithUserAgent overrides the User-Agent header sent to the registry.
func WithUserAgent(ua string) RepositoryOption {
	return func(cfg *repoConfig) {
		cfg.userAgent = ua
	}
}

// NewRepository opens a remote repository for a reference like
// "registry.example.com/team/basepack". The client retries transient
// failures and caches auth tokens across requests. The result satisfies
// [oras.land/oras-go/v2.Target] and plugs straight into Push and Pull.
func NewRepository(ref string, opts ...RepositoryOption) (*remote.Repository, error) {
	cfg := repoConfig{userAgent: "assetpack/1.0"}
	for _, opt := range opts {
		opt(&cfg)
	}

	repo, err := remote.NewRepository(ref)
	if err != nil {
		return nil, fmt.Errorf("parse reference %q: %w", ref, err)
	}
	repo.PlainHTTP = cfg.plainHTTP

	client := &auth.Client{
		Client: retry.DefaultClient,
		Cache:  auth.NewCache(),
		Header: http.Header{
			"User-Agent": []string{cfg.userAgent},
		},
	}
	if cfg.credential != (auth.Credential{}) {
		client.Credential = auth.StaticCredential(repo.Reference.Registry, cfg.credential)
	}
	repo.Client = client

	return repo, nil
}
