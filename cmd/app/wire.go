//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/yanqian/content-digest/internal/bootstrap"
	"github.com/yanqian/content-digest/internal/domain/digest"
	"github.com/yanqian/content-digest/internal/infra/config"
	httpiface "github.com/yanqian/content-digest/internal/interface/http"
	"github.com/yanqian/content-digest/pkg/logger"
)

func initializeApp() (*bootstrap.App, func(), error) {
	wire.Build(
		config.Load,
		logger.New,
		provideDigestConfig,
		provideFetcher,
		provideTranscripts,
		provideLanguageDetector,
		provideRetryPolicy,
		provideGenerator,
		provideTokenCounter,
		provideHistory,
		provideSnapshots,
		provideRateLimiter,
		digest.NewNormalizer,
		digest.NewService,
		httpiface.NewHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil, nil
}
