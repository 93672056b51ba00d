package job

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/reelflow/reelflow-api/internal/models"
	"github.com/reelflow/reelflow-api/internal/repository"
	"github.com/reelflow/reelflow-api/internal/service"
)

type TokenRefreshJob struct {
	sr repository.SocialAccountRepository
	ps service.PlatformService
}

func NewTokenRefreshJob(sr repository.SocialAccountRepository, ps service.PlatformService) *TokenRefreshJob {
	return &TokenRefreshJob{
		sr: sr,
		ps: ps,
	}
}

func (c *TokenRefreshJob) RefreshTokens() {
	ctx := context.Background()

	currentTime := time.Now()
	timeIn30Minutes := currentTime.Add(30 * time.Minute)

	accounts, err := c.sr.ListByExpiryInterval(ctx, currentTime, timeIn30Minutes)
	if err != nil {
		slog.Info(err.Error())
		return
	}

	var wg sync.WaitGroup

	concurrencyLimit := 10
	semaphore := make(chan struct{}, concurrencyLimit)

	for _, acc := range accounts {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(acc *models.SocialAccount) {
			defer wg.Done()
			defer func() { <-semaphore }()

			if err := c.ps.RefreshToken(ctx, acc); err != nil {
				slog.Info("Unable to refresh token for account " + acc.AccountUsername)
			}
		}(acc)
	}

	wg.Wait()
}
