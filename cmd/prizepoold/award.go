package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"prizepool/gateway"
	"prizepool/integrations/randomness"
	"prizepool/native/lottery"
)

// awardLoop drives the draw lifecycle in the background: it opens a draw once
// the epoch has elapsed and, when the simulated coordinator is active, delivers
// due randomness back to the engine.
func awardLoop(ctx context.Context, logger *slog.Logger, service *gateway.Service, randSim *randomness.Simulator) {
	ticker := time.NewTicker(awardPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		status, err := service.PoolStatus(ctx)
		if err != nil {
			logger.Warn("poll pool status", "error", err)
			continue
		}
		if status.EpochEnded && !status.Awarding {
			record, err := service.StartAwarding(ctx)
			switch {
			case err == nil && record == nil:
				logger.Info("epoch finalized without draw")
			case err == nil:
				logger.Info("prize draw opened",
					"request_id", record.RequestID,
					"prize", record.Prize.String(),
				)
			case errors.Is(err, lottery.ErrEpochNotEnded), errors.Is(err, lottery.ErrAwardInProgress):
				// Lost the race with an API caller.
			default:
				logger.Warn("start awarding", "error", err)
			}
		}

		if randSim != nil && randSim.Pending() > 0 {
			if err := randSim.Tick(syntheticHeight(), service); err != nil {
				logger.Warn("deliver simulated randomness", "error", err)
			}
		}
	}
}
