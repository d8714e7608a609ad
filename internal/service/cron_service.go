package service

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sosengine/databridge/pkg/utils/zaplogger"
)

// CronService is the service for the cron jobs
type CronService struct {
	c        *cron.Cron
	symbols  *SymbolService
	backfill *BackfillService
}

// NewCronService creates a new CronService
func NewCronService(symbols *SymbolService, backfill *BackfillService) *CronService {
	return &CronService{
		c:        cron.New(),
		symbols:  symbols,
		backfill: backfill,
	}
}

// Start starts the cron service
func (cs *CronService) Start() {
	zaplogger.Info("Initializing CronService")

	// ------------------------------------------------------------
	// Add your SCHEDULED jobs here
	// ------------------------------------------------------------
	cs.addScheduledJob("Instruments REFRESH Job", cs.instrumentsRefreshJob, "0 8 * * 1-5")         // Once at 08:00am, Mon-Fri
	cs.addScheduledJob("OptionChain BACKFILL Job", cs.optionChainBackfillJob, "*/15 9-15 * * 1-5") // Every 15 min during session, Mon-Fri

	// ------------------------------------------------------------
	// Add your STARTUP jobs here
	// ------------------------------------------------------------
	cs.addStartupJob("OptionChain BACKFILL Job", cs.optionChainBackfillJob, 10*time.Second)
	// ------------------------------------------------------------

	cs.c.Start()
}

// Stop stops the cron scheduler
func (cs *CronService) Stop() {
	cs.c.Stop()
}

// addStartupJob adds a startup job to the cron service
func (cs *CronService) addStartupJob(name string, job func(), delay time.Duration) {
	go func() {
		time.Sleep(delay)
		zaplogger.Info("STARTED STARTUP job", zaplogger.Fields{
			"job": name,
		})
		job()
		zaplogger.Info("COMPLETED STARTUP job", zaplogger.Fields{
			"job": name,
		})
	}()
	zaplogger.Info("QUEUED STARTUP job", zaplogger.Fields{
		"job": name,
	})
}

func (cs *CronService) addScheduledJob(name string, job func(), schedule string) {
	_, err := cs.c.AddFunc(schedule, func() {
		zaplogger.Info("STARTED SCHEDULED JOB", zaplogger.Fields{
			"job": name,
		})
		job()
		zaplogger.Info("COMPLETED SCHEDULED JOB", zaplogger.Fields{
			"job": name,
		})
	})
	if err != nil {
		zaplogger.Error("FAILED TO QUEUE SCHEDULED JOB", zaplogger.Fields{
			"job":   name,
			"error": err.Error(),
		})
		return
	}
	zaplogger.Info("QUEUED SCHEDULED job", zaplogger.Fields{
		"job": name,
	})
}

// instrumentsRefreshJob re-downloads the instrument master
func (cs *CronService) instrumentsRefreshJob() {
	jobName := "Instruments REFRESH Job "

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := cs.symbols.RefreshInstruments(ctx); err != nil {
		zaplogger.Error(jobName, zaplogger.Fields{
			"error": err.Error(),
		})
		return
	}
}

// optionChainBackfillJob backfills recent per-minute OI snapshots
func (cs *CronService) optionChainBackfillJob() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	cs.backfill.Run(ctx)
}
