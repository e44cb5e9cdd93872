// Package scheduler runs the recurring work: hourly vendor crawls and a
// nightly image migration batch. Jobs share one mutex so a long crawl and
// an image batch never run over each other.
package scheduler

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"dealersync/server/config"
	"dealersync/server/internal/crawler"
	"dealersync/server/internal/database"
	"dealersync/server/internal/media"
)

const imageBatchHour = 2 // 02:00 local time

type Scheduler struct {
	orchestrator *crawler.Orchestrator
	pipeline     *media.Pipeline
	logger       *logrus.Logger
	stopChan     chan struct{}
	wg           sync.WaitGroup
	jobMutex     sync.Mutex
}

func NewScheduler(orchestrator *crawler.Orchestrator, pipeline *media.Pipeline, logger *logrus.Logger) *Scheduler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	return &Scheduler{
		orchestrator: orchestrator,
		pipeline:     pipeline,
		logger:       logger,
		stopChan:     make(chan struct{}),
	}
}

// Start launches the ticker loop and kicks off an immediate crawl pass so
// a fresh deployment has inventory without waiting for the next hour.
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runCrawls()
	}()

	s.wg.Add(1)
	go s.loop()

	s.logger.Info("Scheduler started")
}

func (s *Scheduler) Stop() {
	close(s.stopChan)
	s.wg.Wait()
	s.logger.Info("Scheduler stopped")
}

func (s *Scheduler) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case now := <-ticker.C:
			if now.Minute() != 0 {
				continue
			}
			s.runCrawls()
			if now.Hour() == imageBatchHour {
				s.runImageBatch()
			}
		}
	}
}

// runCrawls syncs every enabled vendor sequentially. A vendor already
// being synced (manual trigger through the API) is skipped, not an error.
func (s *Scheduler) runCrawls() {
	s.jobMutex.Lock()
	defer s.jobMutex.Unlock()

	for _, vendor := range config.EnabledVendors() {
		select {
		case <-s.stopChan:
			return
		default:
		}

		v := vendor
		if _, err := s.orchestrator.Run(context.Background(), &v); err != nil {
			if errors.Is(err, database.ErrRunInProgress) {
				s.logger.WithField("vendor", v.Name).Info("Skipping vendor, sync already in progress")
				continue
			}
			s.logger.WithError(err).WithField("vendor", v.Name).Error("Scheduled sync failed to start")
		}
	}
}

func (s *Scheduler) runImageBatch() {
	if s.pipeline == nil {
		return
	}

	s.jobMutex.Lock()
	defer s.jobMutex.Unlock()

	job, err := s.pipeline.ProcessBatch(context.Background(), nil, 0)
	if err != nil {
		s.logger.WithError(err).Error("Scheduled image batch failed to start")
		return
	}
	s.logger.WithFields(logrus.Fields{
		"job":      job.ID,
		"vehicles": job.VehiclesProcessed,
		"uploaded": job.ImagesUploaded,
		"failed":   job.ImagesFailed,
	}).Info("Scheduled image batch completed")
}
