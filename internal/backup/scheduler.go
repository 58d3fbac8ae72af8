package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kimhsiao/fixdesk/backend/internal/logging"
)

// Interval is how often the scheduler takes a backup.
type Interval string

const (
	IntervalManual Interval = "manual"
	IntervalDaily  Interval = "daily"
	IntervalWeekly Interval = "weekly"
)

// Duration returns the period of i.
func (i Interval) Duration() (time.Duration, error) {
	switch i {
	case IntervalDaily:
		return 24 * time.Hour, nil
	case IntervalWeekly:
		return 7 * 24 * time.Hour, nil
	case IntervalManual, "":
		return 0, fmt.Errorf("manual interval has no duration")
	default:
		return 0, fmt.Errorf("unknown interval: %s", i)
	}
}

// Exporter creates one backup. *Service satisfies it.
type Exporter interface {
	Export(ctx context.Context, cfg Config) (*Result, error)
	OutDir() string
}

// SchedulerConfig holds the scheduler configuration.
type SchedulerConfig struct {
	Interval       Interval
	RetentionCount int // archives to keep, 0 keeps all
	IncludeImages  bool
	Password       string
	Upload         bool
}

// Scheduler takes periodic backups and prunes old archives.
type Scheduler struct {
	exporter Exporter
	config   SchedulerConfig
	log      *logging.Logger

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewScheduler creates a Scheduler.
func NewScheduler(exporter Exporter, config SchedulerConfig, log *logging.Logger) *Scheduler {
	if log == nil {
		log = logging.Get()
	}
	if config.RetentionCount < 0 {
		config.RetentionCount = 0
	}
	return &Scheduler{
		exporter: exporter,
		config:   config,
		log:      log.With(map[string]interface{}{"component": "backup-scheduler"}),
		stopCh:   make(chan struct{}),
	}
}

// Start launches the periodic loop. In manual mode it does nothing.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.config.Interval == IntervalManual || s.config.Interval == "" {
		s.log.Info("scheduler in manual mode, automatic backups disabled")
		return nil
	}
	period, err := s.config.Interval.Duration()
	if err != nil {
		return fmt.Errorf("invalid interval: %w", err)
	}

	ticker := time.NewTicker(period)
	s.log.Info("scheduler started", map[string]interface{}{
		"interval":  string(s.config.Interval),
		"retention": s.config.RetentionCount,
	})

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := s.RunOnce(ctx); err != nil {
					s.log.Error("scheduled backup failed", err)
				}
			case <-s.stopCh:
				s.log.Info("scheduler stopped")
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

// Stop ends the loop and waits for it to exit. Safe to call more than once.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
}

// RunOnce takes one backup and applies the retention policy.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	result, err := s.exporter.Export(ctx, Config{
		Password:      s.config.Password,
		IncludeImages: s.config.IncludeImages,
		Upload:        s.config.Upload,
	})
	if err != nil {
		return fmt.Errorf("backup failed: %w", err)
	}
	s.log.Info("scheduled backup completed", map[string]interface{}{
		"file": result.FilePath,
		"size": result.SizeBytes,
	})

	if s.config.RetentionCount > 0 {
		removed, err := Prune(s.exporter.OutDir(), s.config.RetentionCount)
		if err != nil {
			s.log.Error("retention policy failed", err)
			return nil
		}
		for _, p := range removed {
			s.log.Info("deleted old archive", map[string]interface{}{"path": p})
		}
	}
	return nil
}

// ArchiveInfo describes one archive on disk.
type ArchiveInfo struct {
	Path      string    `json:"path"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}

// ListArchives returns the archives in dir, oldest first.
func ListArchives(dir string) ([]ArchiveInfo, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var archives []ArchiveInfo
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".tar.gz") {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			return nil, err
		}
		archives = append(archives, ArchiveInfo{
			Path:      filepath.Join(dir, e.Name()),
			SizeBytes: fi.Size(),
			CreatedAt: fi.ModTime(),
		})
	}
	sort.Slice(archives, func(i, j int) bool {
		if archives[i].CreatedAt.Equal(archives[j].CreatedAt) {
			return archives[i].Path < archives[j].Path
		}
		return archives[i].CreatedAt.Before(archives[j].CreatedAt)
	})
	return archives, nil
}

// Prune deletes all but the newest keep archives in dir and returns the
// removed paths.
func Prune(dir string, keep int) ([]string, error) {
	archives, err := ListArchives(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list archives: %w", err)
	}
	if len(archives) <= keep {
		return nil, nil
	}

	var removed []string
	for _, a := range archives[:len(archives)-keep] {
		if err := os.Remove(a.Path); err != nil {
			return removed, err
		}
		removed = append(removed, a.Path)
	}
	return removed, nil
}
