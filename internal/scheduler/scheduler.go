package scheduler

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"DarkPoolSentinel/internal/dataset"
	"DarkPoolSentinel/internal/fetcher"
	"DarkPoolSentinel/internal/marketcap"
	"DarkPoolSentinel/internal/model"
	"DarkPoolSentinel/internal/notifier"
	"DarkPoolSentinel/internal/recorder"

	"github.com/robfig/cron/v3"
)

// Options configures the scheduled surveillance pass.
type Options struct {
	LookbackDays int
	AlertRelVol  float64 // relative-volume threshold for an alert
	AlertDPIndex float64 // dark-pool index threshold for an alert
	TopN         int
}

// Scheduler manages the cron-driven daily refresh and Telegram commands.
type Scheduler struct {
	Cron     *cron.Cron
	Data     *dataset.Service
	Caps     *marketcap.Service
	Notifier *notifier.TelegramNotifier
	Recorder recorder.Recorder
	Ctx      context.Context
	Opts     Options
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, data *dataset.Service, caps *marketcap.Service, tn *notifier.TelegramNotifier, rec recorder.Recorder, opts Options) *Scheduler {
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Data:     data,
		Caps:     caps,
		Notifier: tn,
		Recorder: rec,
		Ctx:      ctx,
		Opts:     opts,
	}
}

// RegisterAll registers the daily refresh task.
func (s *Scheduler) RegisterAll(refreshCron string) error {
	if _, err := s.Cron.AddFunc(refreshCron, s.refreshTask); err != nil {
		return fmt.Errorf("register refresh task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler gracefully.
func (s *Scheduler) Stop() {
	s.Cron.Stop()
	log.Println("[INFO] scheduler stopped")
}

// RunRefreshNow executes the refresh task immediately (for manual trigger / RUN_ON_START).
func (s *Scheduler) RunRefreshNow() {
	s.refreshTask()
}

func (s *Scheduler) refreshTask() {
	log.Println("[INFO] running daily refresh")
	table, latest, ok := s.Data.Refresh(s.Ctx, s.Opts.LookbackDays)
	if !ok {
		log.Println("[WARN] refresh produced no data")
		s.trySend("⏳ Feed refresh found no data yet — the daily file may not be published. Will retry on schedule, or use /refresh.")
		if err := s.Recorder.RecordRefresh(&recorder.RefreshSnapshot{DaysRequested: s.Opts.LookbackDays}); err != nil {
			log.Printf("[ERROR] record refresh: %v", err)
		}
		return
	}

	alerts := s.scanAlerts(table, latest)
	report := notifier.FormatDailyReport(table, latest, alerts, s.Opts.TopN)
	s.trySend(report)

	latestCode := latest.Format(fetcher.DateCode)
	for _, a := range alerts {
		if err := s.Recorder.RecordAlert(&recorder.VolumeAlert{
			Date:           latestCode,
			Symbol:         a.Symbol,
			TotalVolume:    a.TotalVolume,
			BuyVolume:      a.BuyVolume,
			DPIndex:        *a.DPIndex,
			RelativeVolume: *a.RelativeVolume,
		}); err != nil {
			log.Printf("[ERROR] record alert: %v", err)
		}
	}
	if err := s.Recorder.RecordRefresh(&recorder.RefreshSnapshot{
		DaysRequested: s.Opts.LookbackDays,
		DaysFound:     countDates(table),
		Rows:          len(table.Records),
		Symbols:       len(table.Symbols()),
		LatestDate:    latestCode,
		Alerts:        len(alerts),
	}); err != nil {
		log.Printf("[ERROR] record refresh: %v", err)
	}
}

// scanAlerts picks the latest day's records whose relative volume and
// dark-pool index both clear the configured thresholds, highest relative
// volume first. Records with undefined metrics never alert.
func (s *Scheduler) scanAlerts(table model.EnrichedTable, latest time.Time) []model.EnrichedRecord {
	var alerts []model.EnrichedRecord
	for _, r := range table.Records {
		if !r.Date.Equal(latest) {
			continue
		}
		if r.RelativeVolume == nil || r.DPIndex == nil {
			continue
		}
		if *r.RelativeVolume >= s.Opts.AlertRelVol && *r.DPIndex >= s.Opts.AlertDPIndex {
			alerts = append(alerts, r)
		}
	}
	sort.SliceStable(alerts, func(i, j int) bool {
		return *alerts[i].RelativeVolume > *alerts[j].RelativeVolume
	})
	return alerts
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return ""
	}
	switch fields[0] {
	case "/top":
		table, latest, ok := s.Data.Load(s.Ctx, s.Opts.LookbackDays)
		if !ok {
			return notifier.FormatStatus(table, latest, false)
		}
		return "📈 <b>Top relative volume</b> | " + latest.Format("2006-01-02") + "\n\n" +
			notifier.FormatTopMovers(table, latest, s.Opts.TopN)
	case "/dp":
		table, latest, ok := s.Data.Load(s.Ctx, s.Opts.LookbackDays)
		if !ok {
			return notifier.FormatStatus(table, latest, false)
		}
		return notifier.FormatDarkPoolLeaders(table, latest, s.Opts.TopN)
	case "/status":
		table, latest, ok := s.Data.Load(s.Ctx, s.Opts.LookbackDays)
		return notifier.FormatStatus(table, latest, ok)
	case "/cap":
		if len(fields) < 2 {
			return "Usage: /cap SYM1,SYM2,..."
		}
		symbols := strings.Split(strings.ToUpper(fields[1]), ",")
		caps := s.Caps.Lookup(s.Ctx, symbols)
		var b strings.Builder
		for _, sym := range symbols {
			b.WriteString(fmt.Sprintf("%s: $%.2fB\n", sym, caps[sym]))
		}
		return b.String()
	case "/refresh":
		s.refreshTask()
		return ""
	default:
		return "Commands:\n• /top — top relative volume\n• /dp — dark pool leaders\n• /status — dataset status\n• /cap SYMS — market caps\n• /refresh — rebuild now"
	}
}

func countDates(table model.EnrichedTable) int {
	seen := make(map[string]bool)
	for _, r := range table.Records {
		seen[r.Date.Format(fetcher.DateCode)] = true
	}
	return len(seen)
}

func (s *Scheduler) trySend(text string) {
	if err := s.Notifier.SendWithRetry(s.Ctx, text); err != nil {
		log.Printf("[ERROR] send notification: %v", err)
	}
}
