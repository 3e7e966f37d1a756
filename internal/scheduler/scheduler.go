// Package scheduler encola los jobs de reminder y digest según el horario
// local de cada equipo. El loop corre cada minuto y matchea el wall clock
// del equipo contra sus horas configuradas; la dedup por cache evita dobles
// envíos si hay más de una réplica o un tick repetido.
package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dropDatabas3/digestus/internal/cache"
	"github.com/dropDatabas3/digestus/internal/domain/types"
	"github.com/dropDatabas3/digestus/internal/metrics"
	"github.com/dropDatabas3/digestus/internal/observability/logger"
	"github.com/dropDatabas3/digestus/internal/queue"
	"github.com/dropDatabas3/digestus/internal/store/core"
)

// dedupTTL cubre de sobra el día del envío.
const dedupTTL = 25 * time.Hour

// Config parametriza el scheduler.
type Config struct {
	// Tick del loop. El matching es por minuto, así que más fino que 1m
	// no aporta nada.
	Tick time.Duration
	// ManagerDigestLead: cuánto antes del digest general sale la copia
	// para managers.
	ManagerDigestLead time.Duration
}

// Enqueuer es lo que el scheduler necesita de la cola.
type Enqueuer interface {
	Enqueue(ctx context.Context, subject string, payload any) error
}

// Scheduler recorre los equipos activos y publica jobs cuando el reloj
// local del equipo cruza sus horas de envío.
type Scheduler struct {
	store core.Store
	queue Enqueuer
	cache cache.Client
	cfg   Config

	// now es inyectable para tests.
	now func() time.Time
}

// New crea un Scheduler.
func New(st core.Store, q Enqueuer, c cache.Client, cfg Config) *Scheduler {
	if cfg.Tick <= 0 {
		cfg.Tick = time.Minute
	}
	if cfg.ManagerDigestLead <= 0 {
		cfg.ManagerDigestLead = time.Hour
	}
	return &Scheduler{store: st, queue: q, cache: c, cfg: cfg, now: time.Now}
}

// Run ejecuta el loop hasta que el contexto se cancele.
func (s *Scheduler) Run(ctx context.Context) error {
	log := logger.From(ctx).With(logger.Component("Scheduler"))
	log.Info("scheduler started", logger.String("tick", s.cfg.Tick.String()))

	ticker := time.NewTicker(s.cfg.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				log.Error("sweep failed", logger.Err(err))
			}
		}
	}
}

// Sweep hace una pasada por los equipos activos y encola lo que toque en
// este minuto. Exportado para poder dispararlo a mano y desde tests.
func (s *Scheduler) Sweep(ctx context.Context) error {
	teams, err := s.store.ListActiveTeams(ctx)
	if err != nil {
		return fmt.Errorf("list active teams: %w", err)
	}

	now := s.now()
	for i := range teams {
		s.sweepTeam(ctx, &teams[i], now)
	}
	return nil
}

func (s *Scheduler) sweepTeam(ctx context.Context, team *types.Team, now time.Time) {
	log := logger.From(ctx).With(
		logger.Component("Scheduler"),
		logger.TeamSlug(team.Slug),
	)

	local := now.In(team.Location())
	if !team.SendsOn(int(local.Weekday())) {
		return
	}
	day := local.Format("2006-01-02")
	minute := local.Format("15:04")
	forDate := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, local.Location())

	// Reminders
	if minute == team.SendRemindersAt {
		if s.claim(ctx, "reminder", team.ID, day) {
			err := s.queue.Enqueue(ctx, queue.SubjectReminderTeam, queue.ReminderTeamJob{
				TeamID:  team.ID,
				ForDate: forDate,
			})
			if err != nil {
				log.Error("enqueue reminders failed", logger.Err(err))
			} else {
				metrics.RemindersScheduled.Inc()
				log.Info("reminders scheduled", logger.ForDate(forDate))
			}
		}
	}

	// Copia para managers, antes del digest general.
	if managerAt, ok := minusLead(team.SendDigestAt, s.cfg.ManagerDigestLead); ok && minute == managerAt {
		if s.claim(ctx, "digest-managers", team.ID, day) {
			err := s.queue.Enqueue(ctx, queue.SubjectDigestTeam, queue.DigestTeamJob{
				TeamID:       team.ID,
				ForDate:      forDate,
				ManagersOnly: true,
			})
			if err != nil {
				log.Error("enqueue manager digest failed", logger.Err(err))
			} else {
				metrics.DigestsScheduled.Inc()
				log.Info("manager digest scheduled", logger.ForDate(forDate))
			}
		}
	}

	// Digest general
	if minute == team.SendDigestAt {
		if s.claim(ctx, "digest", team.ID, day) {
			err := s.queue.Enqueue(ctx, queue.SubjectDigestTeam, queue.DigestTeamJob{
				TeamID:  team.ID,
				ForDate: forDate,
			})
			if err != nil {
				log.Error("enqueue digest failed", logger.Err(err))
			} else {
				metrics.DigestsScheduled.Inc()
				log.Info("digest scheduled", logger.ForDate(forDate))
			}
		}
	}
}

// claim toma el lock de dedup del evento. En error de cache preferimos
// encolar igual: un duplicado ocasional es mejor que un día sin envíos.
func (s *Scheduler) claim(ctx context.Context, event, teamID, day string) bool {
	key := strings.Join([]string{"sched", event, teamID, day}, ":")
	ok, err := s.cache.SetNX(ctx, key, "1", dedupTTL)
	if err != nil {
		logger.From(ctx).Warn("dedup cache unavailable", logger.Err(err))
		return true
	}
	return ok
}

// minusLead resta lead a una hora "HH:MM". Retorna ok=false si la hora no
// parsea o si el resultado cae en el día anterior.
func minusLead(hhmm string, lead time.Duration) (string, bool) {
	parts := strings.SplitN(hhmm, ":", 2)
	if len(parts) != 2 {
		return "", false
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return "", false
	}
	total := h*60 + m - int(lead.Minutes())
	if total < 0 {
		return "", false
	}
	return fmt.Sprintf("%02d:%02d", total/60, total%60), true
}
