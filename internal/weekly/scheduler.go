// internal/weekly/scheduler.go
package weekly

import (
	"context"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/evn/driver_botl/models"
)

// StartSchedule запускает два ежедневных триггера по локальному времени:
// дневная смена и ночная. Воскресный гейт — внутри Run.
func (c *Checker) StartSchedule(ctx context.Context) {
	go c.scheduleLoop(ctx, c.cfg.DayShiftTime, models.ShiftDay)
	go c.scheduleLoop(ctx, c.cfg.NightShiftTime, models.ShiftNight)
	log.Printf("✅ Расписание weekly-проверок запущено (%s day, %s night, %s)",
		c.cfg.DayShiftTime, c.cfg.NightShiftTime, c.cfg.Timezone)
}

func (c *Checker) scheduleLoop(ctx context.Context, hhmm string, kind models.Shift) {
	hour, minute, err := parseHHMM(hhmm)
	if err != nil {
		log.Printf("❌ Расписание %s: плохое время '%s': %v", kind, hhmm, err)
		return
	}

	for {
		next := nextOccurrence(c.now().In(c.loc), hour, minute)
		select {
		case <-time.After(time.Until(next)):
			if err := c.Run(ctx, kind, false); err != nil {
				log.Printf("❌ Weekly-проверка (%s): %v", kind, err)
			}
		case <-ctx.Done():
			return
		}
	}
}

func parseHHMM(hhmm string) (int, int, error) {
	parts := strings.SplitN(hhmm, ":", 2)
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, err
	}
	minute := 0
	if len(parts) == 2 {
		if minute, err = strconv.Atoi(parts[1]); err != nil {
			return 0, 0, err
		}
	}
	return hour, minute, nil
}

func nextOccurrence(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
