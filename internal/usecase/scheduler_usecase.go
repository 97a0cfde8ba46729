package usecase

import (
	"time"

	"feedpulse/internal/repository"
	"feedpulse/internal/scheduler"
)

type SchedulerControlUsecase interface {
	Start(filter repository.DueFilter)
	Stop()
	Status() scheduler.Status
	UpdateConfiguration(maxConcurrent *int, checkInterval *time.Duration)
}

// SchedulerControl is a thin layer between the HTTP surface and the
// scheduler; it exists so handlers depend on an interface like everything
// else in the delivery layer.
type SchedulerControl struct {
	sched *scheduler.Scheduler
}

func NewSchedulerControlUsecase(sched *scheduler.Scheduler) *SchedulerControl {
	return &SchedulerControl{sched: sched}
}

func (u *SchedulerControl) Start(filter repository.DueFilter) {
	u.sched.SetFilter(filter)
	u.sched.Start()
}

func (u *SchedulerControl) Stop() {
	u.sched.Stop()
}

func (u *SchedulerControl) Status() scheduler.Status {
	return u.sched.Status()
}

func (u *SchedulerControl) UpdateConfiguration(maxConcurrent *int, checkInterval *time.Duration) {
	u.sched.UpdateConfiguration(maxConcurrent, checkInterval)
}
