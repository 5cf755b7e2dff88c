package interfaces

type SchedulerInterface interface {
	Init()
	Stop()
	Tick()
}
