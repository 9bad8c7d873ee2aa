package job

import (
	"go.uber.org/zap"

	"fsrtos/internal/kernel"
)

// AppConfig sizes the demo application.
type AppConfig struct {
	Rounds       int         // ping/pong exchanges, <= 0 forever
	SamplePeriod kernel.Tick // sampler period
	SampleWCET   kernel.Tick // sampler budget
	SampleCost   kernel.Tick // ticks burnt per sample
	Samples      int         // sampler releases, <= 0 forever
}

// DefaultApp is the stock board application: a 15-tick sampler and an endless ping/pong.
func DefaultApp() AppConfig {
	return AppConfig{
		Rounds:       0,
		SamplePeriod: 15,
		SampleWCET:   10,
		SampleCost:   2,
		Samples:      0,
	}
}

// App returns the system task that brings the application up: a periodic
// sampler and a ping/pong pair, then it terminates.
func App(k *kernel.Kernel, cfg AppConfig, log *zap.Logger) kernel.Entry {
	if log == nil {
		log = zap.NewNop()
	}
	return func() {
		var reading int
		if _, err := k.CreatePeriodic(Sampler(k, cfg.Samples, cfg.SampleCost,
			func() int { reading++; return reading },
			func(v int) { log.Debug("sample", zap.Int("value", v)) },
		), 0, cfg.SamplePeriod, cfg.SampleWCET, 0); err != nil {
			log.Error("create sampler", zap.Error(err))
			return
		}

		pong, err := k.CreateRoundRobin(Pong(k, cfg.Rounds, nil), 0)
		if err != nil {
			log.Error("create pong", zap.Error(err))
			return
		}
		if _, err := k.CreateRoundRobin(Ping(k, func() kernel.PID { return pong }, cfg.Rounds,
			func(r uint32) { log.Debug("reply", zap.Uint32("value", r)) },
		), 0); err != nil {
			log.Error("create ping", zap.Error(err))
		}
	}
}
