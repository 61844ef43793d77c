package service

import (
	"log/slog"

	redisx "github.com/example/tablegate/internal/redis"
	postgres "github.com/example/tablegate/internal/repository/postgres"
	redisrepo "github.com/example/tablegate/internal/repository/redis"
	"github.com/example/tablegate/internal/service/admission"
	"github.com/example/tablegate/internal/service/booking"
	"github.com/example/tablegate/internal/service/command"
	"github.com/example/tablegate/internal/service/rules"
)

type Services struct {
	Rules     *rules.Service
	Admission *admission.Service
	Booking   *booking.Service
	Command   *command.Service
}

type Config struct {
	Admission admission.Config
}

func NewServices(
	store *postgres.Store,
	cache *redisrepo.Cache,
	pubsub *redisx.RulesPubSub,
	counter *redisrepo.SlotCounter,
	idem *redisrepo.IdempotencyStore,
	cmdLimiter *redisrepo.SlidingWindowLimiter,
	logger *slog.Logger,
	cfg Config,
) *Services {
	ruleSvc := rules.New(store, cache, pubsub)

	var reserver admission.SlotReserver
	if counter != nil {
		reserver = counter
	}
	admissionSvc := admission.New(ruleSvc, store.Reservations(), reserver, logger, cfg.Admission)

	var limiter command.Limiter
	if cmdLimiter != nil {
		limiter = cmdLimiter
	}

	return &Services{
		Rules:     ruleSvc,
		Admission: admissionSvc,
		Booking:   booking.New(store, admissionSvc, idem, logger),
		Command:   command.New(ruleSvc, limiter, logger),
	}
}
