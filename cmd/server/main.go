package main

import (
	"flag"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"gopkg.in/yaml.v3"

	"github.com/arhyth/bankbook"
)

func main() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	var cfg bankbook.Config
	cfp := flag.String("config", "config.yml", "path to configuration file")
	flag.Parse()
	cfgfl, err := os.Open(*cfp)
	if err != nil {
		logger.Fatal().Err(err).Msg("error opening config file")
	}
	if err = yaml.NewDecoder(cfgfl).Decode(&cfg); err != nil {
		logger.Fatal().Err(err).Msg("error decoding config file")
	}

	pgendpt, err := bankbook.NewPostgresEndpoint(cfg.Database.ConnectionString, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("error starting database")
	}

	var svc bankbook.Service
	svc, err = bankbook.NewService(pgendpt, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("error starting service")
	}

	inflight := cfg.Limits.InFlight
	if inflight <= 0 {
		inflight = 64
	}
	acquireTimeout := time.Duration(cfg.Limits.AcquireTimeoutMS) * time.Millisecond
	if acquireTimeout <= 0 {
		acquireTimeout = 3 * time.Second
	}
	for _, mw := range []bankbook.Middleware{
		bankbook.NewSerialMiddleware(),
		bankbook.NewCircuitBreakMiddleware(bankbook.NewServiceBreaker(gobreaker.Settings{Name: "bankbook"})),
		bankbook.NewLimitMiddleware(bankbook.NewServiceLimits(inflight), acquireTimeout),
	} {
		svc = mw(svc)
	}
	hndlr := bankbook.NewHTTPHandler(svc, &logger)

	listen := cfg.Listen
	if listen == "" {
		listen = ":3000"
	}
	logger.Info().Str("listen", listen).Msg("starting server")
	if err = http.ListenAndServe(listen, hndlr); err != nil {
		logger.Fatal().Err(err).Msg("server exited")
	}
}
