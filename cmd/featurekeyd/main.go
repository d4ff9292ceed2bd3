package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/zhanglinchao1/Feature-Algorithm/cmd/flags"
	"github.com/zhanglinchao1/Feature-Algorithm/engine"
	"github.com/zhanglinchao1/Feature-Algorithm/httpserver"
	"github.com/zhanglinchao1/Feature-Algorithm/interfaces"
	"github.com/zhanglinchao1/Feature-Algorithm/storage"
)

func main() {
	app := &cli.App{
		Name:  "featurekeyd",
		Usage: "Serve feature-based key derivation over HTTP",
		Flags: append([]cli.Flag{
			flags.ListenAddrFlag,
			flags.StoreURIFlag,
			flags.ProfileFlag,
			flags.HashFlag,
			flags.AllowOverwriteFlag,
		}, flags.CommonFlags...),
		Action: runServer,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runServer(cCtx *cli.Context) error {
	logger := flags.SetupLogger(cCtx)

	cfg, err := configForProfile(cCtx.String(flags.ProfileFlag.Name))
	if err != nil {
		logger.Error("Invalid profile", "err", err)
		return err
	}
	if hashName := cCtx.String(flags.HashFlag.Name); hashName != "" {
		cfg.HashAlgorithm, err = interfaces.ParseHashAlgorithm(hashName)
		if err != nil {
			logger.Error("Invalid hash algorithm", "err", err)
			return err
		}
	}

	store, err := storage.NewStoreFromURI(cCtx.String(flags.StoreURIFlag.Name), logger)
	if err != nil {
		logger.Error("Failed to create device store", "err", err)
		return err
	}
	logger.Info("Device store initialized", "backend", store.Name())

	var opts []engine.Option
	if cCtx.Bool(flags.AllowOverwriteFlag.Name) {
		opts = append(opts, engine.WithOverwrite())
	}

	eng, err := engine.New(cfg, store, logger, opts...)
	if err != nil {
		logger.Error("Failed to create engine", "err", err)
		return err
	}

	serverCfg := flags.ConfigureServer(cCtx, logger)
	server, err := httpserver.New(serverCfg, httpserver.NewHandler(eng, logger))
	if err != nil {
		logger.Error("Failed to create server", "err", err)
		return err
	}

	server.RunInBackground()

	exit := make(chan os.Signal, 1)
	signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

	logger.Info("Server is running, press Ctrl+C to stop")
	<-exit
	logger.Info("Shutdown signal received")

	server.Shutdown()
	logger.Info("Server shutdown complete")

	return nil
}

func configForProfile(name string) (interfaces.Config, error) {
	switch name {
	case "default":
		return interfaces.DefaultConfig(), nil
	case "high-noise":
		return interfaces.HighNoiseConfig(), nil
	case "low-latency":
		return interfaces.LowLatencyConfig(), nil
	case "high-security":
		return interfaces.HighSecurityConfig(), nil
	default:
		return interfaces.Config{}, fmt.Errorf("unknown profile %q", name)
	}
}
