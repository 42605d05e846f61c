package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	httpctrl "github.com/Agrid-Dev/puritank/internal/controllers/http"
	modbusctrl "github.com/Agrid-Dev/puritank/internal/controllers/modbus"
	mqttctrl "github.com/Agrid-Dev/puritank/internal/controllers/mqtt"
	"github.com/Agrid-Dev/puritank/internal/device"
	"github.com/Agrid-Dev/puritank/internal/rig"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the rig controller and the enabled status controllers",
	RunE:  runRig,
}

func runRig(cmd *cobra.Command, args []string) error {
	params, err := cfg.Params()
	if err != nil {
		return err
	}
	devCfg, err := cfg.Device()
	if err != nil {
		return err
	}

	clock := rig.SystemClock{}
	dev, err := device.Open(cfg.DeviceID, devCfg, clock, logger.Named("device"))
	if err != nil {
		return err
	}
	defer func() {
		if err := dev.Close(); err != nil {
			logger.Warn("hardware close failed", zap.Error(err))
		}
	}()

	ctrl, err := rig.New(params, dev.IO, clock, logger.Named("rig"))
	if err != nil {
		return err
	}

	var runners []func(context.Context) error
	if cfg.Controllers.HTTP.Enabled {
		srv := httpctrl.New(ctrl, cfg.Controllers.HTTP.Addr, cfg.DeviceID, logger.Named("http"))
		logger.Info("http listening", zap.String("addr", cfg.Controllers.HTTP.Addr))
		runners = append(runners, srv.Run)
	}
	if cfg.Controllers.MQTT.Enabled {
		mc, err := mqttctrl.New(ctrl, cfg.MQTT(), logger.Named("mqtt"))
		if err != nil {
			return err
		}
		runners = append(runners, mc.Run)
	}
	if cfg.Controllers.MODBUS.Enabled {
		mb, err := modbusctrl.New(ctrl, cfg.Modbus(), logger.Named("modbus"))
		if err != nil {
			return err
		}
		logger.Info("modbus listening", zap.String("addr", cfg.Controllers.MODBUS.Addr))
		runners = append(runners, mb.Run)
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return ctrl.Run(ctx, cfg.TickInterval) })
	if dev.Sim != nil {
		g.Go(func() error { return dev.Sim.Run(ctx, cfg.Hardware.Sim.StepInterval) })
	}
	for _, run := range runners {
		g.Go(func() error { return run(ctx) })
	}

	logger.Info("puritank started",
		zap.String("device_id", cfg.DeviceID),
		zap.Duration("tick_interval", cfg.TickInterval),
	)
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("exited", zap.Error(err))
		return err
	}
	logger.Info("stopped")
	return nil
}
