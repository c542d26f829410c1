package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang/glog"

	"github.com/mastercactapus/dexarm/machine/dexarm"
	"github.com/mastercactapus/dexarm/machine/sim"
	"github.com/mastercactapus/dexarm/spjs"
)

// openArm connects to the arm described by cfg. The returned func
// releases everything openArm created.
func openArm(ctx context.Context, cfg Config) (*dexarm.Arm, func(), error) {
	armCfg, err := cfg.ArmConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("timeout: %w", err)
	}

	switch {
	case cfg.Sim:
		glog.Info("using simulated arm")
		a, err := dexarm.New(ctx, sim.NewDevice(), armCfg.Options)
		if err != nil {
			return nil, nil, err
		}
		return a, func() { a.Close() }, nil
	case cfg.SPJS != "":
		if cfg.Port == "" {
			return nil, nil, errors.New("no port specified")
		}
		sp := spjs.NewSPJS(cfg.SPJS)
		p, err := sp.Open(cfg.Port, armCfg.Baud)
		if err != nil {
			sp.Close()
			return nil, nil, err
		}
		a, err := dexarm.New(ctx, p, armCfg.Options)
		if err != nil {
			sp.Close()
			return nil, nil, err
		}
		return a, func() { a.Close(); sp.Close() }, nil
	}

	a, err := dexarm.Dial(ctx, armCfg)
	if err != nil {
		return nil, nil, err
	}
	return a, func() { a.Close() }, nil
}
