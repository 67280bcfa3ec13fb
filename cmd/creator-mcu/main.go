package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"creator-mcu/internal/config"
	"creator-mcu/internal/shm"
	"creator-mcu/internal/web"
)

func main() {
	var configPath string
	var dump bool
	flag.StringVar(&configPath, "config", "./dev.yaml", "Path to YAML config")
	flag.BoolVar(&dump, "dump", false, "Decode the shared region as YAML and exit")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	if dump {
		if err := dumpRegion(cfg, os.Stdout); err != nil {
			log.Fatalf("dump failed: %v", err)
		}
		return
	}

	logs := web.NewLogBuffer(1000)
	out := []io.Writer{os.Stderr, logs}
	if cfg.Log.File != "" {
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			log.Fatalf("log file open failed: %v", err)
		}
		defer f.Close()
		out = append(out, f)
	}
	log.SetOutput(io.MultiWriter(out...))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	b, err := openBoard(cfg)
	if err != nil {
		log.Fatalf("board init failed: %v", err)
	}
	defer b.Close()

	log.Printf("creator-mcu starting id=0x%X version=0x%X", cfg.Firmware.ID, cfg.Firmware.Version)
	log.Printf("psram path=%q size=0x%X flash page=0x%X sim=%t", cfg.PSRAM.Path, cfg.PSRAM.Size, cfg.Flash.PageAddr, cfg.Sensors.Sim)

	if err := b.Start(ctx); err != nil {
		log.Fatalf("start failed: %v", err)
	}

	if cfg.Web.Listen != "" {
		status := web.NewStatus(b.region, b.envSvc, b.imuSvc)
		go func() {
			log.Printf("web listening on %s", cfg.Web.Listen)
			if err := web.Serve(ctx, cfg.Web.Listen, web.Handler(status, logs, cfg)); err != nil && ctx.Err() == nil {
				log.Printf("web server stopped: %v", err)
			}
		}()
	}

	<-ctx.Done()
	log.Printf("creator-mcu stopping")
}

// dumpRegion decodes the configured region without starting the loops. A
// heap region has nothing to show, so a path is required.
func dumpRegion(cfg config.Config, w io.Writer) error {
	if cfg.PSRAM.Path == "" {
		return fmt.Errorf("psram.path is required for -dump")
	}
	r, err := shm.OpenMapped(cfg.PSRAM.Path, cfg.PSRAM.Offset, cfg.PSRAM.Size)
	if err != nil {
		return err
	}
	defer r.Close()
	snap, err := shm.Dump(r)
	if err != nil {
		return err
	}
	return snap.WriteYAML(w)
}
