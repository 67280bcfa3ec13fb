package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"creator-mcu/internal/calib"
	"creator-mcu/internal/config"
	"creator-mcu/internal/env"
	"creator-mcu/internal/flash"
	"creator-mcu/internal/gpio"
	"creator-mcu/internal/i2c"
	"creator-mcu/internal/imu"
	"creator-mcu/internal/orient"
	"creator-mcu/internal/sensors"
	"creator-mcu/internal/sensors/bmp280"
	"creator-mcu/internal/sensors/hts221"
	"creator-mcu/internal/sensors/lsm9ds1"
	"creator-mcu/internal/sensors/mpl3115a2"
	"creator-mcu/internal/sensors/sim"
	"creator-mcu/internal/sensors/veml6070"
	"creator-mcu/internal/shm"
	"creator-mcu/internal/watchdog"
)

type sensorSet struct {
	pressure sensors.Pressure
	humidity sensors.Humidity
	uv       sensors.UV
	imu      sensors.IMU
}

type kicker interface {
	watchdog.Kicker
	Close() error
}

// board is everything the two loops run against, opened from config.
type board struct {
	cfg config.Config

	region *shm.Region
	flash  *flash.Device
	store  *calib.Store
	bus    *i2c.Bus
	strobe gpio.Pin
	wdt    kicker

	envSvc  *env.Service
	imuSvc  *imu.Service
	started bool
}

func openBoard(cfg config.Config) (b *board, err error) {
	c := cfg
	if err := config.DefaultAndValidate(&c); err != nil {
		return nil, err
	}
	b = &board{cfg: c}
	defer func() {
		if err != nil {
			b.Close()
			b = nil
		}
	}()

	if err := shm.ValidateLayout(c.PSRAM.Size); err != nil {
		return nil, err
	}
	if c.PSRAM.Path != "" {
		b.region, err = shm.OpenMapped(c.PSRAM.Path, c.PSRAM.Offset, c.PSRAM.Size)
		if err != nil {
			return nil, fmt.Errorf("psram: %w", err)
		}
	} else {
		b.region = shm.NewRegion(c.PSRAM.Size)
	}

	if c.Flash.Path != "" {
		b.flash, err = flash.OpenFile(c.Flash.Path, c.Flash.PageAddr, c.Flash.PageSize)
		if err != nil {
			return nil, fmt.Errorf("flash: %w", err)
		}
	} else {
		b.flash = flash.NewMemory(c.Flash.Base, c.Flash.PageSize, int(c.Flash.Size)/c.Flash.PageSize)
	}
	b.store, err = calib.New(b.flash, c.Flash.PageAddr, c.Flash.PageSize)
	if err != nil {
		return nil, err
	}

	set, err := b.openSensors()
	if err != nil {
		return nil, err
	}

	b.strobe = gpio.Nop{}
	if c.Env.Strobe.Enable {
		b.strobe, err = gpio.Open(c.Env.Strobe.Chip, c.Env.Strobe.Line, c.Env.Strobe.LineName, "creator-mcu-strobe")
		if err != nil {
			return nil, fmt.Errorf("strobe: %w", err)
		}
	}

	b.wdt = watchdog.Nop{}
	if c.Watchdog.Enable {
		b.wdt, err = watchdog.Open(c.Watchdog.Device, c.Watchdog.Timeout)
		if err != nil {
			return nil, err
		}
	}

	est, err := orient.New(c.IMU.Estimator)
	if err != nil {
		return nil, err
	}

	b.envSvc, err = env.New(env.Config{
		PreStrobe:       c.Env.PreStrobe,
		StrobePulse:     c.Env.StrobePulse,
		FirmwareID:      c.Firmware.ID,
		FirmwareVersion: c.Firmware.Version,
	}, env.Deps{
		Region:   b.region,
		Pressure: set.pressure,
		Humidity: set.humidity,
		UV:       set.uv,
		Strobe:   b.strobe,
	})
	if err != nil {
		return nil, err
	}

	b.imuSvc, err = imu.New(imu.Config{
		Period:  c.IMU.Period,
		MaxStep: c.IMU.MaxStep,
	}, imu.Deps{
		Region:    b.region,
		IMU:       set.imu,
		Store:     b.store,
		Estimator: est,
		Clock:     orient.NewMonotonicClock(),
		Watchdog:  b.wdt,
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (b *board) openSensors() (sensorSet, error) {
	c := b.cfg
	if c.Sensors.Sim {
		return sensorSet{
			pressure: &sim.Pressure{TempC: 21, Period: 10 * time.Minute},
			humidity: &sim.Humidity{RH: 40, TempC: 22},
			uv:       &sim.UV{Index: 2},
			imu:      &sim.IMU{YawRateDps: 6},
		}, nil
	}

	bus, err := i2c.Open(c.I2C.Bus)
	if err != nil {
		return sensorSet{}, fmt.Errorf("i2c: %w", err)
	}
	b.bus = bus

	var set sensorSet
	switch c.Sensors.Pressure {
	case "bmp280":
		set.pressure, err = bmp280.New(bus.Dev(c.Sensors.BMP280))
	default:
		set.pressure, err = mpl3115a2.New(bus.Dev(c.Sensors.MPL3115A2))
	}
	if err != nil {
		return sensorSet{}, err
	}
	if set.humidity, err = hts221.New(bus.Dev(c.Sensors.HTS221)); err != nil {
		return sensorSet{}, err
	}
	if set.uv, err = veml6070.New(bus); err != nil {
		return sensorSet{}, err
	}
	if set.imu, err = lsm9ds1.New(bus.Dev(c.Sensors.LSM9DS1AG), bus.Dev(c.Sensors.LSM9DS1M)); err != nil {
		return sensorSet{}, err
	}
	return set, nil
}

func (b *board) Start(ctx context.Context) error {
	if err := b.envSvc.Start(ctx); err != nil {
		return err
	}
	if err := b.imuSvc.Start(ctx); err != nil {
		b.envSvc.Close()
		<-b.envSvc.Done()
		return err
	}
	b.started = true
	log.Printf("loops started estimator=%s imu_period=%s env_period=%s",
		b.cfg.IMU.Estimator, b.cfg.IMU.Period, b.cfg.Env.PreStrobe+b.cfg.Env.StrobePulse)
	return nil
}

// Close stops the loops and releases hardware in reverse order of opening.
func (b *board) Close() {
	if b == nil {
		return
	}
	if b.started {
		b.envSvc.Close()
		b.imuSvc.Close()
		<-b.envSvc.Done()
		<-b.imuSvc.Done()
		b.started = false
	}
	if b.wdt != nil {
		_ = b.wdt.Close()
	}
	if b.strobe != nil {
		_ = b.strobe.Close()
	}
	if b.bus != nil {
		_ = b.bus.Close()
	}
	if b.flash != nil {
		_ = b.flash.Close()
	}
	if b.region != nil {
		_ = b.region.Close()
	}
}
